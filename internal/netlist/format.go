// Package netlist reads and writes the JSON netlist exchange format.
//
// A document lists modules; each module declares its signals once and
// instantiates them in one or more scopes. Blocks belong to scopes and
// reference signals by name, resolved in the enclosing scope unless the
// reference names another scope explicitly.
package netlist

// CurrentVersion is written into every encoded document.
const CurrentVersion = "1.1.0"

// DefaultConstraint is the range of format versions Decode accepts.
const DefaultConstraint = "^1.0.0"

// File is the top-level document.
type File struct {
	FormatVersion string   `json:"format_version"`
	Source        string   `json:"source,omitempty"`
	ForceLowered  bool     `json:"force_lowered,omitempty"`
	Modules       []Module `json:"modules"`
}

type Module struct {
	Name   string  `json:"name"`
	Vars   []Var   `json:"vars"`
	Scopes []Scope `json:"scopes"`
}

type Var struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Type      Type   `json:"type"`
	Forceable bool   `json:"forceable,omitempty"`
	PrimaryIO bool   `json:"primary_io,omitempty"`
	Public    bool   `json:"public,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Type is a data type. Kind is one of scalar, vector, array, opaque.
type Type struct {
	Kind  string `json:"kind"`
	Width int    `json:"width,omitempty"`
	Size  int    `json:"size,omitempty"`
	Elem  *Type  `json:"elem,omitempty"`
	Name  string `json:"name,omitempty"`
}

type Scope struct {
	Name string `json:"name"`
	// Vars lists the instantiated declarations in order. When omitted
	// every declaration of the module is instantiated.
	Vars   []string `json:"vars,omitempty"`
	Blocks []Block  `json:"blocks,omitempty"`
}

type Block struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Stmts []Stmt `json:"stmts"`
}

// Stmt is one statement. Kind is one of assign, assigndly, assignw,
// force, release, if.
type Stmt struct {
	Kind   string   `json:"kind"`
	Lhs    *Expr    `json:"lhs,omitempty"`
	Rhs    *Expr    `json:"rhs,omitempty"`
	Cond   *Expr    `json:"cond,omitempty"`
	Then   []Stmt   `json:"then,omitempty"`
	Else   []Stmt   `json:"else,omitempty"`
	File   string   `json:"file,omitempty"`
	Line   int      `json:"line,omitempty"`
	NoWarn []string `json:"nowarn,omitempty"`
}

// Expr is an expression node discriminated by Op.
type Expr struct {
	Op string `json:"op"`

	// ref
	Var    string `json:"var,omitempty"`
	Scope  string `json:"scope,omitempty"`
	Access string `json:"access,omitempty"`
	Bypass bool   `json:"bypass,omitempty"`

	// const (Value is hexadecimal), sel
	Width int    `json:"width,omitempty"`
	Value string `json:"value,omitempty"`
	LSB   int    `json:"lsb,omitempty"`

	// operands
	From    *Expr `json:"from,omitempty"`
	Index   *Expr `json:"index,omitempty"`
	Hi      *Expr `json:"hi,omitempty"`
	Lo      *Expr `json:"lo,omitempty"`
	L       *Expr `json:"l,omitempty"`
	R       *Expr `json:"r,omitempty"`
	Operand *Expr `json:"operand,omitempty"`
	Cond    *Expr `json:"cond,omitempty"`
	Then    *Expr `json:"then,omitempty"`
	Else    *Expr `json:"else,omitempty"`
}
