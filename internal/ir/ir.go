// Package ir is the scoped netlist the force pass rewrites.
//
// Nodes live in per-kind arenas owned by a Netlist and are addressed by
// stable handles. Ordered relations (a module's declarations, a scope's
// var scopes and blocks, a block's statements) are slices of handles, so
// structural edits are index-list operations rather than pointer splicing.
// Handle zero is never allocated and marks "no node".
package ir

import "fmt"

// Handle types for referencing netlist objects.
type (
	ModuleID   uint32
	VarID      uint32
	ScopeID    uint32
	VarScopeID uint32
	BlockID    uint32
	StmtID     uint32
	ExprID     uint32
)

// Netlist owns every node of one compilation unit.
type Netlist struct {
	// Modules in traversal order
	Modules []ModuleID

	// ForceableSignals reports whether any forceable declaration or
	// force/release statement was created. The force pass is skipped
	// when it is false.
	ForceableSignals bool

	// ForceLowered is set once the force pass has run.
	ForceLowered bool

	modules   []*Module
	vars      []*Var
	scopes    []*Scope
	varScopes []*VarScope
	blocks    []*Block
	stmts     []*Statement
	exprs     []Expr
}

// New returns an empty netlist.
func New() *Netlist {
	return &Netlist{
		modules:   []*Module{nil},
		vars:      []*Var{nil},
		scopes:    []*Scope{nil},
		varScopes: []*VarScope{nil},
		blocks:    []*Block{nil},
		stmts:     []*Statement{nil},
		exprs:     []Expr{nil},
	}
}

// HasForceableSignals gates the force pass.
func (n *Netlist) HasForceableSignals() bool {
	return n.ForceableSignals
}

// Module is a design unit with its declarations and instantiations.
type Module struct {
	Name   string
	Vars   []VarID
	Scopes []ScopeID
}

// VarKind distinguishes continuously driven nets from procedural variables.
type VarKind uint8

const (
	Net VarKind = iota
	Variable
)

func (k VarKind) String() string {
	switch k {
	case Net:
		return "net"
	case Variable:
		return "var"
	}
	return fmt.Sprintf("VarKind(%d)", uint8(k))
}

// Var is a signal declaration.
type Var struct {
	Name      string
	Kind      VarKind
	Type      DType
	Forceable bool
	PrimaryIO bool

	// Public marks the signal as externally readable and writable
	Public bool

	Module ModuleID
	Loc    Loc
}

// Scope is one instantiation of a module in the design hierarchy.
type Scope struct {
	Name      string
	Module    ModuleID
	VarScopes []VarScopeID
	Blocks    []BlockID
}

// VarScope binds a declaration to a scope; storage exists per var scope.
type VarScope struct {
	Var   VarID
	Scope ScopeID
}

// BlockKind is the scheduling class of a block.
type BlockKind uint8

const (
	BlockInitial BlockKind = iota // runs once at simulation start
	BlockCombo                    // re-evaluated whenever an input changes
	BlockAlways                   // procedural process
)

func (k BlockKind) String() string {
	switch k {
	case BlockInitial:
		return "initial"
	case BlockCombo:
		return "comb"
	case BlockAlways:
		return "always"
	}
	return fmt.Sprintf("BlockKind(%d)", uint8(k))
}

// Block is an active region holding a statement list.
type Block struct {
	Kind  BlockKind
	Name  string
	Scope ScopeID
	Stmts []StmtID
}

// WarnCode identifies a warning that may be suppressed per statement.
type WarnCode uint8

const (
	// WarnBlkAndNblk flags a signal written by both blocking and
	// non-blocking assignments.
	WarnBlkAndNblk WarnCode = iota + 1
)

func (c WarnCode) String() string {
	switch c {
	case WarnBlkAndNblk:
		return "BLKANDNBLK"
	}
	return fmt.Sprintf("WarnCode(%d)", uint8(c))
}

// ParseWarnCode maps a warning name back to its code.
func ParseWarnCode(s string) (WarnCode, bool) {
	switch s {
	case "BLKANDNBLK":
		return WarnBlkAndNblk, true
	}
	return 0, false
}

// Loc is a source location plus the warnings suppressed at it.
type Loc struct {
	File   string
	Line   int
	nowarn uint32
}

// WarnOff returns a copy of l with code suppressed.
func (l Loc) WarnOff(code WarnCode) Loc {
	l.nowarn |= 1 << code
	return l
}

// Suppressed reports whether code is disabled at l.
func (l Loc) Suppressed(code WarnCode) bool {
	return l.nowarn&(1<<code) != 0
}

// Suppressions lists the disabled warnings in code order.
func (l Loc) Suppressions() []WarnCode {
	var out []WarnCode
	for c := WarnBlkAndNblk; c <= WarnBlkAndNblk; c++ {
		if l.Suppressed(c) {
			out = append(out, c)
		}
	}
	return out
}

func (l Loc) String() string {
	if l.File == "" {
		return fmt.Sprintf("<netlist>:%d", l.Line)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Module returns the module for id. The pointer stays valid for the
// lifetime of the netlist.
func (n *Netlist) Module(id ModuleID) *Module { return n.modules[id] }

// Var returns the declaration for id.
func (n *Netlist) Var(id VarID) *Var { return n.vars[id] }

// Scope returns the scope for id.
func (n *Netlist) Scope(id ScopeID) *Scope { return n.scopes[id] }

// VarScope returns the binding for id.
func (n *Netlist) VarScope(id VarScopeID) *VarScope { return n.varScopes[id] }

// Block returns the block for id.
func (n *Netlist) Block(id BlockID) *Block { return n.blocks[id] }

// Stmt returns the statement for id.
func (n *Netlist) Stmt(id StmtID) *Statement { return n.stmts[id] }

// Expr returns the expression node stored at id.
func (n *Netlist) Expr(id ExprID) Expr { return n.exprs[id] }

// VarOf returns the declaration behind a var scope.
func (n *Netlist) VarOf(id VarScopeID) *Var {
	return n.vars[n.varScopes[id].Var]
}

// PrettyName is the hierarchical name of a var scope, for diagnostics.
func (n *Netlist) PrettyName(id VarScopeID) string {
	vs := n.varScopes[id]
	return n.scopes[vs.Scope].Name + "." + n.vars[vs.Var].Name
}

// NumExprs is the size of the expression arena, including dead nodes.
func (n *Netlist) NumExprs() int { return len(n.exprs) - 1 }
