package ir

import "fmt"

// Expr is an expression node. Children are referenced by handle, so a
// node can be replaced in place without touching its parent.
type Expr interface {
	exprKind()
}

// Access is how a reference uses its signal.
type Access uint8

const (
	Read Access = iota
	Write
	ReadWrite
)

func (a Access) String() string {
	switch a {
	case Read:
		return "read"
	case Write:
		return "write"
	case ReadWrite:
		return "readwrite"
	}
	return fmt.Sprintf("Access(%d)", uint8(a))
}

// RefClass says whether a read may be redirected by later passes.
type RefClass uint8

const (
	// Rewritable references follow the signal wherever it is rerouted.
	Rewritable RefClass = iota
	// Bypass references always observe the true signal.
	Bypass
)

// VarRef references a signal in a particular scope.
type VarRef struct {
	VarScope VarScopeID
	Access   Access
	Class    RefClass
}

func (VarRef) exprKind() {}

// Const is a sized literal.
type Const struct {
	Value Number
}

func (Const) exprKind() {}

// ArraySel selects one element of an unpacked array, or one bit of a
// vector.
type ArraySel struct {
	From  ExprID
	Index ExprID
}

func (ArraySel) exprKind() {}

// Sel selects bits [LSB+Width-1:LSB].
type Sel struct {
	From  ExprID
	LSB   int
	Width int
}

func (Sel) exprKind() {}

// Concat is {Hi, Lo}.
type Concat struct {
	Hi ExprID
	Lo ExprID
}

func (Concat) exprKind() {}

// And is a bitwise and.
type And struct {
	L ExprID
	R ExprID
}

func (And) exprKind() {}

// Or is a bitwise or.
type Or struct {
	L ExprID
	R ExprID
}

func (Or) exprKind() {}

// Not is a bitwise complement.
type Not struct {
	Operand ExprID
}

func (Not) exprKind() {}

// Cond is Cond ? Then : Else.
type Cond struct {
	Cond ExprID
	Then ExprID
	Else ExprID
}

func (Cond) exprKind() {}

// Children returns the operand handles of e in evaluation order.
func Children(e Expr) []ExprID {
	switch e := e.(type) {
	case VarRef, Const:
		return nil
	case ArraySel:
		return []ExprID{e.From, e.Index}
	case Sel:
		return []ExprID{e.From}
	case Concat:
		return []ExprID{e.Hi, e.Lo}
	case And:
		return []ExprID{e.L, e.R}
	case Or:
		return []ExprID{e.L, e.R}
	case Not:
		return []ExprID{e.Operand}
	case Cond:
		return []ExprID{e.Cond, e.Then, e.Else}
	}
	panic(fmt.Sprintf("ir: unhandled expression %T", e))
}

// TypeOf computes the data type of the expression at id.
func (n *Netlist) TypeOf(id ExprID) DType {
	switch e := n.exprs[id].(type) {
	case VarRef:
		return n.VarOf(e.VarScope).Type
	case Const:
		return VectorType{Width: e.Value.Width}
	case ArraySel:
		if arr, ok := n.TypeOf(e.From).(UnpackedArrayType); ok {
			return arr.Elem
		}
		return ScalarType{}
	case Sel:
		return VectorType{Width: e.Width}
	case Concat:
		return VectorType{Width: Width(n.TypeOf(e.Hi)) + Width(n.TypeOf(e.Lo))}
	case And:
		return n.TypeOf(e.L)
	case Or:
		return n.TypeOf(e.L)
	case Not:
		return n.TypeOf(e.Operand)
	case Cond:
		return n.TypeOf(e.Then)
	}
	panic(fmt.Sprintf("ir: unhandled expression %T", n.exprs[id]))
}
