package ir

import "fmt"

// Statement is a statement node with its source location.
type Statement struct {
	Kind StatementKind
	Loc  Loc

	// Deleted is set once the statement has been detached for good.
	Deleted bool
}

// StatementKind represents the different kinds of statements.
type StatementKind interface {
	statementKind()
}

// Assign is a blocking procedural assignment.
type Assign struct {
	Lhs ExprID
	Rhs ExprID
}

func (Assign) statementKind() {}

// AssignDly is a non-blocking procedural assignment.
type AssignDly struct {
	Lhs ExprID
	Rhs ExprID
}

func (AssignDly) statementKind() {}

// AssignW is a continuous assignment.
type AssignW struct {
	Lhs ExprID
	Rhs ExprID
}

func (AssignW) statementKind() {}

// AssignForce is `force Lhs = Rhs`.
type AssignForce struct {
	Lhs ExprID
	Rhs ExprID
}

func (AssignForce) statementKind() {}

// Release is `release Lhs`.
type Release struct {
	Lhs ExprID
}

func (Release) statementKind() {}

// If holds nested statement lists, so it is stored by pointer and its
// branches can be edited in place.
type If struct {
	Cond ExprID
	Then []StmtID
	Else []StmtID
}

func (*If) statementKind() {}

// StmtExprs returns the expression roots owned by a statement, lvalue
// first.
func StmtExprs(k StatementKind) []ExprID {
	switch k := k.(type) {
	case Assign:
		return []ExprID{k.Lhs, k.Rhs}
	case AssignDly:
		return []ExprID{k.Lhs, k.Rhs}
	case AssignW:
		return []ExprID{k.Lhs, k.Rhs}
	case AssignForce:
		return []ExprID{k.Lhs, k.Rhs}
	case Release:
		return []ExprID{k.Lhs}
	case *If:
		return []ExprID{k.Cond}
	}
	panic(fmt.Sprintf("ir: unhandled statement %T", k))
}

// StmtKindName is the short name used in dumps and fact tables.
func StmtKindName(k StatementKind) string {
	switch k.(type) {
	case Assign:
		return "assign"
	case AssignDly:
		return "assigndly"
	case AssignW:
		return "assignw"
	case AssignForce:
		return "force"
	case Release:
		return "release"
	case *If:
		return "if"
	}
	return fmt.Sprintf("%T", k)
}
