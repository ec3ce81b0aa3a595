package netlist

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Encode renders n as an indented document.
func Encode(n *ir.Netlist, source string) ([]byte, error) {
	data, err := json.MarshalIndent(FromIR(n, source), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "netlist: encode")
	}
	return append(data, '\n'), nil
}

// FromIR converts n into its document form. Locations in source are
// written without a file name.
func FromIR(n *ir.Netlist, source string) *File {
	e := &encoder{n: n, source: source}
	f := &File{
		FormatVersion: CurrentVersion,
		Source:        source,
		ForceLowered:  n.ForceLowered,
		Modules:       []Module{},
	}
	for _, mid := range n.Modules {
		f.Modules = append(f.Modules, e.module(mid))
	}
	return f
}

type encoder struct {
	n      *ir.Netlist
	source string
}

func (e *encoder) file(loc ir.Loc) string {
	if loc.File == e.source {
		return ""
	}
	return loc.File
}

func (e *encoder) module(mid ir.ModuleID) Module {
	m := e.n.Module(mid)
	out := Module{Name: m.Name, Vars: []Var{}, Scopes: []Scope{}}
	for _, id := range m.Vars {
		v := e.n.Var(id)
		out.Vars = append(out.Vars, Var{
			Name:      v.Name,
			Kind:      v.Kind.String(),
			Type:      typeOf(v.Type),
			Forceable: v.Forceable,
			PrimaryIO: v.PrimaryIO,
			Public:    v.Public,
			File:      e.file(v.Loc),
			Line:      v.Loc.Line,
		})
	}
	for _, sid := range m.Scopes {
		out.Scopes = append(out.Scopes, e.scope(sid))
	}
	return out
}

func (e *encoder) scope(sid ir.ScopeID) Scope {
	sc := e.n.Scope(sid)
	out := Scope{Name: sc.Name, Vars: []string{}}
	for _, vs := range sc.VarScopes {
		out.Vars = append(out.Vars, e.n.VarOf(vs).Name)
	}
	for _, bid := range sc.Blocks {
		blk := e.n.Block(bid)
		out.Blocks = append(out.Blocks, Block{
			Kind:  blk.Kind.String(),
			Name:  blk.Name,
			Stmts: e.stmts(sid, blk.Stmts),
		})
	}
	return out
}

func (e *encoder) stmts(sid ir.ScopeID, ids []ir.StmtID) []Stmt {
	out := []Stmt{}
	for _, id := range ids {
		st := e.n.Stmt(id)
		if st.Deleted {
			continue
		}
		out = append(out, e.stmt(sid, st))
	}
	return out
}

func (e *encoder) stmt(sid ir.ScopeID, st *ir.Statement) Stmt {
	out := Stmt{
		Kind: ir.StmtKindName(st.Kind),
		File: e.file(st.Loc),
		Line: st.Loc.Line,
	}
	for _, code := range st.Loc.Suppressions() {
		out.NoWarn = append(out.NoWarn, code.String())
	}
	switch k := st.Kind.(type) {
	case *ir.If:
		out.Cond = e.expr(sid, k.Cond)
		out.Then = e.stmts(sid, k.Then)
		out.Else = e.stmts(sid, k.Else)
	case ir.Release:
		out.Lhs = e.expr(sid, k.Lhs)
	default:
		roots := ir.StmtExprs(k)
		out.Lhs = e.expr(sid, roots[0])
		out.Rhs = e.expr(sid, roots[1])
	}
	return out
}

func (e *encoder) expr(sid ir.ScopeID, id ir.ExprID) *Expr {
	n := e.n
	switch x := n.Expr(id).(type) {
	case ir.VarRef:
		out := &Expr{
			Op:     "ref",
			Var:    n.VarOf(x.VarScope).Name,
			Access: x.Access.String(),
			Bypass: x.Class == ir.Bypass,
		}
		if other := n.VarScope(x.VarScope).Scope; other != sid {
			out.Scope = n.Scope(other).Name
		}
		return out
	case ir.Const:
		value := "0"
		if x.Value.Value != nil {
			value = x.Value.Value.Text(16)
		}
		return &Expr{Op: "const", Width: x.Value.Width, Value: value}
	case ir.ArraySel:
		return &Expr{Op: "arraysel", From: e.expr(sid, x.From), Index: e.expr(sid, x.Index)}
	case ir.Sel:
		return &Expr{Op: "sel", From: e.expr(sid, x.From), LSB: x.LSB, Width: x.Width}
	case ir.Concat:
		return &Expr{Op: "concat", Hi: e.expr(sid, x.Hi), Lo: e.expr(sid, x.Lo)}
	case ir.And:
		return &Expr{Op: "and", L: e.expr(sid, x.L), R: e.expr(sid, x.R)}
	case ir.Or:
		return &Expr{Op: "or", L: e.expr(sid, x.L), R: e.expr(sid, x.R)}
	case ir.Not:
		return &Expr{Op: "not", Operand: e.expr(sid, x.Operand)}
	case ir.Cond:
		return &Expr{Op: "cond", Cond: e.expr(sid, x.Cond), Then: e.expr(sid, x.Then), Else: e.expr(sid, x.Else)}
	}
	panic(fmt.Sprintf("netlist: unhandled expression %T", n.Expr(id)))
}

func typeOf(t ir.DType) Type {
	switch t := t.(type) {
	case ir.ScalarType:
		return Type{Kind: "scalar"}
	case ir.VectorType:
		return Type{Kind: "vector", Width: t.Width}
	case ir.UnpackedArrayType:
		elem := typeOf(t.Elem)
		return Type{Kind: "array", Size: t.Size, Elem: &elem}
	case ir.OpaqueType:
		return Type{Kind: "opaque", Name: t.Name, Width: t.Width}
	}
	panic(fmt.Sprintf("netlist: unhandled dtype %T", t))
}
