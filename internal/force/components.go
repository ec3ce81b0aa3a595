package force

import (
	"fmt"
	"strings"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Name suffixes of the shadow signals.
const (
	SuffixRd  = "__VforceRd"
	SuffixEn  = "__VforceEn"
	SuffixVal = "__VforceVal"
)

// Role is the part a shadow signal plays for its forced signal.
type Role string

const (
	RoleNone Role = ""
	RoleRd   Role = "rd"
	RoleEn   Role = "en"
	RoleVal  Role = "val"
)

// ShadowRole splits a shadow signal name into the forced signal's name and
// the shadow's role. Ordinary names return RoleNone.
func ShadowRole(name string) (string, Role) {
	switch {
	case strings.HasSuffix(name, SuffixRd):
		return strings.TrimSuffix(name, SuffixRd), RoleRd
	case strings.HasSuffix(name, SuffixEn):
		return strings.TrimSuffix(name, SuffixEn), RoleEn
	case strings.HasSuffix(name, SuffixVal):
		return strings.TrimSuffix(name, SuffixVal), RoleVal
	}
	return name, RoleNone
}

// shadowVars are the declarations backing a forced signal.
type shadowVars struct {
	rd  ir.VarID // net read by everything that used to read the signal
	en  ir.VarID // per-bit or per-element force enable
	val ir.VarID // forced value
}

// Shadow is the per-scope storage of a forced signal.
type Shadow struct {
	Rd  ir.VarScopeID
	En  ir.VarScopeID
	Val ir.VarScopeID
}

// EnableType is the type of the enable mask for a signal of type t: one
// bit per independently forceable bit or element.
func EnableType(t ir.DType) ir.DType {
	switch t := t.(type) {
	case ir.VectorType:
		return t
	case ir.UnpackedArrayType:
		return ir.UnpackedArrayType{Elem: EnableType(t.Elem), Size: t.Size}
	case ir.ScalarType, ir.OpaqueType:
		return ir.ScalarType{}
	}
	panic(fmt.Sprintf("force: unhandled dtype %T", t))
}

// enableWidth is the width of the enable slice covering a value of type t.
func enableWidth(t ir.DType) int {
	return ir.Width(EnableType(t))
}

func (c *Converter) declComponents(id ir.VarID) *shadowVars {
	if sv, ok := c.vars[id]; ok {
		return sv
	}
	v := c.n.Var(id)
	sv := &shadowVars{
		rd: c.n.NewVar(ir.Var{
			Name: v.Name + SuffixRd, Kind: ir.Net, Type: v.Type, Module: v.Module, Loc: v.Loc,
		}),
		en: c.n.NewVar(ir.Var{
			Name: v.Name + SuffixEn, Kind: ir.Variable, Type: EnableType(v.Type), Module: v.Module, Loc: v.Loc,
		}),
		val: c.n.NewVar(ir.Var{
			Name: v.Name + SuffixVal, Kind: ir.Variable, Type: v.Type, Module: v.Module, Loc: v.Loc,
		}),
	}
	c.n.InsertVarsAfter(id, sv.rd, sv.en, sv.val)
	c.vars[id] = sv
	c.stats.Signals++

	if v.PrimaryIO {
		c.sink.Unsupported(v.Loc,
			fmt.Sprintf("Force/Release on primary input/output net '%s'", v.Name),
			"... Suggest assign it to/from a temporary net and force/release that")
	}
	return sv
}

// Components returns the shadow storage of vs, creating it together with
// its init and override logic on first use.
func (c *Converter) Components(vs ir.VarScopeID) *Shadow {
	if s, ok := c.scopes[vs]; ok {
		return s
	}
	binding := c.n.VarScope(vs)
	sv := c.declComponents(binding.Var)
	s := &Shadow{
		Rd:  c.n.NewVarScope(binding.Scope, sv.rd),
		En:  c.n.NewVarScope(binding.Scope, sv.en),
		Val: c.n.NewVarScope(binding.Scope, sv.val),
	}
	c.n.InsertVarScopesAfter(vs, s.Rd, s.En, s.Val)
	c.scopes[vs] = s
	c.stats.Shadows++

	c.addInit(vs, s)
	c.addOverride(vs, s)
	return s
}

// Lookup returns the shadow storage of vs if it exists.
func (c *Converter) Lookup(vs ir.VarScopeID) (*Shadow, bool) {
	s, ok := c.scopes[vs]
	return s, ok
}

// addInit clears the enable once at simulation start. Arrays are cleared
// element by element.
func (c *Converter) addInit(vs ir.VarScopeID, s *Shadow) {
	n := c.n
	loc := n.VarOf(vs).Loc
	var stmts []ir.StmtID
	switch t := n.VarOf(s.En).Type.(type) {
	case ir.UnpackedArrayType:
		for i := 0; i < t.Size; i++ {
			lhs := n.NewIndex(n.NewRef(s.En, ir.Write, ir.Rewritable), i)
			rhs := n.NewConst(ir.Zeros(ir.Width(t.Elem)))
			stmts = append(stmts, n.NewStmt(ir.Assign{Lhs: lhs, Rhs: rhs}, loc))
		}
	case ir.ScalarType, ir.VectorType, ir.OpaqueType:
		lhs := n.NewRef(s.En, ir.Write, ir.Rewritable)
		rhs := n.NewConst(ir.Zeros(ir.Width(t)))
		stmts = append(stmts, n.NewStmt(ir.Assign{Lhs: lhs, Rhs: rhs}, loc))
	default:
		panic(fmt.Sprintf("force: unhandled dtype %T", t))
	}
	n.AddBlock(n.VarScope(vs).Scope, ir.BlockInitial, "force-init", stmts...)
}

// addOverride drives the read shadow from the enable, the forced value
// and the true signal.
func (c *Converter) addOverride(vs ir.VarScopeID, s *Shadow) {
	n := c.n
	loc := n.VarOf(vs).Loc
	var stmts []ir.StmtID
	switch t := n.VarOf(vs).Type.(type) {
	case ir.UnpackedArrayType:
		ranged := ir.IsRanged(t.Elem)
		for i := 0; i < t.Size; i++ {
			at := constIndex(i)
			lhs := at(n, n.NewRef(s.Rd, ir.Write, ir.Rewritable))
			stmts = append(stmts, n.NewStmt(ir.AssignW{Lhs: lhs, Rhs: c.override(vs, s, ranged, at)}, loc))
		}
	case ir.ScalarType, ir.VectorType, ir.OpaqueType:
		lhs := n.NewRef(s.Rd, ir.Write, ir.Rewritable)
		rhs := c.override(vs, s, ir.IsRanged(t), whole)
		stmts = append(stmts, n.NewStmt(ir.AssignW{Lhs: lhs, Rhs: rhs}, loc))
	default:
		panic(fmt.Sprintf("force: unhandled dtype %T", t))
	}
	n.AddBlock(n.VarScope(vs).Scope, ir.BlockCombo, "force-comb", stmts...)
}

// selector narrows a freshly built reference to the addressed element.
type selector func(n *ir.Netlist, e ir.ExprID) ir.ExprID

func whole(_ *ir.Netlist, e ir.ExprID) ir.ExprID { return e }

func constIndex(i int) selector {
	return func(n *ir.Netlist, e ir.ExprID) ir.ExprID { return n.NewIndex(e, i) }
}

func exprIndex(index ir.ExprID) selector {
	return func(n *ir.Netlist, e ir.ExprID) ir.ExprID {
		return n.NewArraySel(e, n.CloneExpr(index))
	}
}

// override builds `en ? val : orig` for non-ranged values and
// `(en & val) | (~en & orig)` for ranged ones. The read of orig is a
// bypass reference.
func (c *Converter) override(orig ir.VarScopeID, s *Shadow, ranged bool, at selector) ir.ExprID {
	n := c.n
	en := func() ir.ExprID { return at(n, n.NewRef(s.En, ir.Read, ir.Rewritable)) }
	val := at(n, n.NewRef(s.Val, ir.Read, ir.Rewritable))
	trueValue := at(n, n.NewRef(orig, ir.Read, ir.Bypass))
	if ranged {
		return n.NewExpr(ir.Or{
			L: n.NewExpr(ir.And{L: en(), R: val}),
			R: n.NewExpr(ir.And{L: n.NewExpr(ir.Not{Operand: en()}), R: trueValue}),
		})
	}
	return n.NewExpr(ir.Cond{Cond: en(), Then: val, Else: trueValue})
}
