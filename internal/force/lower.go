package force

import (
	"fmt"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

func pickRd(s *Shadow) ir.VarScopeID  { return s.Rd }
func pickEn(s *Shadow) ir.VarScopeID  { return s.En }
func pickVal(s *Shadow) ir.VarScopeID { return s.Val }

// retargetWrites points every written reference under root at the shadow
// signal pick selects for that reference's own signal, so lvalues that
// span several signals (concatenations) are handled per signal.
//
// The lvalue is duplicated for each generated assignment, so an index with
// side effects (say `force a[f(cnt)] = 1` where f has an output argument)
// ends up evaluated more than once.
func (c *Converter) retargetWrites(root ir.ExprID, pick func(*Shadow) ir.VarScopeID) {
	for _, site := range c.n.CollectRefs(root) {
		if site.Ref.Access != ir.Write {
			continue
		}
		c.n.ReplaceExpr(site.ID, ir.VarRef{
			VarScope: pick(c.Components(site.Ref.VarScope)),
			Access:   ir.Write,
		})
	}
}

// lowerForce replaces the force statement at pos with its plain
// assignments and returns how many statements now occupy its place.
func (c *Converter) lowerForce(list *[]ir.StmtID, pos int) int {
	n := c.n
	id, relinker := ir.Detach(list, pos)
	st := n.Stmt(id)
	f := st.Kind.(ir.AssignForce)
	n.Delete(id)
	c.stats.Forces++

	var out []ir.StmtID
	switch t := n.TypeOf(f.Lhs).(type) {
	case ir.UnpackedArrayType:
		for i := 0; i < t.Size; i++ {
			at := constIndex(i)
			lhs := at(n, n.CloneExpr(f.Lhs))
			rhs := at(n, n.CloneExpr(f.Rhs))
			out = append(out, c.forceElement(lhs, rhs, st.Loc)...)
		}
	case ir.ScalarType, ir.VectorType, ir.OpaqueType:
		out = c.forceElement(f.Lhs, f.Rhs, st.Loc)
	default:
		panic(fmt.Sprintf("force: unhandled dtype %T", t))
	}
	relinker.Relink(out...)
	return len(out)
}

// forceElement emits, in order, the enable set, the value store and the
// direct read-shadow update. The last one makes the forced value visible
// to reads later in the same process without waiting for the override
// logic.
func (c *Converter) forceElement(lhs, rhs ir.ExprID, loc ir.Loc) []ir.StmtID {
	n := c.n
	ones := ir.Ones(enableWidth(n.TypeOf(lhs)))

	setEn := ir.Assign{Lhs: n.CloneExpr(lhs), Rhs: n.NewConst(ones)}
	c.retargetWrites(setEn.Lhs, pickEn)

	setVal := ir.Assign{Lhs: n.CloneExpr(lhs), Rhs: n.CloneExpr(rhs)}
	c.retargetWrites(setVal.Lhs, pickVal)

	setRd := ir.Assign{Lhs: lhs, Rhs: rhs}
	c.retargetWrites(setRd.Lhs, pickRd)

	return []ir.StmtID{n.NewStmt(setEn, loc), n.NewStmt(setVal, loc), n.NewStmt(setRd, loc)}
}

// releaseTarget is one element addressed by a release. A target either
// covers the whole lvalue or exactly one unpacked array element; there is
// no way to ask a non-array target for an element count.
type releaseTarget interface {
	narrow(n *ir.Netlist, e ir.ExprID) ir.ExprID
}

type wholeSignal struct{}

func (wholeSignal) narrow(_ *ir.Netlist, e ir.ExprID) ir.ExprID { return e }

type arrayElement struct {
	index ir.ExprID // cloned on every use
}

func (a arrayElement) narrow(n *ir.Netlist, e ir.ExprID) ir.ExprID {
	return n.NewArraySel(e, n.CloneExpr(a.index))
}

// releaseTargets splits a release lvalue into the expression to narrow
// and the elements to narrow it to. `release a[i]` addresses only element
// i, `release a` of an N element array addresses all N.
func (c *Converter) releaseTargets(lhs ir.ExprID) (ir.ExprID, []releaseTarget) {
	n := c.n
	if sel, ok := n.Expr(lhs).(ir.ArraySel); ok {
		if _, isArray := n.TypeOf(sel.From).(ir.UnpackedArrayType); isArray {
			return sel.From, []releaseTarget{arrayElement{index: sel.Index}}
		}
	}
	switch t := n.TypeOf(lhs).(type) {
	case ir.UnpackedArrayType:
		targets := make([]releaseTarget, t.Size)
		for i := range targets {
			targets[i] = arrayElement{index: n.NewConst(ir.NewNumber(32, uint64(i)))}
		}
		return lhs, targets
	case ir.ScalarType, ir.VectorType, ir.OpaqueType:
		return lhs, []releaseTarget{wholeSignal{}}
	}
	panic(fmt.Sprintf("force: unhandled dtype %T", n.TypeOf(lhs)))
}

// lowerRelease replaces the release statement at pos. The read-shadow
// resets come first because they read the enable and value that the
// trailing enable clears reset.
func (c *Converter) lowerRelease(list *[]ir.StmtID, pos int) int {
	n := c.n
	id, relinker := ir.Detach(list, pos)
	st := n.Stmt(id)
	rel := st.Kind.(ir.Release)
	n.Delete(id)
	c.stats.Releases++

	nowarn := st.Loc.WarnOff(ir.WarnBlkAndNblk)
	base, targets := c.releaseTargets(rel.Lhs)

	var out []ir.StmtID
	for _, t := range targets {
		out = append(out, c.resetReadShadow(base, t, nowarn))
	}
	for _, t := range targets {
		lhs := t.narrow(n, n.CloneExpr(base))
		zero := ir.Zeros(enableWidth(n.TypeOf(lhs)))
		c.retargetWrites(lhs, pickEn)
		out = append(out, n.NewStmt(ir.Assign{Lhs: lhs, Rhs: n.NewConst(zero)}, st.Loc))
	}
	relinker.Relink(out...)
	return len(out)
}

// resetReadShadow builds the assignment that ends a force on one element
// (IEEE 1800-2017 10.6.2). A released net shows its driven value at once:
// its read shadow is reloaded from the true signal. A released variable
// keeps the forced value until its next procedural assignment: the true
// signal is loaded with what readers currently see.
func (c *Converter) resetReadShadow(base ir.ExprID, t releaseTarget, loc ir.Loc) ir.StmtID {
	n := c.n
	lhs := t.narrow(n, n.CloneExpr(base))
	rhs := t.narrow(n, n.CloneExpr(base))

	for _, site := range n.CollectRefs(lhs) {
		if site.Ref.Access != ir.Write {
			continue
		}
		if n.VarOf(site.Ref.VarScope).Kind == ir.Net {
			n.ReplaceExpr(site.ID, ir.VarRef{
				VarScope: c.Components(site.Ref.VarScope).Rd,
				Access:   ir.Write,
			})
		}
	}

	// rhs is a copy of the lvalue, so its signal references are writes.
	for _, site := range n.CollectRefs(rhs) {
		if site.Ref.Access != ir.Write {
			continue
		}
		switch n.VarOf(site.Ref.VarScope).Kind {
		case ir.Net:
			n.ReplaceExpr(site.ID, ir.VarRef{VarScope: site.Ref.VarScope, Access: ir.Read, Class: ir.Bypass})
		case ir.Variable:
			c.retainForced(site)
		}
	}
	return n.NewStmt(ir.Assign{Lhs: lhs, Rhs: rhs}, loc)
}

// retainForced replaces a reference to a released variable with the
// override expression evaluated once.
func (c *Converter) retainForced(site ir.RefSite) {
	n := c.n
	vs := site.Ref.VarScope
	s := c.Components(vs)
	switch t := n.VarOf(vs).Type.(type) {
	case ir.UnpackedArrayType:
		// An array reference in an lvalue is always the base of a select.
		parent, ok := n.Expr(site.Parent).(ir.ArraySel)
		if !ok || parent.From != site.ID {
			panic(fmt.Sprintf("force: unselected array %s in release", n.PrettyName(vs)))
		}
		value := c.override(vs, s, ir.IsRanged(t.Elem), exprIndex(parent.Index))
		n.ReplaceExpr(site.Parent, n.Expr(value))
	case ir.ScalarType, ir.VectorType, ir.OpaqueType:
		value := c.override(vs, s, ir.IsRanged(t), whole)
		n.ReplaceExpr(site.ID, n.Expr(value))
	default:
		panic(fmt.Sprintf("force: unhandled dtype %T", t))
	}
}
