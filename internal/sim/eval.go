package sim

import (
	"fmt"
	"math/big"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Eval computes the value of the expression at id, truncated to its width.
// Reads through an out-of-range index yield zero.
func (s *Sim) Eval(id ir.ExprID) *big.Int {
	n := s.n
	switch e := n.Expr(id).(type) {
	case ir.VarRef:
		return s.Value(e.VarScope)
	case ir.Const:
		if e.Value.Value == nil {
			return new(big.Int)
		}
		return new(big.Int).Set(e.Value.Value)
	case ir.ArraySel:
		from := s.Eval(e.From)
		w := selWidth(n.TypeOf(e.From))
		i, ok := s.index(e.Index, n.TypeOf(e.From))
		if !ok {
			return new(big.Int)
		}
		return extract(from, i*w, w)
	case ir.Sel:
		return extract(s.Eval(e.From), e.LSB, e.Width)
	case ir.Concat:
		lo := ir.Width(n.TypeOf(e.Lo))
		out := new(big.Int).Lsh(s.Eval(e.Hi), uint(lo))
		return out.Or(out, s.Eval(e.Lo))
	case ir.And:
		return new(big.Int).And(s.Eval(e.L), s.Eval(e.R))
	case ir.Or:
		return new(big.Int).Or(s.Eval(e.L), s.Eval(e.R))
	case ir.Not:
		w := ir.Width(n.TypeOf(e.Operand))
		return new(big.Int).Xor(s.Eval(e.Operand), ir.Mask(w))
	case ir.Cond:
		if s.Eval(e.Cond).Sign() != 0 {
			return s.Eval(e.Then)
		}
		return s.Eval(e.Else)
	}
	panic(fmt.Sprintf("sim: unhandled expression %T", n.Expr(id)))
}

// selWidth is the width of one selectable unit of t: an element for
// unpacked arrays, a bit otherwise.
func selWidth(t ir.DType) int {
	if a, ok := t.(ir.UnpackedArrayType); ok {
		return ir.Width(a.Elem)
	}
	return 1
}

func (s *Sim) index(id ir.ExprID, from ir.DType) (int, bool) {
	v := s.Eval(id)
	limit := ir.Width(from)
	if a, ok := from.(ir.UnpackedArrayType); ok {
		limit = a.Size
	}
	if !v.IsInt64() || v.Int64() >= int64(limit) {
		return 0, false
	}
	return int(v.Int64()), true
}

// write stores value into the lvalue at id. Writes through an
// out-of-range index are dropped.
func (s *Sim) write(id ir.ExprID, value *big.Int) {
	n := s.n
	if c, ok := n.Expr(id).(ir.Concat); ok {
		lo := ir.Width(n.TypeOf(c.Lo))
		hi := ir.Width(n.TypeOf(c.Hi))
		s.write(c.Lo, extract(value, 0, lo))
		s.write(c.Hi, extract(value, lo, hi))
		return
	}
	vs, off, width, ok := s.locate(id)
	if !ok {
		return
	}
	s.deposit(vs, off, width, value)
}

// locate resolves a non-concatenated lvalue to a bit range of one signal.
func (s *Sim) locate(id ir.ExprID) (ir.VarScopeID, int, int, bool) {
	n := s.n
	switch e := n.Expr(id).(type) {
	case ir.VarRef:
		return e.VarScope, 0, ir.Width(n.TypeOf(id)), true
	case ir.ArraySel:
		vs, off, _, ok := s.locate(e.From)
		if !ok {
			return 0, 0, 0, false
		}
		i, ok := s.index(e.Index, n.TypeOf(e.From))
		if !ok {
			return 0, 0, 0, false
		}
		w := selWidth(n.TypeOf(e.From))
		return vs, off + i*w, w, true
	case ir.Sel:
		vs, off, _, ok := s.locate(e.From)
		return vs, off + e.LSB, e.Width, ok
	}
	panic(fmt.Sprintf("sim: %T is not an lvalue", n.Expr(id)))
}

func (s *Sim) deposit(vs ir.VarScopeID, off, width int, value *big.Int) {
	cur := s.storage(vs)
	hole := new(big.Int).Lsh(ir.Mask(width), uint(off))
	cur.AndNot(cur, hole)
	bits := new(big.Int).Lsh(ir.Truncate(new(big.Int).Set(value), width), uint(off))
	cur.Or(cur, bits)
}
