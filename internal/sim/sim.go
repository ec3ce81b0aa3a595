// Package sim is a small two-state evaluator for ir netlists.
//
// Every var scope owns one flat bit string; unpacked array element i of
// width w lives at bits [i*w, (i+1)*w). Combinational blocks are
// re-evaluated until nothing changes. There is no notion of time:
// callers decide which procedural blocks run and in what order.
package sim

import (
	"fmt"
	"math/big"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// DefaultMaxIterations bounds Settle.
const DefaultMaxIterations = 64

// Sim holds the state of one netlist.
type Sim struct {
	// MaxIterations bounds the combinational fixpoint in Settle.
	MaxIterations int

	n    *ir.Netlist
	vals map[ir.VarScopeID]*big.Int
}

// New returns a simulator with every signal at zero.
func New(n *ir.Netlist) *Sim {
	return &Sim{
		MaxIterations: DefaultMaxIterations,
		n:             n,
		vals:          make(map[ir.VarScopeID]*big.Int),
	}
}

func (s *Sim) storage(vs ir.VarScopeID) *big.Int {
	v, ok := s.vals[vs]
	if !ok {
		v = new(big.Int)
		s.vals[vs] = v
	}
	return v
}

// Value returns a copy of the whole storage of vs.
func (s *Sim) Value(vs ir.VarScopeID) *big.Int {
	return new(big.Int).Set(s.storage(vs))
}

// Get returns the low 64 bits of vs.
func (s *Sim) Get(vs ir.VarScopeID) uint64 {
	return s.storage(vs).Uint64()
}

// GetElem returns element i of an unpacked array.
func (s *Sim) GetElem(vs ir.VarScopeID, i int) uint64 {
	w := selWidth(s.n.VarOf(vs).Type)
	return extract(s.storage(vs), i*w, w).Uint64()
}

// Set overwrites vs, truncated to its width.
func (s *Sim) Set(vs ir.VarScopeID, v uint64) {
	w := ir.Width(s.n.VarOf(vs).Type)
	s.vals[vs] = ir.Truncate(new(big.Int).SetUint64(v), w)
}

// SetElem overwrites element i of an unpacked array.
func (s *Sim) SetElem(vs ir.VarScopeID, i int, v uint64) {
	w := selWidth(s.n.VarOf(vs).Type)
	s.deposit(vs, i*w, w, new(big.Int).SetUint64(v))
}

// Initialize runs every initial block once, then settles.
func (s *Sim) Initialize() error {
	for _, bid := range s.blocks(ir.BlockInitial) {
		if err := s.Exec(bid); err != nil {
			return err
		}
	}
	return s.Settle()
}

// Run executes one procedural block, then settles.
func (s *Sim) Run(bid ir.BlockID) error {
	if err := s.Exec(bid); err != nil {
		return err
	}
	return s.Settle()
}

// Settle re-evaluates combinational blocks until no signal changes.
func (s *Sim) Settle() error {
	combos := s.blocks(ir.BlockCombo)
	for iter := 0; iter < s.MaxIterations; iter++ {
		before := s.snapshot()
		for _, bid := range combos {
			if err := s.Exec(bid); err != nil {
				return err
			}
		}
		if s.equal(before) {
			return nil
		}
	}
	return fmt.Errorf("sim: combinational logic did not settle after %d iterations", s.MaxIterations)
}

// Exec runs the statements of one block. Non-blocking assignments take
// effect when the block finishes.
func (s *Sim) Exec(bid ir.BlockID) error {
	var nba []pending
	if err := s.execList(s.n.Block(bid).Stmts, &nba); err != nil {
		return err
	}
	for _, p := range nba {
		s.write(p.lhs, p.value)
	}
	return nil
}

type pending struct {
	lhs   ir.ExprID
	value *big.Int
}

func (s *Sim) execList(list []ir.StmtID, nba *[]pending) error {
	for _, id := range list {
		st := s.n.Stmt(id)
		if st.Deleted {
			continue
		}
		switch k := st.Kind.(type) {
		case ir.Assign:
			s.write(k.Lhs, s.Eval(k.Rhs))
		case ir.AssignW:
			s.write(k.Lhs, s.Eval(k.Rhs))
		case ir.AssignDly:
			*nba = append(*nba, pending{lhs: k.Lhs, value: s.Eval(k.Rhs)})
		case *ir.If:
			branch := k.Else
			if s.Eval(k.Cond).Sign() != 0 {
				branch = k.Then
			}
			if err := s.execList(branch, nba); err != nil {
				return err
			}
		case ir.AssignForce, ir.Release:
			return fmt.Errorf("sim: %s at %s must be lowered first", ir.StmtKindName(k), st.Loc)
		default:
			return fmt.Errorf("sim: unhandled statement %T", k)
		}
	}
	return nil
}

func (s *Sim) blocks(kind ir.BlockKind) []ir.BlockID {
	var out []ir.BlockID
	for _, mid := range s.n.Modules {
		for _, sid := range s.n.Module(mid).Scopes {
			for _, bid := range s.n.Scope(sid).Blocks {
				if s.n.Block(bid).Kind == kind {
					out = append(out, bid)
				}
			}
		}
	}
	return out
}

func (s *Sim) snapshot() map[ir.VarScopeID]*big.Int {
	out := make(map[ir.VarScopeID]*big.Int, len(s.vals))
	for vs, v := range s.vals {
		out[vs] = new(big.Int).Set(v)
	}
	return out
}

func (s *Sim) equal(before map[ir.VarScopeID]*big.Int) bool {
	for vs, v := range s.vals {
		old, ok := before[vs]
		if !ok {
			if v.Sign() != 0 {
				return false
			}
			continue
		}
		if old.Cmp(v) != 0 {
			return false
		}
	}
	return true
}

func extract(v *big.Int, off, width int) *big.Int {
	out := new(big.Int).Rsh(v, uint(off))
	return ir.Truncate(out, width)
}
