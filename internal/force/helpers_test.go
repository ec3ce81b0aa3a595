package force

import (
	"testing"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
	"github.com/robert-at-pretension-io/hdl-force/internal/sim"
)

// design builds a one-module netlist with a single top scope.
type design struct {
	t    *testing.T
	n    *ir.Netlist
	mod  ir.ModuleID
	top  ir.ScopeID
	line int
}

func newDesign(t *testing.T) *design {
	t.Helper()
	n := ir.New()
	mod := n.AddModule("top")
	return &design{t: t, n: n, mod: mod, top: n.AddScope(mod, "TOP")}
}

func (d *design) loc() ir.Loc {
	d.line++
	return ir.Loc{File: "top.sv", Line: d.line}
}

func (d *design) declare(v ir.Var) ir.VarScopeID {
	v.Module = d.mod
	v.Loc = d.loc()
	return d.n.AddVarScope(d.top, d.n.AddVar(v))
}

func (d *design) net(name string, t ir.DType) ir.VarScopeID {
	return d.declare(ir.Var{Name: name, Kind: ir.Net, Type: t})
}

func (d *design) variable(name string, t ir.DType) ir.VarScopeID {
	return d.declare(ir.Var{Name: name, Kind: ir.Variable, Type: t})
}

func (d *design) rd(vs ir.VarScopeID) ir.ExprID { return d.n.NewRef(vs, ir.Read, ir.Rewritable) }
func (d *design) wr(vs ir.VarScopeID) ir.ExprID { return d.n.NewRef(vs, ir.Write, ir.Rewritable) }

func (d *design) num(width int, v uint64) ir.ExprID {
	return d.n.NewConst(ir.NewNumber(width, v))
}

func (d *design) elem(from ir.ExprID, i int) ir.ExprID { return d.n.NewIndex(from, i) }

func (d *design) bits(from ir.ExprID, lsb, width int) ir.ExprID {
	return d.n.NewExpr(ir.Sel{From: from, LSB: lsb, Width: width})
}

func (d *design) stmt(k ir.StatementKind) ir.StmtID { return d.n.NewStmt(k, d.loc()) }

func (d *design) block(kind ir.BlockKind, name string, stmts ...ir.StatementKind) ir.BlockID {
	ids := make([]ir.StmtID, len(stmts))
	for i, k := range stmts {
		ids[i] = d.stmt(k)
	}
	return d.n.AddBlock(d.top, kind, name, ids...)
}

// shadow returns the var scope named name+suffix in the top scope.
func (d *design) shadow(name, suffix string) ir.VarScopeID {
	d.t.Helper()
	vs, ok := d.n.LookupVarScope(d.top, name+suffix)
	if !ok {
		d.t.Fatalf("no %s%s in scope %s", name, suffix, d.n.Scope(d.top).Name)
	}
	return vs
}

func (d *design) lower() (Stats, *diag.Collector) {
	d.t.Helper()
	sink := diag.NewCollector()
	stats, err := ForceAll(d.n, sink, Options{})
	if err != nil {
		d.t.Fatalf("ForceAll: %v", err)
	}
	return stats, sink
}

func (d *design) simulate() *sim.Sim {
	d.t.Helper()
	s := sim.New(d.n)
	if err := s.Initialize(); err != nil {
		d.t.Fatalf("initialize: %v", err)
	}
	return s
}

func run(t *testing.T, s *sim.Sim, b ir.BlockID) {
	t.Helper()
	if err := s.Run(b); err != nil {
		t.Fatalf("run block %d: %v", b, err)
	}
}

func vec(w int) ir.DType { return ir.VectorType{Width: w} }

func blockStmts(n *ir.Netlist, b ir.BlockID) []*ir.Statement {
	var out []*ir.Statement
	for _, id := range n.Block(b).Stmts {
		out = append(out, n.Stmt(id))
	}
	return out
}

func varNames(n *ir.Netlist, m ir.ModuleID) []string {
	var out []string
	for _, id := range n.Module(m).Vars {
		out = append(out, n.Var(id).Name)
	}
	return out
}

func varScopeNames(n *ir.Netlist, s ir.ScopeID) []string {
	var out []string
	for _, id := range n.Scope(s).VarScopes {
		out = append(out, n.VarOf(id).Name)
	}
	return out
}

func countBlocks(n *ir.Netlist, s ir.ScopeID, name string) int {
	total := 0
	for _, b := range n.Scope(s).Blocks {
		if n.Block(b).Name == name {
			total++
		}
	}
	return total
}
