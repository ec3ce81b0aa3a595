package lint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/force"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
	"github.com/robert-at-pretension-io/hdl-force/internal/netlist"
)

// mixed builds `q = d; q <= d;` in one always block. loc is used for the
// blocking assignment.
func mixed(loc ir.Loc) *ir.Netlist {
	n := ir.New()
	m := n.AddModule("m")
	s := n.AddScope(m, "TOP")
	q := n.AddVarScope(s, n.AddVar(ir.Var{Name: "q", Kind: ir.Variable, Type: ir.ScalarType{}, Module: m}))
	d := n.AddVarScope(s, n.AddVar(ir.Var{Name: "d", Kind: ir.Variable, Type: ir.ScalarType{}, Module: m}))
	n.AddBlock(s, ir.BlockAlways, "p",
		n.NewStmt(ir.Assign{Lhs: n.NewRef(q, ir.Write, ir.Rewritable), Rhs: n.NewRef(d, ir.Read, ir.Rewritable)}, loc),
		n.NewStmt(ir.AssignDly{Lhs: n.NewRef(q, ir.Write, ir.Rewritable), Rhs: n.NewRef(d, ir.Read, ir.Rewritable)}, ir.Loc{File: "m.sv", Line: 9}),
	)
	return n
}

func TestCheckBlockingMixWarns(t *testing.T) {
	sink := diag.NewCollector()
	found := CheckBlockingMix(mixed(ir.Loc{File: "m.sv", Line: 8}), sink)
	if found != 1 {
		t.Fatalf("found = %d, want 1", found)
	}
	all := sink.All()
	if len(all) != 1 {
		t.Fatalf("diagnostics = %v", all)
	}
	if all[0].Code != "BLKANDNBLK" || all[0].Line != 8 || !strings.Contains(all[0].Message, "'TOP.q'") {
		t.Fatalf("unexpected diagnostic %+v", all[0])
	}
}

func TestCheckBlockingMixHonorsSuppression(t *testing.T) {
	sink := diag.NewCollector()
	loc := ir.Loc{File: "m.sv", Line: 8}.WarnOff(ir.WarnBlkAndNblk)
	if found := CheckBlockingMix(mixed(loc), sink); found != 1 {
		t.Fatalf("found = %d, want 1", found)
	}
	if len(sink.All()) != 0 {
		t.Fatalf("suppressed statement reported: %v", sink.All())
	}
}

func TestCheckBlockingMixDisabledCode(t *testing.T) {
	sink := diag.NewCollector()
	sink.Disabled[ir.WarnBlkAndNblk] = true
	CheckBlockingMix(mixed(ir.Loc{File: "m.sv", Line: 8}), sink)
	if len(sink.All()) != 0 {
		t.Fatalf("disabled warning reported: %v", sink.All())
	}
}

// Releasing mem writes it with blocking assignments while mem[0] is
// assigned non-blocking. Lowering suppresses the warning on those writes.
func TestReleaseResetsAreSuppressed(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "netlists", "variable_array.json"))
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	n, err := netlist.Decode(data, "")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sink := diag.NewCollector()
	if _, err := force.ForceAll(n, sink, force.Options{}); err != nil {
		t.Fatalf("lower: %v", err)
	}

	if found := CheckBlockingMix(n, sink); found != 4 {
		t.Fatalf("found = %d, want one reset per element", found)
	}
	if got := sink.Count(diag.SeverityWarning); got != 0 {
		t.Fatalf("warnings = %v", sink.All())
	}
}

func TestCheckBlockingMixIgnoresPureNetlists(t *testing.T) {
	n := ir.New()
	m := n.AddModule("m")
	s := n.AddScope(m, "TOP")
	v := n.AddVarScope(s, n.AddVar(ir.Var{Name: "v", Kind: ir.Variable, Type: ir.ScalarType{}, Module: m}))
	n.AddBlock(s, ir.BlockAlways, "p",
		n.NewStmt(ir.Assign{Lhs: n.NewRef(v, ir.Write, ir.Rewritable), Rhs: n.NewConst(ir.NewNumber(1, 1))}, ir.Loc{}),
	)
	if found := CheckBlockingMix(n, diag.NewCollector()); found != 0 {
		t.Fatalf("found = %d, want 0", found)
	}
}
