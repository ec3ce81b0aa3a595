package force

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

func TestForceAllSkipsNetlistWithoutForceableSignals(t *testing.T) {
	d := newDesign(t)
	a := d.variable("a", vec(8))
	y := d.net("y", vec(8))
	d.block(ir.BlockCombo, "comb", ir.AssignW{Lhs: d.wr(y), Rhs: d.rd(a)})

	dumps := 0
	stats, err := ForceAll(d.n, diag.NewCollector(), Options{
		Dump: func(string, *ir.Netlist) { dumps++ },
	})
	if err != nil {
		t.Fatalf("ForceAll: %v", err)
	}
	if stats != (Stats{}) {
		t.Fatalf("expected no work, got %+v", stats)
	}
	if dumps != 0 {
		t.Fatalf("expected no dump for a skipped pass, got %d", dumps)
	}
	if got := varNames(d.n, d.mod); !slices.Equal(got, []string{"a", "y"}) {
		t.Fatalf("declarations changed: %v", got)
	}
}

func TestForceAllRunsOnce(t *testing.T) {
	d := newDesign(t)
	x := d.net("x", vec(4))
	d.block(ir.BlockAlways, "p", ir.AssignForce{Lhs: d.wr(x), Rhs: d.num(4, 3)})

	var stages []string
	_, err := ForceAll(d.n, diag.NewCollector(), Options{
		Dump: func(stage string, _ *ir.Netlist) { stages = append(stages, stage) },
	})
	if err != nil {
		t.Fatalf("ForceAll: %v", err)
	}
	if !slices.Equal(stages, []string{"force"}) {
		t.Fatalf("expected one dump at stage force, got %v", stages)
	}
	if !d.n.ForceLowered {
		t.Fatalf("expected netlist to be marked lowered")
	}

	if _, err := ForceAll(d.n, diag.NewCollector(), Options{}); !errors.Is(err, ErrAlreadyLowered) {
		t.Fatalf("expected ErrAlreadyLowered, got %v", err)
	}
}

func TestNoForceOrReleaseRemains(t *testing.T) {
	d := newDesign(t)
	sel := d.variable("sel", ir.ScalarType{})
	x := d.net("x", vec(8))
	mem := d.variable("mem", ir.UnpackedArrayType{Elem: vec(8), Size: 3})

	then := d.stmt(ir.AssignForce{Lhs: d.wr(x), Rhs: d.num(8, 1)})
	els := d.stmt(ir.Release{Lhs: d.elem(d.wr(mem), 1)})
	d.block(ir.BlockAlways, "p",
		&ir.If{Cond: d.rd(sel), Then: []ir.StmtID{then}, Else: []ir.StmtID{els}},
		ir.Release{Lhs: d.wr(x)},
		ir.AssignForce{Lhs: d.wr(mem), Rhs: d.rd(mem)},
	)

	stats, _ := d.lower()

	d.n.ForEachStmt(func(_ ir.BlockID, _ ir.StmtID, st *ir.Statement) {
		switch st.Kind.(type) {
		case ir.AssignForce, ir.Release:
			t.Fatalf("residual %s at %s", ir.StmtKindName(st.Kind), st.Loc)
		}
	})
	if stats.Forces != 2 || stats.Releases != 2 {
		t.Fatalf("expected 2 forces and 2 releases, got %+v", stats)
	}
}

func TestShadowSignalsCreatedOnce(t *testing.T) {
	d := newDesign(t)
	x := d.net("x", vec(8))
	d.variable("after", vec(1))
	d.block(ir.BlockAlways, "p",
		ir.AssignForce{Lhs: d.wr(x), Rhs: d.num(8, 1)},
		ir.AssignForce{Lhs: d.bits(d.wr(x), 0, 4), Rhs: d.num(4, 2)},
		ir.Release{Lhs: d.wr(x)},
	)

	stats, _ := d.lower()

	wantVars := []string{"x", "x__VforceRd", "x__VforceEn", "x__VforceVal", "after"}
	if got := varNames(d.n, d.mod); !slices.Equal(got, wantVars) {
		t.Fatalf("declarations = %v, want %v", got, wantVars)
	}
	if got := varScopeNames(d.n, d.top); !slices.Equal(got, wantVars) {
		t.Fatalf("var scopes = %v, want %v", got, wantVars)
	}
	if got := countBlocks(d.n, d.top, "force-init"); got != 1 {
		t.Fatalf("expected one init block, got %d", got)
	}
	if got := countBlocks(d.n, d.top, "force-comb"); got != 1 {
		t.Fatalf("expected one override block, got %d", got)
	}
	if stats.Signals != 1 || stats.Shadows != 1 {
		t.Fatalf("expected one signal and one shadow, got %+v", stats)
	}
}

func TestShadowDeclarationsSharedAcrossScopes(t *testing.T) {
	d := newDesign(t)
	x := d.net("x", vec(2))
	second := d.n.AddScope(d.mod, "TOP.u1")
	x1 := d.n.AddVarScope(second, d.n.VarScope(x).Var)

	d.block(ir.BlockAlways, "p", ir.AssignForce{Lhs: d.wr(x), Rhs: d.num(2, 1)})
	force1 := d.stmt(ir.AssignForce{Lhs: d.wr(x1), Rhs: d.num(2, 2)})
	d.n.AddBlock(second, ir.BlockAlways, "p", force1)

	stats, _ := d.lower()

	if stats.Signals != 1 || stats.Shadows != 2 {
		t.Fatalf("expected 1 declaration set and 2 scope sets, got %+v", stats)
	}
	want := []string{"x", "x__VforceRd", "x__VforceEn", "x__VforceVal"}
	if got := varNames(d.n, d.mod); !slices.Equal(got, want) {
		t.Fatalf("declarations = %v, want %v", got, want)
	}
	if got := varScopeNames(d.n, second); !slices.Equal(got, want) {
		t.Fatalf("second scope var scopes = %v, want %v", got, want)
	}
	if countBlocks(d.n, second, "force-init") != 1 || countBlocks(d.n, second, "force-comb") != 1 {
		t.Fatalf("expected init and override logic in the second scope")
	}
}

func TestForceableSignalIsMaterialized(t *testing.T) {
	d := newDesign(t)
	d.declare(ir.Var{Name: "probe", Kind: ir.Variable, Type: vec(3), Forceable: true})

	stats, _ := d.lower()

	if stats.Forces != 0 || stats.Shadows != 1 {
		t.Fatalf("expected shadow state without statements, got %+v", stats)
	}
	en := d.shadow("probe", SuffixEn)
	val := d.shadow("probe", SuffixVal)
	rd := d.shadow("probe", SuffixRd)
	if !d.n.VarOf(en).Public || !d.n.VarOf(val).Public {
		t.Fatalf("expected enable and value to be public")
	}
	if d.n.VarOf(rd).Public {
		t.Fatalf("read shadow must stay internal")
	}
	if d.n.VarOf(rd).Kind != ir.Net {
		t.Fatalf("read shadow must be a net, got %s", d.n.VarOf(rd).Kind)
	}
}

func TestEnableType(t *testing.T) {
	tests := []struct {
		name string
		in   ir.DType
		want ir.DType
	}{
		{"scalar", ir.ScalarType{}, ir.ScalarType{}},
		{"vector", vec(12), vec(12)},
		{"opaque", ir.OpaqueType{Name: "real", Width: 64}, ir.ScalarType{}},
		{"array of vectors", ir.UnpackedArrayType{Elem: vec(8), Size: 4}, ir.UnpackedArrayType{Elem: vec(8), Size: 4}},
		{"array of reals", ir.UnpackedArrayType{Elem: ir.OpaqueType{Name: "real", Width: 64}, Size: 2},
			ir.UnpackedArrayType{Elem: ir.ScalarType{}, Size: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnableType(tt.in); got != tt.want {
				t.Fatalf("EnableType(%s) = %s, want %s", ir.TypeString(tt.in), ir.TypeString(got), ir.TypeString(tt.want))
			}
		})
	}
}

func TestShadowRole(t *testing.T) {
	tests := []struct {
		in       string
		wantBase string
		wantRole Role
	}{
		{"x__VforceRd", "x", RoleRd},
		{"cnt__VforceEn", "cnt", RoleEn},
		{"mem__VforceVal", "mem", RoleVal},
		{"plain", "plain", RoleNone},
	}
	for _, tt := range tests {
		base, role := ShadowRole(tt.in)
		if base != tt.wantBase || role != tt.wantRole {
			t.Fatalf("ShadowRole(%q) = %q, %q", tt.in, base, role)
		}
	}
}

func TestPrimaryIOReportedOncePerDeclaration(t *testing.T) {
	d := newDesign(t)
	port := d.declare(ir.Var{Name: "clk", Kind: ir.Net, Type: ir.ScalarType{}, PrimaryIO: true})
	d.block(ir.BlockAlways, "p",
		ir.AssignForce{Lhs: d.wr(port), Rhs: d.num(1, 1)},
		ir.Release{Lhs: d.wr(port)},
	)

	stats, sink := d.lower()

	if got := sink.Count(diag.SeverityUnsupported); got != 1 {
		t.Fatalf("expected one unsupported report, got %d: %v", got, sink.All())
	}
	got := sink.All()[0]
	if !strings.Contains(got.Message, "primary input/output net 'clk'") {
		t.Fatalf("unexpected message %q", got.Message)
	}
	if !strings.Contains(got.Hint, "Suggest assign it to/from a temporary net") {
		t.Fatalf("unexpected hint %q", got.Hint)
	}
	if sink.HasErrors() {
		t.Fatalf("unsupported must not fail compilation")
	}
	if stats.Forces != 1 || stats.Releases != 1 {
		t.Fatalf("expected lowering to continue, got %+v", stats)
	}
}
