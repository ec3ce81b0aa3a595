package policy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/facts"
	"github.com/robert-at-pretension-io/hdl-force/internal/force"
	"github.com/robert-at-pretension-io/hdl-force/internal/netlist"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New("")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

// tablesFor decodes a testdata netlist and returns its fact tables, lowered
// when lower is set.
func tablesFor(t *testing.T, name string, lower bool) facts.Tables {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "netlists", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	n, err := netlist.Decode(data, "")
	if err != nil {
		t.Fatalf("decode %s: %v", name, err)
	}
	if lower {
		if _, err := force.ForceAll(n, diag.NewCollector(), force.Options{}); err != nil {
			t.Fatalf("lower %s: %v", name, err)
		}
	}
	return facts.BuildTables(n, name)
}

func evaluate(t *testing.T, e *Engine, tables facts.Tables) *Result {
	t.Helper()
	result, err := e.Evaluate(context.Background(), tables)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return result
}

func rules(result *Result) []string {
	var out []string
	for _, v := range result.Violations {
		out = append(out, v.Rule)
	}
	return out
}

func TestLoweredTestdataIsClean(t *testing.T) {
	engine := newEngine(t)
	for _, name := range []string{"net_force.json", "variable_array.json", "primary_io.json", "plain.json"} {
		t.Run(name, func(t *testing.T) {
			result := evaluate(t, engine, tablesFor(t, name, true))
			if len(result.Violations) != 0 {
				t.Fatalf("expected no violations, got %+v", result.Violations)
			}
			if result.Summary.TotalViolations != 0 {
				t.Fatalf("summary = %+v", result.Summary)
			}
		})
	}
}

func TestResidualForceRelease(t *testing.T) {
	engine := newEngine(t)

	// Unlowered netlists may hold force statements.
	tables := tablesFor(t, "net_force.json", false)
	if result := evaluate(t, engine, tables); len(result.Violations) != 0 {
		t.Fatalf("unlowered netlist flagged: %v", rules(result))
	}

	tables.Files[0].ForceLowered = true
	result := evaluate(t, engine, tables)
	if got := strings.Join(rules(result), ","); got != "residual_force_release,residual_force_release" {
		t.Fatalf("rules = %s", got)
	}
	if result.Violations[0].Line != 9 || result.Violations[1].Line != 11 {
		t.Fatalf("violations = %+v", result.Violations)
	}
	if result.Summary.Errors != 2 {
		t.Fatalf("summary = %+v", result.Summary)
	}
}

func TestUnshadowedRead(t *testing.T) {
	engine := newEngine(t)
	tables := tablesFor(t, "net_force.json", true)

	bypassed := 0
	for i, r := range tables.Refs {
		if r.Signal == "x" && r.Bypass && r.BlockKind == "comb" {
			tables.Refs[i].Bypass = false
			bypassed++
		}
	}
	if bypassed != 1 {
		t.Fatalf("expected one bypass read of x in the override logic, got %d", bypassed)
	}

	result := evaluate(t, engine, tables)
	if len(result.Violations) != 1 || result.Violations[0].Rule != "unshadowed_read" {
		t.Fatalf("violations = %+v", result.Violations)
	}
	if !strings.Contains(result.Violations[0].Message, "x__VforceRd") {
		t.Fatalf("message = %q", result.Violations[0].Message)
	}
}

func TestEnableWidthMismatch(t *testing.T) {
	engine := newEngine(t)
	tables := tablesFor(t, "variable_array.json", true)

	for i, s := range tables.Signals {
		if s.Name == "mem__VforceEn" {
			tables.Signals[i].Width = 8
		}
	}
	result := evaluate(t, engine, tables)
	if len(result.Violations) != 1 || result.Violations[0].Rule != "enable_width_mismatch" {
		t.Fatalf("violations = %+v", result.Violations)
	}
	if msg := result.Violations[0].Message; !strings.Contains(msg, "needs 32") {
		t.Fatalf("message = %q", msg)
	}
}

func TestBlockingMixHonorsSuppression(t *testing.T) {
	engine := newEngine(t)
	tables := tablesFor(t, "variable_array.json", true)

	// The release of mem writes it with blocking assignments next to the
	// non-blocking write of mem[0]; only the suppression keeps this quiet.
	cleared := 0
	for i, r := range tables.Refs {
		if r.NoWarn != "" {
			tables.Refs[i].NoWarn = ""
			cleared++
		}
	}
	if cleared == 0 {
		t.Fatalf("expected suppressed references after lowering")
	}

	result := evaluate(t, engine, tables)
	if len(result.Violations) == 0 {
		t.Fatalf("expected blk_and_nblk warnings")
	}
	for _, v := range result.Violations {
		if v.Rule != "blk_and_nblk" || v.Severity != "warning" || v.Line != 13 {
			t.Fatalf("unexpected violation %+v", v)
		}
	}
	if result.Summary.Warnings != len(result.Violations) {
		t.Fatalf("summary = %+v", result.Summary)
	}
}

func TestCustomPolicyDir(t *testing.T) {
	dir := t.TempDir()
	custom := `package hdlforce.custom

import rego.v1

violations contains v if {
	some s in input.signals
	s.public
	v := {"rule": "public_signal", "severity": "info", "netlist": s.netlist, "file": s.file, "line": s.line, "message": s.name}
}
`
	if err := os.WriteFile(filepath.Join(dir, "custom.rego"), []byte(custom), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	engine, err := New(dir)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// probe is forceable, so its enable and value are public.
	result := evaluate(t, engine, tablesFor(t, "variable_array.json", true))
	var names []string
	for _, v := range result.Violations {
		if v.Rule == "public_signal" {
			names = append(names, v.Message)
		}
	}
	if strings.Join(names, ",") != "probe__VforceEn,probe__VforceVal" {
		t.Fatalf("custom violations = %v", names)
	}
	if result.Summary.Info != 2 {
		t.Fatalf("summary = %+v", result.Summary)
	}
}

func TestNewRejectsEmptyPolicyDir(t *testing.T) {
	if _, err := New(t.TempDir()); err == nil {
		t.Fatalf("expected error for a directory without .rego files")
	}
}

func TestApplySeverities(t *testing.T) {
	result := &Result{Violations: []Violation{
		{Rule: "blk_and_nblk", Severity: "warning"},
		{Rule: "unshadowed_read", Severity: "error"},
		{Rule: "public_signal", Severity: "info"},
	}}
	overrides := map[string]string{"blk_and_nblk": "error", "public_signal": "off"}
	result.ApplySeverities(func(rule, current string) string {
		if s, ok := overrides[rule]; ok {
			return s
		}
		return current
	})

	if len(result.Violations) != 2 {
		t.Fatalf("violations = %+v", result.Violations)
	}
	if result.Summary != (Summary{TotalViolations: 2, Errors: 2}) {
		t.Fatalf("summary = %+v", result.Summary)
	}
}
