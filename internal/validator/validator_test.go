package validator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readNetlist(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", "netlists", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return data
}

// Every document under testdata/netlists must satisfy the schema, otherwise
// the driver would reject it before the force pass ever sees it.
func TestTestdataConformsToSchema(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	paths, err := filepath.Glob(filepath.Join("..", "..", "testdata", "netlists", "*.json"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("no testdata netlists found")
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if err := v.ValidateJSON(data); err != nil {
			t.Errorf("%s: %v", filepath.Base(path), err)
		}
	}
}

func TestNetlistContractEnforcement(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	stmt := func(s string) string {
		return `{"format_version":"1.0.0","modules":[{"name":"m","vars":[{"name":"v","kind":"var","type":{"kind":"scalar"}}],` +
			`"scopes":[{"name":"S","blocks":[{"kind":"always","stmts":[` + s + `]}]}]}]}`
	}

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name:    "empty_netlist",
			doc:     `{"format_version":"1.0.0","modules":[]}`,
			wantErr: false,
		},
		{
			name:    "suppressed_assign",
			doc:     stmt(`{"kind":"assign","nowarn":["BLKANDNBLK"],"lhs":{"op":"ref","var":"v"},"rhs":{"op":"const","width":1,"value":"1"}}`),
			wantErr: false,
		},
		{
			name:    "nested_if",
			doc:     stmt(`{"kind":"if","cond":{"op":"ref","var":"v"},"then":[{"kind":"release","lhs":{"op":"ref","var":"v"}}],"else":[]}`),
			wantErr: false,
		},
		{
			name:    "missing_version",
			doc:     `{"modules":[]}`,
			wantErr: true,
		},
		{
			name:    "unknown_statement_kind",
			doc:     stmt(`{"kind":"deassign","lhs":{"op":"ref","var":"v"}}`),
			wantErr: true,
		},
		{
			name:    "misspelt_key",
			doc:     stmt(`{"kind":"assign","lhs":{"op":"ref","var":"v"},"rsh":{"op":"const","width":1,"value":"1"}}`),
			wantErr: true,
		},
		{
			name:    "bad_constant_digits",
			doc:     stmt(`{"kind":"assign","lhs":{"op":"ref","var":"v"},"rhs":{"op":"const","width":1,"value":"0x1"}}`),
			wantErr: true,
		},
		{
			name:    "bad_access",
			doc:     stmt(`{"kind":"assign","lhs":{"op":"ref","var":"v","access":"modify"},"rhs":{"op":"ref","var":"v"}}`),
			wantErr: true,
		},
		{
			name:    "bad_var_kind",
			doc:     `{"format_version":"1.0.0","modules":[{"name":"m","vars":[{"name":"v","kind":"reg","type":{"kind":"scalar"}}],"scopes":[]}]}`,
			wantErr: true,
		},
		{
			name:    "unknown_warning",
			doc:     stmt(`{"kind":"assign","nowarn":["WIDTH"],"lhs":{"op":"ref","var":"v"},"rhs":{"op":"ref","var":"v"}}`),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateJSON([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrorsListsProblems(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	if errs := v.ValidationErrors(readNetlist(t, "plain.json")); len(errs) != 0 {
		t.Fatalf("plain.json should be clean, got %v", errs)
	}

	bad := `{"format_version":"1.0.0","modules":[{"name":"m","vars":[{"name":"v","kind":"wire","type":{"kind":"scalar"}}],"scopes":[]}]}`
	errs := v.ValidationErrors([]byte(bad))
	if len(errs) == 0 {
		t.Fatalf("expected validation errors")
	}
	if !strings.Contains(strings.Join(errs, "\n"), "kind") {
		t.Fatalf("errors should name the offending field: %v", errs)
	}
}

func TestValidateMarshalsGoValues(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	doc := map[string]interface{}{
		"format_version": "1.1.0",
		"force_lowered":  true,
		"modules":        []interface{}{},
	}
	if err := v.Validate(doc); err != nil {
		t.Fatalf("expected valid document, got %v", err)
	}

	doc["force_lowered"] = "yes"
	if err := v.Validate(doc); err == nil {
		t.Fatalf("expected error for non-bool force_lowered")
	}
}

func TestOutputValidator(t *testing.T) {
	v, err := NewOutputValidator()
	if err != nil {
		t.Fatalf("new output validator: %v", err)
	}

	stats := map[string]interface{}{"forces": 1, "releases": 1, "signals": 1, "shadows": 1, "retargeted": 0}
	summary := map[string]interface{}{
		"files": 1, "cached": 0, "forces": 1, "releases": 1, "signals": 1,
		"errors": 0, "unsupported": 0, "warnings": 1, "violations": 0,
	}
	report := map[string]interface{}{
		"files": []interface{}{
			map[string]interface{}{"path": "a.json", "output": "out/a.forced.json", "cached": false, "stats": stats},
		},
		"diagnostics": []interface{}{
			map[string]interface{}{
				"severity": "warning", "code": "FORCE_PRIMARY_IO", "netlist": "a.json",
				"file": "a.sv", "line": 3, "message": "forcing a primary input",
			},
		},
		"violations":      []interface{}{},
		"pipeline_errors": []interface{}{},
		"summary":         summary,
	}
	if err := v.Validate(report); err != nil {
		t.Fatalf("expected valid report, got %v", err)
	}

	report["violations"] = []interface{}{
		map[string]interface{}{"rule": "residual_force_release", "severity": "fatal", "netlist": "a.json", "file": "a.sv", "line": 1, "message": "m"},
	}
	if err := v.Validate(report); err == nil {
		t.Fatalf("expected error for unknown violation severity")
	}
}
