package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/hdl-force/internal/driver"
	"github.com/robert-at-pretension-io/hdl-force/internal/facts"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
	"github.com/robert-at-pretension-io/hdl-force/internal/netlist"
)

func TestHdlForceE2E_Testdata(t *testing.T) {
	repoRoot := findRepoRoot(t)
	forceBin := buildBinary(t, repoRoot, "hdl-force")

	project := t.TempDir()
	for _, name := range []string{"net_force.json", "variable_array.json", "plain.json"} {
		copyTestdata(t, repoRoot, name, project)
	}

	env := isolatedEnv(t)
	result, code := runForceJSON(t, forceBin, project, env)
	if code != 0 {
		t.Fatalf("hdl-force exited %d: %+v", code, result)
	}
	if len(result.PipelineErrors) > 0 {
		t.Fatalf("pipeline errors: %v", result.PipelineErrors)
	}
	if result.Summary.Files != 3 {
		t.Fatalf("files = %d, want 3", result.Summary.Files)
	}

	for _, f := range result.Files {
		if f.Output == "" {
			t.Fatalf("%s was not written", f.Path)
		}
		data, err := os.ReadFile(f.Output)
		if err != nil {
			t.Fatalf("read output: %v", err)
		}
		n, err := netlist.Decode(data, "")
		if err != nil {
			t.Fatalf("decode %s: %v", f.Output, err)
		}
		n.ForEachStmt(func(_ ir.BlockID, _ ir.StmtID, st *ir.Statement) {
			switch st.Kind.(type) {
			case ir.AssignForce, ir.Release:
				t.Fatalf("%s still contains %s", f.Output, ir.StmtKindName(st.Kind))
			}
		})
	}

	// Outputs are skipped on the next scan, inputs come from the cache.
	again, code := runForceJSON(t, forceBin, project, env)
	if code != 0 || again.Summary.Files != 3 || again.Summary.Cached != 3 {
		t.Fatalf("second run: exit %d, summary %+v", code, again.Summary)
	}
}

func TestHdlForceE2E_ReadWriteFails(t *testing.T) {
	repoRoot := findRepoRoot(t)
	forceBin := buildBinary(t, repoRoot, "hdl-force")

	project := t.TempDir()
	copyTestdata(t, repoRoot, "readwrite.json", project)

	result, code := runForceJSON(t, forceBin, project, isolatedEnv(t))
	if code != 1 {
		t.Fatalf("hdl-force exited %d, want 1", code)
	}
	if result.Summary.Errors != 1 {
		t.Fatalf("errors = %d, want 1", result.Summary.Errors)
	}
}

func TestForceFactsE2E_PassDelta(t *testing.T) {
	repoRoot := findRepoRoot(t)
	factsBin := buildBinary(t, repoRoot, "force-facts")

	out := t.TempDir()
	deltaPath := filepath.Join(out, "delta.json")
	input := filepath.Join(repoRoot, "testdata", "netlists", "net_force.json")

	cmd := exec.Command(factsBin, "--pass-delta", deltaPath, "-o", filepath.Join(out, "facts.json"), input)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("force-facts failed: %v\n%s", err, b)
	}

	data, err := os.ReadFile(deltaPath)
	if err != nil {
		t.Fatalf("read delta: %v", err)
	}
	var delta facts.Delta
	if err := json.Unmarshal(data, &delta); err != nil {
		t.Fatalf("parse delta: %v", err)
	}
	added := make(map[string]bool)
	for _, s := range delta.Added.Signals {
		added[s.Name] = true
	}
	for _, name := range []string{"x__VforceRd", "x__VforceEn", "x__VforceVal"} {
		if !added[name] {
			t.Fatalf("delta does not add %s: %v", name, added)
		}
	}
	if len(delta.Removed.Signals) != 0 {
		t.Fatalf("the pass removed signals: %+v", delta.Removed.Signals)
	}
}

func runForceJSON(t *testing.T, bin, path string, env []string) (driver.Result, int) {
	t.Helper()

	cmd := exec.Command(bin, "--json", path)
	cmd.Dir = path
	cmd.Env = env
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	code := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("hdl-force failed for %s: %v\nstderr:\n%s", path, err, stderr.String())
		}
		code = exitErr.ExitCode()
	}

	var result driver.Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("parse JSON output for %s: %v\nstdout:\n%s\nstderr:\n%s", path, err, stdout.String(), stderr.String())
	}
	return result, code
}

func isolatedEnv(t *testing.T) []string {
	home := t.TempDir()
	return append(os.Environ(),
		"HOME="+home,
		"XDG_CONFIG_HOME="+filepath.Join(home, ".config"),
		"HDL_FORCE_TIMING=",
		"HDL_FORCE_TIMING_JSONL=",
	)
}

func copyTestdata(t *testing.T, repoRoot, name, dir string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(repoRoot, "testdata", "netlists", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func buildBinary(t *testing.T, repoRoot, name string) string {
	t.Helper()
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/"+name)
	cmd.Dir = repoRoot
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build %s failed: %v\n%s", name, err, string(out))
	}
	return binPath
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "testdata", "netlists", "net_force.json")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
