package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveFilesSkipsOutputsAndCache(t *testing.T) {
	root := t.TempDir()
	top := filepath.Join(root, "top.json")
	core := filepath.Join(root, "rtl", "core.json")
	writeFile(t, top)
	writeFile(t, core)
	writeFile(t, filepath.Join(root, "top.forced.json"))
	writeFile(t, filepath.Join(root, defaultCacheDir, "abc.json"))
	writeFile(t, filepath.Join(root, FileName))
	writeFile(t, filepath.Join(root, "notes.txt"))

	cfg := DefaultConfig()
	files, err := cfg.ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	want := []string{filepath.Join(root, "rtl", "core.json"), top}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if filepath.Clean(files[i]) != filepath.Clean(want[i]) {
			t.Fatalf("files = %v, want %v", files, want)
		}
	}
}

func TestResolveFilesExcludeAndIgnore(t *testing.T) {
	root := t.TempDir()
	keep := filepath.Join(root, "rtl", "keep.json")
	writeFile(t, keep)
	writeFile(t, filepath.Join(root, "rtl", "gen", "big.json"))
	writeFile(t, filepath.Join(root, "rtl", "scratch_1.json"))

	cfg := Config{
		Files:   []string{"rtl/**/*.json"},
		Exclude: []string{"rtl/gen/*.json"},
		Lint:    LintConfig{IgnorePatterns: []string{"scratch_*"}},
	}
	cfg.applyDefaults()

	files, err := cfg.ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if len(files) != 1 || !containsPath(files, keep) {
		t.Fatalf("files = %v, want only %s", files, keep)
	}
}

func TestResolveFilesSkipsOutputDir(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in.json")
	writeFile(t, in)
	writeFile(t, filepath.Join(root, "out", "in.json"))

	cfg := DefaultConfig()
	cfg.Output.Dir = "out"
	cfg.Output.Suffix = ".lowered.json"

	files, err := cfg.ResolveFiles(root)
	if err != nil {
		t.Fatalf("ResolveFiles: %v", err)
	}
	if len(files) != 1 || !containsPath(files, in) {
		t.Fatalf("files = %v, want %s", files, in)
	}
}

func containsPath(files []string, target string) bool {
	for _, f := range files {
		if filepath.Clean(f) == filepath.Clean(target) {
			return true
		}
	}
	return false
}
