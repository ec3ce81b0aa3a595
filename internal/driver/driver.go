// Package driver runs the force pass over every netlist of a project.
package driver

// =============================================================================
// DRIVER PHILOSOPHY: ONE NETLIST PER GOROUTINE, CHECK EVERYTHING TWICE
// =============================================================================
//
// Netlist documents are independent: each one is decoded, lowered and
// encoded by its own goroutine, with no state shared between them beyond
// the result cache. Cross-file work happens only after all files are done:
// the fact tables are merged and handed to the policy engine once.
//
// Inputs are checked against the CUE netlist schema before decoding, and
// outputs are checked by the Rego rules after lowering. A failure on either
// side is a bug in whoever produced the document; never weaken the check.
// =============================================================================

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/hdl-force/internal/config"
	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/facts"
	"github.com/robert-at-pretension-io/hdl-force/internal/force"
	"github.com/robert-at-pretension-io/hdl-force/internal/policy"
	"github.com/robert-at-pretension-io/hdl-force/internal/validator"
)

// Driver lowers the netlists of one project.
type Driver struct {
	// Configuration loaded from hdl_force.json
	Config *config.Config

	// Verbose output
	Verbose bool

	// Progress output (lightweight, streaming)
	Progress bool

	// Trace output (progress + per-file statistics)
	Trace bool

	// JSON output mode
	JSONOutput bool

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// Out receives the report; stdout when nil
	Out io.Writer
}

// Result is the structured result of a run. It is what --json prints.
type Result struct {
	Files          []FileResult       `json:"files"`
	Diagnostics    []diag.Diagnostic  `json:"diagnostics"`
	Violations     []policy.Violation `json:"violations"`
	PipelineErrors []string           `json:"pipeline_errors"`
	Summary        Summary            `json:"summary"`
}

// FileResult describes what happened to one netlist document.
type FileResult struct {
	Path   string      `json:"path"`
	Output string      `json:"output,omitempty"`
	Cached bool        `json:"cached"`
	Stats  force.Stats `json:"stats"`
}

// Summary provides aggregate counts
type Summary struct {
	Files       int `json:"files"`
	Cached      int `json:"cached"`
	Forces      int `json:"forces"`
	Releases    int `json:"releases"`
	Signals     int `json:"signals"`
	Errors      int `json:"errors"`
	Unsupported int `json:"unsupported"`
	Warnings    int `json:"warnings"`
	Violations  int `json:"violations"`
}

// Failed reports whether the run must end with a non-zero exit status:
// a pass error, a policy error or a pipeline error.
func (r *Result) Failed() bool {
	if r.Summary.Errors > 0 || len(r.PipelineErrors) > 0 {
		return true
	}
	for _, v := range r.Violations {
		if v.Severity == "error" {
			return true
		}
	}
	return false
}

// New returns a driver using cfg. A nil cfg is loaded on Run.
func New(cfg *config.Config) *Driver {
	return &Driver{Config: cfg}
}

func (d *Driver) out() io.Writer {
	if d.Out == nil {
		return os.Stdout
	}
	return d.Out
}

func (d *Driver) printf(format string, args ...any) {
	fmt.Fprintf(d.out(), format, args...)
}

// Run processes every netlist of the project at rootPath. File-level
// failures are reported in the result and as a combined error; the result
// is returned in both cases.
func (d *Driver) Run(ctx context.Context, rootPath string) (*Result, error) {
	runStart := time.Now()
	var pipelineErrs []error
	recordPipelineErr := func(err error) {
		pipelineErrs = append(pipelineErrs, err)
	}

	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	rootPath = absRoot

	timing := newTimingRecorder(runStart, d.resolveTimingPath(rootPath))
	if err := timing.Err(); err != nil {
		recordPipelineErr(fmt.Errorf("timing output disabled: %w", err))
	}
	defer timing.Close()

	// 0. Load configuration if not already loaded
	if d.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		d.Config = cfg
	}
	cfg := d.Config

	// 1. Find all netlist documents
	stepStart := time.Now()
	files, err := cfg.ResolveFiles(rootPath)
	if err != nil {
		return nil, fmt.Errorf("resolve files: %w", err)
	}
	if !d.JSONOutput {
		d.printf("Found %d netlist files\n", len(files))
	}
	scanDuration := time.Since(stepStart)
	timing.RecordStage("scan", stepStart, scanDuration, "")

	// 2. Checkers shared by all files
	p, err := d.newPipeline(rootPath)
	if err != nil {
		return nil, err
	}
	if config.Enabled(cfg.Analysis.Cache.Enabled) {
		hash, err := configHash(cfg)
		if err != nil {
			recordPipelineErr(fmt.Errorf("cache disabled: %w", err))
		} else {
			p.cache = newResultCache(cfg.CacheDir(rootPath), hash)
			if err := p.cache.Load(); err != nil {
				recordPipelineErr(fmt.Errorf("cache disabled: %w", err))
				p.cache = nil
			}
		}
	}

	// 3. Lower files in parallel
	stepStart = time.Now()
	progressEnabled := (d.Verbose || d.Progress || d.Trace) && !d.JSONOutput
	if progressEnabled {
		d.printf("\n=== Force Progress ===\n")
	}
	outcomes := make([]*fileOutcome, len(files))
	var progressMu sync.Mutex
	progress := 0

	g, gctx := errgroup.WithContext(ctx)
	limit := cfg.Analysis.MaxParallelFiles
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g.SetLimit(limit)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fileStart := time.Now()
			o := p.processFile(file)
			outcomes[i] = o
			fileDuration := time.Since(fileStart)
			timing.RecordFile("force", o.result.Path, o.status(), fileStart, fileDuration)
			if progressEnabled {
				progressMu.Lock()
				progress++
				d.printf("  [%d/%d] %s (%s, %s)\n", progress, len(files), o.result.Path, o.status(), formatDuration(fileDuration))
				if d.Trace && o.err == nil {
					s := o.result.Stats
					d.printf("    forces=%d releases=%d signals=%d shadows=%d retargeted=%d\n",
						s.Forces, s.Releases, s.Signals, s.Shadows, s.Retargeted)
				}
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.Save(); err != nil {
			recordPipelineErr(fmt.Errorf("cache save failed: %w", err))
		}
	}
	forceDuration := time.Since(stepStart)
	timing.RecordStage("force", stepStart, forceDuration, "")

	// 4. Collect
	result := &Result{
		Files:          []FileResult{},
		Diagnostics:    []diag.Diagnostic{},
		Violations:     []policy.Violation{},
		PipelineErrors: []string{},
	}
	var tables []facts.Tables
	for _, o := range outcomes {
		if o.err != nil {
			recordPipelineErr(fmt.Errorf("%s: %w", o.result.Path, o.err))
			continue
		}
		for _, err := range o.warnings {
			recordPipelineErr(fmt.Errorf("%s: %w", o.result.Path, err))
		}
		result.Files = append(result.Files, o.result)
		result.Diagnostics = append(result.Diagnostics, o.diagnostics...)
		tables = append(tables, o.tables)
	}

	// 5. Policy verification over all lowered netlists
	stepStart = time.Now()
	if p.policy != nil && len(tables) > 0 {
		policyResult, err := p.policy.Evaluate(ctx, facts.Merge(tables...))
		if err != nil {
			recordPipelineErr(fmt.Errorf("policy evaluation failed: %w", err))
		} else {
			policyResult.ApplySeverities(cfg.GetRuleSeverity)
			result.Violations = append(result.Violations, policyResult.Violations...)
		}
	}
	policyDuration := time.Since(stepStart)
	timing.RecordStage("policy", stepStart, policyDuration, "")

	for _, err := range pipelineErrs {
		result.PipelineErrors = append(result.PipelineErrors, err.Error())
	}
	result.Summary = summarize(result)

	// 6. Report
	if d.JSONOutput {
		if p.output != nil {
			if err := p.output.Validate(result); err != nil {
				return result, fmt.Errorf("output contract broken: %w", err)
			}
		}
		enc := json.NewEncoder(d.out())
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return result, fmt.Errorf("failed to encode JSON output: %w", err)
		}
	} else {
		d.printReport(result)
	}

	if progressEnabled {
		d.printf("\n=== Timing Summary ===\n")
		d.printf("  scan:    %s\n", formatDuration(scanDuration))
		d.printf("  force:   %s\n", formatDuration(forceDuration))
		d.printf("  policy:  %s\n", formatDuration(policyDuration))
		d.printf("  total:   %s\n", formatDuration(time.Since(runStart)))
	}
	timing.RecordStage("total", runStart, time.Since(runStart), "")

	if len(pipelineErrs) > 0 {
		return result, fmt.Errorf("pipeline errors:\n%s", formatPipelineErrors(pipelineErrs))
	}
	return result, nil
}

func (d *Driver) newPipeline(rootPath string) (*pipeline, error) {
	cfg := d.Config
	p := &pipeline{cfg: cfg, root: rootPath}
	if config.Enabled(cfg.Analysis.ValidateInput) {
		v, err := validator.New()
		if err != nil {
			return nil, fmt.Errorf("initialize netlist validator: %w", err)
		}
		p.input = v
	}
	if config.Enabled(cfg.Analysis.Verify) {
		fv, err := validator.NewFactsValidator()
		if err != nil {
			return nil, fmt.Errorf("initialize facts validator: %w", err)
		}
		p.facts = fv
		policyDir := cfg.Lint.PolicyDir
		if policyDir != "" && !filepath.IsAbs(policyDir) {
			policyDir = filepath.Join(rootPath, policyDir)
		}
		engine, err := policy.New(policyDir)
		if err != nil {
			return nil, fmt.Errorf("initialize policy engine: %w", err)
		}
		p.policy = engine
	}
	if d.JSONOutput {
		ov, err := validator.NewOutputValidator()
		if err != nil {
			return nil, fmt.Errorf("initialize output validator: %w", err)
		}
		p.output = ov
	}
	return p, nil
}

func summarize(r *Result) Summary {
	s := Summary{Files: len(r.Files), Violations: len(r.Violations)}
	for _, f := range r.Files {
		if f.Cached {
			s.Cached++
		}
		s.Forces += f.Stats.Forces
		s.Releases += f.Stats.Releases
		s.Signals += f.Stats.Signals
	}
	for _, dg := range r.Diagnostics {
		switch dg.Severity {
		case diag.SeverityError:
			s.Errors++
		case diag.SeverityUnsupported:
			s.Unsupported++
		case diag.SeverityWarning:
			s.Warnings++
		}
	}
	return s
}

func (d *Driver) printReport(r *Result) {
	if len(r.Diagnostics) > 0 {
		d.printf("\n=== Diagnostics ===\n")
		for _, dg := range r.Diagnostics {
			d.printf("%s\n", dg)
		}
	}

	if len(r.Violations) > 0 {
		d.printf("\n=== Policy Violations ===\n")
		for _, v := range r.Violations {
			icon := "ℹ"
			if v.Severity == "error" {
				icon = "✗"
			} else if v.Severity == "warning" {
				icon = "⚠"
			}
			d.printf("%s [%s] %s:%d - %s\n", icon, v.Rule, v.File, v.Line, v.Message)
		}
	}

	if d.Verbose {
		d.printf("\n=== Outputs ===\n")
		files := append([]FileResult(nil), r.Files...)
		sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
		for _, f := range files {
			status := "lowered"
			if f.Cached {
				status = "cached"
			}
			if f.Output == "" {
				status = "not written"
			}
			d.printf("  %s -> %s (%s)\n", f.Path, f.Output, status)
		}
	}

	d.printf("\n=== Force Summary ===\n")
	d.printf("  Files:       %d (%d cached)\n", r.Summary.Files, r.Summary.Cached)
	d.printf("  Forces:      %d\n", r.Summary.Forces)
	d.printf("  Releases:    %d\n", r.Summary.Releases)
	d.printf("  Signals:     %d\n", r.Summary.Signals)
	d.printf("  Errors:      %d\n", r.Summary.Errors)
	d.printf("  Unsupported: %d\n", r.Summary.Unsupported)
	d.printf("  Warnings:    %d\n", r.Summary.Warnings)
	d.printf("  Violations:  %d\n", r.Summary.Violations)

	if len(r.PipelineErrors) > 0 {
		d.printf("\n=== Pipeline Errors ===\n")
		for _, e := range r.PipelineErrors {
			d.printf("  %s\n", e)
		}
	}
}

func formatPipelineErrors(errs []error) string {
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(err.Error())
	}
	return b.String()
}
