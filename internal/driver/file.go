package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robert-at-pretension-io/hdl-force/internal/config"
	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/facts"
	"github.com/robert-at-pretension-io/hdl-force/internal/force"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
	"github.com/robert-at-pretension-io/hdl-force/internal/lint"
	"github.com/robert-at-pretension-io/hdl-force/internal/netlist"
	"github.com/robert-at-pretension-io/hdl-force/internal/policy"
	"github.com/robert-at-pretension-io/hdl-force/internal/validator"
)

// pipeline holds what every file goroutine shares. All of it is safe for
// concurrent use.
type pipeline struct {
	cfg    *config.Config
	root   string
	input  *validator.Validator
	facts  *validator.FactsValidator
	output *validator.OutputValidator
	policy *policy.Engine
	cache  *resultCache
}

type fileOutcome struct {
	result      FileResult
	diagnostics []diag.Diagnostic
	tables      facts.Tables
	// warnings are non-fatal problems, such as a failed cache write.
	warnings []error
	err      error
}

func (o *fileOutcome) status() string {
	switch {
	case o.err != nil:
		return "failed"
	case o.result.Cached:
		return "cache_hit"
	case o.result.Output == "":
		return "not_written"
	}
	return "lowered"
}

func (p *pipeline) relPath(path string) string {
	if rel, err := filepath.Rel(p.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

// processFile runs one netlist document through the whole pass: schema
// check, decode, force lowering, lint, fact checks and encode.
func (p *pipeline) processFile(path string) *fileOutcome {
	rel := p.relPath(path)
	o := &fileOutcome{result: FileResult{Path: rel}}

	data, err := os.ReadFile(path)
	if err != nil {
		o.err = err
		return o
	}
	contentHash := hashBytes(data)
	if p.cache != nil {
		cached, ok, err := p.cache.Get(path, contentHash)
		if err != nil {
			o.warnings = append(o.warnings, fmt.Errorf("cache read failed: %w", err))
		} else if ok {
			o.result = cached.File
			o.result.Cached = true
			o.diagnostics = cached.Diagnostics
			o.tables = cached.Tables
			return o
		}
	}

	if p.input != nil {
		if errs := p.input.ValidationErrors(data); len(errs) > 0 {
			o.err = fmt.Errorf("netlist schema validation failed:\n  %s", strings.Join(errs, "\n  "))
			return o
		}
	}
	doc, err := netlist.Parse(data)
	if err != nil {
		o.err = err
		return o
	}
	n, err := doc.Build(p.cfg.Analysis.FormatVersion)
	if err != nil {
		o.err = err
		return o
	}
	source := doc.Source
	if source == "" {
		source = rel
	}

	sink := diag.NewCollector()
	if !p.cfg.IsRuleEnabled("blk_and_nblk") {
		sink.Disabled[ir.WarnBlkAndNblk] = true
	}

	if config.Enabled(p.cfg.Force.Enabled) {
		var before facts.Tables
		opts := force.Options{}
		if p.cfg.Force.Dump {
			before = facts.BuildTables(n, rel)
			opts.Dump = func(stage string, n *ir.Netlist) {
				// Keep the output suffix so dumps are never picked up as inputs.
				suffix := p.cfg.Output.Suffix
				dumpPath := strings.TrimSuffix(p.cfg.OutputPath(p.root, path), suffix) + "." + stage + ".delta" + suffix
				delta := facts.ComputeDelta(before, facts.BuildTables(n, rel))
				if err := writeJSONAtomic(dumpPath, delta); err != nil {
					o.warnings = append(o.warnings, fmt.Errorf("dump failed: %w", err))
				}
			}
		}
		stats, err := force.ForceAll(n, sink, opts)
		switch {
		case errors.Is(err, force.ErrAlreadyLowered):
			// Lowered documents are passed through and only verified.
		case err != nil:
			o.err = err
			return o
		}
		o.result.Stats = stats
	}
	lint.CheckBlockingMix(n, sink)

	o.tables = facts.BuildTables(n, rel)
	if p.facts != nil {
		if err := p.facts.Validate(o.tables); err != nil {
			o.err = fmt.Errorf("fact tables contract broken: %w", err)
			return o
		}
	}

	for _, d := range sink.All() {
		d.Netlist = rel
		o.diagnostics = append(o.diagnostics, d)
	}

	// A netlist with errors is never written.
	if !sink.HasErrors() {
		out, err := netlist.Encode(n, source)
		if err != nil {
			o.err = err
			return o
		}
		outPath := p.cfg.OutputPath(p.root, path)
		if err := writeFileAtomic(outPath, out); err != nil {
			o.err = err
			return o
		}
		o.result.Output = outPath
	}

	if p.cache != nil {
		err := p.cache.Put(path, contentHash, cachedResult{
			File:        o.result,
			Diagnostics: o.diagnostics,
			Tables:      o.tables,
		})
		if err != nil {
			o.warnings = append(o.warnings, fmt.Errorf("cache write failed: %w", err))
		}
	}
	return o
}
