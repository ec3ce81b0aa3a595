// Package diag collects the diagnostics raised while transforming a netlist.
package diag

import (
	"fmt"
	"strings"
	"sync"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityUnsupported Severity = "unsupported"
	SeverityWarning     Severity = "warning"
)

// Diagnostic is one reported condition.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Netlist  string   `json:"netlist,omitempty"`
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%%%s", strings.ToUpper(string(d.Severity)))
	if d.Code != "" && d.Severity == SeverityWarning {
		fmt.Fprintf(&b, "-%s", d.Code)
	}
	fmt.Fprintf(&b, ": %s:%d: %s", d.File, d.Line, d.Message)
	if d.Hint != "" {
		fmt.Fprintf(&b, "\n%s", d.Hint)
	}
	return b.String()
}

// Sink receives diagnostics from a pass.
type Sink interface {
	// Unsupported reports a construct the pass handles only partially.
	// Processing continues.
	Unsupported(loc ir.Loc, msg, hint string)

	// Error reports a condition that must fail compilation.
	Error(loc ir.Loc, msg string)

	// Warn reports a lint condition unless loc suppresses code.
	Warn(code ir.WarnCode, loc ir.Loc, msg string)
}

// Collector is a Sink that keeps everything it is given.
type Collector struct {
	// Disabled warnings are dropped everywhere.
	Disabled map[ir.WarnCode]bool

	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{Disabled: make(map[ir.WarnCode]bool)}
}

func (c *Collector) add(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

func (c *Collector) Unsupported(loc ir.Loc, msg, hint string) {
	c.add(Diagnostic{
		Severity: SeverityUnsupported,
		Code:     "UNSUPPORTED",
		File:     loc.File,
		Line:     loc.Line,
		Message:  "Unsupported: " + msg,
		Hint:     hint,
	})
}

func (c *Collector) Error(loc ir.Loc, msg string) {
	c.add(Diagnostic{
		Severity: SeverityError,
		Code:     "ERROR",
		File:     loc.File,
		Line:     loc.Line,
		Message:  msg,
	})
}

func (c *Collector) Warn(code ir.WarnCode, loc ir.Loc, msg string) {
	if loc.Suppressed(code) || c.Disabled[code] {
		return
	}
	c.add(Diagnostic{
		Severity: SeverityWarning,
		Code:     code.String(),
		File:     loc.File,
		Line:     loc.Line,
		Message:  msg,
	})
}

// All returns a copy of the collected diagnostics in report order.
func (c *Collector) All() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns how many diagnostics of severity s were collected.
func (c *Collector) Count(s Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, d := range c.items {
		if d.Severity == s {
			total++
		}
	}
	return total
}

// HasErrors reports whether compilation must stop.
func (c *Collector) HasErrors() bool {
	return c.Count(SeverityError) > 0
}
