package force

import (
	"fmt"
	"slices"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Converter holds the state of one run of the pass. The two caches make
// sure every declaration and every var scope gets at most one set of
// shadow signals.
type Converter struct {
	n    *ir.Netlist
	sink diag.Sink

	vars   map[ir.VarID]*shadowVars
	scopes map[ir.VarScopeID]*Shadow

	stats Stats
}

// NewConverter prepares a conversion of n. Use ForceAll unless the
// intermediate state is needed.
func NewConverter(n *ir.Netlist, sink diag.Sink) *Converter {
	return &Converter{
		n:      n,
		sink:   sink,
		vars:   make(map[ir.VarID]*shadowVars),
		scopes: make(map[ir.VarScopeID]*Shadow),
	}
}

// Stats returns the counters gathered so far.
func (c *Converter) Stats() Stats { return c.stats }

// Run lowers all force/release statements, then redirects reads.
func (c *Converter) Run() {
	for _, mid := range c.n.Modules {
		for _, sid := range c.n.Module(mid).Scopes {
			c.visitScope(sid)
		}
	}
	c.retargetReads()
}

func (c *Converter) visitScope(sid ir.ScopeID) {
	sc := c.n.Scope(sid)
	// Shadow var scopes and blocks are spliced in while we iterate.
	for _, vs := range slices.Clone(sc.VarScopes) {
		c.visitVarScope(vs)
	}
	for _, bid := range slices.Clone(sc.Blocks) {
		c.visitStmts(&c.n.Block(bid).Stmts)
	}
}

// visitVarScope creates the public force signals of a signal marked
// forceable, so it can be forced from outside the design.
func (c *Converter) visitVarScope(vs ir.VarScopeID) {
	if !c.n.VarOf(vs).Forceable {
		return
	}
	s := c.Components(vs)
	c.n.VarOf(s.En).Public = true
	c.n.VarOf(s.Val).Public = true
}

func (c *Converter) visitStmts(list *[]ir.StmtID) {
	for i := 0; i < len(*list); {
		switch k := c.n.Stmt((*list)[i]).Kind.(type) {
		case ir.AssignForce:
			i += c.lowerForce(list, i)
		case ir.Release:
			i += c.lowerRelease(list, i)
		case *ir.If:
			c.visitStmts(&k.Then)
			c.visitStmts(&k.Else)
			i++
		case ir.Assign, ir.AssignDly, ir.AssignW:
			i++
		default:
			panic(fmt.Sprintf("force: unhandled statement %T", k))
		}
	}
}
