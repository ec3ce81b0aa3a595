package facts

import (
	"strings"

	"github.com/robert-at-pretension-io/hdl-force/internal/force"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Tables is the relational fact model handed to the policy engine.
// Each slice is a relation (table) with flat rows. Netlist is the path of
// the netlist document a row came from; File and Line are the source
// location recorded in it.
type Tables struct {
	Files      []FileRow      `json:"files"`
	Signals    []SignalRow    `json:"signals"`
	Blocks     []BlockRow     `json:"blocks"`
	Statements []StatementRow `json:"statements"`
	Refs       []RefRow       `json:"refs"`
}

type FileRow struct {
	Path         string `json:"path"`
	Modules      int    `json:"modules"`
	ForceLowered bool   `json:"force_lowered"`
}

type SignalRow struct {
	Netlist     string `json:"netlist"`
	Module      string `json:"module"`
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Type        string `json:"type"`
	Width       int    `json:"width"`
	Elements    int    `json:"elements"`
	Ranged      bool   `json:"ranged"`
	EnableWidth int    `json:"enable_width"`
	Forceable   bool   `json:"forceable"`
	PrimaryIO   bool   `json:"primary_io"`
	Public      bool   `json:"public"`
	ShadowOf    string `json:"shadow_of"`
	ShadowRole  string `json:"shadow_role"`
	File        string `json:"file"`
	Line        int    `json:"line"`
}

type BlockRow struct {
	Netlist    string `json:"netlist"`
	Scope      string `json:"scope"`
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Statements int    `json:"statements"`
}

type StatementRow struct {
	Netlist   string `json:"netlist"`
	ID        int    `json:"id"`
	Scope     string `json:"scope"`
	Block     int    `json:"block"`
	BlockKind string `json:"block_kind"`
	Kind      string `json:"kind"`
	NoWarn    string `json:"nowarn"`
	File      string `json:"file"`
	Line      int    `json:"line"`
}

type RefRow struct {
	Netlist     string `json:"netlist"`
	Stmt        int    `json:"stmt"`
	Scope       string `json:"scope"`
	Block       int    `json:"block"`
	BlockKind   string `json:"block_kind"`
	StmtKind    string `json:"stmt_kind"`
	Side        string `json:"side"`
	Signal      string `json:"signal"`
	SignalScope string `json:"signal_scope"`
	Access      string `json:"access"`
	Bypass      bool   `json:"bypass"`
	NoWarn      string `json:"nowarn"`
	File        string `json:"file"`
	Line        int    `json:"line"`
}

// Reference sides.
const (
	SideLHS  = "lhs"
	SideRHS  = "rhs"
	SideCond = "cond"
)

// BuildTables flattens one netlist. path identifies the document the
// netlist was read from.
func BuildTables(n *ir.Netlist, path string) Tables {
	tables := emptyTables()
	tables.Files = append(tables.Files, FileRow{
		Path:         path,
		Modules:      len(n.Modules),
		ForceLowered: n.ForceLowered,
	})

	for _, mid := range n.Modules {
		mod := n.Module(mid)
		for _, sid := range mod.Scopes {
			scope := n.Scope(sid)
			for _, vs := range scope.VarScopes {
				tables.Signals = append(tables.Signals, signalRow(n, path, mod.Name, scope.Name, vs))
			}
			for i, bid := range scope.Blocks {
				blk := n.Block(bid)
				b := &blockWalker{n: n, t: &tables, path: path, scope: scope.Name, index: i, kind: blk.Kind.String()}
				b.walk(blk.Stmts)
				tables.Blocks = append(tables.Blocks, BlockRow{
					Netlist:    path,
					Scope:      scope.Name,
					Index:      i,
					Name:       blk.Name,
					Kind:       blk.Kind.String(),
					Statements: b.count,
				})
			}
		}
	}
	return tables
}

func signalRow(n *ir.Netlist, path, module, scope string, vs ir.VarScopeID) SignalRow {
	v := n.VarOf(vs)
	row := SignalRow{
		Netlist:     path,
		Module:      module,
		Scope:       scope,
		Name:        v.Name,
		Kind:        v.Kind.String(),
		Type:        ir.TypeString(v.Type),
		Width:       ir.Width(v.Type),
		Elements:    ir.Elements(v.Type),
		Ranged:      ir.IsRanged(v.Type),
		EnableWidth: ir.Width(force.EnableType(v.Type)),
		Forceable:   v.Forceable,
		PrimaryIO:   v.PrimaryIO,
		Public:      v.Public,
		File:        v.Loc.File,
		Line:        v.Loc.Line,
	}
	if base, role := force.ShadowRole(v.Name); role != force.RoleNone {
		row.ShadowOf = base
		row.ShadowRole = string(role)
	}
	return row
}

type blockWalker struct {
	n     *ir.Netlist
	t     *Tables
	path  string
	scope string
	index int
	kind  string
	count int
}

func (b *blockWalker) walk(list []ir.StmtID) {
	for _, id := range list {
		st := b.n.Stmt(id)
		if st.Deleted {
			continue
		}
		b.count++
		nowarn := noWarnKey(st.Loc)
		b.t.Statements = append(b.t.Statements, StatementRow{
			Netlist:   b.path,
			ID:        int(id),
			Scope:     b.scope,
			Block:     b.index,
			BlockKind: b.kind,
			Kind:      ir.StmtKindName(st.Kind),
			NoWarn:    nowarn,
			File:      st.Loc.File,
			Line:      st.Loc.Line,
		})

		roots := ir.StmtExprs(st.Kind)
		sides := []string{SideLHS, SideRHS}
		if _, ok := st.Kind.(*ir.If); ok {
			sides = []string{SideCond}
		}
		for i, root := range roots {
			b.n.ForEachRef(root, func(_ ir.ExprID, ref ir.VarRef) {
				binding := b.n.VarScope(ref.VarScope)
				b.t.Refs = append(b.t.Refs, RefRow{
					Netlist:     b.path,
					Stmt:        int(id),
					Scope:       b.scope,
					Block:       b.index,
					BlockKind:   b.kind,
					StmtKind:    ir.StmtKindName(st.Kind),
					Side:        sides[i],
					Signal:      b.n.Var(binding.Var).Name,
					SignalScope: b.n.Scope(binding.Scope).Name,
					Access:      ref.Access.String(),
					Bypass:      ref.Class == ir.Bypass,
					NoWarn:      nowarn,
					File:        st.Loc.File,
					Line:        st.Loc.Line,
				})
			})
		}

		if k, ok := st.Kind.(*ir.If); ok {
			b.walk(k.Then)
			b.walk(k.Else)
		}
	}
}

func noWarnKey(loc ir.Loc) string {
	var names []string
	for _, code := range loc.Suppressions() {
		names = append(names, code.String())
	}
	return strings.Join(names, ",")
}

// Merge concatenates the rows of several snapshots.
func Merge(all ...Tables) Tables {
	out := emptyTables()
	for _, t := range all {
		out.Files = append(out.Files, t.Files...)
		out.Signals = append(out.Signals, t.Signals...)
		out.Blocks = append(out.Blocks, t.Blocks...)
		out.Statements = append(out.Statements, t.Statements...)
		out.Refs = append(out.Refs, t.Refs...)
	}
	return out
}
