package facts

import "strconv"

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the delta has no rows at all.
func (d Delta) Empty() bool {
	return d.Added.rows() == 0 && d.Removed.rows() == 0
}

func (t Tables) rows() int {
	return len(t.Files) + len(t.Signals) + len(t.Blocks) + len(t.Statements) + len(t.Refs)
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffFileRows(from.Files, to.Files)
	out.Signals = diffSignalRows(from.Signals, to.Signals)
	out.Blocks = diffBlockRows(from.Blocks, to.Blocks)
	out.Statements = diffStatementRows(from.Statements, to.Statements)
	out.Refs = diffRefRows(from.Refs, to.Refs)

	return out
}

func emptyTables() Tables {
	return Tables{
		Files:      []FileRow{},
		Signals:    []SignalRow{},
		Blocks:     []BlockRow{},
		Statements: []StatementRow{},
		Refs:       []RefRow{},
	}
}

func diffFileRows(from, to []FileRow) []FileRow {
	return diffRows(from, to, func(r FileRow) string {
		return r.Path + "|" + intKey(r.Modules) + "|" + boolKey(r.ForceLowered)
	})
}

func diffSignalRows(from, to []SignalRow) []SignalRow {
	return diffRows(from, to, func(r SignalRow) string {
		return r.Netlist + "|" + r.Scope + "|" + r.Name + "|" + r.Kind + "|" + r.Type + "|" +
			boolKey(r.Forceable) + "|" + boolKey(r.Public) + "|" + boolKey(r.PrimaryIO)
	})
}

func diffBlockRows(from, to []BlockRow) []BlockRow {
	return diffRows(from, to, func(r BlockRow) string {
		return r.Netlist + "|" + r.Scope + "|" + intKey(r.Index) + "|" + r.Name + "|" + r.Kind + "|" + intKey(r.Statements)
	})
}

func diffStatementRows(from, to []StatementRow) []StatementRow {
	return diffRows(from, to, func(r StatementRow) string {
		return r.Netlist + "|" + intKey(r.ID) + "|" + r.Scope + "|" + intKey(r.Block) + "|" + r.Kind + "|" + r.NoWarn
	})
}

func diffRefRows(from, to []RefRow) []RefRow {
	return diffRows(from, to, func(r RefRow) string {
		return r.Netlist + "|" + intKey(r.Stmt) + "|" + r.Side + "|" + r.SignalScope + "|" + r.Signal + "|" +
			r.Access + "|" + boolKey(r.Bypass)
	})
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	var diff []T
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	if diff == nil {
		diff = []T{}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func intKey(v int) string { return strconv.Itoa(v) }
