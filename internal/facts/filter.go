package facts

// FilterTablesByFiles returns a new Tables object containing only rows whose
// netlist path is present in the provided file set.
func FilterTablesByFiles(tables Tables, files map[string]bool) Tables {
	if len(files) == 0 {
		return emptyTables()
	}
	out := emptyTables()

	for _, row := range tables.Files {
		if files[row.Path] {
			out.Files = append(out.Files, row)
		}
	}
	out.Signals = filterRows(tables.Signals, func(r SignalRow) bool { return files[r.Netlist] })
	out.Blocks = filterRows(tables.Blocks, func(r BlockRow) bool { return files[r.Netlist] })
	out.Statements = filterRows(tables.Statements, func(r StatementRow) bool { return files[r.Netlist] })
	out.Refs = filterRows(tables.Refs, func(r RefRow) bool { return files[r.Netlist] })

	return out
}

// FilterTablesByScopes keeps rows that belong to one of the named scopes.
// File rows are kept as they are.
func FilterTablesByScopes(tables Tables, scopes map[string]bool) Tables {
	out := emptyTables()
	out.Files = append(out.Files, tables.Files...)
	out.Signals = filterRows(tables.Signals, func(r SignalRow) bool { return scopes[r.Scope] })
	out.Blocks = filterRows(tables.Blocks, func(r BlockRow) bool { return scopes[r.Scope] })
	out.Statements = filterRows(tables.Statements, func(r StatementRow) bool { return scopes[r.Scope] })
	out.Refs = filterRows(tables.Refs, func(r RefRow) bool { return scopes[r.Scope] })
	return out
}

// FilterDeltaByFiles returns a new Delta containing only rows for the specified files.
func FilterDeltaByFiles(delta Delta, files map[string]bool) Delta {
	if len(files) == 0 {
		return Delta{
			Added:   emptyTables(),
			Removed: emptyTables(),
		}
	}
	return Delta{
		Added:   FilterTablesByFiles(delta.Added, files),
		Removed: FilterTablesByFiles(delta.Removed, files),
	}
}

func filterRows[T any](rows []T, keep func(T) bool) []T {
	out := []T{}
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}
