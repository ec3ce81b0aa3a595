package ir

// RefSite is a reference found by CollectRefs.
type RefSite struct {
	ID     ExprID
	Parent ExprID // zero for the root
	Ref    VarRef
}

// WalkExpr calls fn for every node of the tree at root in pre-order.
func (n *Netlist) WalkExpr(root ExprID, fn func(id, parent ExprID)) {
	n.walkExpr(root, 0, fn)
}

func (n *Netlist) walkExpr(id, parent ExprID, fn func(id, parent ExprID)) {
	fn(id, parent)
	for _, c := range Children(n.exprs[id]) {
		n.walkExpr(c, id, fn)
	}
}

// CollectRefs snapshots every reference under root. Callers may replace
// nodes while iterating the result.
func (n *Netlist) CollectRefs(root ExprID) []RefSite {
	var out []RefSite
	n.WalkExpr(root, func(id, parent ExprID) {
		if ref, ok := n.exprs[id].(VarRef); ok {
			out = append(out, RefSite{ID: id, Parent: parent, Ref: ref})
		}
	})
	return out
}

// ForEachRef calls fn for every reference under root.
func (n *Netlist) ForEachRef(root ExprID, fn func(id ExprID, ref VarRef)) {
	for _, site := range n.CollectRefs(root) {
		fn(site.ID, site.Ref)
	}
}

// ForEachStmt visits every live statement of every block in module
// order, descending into nested statement lists.
func (n *Netlist) ForEachStmt(fn func(b BlockID, id StmtID, st *Statement)) {
	for _, mid := range n.Modules {
		for _, sid := range n.modules[mid].Scopes {
			for _, bid := range n.scopes[sid].Blocks {
				n.forEachStmtIn(bid, n.blocks[bid].Stmts, fn)
			}
		}
	}
}

func (n *Netlist) forEachStmtIn(b BlockID, list []StmtID, fn func(BlockID, StmtID, *Statement)) {
	for _, id := range list {
		st := n.stmts[id]
		if st.Deleted {
			continue
		}
		fn(b, id, st)
		if k, ok := st.Kind.(*If); ok {
			n.forEachStmtIn(b, k.Then, fn)
			n.forEachStmtIn(b, k.Else, fn)
		}
	}
}

// ForEachVarScope visits every var scope in module/scope order.
func (n *Netlist) ForEachVarScope(fn func(id VarScopeID)) {
	for _, mid := range n.Modules {
		for _, sid := range n.modules[mid].Scopes {
			for _, vs := range n.scopes[sid].VarScopes {
				fn(vs)
			}
		}
	}
}
