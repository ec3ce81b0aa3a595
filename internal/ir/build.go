package ir

import "fmt"

// AddModule appends a module to the traversal order.
func (n *Netlist) AddModule(name string) ModuleID {
	id := ModuleID(len(n.modules))
	n.modules = append(n.modules, &Module{Name: name})
	n.Modules = append(n.Modules, id)
	return id
}

// NewVar allocates a declaration owned by v.Module without placing it in
// the module's declaration list.
func (n *Netlist) NewVar(v Var) VarID {
	id := VarID(len(n.vars))
	n.vars = append(n.vars, &v)
	if v.Forceable {
		n.ForceableSignals = true
	}
	return id
}

// AddVar allocates a declaration and appends it to its module.
func (n *Netlist) AddVar(v Var) VarID {
	id := n.NewVar(v)
	m := n.modules[v.Module]
	m.Vars = append(m.Vars, id)
	return id
}

// InsertVarsAfter splices ids into the module's declaration list right
// after the declaration anchor, keeping their order.
func (n *Netlist) InsertVarsAfter(anchor VarID, ids ...VarID) {
	m := n.modules[n.vars[anchor].Module]
	m.Vars = insertAfter(m.Vars, anchor, ids)
}

// AddScope instantiates module m.
func (n *Netlist) AddScope(m ModuleID, name string) ScopeID {
	id := ScopeID(len(n.scopes))
	n.scopes = append(n.scopes, &Scope{Name: name, Module: m})
	mod := n.modules[m]
	mod.Scopes = append(mod.Scopes, id)
	return id
}

// NewVarScope binds v to scope s without placing it in the scope's list.
func (n *Netlist) NewVarScope(s ScopeID, v VarID) VarScopeID {
	id := VarScopeID(len(n.varScopes))
	n.varScopes = append(n.varScopes, &VarScope{Var: v, Scope: s})
	return id
}

// AddVarScope binds v to scope s and appends the binding.
func (n *Netlist) AddVarScope(s ScopeID, v VarID) VarScopeID {
	id := n.NewVarScope(s, v)
	sc := n.scopes[s]
	sc.VarScopes = append(sc.VarScopes, id)
	return id
}

// InsertVarScopesAfter splices ids right after anchor in its scope.
func (n *Netlist) InsertVarScopesAfter(anchor VarScopeID, ids ...VarScopeID) {
	sc := n.scopes[n.varScopes[anchor].Scope]
	sc.VarScopes = insertAfter(sc.VarScopes, anchor, ids)
}

// LookupVarScope finds the binding of the declaration named name in s.
func (n *Netlist) LookupVarScope(s ScopeID, name string) (VarScopeID, bool) {
	for _, id := range n.scopes[s].VarScopes {
		if n.vars[n.varScopes[id].Var].Name == name {
			return id, true
		}
	}
	return 0, false
}

// AddBlock appends a block to scope s.
func (n *Netlist) AddBlock(s ScopeID, kind BlockKind, name string, stmts ...StmtID) BlockID {
	id := BlockID(len(n.blocks))
	n.blocks = append(n.blocks, &Block{Kind: kind, Name: name, Scope: s, Stmts: stmts})
	sc := n.scopes[s]
	sc.Blocks = append(sc.Blocks, id)
	return id
}

// NewStmt allocates a detached statement.
func (n *Netlist) NewStmt(k StatementKind, loc Loc) StmtID {
	switch k.(type) {
	case AssignForce, Release:
		n.ForceableSignals = true
	}
	id := StmtID(len(n.stmts))
	n.stmts = append(n.stmts, &Statement{Kind: k, Loc: loc})
	return id
}

// Delete marks a detached statement as dead.
func (n *Netlist) Delete(id StmtID) {
	n.stmts[id].Deleted = true
}

// NewExpr allocates an expression node.
func (n *Netlist) NewExpr(e Expr) ExprID {
	id := ExprID(len(n.exprs))
	n.exprs = append(n.exprs, e)
	return id
}

// ReplaceExpr overwrites the node at id. Parents keep pointing at id, so
// the new node takes the old one's place in the tree.
func (n *Netlist) ReplaceExpr(id ExprID, e Expr) {
	n.exprs[id] = e
}

// NewRef allocates a reference to vs.
func (n *Netlist) NewRef(vs VarScopeID, access Access, class RefClass) ExprID {
	return n.NewExpr(VarRef{VarScope: vs, Access: access, Class: class})
}

// NewConst allocates a literal.
func (n *Netlist) NewConst(v Number) ExprID {
	return n.NewExpr(Const{Value: v})
}

// NewArraySel allocates from[index].
func (n *Netlist) NewArraySel(from, index ExprID) ExprID {
	return n.NewExpr(ArraySel{From: from, Index: index})
}

// NewIndex allocates from[i] with a 32-bit constant index.
func (n *Netlist) NewIndex(from ExprID, i int) ExprID {
	return n.NewArraySel(from, n.NewConst(NewNumber(32, uint64(i))))
}

// CloneExpr deep-copies the tree rooted at id.
func (n *Netlist) CloneExpr(id ExprID) ExprID {
	switch e := n.exprs[id].(type) {
	case VarRef:
		return n.NewExpr(e)
	case Const:
		return n.NewExpr(e)
	case ArraySel:
		from := n.CloneExpr(e.From)
		return n.NewExpr(ArraySel{From: from, Index: n.CloneExpr(e.Index)})
	case Sel:
		return n.NewExpr(Sel{From: n.CloneExpr(e.From), LSB: e.LSB, Width: e.Width})
	case Concat:
		hi := n.CloneExpr(e.Hi)
		return n.NewExpr(Concat{Hi: hi, Lo: n.CloneExpr(e.Lo)})
	case And:
		l := n.CloneExpr(e.L)
		return n.NewExpr(And{L: l, R: n.CloneExpr(e.R)})
	case Or:
		l := n.CloneExpr(e.L)
		return n.NewExpr(Or{L: l, R: n.CloneExpr(e.R)})
	case Not:
		return n.NewExpr(Not{Operand: n.CloneExpr(e.Operand)})
	case Cond:
		c := n.CloneExpr(e.Cond)
		t := n.CloneExpr(e.Then)
		return n.NewExpr(Cond{Cond: c, Then: t, Else: n.CloneExpr(e.Else)})
	}
	panic(fmt.Sprintf("ir: unhandled expression %T", n.exprs[id]))
}

// Relinker remembers where a statement was detached from so that its
// replacement can be put back at the same position.
type Relinker struct {
	list *[]StmtID
	pos  int
}

// Detach removes the statement at position pos of list.
func Detach(list *[]StmtID, pos int) (StmtID, Relinker) {
	id := (*list)[pos]
	*list = append((*list)[:pos:pos], (*list)[pos+1:]...)
	return id, Relinker{list: list, pos: pos}
}

// Relink inserts ids where the detached statement used to be.
func (r Relinker) Relink(ids ...StmtID) {
	l := *r.list
	out := make([]StmtID, 0, len(l)+len(ids))
	out = append(out, l[:r.pos]...)
	out = append(out, ids...)
	out = append(out, l[r.pos:]...)
	*r.list = out
}

func insertAfter[T comparable](list []T, anchor T, ids []T) []T {
	for i, v := range list {
		if v != anchor {
			continue
		}
		out := make([]T, 0, len(list)+len(ids))
		out = append(out, list[:i+1]...)
		out = append(out, ids...)
		return append(out, list[i+1:]...)
	}
	panic(fmt.Sprintf("ir: insert anchor %v not in list", anchor))
}
