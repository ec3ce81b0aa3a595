package netlist

import (
	"encoding/json"
	"math/big"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// Parse unmarshals a document without building it.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "netlist: parse")
	}
	return &f, nil
}

// Decode parses data and builds the netlist it describes. An empty
// constraint means DefaultConstraint.
func Decode(data []byte, constraint string) (*ir.Netlist, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return f.Build(constraint)
}

// CheckVersion reports whether the document's format version satisfies
// constraint.
func (f *File) CheckVersion(constraint string) error {
	if constraint == "" {
		constraint = DefaultConstraint
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "netlist: bad version constraint %q", constraint)
	}
	if f.FormatVersion == "" {
		return errors.New("netlist: missing format_version")
	}
	v, err := semver.NewVersion(f.FormatVersion)
	if err != nil {
		return errors.Wrapf(err, "netlist: bad format_version %q", f.FormatVersion)
	}
	if !c.Check(v) {
		return errors.Errorf("netlist: format_version %s does not satisfy %s", v, constraint)
	}
	return nil
}

// Build converts the document into an ir.Netlist.
func (f *File) Build(constraint string) (*ir.Netlist, error) {
	if err := f.CheckVersion(constraint); err != nil {
		return nil, err
	}
	b := &builder{
		f:      f,
		n:      ir.New(),
		scopes: make(map[string]ir.ScopeID),
		names:  make(map[ir.ScopeID]map[string]ir.VarScopeID),
	}
	if err := b.declare(); err != nil {
		return nil, err
	}
	if err := b.blocks(); err != nil {
		return nil, err
	}
	b.n.ForceLowered = f.ForceLowered
	return b.n, nil
}

type builder struct {
	f      *File
	n      *ir.Netlist
	scopes map[string]ir.ScopeID
	names  map[ir.ScopeID]map[string]ir.VarScopeID
}

func (b *builder) loc(file string, line int) ir.Loc {
	if file == "" {
		file = b.f.Source
	}
	return ir.Loc{File: file, Line: line}
}

// declare creates modules, declarations, scopes and var scopes. Blocks
// come later because references may name any scope.
func (b *builder) declare() error {
	for _, m := range b.f.Modules {
		mid := b.n.AddModule(m.Name)
		vars := make(map[string]ir.VarID, len(m.Vars))
		for _, v := range m.Vars {
			if _, dup := vars[v.Name]; dup {
				return errors.Errorf("netlist: module %s: duplicate signal %q", m.Name, v.Name)
			}
			kind, err := parseVarKind(v.Kind)
			if err != nil {
				return errors.Wrapf(err, "module %s: signal %s", m.Name, v.Name)
			}
			t, err := buildType(v.Type)
			if err != nil {
				return errors.Wrapf(err, "module %s: signal %s", m.Name, v.Name)
			}
			vars[v.Name] = b.n.AddVar(ir.Var{
				Name:      v.Name,
				Kind:      kind,
				Type:      t,
				Forceable: v.Forceable,
				PrimaryIO: v.PrimaryIO,
				Public:    v.Public,
				Module:    mid,
				Loc:       b.loc(v.File, v.Line),
			})
		}
		for _, s := range m.Scopes {
			if _, dup := b.scopes[s.Name]; dup {
				return errors.Errorf("netlist: duplicate scope %q", s.Name)
			}
			sid := b.n.AddScope(mid, s.Name)
			b.scopes[s.Name] = sid
			b.names[sid] = make(map[string]ir.VarScopeID)

			names := s.Vars
			if names == nil {
				for _, v := range m.Vars {
					names = append(names, v.Name)
				}
			}
			for _, name := range names {
				id, ok := vars[name]
				if !ok {
					return errors.Errorf("netlist: scope %s: unknown signal %q", s.Name, name)
				}
				b.names[sid][name] = b.n.AddVarScope(sid, id)
			}
		}
	}
	return nil
}

func (b *builder) blocks() error {
	for _, m := range b.f.Modules {
		for _, s := range m.Scopes {
			sid := b.scopes[s.Name]
			for _, blk := range s.Blocks {
				kind, err := parseBlockKind(blk.Kind)
				if err != nil {
					return errors.Wrapf(err, "scope %s", s.Name)
				}
				stmts, err := b.stmts(sid, blk.Stmts)
				if err != nil {
					return errors.Wrapf(err, "scope %s: block %s", s.Name, blk.Name)
				}
				b.n.AddBlock(sid, kind, blk.Name, stmts...)
			}
		}
	}
	return nil
}

func (b *builder) stmts(sid ir.ScopeID, in []Stmt) ([]ir.StmtID, error) {
	out := make([]ir.StmtID, 0, len(in))
	for _, st := range in {
		id, err := b.stmt(sid, st)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", st.Line)
		}
		out = append(out, id)
	}
	return out, nil
}

func (b *builder) stmt(sid ir.ScopeID, st Stmt) (ir.StmtID, error) {
	loc := b.loc(st.File, st.Line)
	for _, name := range st.NoWarn {
		code, ok := ir.ParseWarnCode(name)
		if !ok {
			return 0, errors.Errorf("unknown warning %q", name)
		}
		loc = loc.WarnOff(code)
	}

	if st.Kind == "if" {
		cond, err := b.expr(sid, st.Cond, ir.Read)
		if err != nil {
			return 0, errors.Wrap(err, "cond")
		}
		then, err := b.stmts(sid, st.Then)
		if err != nil {
			return 0, err
		}
		els, err := b.stmts(sid, st.Else)
		if err != nil {
			return 0, err
		}
		return b.n.NewStmt(&ir.If{Cond: cond, Then: then, Else: els}, loc), nil
	}

	lhs, err := b.expr(sid, st.Lhs, ir.Write)
	if err != nil {
		return 0, errors.Wrap(err, "lhs")
	}
	if st.Kind == "release" {
		return b.n.NewStmt(ir.Release{Lhs: lhs}, loc), nil
	}
	rhs, err := b.expr(sid, st.Rhs, ir.Read)
	if err != nil {
		return 0, errors.Wrap(err, "rhs")
	}
	switch st.Kind {
	case "assign":
		return b.n.NewStmt(ir.Assign{Lhs: lhs, Rhs: rhs}, loc), nil
	case "assigndly":
		return b.n.NewStmt(ir.AssignDly{Lhs: lhs, Rhs: rhs}, loc), nil
	case "assignw":
		return b.n.NewStmt(ir.AssignW{Lhs: lhs, Rhs: rhs}, loc), nil
	case "force":
		return b.n.NewStmt(ir.AssignForce{Lhs: lhs, Rhs: rhs}, loc), nil
	}
	return 0, errors.Errorf("unknown statement kind %q", st.Kind)
}

// expr builds e. References without an explicit access take def: write
// on the lvalue spine, read everywhere else.
func (b *builder) expr(sid ir.ScopeID, e *Expr, def ir.Access) (ir.ExprID, error) {
	if e == nil {
		return 0, errors.New("missing expression")
	}
	n := b.n
	switch e.Op {
	case "ref":
		vs, err := b.resolve(sid, e)
		if err != nil {
			return 0, err
		}
		access := def
		if e.Access != "" {
			if access, err = parseAccess(e.Access); err != nil {
				return 0, err
			}
		}
		class := ir.Rewritable
		if e.Bypass {
			class = ir.Bypass
		}
		return n.NewRef(vs, access, class), nil
	case "const":
		if e.Width <= 0 {
			return 0, errors.Errorf("const: bad width %d", e.Width)
		}
		v, ok := new(big.Int).SetString(e.Value, 16)
		if !ok || v.Sign() < 0 {
			return 0, errors.Errorf("const: bad hex value %q", e.Value)
		}
		return n.NewConst(ir.Number{Width: e.Width, Value: ir.Truncate(v, e.Width)}), nil
	case "arraysel":
		from, err := b.expr(sid, e.From, def)
		if err != nil {
			return 0, err
		}
		index, err := b.expr(sid, e.Index, ir.Read)
		if err != nil {
			return 0, err
		}
		return n.NewArraySel(from, index), nil
	case "sel":
		from, err := b.expr(sid, e.From, def)
		if err != nil {
			return 0, err
		}
		if e.Width <= 0 || e.LSB < 0 {
			return 0, errors.Errorf("sel: bad range lsb=%d width=%d", e.LSB, e.Width)
		}
		return n.NewExpr(ir.Sel{From: from, LSB: e.LSB, Width: e.Width}), nil
	case "concat":
		ops, err := b.operands(sid, def, e.Hi, e.Lo)
		if err != nil {
			return 0, err
		}
		return n.NewExpr(ir.Concat{Hi: ops[0], Lo: ops[1]}), nil
	case "and":
		ops, err := b.operands(sid, ir.Read, e.L, e.R)
		if err != nil {
			return 0, err
		}
		return n.NewExpr(ir.And{L: ops[0], R: ops[1]}), nil
	case "or":
		ops, err := b.operands(sid, ir.Read, e.L, e.R)
		if err != nil {
			return 0, err
		}
		return n.NewExpr(ir.Or{L: ops[0], R: ops[1]}), nil
	case "not":
		ops, err := b.operands(sid, ir.Read, e.Operand)
		if err != nil {
			return 0, err
		}
		return n.NewExpr(ir.Not{Operand: ops[0]}), nil
	case "cond":
		ops, err := b.operands(sid, ir.Read, e.Cond, e.Then, e.Else)
		if err != nil {
			return 0, err
		}
		return n.NewExpr(ir.Cond{Cond: ops[0], Then: ops[1], Else: ops[2]}), nil
	}
	return 0, errors.Errorf("unknown expression op %q", e.Op)
}

func (b *builder) operands(sid ir.ScopeID, def ir.Access, in ...*Expr) ([]ir.ExprID, error) {
	out := make([]ir.ExprID, len(in))
	for i, e := range in {
		id, err := b.expr(sid, e, def)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

func (b *builder) resolve(sid ir.ScopeID, e *Expr) (ir.VarScopeID, error) {
	if e.Scope != "" {
		other, ok := b.scopes[e.Scope]
		if !ok {
			return 0, errors.Errorf("ref: unknown scope %q", e.Scope)
		}
		sid = other
	}
	vs, ok := b.names[sid][e.Var]
	if !ok {
		return 0, errors.Errorf("ref: no signal %q in scope %s", e.Var, b.n.Scope(sid).Name)
	}
	return vs, nil
}

func buildType(t Type) (ir.DType, error) {
	switch t.Kind {
	case "scalar":
		return ir.ScalarType{}, nil
	case "vector":
		if t.Width <= 0 {
			return nil, errors.Errorf("vector: bad width %d", t.Width)
		}
		return ir.VectorType{Width: t.Width}, nil
	case "array":
		if t.Elem == nil || t.Size <= 0 {
			return nil, errors.New("array: needs elem and a positive size")
		}
		elem, err := buildType(*t.Elem)
		if err != nil {
			return nil, errors.Wrap(err, "array elem")
		}
		return ir.UnpackedArrayType{Elem: elem, Size: t.Size}, nil
	case "opaque":
		if t.Width <= 0 {
			return nil, errors.Errorf("opaque %s: bad width %d", t.Name, t.Width)
		}
		return ir.OpaqueType{Name: t.Name, Width: t.Width}, nil
	}
	return nil, errors.Errorf("unknown type kind %q", t.Kind)
}

func parseVarKind(s string) (ir.VarKind, error) {
	switch s {
	case "net":
		return ir.Net, nil
	case "var":
		return ir.Variable, nil
	}
	return 0, errors.Errorf("unknown signal kind %q", s)
}

func parseBlockKind(s string) (ir.BlockKind, error) {
	switch s {
	case "initial":
		return ir.BlockInitial, nil
	case "comb":
		return ir.BlockCombo, nil
	case "always":
		return ir.BlockAlways, nil
	}
	return 0, errors.Errorf("unknown block kind %q", s)
}

func parseAccess(s string) (ir.Access, error) {
	switch s {
	case "read":
		return ir.Read, nil
	case "write":
		return ir.Write, nil
	case "readwrite":
		return ir.ReadWrite, nil
	}
	return 0, errors.Errorf("unknown access %q", s)
}
