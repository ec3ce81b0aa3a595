package force

import "github.com/robert-at-pretension-io/hdl-force/internal/ir"

// retargetReads redirects every rewritable read of a forced signal to its
// read shadow. Writes keep the true signal and bypass reads keep
// observing it.
func (c *Converter) retargetReads() {
	c.n.ForEachStmt(func(_ ir.BlockID, _ ir.StmtID, st *ir.Statement) {
		for _, root := range ir.StmtExprs(st.Kind) {
			c.n.ForEachRef(root, func(id ir.ExprID, ref ir.VarRef) {
				s, ok := c.scopes[ref.VarScope]
				if !ok || ref.Class == ir.Bypass {
					return
				}
				switch ref.Access {
				case ir.Read:
					c.n.ReplaceExpr(id, ir.VarRef{VarScope: s.Rd, Access: ir.Read, Class: ref.Class})
					c.stats.Retargeted++
				case ir.ReadWrite:
					c.sink.Error(st.Loc, "Unsupported: Signals used via read-write reference cannot be forced")
				case ir.Write:
				}
			})
		}
	})
}
