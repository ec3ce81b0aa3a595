// Package lint holds netlist checks that run after the force pass.
package lint

import (
	"fmt"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// CheckBlockingMix warns about every blocking assignment to a signal that
// is also the target of a non-blocking assignment. Statements whose
// location suppresses BLKANDNBLK are skipped by the sink. It returns the
// number of offending statements, suppressed ones included.
func CheckBlockingMix(n *ir.Netlist, sink diag.Sink) int {
	nonBlocking := make(map[ir.VarScopeID]bool)
	n.ForEachStmt(func(_ ir.BlockID, _ ir.StmtID, st *ir.Statement) {
		if k, ok := st.Kind.(ir.AssignDly); ok {
			for _, vs := range writtenSignals(n, k.Lhs) {
				nonBlocking[vs] = true
			}
		}
	})
	if len(nonBlocking) == 0 {
		return 0
	}

	found := 0
	n.ForEachStmt(func(_ ir.BlockID, _ ir.StmtID, st *ir.Statement) {
		k, ok := st.Kind.(ir.Assign)
		if !ok {
			return
		}
		for _, vs := range writtenSignals(n, k.Lhs) {
			if !nonBlocking[vs] {
				continue
			}
			found++
			sink.Warn(ir.WarnBlkAndNblk, st.Loc,
				fmt.Sprintf("Unsupported: Blocked and non-blocking assignments to same variable: '%s'", n.PrettyName(vs)))
		}
	})
	return found
}

// writtenSignals lists the targets of an lvalue once each. Index
// expressions inside it are reads and are skipped.
func writtenSignals(n *ir.Netlist, lhs ir.ExprID) []ir.VarScopeID {
	var out []ir.VarScopeID
	seen := make(map[ir.VarScopeID]bool)
	n.ForEachRef(lhs, func(_ ir.ExprID, ref ir.VarRef) {
		if ref.Access == ir.Read || seen[ref.VarScope] {
			return
		}
		seen[ref.VarScope] = true
		out = append(out, ref.VarScope)
	})
	return out
}
