// Package force lowers procedural force/release into plain logic.
//
// =============================================================================
// THE TRANSFORMATION
// =============================================================================
//
// For each forced signal <name> three shadow signals are added:
//   - <name>__VforceRd:  a net of the same type, read in place of <name>
//   - <name>__VforceEn:  the force enable, one bit per forceable bit/element
//   - <name>__VforceVal: the forced value
//
// and per scope:
//
//	initial <name>__VforceEn = 0;
//	assign  <name>__VforceRd = <name>__VforceEn ? <name>__VforceVal : <name>;
//
// (bitwise (en & val) | (~en & orig) for ranged signals, per element for
// unpacked arrays).
//
// `force L = R` becomes
//
//	L__VforceEn = '1; L__VforceVal = R; L__VforceRd = R;
//
// and `release L` becomes
//
//	L__VforceRd = L;                      // nets
//	L = L__VforceEn ? L__VforceVal : L;   // variables keep the forced value
//	L__VforceEn = 0;
//
// Finally every remaining read of a forced signal is redirected to its read
// shadow, while writes keep targeting the true signal.
// =============================================================================
package force

import (
	"errors"

	"github.com/robert-at-pretension-io/hdl-force/internal/diag"
	"github.com/robert-at-pretension-io/hdl-force/internal/ir"
)

// ErrAlreadyLowered is returned when the pass is asked to run twice on the
// same netlist.
var ErrAlreadyLowered = errors.New("force: netlist already lowered")

// Options configures ForceAll.
type Options struct {
	// Dump, if set, is called once after the pass completes.
	Dump func(stage string, n *ir.Netlist)
}

// Stats counts what the pass did.
type Stats struct {
	Forces     int `json:"forces"`
	Releases   int `json:"releases"`
	Signals    int `json:"signals"`
	Shadows    int `json:"shadows"`
	Retargeted int `json:"retargeted"`
}

// ForceAll converts every forceable signal and every force/release
// statement of n.
func ForceAll(n *ir.Netlist, sink diag.Sink, opts Options) (Stats, error) {
	if n.ForceLowered {
		return Stats{}, ErrAlreadyLowered
	}
	if !n.HasForceableSignals() {
		return Stats{}, nil
	}
	c := NewConverter(n, sink)
	c.Run()
	n.ForceLowered = true
	if opts.Dump != nil {
		opts.Dump("force", n)
	}
	return c.Stats(), nil
}
