package engine

import "sync/atomic"

// Tunables collects every magic-number knob used by the pruning and
// extension logic in search.go. Grouping them as atomics rather than plain
// package vars lets a `setoption` handler adjust them between searches (for
// SPSA-style external tuning harnesses) without a data race against a
// worker mid-search, at the cost of an atomic load on each use; negamax
// reads each of these at most once or twice per node, so the overhead is
// immaterial next to move generation and evaluation.
type Tunables struct {
	// Reverse futility: prune when eval >= beta + margin*(depth-improving).
	RFPMaxDepth atomic.Int32
	RFPMargin   atomic.Int32

	// Razoring: verify with qsearch when eval <= alpha - base - margin*depth.
	RazorMaxDepth atomic.Int32
	RazorBase     atomic.Int32
	RazorMargin   atomic.Int32

	// Null move: R = (eval - beta + depth*DepthMul + Const) / Div.
	NMPMinDepth atomic.Int32
	NMPDepthMul atomic.Int32
	NMPConst    atomic.Int32
	NMPDiv      atomic.Int32

	// Late move pruning: limit = (Quad*d*d + Linear*d + Const) / (8 or 16).
	LMPQuad   atomic.Int32
	LMPLinear atomic.Int32
	LMPConst  atomic.Int32

	// SEE pruning of captures: skip when see < -Mul * depth * depth.
	SEEPruneMaxDepth atomic.Int32
	SEEPruneMul      atomic.Int32

	// LMR: r = ln(moveIndex) * ln(depth) * Mul/100 + Base/100, then
	// adjusted by history/Hd clamped to +-HistMax, PV, improving, check.
	LMRMul     atomic.Int32
	LMRBase    atomic.Int32
	LMRHistDiv atomic.Int32
	LMRHistMax atomic.Int32

	// Singular extensions.
	SingularMinDepth atomic.Int32
	SingularMargin   atomic.Int32

	// Aspiration window: start at Delta, widen by Widen percent per fail.
	AspirationDelta atomic.Int32
	AspirationWiden atomic.Int32
}

// NewTunables returns the default parameter set. The values are calibrated
// against the strict score > beta move-loop cutoff used in search.go;
// changing one without retuning its neighbors is rarely an improvement.
func NewTunables() *Tunables {
	t := &Tunables{}
	t.RFPMaxDepth.Store(8)
	t.RFPMargin.Store(75)

	t.RazorMaxDepth.Store(4)
	t.RazorBase.Store(125)
	t.RazorMargin.Store(200)

	t.NMPMinDepth.Store(3)
	t.NMPDepthMul.Store(340)
	t.NMPConst.Store(680)
	t.NMPDiv.Store(1024)

	t.LMPQuad.Store(4)
	t.LMPLinear.Store(12)
	t.LMPConst.Store(24)

	t.SEEPruneMaxDepth.Store(4)
	t.SEEPruneMul.Store(5)

	t.LMRMul.Store(45)
	t.LMRBase.Store(75)
	t.LMRHistDiv.Store(8192)
	t.LMRHistMax.Store(2)

	t.SingularMinDepth.Store(7)
	t.SingularMargin.Store(2)

	t.AspirationDelta.Store(14)
	t.AspirationWiden.Store(45)
	return t
}
