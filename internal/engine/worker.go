package engine

import (
	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/nnue"
)

// commandKind enumerates the orchestrator-to-worker protocol.
type commandKind uint8

const (
	cmdExit commandKind = iota
	cmdSearch
	cmdClearTT
	cmdResetData
)

// workerCommand is one slot of a worker's command channel. ClearTT carries
// a bucket range; commands that the orchestrator must wait on carry an ack
// channel.
type workerCommand struct {
	kind   commandKind
	lo, hi uint64
	ack    chan struct{}
}

// Worker is one search thread. Everything here is owned exclusively by the
// worker goroutine; sharing happens only through the engine's atomics and
// the transposition table.
type Worker struct {
	id  int
	eng *Engine
	cmd chan workerCommand

	pos  *board.Position
	nnue *nnue.Evaluator
	hist *History
	corr *CorrectionHistory
	tm   *TimeManager

	// Preallocated per-ply stacks; nothing on the search hot path
	// allocates.
	pv         [MaxPly + 2]pvLine
	prevMoves  [MaxPly + 2]prevMove
	prevEvals  [MaxPly + 2]Eval
	pathHashes [MaxPly + 2]uint64

	// Game-history hashes that already occurred twice inside the
	// halfmove-clock window; one more hit during search is a threefold.
	rootDoubled map[uint64]struct{}

	localNodes uint64
	seldepth   int
	limits     Limits
	reporter   bool

	// abortable stays false until the first iteration completes, so a
	// stop can never leave the search without a legal move.
	abortable bool

	bestMove       board.Move
	bestScore      Eval
	completedDepth int

	// Snapshot of the PV at the last completed iteration; the live
	// pv[0] buffer may hold a half-updated line from an aborted one.
	snapPV  [MaxPly]board.Move
	snapLen int
}

func newWorker(id int, eng *Engine) *Worker {
	w := &Worker{
		id:       id,
		eng:      eng,
		cmd:      make(chan workerCommand, 1),
		nnue:     nnue.NewEvaluator(eng.net),
		hist:     NewHistory(),
		corr:     NewCorrectionHistory(),
		tm:       NewTimeManager(),
		reporter: id == 0,
	}
	go w.run()
	return w
}

// run is the worker goroutine's command loop. Between searches the worker
// blocks here; a search returns to this loop only after it has fully
// unwound, which is what makes the orchestrator's rendezvous meaningful.
func (w *Worker) run() {
	for c := range w.cmd {
		switch c.kind {
		case cmdExit:
			return
		case cmdClearTT:
			w.eng.tt.ClearRange(c.lo, c.hi)
			c.ack <- struct{}{}
		case cmdResetData:
			w.resetData()
			c.ack <- struct{}{}
		case cmdSearch:
			w.search()
			w.eng.rendezvous <- w.id
		}
	}
}

// resetData is the "ucinewgame" reset: history and correction tables are
// zeroed (not merely decayed) and the accumulator is invalidated.
func (w *Worker) resetData() {
	w.hist.Reset()
	w.corr.Clear()
	w.nnue.Reset()
}

// reduceHistory keeps only the hashes that already appeared twice within
// the halfmove-clock window: those are exactly the positions where a
// single further occurrence during search completes a threefold. The
// current position's hash participates like any other.
func reduceHistory(hashes []uint64, halfmoveClock int) map[uint64]struct{} {
	doubled := make(map[uint64]struct{})
	start := len(hashes) - halfmoveClock - 1
	if start < 0 {
		start = 0
	}
	seen := make(map[uint64]int, len(hashes)-start)
	for _, h := range hashes[start:] {
		seen[h]++
		if seen[h] >= 2 {
			doubled[h] = struct{}{}
		}
	}
	return doubled
}

// search runs one full iterative-deepening search against the engine's
// current shared search configuration.
func (w *Worker) search() {
	w.eng.mu.RLock()
	w.pos = w.eng.spec.pos.Copy()
	w.limits = w.eng.spec.limits
	history := w.eng.spec.history
	w.eng.mu.RUnlock()

	w.rootDoubled = reduceHistory(history, w.pos.HalfMoveClock)
	w.localNodes = 0
	w.seldepth = 0
	w.abortable = false
	w.bestMove = board.NoMove
	w.bestScore = Cp(0)
	w.completedDepth = 0
	w.snapLen = 0
	w.pathHashes[0] = w.pos.Hash
	w.hist.Clear()
	w.nnue.Reset()

	if w.reporter {
		w.tm.Init(w.limits, w.pos.SideToMove)
	}

	maxDepth := MaxPly - 1
	if w.limits.Depth > 0 && w.limits.Depth < maxDepth {
		maxDepth = w.limits.Depth
	}

	var score Eval
	for depth := 1; depth <= maxDepth; depth++ {
		var s Eval
		var ok bool
		if depth >= 2 {
			s, ok = w.aspirate(score, depth)
		} else {
			s, ok = w.negamax(true, Eval(-Infinity), Eval(Infinity), depth, 0, board.NoMove)
		}
		if !ok {
			break
		}

		score = s
		w.completedDepth = depth
		w.bestScore = score
		if w.pv[0].n > 0 {
			w.bestMove = w.pv[0].moves[0]
			w.snapLen = copy(w.snapPV[:], w.pv[0].moves[:w.pv[0].n])
		}
		w.abortable = true

		if w.reporter {
			w.tm.Stable(w.bestMove)
			w.eng.emitProgress(w, false)
		}

		if w.eng.abort.Load() {
			break
		}
		if w.limits.MinNodes > 0 && w.eng.nodes.Load() >= w.limits.MinNodes {
			break
		}
		if w.reporter && w.tm.SoftExpired() {
			break
		}
	}

	// Flush the partial node burst so reported totals are exact.
	w.eng.nodes.Add(w.localNodes & (nodeBurst - 1))

	// The depth-1 iteration always completes, so a missing best move here
	// means the root truly has no legal moves (mate or stalemate).
	if w.bestMove == board.NoMove {
		if moves := w.pos.GenerateLegalMoves(); moves.Len() > 0 {
			w.bestMove = moves.Get(0)
		}
	}

	// First worker across the line stops the rest.
	w.eng.abort.Store(true)
}

// aspirate searches depth with a window centered on the previous
// iteration's score, widening geometrically on each failure. Only the bound
// that failed moves, and it saturates at ±Infinity.
func (w *Worker) aspirate(prev Eval, depth int) (Eval, bool) {
	t := w.eng.tunables
	delta := int(t.AspirationDelta.Load())
	widen := int(t.AspirationWiden.Load())

	alpha := prev.Sub(delta)
	beta := prev.Add(delta)

	for {
		s, ok := w.negamax(true, alpha, beta, depth, 0, board.NoMove)
		if !ok {
			return 0, false
		}
		switch {
		case s <= alpha:
			alpha = alpha.Sub(delta)
		case s >= beta:
			beta = beta.Add(delta)
		default:
			return s, true
		}
		delta += delta * widen / 100
	}
}

// currentPV copies the last completed iteration's principal variation.
func (w *Worker) currentPV() []board.Move {
	pv := make([]board.Move, w.snapLen)
	copy(pv, w.snapPV[:w.snapLen])
	return pv
}
