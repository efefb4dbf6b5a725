package engine

import (
	"math"

	"github.com/hailam/chesscore/internal/board"
)

// logTable caches ln(1)..ln(31) for the LMR formula; index 0 is unused.
var logTable [32]float64

func init() {
	for i := 1; i < 32; i++ {
		logTable[i] = math.Log(float64(i))
	}
}

func lnOf(v int) float64 {
	if v < 1 {
		v = 1
	}
	if v > 31 {
		v = 31
	}
	return logTable[v]
}

// nodeBurst is how many locally-counted nodes accumulate before a worker
// flushes to the shared counter and re-checks its limits. Cancellation
// liveness is bounded by this quantum.
const nodeBurst = 1024

// pvLine is one ply's principal-variation buffer. The stack of these is
// preallocated per worker; a PV node overwrites its line with
// [move] ++ child line.
type pvLine struct {
	moves [MaxPly]board.Move
	n     int
}

func (pv *pvLine) set(m board.Move, child *pvLine) {
	pv.moves[0] = m
	copy(pv.moves[1:], child.moves[:child.n])
	pv.n = child.n + 1
}

// prevMove records a played move and its mover for continuation-history
// indexing at descendant plies.
type prevMove struct {
	move  board.Move
	piece board.Piece
}

// visitNode does per-node accounting: bump the local counter and, once per
// burst, flush it to the shared counter and re-check every abort source.
// Returns false when the search must unwind. During the first iteration
// the worker ignores the abort flag so a legal best move always exists.
func (w *Worker) visitNode() bool {
	w.localNodes++
	if w.localNodes&(nodeBurst-1) != 0 {
		return true
	}

	w.eng.nodes.Add(nodeBurst)

	if !w.abortable {
		return true
	}
	if w.eng.abort.Load() {
		return false
	}
	if w.limits.Nodes > 0 && w.eng.nodes.Load() >= w.limits.Nodes {
		w.eng.abort.Store(true)
		return false
	}
	if w.reporter && w.tm.HardExpired() {
		w.eng.abort.Store(true)
		return false
	}
	return true
}

// bumpSeldepth tracks the deepest ply visited, locally and in the shared
// atomic maximum.
func (w *Worker) bumpSeldepth(ply int) {
	if ply <= w.seldepth {
		return
	}
	w.seldepth = ply
	for {
		cur := w.eng.seldepth.Load()
		if int32(ply) <= cur || w.eng.seldepth.CompareAndSwap(cur, int32(ply)) {
			return
		}
	}
}

// isRepetition reports whether the current position hash repeats either a
// doubled game-history hash (third occurrence overall) or an earlier
// position on the current search path (twofold inside the tree).
func (w *Worker) isRepetition(ply int) bool {
	h := w.pos.Hash
	if _, ok := w.rootDoubled[h]; ok {
		return true
	}
	limit := w.pos.HalfMoveClock
	for i := ply - 2; i >= 0 && limit >= 0; i, limit = i-2, limit-2 {
		if w.pathHashes[i] == h {
			return true
		}
	}
	return false
}

// negamax is the main alpha-beta recursion. The second return value is
// false when the shared abort flag fired and the node's result is
// unusable; callers unwind immediately and keep their previous best.
func (w *Worker) negamax(isPV bool, alpha, beta Eval, depth, ply int, excluded board.Move) (Eval, bool) {
	if depth <= 0 || ply >= MaxPly {
		return w.qsearch(isPV, alpha, beta, ply)
	}

	if !w.visitNode() {
		return 0, false
	}
	w.bumpSeldepth(ply)
	w.pv[ply].n = 0

	// TT probe. An exclusion search must ignore the entry entirely: both
	// the cutoff and the drafted move describe the unrestricted node.
	var ttMove board.Move
	var ttEntry TTEntry
	ttHit := false
	if excluded == board.NoMove {
		ttEntry, ttHit = w.eng.tt.Probe(w.pos.Hash)
		if ttHit {
			ttMove = ttEntry.BestMove
			if ttMove != board.NoMove && !w.pos.PseudoLegal(ttMove) {
				ttMove = board.NoMove
			}
			if !isPV && ply > 0 && int(ttEntry.Depth) >= depth {
				score := Eval(ttEntry.Score).PlyAdd(ply)
				switch ttEntry.Flag {
				case TTExact:
					return score, true
				case TTLowerBound:
					if score >= beta {
						return score, true
					}
				case TTUpperBound:
					if score <= alpha {
						return score, true
					}
				}
			}
		}
	}

	// Internal iterative reduction: a node with no drafted move at real
	// depth is cheaper to discover one level shallower.
	if !ttHit && depth > 3 && excluded == board.NoMove {
		depth--
	}

	inCheck := w.pos.InCheck()

	// Static eval through the TT cache; mate-band scores never land here.
	staticEval := w.cachedEval()
	w.prevEvals[ply] = staticEval

	improving := !inCheck && ply >= 2 && staticEval > w.prevEvals[ply-2]

	t := w.eng.tunables

	if !isPV && !inCheck && excluded == board.NoMove && ply > 0 {
		// Reverse futility: already so far above beta that a shallow
		// search will not bring it back.
		rfpDepth := depth
		if improving {
			rfpDepth--
		}
		if depth <= int(t.RFPMaxDepth.Load()) &&
			int32(staticEval) >= int32(beta)+t.RFPMargin.Load()*int32(rfpDepth) &&
			!beta.IsMate() {
			return staticEval, true
		}

		// Razoring: hopeless-looking nodes get a qsearch verification
		// instead of a full-width search.
		if depth <= int(t.RazorMaxDepth.Load()) &&
			int32(staticEval) <= int32(alpha)-t.RazorBase.Load()-t.RazorMargin.Load()*int32(depth) {
			score, ok := w.qsearch(false, alpha, beta, ply)
			if !ok {
				return 0, false
			}
			if score <= alpha {
				return score, true
			}
		}

		// Null move: hand the opponent a free tempo; if even that fails
		// high, the node is overwhelmingly a cut node. Skipped without
		// non-pawn material, where zugzwang breaks the logic.
		if staticEval >= beta && depth >= int(t.NMPMinDepth.Load()) && w.pos.HasNonPawnMaterial() {
			r := int((int32(SubEval(staticEval, beta)) + int32(depth)*t.NMPDepthMul.Load() + t.NMPConst.Load()) / t.NMPDiv.Load())
			if r > depth-1 {
				r = depth - 1
			}

			undo := w.pos.MakeNullMove()
			w.prevMoves[ply] = prevMove{}
			w.pathHashes[ply] = undo.Hash
			score, ok := w.negamax(false, beta.Negate(), beta.Negate().Add(1), depth-1-r, ply+1, board.NoMove)
			w.pos.UnmakeNullMove(undo)
			if !ok {
				return 0, false
			}
			score = score.Negate()
			if score >= beta {
				if score.IsMate() {
					return beta, true
				}
				return score, true
			}
		}
	}

	moves := w.pos.GenerateLegalMoves()

	// 50-move rule: a draw claim is available, provided the side to move
	// is not already mated (no legal move while in check).
	if w.pos.HalfMoveClock >= 100 && moves.Len() > 0 {
		return Cp(0), true
	}
	if ply > 0 && w.pos.IsInsufficientMaterial() {
		return Cp(0), true
	}

	// Singular extension probe: when the drafted move's entry is strong
	// enough, verify whether every alternative fails a margin below it.
	singularExt := 0
	if excluded == board.NoMove && ttHit && ttMove != board.NoMove &&
		depth >= int(t.SingularMinDepth.Load()) &&
		int(ttEntry.Depth) >= depth-3 &&
		(ttEntry.Flag == TTLowerBound || ttEntry.Flag == TTExact) {
		ttScore := Eval(ttEntry.Score).PlyAdd(ply)
		if !ttScore.IsMate() {
			sBeta := ttScore.Sub(int(t.SingularMargin.Load()) * depth)
			sDepth := (depth - 1) / 2
			sScore, ok := w.negamax(false, sBeta.Sub(1), sBeta, sDepth, ply, ttMove)
			if !ok {
				return 0, false
			}
			if sScore < sBeta {
				singularExt = 1
			} else if sBeta >= beta {
				// Even with the drafted move excluded something beats
				// beta: this node fails high without further work.
				return sBeta, true
			}
		}
	}

	picker := NewMovePicker(w.pos, w.hist, moves, ply,
		ttMove, w.prevAt(ply, 1).move, w.prevAt(ply, 2).move, excluded)

	nodeExt := 0
	if inCheck {
		nodeExt = 1
	}

	origAlpha := alpha
	bestScore := Eval(-Infinity)
	bestMove := board.NoMove
	var quietsTried [64]board.Move
	quietCount := 0
	moveIndex := 0

	for {
		move, _, ok := picker.Next()
		if !ok {
			break
		}
		if move == excluded {
			continue
		}

		isQuiet := move.IsQuiet(w.pos)

		// Late move pruning: deep into the ordered quiets of a non-PV
		// node with a sane best score, the remainder almost never matter.
		if !isPV && isQuiet && !inCheck && !bestScore.Losing() && moveIndex > 0 {
			d := int32(depth)
			div := int32(16)
			if improving {
				div = 8
			}
			limit := int((t.LMPQuad.Load()*d*d + t.LMPLinear.Load()*d + t.LMPConst.Load()) / div)
			if moveIndex >= limit {
				continue
			}
		}

		// SEE pruning on captures at shallow depth.
		if !isPV && !isQuiet && !bestScore.Losing() &&
			depth < int(t.SEEPruneMaxDepth.Load()) && moveIndex > 0 {
			threshold := -int(t.SEEPruneMul.Load()) * depth * depth
			if !SeeGe(w.pos, move, threshold) {
				continue
			}
		}

		// History must be read before the move is made: the scores are
		// indexed by the mover still standing on its from-square.
		histScore := 0
		if isQuiet {
			histScore = int(w.hist.QuietScore(w.pos, move, w.prevAt(ply, 1).move, w.prevAt(ply, 2).move))
		}

		movingPiece := w.pos.PieceAt(move.From())
		undo := w.pos.MakeMove(move)
		if !undo.Valid {
			w.pos.UnmakeMove(move, undo)
			continue
		}
		w.prevMoves[ply] = prevMove{move: move, piece: movingPiece}
		w.pathHashes[ply] = undo.Hash

		childInCheck := w.pos.InCheck()
		newDepth := depth - 1 + nodeExt

		var score Eval
		aborted := false

		if ply > 0 && w.isRepetition(ply+1) {
			score = Cp(0)
		} else if moveIndex == 0 {
			if move == ttMove {
				newDepth += singularExt
			}
			var s Eval
			s, ok = w.negamax(isPV, beta.Negate(), alpha.Negate(), newDepth, ply+1, board.NoMove)
			aborted = !ok
			score = s.Negate()
		} else {
			// LMR: reduce later, quieter, less promising moves and
			// verify anything that surprises with a re-search.
			r := int(lnOf(moveIndex)*lnOf(depth)*float64(t.LMRMul.Load())/100 + float64(t.LMRBase.Load())/100)
			if isQuiet {
				adj := histScore / int(t.LMRHistDiv.Load())
				hmax := int(t.LMRHistMax.Load())
				if adj > hmax {
					adj = hmax
				}
				if adj < -hmax {
					adj = -hmax
				}
				r -= adj
			}
			if isPV {
				r--
			}
			if improving {
				r--
			}
			if childInCheck {
				r--
			}
			if r < 0 || !isQuiet {
				r = 0
			}

			var s Eval
			s, ok = w.negamax(false, alpha.Negate().Sub(1), alpha.Negate(), newDepth-r, ply+1, board.NoMove)
			if ok && s.Negate() > alpha && r > 0 {
				s, ok = w.negamax(false, alpha.Negate().Sub(1), alpha.Negate(), newDepth, ply+1, board.NoMove)
			}
			if ok && isPV && s.Negate() > alpha {
				s, ok = w.negamax(true, beta.Negate(), alpha.Negate(), newDepth, ply+1, board.NoMove)
			}
			aborted = !ok
			score = s.Negate()
		}

		w.pos.UnmakeMove(move, undo)
		if aborted {
			return 0, false
		}

		if isQuiet && quietCount < len(quietsTried) {
			quietsTried[quietCount] = move
			quietCount++
		}
		moveIndex++

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				if isPV {
					w.pv[ply].set(move, &w.pv[ply+1])
				}
			}
		}

		// Strict comparison, deliberately: the pruning margins and history
		// weights were tuned against score == beta falling through to the
		// next move rather than cutting off.
		if score > beta {
			if isQuiet {
				w.hist.UpdateKillers(move, ply)
				w.hist.UpdateCounterMove(w.prevAt(ply, 1).move, move, w.pos)
				w.hist.UpdateQuiet(w.pos, move, depth, true, w.prevAt(ply, 1).move, w.prevAt(ply, 2).move)
				for i := 0; i < quietCount-1; i++ {
					w.hist.UpdateQuiet(w.pos, quietsTried[i], depth, false, w.prevAt(ply, 1).move, w.prevAt(ply, 2).move)
				}
			} else {
				w.updateCaptureHistory(move, depth, true)
			}
			break
		}
	}

	if bestMove == board.NoMove && moveIndex == 0 {
		if inCheck {
			return Mated(ply), true
		}
		if excluded != board.NoMove {
			// Only the excluded move was legal; report the exclusion
			// search as hopeless so the move registers as singular.
			return Mated(ply), true
		}
		return Cp(0), true
	}

	if excluded == board.NoMove {
		flag := TTExact
		storeMove := bestMove
		switch {
		case bestScore >= beta:
			flag = TTLowerBound
		case bestScore <= origAlpha:
			flag = TTUpperBound
			// A fail-low learned nothing about move ordering; keep the
			// previously drafted move if there was one.
			if ttMove != board.NoMove {
				storeMove = ttMove
			}
		}
		if flag == TTExact && !inCheck && depth >= 2 && !bestScore.IsMate() {
			w.corr.Update(w.pos, int(bestScore), int(staticEval), depth)
		}
		w.eng.tt.Store(w.pos.Hash, depth, int16(bestScore.PlySub(ply)), flag, storeMove, isPV)
	}

	return bestScore, true
}

// updateCaptureHistory applies the capture-history gravity update for a
// capture that did (or did not) produce a cutoff. Called with the move
// already unmade.
func (w *Worker) updateCaptureHistory(m board.Move, depth int, good bool) {
	attacker := w.pos.PieceAt(m.From())
	var victim board.PieceType
	if m.IsEnPassant() {
		victim = board.Pawn
	} else if cp := w.pos.PieceAt(m.To()); cp != board.NoPiece {
		victim = cp.Type()
	} else {
		return
	}
	w.hist.UpdateCapture(attacker, m.To(), victim, depth, good)
}

// prevAt returns the move played n plies above the current node, or a zero
// record when the node is too close to the root (or a null move
// intervened).
func (w *Worker) prevAt(ply, n int) prevMove {
	if ply-n < 0 {
		return prevMove{}
	}
	return w.prevMoves[ply-n]
}

// qsearch extends the search through captures until the position is quiet
// enough for the static eval to stand.
func (w *Worker) qsearch(isPV bool, alpha, beta Eval, ply int) (Eval, bool) {
	if !w.visitNode() {
		return 0, false
	}
	w.bumpSeldepth(ply)
	if isPV {
		w.pv[ply].n = 0
	}

	var ttMove board.Move
	ttEntry, ttHit := w.eng.tt.Probe(w.pos.Hash)
	if ttHit {
		ttMove = ttEntry.BestMove
		if ttMove != board.NoMove && !w.pos.PseudoLegal(ttMove) {
			ttMove = board.NoMove
		}
		if !isPV {
			score := Eval(ttEntry.Score).PlyAdd(ply)
			switch ttEntry.Flag {
			case TTExact:
				return score, true
			case TTLowerBound:
				if score >= beta {
					return score, true
				}
			case TTUpperBound:
				if score <= alpha {
					return score, true
				}
			}
		}
	}

	inCheck := w.pos.InCheck()
	if ply >= MaxPly {
		return w.cachedEval(), true
	}
	origAlpha := alpha

	var bestScore Eval
	if inCheck {
		bestScore = Mated(ply)
	} else {
		standPat := w.cachedEval()
		if standPat > beta {
			return standPat, true
		}
		if standPat > alpha {
			alpha = standPat
		}
		bestScore = standPat
	}

	var moves *board.MoveList
	if inCheck {
		moves = w.pos.GenerateLegalMoves()
	} else {
		moves = w.pos.GenerateCaptures()
	}

	picker := NewMovePicker(w.pos, w.hist, moves, ply,
		ttMove, w.prevAt(ply, 1).move, w.prevAt(ply, 2).move, board.NoMove)

	bestMove := board.NoMove

	for {
		move, _, ok := picker.Next()
		if !ok {
			break
		}

		// Losing captures are not worth extending the horizon for.
		if !inCheck && move.IsCapture(w.pos) && !SeeGe(w.pos, move, 0) {
			continue
		}

		movingPiece := w.pos.PieceAt(move.From())
		undo := w.pos.MakeMove(move)
		if !undo.Valid {
			w.pos.UnmakeMove(move, undo)
			continue
		}
		w.prevMoves[ply] = prevMove{move: move, piece: movingPiece}

		score, ok := w.qsearch(isPV, beta.Negate(), alpha.Negate(), ply+1)
		w.pos.UnmakeMove(move, undo)
		if !ok {
			return 0, false
		}
		score = score.Negate()

		if score > bestScore {
			bestScore = score
			bestMove = move
			if score > alpha {
				alpha = score
				if isPV {
					w.pv[ply].set(move, &w.pv[ply+1])
				}
			}
		}
		// Same strict boundary as the main search's cutoff.
		if score > beta {
			break
		}
	}

	flag := TTExact
	switch {
	case bestScore >= beta:
		flag = TTLowerBound
	case bestScore <= origAlpha:
		flag = TTUpperBound
	}
	w.eng.tt.Store(w.pos.Hash, 0, int16(bestScore.PlySub(ply)), flag, bestMove, false)

	return bestScore, true
}
