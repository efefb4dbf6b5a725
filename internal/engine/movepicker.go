package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// MovePicker produces moves for a single search node in priority order:
// TT move first, then captures ranked by MVV-LVA plus capture history
// (with losing captures demoted below quiets), then quiets ranked by
// butterfly and continuation history, with killers and the counter-move
// slotted in among them. It consumes lazily via selection sort, so nodes
// that cut off early never pay to fully sort the tail of the move list.
type MovePicker struct {
	moves  *board.MoveList
	scores []int
	index  int
}

// NewMovePicker scores every pseudo-legal move in moves for the given node
// context and returns a picker ready to hand them out best-first.
func NewMovePicker(pos *board.Position, h *History, moves *board.MoveList, ply int, ttMove, prevMove, prevPrevMove board.Move, excluded board.Move) *MovePicker {
	scores := make([]int, moves.Len())
	counterMove := h.GetCounterMove(prevMove, pos)

	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m == excluded {
			// Floor score: the search skips the excluded move anyway,
			// but it must never displace a real candidate in ordering.
			scores[i] = -1 << 30
			continue
		}
		scores[i] = scoreMove(pos, h, m, ply, ttMove, counterMove, prevMove, prevPrevMove)
	}

	return &MovePicker{moves: moves, scores: scores}
}

func scoreMove(pos *board.Position, h *History, m board.Move, ply int, ttMove, counterMove, prevMove, prevPrevMove board.Move) int {
	if m == ttMove {
		return TTMoveScore
	}

	if m.IsPromotion() && m.Promotion() != board.Queen {
		// Under-promotions are almost never best; search them dead last.
		return UnderPromotionBase + int(m.Promotion())*100
	}

	if m.IsCapture(pos) {
		attackerPiece := pos.PieceAt(m.From())
		attacker := attackerPiece.Type()

		var victim board.PieceType
		if m.IsEnPassant() {
			victim = board.Pawn
		} else if cp := pos.PieceAt(m.To()); cp != board.NoPiece {
			victim = cp.Type()
		} else {
			return GoodCaptureBase
		}
		if victim >= board.King || attacker > board.King {
			return GoodCaptureBase
		}

		score := GoodCaptureBase + mvvLva[victim][attacker]*1000
		score += int(h.CaptureScore(attackerPiece, m.To(), victim)) / 4

		if !SeeGe(pos, m, 0) {
			// A losing capture per SEE is demoted below all quiets, not
			// merely below winning captures.
			score = BadCaptureBase + int(h.CaptureScore(attackerPiece, m.To(), victim))/4
		}
		return score
	}

	if m.IsPromotion() {
		return GoodCaptureBase - 1000
	}

	if h.killers[ply][0] == m {
		return KillerScore1
	}
	if h.killers[ply][1] == m {
		return KillerScore2
	}
	if m == counterMove {
		return KillerScore2 - 10000
	}

	return int(h.QuietScore(pos, m, prevMove, prevPrevMove))
}

// Next returns the highest-scoring remaining move and its score, advancing
// the picker, or (NoMove, 0, false) once the list is exhausted.
func (mp *MovePicker) Next() (board.Move, int, bool) {
	n := mp.moves.Len()
	if mp.index >= n {
		return board.NoMove, 0, false
	}
	best := mp.index
	for j := mp.index + 1; j < n; j++ {
		if mp.scores[j] > mp.scores[best] {
			best = j
		}
	}
	if best != mp.index {
		mp.moves.Swap(mp.index, best)
		mp.scores[mp.index], mp.scores[best] = mp.scores[best], mp.scores[mp.index]
	}
	m := mp.moves.Get(mp.index)
	s := mp.scores[mp.index]
	mp.index++
	return m, s, true
}

// HasMoves reports whether any moves remain unconsumed.
func (mp *MovePicker) HasMoves() bool {
	return mp.index < mp.moves.Len()
}

// Index returns how many moves have already been handed out.
func (mp *MovePicker) Index() int {
	return mp.index
}

// SortMoves performs a one-shot descending sort by score, for a caller that
// wants the full ordered list up front rather than lazy selection-sort
// consumption.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}
