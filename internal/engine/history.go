package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

// Move ordering priorities. Everything below TTMoveScore is a plain
// integer heuristic score; the bands only need to stay separated enough
// that a capture history bonus can never push a losing capture above a
// killer, and so on.
const (
	TTMoveScore        = 10000000
	GoodCaptureBase    = 1000000
	KillerScore1       = 900000
	KillerScore2       = 800000
	BadCaptureBase     = -100000
	UnderPromotionBase = -200000
)

// historyMax bounds every gravity-updated table: a slot can never leave
// [-historyMax, historyMax], which both prevents overflow and keeps the
// gravity formula's self-limiting behavior meaningful (a saturated slot
// takes a full-strength opposite bonus to start moving back).
const historyMax = 1 << 14

// mvvLva gives the Most-Valuable-Victim/Least-Valuable-Attacker ranking
// used as the base score for captures before history nudges reorder within
// a victim tier.
var mvvLva = [6][6]int{
	/* P */ {15, 14, 14, 13, 12, 11},
	/* N */ {25, 24, 24, 23, 22, 21},
	/* B */ {35, 34, 34, 33, 32, 31},
	/* R */ {45, 44, 44, 43, 42, 41},
	/* Q */ {55, 54, 54, 53, 52, 51},
	/* K */ {0, 0, 0, 0, 0, 0},
}

// gravity applies Stockfish's self-damping history update: the closer a
// slot already is to the bonus's sign extreme, the smaller the increment,
// so a table entry asymptotically approaches +-historyMax rather than
// blowing past it and needing a clamp.
func gravity(slot int32, bonus int32) int32 {
	if bonus > historyMax {
		bonus = historyMax
	}
	if bonus < -historyMax {
		bonus = -historyMax
	}
	return slot + bonus - int32(int64(abs32(bonus))*int64(slot)/historyMax)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// historyBonus returns the depth-scaled bonus/malus magnitude (signed by
// the caller) fed into gravity, capped so one deep cutoff cannot saturate
// a slot.
func historyBonus(depth int) int32 {
	b := int32(64 * depth)
	const bonusCap = 2000
	if b > bonusCap {
		b = bonusCap
	}
	return b
}

// History holds every move-ordering table shared across a worker's search
// tree: the plain butterfly table, counter-move and follow-up continuation
// histories, killers, and capture history. One instance is owned per
// worker; nothing here is accessed concurrently.
type History struct {
	// Butterfly table: quiet-move history indexed by side-to-move, the
	// moving piece, and the destination square.
	butterfly [2][6][64]int32

	// Capture history indexed by attacker piece, destination square, and
	// captured piece type.
	captureHist [12][64][6]int32

	// Counter-move table: the quiet reply that most often follows a given
	// (piece, to-square) pair and caused a cutoff.
	counterMove [12][64]board.Move

	// Counter-move continuation history indexed by [prevPiece][prevTo]
	// then [movePiece][moveTo] of the move being scored.
	counterHist [12][64][12][64]int32

	// Follow-up continuation history: same shape, but keyed off the move
	// two plies back instead of one, to capture longer tactical motifs
	// (a defensive move that sets up the next one).
	followupHist [12][64][12][64]int32

	killers [MaxPly][2]board.Move
}

// NewHistory allocates a zeroed history set.
func NewHistory() *History { return &History{} }

// Reset zeroes every table, called on "ucinewgame": a fresh game should
// not inherit move preferences learned against a different opponent line.
func (h *History) Reset() {
	*h = History{}
}

// Clear resets killers and counter-moves and decays every numeric table,
// called once per `go` so earlier searches fade instead of vanishing.
func (h *History) Clear() {
	for i := range h.killers {
		h.killers[i][0] = board.NoMove
		h.killers[i][1] = board.NoMove
	}
	for i := range h.counterMove {
		for j := range h.counterMove[i] {
			h.counterMove[i][j] = board.NoMove
		}
	}
	h.decay()
}

func (h *History) decay() {
	for c := range h.butterfly {
		for p := range h.butterfly[c] {
			for s := range h.butterfly[c][p] {
				h.butterfly[c][p][s] /= 2
			}
		}
	}
	for i := range h.captureHist {
		for j := range h.captureHist[i] {
			for k := range h.captureHist[i][j] {
				h.captureHist[i][j][k] /= 2
			}
		}
	}
	for i := range h.counterHist {
		for j := range h.counterHist[i] {
			for k := range h.counterHist[i][j] {
				for l := range h.counterHist[i][j][k] {
					h.counterHist[i][j][k][l] /= 2
				}
			}
		}
	}
	for i := range h.followupHist {
		for j := range h.followupHist[i] {
			for k := range h.followupHist[i][j] {
				for l := range h.followupHist[i][j][k] {
					h.followupHist[i][j][k][l] /= 2
				}
			}
		}
	}
}

// UpdateKillers records a beta-cutoff quiet move at ply, pushing the
// previous first killer down to second.
func (h *History) UpdateKillers(m board.Move, ply int) {
	if ply >= MaxPly || h.killers[ply][0] == m {
		return
	}
	h.killers[ply][1] = h.killers[ply][0]
	h.killers[ply][0] = m
}

func (h *History) IsKiller(m board.Move, ply int) bool {
	return ply < MaxPly && (m == h.killers[ply][0] || m == h.killers[ply][1])
}

// UpdateQuiet applies the gravity update to the butterfly table and both
// continuation histories for a quiet move that either caused a cutoff
// (good=true) or was searched and failed to (good=false, i.e. a malus).
func (h *History) UpdateQuiet(pos *board.Position, m board.Move, depth int, good bool, prevMove, prevPrevMove board.Move) {
	stm := pos.SideToMove
	piece := pos.PieceAt(m.From())
	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}

	h.butterfly[stm][piece.Type()][m.To()] = gravity(h.butterfly[stm][piece.Type()][m.To()], bonus)

	if prevMove != board.NoMove {
		prevPiece := pos.PieceAt(prevMove.To())
		if prevPiece != board.NoPiece {
			slot := &h.counterHist[prevPiece][prevMove.To()][piece][m.To()]
			*slot = gravity(*slot, bonus)
		}
	}
	if prevPrevMove != board.NoMove {
		pp := pos.PieceAt(prevPrevMove.To())
		if pp != board.NoPiece {
			slot := &h.followupHist[pp][prevPrevMove.To()][piece][m.To()]
			*slot = gravity(*slot, bonus)
		}
	}
}

// UpdateCapture applies the gravity update to capture history for a
// capture move that either caused a cutoff or failed to.
func (h *History) UpdateCapture(attacker board.Piece, to board.Square, victim board.PieceType, depth int, good bool) {
	if attacker == board.NoPiece || victim >= board.King {
		return
	}
	bonus := historyBonus(depth)
	if !good {
		bonus = -bonus
	}
	slot := &h.captureHist[attacker][to][victim]
	*slot = gravity(*slot, bonus)
}

func (h *History) QuietScore(pos *board.Position, m board.Move, prevMove, prevPrevMove board.Move) int32 {
	stm := pos.SideToMove
	piece := pos.PieceAt(m.From())
	score := h.butterfly[stm][piece.Type()][m.To()]

	if prevMove != board.NoMove {
		prevPiece := pos.PieceAt(prevMove.To())
		if prevPiece != board.NoPiece {
			score += h.counterHist[prevPiece][prevMove.To()][piece][m.To()]
		}
	}
	if prevPrevMove != board.NoMove {
		pp := pos.PieceAt(prevPrevMove.To())
		if pp != board.NoPiece {
			score += h.followupHist[pp][prevPrevMove.To()][piece][m.To()]
		}
	}
	return score
}

func (h *History) CaptureScore(attacker board.Piece, to board.Square, victim board.PieceType) int32 {
	if attacker == board.NoPiece || victim >= board.King {
		return 0
	}
	return h.captureHist[attacker][to][victim]
}

func (h *History) UpdateCounterMove(prevMove, reply board.Move, pos *board.Position) {
	if prevMove == board.NoMove {
		return
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return
	}
	h.counterMove[piece][prevMove.To()] = reply
}

func (h *History) GetCounterMove(prevMove board.Move, pos *board.Position) board.Move {
	if prevMove == board.NoMove {
		return board.NoMove
	}
	piece := pos.PieceAt(prevMove.To())
	if piece == board.NoPiece {
		return board.NoMove
	}
	return h.counterMove[piece][prevMove.To()]
}
