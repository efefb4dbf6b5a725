package engine

import (
	"github.com/hailam/chesscore/internal/board"
)

const (
	corrTableSize = 1 << 16
	corrLimit     = 4096
	corrGrain     = 16
)

// CorrectionHistory nudges the static evaluation toward what the search
// actually concluded for structurally similar positions. Entries are
// keyed by the pawn-structure hash and the side to move: pawn structure
// is the slowest-changing feature of a position, so an eval bias learned
// there stays relevant for many moves.
type CorrectionHistory struct {
	table [2][corrTableSize]int16
}

// NewCorrectionHistory returns a zeroed table.
func NewCorrectionHistory() *CorrectionHistory {
	return &CorrectionHistory{}
}

func corrIndex(pos *board.Position) uint64 {
	return pos.PawnKey & (corrTableSize - 1)
}

// Get returns the centipawn adjustment to add to the raw static eval.
func (ch *CorrectionHistory) Get(pos *board.Position) int {
	return int(ch.table[pos.SideToMove][corrIndex(pos)]) / corrGrain
}

// Update records the error between what the search concluded and what the
// static eval claimed, weighted by depth. The running entry moves depth/32
// of the way toward the new sample (at most half, from depth 16 on), so a
// single noisy node cannot swing future evals.
func (ch *CorrectionHistory) Update(pos *board.Position, searchScore, staticEval, depth int) {
	if depth < 1 {
		return
	}

	diff := (searchScore - staticEval) * corrGrain
	weight := depth
	if weight > 16 {
		weight = 16
	}

	slot := &ch.table[pos.SideToMove][corrIndex(pos)]
	v := int(*slot)
	v = (v*(32-weight) + diff*weight) / 32

	if v > corrLimit {
		v = corrLimit
	}
	if v < -corrLimit {
		v = -corrLimit
	}
	*slot = int16(v)
}

// Clear zeroes the table, called on "ucinewgame".
func (ch *CorrectionHistory) Clear() {
	*ch = CorrectionHistory{}
}
