package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func TestGravityStaysBounded(t *testing.T) {
	var slot int32
	for i := 0; i < 1000; i++ {
		slot = gravity(slot, 2000)
		require.LessOrEqual(t, slot, int32(historyMax))
	}
	// A saturated slot still moves down under a malus.
	before := slot
	slot = gravity(slot, -2000)
	assert.Less(t, slot, before)
	for i := 0; i < 1000; i++ {
		slot = gravity(slot, -2000)
		require.GreaterOrEqual(t, slot, int32(-historyMax))
	}
}

func TestHistoryBonusCapped(t *testing.T) {
	assert.EqualValues(t, 256, historyBonus(4))
	assert.EqualValues(t, 2000, historyBonus(100))
}

func TestQuietHistoryUpdateAndDecay(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	m := findMove(t, pos, "e2e4")

	h.UpdateQuiet(pos, m, 8, true, board.NoMove, board.NoMove)
	score := h.QuietScore(pos, m, board.NoMove, board.NoMove)
	assert.Positive(t, score)

	h.UpdateQuiet(pos, m, 8, false, board.NoMove, board.NoMove)
	assert.Less(t, h.QuietScore(pos, m, board.NoMove, board.NoMove), score)

	h.Clear()
	decayed := h.QuietScore(pos, m, board.NoMove, board.NoMove)
	assert.LessOrEqual(t, abs32(decayed), abs32(score))
}

func TestContinuationHistorySeparatesByPrevMove(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	m, err := board.ParseMove("g1f3", pos)
	require.NoError(t, err)

	// Advance one ply so a "previous move" exists on the board.
	e4 := findMove(t, pos, "e2e4")
	require.True(t, pos.MakeMove(e4).Valid)
	d5 := findMove(t, pos, "d7d5")
	require.True(t, pos.MakeMove(d5).Valid)

	h.UpdateQuiet(pos, m, 6, true, d5, e4)

	withContext := h.QuietScore(pos, m, d5, e4)
	without := h.QuietScore(pos, m, board.NoMove, board.NoMove)
	assert.Greater(t, withContext, without)
}

func TestKillers(t *testing.T) {
	h := NewHistory()
	m1 := board.NewMove(board.E2, board.E4)
	m2 := board.NewMove(board.D2, board.D4)

	h.UpdateKillers(m1, 3)
	h.UpdateKillers(m2, 3)
	assert.Equal(t, m2, h.killers[3][0])
	assert.Equal(t, m1, h.killers[3][1])
	assert.True(t, h.IsKiller(m1, 3))
	assert.False(t, h.IsKiller(m1, 4))

	// Re-recording the first killer must not duplicate it.
	h.UpdateKillers(m2, 3)
	assert.Equal(t, m2, h.killers[3][0])
	assert.Equal(t, m1, h.killers[3][1])
}

func TestCounterMove(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	e4 := findMove(t, pos, "e2e4")
	require.True(t, pos.MakeMove(e4).Valid)

	reply := findMove(t, pos, "e7e5")
	h.UpdateCounterMove(e4, reply, pos)
	assert.Equal(t, reply, h.GetCounterMove(e4, pos))
	assert.Equal(t, board.NoMove, h.GetCounterMove(board.NoMove, pos))
}

func TestHistoryReset(t *testing.T) {
	h := NewHistory()
	pos := board.NewPosition()
	m := findMove(t, pos, "b1c3")
	h.UpdateQuiet(pos, m, 10, true, board.NoMove, board.NoMove)
	h.UpdateKillers(m, 0)

	h.Reset()
	assert.Zero(t, h.QuietScore(pos, m, board.NoMove, board.NoMove))
	assert.False(t, h.IsKiller(m, 0))
}
