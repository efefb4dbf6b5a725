package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hailam/chesscore/internal/board"
)

func TestTimeManagerMoveTime(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{MoveTime: 100 * time.Millisecond}, board.White)

	assert.Equal(t, 100*time.Millisecond, tm.soft)
	assert.Equal(t, 100*time.Millisecond, tm.hard)
	assert.False(t, tm.SoftExpired())
	assert.False(t, tm.HardExpired())
}

func TestTimeManagerInfiniteNeverExpires(t *testing.T) {
	tm := NewTimeManager()
	tm.Init(Limits{Infinite: true}, board.White)
	assert.False(t, tm.SoftExpired())
	assert.False(t, tm.HardExpired())

	tm.Init(Limits{Depth: 5}, board.Black)
	assert.False(t, tm.SoftExpired())
}

func TestTimeManagerClockBudget(t *testing.T) {
	tm := NewTimeManager()
	var limits Limits
	limits.Time[board.Black] = 60 * time.Second
	limits.Inc[board.Black] = 2 * time.Second
	tm.Init(limits, board.Black)

	// soft = 60s/20 + 2s/2 = 4s; hard = 4x soft, under the 80% cap.
	assert.Equal(t, 4*time.Second, tm.soft)
	assert.Equal(t, 16*time.Second, tm.hard)
}

func TestTimeManagerStabilityScalesSoftBudget(t *testing.T) {
	tm := NewTimeManager()
	var limits Limits
	limits.Time[board.White] = 60 * time.Second
	tm.Init(limits, board.White)

	m := board.NewMove(board.E2, board.E4)
	unstable := tm.softBudget()

	for i := 0; i < 10; i++ {
		tm.Stable(m)
	}
	stable := tm.softBudget()
	assert.Less(t, stable, unstable)
	assert.GreaterOrEqual(t, stable, tm.soft*70/100)

	// A changed best move resets the discount.
	tm.Stable(board.NewMove(board.D2, board.D4))
	assert.Equal(t, unstable, tm.softBudget())

	// Fixed movetime never scales.
	tm.Init(Limits{MoveTime: time.Second}, board.White)
	tm.Stable(m)
	tm.Stable(m)
	assert.Equal(t, time.Second, tm.softBudget())
}

func TestTimeManagerHardCappedByClock(t *testing.T) {
	tm := NewTimeManager()
	var limits Limits
	limits.Time[board.White] = 100 * time.Millisecond
	tm.Init(limits, board.White)

	assert.LessOrEqual(t, tm.hard, 80*time.Millisecond)
	assert.LessOrEqual(t, tm.soft, tm.hard)
}
