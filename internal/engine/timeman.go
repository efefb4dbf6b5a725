package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Limits describes everything a `go` command can constrain.
type Limits struct {
	Time     [2]time.Duration // remaining clock per color
	Inc      [2]time.Duration // increment per move per color
	MoveTime time.Duration    // fixed time for this move
	Depth    int              // maximum iteration depth
	Nodes    uint64           // hard node budget
	MinNodes uint64           // keep iterating at least until this many nodes
	Infinite bool             // search until "stop"
}

// TimeManager turns a Limits into two deadlines. The soft deadline is
// consulted only between iterations: starting another iteration past it is
// almost always wasted, since an interrupted iteration contributes
// nothing. The hard deadline is checked from inside the search and aborts
// mid-iteration.
type TimeManager struct {
	soft  time.Duration
	hard  time.Duration
	start time.Time

	timed bool

	// Under a running clock the soft budget scales with best-move
	// stability: a move that survives iteration after iteration is
	// cheap to confirm, a churning root deserves extra thought. Fixed
	// movetime searches never scale.
	scalable  bool
	lastBest  board.Move
	stability int
}

// NewTimeManager returns an uninitialized manager; Init must run before
// every search.
func NewTimeManager() *TimeManager {
	return &TimeManager{}
}

// softClockDiv is the fraction of the remaining clock budgeted per move:
// soft = clock/softClockDiv + increment/2.
const softClockDiv = 20

// Init computes the deadlines for a search by us under limits.
func (tm *TimeManager) Init(limits Limits, us board.Color) {
	tm.start = time.Now()
	tm.timed = false
	tm.scalable = false
	tm.lastBest = board.NoMove
	tm.stability = 0

	if limits.MoveTime > 0 {
		tm.soft = limits.MoveTime
		tm.hard = limits.MoveTime
		tm.timed = true
		return
	}

	if limits.Infinite || limits.Time[us] <= 0 {
		return
	}

	clock := limits.Time[us]
	inc := limits.Inc[us]

	tm.soft = clock/softClockDiv + inc/2
	tm.hard = tm.soft * 4

	// Never budget more than a large slice of the remaining clock; better
	// a shallow move than a flag.
	if ceiling := clock * 8 / 10; tm.hard > ceiling {
		tm.hard = ceiling
	}
	if tm.soft > tm.hard {
		tm.soft = tm.hard
	}
	if tm.soft < 5*time.Millisecond {
		tm.soft = 5 * time.Millisecond
	}
	if tm.hard < 15*time.Millisecond {
		tm.hard = 15 * time.Millisecond
	}
	tm.timed = true
	tm.scalable = true
}

// Stable records the best move of a completed iteration for the stability
// scaling.
func (tm *TimeManager) Stable(best board.Move) {
	if best == tm.lastBest {
		if tm.stability < 6 {
			tm.stability++
		}
		return
	}
	tm.lastBest = best
	tm.stability = 0
}

// softBudget is the stability-scaled soft deadline: 130% of the base
// budget for a root that just changed its mind, shrinking 10 points per
// stable iteration down to 70%, never beyond the hard deadline.
func (tm *TimeManager) softBudget() time.Duration {
	if !tm.scalable {
		return tm.soft
	}
	b := tm.soft * time.Duration(130-10*tm.stability) / 100
	if b > tm.hard {
		b = tm.hard
	}
	return b
}

// Elapsed returns the time since Init.
func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.start)
}

// SoftExpired reports whether another iteration should not be started.
func (tm *TimeManager) SoftExpired() bool {
	return tm.timed && tm.Elapsed() >= tm.softBudget()
}

// HardExpired reports whether the in-flight iteration must be aborted.
func (tm *TimeManager) HardExpired() bool {
	return tm.timed && tm.Elapsed() >= tm.hard
}
