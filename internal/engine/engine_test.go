package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/nnue"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	net := nnue.NewNetwork()
	net.InitRandom(12345)
	e := New(context.Background(), 8, net)
	t.Cleanup(e.Quit)
	return e
}

// searchSync runs a search to completion and returns the final report.
func searchSync(t *testing.T, e *Engine, pos *board.Position, hashes []uint64, limits Limits) Report {
	t.Helper()
	var final Report
	e.OnReport = func(r Report) {
		if r.Finished {
			final = r
		}
	}
	if hashes == nil {
		hashes = []uint64{pos.Hash}
	}
	e.StartSearch(pos, hashes, limits)

	done := make(chan struct{})
	go func() { e.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("search did not terminate")
	}
	return final
}

func TestSearchDepthOneReturnsLegalMove(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()

	r := searchSync(t, e, pos, nil, Limits{Depth: 1})

	require.Equal(t, 1, r.Depth)
	require.NotEqual(t, board.NoMove, r.BestMove)
	assert.True(t, pos.GenerateLegalMoves().Contains(r.BestMove))
	assert.NotEmpty(t, r.PV)
	assert.Equal(t, r.BestMove, r.PV[0])
}

func TestSearchFindsMateInOne(t *testing.T) {
	e := newTestEngine(t)
	pos := mustPos(t, "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1")

	r := searchSync(t, e, pos, nil, Limits{Depth: 2})

	assert.Equal(t, "a1a8", r.BestMove.String())
	assert.Equal(t, Mating(1), r.Score)
	assert.Equal(t, "mate 1", r.Score.String())
}

func TestSearchStalemateRoot(t *testing.T) {
	e := newTestEngine(t)
	pos := mustPos(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	require.Equal(t, 0, pos.GenerateLegalMoves().Len())

	r := searchSync(t, e, pos, nil, Limits{Depth: 1})

	assert.Equal(t, Cp(0), r.Score)
	assert.Equal(t, board.NoMove, r.BestMove)
}

func TestSearchMateDistanceShrinksOrHolds(t *testing.T) {
	// Two-rook ladder mate: deeper searches must never report a longer
	// mate for the same root.
	e := newTestEngine(t)
	pos := mustPos(t, "6k1/8/8/8/8/8/R7/R6K w - - 0 1")

	var mateScores []Eval
	e.OnReport = func(r Report) {
		if r.Score.IsMate() && r.Score > 0 {
			mateScores = append(mateScores, r.Score)
		}
	}
	e.StartSearch(pos, []uint64{pos.Hash}, Limits{Depth: 8})
	e.Wait()

	require.NotEmpty(t, mateScores)
	for i := 1; i < len(mateScores); i++ {
		assert.GreaterOrEqual(t, mateScores[i], mateScores[i-1])
	}
}

func TestSearchNodeLimit(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()

	r := searchSync(t, e, pos, nil, Limits{Nodes: 50000})

	assert.GreaterOrEqual(t, r.Nodes, uint64(50000))
	// The abort quantum bounds the overshoot per worker.
	assert.Less(t, r.Nodes, uint64(50000+16*nodeBurst))
	require.NotEqual(t, board.NoMove, r.BestMove)
}

func TestSearchMinNodes(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()

	r := searchSync(t, e, pos, nil, Limits{MinNodes: 20000})
	assert.GreaterOrEqual(t, r.Nodes, uint64(20000))
}

func TestStopUnwindsInfiniteSearch(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()

	var final Report
	e.OnReport = func(r Report) {
		if r.Finished {
			final = r
		}
	}
	e.StartSearch(pos, []uint64{pos.Hash}, Limits{Infinite: true})
	time.Sleep(100 * time.Millisecond)
	e.Stop()

	done := make(chan struct{})
	go func() { e.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not unwind the search")
	}

	require.NotEqual(t, board.NoMove, final.BestMove)
	assert.True(t, pos.GenerateLegalMoves().Contains(final.BestMove))
}

func TestSearchMultiThreaded(t *testing.T) {
	e := newTestEngine(t)
	e.SetThreads(4)
	pos := board.NewPosition()

	r := searchSync(t, e, pos, nil, Limits{MoveTime: 300 * time.Millisecond})

	require.NotEqual(t, board.NoMove, r.BestMove)
	assert.True(t, pos.GenerateLegalMoves().Contains(r.BestMove))
	assert.Greater(t, r.Depth, 0)
}

func TestNewGameClearsWholeTable(t *testing.T) {
	e := newTestEngine(t)
	e.SetThreads(3)
	pos := board.NewPosition()
	searchSync(t, e, pos, nil, Limits{Depth: 4})

	e.NewGame()

	for i := range e.tt.buckets {
		require.Zero(t, e.tt.buckets[i].search.Load(), "bucket %d search word", i)
		require.Zero(t, e.tt.buckets[i].seval.Load(), "bucket %d eval word", i)
	}
}

func TestConsecutiveSearchesReuseWorkers(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()

	first := searchSync(t, e, pos, nil, Limits{Depth: 3})
	second := searchSync(t, e, pos, nil, Limits{Depth: 3})

	assert.NotEqual(t, board.NoMove, first.BestMove)
	assert.NotEqual(t, board.NoMove, second.BestMove)
}

func TestWeakenEvalQuantizes(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()

	e.SetWeakenEval(99) // Q = 100
	ev := int(e.Evaluate(pos))
	assert.Zero(t, ev%100, "weakened eval %d is not a multiple of 100", ev)
}

func TestReduceHistory(t *testing.T) {
	a, b, c := uint64(1), uint64(2), uint64(3)

	doubled := reduceHistory([]uint64{a, b, a, c}, 100)
	assert.Contains(t, doubled, a)
	assert.NotContains(t, doubled, b)
	assert.NotContains(t, doubled, c)

	// Occurrences before the halfmove window do not count toward the
	// double.
	doubled = reduceHistory([]uint64{a, b, a}, 1)
	assert.Empty(t, doubled)

	doubled = reduceHistory([]uint64{a, a, a}, 100)
	assert.Contains(t, doubled, a)
	assert.Len(t, doubled, 1)
}

func TestPerftStartposShallow(t *testing.T) {
	e := newTestEngine(t)
	pos := board.NewPosition()
	assert.EqualValues(t, 20, e.Perft(pos, 1))
	assert.EqualValues(t, 400, e.Perft(pos, 2))
	assert.EqualValues(t, 8902, e.Perft(pos, 3))
}
