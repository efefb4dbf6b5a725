package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func TestTTStoreProbeRoundTrip(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x123456789ABCDEF0)
	mv := board.NewMove(board.E2, board.E4)

	tt.Store(hash, 7, 133, TTLowerBound, mv, true)

	e, ok := tt.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, mv, e.BestMove)
	assert.EqualValues(t, 133, e.Score)
	assert.EqualValues(t, 7, e.Depth)
	assert.Equal(t, TTLowerBound, e.Flag)
	assert.True(t, e.PV)
}

func TestTTVerificationMismatch(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xAAAAAAAABBBBBBBB)
	tt.Store(hash, 3, 50, TTExact, board.NoMove, false)

	// A different key must read as a miss, whether it lands on the same
	// bucket (verification mismatch) or an empty one.
	other := hash ^ (uint64(0xFFFF) << 48)
	_, ok := tt.Probe(other)
	assert.False(t, ok)

	// Empty slots never verify, even for keys whose top 16 bits are zero.
	_, ok = tt.Probe(uint64(0x0000FFFFFFFFFFFF))
	assert.False(t, ok)
}

func TestTTEvalSlotIndependent(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x5555AAAA5555AAAA)

	tt.StoreEval(hash, -77)
	tt.Store(hash, 9, 300, TTExact, board.NewMove(board.D2, board.D4), false)

	ev, ok := tt.ProbeEval(hash)
	require.True(t, ok)
	assert.EqualValues(t, -77, ev)

	e, ok := tt.Probe(hash)
	require.True(t, ok)
	assert.EqualValues(t, 300, e.Score)
}

func TestTTUpperBoundKeepsPreviousMove(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0x1111222233334444)
	mv := board.NewMove(board.G1, board.F3)

	tt.Store(hash, 5, 10, TTExact, mv, false)
	// Fail-low re-store with no move of its own.
	tt.Store(hash, 6, -20, TTUpperBound, board.NoMove, false)

	e, ok := tt.Probe(hash)
	require.True(t, ok)
	assert.Equal(t, mv, e.BestMove)
	assert.Equal(t, TTUpperBound, e.Flag)
}

func TestTTMateScoreAdjustment(t *testing.T) {
	tt := NewTranspositionTable(1)
	hash := uint64(0xDEADBEEFDEADBEEF)

	// A mate-in-2-plies found at ply 4 is root distance 6; a probe at
	// ply 2 must see it as mate in 4 plies.
	found := Mating(6)
	tt.Store(hash, 10, int16(found.PlySub(4)), TTExact, board.NoMove, false)

	e, ok := tt.Probe(hash)
	require.True(t, ok)
	got := Eval(e.Score).PlyAdd(2)
	assert.Equal(t, Mating(4), got)
	assert.True(t, got >= Mated(0) && got <= Mating(0))
}

func TestTTPartitionCoversAllBuckets(t *testing.T) {
	tt := NewTranspositionTable(2)
	for _, n := range []int{1, 2, 3, 7, 16} {
		ranges := tt.Partition(n)
		var covered uint64
		prevHi := uint64(0)
		for _, r := range ranges {
			assert.Equal(t, prevHi, r[0], "ranges must be contiguous")
			assert.Greater(t, r[1], r[0])
			covered += r[1] - r[0]
			prevHi = r[1]
		}
		assert.Equal(t, tt.Size(), covered, "partition(%d)", n)
	}
}

func TestTTClearRangeZeroesEverySlot(t *testing.T) {
	tt := NewTranspositionTable(1)

	hashes := []uint64{1, 42, 0xFFFF0000FFFF0000, 0x123, 0xABCDEF}
	for _, h := range hashes {
		tt.Store(h, 1, 1, TTExact, board.NewMove(board.A2, board.A3), false)
		tt.StoreEval(h, 55)
	}

	for _, r := range tt.Partition(4) {
		tt.ClearRange(r[0], r[1])
	}

	for i := range tt.buckets {
		assert.Zero(t, tt.buckets[i].search.Load())
		assert.Zero(t, tt.buckets[i].seval.Load())
	}
}

func TestTTPackedMoveRoundTrip(t *testing.T) {
	// Every legal move survives the pack/unpack through a TT word.
	positions := []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2P2k2/8/8/8/8/2p2K2/8 w - - 0 1", // promotions both ways
		"1k6/8/8/3pP3/8/8/8/1K6 w - d6 0 1", // en passant
	}
	tt := NewTranspositionTable(1)
	for _, fen := range positions {
		pos := mustPos(t, fen)
		moves := pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			tt.Store(pos.Hash, 1, 0, TTExact, m, false)
			e, ok := tt.Probe(pos.Hash)
			require.True(t, ok)
			assert.Equal(t, m, e.BestMove, "move %v in %s", m, fen)
		}
	}
}

func TestTTIndexInRange(t *testing.T) {
	tt := NewTranspositionTable(1)
	for _, h := range []uint64{0, 1, ^uint64(0), 0x8000000000000000} {
		assert.Less(t, tt.index(h), tt.count)
	}
}
