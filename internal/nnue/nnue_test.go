package nnue

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func testNetwork() *Network {
	net := NewNetwork()
	net.InitRandom(12345)
	return net
}

func rebuildReference(pos *board.Position, net *Network, persp board.Color) [HiddenSize]int16 {
	var want [HiddenSize]int16
	copy(want[:], net.FTBias[:])
	mir := mirrorMask(pos.KingSquare[persp])
	var buf [32]int
	for _, f := range appendActiveFeatures(pos, persp, mir, buf[:0]) {
		scalarAddColumn(want[:], net.FTWeights[f][:])
	}
	return want
}

func TestFeatureIndexBounds(t *testing.T) {
	for _, persp := range []board.Color{board.White, board.Black} {
		for _, mir := range []int{0, 7} {
			for c := board.White; c <= board.Black; c++ {
				for pt := board.Pawn; pt <= board.King; pt++ {
					for sq := board.A1; sq <= board.H8; sq++ {
						idx := FeatureIndex(persp, mir, pt, c, sq)
						require.GreaterOrEqual(t, idx, 0)
						require.Less(t, idx, InputSize)
					}
				}
			}
		}
	}
}

func TestFeatureIndexPerspectiveSymmetry(t *testing.T) {
	// A white pawn on e2 seen by White equals a black pawn on e7 seen by
	// Black: both are "own pawn, own second rank".
	w := FeatureIndex(board.White, 0, board.Pawn, board.White, board.E2)
	b := FeatureIndex(board.Black, 0, board.Pawn, board.Black, board.E7)
	assert.Equal(t, w, b)
}

func TestMirrorMask(t *testing.T) {
	assert.Equal(t, 0, mirrorMask(board.C1))
	assert.Equal(t, 0, mirrorMask(board.D8))
	assert.Equal(t, 7, mirrorMask(board.E1))
	assert.Equal(t, 7, mirrorMask(board.G8))
}

func TestAccumulatorMatchesFullRebuild(t *testing.T) {
	net := testNetwork()
	ev := NewEvaluator(net)
	pos := board.NewPosition()

	// Walk a line with captures and castling (White's king e1->g1 stays on
	// files E-H, so its mirror does not change) and verify the
	// incremental accumulator equals a from-scratch rebuild at each step.
	line := []string{"e2e4", "d7d5", "e4d5", "g8f6", "g1f3", "f6d5", "f1c4", "e7e6", "e1g1", "f8e7"}
	for _, ms := range line {
		m, err := board.ParseMove(ms, pos)
		require.NoError(t, err)
		undo := pos.MakeMove(m)
		require.True(t, undo.Valid, "move %s", ms)

		ev.Evaluate(pos)
		for _, persp := range []board.Color{board.White, board.Black} {
			want := rebuildReference(pos, net, persp)
			assert.Equal(t, want, ev.acc.vals[persp], "perspective %v after %s", persp, ms)
		}
	}
}

func TestAccumulatorSelfHealsAfterUnmake(t *testing.T) {
	net := testNetwork()
	ev := NewEvaluator(net)
	pos := board.NewPosition()

	before := ev.Evaluate(pos)

	m, err := board.ParseMove("b1c3", pos)
	require.NoError(t, err)
	undo := pos.MakeMove(m)
	require.True(t, undo.Valid)
	ev.Evaluate(pos)
	pos.UnmakeMove(m, undo)

	assert.Equal(t, before, ev.Evaluate(pos))
}

func TestSelfCheckPasses(t *testing.T) {
	SelfCheckEnabled = true
	defer func() { SelfCheckEnabled = false }()

	net := testNetwork()
	ev := NewEvaluator(net)
	pos := board.NewPosition()

	for _, ms := range []string{"d2d4", "d7d5", "c1f4", "c8f5"} {
		m, err := board.ParseMove(ms, pos)
		require.NoError(t, err)
		require.True(t, pos.MakeMove(m).Valid)
		ev.Evaluate(pos) // panics on kernel divergence
	}
}

func TestEvaluateSymmetricPositionEqualForBothSides(t *testing.T) {
	net := testNetwork()
	ev := NewEvaluator(net)

	// Mirror-symmetric position: the two perspectives see identical
	// feature sets, so the two sides' evals must be equal.
	posW, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	posB, err := board.ParseFEN("4k3/8/8/8/8/8/8/4K3 b - - 0 1")
	require.NoError(t, err)

	evalW := ev.Evaluate(posW)
	ev.Reset()
	evalB := ev.Evaluate(posB)
	assert.Equal(t, evalW, evalB)
}

func TestReadWeightsRoundTrip(t *testing.T) {
	src := testNetwork()

	var buf bytes.Buffer
	for i := 0; i < InputSize; i++ {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, src.FTWeights[i][:]))
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, src.FTBias[:]))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, src.OutWeights[:]))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, src.OutBias))
	require.Equal(t, blobSize, buf.Len())

	got, err := ReadWeights(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.FTWeights, got.FTWeights)
	assert.Equal(t, src.FTBias, got.FTBias)
	assert.Equal(t, src.OutWeights, got.OutWeights)
	assert.Equal(t, src.OutBias, got.OutBias)
}

func TestReadWeightsShortBlob(t *testing.T) {
	_, err := ReadWeights(bytes.NewReader(make([]byte, 100)))
	require.Error(t, err)
}
