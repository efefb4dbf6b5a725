package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func mustPos(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}

func findMove(t *testing.T, pos *board.Position, uciMove string) board.Move {
	t.Helper()
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		if moves.Get(i).String() == uciMove {
			return moves.Get(i)
		}
	}
	t.Fatalf("move %s not legal in %s", uciMove, pos.ToFEN())
	return board.NoMove
}

func TestSeeUndefendedPawn(t *testing.T) {
	pos := mustPos(t, "1k6/8/8/3p4/8/8/3R4/3K4 w - - 0 1")
	m := findMove(t, pos, "d2d5")
	assert.Equal(t, SeePawn, See(pos, m))
	assert.True(t, SeeGe(pos, m, 0))
	assert.True(t, SeeGe(pos, m, SeePawn))
	assert.False(t, SeeGe(pos, m, SeePawn+1))
}

func TestSeeDefendedPawnLosesRook(t *testing.T) {
	// Rxe5 wins a pawn but loses the rook to the recapturing rook.
	pos := mustPos(t, "1k2r3/8/8/4p3/8/8/4R3/4K3 w - - 0 1")
	m := findMove(t, pos, "e2e5")
	assert.Equal(t, SeePawn-SeeRook, See(pos, m))
	assert.False(t, SeeGe(pos, m, 0))
}

func TestSeePawnTakesKnightDefended(t *testing.T) {
	// Pawn takes knight; pawn is recaptured: +knight -pawn still ahead.
	pos := mustPos(t, "1k6/8/4p3/3n4/2P5/8/8/1K6 w - - 0 1")
	m := findMove(t, pos, "c4d5")
	assert.Equal(t, SeeKnight-SeePawn, See(pos, m))
	assert.True(t, SeeGe(pos, m, 0))
}

func TestSeeXRayRecapture(t *testing.T) {
	// Doubled rooks on the d-file: after Rxd5 and ...Rxd5, the second
	// white rook recaptures through the square the first vacated.
	pos := mustPos(t, "1k1r4/8/8/3p4/8/8/3R4/1K1R4 w - - 0 1")
	m := findMove(t, pos, "d2d5")
	// Pawn gained; rook exchanged for rook: net +pawn.
	assert.Equal(t, SeePawn, See(pos, m))
	assert.True(t, SeeGe(pos, m, 0))
}

func TestSeeQuietMoveIsZero(t *testing.T) {
	pos := mustPos(t, "1k6/8/8/8/8/8/3R4/3K4 w - - 0 1")
	m := findMove(t, pos, "d2d4")
	assert.Equal(t, 0, See(pos, m))
	assert.True(t, SeeGe(pos, m, 0))
}

func TestSeeEnPassant(t *testing.T) {
	pos := mustPos(t, "1k6/8/8/3pP3/8/8/8/1K6 w - d6 0 1")
	m := findMove(t, pos, "e5d6")
	require.True(t, m.IsEnPassant())
	assert.Equal(t, SeePawn, See(pos, m))
}
