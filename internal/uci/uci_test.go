package uci

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/nnue"
)

func newTestUCI(t *testing.T) (*UCI, *bytes.Buffer) {
	t.Helper()
	net := nnue.NewNetwork()
	net.InitRandom(7)
	eng := engine.New(context.Background(), 4, net)
	u := New(context.Background(), eng, nil)
	var buf bytes.Buffer
	u.out = &buf
	return u, &buf
}

func TestHandshake(t *testing.T) {
	u, buf := newTestUCI(t)
	u.Run(strings.NewReader("uci\nisready\nquit\n"))

	out := buf.String()
	assert.Contains(t, out, "id name chesscore")
	assert.Contains(t, out, "option name UCI_Chess960 type check default false")
	assert.Contains(t, out, "option name Hash type spin default 64 min 1 max 1048576")
	assert.Contains(t, out, "option name Threads type spin default 1 min 1 max 1024")
	assert.Contains(t, out, "option name Weaken_Eval type spin default 0 min 0 max 10000")
	assert.Contains(t, out, "uciok")
	assert.Contains(t, out, "readyok")
}

func TestPositionStartposMoves(t *testing.T) {
	u, _ := newTestUCI(t)
	u.handlePosition(strings.Fields("startpos moves e2e4 e7e5 g1f3"))

	assert.Equal(t, board.Black, u.position.SideToMove)
	assert.Len(t, u.hashes, 4)
	assert.Equal(t, u.position.Hash, u.hashes[3])
}

func TestPositionFEN(t *testing.T) {
	u, _ := newTestUCI(t)
	fen := "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"
	u.handlePosition(strings.Fields("fen " + fen))
	assert.Equal(t, fen, u.position.ToFEN())
}

func TestGoDepthProducesInfoAndBestmove(t *testing.T) {
	u, buf := newTestUCI(t)
	u.Run(strings.NewReader("position startpos\ngo depth 2\nquit\n"))

	out := buf.String()
	assert.Contains(t, out, "info depth ")
	assert.Contains(t, out, " score cp ")
	assert.Contains(t, out, " pv ")
	require.Contains(t, out, "bestmove ")

	// The reported move must be one of the 20 legal opening moves.
	idx := strings.Index(out, "bestmove ")
	ms := strings.Fields(out[idx:])[1]
	pos := board.NewPosition()
	found := false
	legal := pos.GenerateLegalMoves()
	for i := 0; i < legal.Len(); i++ {
		if legal.Get(i).String() == ms {
			found = true
		}
	}
	assert.True(t, found, "bestmove %q is not a legal opening move", ms)
}

func TestGoMateInOne(t *testing.T) {
	u, buf := newTestUCI(t)
	u.Run(strings.NewReader("position fen 6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1\ngo depth 2\nquit\n"))

	out := buf.String()
	assert.Contains(t, out, "score mate 1")
	assert.Contains(t, out, "bestmove a1a8")
}

func TestSetOption(t *testing.T) {
	u, _ := newTestUCI(t)
	u.handleSetOption(strings.Fields("name Hash value 16"))
	u.handleSetOption(strings.Fields("name Threads value 2"))
	u.handleSetOption(strings.Fields("name UCI_Chess960 value true"))
	u.handleSetOption(strings.Fields("name Weaken_Eval value 50"))

	assert.Equal(t, 2, u.engine.Threads())
	assert.True(t, u.chess960)
	assert.Equal(t, 16, u.lastHash)
	assert.Equal(t, 50, u.lastWeaken)
}

func TestChess960CastlingFormat(t *testing.T) {
	u, _ := newTestUCI(t)
	pos := mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	castle := board.NewCastling(board.E1, board.G1)

	assert.Equal(t, "e1g1", u.formatMove(pos, castle))
	u.chess960 = true
	assert.Equal(t, "e1h1", u.formatMove(pos, castle))

	// Both notations resolve to the same legal move when parsing.
	assert.Equal(t, castle, u.matchMove(pos, "e1h1"))
	assert.Equal(t, castle, u.matchMove(pos, "e1g1"))
}

func TestMatchMovePromotion(t *testing.T) {
	u, _ := newTestUCI(t)
	pos := mustParse(t, "8/4P1k1/8/8/8/8/8/4K3 w - - 0 1")

	m := u.matchMove(pos, "e7e8q")
	require.NotEqual(t, board.NoMove, m)
	assert.True(t, m.IsPromotion())
	assert.Equal(t, board.Queen, m.Promotion())
}

func TestUnknownCommandPanics(t *testing.T) {
	u, _ := newTestUCI(t)
	assert.Panics(t, func() {
		u.Run(strings.NewReader("flarble\n"))
	})
}

func TestMalformedPositionPanics(t *testing.T) {
	u, _ := newTestUCI(t)
	assert.Panics(t, func() { u.handlePosition(strings.Fields("fen only three fields")) })
	assert.Panics(t, func() { u.handlePosition(strings.Fields("startpos moves e2e5")) })
}

func TestBadOptionValuePanics(t *testing.T) {
	u, _ := newTestUCI(t)
	assert.Panics(t, func() { u.handleSetOption(strings.Fields("name Hash value zero")) })
	assert.Panics(t, func() { u.handleSetOption(strings.Fields("name Threads value 0")) })
}

func mustParse(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	require.NoError(t, err)
	return pos
}
