// Package uci implements the Universal Chess Interface protocol loop: the
// line-oriented contract between a controlling GUI and the search core.
// The protocol surface is treated as exactly that, a contract: malformed
// input from the GUI is a bug on one side or the other and fails loudly
// rather than being papered over.
package uci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/seekerror/logw"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
	"github.com/hailam/chesscore/internal/storage"
)

const (
	engineName   = "chesscore"
	engineAuthor = "the chesscore developers"
)

// UCI multiplexes the protocol stream against the engine. All command
// handling happens on the Run goroutine; search reports arrive on the
// engine's collector goroutine and are serialized through the output
// mutex.
type UCI struct {
	ctx    context.Context
	engine *engine.Engine
	store  *storage.Store // may be nil: persistence is best-effort

	position *board.Position
	hashes   []uint64 // every position of the game, current last

	chess960 bool
	debug    bool

	// Mirrors of the last-applied spin options, kept so persistOptions
	// can write the full option set; the engine does not expose them
	// back.
	lastHash   int
	lastWeaken int

	outMu sync.Mutex
	out   io.Writer
}

// New creates a protocol handler around eng. store may be nil.
func New(ctx context.Context, eng *engine.Engine, store *storage.Store) *UCI {
	u := &UCI{
		ctx:        ctx,
		engine:     eng,
		store:      store,
		position:   board.NewPosition(),
		out:        os.Stdout,
		lastHash:   storage.DefaultOptions().HashMB,
		lastWeaken: storage.DefaultOptions().WeakenEval,
	}
	u.hashes = []uint64{u.position.Hash}
	eng.OnReport = u.onReport
	return u
}

func (u *UCI) printf(format string, args ...any) {
	u.outMu.Lock()
	fmt.Fprintf(u.out, format+"\n", args...)
	u.outMu.Unlock()
}

// Run processes commands from r until "quit" or EOF.
func (u *UCI) Run(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<16), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if u.debug {
			logw.Debugf(u.ctx, "uci: << %s", line)
		}

		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "uci":
			u.handleUCI()
		case "isready":
			u.printf("readyok")
		case "ucinewgame":
			u.handleNewGame()
		case "setoption":
			u.handleSetOption(args)
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.engine.Stop()
		case "quit":
			u.handleQuit()
			return
		case "eval":
			u.printf("info string static eval %s", u.engine.Evaluate(u.position))
		case "debug":
			u.debug = len(args) > 0 && args[0] == "on"
		case "d":
			u.printf("%s", u.position)
			var san []string
			for _, m := range u.position.GenerateLegalMoves().Slice() {
				san = append(san, m.ToSAN(u.position))
			}
			u.printf("Legal moves: %s", strings.Join(san, " "))
		case "perft":
			u.handlePerft(args)
		default:
			// The GUI and the engine disagree about the protocol; there
			// is no sane way to continue a conversation neither side
			// understands.
			panic(fmt.Sprintf("uci: unknown command %q", line))
		}
	}
}

func (u *UCI) handleUCI() {
	u.printf("id name %s", engineName)
	u.printf("id author %s", engineAuthor)
	u.printf("")
	u.printf("option name UCI_Chess960 type check default false")
	u.printf("option name Hash type spin default 64 min 1 max 1048576")
	u.printf("option name Threads type spin default 1 min 1 max 1024")
	u.printf("option name Weaken_Eval type spin default 0 min 0 max 10000")
	u.printf("uciok")
}

func (u *UCI) handleNewGame() {
	u.engine.NewGame()
	u.position = board.NewPosition()
	u.hashes = []uint64{u.position.Hash}
}

// handleSetOption parses "name <N...> [value <V...>]".
func (u *UCI) handleSetOption(args []string) {
	if len(args) < 2 || args[0] != "name" {
		panic(fmt.Sprintf("uci: malformed setoption %v", args))
	}
	var name, value string
	for i := 1; i < len(args); i++ {
		if args[i] == "value" {
			name = strings.Join(args[1:i], " ")
			value = strings.Join(args[i+1:], " ")
			break
		}
	}
	if name == "" {
		name = strings.Join(args[1:], " ")
	}

	switch name {
	case "UCI_Chess960":
		u.chess960 = value == "true"
	case "Hash":
		u.lastHash = u.spinValue(name, value, 1, 1048576)
		u.engine.SetHash(u.lastHash)
	case "Threads":
		u.engine.SetThreads(u.spinValue(name, value, 1, 1024))
	case "Weaken_Eval":
		u.lastWeaken = u.spinValue(name, value, 0, 10000)
		u.engine.SetWeakenEval(u.lastWeaken)
	default:
		logw.Infof(u.ctx, "uci: ignoring unknown option %q", name)
		return
	}
	u.persistOptions()
}

func (u *UCI) spinValue(name, value string, lo, hi int) int {
	v, err := strconv.Atoi(value)
	if err != nil || v < lo || v > hi {
		panic(fmt.Sprintf("uci: bad value %q for option %s", value, name))
	}
	return v
}

// persistOptions mirrors the current option values into the store so the
// next session starts with them.
func (u *UCI) persistOptions() {
	if u.store == nil {
		return
	}
	opts := storage.Options{
		HashMB:     u.lastHash,
		Threads:    u.engine.Threads(),
		Chess960:   u.chess960,
		WeakenEval: u.lastWeaken,
	}
	if err := u.store.SaveOptions(opts); err != nil {
		logw.Errorf(u.ctx, "uci: persisting options: %v", err)
	}
}

// ApplyOptions programmatically applies persisted defaults, used by the
// binary at startup before the GUI takes over.
func (u *UCI) ApplyOptions(opts storage.Options) {
	u.chess960 = opts.Chess960
	u.engine.SetHash(opts.HashMB)
	u.engine.SetThreads(opts.Threads)
	u.engine.SetWeakenEval(opts.WeakenEval)
	u.lastHash = opts.HashMB
	u.lastWeaken = opts.WeakenEval
}

// handlePosition parses "position (startpos | fen <6 fields>) [moves ...]".
func (u *UCI) handlePosition(args []string) {
	if len(args) == 0 {
		panic("uci: position without arguments")
	}

	var pos *board.Position
	var rest []string
	switch args[0] {
	case "startpos":
		pos = board.NewPosition()
		rest = args[1:]
	case "fen":
		if len(args) < 7 {
			panic(fmt.Sprintf("uci: position fen needs 6 fields, got %v", args[1:]))
		}
		fen := strings.Join(args[1:7], " ")
		var err error
		pos, err = board.ParseFEN(fen)
		if err != nil {
			panic(fmt.Sprintf("uci: bad fen %q: %v", fen, err))
		}
		rest = args[7:]
	default:
		panic(fmt.Sprintf("uci: position wants startpos or fen, got %q", args[0]))
	}

	hashes := []uint64{pos.Hash}
	if len(rest) > 0 {
		if rest[0] != "moves" {
			panic(fmt.Sprintf("uci: expected moves, got %q", rest[0]))
		}
		for _, ms := range rest[1:] {
			m := u.matchMove(pos, ms)
			if m == board.NoMove {
				panic(fmt.Sprintf("uci: illegal move %q in position command", ms))
			}
			if undo := pos.MakeMove(m); !undo.Valid {
				panic(fmt.Sprintf("uci: move %q did not apply", ms))
			}
			hashes = append(hashes, pos.Hash)
		}
	}

	u.position = pos
	u.hashes = hashes
}

// matchMove resolves a move string against the legal moves of pos, using
// the current Chess960 formatting convention. Matching against the
// generated list (rather than re-deriving flags from the string) makes
// castling, promotion and en-passant parsing a single code path for both
// notations.
func (u *UCI) matchMove(pos *board.Position, s string) board.Move {
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if u.formatMove(pos, m) == s || m.String() == s {
			return m
		}
	}
	return board.NoMove
}

// formatMove renders a move for output. Castling is king-to-rook-square
// under Chess960, king-to-destination otherwise.
func (u *UCI) formatMove(pos *board.Position, m board.Move) string {
	if u.chess960 && m.IsCastling() {
		side := 1
		if m.To() < m.From() {
			side = 0
		}
		color := board.White
		if m.From().Rank() == 7 {
			color = board.Black
		}
		rookSq := board.NewSquare(int(pos.CastleRookFile[color][side]), m.From().Rank())
		return m.From().String() + rookSq.String()
	}
	return m.String()
}

func (u *UCI) handleGo(args []string) {
	limits := u.parseGo(args)
	u.engine.StartSearch(u.position, u.hashes, limits)
}

func (u *UCI) parseGo(args []string) engine.Limits {
	var limits engine.Limits

	nextInt := func(i int) int64 {
		if i+1 >= len(args) {
			panic(fmt.Sprintf("uci: go %s needs a value", args[i]))
		}
		v, err := strconv.ParseInt(args[i+1], 10, 64)
		if err != nil {
			panic(fmt.Sprintf("uci: bad go value %q: %v", args[i+1], err))
		}
		return v
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "wtime":
			limits.Time[board.White] = time.Duration(nextInt(i)) * time.Millisecond
			i++
		case "btime":
			limits.Time[board.Black] = time.Duration(nextInt(i)) * time.Millisecond
			i++
		case "winc":
			limits.Inc[board.White] = time.Duration(nextInt(i)) * time.Millisecond
			i++
		case "binc":
			limits.Inc[board.Black] = time.Duration(nextInt(i)) * time.Millisecond
			i++
		case "movetime":
			limits.MoveTime = time.Duration(nextInt(i)) * time.Millisecond
			i++
		case "depth":
			limits.Depth = int(nextInt(i))
			i++
		case "nodes":
			limits.Nodes = uint64(nextInt(i))
			i++
		case "minnodes":
			limits.MinNodes = uint64(nextInt(i))
			i++
		case "infinite":
			limits.Infinite = true
		case "movestogo", "mate":
			// Accepted for GUI compatibility; neither constrains this
			// engine's time heuristic.
			i++
		case "ponder":
			panic("uci: pondering is not supported")
		default:
			panic(fmt.Sprintf("uci: unknown go parameter %q", args[i]))
		}
	}
	return limits
}

// onReport streams search progress and the final best move to the GUI.
func (u *UCI) onReport(r engine.Report) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d score %s nodes %d time %d",
		r.Depth, r.SelDepth, r.Score, r.Nodes, r.Elapsed.Milliseconds())
	if ms := r.Elapsed.Milliseconds(); ms > 0 {
		fmt.Fprintf(&sb, " nps %d", r.Nodes*1000/uint64(ms))
	}
	fmt.Fprintf(&sb, " hashfull %d", r.HashFull)
	if len(r.PV) > 0 {
		sb.WriteString(" pv")
		for _, m := range r.PV {
			sb.WriteByte(' ')
			sb.WriteString(u.formatMove(u.position, m))
		}
	}
	u.printf("%s", sb.String())

	if r.Finished {
		u.printf("bestmove %s", u.formatMove(u.position, r.BestMove))
		if u.store != nil {
			if err := u.store.RecordSearch(r.Nodes); err != nil {
				logw.Debugf(u.ctx, "uci: recording stats: %v", err)
			}
		}
	}
}

func (u *UCI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		if d, err := strconv.Atoi(args[0]); err == nil {
			depth = d
		}
	}
	start := time.Now()
	nodes := u.engine.Perft(u.position.Copy(), depth)
	elapsed := time.Since(start)
	u.printf("info string perft(%d) = %d in %v", depth, nodes, elapsed)
}

func (u *UCI) handleQuit() {
	u.engine.Quit()
	if u.store != nil {
		if err := u.store.Close(); err != nil {
			logw.Errorf(u.ctx, "uci: closing store: %v", err)
		}
	}
}
