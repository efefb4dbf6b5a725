// Package engine implements the search core: score algebra, transposition
// table, history heuristics, NNUE-backed static evaluation, the
// negamax/quiescence search and the multi-worker orchestrator driving it.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seekerror/logw"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/nnue"
)

// Report is one progress or final snapshot streamed to the front-end. The
// reporter worker emits one per completed iteration; the orchestrator
// emits the last one with Finished set after every worker has unwound.
type Report struct {
	Depth    int
	SelDepth int
	Score    Eval
	Nodes    uint64
	Elapsed  time.Duration
	HashFull int
	PV       []board.Move
	BestMove board.Move
	Finished bool
}

// searchSpec is the shared search configuration every worker reads (under
// the engine lock) when a search command arrives.
type searchSpec struct {
	pos     *board.Position
	history []uint64
	limits  Limits
}

// Engine owns the shared search state and the worker set. One Engine
// serves one UCI session; all mutating calls (options, position, go,
// stop) come from the single protocol thread.
type Engine struct {
	ctx context.Context

	tt       *TranspositionTable
	tunables *Tunables
	net      *nnue.Network

	workers    []*Worker
	rendezvous chan int

	// Shared mutable search state. All Relaxed-equivalent; abort is the
	// one flag with cross-worker ordering significance and Go's atomics
	// are sequentially consistent anyway.
	abort    atomic.Bool
	nodes    atomic.Uint64
	seldepth atomic.Int32

	weakenEval atomic.Int32

	mu   sync.RWMutex
	spec searchSpec

	searching atomic.Bool
	done      chan struct{}

	// OnReport receives every progress line and the final best move. Set
	// once before the first search; called from the orchestrator and
	// reporter goroutines, never concurrently with itself.
	OnReport func(Report)
}

// New creates an engine with the given TT size and weights, and spawns a
// single worker. Threads are adjusted later via SetThreads.
func New(ctx context.Context, hashMB int, net *nnue.Network) *Engine {
	e := &Engine{
		ctx:      ctx,
		tt:       NewTranspositionTable(hashMB),
		tunables: NewTunables(),
		net:      net,
	}
	e.setWorkerCount(1)
	logw.Debugf(ctx, "engine: %d TT buckets, nnue backend %s", e.tt.Size(), nnue.BackendName)
	return e
}

// Tunables exposes the parameter set for the optional tuning options.
func (e *Engine) Tunables() *Tunables { return e.tunables }

// Threads returns the current worker count.
func (e *Engine) Threads() int { return len(e.workers) }

func (e *Engine) setWorkerCount(n int) {
	for _, w := range e.workers {
		w.cmd <- workerCommand{kind: cmdExit}
	}
	e.rendezvous = make(chan int, n)
	e.workers = make([]*Worker, n)
	for i := range e.workers {
		e.workers[i] = newWorker(i, e)
	}
}

// SetThreads replaces the worker set. Must not be called mid-search.
func (e *Engine) SetThreads(n int) {
	if n < 1 {
		n = 1
	}
	if n == len(e.workers) {
		return
	}
	e.setWorkerCount(n)
	logw.Debugf(e.ctx, "engine: %d search workers", n)
}

// SetHash reallocates the transposition table, discarding its contents.
func (e *Engine) SetHash(mb int) {
	e.tt = NewTranspositionTable(mb)
	logw.Debugf(e.ctx, "engine: TT resized to %dMB (%d buckets)", mb, e.tt.Size())
}

// SetWeakenEval sets the evaluation-coarsening option.
func (e *Engine) SetWeakenEval(v int) {
	e.weakenEval.Store(int32(v))
}

// NewGame resets every worker's learned data and clears the TT
// cooperatively: the bucket array is partitioned into one disjoint range
// per worker and each zeroes its own share in parallel.
func (e *Engine) NewGame() {
	ranges := e.tt.Partition(len(e.workers))
	ack := make(chan struct{}, 2*len(e.workers))
	sent := 0
	for i, w := range e.workers {
		w.cmd <- workerCommand{kind: cmdResetData, ack: ack}
		sent++
		if i < len(ranges) {
			w.cmd <- workerCommand{kind: cmdClearTT, lo: ranges[i][0], hi: ranges[i][1], ack: ack}
			sent++
		}
	}
	for i := 0; i < sent; i++ {
		<-ack
	}
	e.tt.generation.Store(0)
}

// StartSearch begins an asynchronous search. history must contain the
// Zobrist hashes of every position of the game so far, the current
// position last. Progress and the final result arrive through OnReport.
func (e *Engine) StartSearch(pos *board.Position, history []uint64, limits Limits) {
	if !e.searching.CompareAndSwap(false, true) {
		logw.Errorf(e.ctx, "engine: search already running, ignoring go")
		return
	}

	e.mu.Lock()
	e.spec = searchSpec{pos: pos.Copy(), history: append([]uint64(nil), history...), limits: limits}
	e.mu.Unlock()

	e.abort.Store(false)
	e.nodes.Store(0)
	e.seldepth.Store(0)
	e.tt.NewSearch()
	e.done = make(chan struct{})

	for _, w := range e.workers {
		w.cmd <- workerCommand{kind: cmdSearch}
	}

	go e.collect()
}

// collect is the orchestrator's post-search rendezvous: it waits for every
// worker to unwind, then publishes the reporter's result as the final
// report. Only after this may the next command touch shared state.
func (e *Engine) collect() {
	for range e.workers {
		<-e.rendezvous
	}

	reporter := e.workers[0]
	e.emit(Report{
		Depth:    reporter.completedDepth,
		SelDepth: int(e.seldepth.Load()),
		Score:    reporter.bestScore,
		Nodes:    e.nodes.Load(),
		Elapsed:  reporter.tm.Elapsed(),
		HashFull: e.tt.HashFull(),
		PV:       reporter.currentPV(),
		BestMove: reporter.bestMove,
		Finished: true,
	})

	e.searching.Store(false)
	close(e.done)
}

// emitProgress is called by the reporter worker after each completed
// iteration.
func (e *Engine) emitProgress(w *Worker, finished bool) {
	e.emit(Report{
		Depth:    w.completedDepth,
		SelDepth: int(e.seldepth.Load()),
		Score:    w.bestScore,
		Nodes:    e.nodes.Load() + w.localNodes&(nodeBurst-1),
		Elapsed:  w.tm.Elapsed(),
		HashFull: e.tt.HashFull(),
		PV:       w.currentPV(),
		BestMove: w.bestMove,
		Finished: finished,
	})
}

func (e *Engine) emit(r Report) {
	if e.OnReport != nil {
		e.OnReport(r)
	}
}

// Stop raises the abort flag. The in-flight search (if any) unwinds within
// one node-accounting burst per worker and the final report follows.
func (e *Engine) Stop() {
	e.abort.Store(true)
}

// Wait blocks until the current search's final report has been emitted.
// Returns immediately when no search is running.
func (e *Engine) Wait() {
	if e.done == nil {
		return
	}
	<-e.done
}

// Searching reports whether a search is in flight.
func (e *Engine) Searching() bool {
	return e.searching.Load()
}

// Quit stops any search and terminates every worker goroutine.
func (e *Engine) Quit() {
	e.Stop()
	e.Wait()
	for _, w := range e.workers {
		w.cmd <- workerCommand{kind: cmdExit}
	}
	e.workers = nil
}

// Evaluate returns the static NNUE evaluation of pos, for the `eval`
// debug command. Runs outside the worker set.
func (e *Engine) Evaluate(pos *board.Position) Eval {
	ev := nnue.NewEvaluator(e.net)
	raw := ev.Evaluate(pos)
	if q := int(e.weakenEval.Load()) + 1; q > 1 {
		raw = quantizeEval(raw, q)
	}
	return Cp(raw)
}

// Perft counts leaf nodes of the legal move tree to the given depth, used
// by the `perft` debug command and the movegen tests.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	moves := pos.GenerateLegalMoves()
	if depth == 1 {
		return uint64(moves.Len())
	}
	var total uint64
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		if !undo.Valid {
			pos.UnmakeMove(m, undo)
			continue
		}
		total += e.Perft(pos, depth-1)
		pos.UnmakeMove(m, undo)
	}
	return total
}
