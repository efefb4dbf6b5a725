package engine

import (
	"math/bits"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

// TTEntry is the value type returned by Probe, unpacked from the table's
// compact atomic representation for convenient use by the search.
type TTEntry struct {
	Found    bool
	BestMove board.Move
	Score    int16
	Eval     int16 // static eval at the time of store, independent of Score
	Depth    int8
	Flag     TTFlag
	PV       bool
}

// Each table index holds two independently atomic 64-bit words: one packed
// search record (move/score/depth/bound/generation) and one packed static
// eval record. Splitting them lets a qsearch-only probe (which only wants
// the cached static eval) avoid touching the heavier search word, and lets
// the search update its record without disturbing a concurrently-written
// eval from a sibling worker's probe of the same bucket.
type ttBucket struct {
	search atomic.Uint64
	seval  atomic.Uint64
}

// search word layout (low to high bit):
//
//	0..15   verification (top 16 bits of the zobrist key)
//	16..31  best move (board.Move)
//	32..47  score (int16, ply-normalized per PlySub/PlyAdd)
//	48..55  depth (int8, stored as uint8 bias +0 since depth is never negative here)
//	56..57  bound (TTFlag)
//	58      pv flag
//	59..63  generation (5 bits, wraps every 32 searches)
const (
	ttVerifShift = 0
	ttMoveShift  = 16
	ttScoreShift = 32
	ttDepthShift = 48
	ttBoundShift = 56
	ttPVShift    = 58
	ttGenShift   = 59

	ttVerifMask = 0xFFFF
	ttMoveMask  = 0xFFFF
	ttScoreMask = 0xFFFF
	ttDepthMask = 0xFF
	ttBoundMask = 0x3
	ttGenMask   = 0x1F
)

// seval word layout: verification (16 bits) + eval (16 bits, int16).
const (
	ttEVerifShift = 0
	ttEEvalShift  = 16
)

func packSearch(verif uint16, mv board.Move, score int16, depth int8, flag TTFlag, pv bool, gen uint8) uint64 {
	v := uint64(verif) << ttVerifShift
	v |= uint64(uint16(mv)) << ttMoveShift
	v |= uint64(uint16(score)) << ttScoreShift
	v |= uint64(uint8(depth)) << ttDepthShift
	v |= uint64(flag&ttBoundMask) << ttBoundShift
	if pv {
		v |= 1 << ttPVShift
	}
	v |= uint64(gen&ttGenMask) << ttGenShift
	return v
}

func unpackSearch(w uint64) (verif uint16, mv board.Move, score int16, depth int8, flag TTFlag, pv bool, gen uint8) {
	verif = uint16(w >> ttVerifShift & ttVerifMask)
	mv = board.Move(uint16(w >> ttMoveShift & ttMoveMask))
	score = int16(uint16(w >> ttScoreShift & ttScoreMask))
	depth = int8(uint8(w >> ttDepthShift & ttDepthMask))
	flag = TTFlag(w >> ttBoundShift & ttBoundMask)
	pv = w>>ttPVShift&1 != 0
	gen = uint8(w >> ttGenShift & ttGenMask)
	return
}

func packSEval(verif uint16, eval int16) uint64 {
	return uint64(verif)<<ttEVerifShift | uint64(uint16(eval))<<ttEEvalShift
}

func unpackSEval(w uint64) (verif uint16, eval int16) {
	verif = uint16(w >> ttEVerifShift & 0xFFFF)
	eval = int16(uint16(w >> ttEEvalShift & 0xFFFF))
	return
}

// TranspositionTable is a lock-free, shared transposition table. Every
// bucket is two independently atomic words; readers and writers from
// multiple search workers never block each other, at the cost of the usual
// lock-free TT hazard: a torn read can report a spurious hash collision,
// which is why every consumer treats the verification mismatch case as
// "miss" rather than an error.
type TranspositionTable struct {
	buckets    []ttBucket
	count      uint64 // number of buckets; addressing uses high-multiplication, not masking
	generation atomic.Uint32
}

// NewTranspositionTable creates a transposition table with the given size
// in megabytes. Bucket count need not be a power of two: addressing uses
// (hash * count) >> 64 (Lemire's bounded multiplication trick) instead of a
// bitmask, so any table size can be used without wasting memory rounding up
// to the next power of two.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	const bucketSize = 16 // two uint64 words
	n := uint64(sizeMB) * 1024 * 1024 / bucketSize
	if n < 1 {
		n = 1
	}
	return &TranspositionTable{
		buckets: make([]ttBucket, n),
		count:   n,
	}
}

func (tt *TranspositionTable) index(hash uint64) uint64 {
	hi, _ := bits.Mul64(hash, tt.count)
	return hi
}

func verifBits(hash uint64) uint16 {
	return uint16(hash >> 48)
}

// Probe looks up a position by hash. The returned score is still
// ply-relative to the TT's root-normalized encoding; callers must run it
// through Eval.PlyAdd(ply) before comparing against a live alpha/beta.
func (tt *TranspositionTable) Probe(hash uint64) (TTEntry, bool) {
	b := &tt.buckets[tt.index(hash)]
	w := b.search.Load()
	if w == 0 {
		// Never-written slot; without this check a hash whose top 16
		// bits are zero would "verify" against the empty word.
		return TTEntry{}, false
	}
	verif, mv, score, depth, flag, pv, _ := unpackSearch(w)
	if verif != verifBits(hash) {
		return TTEntry{}, false
	}
	return TTEntry{
		Found:    true,
		BestMove: mv,
		Score:    score,
		Depth:    depth,
		Flag:     flag,
		PV:       pv,
	}, true
}

// Store always overwrites: the table has no separate depth-preferred
// replacement pass, since the generation tag plus the usual much-larger
// search-tree churn already favors keeping fresh, relevant entries without
// a comparison branch on every store.
func (tt *TranspositionTable) Store(hash uint64, depth int, score int16, flag TTFlag, bestMove board.Move, pv bool) {
	b := &tt.buckets[tt.index(hash)]
	gen := uint8(tt.generation.Load())

	// Preserve a previously stored best move on a bound-only re-store with
	// no move of its own (e.g. a fail-low re-probe), since a known good
	// move is more valuable for ordering than clobbering it with NoMove.
	if bestMove == board.NoMove {
		_, prevMove, _, _, _, _, _ := unpackSearch(b.search.Load())
		bestMove = prevMove
	}

	w := packSearch(verifBits(hash), bestMove, score, int8(depth), flag, pv, gen)
	b.search.Store(w)
}

// ProbeEval reads the cached static evaluation for a position, independent
// of whether a search record exists for it.
func (tt *TranspositionTable) ProbeEval(hash uint64) (int16, bool) {
	b := &tt.buckets[tt.index(hash)]
	w := b.seval.Load()
	if w == 0 {
		return 0, false
	}
	verif, eval := unpackSEval(w)
	if verif != verifBits(hash) {
		return 0, false
	}
	return eval, true
}

// StoreEval caches a static evaluation for a position.
func (tt *TranspositionTable) StoreEval(hash uint64, eval int16) {
	b := &tt.buckets[tt.index(hash)]
	b.seval.Store(packSEval(verifBits(hash), eval))
}

// NewSearch bumps the generation tag for a new `go` command.
func (tt *TranspositionTable) NewSearch() {
	tt.generation.Add(1)
}

// ClearRange zeroes the buckets in [lo, hi). Ranges handed to different
// workers must be disjoint; within that contract the clear is lock-free
// (plain atomic stores) and runs fully in parallel.
func (tt *TranspositionTable) ClearRange(lo, hi uint64) {
	if hi > tt.count {
		hi = tt.count
	}
	for i := lo; i < hi; i++ {
		tt.buckets[i].search.Store(0)
		tt.buckets[i].seval.Store(0)
	}
}

// Partition splits the bucket array into n contiguous disjoint ranges for
// a cooperative parallel clear.
func (tt *TranspositionTable) Partition(n int) [][2]uint64 {
	if n < 1 {
		n = 1
	}
	chunk := (tt.count + uint64(n) - 1) / uint64(n)
	ranges := make([][2]uint64, 0, n)
	for lo := uint64(0); lo < tt.count; lo += chunk {
		hi := lo + chunk
		if hi > tt.count {
			hi = tt.count
		}
		ranges = append(ranges, [2]uint64{lo, hi})
	}
	return ranges
}

// Clear zeroes the whole table from the calling goroutine, used on resize
// where no workers exist to share the work yet.
func (tt *TranspositionTable) Clear() {
	tt.ClearRange(0, tt.count)
	tt.generation.Store(0)
}

// HashFull returns the permille of the table holding a current-generation
// entry, sampled from the first 1000 buckets per the UCI `info hashfull`
// convention.
func (tt *TranspositionTable) HashFull() int {
	n := len(tt.buckets)
	sample := 1000
	if n < sample {
		sample = n
	}
	if sample == 0 {
		return 0
	}
	gen := uint8(tt.generation.Load())
	used := 0
	for i := 0; i < sample; i++ {
		_, _, _, depth, _, _, g := unpackSearch(tt.buckets[i].search.Load())
		if depth > 0 && g == gen {
			used++
		}
	}
	return used * 1000 / sample
}

// Size returns the number of buckets in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.count
}

// AdjustScoreFromTT converts a root-normalized score read from the table
// into one relative to the current search ply.
func AdjustScoreFromTT(score int, ply int) int {
	return int(Eval(score).PlyAdd(ply))
}

// AdjustScoreToTT converts a ply-relative live score into the
// root-normalized form stored in the table.
func AdjustScoreToTT(score int, ply int) int {
	return int(Eval(score).PlySub(ply))
}
