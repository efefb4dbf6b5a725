package nnue

import "github.com/hailam/chesscore/internal/board"

// Accumulator is the running feature-transformer output for both
// perspectives. Instead of tracking dirty pieces through make/unmake, it
// records the (color, piece) bitboards it was built against; Update diffs
// those against the live position and applies only the changed columns.
// This makes the accumulator self-healing: any sequence of moves, unmakes
// or position swaps converges to the correct state at the next Update.
type Accumulator struct {
	vals [2][HiddenSize]int16

	// Enabled sets per perspective, in board coordinates.
	sets [2][2][6]board.Bitboard

	// Horizontal mirror mask (0 or 7) each perspective was built with.
	mirror [2]int

	valid [2]bool
}

// Invalidate forces a full rebuild on the next Update.
func (acc *Accumulator) Invalidate() {
	acc.valid[board.White] = false
	acc.valid[board.Black] = false
}

// Update brings both perspectives in sync with pos. A perspective whose
// king crossed the mirror boundary (or that was never built) is refreshed
// from the bias; otherwise the bitboard diff yields the add/remove feature
// lists and only those columns are applied.
func (acc *Accumulator) Update(pos *board.Position, net *Network) {
	for persp := board.White; persp <= board.Black; persp++ {
		mir := mirrorMask(pos.KingSquare[persp])
		if !acc.valid[persp] || acc.mirror[persp] != mir {
			acc.refresh(pos, net, persp, mir)
			continue
		}
		acc.applyDiff(pos, net, persp, mir)
	}
	if SelfCheckEnabled {
		acc.selfCheck(pos, net)
	}
}

func (acc *Accumulator) refresh(pos *board.Position, net *Network, persp board.Color, mir int) {
	copy(acc.vals[persp][:], net.FTBias[:])

	var featBuf [32]int
	feats := appendActiveFeatures(pos, persp, mir, featBuf[:0])
	for _, f := range feats {
		kernelAddColumn(acc.vals[persp][:], net.FTWeights[f][:])
	}

	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			acc.sets[persp][c][pt] = pos.Pieces[c][pt]
		}
	}
	acc.mirror[persp] = mir
	acc.valid[persp] = true
}

func (acc *Accumulator) applyDiff(pos *board.Position, net *Network, persp board.Color, mir int) {
	for c := board.White; c <= board.Black; c++ {
		for pt := board.Pawn; pt <= board.King; pt++ {
			cur := pos.Pieces[c][pt]
			old := acc.sets[persp][c][pt]
			if cur == old {
				continue
			}

			removed := old &^ cur
			for removed != 0 {
				sq := removed.PopLSB()
				f := FeatureIndex(persp, mir, pt, c, sq)
				kernelSubColumn(acc.vals[persp][:], net.FTWeights[f][:])
			}
			added := cur &^ old
			for added != 0 {
				sq := added.PopLSB()
				f := FeatureIndex(persp, mir, pt, c, sq)
				kernelAddColumn(acc.vals[persp][:], net.FTWeights[f][:])
			}
			acc.sets[persp][c][pt] = cur
		}
	}
}

// selfCheck rebuilds both perspectives with the scalar kernels into a
// scratch accumulator and panics on any divergence from the incremental
// (possibly SIMD-updated) state. Enabled only in self-check builds/tests;
// a mismatch means a kernel bug, not a recoverable condition.
func (acc *Accumulator) selfCheck(pos *board.Position, net *Network) {
	for persp := board.White; persp <= board.Black; persp++ {
		mir := mirrorMask(pos.KingSquare[persp])

		var want [HiddenSize]int16
		copy(want[:], net.FTBias[:])
		var featBuf [32]int
		for _, f := range appendActiveFeatures(pos, persp, mir, featBuf[:0]) {
			scalarAddColumn(want[:], net.FTWeights[f][:])
		}

		for i := 0; i < HiddenSize; i++ {
			if acc.vals[persp][i] != want[i] {
				panic("nnue: accumulator self-check failed: incremental and scalar rebuild disagree")
			}
		}
	}
}

// SelfCheckEnabled turns on the per-update scalar cross-check. It is a
// plain package variable rather than a build tag so tests can flip it; the
// search never touches it.
var SelfCheckEnabled = false
