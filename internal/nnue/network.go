package nnue

import "github.com/hailam/chesscore/internal/board"

// Network holds the quantized weights. One instance is shared read-only by
// every search worker; per-worker mutable state lives in Accumulator.
type Network struct {
	// Feature transformer: InputSize columns of HiddenSize int16 each,
	// stored column-major so an accumulator update touches one contiguous
	// slice per changed feature.
	FTWeights [InputSize][HiddenSize]int16
	FTBias    [HiddenSize]int16

	// Output layer: one weight per activated neuron, stm half first.
	OutWeights [2 * HiddenSize]int16
	OutBias    int32
}

// NewNetwork returns a zero-weight network; callers load a weights blob or
// initialize randomly for testing.
func NewNetwork() *Network {
	return &Network{}
}

// forward runs the output layer over an up-to-date accumulator. The
// activation is SCReLU: each clamped neuron is squared before it meets its
// weight, so the sum carries an extra factor of QA that is divided back out
// before the final centipawn scaling.
func (n *Network) forward(acc *Accumulator, stm board.Color) int {
	stmVals := &acc.vals[stm]
	nstmVals := &acc.vals[stm.Other()]

	var sum int64
	for i := 0; i < HiddenSize; i++ {
		sum += int64(screlu(stmVals[i])) * int64(n.OutWeights[i])
	}
	for i := 0; i < HiddenSize; i++ {
		sum += int64(screlu(nstmVals[i])) * int64(n.OutWeights[HiddenSize+i])
	}

	sum = sum/QA + int64(n.OutBias)
	eval := int(sum * Scale / (QA * QB))

	// Clip into the non-mate band; mate distances are the search's business.
	const evalLimit = 28000
	if eval > evalLimit {
		eval = evalLimit
	}
	if eval < -evalLimit {
		eval = -evalLimit
	}
	return eval
}

// InitRandom fills the network with small deterministic pseudo-random
// weights. Used by tests and as the fallback when no weights blob is
// supplied, so the engine still plays legal (if weak) chess.
func (n *Network) InitRandom(seed uint64) {
	state := seed
	next := func() int16 {
		state = state*6364136223846793005 + 1442695040888963407
		return int16((state>>48)&0xFF) - 128
	}

	for i := 0; i < InputSize; i++ {
		for j := 0; j < HiddenSize; j++ {
			n.FTWeights[i][j] = next() >> 4
		}
	}
	for i := 0; i < HiddenSize; i++ {
		n.FTBias[i] = next() >> 2
	}
	for i := 0; i < 2*HiddenSize; i++ {
		n.OutWeights[i] = next() >> 3
	}
	n.OutBias = int32(next())
}
