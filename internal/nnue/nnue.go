// Package nnue implements NNUE (Efficiently Updatable Neural Network)
// evaluation: a feature transformer producing one incrementally-updated
// accumulator per perspective, and a squared-clipped-ReLU output layer.
package nnue

import (
	"github.com/hailam/chesscore/internal/board"
)

// Network architecture constants.
const (
	// Input features per perspective: (piece color relative to the
	// perspective) x piece type x square.
	NumColors  = 2
	NumPieces  = 6
	NumSquares = 64
	InputSize  = NumColors * NumPieces * NumSquares // 768

	// Feature transformer output width per perspective.
	HiddenSize = 512

	// Quantization: feature-transformer outputs are clamped to [0, QA],
	// output-layer weights are scaled by QB, and the final sum is scaled
	// back to centipawns by Scale / (QA * QB).
	QA    = 255
	QB    = 64
	Scale = 400
)

// Evaluator binds a weights set to a per-worker accumulator. Each search
// worker owns one; the Network itself is shared read-only.
type Evaluator struct {
	net *Network
	acc Accumulator
}

// NewEvaluator creates an evaluator over net with an empty accumulator.
func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{net: net}
}

// Evaluate brings the accumulator up to date with pos and runs inference,
// returning a centipawn score from the side to move's perspective.
func (e *Evaluator) Evaluate(pos *board.Position) int {
	e.acc.Update(pos, e.net)
	return e.net.forward(&e.acc, pos.SideToMove)
}

// Reset invalidates the accumulator so the next Evaluate rebuilds it from
// scratch. Called between searches and on "ucinewgame".
func (e *Evaluator) Reset() {
	e.acc.Invalidate()
}

// screlu is the squared clipped ReLU: clamp to [0, QA], then square. The
// result fits in 16 unsigned bits times itself, well inside int32.
func screlu(v int16) int32 {
	c := int32(v)
	if c < 0 {
		c = 0
	}
	if c > QA {
		c = QA
	}
	return c * c
}
