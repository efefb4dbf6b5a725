package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalMateEncoding(t *testing.T) {
	assert.True(t, Mating(1).IsMate())
	assert.True(t, Mated(1).IsMate())
	assert.False(t, Cp(100).IsMate())
	assert.False(t, Cp(-28999).IsMate())

	// Deeper mates are worth less.
	assert.Greater(t, Mating(1), Mating(3))
	assert.Less(t, Mated(1), Mated(3))

	assert.True(t, Mated(5).Losing())
	assert.False(t, Cp(-100).Losing())
}

func TestEvalSaturatingArithmetic(t *testing.T) {
	assert.Equal(t, Eval(Infinity), Eval(Infinity-5).Add(100))
	assert.Equal(t, Eval(-Infinity), Eval(-Infinity+5).Sub(100))
	assert.Equal(t, Cp(150), Cp(100).Add(50))
	assert.Equal(t, Cp(50), Cp(100).Sub(50))
	assert.Equal(t, Cp(-7), Cp(7).Negate())
}

func TestEvalPlyRoundTrip(t *testing.T) {
	for _, e := range []Eval{Mating(4), Mated(4), Cp(123), Cp(-123)} {
		for _, ply := range []int{0, 1, 7, 40} {
			assert.Equal(t, e, e.PlySub(ply).PlyAdd(ply), "eval %v ply %d", e, ply)
		}
	}
}

func TestEvalPlySubPushesMatesOut(t *testing.T) {
	// A mate found at ply 6 stored into the TT must read back as a mate
	// at the same distance from the probing node.
	found := Mating(6)
	stored := found.PlySub(6)
	assert.True(t, stored.IsMate())
	assert.Equal(t, Mating(0), stored)
	assert.Equal(t, Mating(10), stored.PlyAdd(10))
}

func TestEvalString(t *testing.T) {
	assert.Equal(t, "cp 42", Cp(42).String())
	assert.Equal(t, "cp -3", Cp(-3).String())
	assert.Equal(t, "mate 1", Mating(1).String())
	assert.Equal(t, "mate 2", Mating(3).String())
	assert.Equal(t, "mate -1", Mated(1).String())
	assert.Equal(t, "mate -2", Mated(4).String())
}

func TestSubEval(t *testing.T) {
	assert.EqualValues(t, 70, SubEval(Cp(50), Cp(-20)))
	assert.EqualValues(t, -70, SubEval(Cp(-20), Cp(50)))
}

func TestQuantizeEval(t *testing.T) {
	// Weaken_Eval 9 => Q = 10: round to the nearest multiple of ten,
	// symmetric in sign.
	assert.Equal(t, 120, quantizeEval(123, 10))
	assert.Equal(t, 130, quantizeEval(125, 10))
	assert.Equal(t, -120, quantizeEval(-123, 10))
	assert.Equal(t, -130, quantizeEval(-125, 10))
	assert.Equal(t, 0, quantizeEval(4, 10))
	assert.Equal(t, 77, quantizeEval(77, 1))
}
