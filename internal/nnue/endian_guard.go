//go:build mips || mips64 || ppc64 || s390x

package nnue

// The weights blob is little-endian and the SIMD kernels reinterpret
// accumulator memory as wider lanes, so big-endian targets are rejected at
// compile time rather than producing a silently mis-evaluating engine.
const bigEndianHostUnsupported = -1

var _ [bigEndianHostUnsupported]byte
