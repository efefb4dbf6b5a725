//go:build goexperiment.simd && amd64

// SIMD kernels for the accumulator hot path. Requires Go's experimental
// SIMD package (GOEXPERIMENT=simd) on AMD64; other configurations fall back
// to the scalar kernels, and the self-check mode verifies both agree
// bit-for-bit.

package nnue

import "simd/archsimd"

// int16 lanes per 256-bit vector.
const simdInt16Width = 16

func kernelAddColumn(dst, col []int16) {
	n := len(dst)
	i := 0
	for ; i+simdInt16Width <= n; i += simdInt16Width {
		d := archsimd.LoadInt16x16(dst[i:])
		c := archsimd.LoadInt16x16(col[i:])
		archsimd.StoreInt16x16(dst[i:], d.Add(c))
	}
	for ; i < n; i++ {
		dst[i] += col[i]
	}
}

func kernelSubColumn(dst, col []int16) {
	n := len(dst)
	i := 0
	for ; i+simdInt16Width <= n; i += simdInt16Width {
		d := archsimd.LoadInt16x16(dst[i:])
		c := archsimd.LoadInt16x16(col[i:])
		archsimd.StoreInt16x16(dst[i:], d.Sub(c))
	}
	for ; i < n; i++ {
		dst[i] -= col[i]
	}
}

// BackendName identifies the active kernel set in logs and self-checks.
const BackendName = "simd256"
