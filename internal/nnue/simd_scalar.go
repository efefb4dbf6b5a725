//go:build !goexperiment.simd || !amd64

package nnue

// Portable kernel dispatch: without GOEXPERIMENT=simd (or off amd64) the
// accumulator kernels are the scalar reference implementations.

func kernelAddColumn(dst, col []int16) { scalarAddColumn(dst, col) }
func kernelSubColumn(dst, col []int16) { scalarSubColumn(dst, col) }

// BackendName identifies the active kernel set in logs and self-checks.
const BackendName = "scalar"
