package nnue

// Scalar reference kernels. Always compiled so the self-check can compare
// the active backend against them regardless of build configuration.

func scalarAddColumn(dst, col []int16) {
	for i := range dst {
		dst[i] += col[i]
	}
}

func scalarSubColumn(dst, col []int16) {
	for i := range dst {
		dst[i] -= col[i]
	}
}
