package nnue

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Weights blob layout: consecutive little-endian int16 arrays in the order
// feature-transformer weights (InputSize x HiddenSize), feature-transformer
// bias (HiddenSize), output weights (2 x HiddenSize), then one int32 output
// bias. No header; the expected byte length is the integrity check.
const blobSize = (InputSize*HiddenSize+HiddenSize+2*HiddenSize)*2 + 4

// LoadWeights reads a weights blob from path into a fresh Network. Any
// size mismatch or short read is an error; the caller is expected to treat
// it as fatal at startup.
func LoadWeights(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nnue: open weights: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("nnue: stat weights: %w", err)
	}
	if st.Size() != blobSize {
		return nil, fmt.Errorf("nnue: weights blob is %d bytes, want %d (arch %dx%d)",
			st.Size(), blobSize, InputSize, HiddenSize)
	}

	return ReadWeights(bufio.NewReaderSize(f, 1<<16))
}

// ReadWeights decodes a weights blob from r.
func ReadWeights(r io.Reader) (*Network, error) {
	net := NewNetwork()

	for i := 0; i < InputSize; i++ {
		if err := readInt16s(r, net.FTWeights[i][:]); err != nil {
			return nil, fmt.Errorf("nnue: feature weights: %w", err)
		}
	}
	if err := readInt16s(r, net.FTBias[:]); err != nil {
		return nil, fmt.Errorf("nnue: feature bias: %w", err)
	}
	if err := readInt16s(r, net.OutWeights[:]); err != nil {
		return nil, fmt.Errorf("nnue: output weights: %w", err)
	}

	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, fmt.Errorf("nnue: output bias: %w", err)
	}
	net.OutBias = int32(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)

	return net, nil
}

// readInt16s fills out with little-endian int16 values from r. Decoding
// byte-by-byte keeps the loader correct independent of host order; the
// big-endian build guard exists because the rest of the engine assumes the
// native layout when slicing accumulators.
func readInt16s(r io.Reader, out []int16) error {
	buf := make([]byte, 2*len(out))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	for i := range out {
		out[i] = int16(uint16(buf[2*i]) | uint16(buf[2*i+1])<<8)
	}
	return nil
}
