// Package proof implements the rolling BLAKE3 hash chain cycle runtimes use
// to establish chain-of-custody of intermediate activations across forward
// passes and, via boundary buses, across partitions.
package proof

import (
	"encoding/hex"

	"github.com/example/harmonics-go/internal/tensor"
	"lukechampine.com/blake3"
)

// Compute hashes chainPrev followed, in order, by the byte contents of every
// non-empty tensor in layers, and returns the lowercase hex digest. Calling
// Compute("", nil) on an empty layer set (the secure-mode-with-no-layers
// boundary case) returns BLAKE3(""), as the spec requires.
func Compute(chainPrev string, layers []tensor.Tensor) string {
	h := blake3.New(32, nil)
	h.Write([]byte(chainPrev))

	for _, t := range layers {
		if t.IsEmpty() {
			continue
		}
		h.Write(t.Bytes())
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Verify re-derives the digest using previous in place of the runtime's
// stored chain and reports whether it equals proof.
func Verify(previous string, layers []tensor.Tensor, proofValue string) bool {
	return Compute(previous, layers) == proofValue
}
