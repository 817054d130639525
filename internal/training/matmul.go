package training

import (
	"encoding/hex"
	"fmt"

	"github.com/example/harmonics-go/internal/tensor"
	"lukechampine.com/blake3"
)

// IntMatMul multiplies row-major i32 matrices a (rows×inner) and b
// (inner×cols) with saturating i32 accumulation, the integer path feeding
// gradients into integer SGD.
func IntMatMul(a, b tensor.Tensor, rows, inner, cols int) (tensor.Tensor, error) {
	if a.DType() != tensor.I32 || b.DType() != tensor.I32 {
		return tensor.Tensor{}, fmt.Errorf("training: IntMatMul requires i32 operands")
	}
	av, bv := a.I32(), b.I32()
	if len(av) != rows*inner || len(bv) != inner*cols {
		return tensor.Tensor{}, fmt.Errorf("training: IntMatMul operand shape mismatch")
	}

	out, err := tensor.Zeros(tensor.I32, []int64{int64(rows), int64(cols)})
	if err != nil {
		return tensor.Tensor{}, err
	}
	ov := out.I32()

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var acc int64
			for k := 0; k < inner; k++ {
				acc = saturatingAddI32(acc, int64(av[r*inner+k])*int64(bv[k*cols+c]))
			}
			ov[r*cols+c] = saturateI32(acc)
		}
	}

	return out, nil
}

func saturatingAddI32(acc, term int64) int64 {
	acc += term
	const maxI32 = int64(1<<31 - 1)
	const minI32 = -int64(1 << 31)
	if acc > maxI32 {
		return maxI32
	}
	if acc < minI32 {
		return minI32
	}
	return acc
}

func saturateI32(v int64) int32 {
	const maxI32 = int64(1<<31 - 1)
	const minI32 = -int64(1 << 31)
	if v > maxI32 {
		return int32(maxI32)
	}
	if v < minI32 {
		return int32(minI32)
	}
	return int32(v)
}

// Digest returns the lowercase hex BLAKE3 digest of out's raw bytes, the
// testable property tying integer matmul outputs to a reproducible hash.
func Digest(out tensor.Tensor) string {
	sum := blake3.Sum256(out.Bytes())
	return hex.EncodeToString(sum[:])
}
