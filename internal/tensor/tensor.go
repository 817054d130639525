// Package tensor provides the dense, multi-dtype value type shared by every
// other package in the engine: graph bindings, cycle state, checkpoints and
// the training loop all move data around as a Tensor.
package tensor

import (
	"errors"
	"fmt"
	"math"
)

// DType identifies the element type stored in a Tensor's byte buffer.
type DType int

const (
	F32 DType = iota
	F64
	I32
	I64
	U8
)

// String returns the wire/debug name of a dtype.
func (d DType) String() string {
	switch d {
	case F32:
		return "f32"
	case F64:
		return "f64"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	default:
		return fmt.Sprintf("dtype(%d)", int(d))
	}
}

// Size reports the size in bytes of one element of d.
func (d DType) Size() int {
	switch d {
	case F32, I32:
		return 4
	case F64, I64:
		return 8
	case U8:
		return 1
	default:
		return 0
	}
}

// Float reports whether d is a floating-point dtype. Gradient clipping and
// the optimiser update laws only apply to floating dtypes.
func (d DType) Float() bool {
	return d == F32 || d == F64
}

// Tensor is a dense, row-major, value-typed tensor. The zero Tensor is the
// empty tensor (rank 0, no data) and is a valid value.
type Tensor struct {
	dtype DType
	shape []int64
	data  []byte
}

// New creates a tensor from a raw byte buffer, validating that its length
// matches dtype.Size() * elemCount(shape).
func New(dtype DType, shape []int64, data []byte) (Tensor, error) {
	n, err := ElemCount(shape)
	if err != nil {
		return Tensor{}, err
	}

	want := n * dtype.Size()
	if len(data) != want {
		return Tensor{}, fmt.Errorf("tensor: data length %d does not match shape %v dtype %s (want %d bytes)", len(data), shape, dtype, want)
	}

	return Tensor{
		dtype: dtype,
		shape: append([]int64(nil), shape...),
		data:  append([]byte(nil), data...),
	}, nil
}

// Zeros creates a zero-initialised tensor of the given dtype and shape.
func Zeros(dtype DType, shape []int64) (Tensor, error) {
	n, err := ElemCount(shape)
	if err != nil {
		return Tensor{}, err
	}

	return Tensor{
		dtype: dtype,
		shape: append([]int64(nil), shape...),
		data:  make([]byte, n*dtype.Size()),
	}, nil
}

// FromFloat32 builds an F32 tensor directly from float values, the common
// case for layer and weight tensors produced by the cycle runtime.
func FromFloat32(values []float32, shape []int64) (Tensor, error) {
	t, err := Zeros(F32, shape)
	if err != nil {
		return Tensor{}, err
	}

	if len(values) != t.ElemCount() {
		return Tensor{}, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(values), shape, t.ElemCount())
	}

	copy(t.F32(), values)

	return t, nil
}

// IsEmpty reports whether t carries no elements (the spec's "empty tensor").
func (t Tensor) IsEmpty() bool {
	return len(t.data) == 0
}

func (t Tensor) DType() DType   { return t.dtype }
func (t Tensor) Shape() []int64 { return append([]int64(nil), t.shape...) }
func (t Tensor) Rank() int      { return len(t.shape) }

// ElemCount returns the number of elements described by t's shape.
func (t Tensor) ElemCount() int {
	n, _ := ElemCount(t.shape)
	return n
}

// Bytes returns the tensor's raw byte buffer. Callers must treat it as
// read-only; use Clone to obtain an independently mutable copy.
func (t Tensor) Bytes() []byte { return t.data }

// Clone returns a deep copy of t.
func (t Tensor) Clone() Tensor {
	return Tensor{
		dtype: t.dtype,
		shape: append([]int64(nil), t.shape...),
		data:  append([]byte(nil), t.data...),
	}
}

// Reshape returns a tensor over the same elements with a new shape.
func (t Tensor) Reshape(shape []int64) (Tensor, error) {
	n, err := ElemCount(shape)
	if err != nil {
		return Tensor{}, err
	}

	if n != t.ElemCount() {
		return Tensor{}, fmt.Errorf("tensor: cannot reshape %v (%d elements) to %v (%d elements)", t.shape, t.ElemCount(), shape, n)
	}

	out := t.Clone()
	out.shape = append([]int64(nil), shape...)

	return out, nil
}

// F32 interprets the buffer as a []float32 view backed by t's bytes.
// Writes through the returned slice mutate t.
func (t Tensor) F32() []float32 {
	if t.dtype != F32 {
		return nil
	}
	return byteSliceAs[float32](t.data)
}

// F64 interprets the buffer as a []float64 view backed by t's bytes.
func (t Tensor) F64() []float64 {
	if t.dtype != F64 {
		return nil
	}
	return byteSliceAs[float64](t.data)
}

// I32 interprets the buffer as a []int32 view backed by t's bytes.
func (t Tensor) I32() []int32 {
	if t.dtype != I32 {
		return nil
	}
	return byteSliceAs[int32](t.data)
}

// I64 interprets the buffer as a []int64 view backed by t's bytes.
func (t Tensor) I64() []int64 {
	if t.dtype != I64 {
		return nil
	}
	return byteSliceAs[int64](t.data)
}

// U8 interprets the buffer as a []uint8 view backed by t's bytes.
func (t Tensor) U8() []uint8 {
	if t.dtype != U8 {
		return nil
	}
	return t.data
}

// ElemCount computes the product of shape, erroring on negative dims or
// overflow, mirroring the donor tensor package's shapeElemCount.
func ElemCount(shape []int64) (int, error) {
	total := int64(1)

	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("tensor: shape %v has negative dimension at %d", shape, i)
		}

		total *= d
		if total < 0 || total > math.MaxInt32<<16 {
			return 0, fmt.Errorf("tensor: shape %v too large", shape)
		}
	}

	return int(total), nil
}

// ErrNilTensor is returned by operations that require a non-empty tensor
// but received the zero value.
var ErrNilTensor = errors.New("tensor: empty tensor")
