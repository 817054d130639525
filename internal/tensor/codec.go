package tensor

import (
	"encoding/binary"
	"fmt"
	"io"
)

// WriteTo serialises t as: dtype byte, u32 dim count, u32 dims[], u32
// byte-size, bytes. This is the tensor wire format shared by the graph,
// weights and checkpoint file formats.
func (t Tensor) WriteTo(w io.Writer) (int64, error) {
	var n int64

	if _, err := w.Write([]byte{byte(t.dtype)}); err != nil {
		return n, fmt.Errorf("write dtype: %w", err)
	}
	n++

	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.shape))); err != nil {
		return n, fmt.Errorf("write dim count: %w", err)
	}
	n += 4

	for _, d := range t.shape {
		if err := binary.Write(w, binary.LittleEndian, uint32(d)); err != nil {
			return n, fmt.Errorf("write dim: %w", err)
		}
		n += 4
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(t.data))); err != nil {
		return n, fmt.Errorf("write byte size: %w", err)
	}
	n += 4

	written, err := w.Write(t.data)
	n += int64(written)
	if err != nil {
		return n, fmt.Errorf("write bytes: %w", err)
	}

	return n, nil
}

// ReadTensor deserialises a tensor written by WriteTo, validating that the
// declared byte size agrees with shape and dtype.
func ReadTensor(r io.Reader) (Tensor, error) {
	var dtypeByte [1]byte
	if _, err := io.ReadFull(r, dtypeByte[:]); err != nil {
		return Tensor{}, fmt.Errorf("read dtype: %w", err)
	}
	dtype := DType(dtypeByte[0])

	var dimCount uint32
	if err := binary.Read(r, binary.LittleEndian, &dimCount); err != nil {
		return Tensor{}, fmt.Errorf("read dim count: %w", err)
	}

	shape := make([]int64, dimCount)
	for i := range shape {
		var d uint32
		if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
			return Tensor{}, fmt.Errorf("read dim: %w", err)
		}
		shape[i] = int64(d)
	}

	var byteSize uint32
	if err := binary.Read(r, binary.LittleEndian, &byteSize); err != nil {
		return Tensor{}, fmt.Errorf("read byte size: %w", err)
	}

	data := make([]byte, byteSize)
	if byteSize > 0 {
		if _, err := io.ReadFull(r, data); err != nil {
			return Tensor{}, fmt.Errorf("read bytes: %w", err)
		}
	}

	if dimCount == 0 && byteSize == 0 {
		return Tensor{}, nil
	}

	t, err := New(dtype, shape, data)
	if err != nil {
		return Tensor{}, fmt.Errorf("tensor size inconsistency: %w", err)
	}
	return t, nil
}
