package ioformat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/tensor"
)

const (
	weightsMagic   = "HWTS"
	weightsVersion = uint32(1)

	namedWeightsMagic   = "HNWT"
	namedWeightsVersion = uint32(1)
)

// SaveWeights writes tensors in the HWTS format: magic, version, count,
// then each tensor in the shared tensor wire format.
func SaveWeights(w io.Writer, tensors []tensor.Tensor) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(weightsMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, weightsVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(tensors))); err != nil {
		return fmt.Errorf("write tensor count: %w", err)
	}
	for i, t := range tensors {
		if _, err := t.WriteTo(bw); err != nil {
			return fmt.Errorf("write tensor %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush weights file: %w", err)
	}
	return nil
}

// LoadWeights reads a file written by SaveWeights.
func LoadWeights(r io.Reader) ([]tensor.Tensor, error) {
	if err := expectMagic(r, weightsMagic); err != nil {
		return nil, err
	}
	if err := expectVersion(r, weightsVersion); err != nil {
		return nil, err
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read tensor count: %w", err)
	}

	tensors := make([]tensor.Tensor, count)
	for i := range tensors {
		t, err := tensor.ReadTensor(r)
		if err != nil {
			return nil, fmt.Errorf("read tensor %d: %w", i, err)
		}
		tensors[i] = t
	}
	return tensors, nil
}

// SaveNamedWeights writes names/tensors in the HNWT format: magic,
// version, count, then count (length-prefixed name, tensor) pairs. names
// and tensors must be the same length.
func SaveNamedWeights(w io.Writer, names []string, tensors []tensor.Tensor) error {
	if len(names) != len(tensors) {
		return fmt.Errorf("ioformat: %d names for %d tensors", len(names), len(tensors))
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(namedWeightsMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, namedWeightsVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(tensors))); err != nil {
		return fmt.Errorf("write pair count: %w", err)
	}
	for i := range tensors {
		if err := writeString(bw, names[i]); err != nil {
			return fmt.Errorf("write name %d: %w", i, err)
		}
		if _, err := tensors[i].WriteTo(bw); err != nil {
			return fmt.Errorf("write tensor %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush named weights file: %w", err)
	}
	return nil
}

// LoadNamedWeights reads a file written by SaveNamedWeights.
func LoadNamedWeights(r io.Reader) ([]string, []tensor.Tensor, error) {
	if err := expectMagic(r, namedWeightsMagic); err != nil {
		return nil, nil, err
	}
	if err := expectVersion(r, namedWeightsVersion); err != nil {
		return nil, nil, err
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, nil, fmt.Errorf("read pair count: %w", err)
	}

	names := make([]string, count)
	tensors := make([]tensor.Tensor, count)
	for i := range tensors {
		name, err := readString(r)
		if err != nil {
			return nil, nil, fmt.Errorf("read name %d: %w", i, err)
		}
		t, err := tensor.ReadTensor(r)
		if err != nil {
			return nil, nil, fmt.Errorf("read tensor %d: %w", i, err)
		}
		names[i] = name
		tensors[i] = t
	}
	return names, tensors, nil
}

func expectMagic(r io.Reader, want string) error {
	buf := make([]byte, len(want))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(buf) != want {
		return fmt.Errorf("bad magic %q, want %q: %w", buf, want, harmonicserr.ErrIO)
	}
	return nil
}

func expectVersion(r io.Reader, want uint32) error {
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if version != want {
		return fmt.Errorf("unsupported version %d, want %d: %w", version, want, harmonicserr.ErrIO)
	}
	return nil
}
