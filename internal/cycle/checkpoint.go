package cycle

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/tensor"
)

const (
	checkpointMagic   = "HRTC"
	checkpointVersion = uint32(1)
)

// Save writes a runtime checkpoint: magic, version, the four tensor
// vectors and the precision-bits vector (each length-prefixed), then the
// chain string.
func (r *Runtime) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(checkpointMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, checkpointVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	vectors := [][]tensor.Tensor{
		r.state.ProducerTensors,
		r.state.LayerTensors,
		r.state.ConsumerTensors,
		r.state.Weights,
	}
	for _, vec := range vectors {
		if err := writeTensorVector(bw, vec); err != nil {
			return err
		}
	}

	if err := binary.Write(bw, binary.LittleEndian, uint32(len(r.state.PrecisionBits))); err != nil {
		return fmt.Errorf("write precision-bits count: %w", err)
	}
	for _, bits := range r.state.PrecisionBits {
		if err := binary.Write(bw, binary.LittleEndian, uint32(bits)); err != nil {
			return fmt.Errorf("write precision bits: %w", err)
		}
	}

	if err := writeString(bw, r.chain); err != nil {
		return fmt.Errorf("write chain: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}

	return nil
}

// Load reads a checkpoint written by Save, replacing the runtime's cycle
// state. The proof is reset to empty; the chain is restored from the file
// so a resumed run continues the same hash chain.
func (r *Runtime) Load(rd io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(rd, magic[:]); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:]) != checkpointMagic {
		return fmt.Errorf("bad magic %q: %w", magic, harmonicserr.ErrIO)
	}

	var version uint32
	if err := binary.Read(rd, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if version != checkpointVersion {
		return fmt.Errorf("unsupported checkpoint version %d: %w", version, harmonicserr.ErrIO)
	}

	producers, err := readTensorVector(rd)
	if err != nil {
		return fmt.Errorf("read producer tensors: %w", err)
	}
	layers, err := readTensorVector(rd)
	if err != nil {
		return fmt.Errorf("read layer tensors: %w", err)
	}
	consumers, err := readTensorVector(rd)
	if err != nil {
		return fmt.Errorf("read consumer tensors: %w", err)
	}
	weights, err := readTensorVector(rd)
	if err != nil {
		return fmt.Errorf("read weights: %w", err)
	}

	var bitsCount uint32
	if err := binary.Read(rd, binary.LittleEndian, &bitsCount); err != nil {
		return fmt.Errorf("read precision-bits count: %w", err)
	}
	precisionBits := make([]int, bitsCount)
	for i := range precisionBits {
		var bits uint32
		if err := binary.Read(rd, binary.LittleEndian, &bits); err != nil {
			return fmt.Errorf("read precision bits: %w", err)
		}
		precisionBits[i] = int(bits)
	}

	chain, err := readString(rd)
	if err != nil {
		return fmt.Errorf("read chain: %w", err)
	}

	r.state.ProducerTensors = producers
	r.state.LayerTensors = layers
	r.state.ConsumerTensors = consumers
	r.state.Weights = weights
	r.state.PrecisionBits = precisionBits
	r.chain = chain
	r.proof = ""

	return nil
}

func writeTensorVector(w io.Writer, vec []tensor.Tensor) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(vec))); err != nil {
		return fmt.Errorf("write tensor vector count: %w", err)
	}
	for _, t := range vec {
		if _, err := t.WriteTo(w); err != nil {
			return fmt.Errorf("write tensor: %w", err)
		}
	}
	return nil
}

func readTensorVector(r io.Reader) ([]tensor.Tensor, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read tensor vector count: %w", err)
	}

	vec := make([]tensor.Tensor, count)
	for i := range vec {
		t, err := tensor.ReadTensor(r)
		if err != nil {
			return nil, fmt.Errorf("read tensor %d: %w", i, err)
		}
		vec[i] = t
	}
	return vec, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
	}
	return string(buf), nil
}
