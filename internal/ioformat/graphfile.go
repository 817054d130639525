// Package ioformat implements the binary file formats exchanged with the
// outside world: the graph file (HGRF), the weights files (HWTS/HNWT), all
// little-endian and length-prefixed, following the same
// read-validate-wrap-error idiom as the runtime checkpoint format in
// internal/cycle.
package ioformat

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/harmonicserr"
)

const (
	graphMagic   = "HGRF"
	graphVersion = uint32(1)
)

// SaveGraph writes g in the HGRF format: magic, version, then the
// producer/consumer/layer declaration vectors and the cycle, each
// length-prefixed.
func SaveGraph(w io.Writer, g *graph.Graph) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(graphMagic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(bw, binary.LittleEndian, graphVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}

	if err := writeProducers(bw, g.Producers); err != nil {
		return err
	}
	if err := writeConsumers(bw, g.Consumers); err != nil {
		return err
	}
	if err := writeLayers(bw, g.Layers); err != nil {
		return err
	}
	if err := writeCycle(bw, g); err != nil {
		return err
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush graph file: %w", err)
	}
	return nil
}

// LoadGraph reads a graph written by SaveGraph and rebuilds it through
// graph.Build, so the result carries the same propagated widths and
// validated node references a freshly-declared graph would.
func LoadGraph(r io.Reader) (*graph.Graph, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic[:]) != graphMagic {
		return nil, fmt.Errorf("bad magic %q: %w", magic, harmonicserr.ErrIO)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != graphVersion {
		return nil, fmt.Errorf("unsupported graph file version %d: %w", version, harmonicserr.ErrIO)
	}

	producers, err := readProducers(r)
	if err != nil {
		return nil, fmt.Errorf("read producers: %w", err)
	}
	consumers, err := readConsumers(r)
	if err != nil {
		return nil, fmt.Errorf("read consumers: %w", err)
	}
	layers, err := readLayers(r)
	if err != nil {
		return nil, fmt.Errorf("read layers: %w", err)
	}
	cycle, err := readCycle(r, producers, consumers, layers)
	if err != nil {
		return nil, fmt.Errorf("read cycle: %w", err)
	}

	g, err := graph.Build(graph.Spec{
		Producers: producers,
		Consumers: consumers,
		Layers:    layers,
		Cycle:     cycle,
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild graph: %w", err)
	}
	return g, nil
}

func writeProducers(w io.Writer, producers []graph.ProducerNode) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(producers))); err != nil {
		return fmt.Errorf("write producer count: %w", err)
	}
	for _, p := range producers {
		if err := writeString(w, p.Name); err != nil {
			return fmt.Errorf("write producer name: %w", err)
		}
		if err := writeOptionalWidth(w, p.Width); err != nil {
			return err
		}
		if err := writeOptionalRatio(w, p.Ratio); err != nil {
			return err
		}
	}
	return nil
}

func readProducers(r io.Reader) ([]graph.ProducerDecl, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read producer count: %w", err)
	}
	decls := make([]graph.ProducerDecl, count)
	for i := range decls {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read producer name: %w", err)
		}
		width, err := readOptionalWidth(r)
		if err != nil {
			return nil, err
		}
		ratio, err := readOptionalRatio(r)
		if err != nil {
			return nil, err
		}
		decls[i] = graph.ProducerDecl{Name: name, Width: width, Ratio: ratio}
	}
	return decls, nil
}

func writeConsumers(w io.Writer, consumers []graph.ConsumerNode) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(consumers))); err != nil {
		return fmt.Errorf("write consumer count: %w", err)
	}
	for _, c := range consumers {
		if err := writeString(w, c.Name); err != nil {
			return fmt.Errorf("write consumer name: %w", err)
		}
		if err := writeOptionalWidth(w, c.Width); err != nil {
			return err
		}
	}
	return nil
}

func readConsumers(r io.Reader) ([]graph.ConsumerDecl, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read consumer count: %w", err)
	}
	decls := make([]graph.ConsumerDecl, count)
	for i := range decls {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read consumer name: %w", err)
		}
		width, err := readOptionalWidth(r)
		if err != nil {
			return nil, err
		}
		decls[i] = graph.ConsumerDecl{Name: name, Width: width}
	}
	return decls, nil
}

// writeLayers writes each layer's ratio and, for wire compatibility with
// the documented file format, its currently-resolved width as the
// has_shape/shape pair. graph.LayerDecl has no explicit-width field (layers
// only ever gain a width through ratio propagation in this package), so
// readLayers reads and discards that pair rather than feeding it back into
// a LayerDecl.
func writeLayers(w io.Writer, layers []graph.LayerNode) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(layers))); err != nil {
		return fmt.Errorf("write layer count: %w", err)
	}
	for _, l := range layers {
		if err := writeString(w, l.Name); err != nil {
			return fmt.Errorf("write layer name: %w", err)
		}
		if err := writeOptionalRatio(w, l.Ratio); err != nil {
			return err
		}
		if err := writeOptionalWidth(w, l.Width); err != nil {
			return err
		}
	}
	return nil
}

func readLayers(r io.Reader) ([]graph.LayerDecl, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read layer count: %w", err)
	}
	decls := make([]graph.LayerDecl, count)
	for i := range decls {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read layer name: %w", err)
		}
		ratio, err := readOptionalRatio(r)
		if err != nil {
			return nil, err
		}
		if _, err := readOptionalWidth(r); err != nil {
			return nil, err
		}
		decls[i] = graph.LayerDecl{Name: name, Ratio: ratio}
	}
	return decls, nil
}

func writeCycle(w io.Writer, g *graph.Graph) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(g.Cycle))); err != nil {
		return fmt.Errorf("write cycle-line count: %w", err)
	}
	for _, line := range g.Cycle {
		if err := writeNodeId(w, line.Source); err != nil {
			return fmt.Errorf("write flow line source: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(line.Arrows))); err != nil {
			return fmt.Errorf("write arrow count: %w", err)
		}
		for _, a := range line.Arrows {
			if err := writeBool(w, a.Backward); err != nil {
				return fmt.Errorf("write arrow backward flag: %w", err)
			}
			if err := writeBool(w, a.Func != ""); err != nil {
				return fmt.Errorf("write arrow has_func flag: %w", err)
			}
			if a.Func != "" {
				if err := writeString(w, a.Func); err != nil {
					return fmt.Errorf("write arrow func name: %w", err)
				}
			}
			if err := writeNodeId(w, a.Target); err != nil {
				return fmt.Errorf("write arrow target: %w", err)
			}
		}
	}
	return nil
}

func readCycle(r io.Reader, producers []graph.ProducerDecl, consumers []graph.ConsumerDecl, layers []graph.LayerDecl) ([]graph.FlowLineDecl, error) {
	names := nodeNamer{producers: producers, consumers: consumers, layers: layers}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read cycle-line count: %w", err)
	}

	lines := make([]graph.FlowLineDecl, count)
	for i := range lines {
		sourceName, err := readNodeName(r, names)
		if err != nil {
			return nil, fmt.Errorf("read flow line source: %w", err)
		}

		var arrowCount uint32
		if err := binary.Read(r, binary.LittleEndian, &arrowCount); err != nil {
			return nil, fmt.Errorf("read arrow count: %w", err)
		}

		arrows := make([]graph.ArrowDecl, arrowCount)
		for j := range arrows {
			backward, err := readBool(r)
			if err != nil {
				return nil, fmt.Errorf("read arrow backward flag: %w", err)
			}
			hasFunc, err := readBool(r)
			if err != nil {
				return nil, fmt.Errorf("read arrow has_func flag: %w", err)
			}
			var funcName string
			if hasFunc {
				funcName, err = readString(r)
				if err != nil {
					return nil, fmt.Errorf("read arrow func name: %w", err)
				}
			}
			targetName, err := readNodeName(r, names)
			if err != nil {
				return nil, fmt.Errorf("read arrow target: %w", err)
			}
			arrows[j] = graph.ArrowDecl{Target: targetName, Backward: backward, Func: funcName}
		}

		lines[i] = graph.FlowLineDecl{Source: sourceName, Arrows: arrows}
	}
	return lines, nil
}

// nodeNamer resolves a serialised (kind, index) pair back to the name Build
// expects in a FlowLineDecl/ArrowDecl.
type nodeNamer struct {
	producers []graph.ProducerDecl
	consumers []graph.ConsumerDecl
	layers    []graph.LayerDecl
}

func writeNodeId(w io.Writer, id graph.NodeId) error {
	if err := binary.Write(w, binary.LittleEndian, uint8(id.Kind)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint32(id.Index))
}

func readNodeName(r io.Reader, names nodeNamer) (string, error) {
	var kindByte uint8
	if err := binary.Read(r, binary.LittleEndian, &kindByte); err != nil {
		return "", fmt.Errorf("read node kind: %w", err)
	}
	var index uint32
	if err := binary.Read(r, binary.LittleEndian, &index); err != nil {
		return "", fmt.Errorf("read node index: %w", err)
	}

	switch graph.NodeKind(kindByte) {
	case graph.Producer:
		if int(index) >= len(names.producers) {
			return "", fmt.Errorf("producer index %d out of range: %w", index, harmonicserr.ErrIO)
		}
		return names.producers[index].Name, nil
	case graph.Consumer:
		if int(index) >= len(names.consumers) {
			return "", fmt.Errorf("consumer index %d out of range: %w", index, harmonicserr.ErrIO)
		}
		return names.consumers[index].Name, nil
	case graph.Layer:
		if int(index) >= len(names.layers) {
			return "", fmt.Errorf("layer index %d out of range: %w", index, harmonicserr.ErrIO)
		}
		return names.layers[index].Name, nil
	default:
		return "", fmt.Errorf("unknown node kind %d: %w", kindByte, harmonicserr.ErrIO)
	}
}

func writeOptionalWidth(w io.Writer, width *int64) error {
	if err := writeBool(w, width != nil); err != nil {
		return fmt.Errorf("write has_shape flag: %w", err)
	}
	if width == nil {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, int32(*width)); err != nil {
		return fmt.Errorf("write shape: %w", err)
	}
	return nil
}

func readOptionalWidth(r io.Reader) (*int64, error) {
	has, err := readBool(r)
	if err != nil {
		return nil, fmt.Errorf("read has_shape flag: %w", err)
	}
	if !has {
		return nil, nil
	}
	var v int32
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return nil, fmt.Errorf("read shape: %w", err)
	}
	width := int64(v)
	return &width, nil
}

func writeOptionalRatio(w io.Writer, r *graph.Ratio) error {
	if err := writeBool(w, r != nil); err != nil {
		return fmt.Errorf("write has_ratio flag: %w", err)
	}
	if r == nil {
		return nil
	}
	if err := binary.Write(w, binary.LittleEndian, int32(r.LHS)); err != nil {
		return fmt.Errorf("write ratio lhs: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(r.RHS)); err != nil {
		return fmt.Errorf("write ratio rhs: %w", err)
	}
	if err := writeString(w, r.Ref); err != nil {
		return fmt.Errorf("write ratio ref: %w", err)
	}
	return nil
}

func readOptionalRatio(r io.Reader) (*graph.Ratio, error) {
	has, err := readBool(r)
	if err != nil {
		return nil, fmt.Errorf("read has_ratio flag: %w", err)
	}
	if !has {
		return nil, nil
	}
	var lhs, rhs int32
	if err := binary.Read(r, binary.LittleEndian, &lhs); err != nil {
		return nil, fmt.Errorf("read ratio lhs: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &rhs); err != nil {
		return nil, fmt.Errorf("read ratio rhs: %w", err)
	}
	ref, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read ratio ref: %w", err)
	}
	return &graph.Ratio{LHS: int(lhs), RHS: int(rhs), Ref: ref}, nil
}

func writeBool(w io.Writer, v bool) error {
	var b byte
	if v {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
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
