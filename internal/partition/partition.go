// Package partition implements the layer-split partitioner that turns one
// graph into two graphs joined by synthetic boundary producer/consumer
// pairs, plus the backend-weighted auto-partitioner used when deploying a
// single graph across heterogeneous backends.
package partition

import (
	"fmt"

	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/harmonicserr"
)

// ByLayer splits g at layer index split: the first graph inherits layers
// [0, split), the second inherits [split, |layers|). Every producer and
// consumer is duplicated into both graphs; arrows whose endpoints cross
// the split are rewired through synthetic "boundary<k>" producer/consumer
// pairs. boundaryStart is the first value the boundary counter takes;
// nextBoundary is returned so repeated splits across a whole auto-partition
// run share one counter.
func ByLayer(g *graph.Graph, split int, boundaryStart int) (first, second *graph.Graph, nextBoundary int, err error) {
	if split < 0 || split > len(g.Layers) {
		return nil, nil, boundaryStart, fmt.Errorf("split %d out of range [0,%d]: %w", split, len(g.Layers), harmonicserr.ErrPartition)
	}

	firstSpec := baseSpec(g)
	secondSpec := baseSpec(g)
	firstSpec.Layers = declsFromLayers(g, 0, split)
	secondSpec.Layers = declsFromLayers(g, split, len(g.Layers))

	boundary := boundaryStart

	for _, line := range g.Cycle {
		for _, a := range line.Arrows {
			boundary = placeArrow(g, &firstSpec, &secondSpec, line.Source, a, split, boundary)
		}
	}

	first, err = graph.Build(firstSpec)
	if err != nil {
		return nil, nil, boundaryStart, fmt.Errorf("build first partition: %w", err)
	}
	second, err = graph.Build(secondSpec)
	if err != nil {
		return nil, nil, boundaryStart, fmt.Errorf("build second partition: %w", err)
	}

	return first, second, boundary, nil
}

// layerSide reports which partition a layer node falls into (0 or 1), or
// -1 if id is not a layer (producers and consumers are duplicated into
// both partitions, so they never determine a split side on their own).
func layerSide(id graph.NodeId, split int) int {
	if id.Kind != graph.Layer {
		return -1
	}
	if id.Index >= split {
		return 1
	}
	return 0
}

// placeArrow adds one arrow of one flow line to whichever partition spec
// it belongs in, inserting a synthetic boundary producer/consumer pair
// when the source and target layers fall on opposite sides of the split.
// It returns the boundary counter's next value.
func placeArrow(g *graph.Graph, firstSpec, secondSpec *graph.Spec, source graph.NodeId, a graph.Arrow, split, boundary int) int {
	srcSide := layerSide(source, split)
	dstSide := layerSide(a.Target, split)

	switch {
	case srcSide == -1 && dstSide == -1:
		// Neither endpoint is a layer: the arrow is unaffected by the
		// split (both producer/consumer tables are duplicated), so it is
		// kept once, in the first partition, to avoid firing twice.
		addLocalArrow(firstSpec, nodeName(g, source), nodeName(g, a.Target), a)
		return boundary
	case srcSide == -1:
		addLocalArrow(sideSpec(firstSpec, secondSpec, dstSide), nodeName(g, source), nodeName(g, a.Target), a)
		return boundary
	case dstSide == -1:
		addLocalArrow(sideSpec(firstSpec, secondSpec, srcSide), nodeName(g, source), nodeName(g, a.Target), a)
		return boundary
	case srcSide == dstSide:
		addLocalArrow(sideSpec(firstSpec, secondSpec, srcSide), nodeName(g, source), nodeName(g, a.Target), a)
		return boundary
	}

	name := fmt.Sprintf("boundary%d", boundary)
	srcSpec := sideSpec(firstSpec, secondSpec, srcSide)
	dstSpec := sideSpec(firstSpec, secondSpec, dstSide)

	srcSpec.Consumers = append(srcSpec.Consumers, graph.ConsumerDecl{Name: name})
	srcSpec.Cycle = append(srcSpec.Cycle, graph.FlowLineDecl{
		Source: nodeName(g, source),
		Arrows: []graph.ArrowDecl{{Target: name, Backward: a.Backward, Func: a.Func}},
	})

	dstSpec.Producers = append(dstSpec.Producers, graph.ProducerDecl{Name: name})
	dstSpec.Cycle = append(dstSpec.Cycle, graph.FlowLineDecl{
		Source: name,
		Arrows: []graph.ArrowDecl{{Target: nodeName(g, a.Target), Backward: a.Backward, Func: a.Func}},
	})

	return boundary + 1
}

func sideSpec(firstSpec, secondSpec *graph.Spec, side int) *graph.Spec {
	if side == 1 {
		return secondSpec
	}
	return firstSpec
}

func baseSpec(g *graph.Graph) graph.Spec {
	spec := graph.Spec{
		Producers: make([]graph.ProducerDecl, len(g.Producers)),
		Consumers: make([]graph.ConsumerDecl, len(g.Consumers)),
	}
	for i, p := range g.Producers {
		spec.Producers[i] = graph.ProducerDecl{Name: p.Name, Width: p.Width, Ratio: p.Ratio}
	}
	for i, c := range g.Consumers {
		spec.Consumers[i] = graph.ConsumerDecl{Name: c.Name, Width: c.Width}
	}
	return spec
}

func declsFromLayers(g *graph.Graph, lo, hi int) []graph.LayerDecl {
	decls := make([]graph.LayerDecl, 0, hi-lo)
	for i := lo; i < hi; i++ {
		decls = append(decls, graph.LayerDecl{Name: g.Layers[i].Name, Ratio: g.Layers[i].Ratio})
	}
	return decls
}

func nodeName(g *graph.Graph, id graph.NodeId) string {
	switch id.Kind {
	case graph.Producer:
		return g.Producers[id.Index].Name
	case graph.Consumer:
		return g.Consumers[id.Index].Name
	case graph.Layer:
		return g.Layers[id.Index].Name
	default:
		return ""
	}
}

// addLocalArrow appends an arrow whose source and target both belong to
// spec, merging into an existing flow line sourced from the same node
// when one is already present.
func addLocalArrow(spec *graph.Spec, srcName, dstName string, a graph.Arrow) {
	for i := range spec.Cycle {
		if spec.Cycle[i].Source == srcName {
			spec.Cycle[i].Arrows = append(spec.Cycle[i].Arrows, graph.ArrowDecl{Target: dstName, Backward: a.Backward, Func: a.Func})
			return
		}
	}

	spec.Cycle = append(spec.Cycle, graph.FlowLineDecl{
		Source: srcName,
		Arrows: []graph.ArrowDecl{{Target: dstName, Backward: a.Backward, Func: a.Func}},
	})
}

// weightFor returns the auto-partition weight for a backend: GPU=4,
// FPGA=2, CPU=1, Wasm=1.
func weightFor(b device.Backend) int {
	switch b {
	case device.GPU:
		return 4
	case device.FPGA:
		return 2
	default:
		return 1
	}
}

// Auto distributes g's layers across the backends named in backends,
// weighted GPU=4/FPGA=2/CPU=1/Wasm=1, returning one split index per
// boundary between consecutive backends (len(backends)-1 splits, each
// computed as round(cumulative_weight_ratio * |layers|)).
func Auto(g *graph.Graph, backends []device.Backend) []int {
	if len(backends) <= 1 {
		return nil
	}

	weights := make([]int, len(backends))
	total := 0
	for i, b := range backends {
		weights[i] = weightFor(b)
		total += weights[i]
	}

	splits := make([]int, 0, len(backends)-1)
	cumulative := 0
	for i := 0; i < len(backends)-1; i++ {
		cumulative += weights[i]
		ratio := float64(cumulative) / float64(total)
		splits = append(splits, int(ratio*float64(len(g.Layers))+0.5))
	}
	return splits
}
