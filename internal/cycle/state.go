// Package cycle implements the per-runtime cycle state and the forward-pass
// algorithms (single-threaded CPU, multi-threaded CPU, and the accelerator
// and Wasm variants) that execute one compiled graph cycle.
package cycle

import (
	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/slab"
	"github.com/example/harmonics-go/internal/tensor"
)

// State is the runtime cycle state described in the data model: one tensor
// slot per producer/layer/consumer, one weight (gradient) slot per layer,
// one precision-bits slot per layer, and the constant slab.
type State struct {
	ProducerTensors []tensor.Tensor
	LayerTensors    []tensor.Tensor
	ConsumerTensors []tensor.Tensor
	Weights         []tensor.Tensor
	PrecisionBits   []int
	Variables       *slab.Slab
}

// NewState allocates an empty state sized to g.
func NewState(g *graph.Graph) State {
	return State{
		ProducerTensors: make([]tensor.Tensor, len(g.Producers)),
		LayerTensors:    make([]tensor.Tensor, len(g.Layers)),
		ConsumerTensors: make([]tensor.Tensor, len(g.Consumers)),
		Weights:         make([]tensor.Tensor, len(g.Layers)),
		PrecisionBits:   make([]int, len(g.Layers)),
		Variables:       slab.New(),
	}
}
