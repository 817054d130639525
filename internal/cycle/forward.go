package cycle

import (
	"fmt"

	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/proof"
	"github.com/example/harmonics-go/internal/tensor"
)

// Forward runs one cycle of the compiled graph against the current state,
// choosing the CPU or accelerator path according to the resolved backend
// (and, on CPU, the single-threaded or worker-pool path according to
// EnableMultiThreading), and updating the proof chain in secure mode.
func (r *Runtime) Forward() error {
	if r.backend == device.CPU {
		if r.threaded {
			if err := r.forwardThreaded(); err != nil {
				return err
			}
		} else {
			if err := r.forwardSingleThreaded(); err != nil {
				return err
			}
		}
	} else {
		if err := r.forwardAccelerator(); err != nil {
			return err
		}
	}

	if r.secure {
		r.proof = proof.Compute(r.chain, r.state.LayerTensors)
		r.chain = r.proof
	}

	return nil
}

func (r *Runtime) forwardSingleThreaded() error {
	fetched := make([]bool, len(r.graph.Producers))

	for _, line := range r.graph.Cycle {
		source, err := r.fetchSource(line.Source, fetched)
		if err != nil {
			return err
		}

		for _, a := range line.Arrows {
			if err := r.applyArrow(line.Source, source, a, fetched); err != nil {
				return err
			}
		}
	}

	return nil
}

// fetchSource reads the value at a flow line's source node, caching
// producer reads for the remainder of the cycle.
func (r *Runtime) fetchSource(id graph.NodeId, fetched []bool) (tensor.Tensor, error) {
	switch id.Kind {
	case graph.Producer:
		r.fetchMu.Lock()
		if fetched[id.Index] {
			t := r.state.ProducerTensors[id.Index]
			r.fetchMu.Unlock()
			return t, nil
		}
		binding := r.producers[id.Index]
		r.fetchMu.Unlock()

		if !binding.bound {
			name := r.graph.Producers[id.Index].Name
			return tensor.Tensor{}, errUnboundProducer(name)
		}
		t, err := binding.p()
		if err != nil {
			return tensor.Tensor{}, fmt.Errorf("producer %q: %w", r.graph.Producers[id.Index].Name, err)
		}

		if want := r.graph.Producers[id.Index].Width; want != nil {
			shape := t.Shape()
			if len(shape) == 0 || shape[0] != *want {
				return tensor.Tensor{}, errShapeMismatch(r.graph.Producers[id.Index].Name)
			}
		}

		r.fetchMu.Lock()
		if fetched[id.Index] {
			cached := r.state.ProducerTensors[id.Index]
			r.fetchMu.Unlock()
			return cached, nil
		}
		r.state.ProducerTensors[id.Index] = t
		fetched[id.Index] = true
		r.fetchMu.Unlock()
		return t, nil
	case graph.Layer:
		return r.state.LayerTensors[id.Index], nil
	case graph.Consumer:
		return r.state.ConsumerTensors[id.Index], nil
	default:
		return tensor.Tensor{}, fmt.Errorf("unknown node kind: %w", harmonicserr.ErrExecution)
	}
}

// applyArrow executes one arrow of a flow line given its already-fetched
// source value, mutating state and firing the debug callback. fetched is
// the cycle-wide producer fetch bitmap, since a backward arrow's target
// may itself be a producer and is read under the same fetch-once rule as
// a flow line's source.
func (r *Runtime) applyArrow(source graph.NodeId, sourceValue tensor.Tensor, a graph.Arrow, fetched []bool) error {
	if a.Backward {
		return r.applyBackwardArrow(source, sourceValue, a, fetched)
	}
	return r.applyForwardArrow(source, sourceValue, a)
}

func (r *Runtime) applyBackwardArrow(source graph.NodeId, sourceValue tensor.Tensor, a graph.Arrow, fetched []bool) error {
	targetValue, err := r.fetchSource(a.Target, fetched)
	if err != nil {
		return err
	}

	if a.Func != "" && source.Kind == graph.Layer {
		loss, err := r.registry.Loss(a.Func)
		if err != nil {
			return err
		}
		result, err := loss(sourceValue, targetValue)
		if err != nil {
			return fmt.Errorf("loss %q: %w", a.Func, harmonicserr.ErrExecution)
		}
		r.state.Weights[source.Index] = result
	}

	if r.debug != nil {
		r.debug(source, a.Target, true, a.Func)
	}
	return nil
}

func (r *Runtime) applyForwardArrow(source graph.NodeId, sourceValue tensor.Tensor, a graph.Arrow) error {
	value := sourceValue

	if a.Func != "" {
		activation, err := r.registry.Activation(a.Func)
		if err != nil {
			return err
		}
		transformed, err := activation(value)
		if err != nil {
			return fmt.Errorf("activation %q: %w", a.Func, harmonicserr.ErrExecution)
		}
		value = transformed
	}

	if err := r.writeSlot(a.Target, value); err != nil {
		return err
	}

	if a.Target.Kind == graph.Layer && r.state.PrecisionBits[a.Target.Index] == 0 {
		r.state.PrecisionBits[a.Target.Index] = r.policy.SelectBits(a.Target.Index)
	}

	if r.debug != nil {
		r.debug(source, a.Target, false, a.Func)
	}
	return nil
}

// writeSlot writes a value into a node's state slot, delivering consumer
// writes to any bound consumer function.
func (r *Runtime) writeSlot(id graph.NodeId, value tensor.Tensor) error {
	switch id.Kind {
	case graph.Layer:
		r.state.LayerTensors[id.Index] = value
		return nil
	case graph.Consumer:
		r.state.ConsumerTensors[id.Index] = value
		if c := r.consumers[id.Index]; c != nil {
			if err := c(value); err != nil {
				return fmt.Errorf("consumer %q: %w", r.graph.Consumers[id.Index].Name, err)
			}
		}
		return nil
	case graph.Producer:
		r.state.ProducerTensors[id.Index] = value
		return nil
	default:
		return fmt.Errorf("unknown node kind: %w", harmonicserr.ErrExecution)
	}
}
