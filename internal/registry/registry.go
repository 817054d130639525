// Package registry implements the thread-safe function registry that backs
// activation, loss and layer functions referenced by name from a graph
// description.
package registry

import (
	"fmt"
	"sync"

	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/tensor"
)

// Activation maps a tensor to a tensor of the same shape.
type Activation func(tensor.Tensor) (tensor.Tensor, error)

// Loss compares a prediction against a target and returns a gradient tensor
// shaped like prediction.
type Loss func(prediction, target tensor.Tensor) (tensor.Tensor, error)

// Layer implements a named layer transform over one or more input tensors.
type Layer func(inputs []tensor.Tensor) (tensor.Tensor, error)

// Registry is a mutex-guarded set of named activation, loss and layer
// functions. The zero value is not usable; use New.
type Registry struct {
	mu         sync.Mutex
	activation map[string]Activation
	loss       map[string]Loss
	layer      map[string]Layer
}

// New creates an empty registry. Most callers should use the package-level
// Default registry unless test isolation requires a private instance.
func New() *Registry {
	return &Registry{
		activation: make(map[string]Activation),
		loss:       make(map[string]Loss),
		layer:      make(map[string]Layer),
	}
}

var defaultOnce sync.Once
var defaultRegistry *Registry

// Default returns the process-wide registry, created lazily.
func Default() *Registry {
	defaultOnce.Do(func() { defaultRegistry = New() })
	return defaultRegistry
}

// RegisterActivation registers fn under id. If allowOverride is false and id
// is already registered, it returns a duplicate-registration error wrapping
// harmonicserr.ErrParse.
func (r *Registry) RegisterActivation(id string, fn Activation, allowOverride bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !allowOverride {
		if _, exists := r.activation[id]; exists {
			return fmt.Errorf("activation already registered: %s: %w", id, harmonicserr.ErrParse)
		}
	}

	r.activation[id] = fn

	return nil
}

// Activation looks up a previously registered activation function.
func (r *Registry) Activation(id string) (Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.activation[id]
	if !ok {
		return nil, fmt.Errorf("unknown activation: %s: %w", id, harmonicserr.ErrParse)
	}

	return fn, nil
}

// RegisterLoss registers fn under id, subject to the same override rule as
// RegisterActivation.
func (r *Registry) RegisterLoss(id string, fn Loss, allowOverride bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !allowOverride {
		if _, exists := r.loss[id]; exists {
			return fmt.Errorf("loss already registered: %s: %w", id, harmonicserr.ErrParse)
		}
	}

	r.loss[id] = fn

	return nil
}

// Loss looks up a previously registered loss function.
func (r *Registry) Loss(id string) (Loss, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.loss[id]
	if !ok {
		return nil, fmt.Errorf("unknown loss: %s: %w", id, harmonicserr.ErrParse)
	}

	return fn, nil
}

// RegisterLayer registers fn under id, subject to the same override rule as
// RegisterActivation.
func (r *Registry) RegisterLayer(id string, fn Layer, allowOverride bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !allowOverride {
		if _, exists := r.layer[id]; exists {
			return fmt.Errorf("layer already registered: %s: %w", id, harmonicserr.ErrParse)
		}
	}

	r.layer[id] = fn

	return nil
}

// Layer looks up a previously registered layer function.
func (r *Registry) Layer(id string) (Layer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, ok := r.layer[id]
	if !ok {
		return nil, fmt.Errorf("unknown layer: %s: %w", id, harmonicserr.ErrParse)
	}

	return fn, nil
}
