// Package distributed implements the scheduler that runs a set of
// partitioned graphs as independent cycle runtimes joined by boundary
// message buses, one step (forward pass) at a time.
package distributed

import (
	"fmt"

	"github.com/example/harmonics-go/internal/cycle"
	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/tensor"
	"go.uber.org/multierr"
)

// Descriptor describes one partition's deployment: which graph it runs
// and which backend it should resolve to.
type Descriptor struct {
	Graph   *graph.Graph
	Backend device.Backend
}

// Deployment is the whole scheduler's deployment descriptor: one entry
// per partition, plus whether boundary buses carry proof chains.
type Deployment struct {
	Partitions []Descriptor
	Secure     bool
}

// boundary pairs a consumer in one partition with a producer of the same
// name in another, joined by a message bus.
type boundary struct {
	consumerPart  int
	consumerIndex int
	producerPart  int
	producerIndex int
	bus           *bus
}

// Scheduler owns one runtime per partition and the boundaries wiring
// consumers in one partition to same-named producers in another.
type Scheduler struct {
	runtimes   []*cycle.Runtime
	boundaries []boundary
	secure     bool
}

// New builds a runtime per partition, maps every producer by name, pairs
// every consumer with a same-named producer in a different partition into
// a Boundary, and binds the producer side of each boundary to the bus.
func New(d Deployment) (*Scheduler, error) {
	if len(d.Partitions) == 0 {
		return nil, fmt.Errorf("distributed: deployment has no partitions: %w", harmonicserr.ErrPartition)
	}

	s := &Scheduler{
		runtimes: make([]*cycle.Runtime, len(d.Partitions)),
		secure:   d.Secure,
	}

	producersByName := make(map[string][]nodeRef)

	for pi, part := range d.Partitions {
		s.runtimes[pi] = cycle.New(part.Graph, cycle.WithBackend(part.Backend), cycle.WithSecure(d.Secure))

		for i, p := range part.Graph.Producers {
			producersByName[p.Name] = append(producersByName[p.Name], nodeRef{partition: pi, index: i})
		}
	}

	var errs error

	for pi, part := range d.Partitions {
		for ci, c := range part.Graph.Consumers {
			refs := producersByName[c.Name]
			var producerRef *nodeRef
			for _, ref := range refs {
				if ref.partition != pi {
					r := ref
					producerRef = &r
					break
				}
			}
			if producerRef == nil {
				continue
			}

			b := newBus(d.Secure)
			s.boundaries = append(s.boundaries, boundary{
				consumerPart:  pi,
				consumerIndex: ci,
				producerPart:  producerRef.partition,
				producerIndex: producerRef.index,
				bus:           b,
			})

			producerName := d.Partitions[producerRef.partition].Graph.Producers[producerRef.index].Name
			err := s.runtimes[producerRef.partition].BindProducer(producerName, func() (tensor.Tensor, error) {
				return b.receive()
			})
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("bind boundary producer %q: %w", producerName, err))
			}
		}
	}

	if errs != nil {
		return nil, errs
	}

	return s, nil
}

type nodeRef struct {
	partition int
	index     int
}

// Step runs one forward pass per partition, in declaration order. In
// secure mode, before each partition's forward pass, every bound boundary
// producer pre-fetches its message and seeds the runtime's chain from the
// carried proof. After forward(), every boundary whose consumer side is
// this partition pushes consumer_tensors[index] onto its bus. Within one
// Step, a boundary tensor produced by partition i becomes visible to
// partition j only when j > i.
func (s *Scheduler) Step() error {
	for pi, rt := range s.runtimes {
		if s.secure {
			for _, b := range s.boundaries {
				if b.producerPart == pi && b.bus.hasPending() {
					if proof, ok := b.bus.peekProof(); ok {
						rt.SetChain(proof)
					}
				}
			}
		}

		if err := rt.Forward(); err != nil {
			return fmt.Errorf("partition %d: %w", pi, err)
		}

		for _, b := range s.boundaries {
			if b.consumerPart != pi {
				continue
			}
			value := rt.State().ConsumerTensors[b.consumerIndex]
			proof := ""
			if s.secure {
				proof = rt.Proof()
			}
			b.bus.send(value, proof)
		}
	}

	return nil
}

// Fit runs Step epochs times.
func (s *Scheduler) Fit(epochs int) error {
	for i := 0; i < epochs; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Runtime returns the runtime for partition index i, for tests and
// consumer inspection.
func (s *Scheduler) Runtime(i int) *cycle.Runtime {
	if i < 0 || i >= len(s.runtimes) {
		return nil
	}
	return s.runtimes[i]
}

// PartitionCount reports how many partitions the scheduler runs.
func (s *Scheduler) PartitionCount() int { return len(s.runtimes) }
