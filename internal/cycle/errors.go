package cycle

import (
	"fmt"

	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/harmonicserr"
)

func errUnknownProducer(name string) error {
	return fmt.Errorf("producer %q: unknown or wrong-kind node: %w", name, harmonicserr.ErrBind)
}

func errUnknownConsumer(name string) error {
	return fmt.Errorf("consumer %q: unknown or wrong-kind node: %w", name, harmonicserr.ErrBind)
}

func errUnboundProducer(name string) error {
	return fmt.Errorf("producer %q: not bound: %w", name, harmonicserr.ErrBind)
}

func errShapeMismatch(name string) error {
	return fmt.Errorf("producer %q: shape mismatch: %w", name, harmonicserr.ErrBind)
}

func errAliasedWrite(line graph.NodeId, target graph.NodeId) error {
	return fmt.Errorf("flow line from %s %d: two arrows write target %s %d: %w",
		line.Kind, line.Index, target.Kind, target.Index, harmonicserr.ErrExecution)
}
