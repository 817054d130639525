// Package graph builds and edits the declarative node graph that a cycle
// runtime executes: producers, layers, consumers and the forward/backward
// flow lines connecting them, with ratio-driven width propagation and a
// deterministic digest used as a cache key elsewhere in the engine.
package graph

import (
	"fmt"

	"github.com/example/harmonics-go/internal/harmonicserr"
)

// NodeKind identifies which of the three node vectors a NodeId points into.
type NodeKind int

const (
	Producer NodeKind = iota
	Consumer
	Layer
)

func (k NodeKind) String() string {
	switch k {
	case Producer:
		return "producer"
	case Consumer:
		return "consumer"
	case Layer:
		return "layer"
	default:
		return "unknown"
	}
}

// NodeId addresses a single node by kind and index within that kind's
// vector. Node names are unique across all three kinds.
type NodeId struct {
	Kind  NodeKind
	Index int
}

// Ratio ties a node's width to another named node's: width = width(ref) *
// lhs / rhs.
type Ratio struct {
	LHS int
	RHS int
	Ref string
}

// ProducerNode supplies tensors from outside the graph.
type ProducerNode struct {
	Name  string
	Width *int64
	Ratio *Ratio
}

// ConsumerNode receives tensors written during a forward pass.
type ConsumerNode struct {
	Name  string
	Width *int64
}

// LayerNode holds activations and parameters; its width is ratio-derived
// and is resolved by propagation (LayerDecl carries no fixed width).
type LayerNode struct {
	Name  string
	Width *int64
	Ratio *Ratio
}

// Arrow is a directed edge from a flow line's source to Target, carrying an
// optional named activation (forward) or loss (backward) function.
type Arrow struct {
	Target   NodeId
	Backward bool
	Func     string // empty means no function named
}

// FlowLine is one source node plus its ordered outgoing arrows.
type FlowLine struct {
	Source NodeId
	Arrows []Arrow
}

// Graph is the structure produced by Build. The AddLayer/RemoveLayer
// editing helpers modify a graph in place and re-run propagation.
type Graph struct {
	Producers []ProducerNode
	Consumers []ConsumerNode
	Layers    []LayerNode
	Cycle     []FlowLine
}

// ProducerDecl, ConsumerDecl, LayerDecl, ArrowDecl and FlowLineDecl form the
// declaration AST that Build consumes. Names in ArrowDecl/FlowLineDecl
// reference nodes by name; Build resolves them to NodeIds.
type ProducerDecl struct {
	Name  string
	Width *int64
	Ratio *Ratio
}

type ConsumerDecl struct {
	Name  string
	Width *int64
}

type LayerDecl struct {
	Name  string
	Ratio *Ratio
}

type ArrowDecl struct {
	Target   string
	Backward bool
	Func     string
}

type FlowLineDecl struct {
	Source string
	Arrows []ArrowDecl
}

// Spec is the full declaration AST: producer/consumer/layer declarations
// plus an optional cycle.
type Spec struct {
	Producers []ProducerDecl
	Consumers []ConsumerDecl
	Layers    []LayerDecl
	Cycle     []FlowLineDecl
}

// Build parses a declaration AST into a typed, width-propagated Graph.
func Build(spec Spec) (*Graph, error) {
	g := &Graph{
		Producers: make([]ProducerNode, len(spec.Producers)),
		Consumers: make([]ConsumerNode, len(spec.Consumers)),
		Layers:    make([]LayerNode, len(spec.Layers)),
	}

	names := make(map[string]NodeId)

	addName := func(name string, id NodeId) error {
		if name == "" {
			return fmt.Errorf("node declared with empty name: %w", harmonicserr.ErrParse)
		}
		if _, exists := names[name]; exists {
			return fmt.Errorf("duplicate name %q: %w", name, harmonicserr.ErrParse)
		}
		names[name] = id
		return nil
	}

	for i, p := range spec.Producers {
		if err := addName(p.Name, NodeId{Kind: Producer, Index: i}); err != nil {
			return nil, err
		}
		g.Producers[i] = ProducerNode{Name: p.Name, Width: p.Width, Ratio: p.Ratio}
	}

	for i, c := range spec.Consumers {
		if err := addName(c.Name, NodeId{Kind: Consumer, Index: i}); err != nil {
			return nil, err
		}
		g.Consumers[i] = ConsumerNode{Name: c.Name, Width: c.Width}
	}

	for i, l := range spec.Layers {
		if err := addName(l.Name, NodeId{Kind: Layer, Index: i}); err != nil {
			return nil, err
		}
		g.Layers[i] = LayerNode{Name: l.Name, Ratio: l.Ratio}
	}

	resolve := func(name string) (NodeId, error) {
		id, ok := names[name]
		if !ok {
			return NodeId{}, fmt.Errorf("unknown node %q: %w", name, harmonicserr.ErrParse)
		}
		return id, nil
	}

	cycle := make([]FlowLine, len(spec.Cycle))
	for i, line := range spec.Cycle {
		src, err := resolve(line.Source)
		if err != nil {
			return nil, err
		}

		arrows := make([]Arrow, len(line.Arrows))
		for j, a := range line.Arrows {
			tgt, err := resolve(a.Target)
			if err != nil {
				return nil, err
			}
			arrows[j] = Arrow{Target: tgt, Backward: a.Backward, Func: a.Func}
		}

		cycle[i] = FlowLine{Source: src, Arrows: arrows}
	}

	// Ratio references must also resolve to existing nodes.
	checkRatio := func(r *Ratio) error {
		if r == nil {
			return nil
		}
		if _, err := resolve(r.Ref); err != nil {
			return err
		}
		return nil
	}
	for _, p := range g.Producers {
		if err := checkRatio(p.Ratio); err != nil {
			return nil, err
		}
	}
	for _, l := range g.Layers {
		if err := checkRatio(l.Ratio); err != nil {
			return nil, err
		}
	}

	g.Cycle = cycle

	PropagateRatios(g)

	return g, nil
}

// Find resolves a name to a NodeId, mirroring the builder's internal lookup
// for callers that only have a built Graph in hand (e.g. producer binding).
func (g *Graph) Find(name string) (NodeId, bool) {
	for i, p := range g.Producers {
		if p.Name == name {
			return NodeId{Kind: Producer, Index: i}, true
		}
	}
	for i, c := range g.Consumers {
		if c.Name == name {
			return NodeId{Kind: Consumer, Index: i}, true
		}
	}
	for i, l := range g.Layers {
		if l.Name == name {
			return NodeId{Kind: Layer, Index: i}, true
		}
	}
	return NodeId{}, false
}

// HasTrainingTaps reports whether any flow line contains at least one
// backward arrow, i.e. whether the graph produces gradients at all.
func (g *Graph) HasTrainingTaps() bool {
	for _, line := range g.Cycle {
		for _, a := range line.Arrows {
			if a.Backward {
				return true
			}
		}
	}
	return false
}

// width returns the resolved width of a node, if any.
func (g *Graph) width(id NodeId) *int64 {
	switch id.Kind {
	case Producer:
		return g.Producers[id.Index].Width
	case Consumer:
		return g.Consumers[id.Index].Width
	case Layer:
		return g.Layers[id.Index].Width
	default:
		return nil
	}
}

// PropagateRatios resolves ratio-derived widths by repeated fixed-point
// iteration: width(n) = width(ratio.ref) * ratio.lhs / ratio.rhs, for every
// unresolved node whose reference already has a width. It terminates when a
// full pass makes no change; nodes whose reference chain never bottoms out
// in an explicit width remain unresolved (nil).
func PropagateRatios(g *Graph) {
	for {
		changed := false

		for i := range g.Producers {
			if g.Producers[i].Width != nil || g.Producers[i].Ratio == nil {
				continue
			}
			if w := resolveRatio(g, g.Producers[i].Ratio); w != nil {
				g.Producers[i].Width = w
				changed = true
			}
		}

		for i := range g.Layers {
			if g.Layers[i].Width != nil || g.Layers[i].Ratio == nil {
				continue
			}
			if w := resolveRatio(g, g.Layers[i].Ratio); w != nil {
				g.Layers[i].Width = w
				changed = true
			}
		}

		if !changed {
			return
		}
	}
}

func resolveRatio(g *Graph, r *Ratio) *int64 {
	id, ok := g.Find(r.Ref)
	if !ok {
		return nil
	}

	refWidth := g.width(id)
	if refWidth == nil {
		return nil
	}

	w := (*refWidth * int64(r.LHS)) / int64(r.RHS)

	return &w
}
