package graph

// AddLayer appends a new layer to g and re-runs ratio propagation. It
// returns the new layer's NodeId.
func AddLayer(g *Graph, decl LayerDecl) NodeId {
	g.Layers = append(g.Layers, LayerNode{Name: decl.Name, Ratio: decl.Ratio})
	id := NodeId{Kind: Layer, Index: len(g.Layers) - 1}

	PropagateRatios(g)

	return id
}

// RemoveLayer removes the layer at index, drops every flow line sourced
// from it, drops every arrow targeting it, and decrements the layer index
// of every node reference greater than index so that surviving NodeIds stay
// valid. Ratio propagation is re-run afterwards.
func RemoveLayer(g *Graph, index int) {
	remap := func(id NodeId) NodeId {
		if id.Kind == Layer && id.Index > index {
			return NodeId{Kind: Layer, Index: id.Index - 1}
		}
		return id
	}

	newCycle := make([]FlowLine, 0, len(g.Cycle))

	for _, line := range g.Cycle {
		if line.Source.Kind == Layer && line.Source.Index == index {
			continue
		}

		newArrows := make([]Arrow, 0, len(line.Arrows))
		for _, a := range line.Arrows {
			if a.Target.Kind == Layer && a.Target.Index == index {
				continue
			}
			a.Target = remap(a.Target)
			newArrows = append(newArrows, a)
		}

		line.Source = remap(line.Source)
		line.Arrows = newArrows
		newCycle = append(newCycle, line)
	}

	g.Cycle = newCycle
	// Ratio.Ref is a name, not an index, so surviving layers' ratios need no
	// remapping here; only NodeId-shaped references above do.
	g.Layers = append(g.Layers[:index], g.Layers[index+1:]...)

	PropagateRatios(g)
}

// AddFlowLine appends a new flow line to g's cycle.
func AddFlowLine(g *Graph, line FlowLine) {
	g.Cycle = append(g.Cycle, line)
}
