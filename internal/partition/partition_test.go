package partition

import (
	"testing"

	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/graph"
)

func buildChainGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(graph.Spec{
		Producers: []graph.ProducerDecl{{Name: "p"}},
		Layers: []graph.LayerDecl{
			{Name: "l1"}, {Name: "l2"}, {Name: "l3"},
		},
		Consumers: []graph.ConsumerDecl{{Name: "c"}},
		Cycle: []graph.FlowLineDecl{
			{Source: "p", Arrows: []graph.ArrowDecl{{Target: "l1"}}},
			{Source: "l1", Arrows: []graph.ArrowDecl{{Target: "l2"}}},
			{Source: "l2", Arrows: []graph.ArrowDecl{{Target: "l3"}}},
			{Source: "l3", Arrows: []graph.ArrowDecl{{Target: "c"}}},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestByLayerSplitsAtBoundary(t *testing.T) {
	g := buildChainGraph(t)

	first, second, next, err := ByLayer(g, 2, 0)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	if len(first.Layers) != 2 || len(second.Layers) != 1 {
		t.Fatalf("expected 2/1 layer split, got %d/%d", len(first.Layers), len(second.Layers))
	}
	if len(first.Producers) != 1 || len(second.Producers) != 2 {
		t.Fatalf("expected second partition to gain a boundary producer, got first=%d second=%d", len(first.Producers), len(second.Producers))
	}
	if len(first.Consumers) != 2 || len(second.Consumers) != 1 {
		t.Fatalf("expected first partition to gain a boundary consumer, got first=%d second=%d", len(first.Consumers), len(second.Consumers))
	}
	if next != 1 {
		t.Fatalf("expected boundary counter to advance by 1, got %d", next)
	}

	if _, ok := first.Find("boundary0"); !ok {
		t.Fatalf("expected first partition to declare boundary0 consumer")
	}
	if _, ok := second.Find("boundary0"); !ok {
		t.Fatalf("expected second partition to declare boundary0 producer")
	}
}

func TestByLayerOutOfRangeSplitErrors(t *testing.T) {
	g := buildChainGraph(t)
	if _, _, _, err := ByLayer(g, len(g.Layers)+1, 0); err == nil {
		t.Fatalf("expected out-of-range split to error")
	}
}

func TestAutoPartitionWeightsByBackend(t *testing.T) {
	g := buildChainGraph(t)
	splits := Auto(g, []device.Backend{device.GPU, device.CPU})
	if len(splits) != 1 {
		t.Fatalf("expected one split for two backends, got %d", len(splits))
	}
	// GPU weight 4 of total 5 over 3 layers -> round(4/5*3) = round(2.4) = 2.
	if splits[0] != 2 {
		t.Fatalf("split = %d, want 2", splits[0])
	}
}
