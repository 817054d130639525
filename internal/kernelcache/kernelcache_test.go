package kernelcache

import (
	"testing"

	"github.com/example/harmonics-go/internal/graph"
)

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Build(graph.Spec{
		Producers: []graph.ProducerDecl{{Name: "p"}},
		Layers:    []graph.LayerDecl{{Name: "l"}},
		Consumers: []graph.ConsumerDecl{{Name: "c"}},
		Cycle: []graph.FlowLineDecl{
			{Source: "p", Arrows: []graph.ArrowDecl{{Target: "l", Func: "relu"}}},
			{Source: "l", Arrows: []graph.ArrowDecl{{Target: "c"}}},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func TestCompileCachesUntilGraphOrBitsChange(t *testing.T) {
	g := buildGraph(t)
	bits := func(int) int { return 32 }
	compile := func(key string) ([]byte, error) { return []byte(key), nil }

	c := NewCache()

	first, err := c.Compile(g, bits, compile)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Compiles() != 1 {
		t.Fatalf("compiles = %d, want 1", c.Compiles())
	}

	second, err := c.Compile(g, bits, compile)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Compiles() != 1 {
		t.Fatalf("compiles after repeat = %d, want 1 (cache hit)", c.Compiles())
	}
	if len(first) != len(second) || first[0].ShaderKey != second[0].ShaderKey {
		t.Fatalf("cached list differs from first compile")
	}

	changedBits := func(int) int { return 16 }
	if _, err := c.Compile(g, changedBits, compile); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if c.Compiles() != 2 {
		t.Fatalf("compiles after bits change = %d, want 2", c.Compiles())
	}
}

func TestShaderCompilesMatchCompilerCalls(t *testing.T) {
	g := buildGraph(t)
	bits := func(int) int { return 32 }

	calls := 0
	compile := func(key string) ([]byte, error) {
		calls++
		return []byte(key), nil
	}

	c := NewCache()
	if _, err := c.Compile(g, bits, compile); err != nil {
		t.Fatalf("compile: %v", err)
	}

	wantShaderCompiles := calls
	if c.ShaderCompiles() != wantShaderCompiles {
		t.Fatalf("shader compiles = %d, want %d", c.ShaderCompiles(), wantShaderCompiles)
	}
}
