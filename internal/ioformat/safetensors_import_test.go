package ioformat

import (
	"path/filepath"
	"testing"

	"github.com/example/harmonics-go/internal/safetensors"
)

func TestImportSafetensorsConvertsToEngineTensors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.safetensors")

	err := safetensors.WriteFile(path, []safetensors.Tensor{
		{Name: "l1.weight", Shape: []int64{2, 2}, Data: []float32{1, 2, 3, 4}},
		{Name: "l2.weight", Shape: []int64{3}, Data: []float32{5, 6, 7}},
	})
	if err != nil {
		t.Fatalf("write safetensors file: %v", err)
	}

	names, tensors, err := ImportSafetensors(path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(names) != 2 || len(tensors) != 2 {
		t.Fatalf("expected 2 tensors, got names=%d tensors=%d", len(names), len(tensors))
	}

	byName := make(map[string]int)
	for i, name := range names {
		byName[name] = i
	}

	l1 := tensors[byName["l1.weight"]]
	if len(l1.F32()) != 4 {
		t.Fatalf("l1.weight expected 4 elements, got %d", len(l1.F32()))
	}
	for i, v := range l1.F32() {
		want := float32(i + 1)
		if v != want {
			t.Fatalf("l1.weight[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestImportSafetensorsErrorsOnMissingFile(t *testing.T) {
	if _, _, err := ImportSafetensors("/nonexistent/model.safetensors"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
