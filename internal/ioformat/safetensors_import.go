package ioformat

import (
	"fmt"

	"github.com/example/harmonics-go/internal/safetensors"
	"github.com/example/harmonics-go/internal/tensor"
)

// ImportSafetensors reads every tensor out of an external .safetensors
// archive (F32/F16/BF16, decoded to float32 by internal/safetensors) and
// converts it into the engine's own tensor.Tensor representation, so a
// model trained elsewhere can be loaded as a named weights file via
// SaveNamedWeights.
func ImportSafetensors(path string) (names []string, tensors []tensor.Tensor, err error) {
	store, err := safetensors.OpenStore(path, safetensors.StoreOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("open safetensors archive: %w", err)
	}
	defer store.Close()

	all, err := store.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read safetensors archive: %w", err)
	}

	names = store.Names()
	tensors = make([]tensor.Tensor, 0, len(names))
	for _, name := range names {
		st := all[name]
		t, err := tensor.FromFloat32(st.Data, st.Shape)
		if err != nil {
			return nil, nil, fmt.Errorf("convert tensor %q: %w", name, err)
		}
		tensors = append(tensors, t)
	}

	return names, tensors, nil
}
