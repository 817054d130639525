package cycle

import (
	"fmt"

	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/graph"
	"github.com/example/harmonics-go/internal/harmonicserr"
	"github.com/example/harmonics-go/internal/kernelcache"
	"github.com/example/harmonics-go/internal/tensor"
)

// forwardAccelerator runs the GPU/FPGA/Wasm forward pass over the compiled
// op list: the same ordering as the CPU reference pass, but every forward
// op moves its source tensor through the device buffer ring before (and
// after) the host-side activation. Backward arrows never touch the device,
// since loss functions are host-side on every backend.
func (r *Runtime) forwardAccelerator() error {
	fetched := make([]bool, len(r.graph.Producers))

	var bits kernelcache.BitsOf = func(layerIndex int) int {
		if b := r.state.PrecisionBits[layerIndex]; b != 0 {
			return b
		}
		return r.policy.SelectBits(layerIndex)
	}

	ops, err := r.kernels.Compile(r.graph, bits, compileShaderStub)
	if err != nil {
		return err
	}

	for _, op := range ops {
		source, err := r.fetchSource(op.Source, fetched)
		if err != nil {
			return err
		}

		arrow := graph.Arrow{Target: op.Target, Backward: op.Backward, Func: op.Func}
		if op.Backward {
			if err := r.applyBackwardArrow(op.Source, source, arrow, fetched); err != nil {
				return err
			}
			continue
		}

		if err := r.applyDeviceOp(op.Source, source, arrow); err != nil {
			return err
		}
	}

	return nil
}

// applyDeviceOp mirrors applyForwardArrow but routes the tensor through the
// device ring before the host activation and downloads it back afterward,
// since no real GPU/FPGA/Wasm kernel table is linked into this engine: every
// op falls back to the host activation and re-uploads the transformed
// bytes, matching the spec's kernel-miss path for relu_f32/sigmoid_f32/
// copy_buf, and downloads the result within the same op.
func (r *Runtime) applyDeviceOp(source graph.NodeId, sourceValue tensor.Tensor, a graph.Arrow) error {
	if _, err := r.uploadToDevice(sourceValue); err != nil {
		return err
	}

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

	buf, err := r.uploadToDevice(value)
	if err != nil {
		return err
	}

	host := make([]byte, len(value.Bytes()))
	if err := r.dev.Download(host, buf); err != nil {
		return fmt.Errorf("download target %s %d: %w", a.Target.Kind, a.Target.Index, err)
	}

	// A rank-0 tensor (the engine's "empty tensor") has no shape to rebuild
	// against tensor.New's element-count check; the round trip through the
	// device still ran, it just has nothing to reconstruct.
	downloaded := value
	if len(value.Shape()) > 0 {
		downloaded, err = tensor.New(value.DType(), value.Shape(), host)
		if err != nil {
			return fmt.Errorf("rebuild downloaded tensor: %w", err)
		}
	}

	if err := r.writeSlot(a.Target, downloaded); err != nil {
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

// uploadToDevice acquires a ring buffer of sufficient capacity and uploads
// t's bytes into it, returning the buffer for a later Download.
func (r *Runtime) uploadToDevice(t tensor.Tensor) (*device.Buffer, error) {
	buf, err := r.ring.Acquire(len(t.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("acquire device buffer: %w", err)
	}
	if err := r.dev.Upload(buf, t.Bytes()); err != nil {
		return nil, fmt.Errorf("upload to device: %w", err)
	}
	return buf, nil
}

// compileShaderStub stands in for a real GPU/FPGA shader compiler: since no
// platform driver is linked into this engine, every shader key compiles to
// its own key bytes, just enough for the kernel cache to exercise its
// memory/disk tiers and compile counters against real cache keys.
func compileShaderStub(shaderKey string) ([]byte, error) {
	return []byte(shaderKey), nil
}
