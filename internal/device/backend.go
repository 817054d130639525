package device

import "os"

// Backend identifies an execution backend a cycle runtime may resolve to.
type Backend int

const (
	CPU Backend = iota
	GPU
	FPGA
	Wasm
	Auto
)

func (b Backend) String() string {
	switch b {
	case CPU:
		return "cpu"
	case GPU:
		return "gpu"
	case FPGA:
		return "fpga"
	case Wasm:
		return "wasm"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// envEnabled reports whether HARMONICS_ENABLE_<name> is exactly "1", the
// probe contract from the environment-variable table.
func envEnabled(name string) bool {
	return os.Getenv("HARMONICS_ENABLE_"+name) == "1"
}

// Probe is a runtime-availability check for one accelerator kind: the
// platform must be compiled in (always true for this pure-Go engine, since
// there is no compile-time guard) and the environment flag must be enabled.
// The probes check only that flag: they do not check that an accelerator
// library loads and do not query a device count (DetectAcceleratorLibrary
// is reported by doctor but is not consulted here).
type Probe func() bool

// VulkanProbe and CUDAProbe gate the GPU backend (either one succeeding is
// sufficient to try GPU); OpenCLProbe gates the FPGA backend.
func VulkanProbe() bool { return envEnabled("VULKAN") }
func CUDAProbe() bool   { return envEnabled("CUDA") }
func OpenCLProbe() bool { return envEnabled("OPENCL") }

// GPUProbe succeeds if any GPU-capable API is enabled.
func GPUProbe() bool { return VulkanProbe() || CUDAProbe() }

// FPGAProbe succeeds if OpenCL (used here as the FPGA toolchain stand-in,
// matching the original's dual use of the OpenCL runtime for FPGA bitstream
// loading) is enabled.
func FPGAProbe() bool { return OpenCLProbe() }

// WasmProbe succeeds if the Wasm backend is enabled.
func WasmProbe() bool { return envEnabled("WASM") }

// QuantumHWProbe succeeds if quantum-hardware support is enabled and a
// library name is configured.
func QuantumHWProbe() bool {
	return envEnabled("QUANTUM_HW") && os.Getenv("HARMONICS_QUANTUM_HW_LIB") != ""
}

// SelectAccelerator implements select_accelerator_backend(): Wasm first (if
// available), then GPU, then FPGA, else CPU.
func SelectAccelerator() Backend {
	switch {
	case WasmProbe():
		return Wasm
	case GPUProbe():
		return GPU
	case FPGAProbe():
		return FPGA
	default:
		return CPU
	}
}

// Resolve implements the cycle runtime's backend resolution precedence
// given the deployment descriptor's requested backend:
//
//	gpu  -> try GPU then FPGA
//	fpga -> try FPGA then GPU
//	wasm -> try Wasm only
//	cpu/auto -> SelectAccelerator()
//
// Failure of the preferred path falls through to CPU, except that an
// explicit Wasm request with no Wasm available still falls back to CPU
// silently (the spec's one documented exception to erroring on explicit
// backend requests).
func Resolve(requested Backend) Backend {
	switch requested {
	case GPU:
		if GPUProbe() {
			return GPU
		}
		if FPGAProbe() {
			return FPGA
		}
		return CPU
	case FPGA:
		if FPGAProbe() {
			return FPGA
		}
		if GPUProbe() {
			return GPU
		}
		return CPU
	case Wasm:
		if WasmProbe() {
			return Wasm
		}
		return CPU
	default:
		return SelectAccelerator()
	}
}
