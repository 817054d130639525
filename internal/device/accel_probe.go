package device

import (
	"os"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// AcceleratorLibraryPaths are well-known install locations probed when no
// override is configured via HARMONICS_ACCELERATOR_LIB.
var AcceleratorLibraryPaths = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"C:/onnxruntime/lib/onnxruntime.dll",
}

// LibraryLoadable opens, and immediately closes, an accelerator runtime
// library as the "library loadable" half of a backend runtime probe. This
// repurposes the onnxruntime-purego binding — built for model inference —
// purely as a dynamic-library load check; no model or session is created.
// It is a diagnostic supplement to the spec's env-var probes (used by the
// doctor report), not a substitute for them: GPUProbe/FPGAProbe/WasmProbe
// remain exactly the HARMONICS_ENABLE_* checks the spec's testable
// properties rely on.
func LibraryLoadable(path string) bool {
	if path == "" {
		return false
	}

	rt, err := ort.NewRuntime(path, 23)
	if err != nil {
		return false
	}

	_ = rt.Close()

	return true
}

// DetectAcceleratorLibrary resolves the accelerator library path from
// HARMONICS_ACCELERATOR_LIB, falling back to AcceleratorLibraryPaths,
// mirroring the env-then-candidates order of the donor ONNX runtime
// detector this was adapted from.
func DetectAcceleratorLibrary() (string, bool) {
	if p := os.Getenv("HARMONICS_ACCELERATOR_LIB"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
		return "", false
	}

	for _, c := range AcceleratorLibraryPaths {
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}

	return "", false
}
