// Package doctor provides a human-readable preflight report of which
// accelerator backends are currently usable, built on the same probes the
// cycle runtime's backend-resolution precedence consults.
package doctor

import (
	"fmt"
	"io"

	"github.com/example/harmonics-go/internal/device"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run probes every accelerator backend and the accelerator library,
// writing one PassMark/FailMark line per check to w.
func Run(w io.Writer) Result {
	var res Result

	checkProbe := func(label string, ok bool) {
		if ok {
			fmt.Fprintf(w, "%s %s: available\n", PassMark, label)
			return
		}
		res.fail(fmt.Sprintf("%s: not available", label))
		fmt.Fprintf(w, "%s %s: not available\n", FailMark, label)
	}

	checkProbe("vulkan", device.VulkanProbe())
	checkProbe("cuda", device.CUDAProbe())
	checkProbe("opencl", device.OpenCLProbe())
	checkProbe("wasm", device.WasmProbe())
	checkProbe("quantum hardware", device.QuantumHWProbe())

	if path, ok := device.DetectAcceleratorLibrary(); ok {
		if device.LibraryLoadable(path) {
			fmt.Fprintf(w, "%s accelerator library: %s\n", PassMark, path)
		} else {
			res.fail(fmt.Sprintf("accelerator library %q found but failed to load", path))
			fmt.Fprintf(w, "%s accelerator library: %s (load failed)\n", FailMark, path)
		}
	} else {
		fmt.Fprintf(w, "%s accelerator library: not found\n", PassMark)
	}

	resolved := device.SelectAccelerator()
	fmt.Fprintf(w, "%s resolved backend: %s\n", PassMark, resolved)

	return res
}
