package doctor

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestRunReportsDisabledProbesAsFailures(t *testing.T) {
	for _, v := range []string{"VULKAN", "CUDA", "OPENCL", "WASM", "QUANTUM_HW"} {
		os.Unsetenv("HARMONICS_ENABLE_" + v)
	}

	var buf bytes.Buffer
	res := Run(&buf)

	if !res.Failed() {
		t.Fatalf("expected failures with every probe disabled")
	}
	if !strings.Contains(buf.String(), "resolved backend: cpu") {
		t.Fatalf("expected cpu fallback in report, got:\n%s", buf.String())
	}
}

func TestRunReportsEnabledProbeAsPassing(t *testing.T) {
	os.Setenv("HARMONICS_ENABLE_WASM", "1")
	defer os.Unsetenv("HARMONICS_ENABLE_WASM")

	var buf bytes.Buffer
	Run(&buf)

	if !strings.Contains(buf.String(), "✓ wasm: available") {
		t.Fatalf("expected wasm pass in report, got:\n%s", buf.String())
	}
}
