package config

import (
	"fmt"
	"strings"

	"github.com/example/harmonics-go/internal/device"
)

// ParseBackend normalises a configured backend string into the device
// package's Backend enum, defaulting to Auto on an empty string.
func ParseBackend(raw string) (device.Backend, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = "auto"
	}
	switch backend {
	case "cpu":
		return device.CPU, nil
	case "gpu":
		return device.GPU, nil
	case "fpga":
		return device.FPGA, nil
	case "wasm":
		return device.Wasm, nil
	case "auto":
		return device.Auto, nil
	default:
		return device.Auto, fmt.Errorf("invalid backend %q (expected cpu|gpu|fpga|wasm|auto)", raw)
	}
}
