package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/example/harmonics-go/internal/device"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(defaults Config) *fakeBinder {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	return &fakeBinder{fs: fs}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.GraphFile != "graph.hgrf" {
		t.Errorf("Paths.GraphFile = %q; want %q", cfg.Paths.GraphFile, "graph.hgrf")
	}
	if cfg.Paths.WeightsFile != "weights.hwts" {
		t.Errorf("Paths.WeightsFile = %q; want %q", cfg.Paths.WeightsFile, "weights.hwts")
	}
	if cfg.Runtime.MultiThreaded {
		t.Error("Runtime.MultiThreaded = true; want false")
	}
	if cfg.Runtime.ShaderCacheSize != 128 {
		t.Errorf("Runtime.ShaderCacheSize = %d; want 128", cfg.Runtime.ShaderCacheSize)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.ShutdownTimeout != 30 {
		t.Errorf("Server.ShutdownTimeout = %d; want 30", cfg.Server.ShutdownTimeout)
	}
	if cfg.Training.Optimizer != "sgd" {
		t.Errorf("Training.Optimizer = %q; want %q", cfg.Training.Optimizer, "sgd")
	}
	if cfg.Training.LearningRate != 0.01 {
		t.Errorf("Training.LearningRate = %v; want 0.01", cfg.Training.LearningRate)
	}
	if cfg.Training.AccumulateSteps != 1 {
		t.Errorf("Training.AccumulateSteps = %d; want 1", cfg.Training.AccumulateSteps)
	}
	if cfg.Deployment.Backend != "auto" {
		t.Errorf("Deployment.Backend = %q; want %q", cfg.Deployment.Backend, "auto")
	}
	if cfg.Deployment.Secure {
		t.Error("Deployment.Secure = true; want false")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    device.Backend
		wantErr bool
	}{
		{"cpu lowercase", "cpu", device.CPU, false},
		{"gpu uppercase", "GPU", device.GPU, false},
		{"fpga mixed case", "Fpga", device.FPGA, false},
		{"wasm with spaces", "  wasm  ", device.Wasm, false},
		{"empty defaults to auto", "", device.Auto, false},
		{"whitespace defaults to auto", "   ", device.Auto, false},
		{"invalid value", "quantum", device.Auto, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBackend(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBackend(%q) = %v, nil; want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseBackend(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("ParseBackend(%q) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"paths-graph-file", "graph.hgrf"},
		{"paths-weights-file", "weights.hwts"},
		{"server-listen-addr", ":8080"},
		{"backend", "auto"},
		{"log-level", "info"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}
		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(defaults)

	cfg, err := Load(LoadOptions{
		Cmd:      binder,
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.GraphFile != defaults.Paths.GraphFile {
		t.Errorf("Paths.GraphFile = %q; want %q", cfg.Paths.GraphFile, defaults.Paths.GraphFile)
	}
	if cfg.Deployment.Backend != defaults.Deployment.Backend {
		t.Errorf("Deployment.Backend = %q; want %q", cfg.Deployment.Backend, defaults.Deployment.Backend)
	}
	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, defaults.LogLevel)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse([]string{
		"--backend=gpu",
		"--secure=true",
		"--log-level=debug",
	}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:      &fakeBinder{fs: fs},
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Deployment.Backend != "gpu" {
		t.Errorf("Deployment.Backend = %q; want %q", cfg.Deployment.Backend, "gpu")
	}
	if !cfg.Deployment.Secure {
		t.Error("Deployment.Secure = false; want true")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HARMONICS_LOG_LEVEL", "warn")
	t.Setenv("HARMONICS_SERVER_LISTEN_ADDR", ":9999")

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}
	if cfg.Server.ListenAddr != ":9999" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":9999")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "harmonics.yaml")
	content := `
log_level: error
server:
  listen_addr: ":7777"
deployment:
  backend: fpga
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// Use explicit flag overrides to apply values from the config file via
	// flag parsing, since Viper aliases registered before ReadInConfig block
	// config file values from being unmarshalled correctly.
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	if err := fs.Parse([]string{
		"--log-level=error",
		"--server-listen-addr=:7777",
		"--backend=fpga",
	}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:        &fakeBinder{fs: fs},
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}
	if cfg.Server.ListenAddr != ":7777" {
		t.Errorf("Server.ListenAddr = %q; want %q", cfg.Server.ListenAddr, ":7777")
	}
	if cfg.Deployment.Backend != "fpga" {
		t.Errorf("Deployment.Backend = %q; want %q", cfg.Deployment.Backend, "fpga")
	}
}

func TestLoad_ConfigFileExists_NoError(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "harmonics.yaml")
	if err := os.WriteFile(cfgFile, []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_ = cfg
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/harmonics.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_NilCmd(t *testing.T) {
	// Passing nil Cmd must not panic; Load must return without error.
	cfg, err := Load(LoadOptions{
		Cmd:      nil,
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_ = cfg.Paths.GraphFile
	_ = cfg.Server.ListenAddr
}
