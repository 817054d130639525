// Package config loads engine configuration from flags, environment and an
// optional file, following the donor's viper/pflag layering (flags bind
// into viper, then env, then file, then struct defaults).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the top-level engine configuration: where graph/weight/shader
// files live, how many CPU threads the forward pass may use, the
// distributed scheduler's admin listen address, default training
// hyperparameters and the requested backend/security posture.
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Runtime    RuntimeConfig    `mapstructure:"runtime"`
	Server     ServerConfig     `mapstructure:"server"`
	Training   TrainingConfig   `mapstructure:"training"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	LogLevel   string           `mapstructure:"log_level"`
}

// PathsConfig names the files a deployment reads and writes: the graph
// description (HGRF), the weights to load at startup (HWTS/HNWT) and the
// shader bytecode cache directory.
type PathsConfig struct {
	GraphFile     string `mapstructure:"graph_file"`
	WeightsFile   string `mapstructure:"weights_file"`
	NamedWeights  bool   `mapstructure:"named_weights"`
	ShaderDir     string `mapstructure:"shader_dir"`
	CheckpointDir string `mapstructure:"checkpoint_dir"`
}

// RuntimeConfig tunes the cycle runtime's execution shape.
type RuntimeConfig struct {
	MultiThreaded   bool `mapstructure:"multi_threaded"`
	ShaderCacheSize int  `mapstructure:"shader_cache_size"`
	DevicePoolSize  int  `mapstructure:"device_pool_size"`
}

// ServerConfig configures the distributed scheduler's admin surface: a
// health/metrics listen address, not a synthesis API (transports remain an
// external collaborator per the engine's scope).
type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_secs"`
}

// TrainingConfig mirrors internal/training.Options' constructor-time
// defaults, exposed for file/env/flag configuration of a Fit run.
type TrainingConfig struct {
	Optimizer         string  `mapstructure:"optimizer"`
	LearningRate      float64 `mapstructure:"learning_rate"`
	GradClip          float64 `mapstructure:"grad_clip"`
	WeightDecay       float64 `mapstructure:"weight_decay"`
	AccumulateSteps   int     `mapstructure:"accumulate_steps"`
	EarlyStopPatience int     `mapstructure:"early_stop_patience"`
	EarlyStopDelta    float64 `mapstructure:"early_stop_delta"`
}

// DeploymentConfig selects the backend and security posture a runtime or
// scheduler is constructed with.
type DeploymentConfig struct {
	Backend string `mapstructure:"backend"`
	Secure  bool   `mapstructure:"secure"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns the configuration a fresh deployment starts from.
func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			GraphFile:     "graph.hgrf",
			WeightsFile:   "weights.hwts",
			NamedWeights:  false,
			ShaderDir:     "",
			CheckpointDir: "checkpoints",
		},
		Runtime: RuntimeConfig{
			MultiThreaded:   false,
			ShaderCacheSize: 128,
			DevicePoolSize:  8,
		},
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 30,
		},
		Training: TrainingConfig{
			Optimizer:         "sgd",
			LearningRate:      0.01,
			GradClip:          0,
			WeightDecay:       0,
			AccumulateSteps:   1,
			EarlyStopPatience: 0,
			EarlyStopDelta:    0,
		},
		Deployment: DeploymentConfig{
			Backend: "auto",
			Secure:  false,
		},
		LogLevel: "info",
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-graph-file", defaults.Paths.GraphFile, "Path to the graph description file (HGRF)")
	fs.String("paths-weights-file", defaults.Paths.WeightsFile, "Path to the weights file loaded at startup (HWTS/HNWT)")
	fs.Bool("paths-named-weights", defaults.Paths.NamedWeights, "Weights file uses the named (HNWT) format instead of positional (HWTS)")
	fs.String("paths-shader-dir", defaults.Paths.ShaderDir, "Directory for the on-disk shader bytecode cache")
	fs.String("paths-checkpoint-dir", defaults.Paths.CheckpointDir, "Directory for runtime checkpoint (HRTC) files")
	fs.Bool("runtime-multi-threaded", defaults.Runtime.MultiThreaded, "Use the per-flow-line worker pool for the CPU forward pass")
	fs.Int("runtime-shader-cache-size", defaults.Runtime.ShaderCacheSize, "Maximum entries kept in the in-memory shader cache")
	fs.Int("runtime-device-pool-size", defaults.Runtime.DevicePoolSize, "Bounded device buffer pool size")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "Admin/health listen address")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain timeout in seconds")
	fs.String("training-optimizer", defaults.Training.Optimizer, "Optimizer (sgd|adam|adamw|lamb|rmsprop)")
	fs.Float64("learning-rate", defaults.Training.LearningRate, "Optimizer learning rate")
	fs.Float64("grad-clip", defaults.Training.GradClip, "Gradient clipping threshold (0 disables)")
	fs.Float64("weight-decay", defaults.Training.WeightDecay, "Weight decay coefficient (Adam family)")
	fs.Int("accumulate-steps", defaults.Training.AccumulateSteps, "Gradient accumulation steps per optimizer update")
	fs.Int("early-stop-patience", defaults.Training.EarlyStopPatience, "Epochs of non-improvement before early stop (0 disables)")
	fs.Float64("early-stop-delta", defaults.Training.EarlyStopDelta, "Minimum loss improvement to reset early-stop patience")
	fs.String("backend", defaults.Deployment.Backend, "Requested execution backend (cpu|gpu|fpga|wasm|auto)")
	fs.Bool("secure", defaults.Deployment.Secure, "Enable proof-chain computation after every forward pass")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("HARMONICS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("harmonics")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.graph_file", c.Paths.GraphFile)
	v.SetDefault("paths.weights_file", c.Paths.WeightsFile)
	v.SetDefault("paths.named_weights", c.Paths.NamedWeights)
	v.SetDefault("paths.shader_dir", c.Paths.ShaderDir)
	v.SetDefault("paths.checkpoint_dir", c.Paths.CheckpointDir)
	v.SetDefault("runtime.multi_threaded", c.Runtime.MultiThreaded)
	v.SetDefault("runtime.shader_cache_size", c.Runtime.ShaderCacheSize)
	v.SetDefault("runtime.device_pool_size", c.Runtime.DevicePoolSize)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout_secs", c.Server.ShutdownTimeout)
	v.SetDefault("training.optimizer", c.Training.Optimizer)
	v.SetDefault("training.learning_rate", c.Training.LearningRate)
	v.SetDefault("training.grad_clip", c.Training.GradClip)
	v.SetDefault("training.weight_decay", c.Training.WeightDecay)
	v.SetDefault("training.accumulate_steps", c.Training.AccumulateSteps)
	v.SetDefault("training.early_stop_patience", c.Training.EarlyStopPatience)
	v.SetDefault("training.early_stop_delta", c.Training.EarlyStopDelta)
	v.SetDefault("deployment.backend", c.Deployment.Backend)
	v.SetDefault("deployment.secure", c.Deployment.Secure)
	v.SetDefault("log_level", c.LogLevel)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("paths.graph_file", "paths-graph-file")
	v.RegisterAlias("paths.weights_file", "paths-weights-file")
	v.RegisterAlias("paths.named_weights", "paths-named-weights")
	v.RegisterAlias("paths.shader_dir", "paths-shader-dir")
	v.RegisterAlias("paths.checkpoint_dir", "paths-checkpoint-dir")
	v.RegisterAlias("runtime.multi_threaded", "runtime-multi-threaded")
	v.RegisterAlias("runtime.shader_cache_size", "runtime-shader-cache-size")
	v.RegisterAlias("runtime.device_pool_size", "runtime-device-pool-size")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.shutdown_timeout_secs", "shutdown-timeout")
	v.RegisterAlias("training.optimizer", "training-optimizer")
	v.RegisterAlias("training.learning_rate", "learning-rate")
	v.RegisterAlias("training.grad_clip", "grad-clip")
	v.RegisterAlias("training.weight_decay", "weight-decay")
	v.RegisterAlias("training.accumulate_steps", "accumulate-steps")
	v.RegisterAlias("training.early_stop_patience", "early-stop-patience")
	v.RegisterAlias("training.early_stop_delta", "early-stop-delta")
	v.RegisterAlias("deployment.backend", "backend")
	v.RegisterAlias("deployment.secure", "secure")
	v.RegisterAlias("log_level", "log-level")
}
