// Package server exposes the admin HTTP surface a deployed scheduler runs
// alongside its cycle runtimes: liveness/readiness and cache/transfer
// metrics. It carries no synthesis or RPC surface — transports for
// producers/consumers remain an external collaborator.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/example/harmonics-go/internal/config"
	"github.com/example/harmonics-go/internal/device"
	"github.com/example/harmonics-go/internal/kernelcache"
)

type options struct {
	logger *slog.Logger
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// Option configures the admin HTTP handler.
type Option func(*options)

// WithLogger sets the slog.Logger held by the handler. The handler does not
// log requests.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// handler holds the dependencies needed to serve the admin endpoints.
type handler struct {
	cache *kernelcache.Cache
	log   *slog.Logger
}

// NewHandler returns an http.Handler serving /healthz and /metrics. cache
// may be nil, in which case /metrics reports zeroed compile counters.
func NewHandler(cache *kernelcache.Cache, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{cache: cache, log: opts.logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/metrics", h.handleMetrics)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type metricsResponse struct {
	KernelCompiles   int    `json:"kernel_compiles"`
	ShaderCompiles   int    `json:"shader_compiles"`
	BytesToDevice    uint64 `json:"bytes_to_device"`
	BytesFromDevice  uint64 `json:"bytes_from_device"`
	NanosToDevice    uint64 `json:"nanos_to_device"`
	NanosFromDevice  uint64 `json:"nanos_from_device"`
}

func (h *handler) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	resp := metricsResponse{
		BytesToDevice:   device.Stats.BytesToDevice.Load(),
		BytesFromDevice: device.Stats.BytesFromDevice.Load(),
		NanosToDevice:   device.Stats.NanosToDevice.Load(),
		NanosFromDevice: device.Stats.NanosFromDevice.Load(),
	}
	if h.cache != nil {
		resp.KernelCompiles = h.cache.Compiles()
		resp.ShaderCompiles = h.cache.ShaderCompiles()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode JSON response", "error", err)
	}
}

// Server wires the admin handler into net/http.Server with graceful
// shutdown, the donor's Start/Shutdown shape repurposed from a synthesis
// API onto the engine's health/metrics surface.
type Server struct {
	cfg             config.Config
	cache           *kernelcache.Cache
	shutdownTimeout time.Duration
	logger          *slog.Logger
}

// New builds a Server for the admin listen address in cfg. cache may be
// nil if no kernel-compile metrics are available yet.
func New(cfg config.Config, cache *kernelcache.Cache) *Server {
	return &Server{
		cfg:             cfg,
		cache:           cache,
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
		logger:          slog.Default(),
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger overrides the logger passed to the handler, which does not log
// requests.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

// Start serves the admin handler until ctx is cancelled, then drains
// in-flight requests for up to the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	h := NewHandler(s.cache, WithLogger(s.logger))

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP reports whether the admin server at addr is answering /healthz.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/healthz") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
