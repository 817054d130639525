// Package kernelcache implements the two-level kernel-compilation cache: a
// per-cycle op list keyed by graph digest and per-layer precision, and a
// per-shader bytecode cache backed by memory and disk.
package kernelcache

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lukechampine.com/blake3"
)

const (
	envShaderCacheLimit = "HARMONICS_SHADER_CACHE_LIMIT"
	envShaderDir        = "HARMONICS_SHADER_DIR"
	envShaderCacheDir   = "HARMONICS_SHADER_CACHE"

	defaultShaderCacheLimit = 64
	defaultShaderCacheDir   = "shader_cache"
)

// Compiler produces shader bytecode for a shader key on a cache miss, e.g.
// by invoking an external compiler toolchain.
type Compiler func(shaderKey string) ([]byte, error)

// ShaderCache is the per-shader bytecode cache: an in-memory map bounded by
// a configurable capacity, falling back to a disk cache keyed by the BLAKE3
// hex digest of the shader key, falling back in turn to Compile.
type ShaderCache struct {
	mu       sync.Mutex
	limit    int
	order    []string
	memory   map[string][]byte
	dir      string
	compiles int
}

// NewShaderCache creates a shader cache using the configured in-memory
// capacity and disk directory.
func NewShaderCache() *ShaderCache {
	return &ShaderCache{
		limit:  shaderCacheLimit(),
		memory: make(map[string][]byte),
		dir:    shaderCacheDir(),
	}
}

func shaderCacheLimit() int {
	return envIntOr(envShaderCacheLimit, defaultShaderCacheLimit)
}

func shaderCacheDir() string {
	if v := os.Getenv(envShaderCacheDir); v != "" {
		return v
	}
	if v := os.Getenv(envShaderDir); v != "" {
		return v
	}
	return defaultShaderCacheDir
}

func envIntOr(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Get returns bytecode for shaderKey, trying memory, then disk, then
// compile, writing back to both caches on a successful compile.
func (c *ShaderCache) Get(shaderKey string, compile Compiler) ([]byte, error) {
	c.mu.Lock()
	if b, ok := c.memory[shaderKey]; ok {
		c.mu.Unlock()
		return b, nil
	}
	c.mu.Unlock()

	if b, ok := c.loadDisk(shaderKey); ok {
		c.insertMemory(shaderKey, b)
		return b, nil
	}

	b, err := compile(shaderKey)
	if err != nil {
		return nil, fmt.Errorf("compile-failed: shader %q: %w", shaderKey, err)
	}

	c.insertMemory(shaderKey, b)
	c.saveDisk(shaderKey, b)

	c.mu.Lock()
	c.compiles++
	c.mu.Unlock()

	return b, nil
}

func (c *ShaderCache) insertMemory(key string, bytecode []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.memory[key]; !exists {
		c.order = append(c.order, key)
	}
	c.memory[key] = bytecode

	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.memory, oldest)
	}
}

func diskFilename(shaderKey string) string {
	sum := blake3.Sum256([]byte(shaderKey))
	return hex.EncodeToString(sum[:]) + ".spv"
}

func (c *ShaderCache) loadDisk(shaderKey string) ([]byte, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(filepath.Join(c.dir, diskFilename(shaderKey)))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *ShaderCache) saveDisk(shaderKey string, bytecode []byte) {
	if c.dir == "" {
		return
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(c.dir, diskFilename(shaderKey)), bytecode, 0o644)
}

// Compiles returns the number of shader compiles (cache misses) observed so
// far, exposed for tests per the spec's compile-counter requirement.
func (c *ShaderCache) Compiles() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiles
}
