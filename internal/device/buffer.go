package device

import (
	"fmt"
	"time"

	"github.com/example/harmonics-go/internal/harmonicserr"
)

// Buffer is an opaque device-memory handle. No platform-specific accelerator
// driver is linked into this engine, so Buffer is backed by host memory and
// every Device implementation operates through the same host-memory
// primitive; this matches the spec's open note that, absent real device
// support, async transfers degenerate to synchronous host copies.
type Buffer struct {
	data []byte
}

// Capacity returns the buffer's allocated size in bytes.
func (b *Buffer) Capacity() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// Device is the uniform host<->device interface every backend exposes.
type Device interface {
	Alloc(bytes int) (*Buffer, error)
	Upload(dst *Buffer, host []byte) error
	Download(host []byte, src *Buffer) error
	Free(buf *Buffer)
	Copy(dst, src *Buffer) error
}

// HostDevice is the device implementation used by every backend in this
// engine (CPU always, and the accelerator backends when no real driver is
// reachable). It updates the shared TransferStats atomically.
type HostDevice struct{}

func (HostDevice) Alloc(bytes int) (*Buffer, error) {
	if bytes < 0 {
		return nil, fmt.Errorf("device: negative allocation size %d: %w", bytes, harmonicserr.ErrResource)
	}
	return &Buffer{data: make([]byte, bytes)}, nil
}

func (HostDevice) Upload(dst *Buffer, host []byte) error {
	if dst == nil || len(host) > len(dst.data) {
		return fmt.Errorf("device: upload of %d bytes exceeds buffer capacity: %w", len(host), harmonicserr.ErrResource)
	}

	start := time.Now()
	copy(dst.data, host)
	elapsed := time.Since(start)

	Stats.BytesToDevice.Add(uint64(len(host)))
	Stats.NanosToDevice.Add(uint64(elapsed.Nanoseconds()))

	return nil
}

func (HostDevice) Download(host []byte, src *Buffer) error {
	if src == nil || len(host) > len(src.data) {
		return fmt.Errorf("device: download of %d bytes exceeds buffer capacity: %w", len(host), harmonicserr.ErrResource)
	}

	start := time.Now()
	copy(host, src.data)
	elapsed := time.Since(start)

	Stats.BytesFromDevice.Add(uint64(len(host)))
	Stats.NanosFromDevice.Add(uint64(elapsed.Nanoseconds()))

	return nil
}

func (HostDevice) Free(buf *Buffer) {
	if buf != nil {
		buf.data = nil
	}
}

func (HostDevice) Copy(dst, src *Buffer) error {
	if dst == nil || src == nil || len(src.data) > len(dst.data) {
		return fmt.Errorf("device: copy source exceeds destination capacity: %w", harmonicserr.ErrResource)
	}
	copy(dst.data, src.data)
	return nil
}

// Future represents an asynchronous device transfer. On this engine's
// host-memory device it is always already-ready, per the spec's design note
// on degenerate async transfers.
type Future struct {
	err error
}

// Ready returns an already-completed future.
func Ready(err error) Future { return Future{err: err} }

// Get blocks (trivially, since the future is already ready) and returns the
// transfer's result.
func (f Future) Get() error { return f.err }
