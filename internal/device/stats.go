package device

import "go.uber.org/atomic"

// TransferStats is the process-global memory-transfer accounting struct.
// Upload/Download update it with atomic addition, per the concurrency
// contract: "Memory-transfer stats: updated from the copy routines;
// implementation must use atomic addition."
type TransferStats struct {
	BytesToDevice    atomic.Uint64
	BytesFromDevice  atomic.Uint64
	NanosToDevice    atomic.Uint64
	NanosFromDevice  atomic.Uint64
}

// Stats is the shared instance every Device implementation reports into.
var Stats = &TransferStats{}

// Reset zeroes all counters. Intended for test isolation.
func (s *TransferStats) Reset() {
	s.BytesToDevice.Store(0)
	s.BytesFromDevice.Store(0)
	s.NanosToDevice.Store(0)
	s.NanosFromDevice.Store(0)
}
