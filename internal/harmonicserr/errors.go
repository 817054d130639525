// Package harmonicserr centralises the error kinds shared across the graph,
// cycle, partition, distributed and io packages, so callers can test with
// errors.Is against one set of sentinels instead of each package inventing
// its own.
package harmonicserr

import "errors"

var (
	// ErrParse covers graph/description parse and build failures: duplicate
	// names, unknown node references, malformed ratio expressions.
	ErrParse = errors.New("harmonics: parse error")

	// ErrBind covers producer binding failures, e.g. a bound sample's first
	// dimension disagreeing with the producer's declared width.
	ErrBind = errors.New("harmonics: bind error")

	// ErrExecution covers forward-pass failures: missing kernels, dtype
	// mismatches between the arrow and the tensor it carries.
	ErrExecution = errors.New("harmonics: execution error")

	// ErrIO covers binary format errors: bad magic, truncated files, version
	// mismatches in graph/weights/checkpoint files.
	ErrIO = errors.New("harmonics: io error")

	// ErrPartition covers partitioner failures: split index out of range,
	// deployment descriptor referencing unknown partitions.
	ErrPartition = errors.New("harmonics: partition error")

	// ErrResource covers device buffer failures: invalid allocation sizes and
	// transfers that exceed a buffer's capacity. Backend unavailability is not
	// reported with it; resolution falls back to CPU silently.
	ErrResource = errors.New("harmonics: resource error")
)
