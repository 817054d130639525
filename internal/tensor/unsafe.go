package tensor

import "unsafe"

// byteSliceAs reinterprets a []byte as a []T without copying. It assumes a
// little-endian host, which matches every platform this engine currently
// targets (amd64, arm64, wasm32).
func byteSliceAs[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}

	var zero T
	size := int(unsafe.Sizeof(zero))

	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/size)
}
