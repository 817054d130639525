package slab

import "unsafe"

// elemAddr returns the address of s's backing array as a uintptr, used only
// to compute the alignment offset in alignedSlice.
func elemAddr(s []float64) uintptr {
	if len(s) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&s[0]))
}
