package tensor

import "testing"

func TestNewValidatesLength(t *testing.T) {
	_, err := New(F32, []int64{2, 3}, make([]byte, 4*5))
	if err == nil {
		t.Fatalf("expected error on mismatched buffer length")
	}
}

func TestFromFloat32RoundTrip(t *testing.T) {
	x, err := FromFloat32([]float32{1, 2, 3, 4}, []int64{2, 2})
	if err != nil {
		t.Fatalf("from float32: %v", err)
	}

	if got := x.Shape(); !equalI64(got, []int64{2, 2}) {
		t.Fatalf("shape = %v, want [2 2]", got)
	}

	if got := x.F32(); !equalF32(got, []float32{1, 2, 3, 4}) {
		t.Fatalf("data = %v", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	x, _ := FromFloat32([]float32{1, 2}, []int64{2})
	y := x.Clone()
	y.F32()[0] = 99

	if x.F32()[0] == 99 {
		t.Fatalf("clone aliased the original buffer")
	}
}

func TestReshapeRejectsSizeMismatch(t *testing.T) {
	x, _ := FromFloat32([]float32{1, 2, 3, 4}, []int64{2, 2})
	if _, err := x.Reshape([]int64{3, 3}); err == nil {
		t.Fatalf("expected reshape error on element-count mismatch")
	}
}

func TestClipInPlaceIdempotent(t *testing.T) {
	x, _ := FromFloat32([]float32{-5, 0, 5, 10}, []int64{4})
	ClipInPlace(x, 2)
	want := []float32{-2, 0, 2, 2}
	if got := x.F32(); !equalF32(got, want) {
		t.Fatalf("clip = %v, want %v", got, want)
	}

	once := x.Clone()
	ClipInPlace(x, 2)
	if got := x.F32(); !equalF32(got, once.F32()) {
		t.Fatalf("clip not idempotent: %v vs %v", got, once.F32())
	}
}

func TestClipInPlaceDisabledAtZero(t *testing.T) {
	x, _ := FromFloat32([]float32{-5, 5}, []int64{2})
	ClipInPlace(x, 0)
	if got := x.F32(); !equalF32(got, []float32{-5, 5}) {
		t.Fatalf("clip with limit 0 should be a no-op, got %v", got)
	}
}

func TestL2Norm(t *testing.T) {
	x, _ := FromFloat32([]float32{3, 4}, []int64{2})
	if got := L2Norm(x); got != 5 {
		t.Fatalf("l2 norm = %v, want 5", got)
	}
}

func TestListL2Norm(t *testing.T) {
	a, _ := FromFloat32([]float32{3, 4}, []int64{2})
	b, _ := FromFloat32([]float32{0}, []int64{1})
	if got := ListL2Norm([]Tensor{a, b}); got != 5 {
		t.Fatalf("list l2 norm = %v, want 5", got)
	}
}

func equalI64(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalF32(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
