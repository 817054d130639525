package precision

import "testing"

func TestFixedClamps(t *testing.T) {
	if got := (Fixed{Bits: 1}).SelectBits(0); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
	if got := (Fixed{Bits: 64}).SelectBits(0); got != 32 {
		t.Fatalf("got %d, want 32", got)
	}
}

func TestEntropyLimit(t *testing.T) {
	// -log2(0.25) = 2 exactly.
	if got := (EntropyLimit{Limit: 0.25}).SelectBits(0); got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestPerLayerFallsBackToLastForOutOfRange(t *testing.T) {
	p := PerLayer{Bits: []int{8, 16}}
	if got := p.SelectBits(5); got != 16 {
		t.Fatalf("got %d, want 16", got)
	}
}

func TestHardwareGuided(t *testing.T) {
	present := HardwareGuided{Probe: func() bool { return true }}
	if got := present.SelectBits(0); got != 16 {
		t.Fatalf("got %d, want 16", got)
	}

	absent := HardwareGuided{Probe: func() bool { return false }}
	if got := absent.SelectBits(0); got != 32 {
		t.Fatalf("got %d, want 32", got)
	}
}
