package slab

import "testing"

func TestNewIsCleared(t *testing.T) {
	s := New()
	for slot := 0; slot < MaxVariableSlots; slot++ {
		if s.SensorActive(slot) {
			t.Fatalf("slot %d should start inactive", slot)
		}
		for _, v := range s.SensorSlot(slot) {
			if v != 0 {
				t.Fatalf("slot %d should start zeroed", slot)
			}
		}
	}
}

func TestSlotAccessorsAreIndependent(t *testing.T) {
	s := New()
	s.SensorSlot(0)[5] = 42
	s.SetSensorActive(0, true)

	if s.SensorSlot(1)[5] != 0 {
		t.Fatalf("slot 1 must be unaffected by writes to slot 0")
	}
	if !s.SensorActive(0) || s.SensorActive(1) {
		t.Fatalf("active flags not independent")
	}
}

func TestClearResetsEverything(t *testing.T) {
	s := New()
	s.SensorSlot(0)[0] = 1
	s.SetSensorActive(0, true)
	s.AppendageSlot(1)[2] = 3
	s.SetAppendageActive(1, true)

	s.Clear()

	if s.SensorActive(0) || s.AppendageActive(1) {
		t.Fatalf("clear did not reset active flags")
	}
	if s.SensorSlot(0)[0] != 0 || s.AppendageSlot(1)[2] != 0 {
		t.Fatalf("clear did not zero data")
	}
}

func TestSlotLength(t *testing.T) {
	s := New()
	if len(s.SensorSlot(0)) != MaxSlotNeurons {
		t.Fatalf("slot length = %d, want %d", len(s.SensorSlot(0)), MaxSlotNeurons)
	}
}
