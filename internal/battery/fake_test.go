package battery

import (
	"errors"
	"testing"
)

func TestFakeSensorConsumesLevels(t *testing.T) {
	f := NewFakeSensor(80, 60, 40)

	for i, want := range []float64{80, 60, 40} {
		got, err := f.Percent()
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d: got %v, want %v", i, got, want)
		}
	}

	// Exhausted levels repeat the last value.
	got, err := f.Percent()
	if err != nil {
		t.Fatal(err)
	}
	if got != 40 {
		t.Errorf("exhausted sensor should repeat last level, got %v", got)
	}

	if f.CallCount != 4 {
		t.Errorf("expected 4 calls recorded, got %d", f.CallCount)
	}
}

func TestFakeSensorReadError(t *testing.T) {
	f := NewFakeSensor(50)
	f.ReadError = errors.New("sensor gone")

	if _, err := f.Percent(); err == nil {
		t.Error("expected scripted error")
	}
}

func TestFakeSensorNoLevels(t *testing.T) {
	f := NewFakeSensor()
	if _, err := f.Percent(); err == nil {
		t.Error("expected error when no levels configured")
	}
}
