package battery

import "errors"

// FakeSensor is a test double that returns scripted charge levels.
type FakeSensor struct {
	// Levels contains scripted percentages. Each Percent call consumes
	// the next one; the last repeats once exhausted.
	Levels []float64

	// index tracks current position in Levels
	index int

	// ReadError, if set, will be returned by Percent()
	ReadError error

	// CallCount counts Percent calls.
	CallCount int
}

// NewFakeSensor creates a FakeSensor with the given levels.
func NewFakeSensor(levels ...float64) *FakeSensor {
	return &FakeSensor{Levels: levels}
}

// Percent returns the next scripted level.
func (f *FakeSensor) Percent() (float64, error) {
	f.CallCount++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Levels) == 0 {
		return 0, errors.New("no levels configured")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level, nil
}
