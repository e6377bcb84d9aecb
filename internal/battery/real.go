package battery

import (
	"errors"
	"fmt"

	distatus "github.com/distatus/battery"
)

// RealSensor reads the first system battery.
type RealSensor struct{}

// NewRealSensor creates a sensor backed by the OS battery interfaces.
func NewRealSensor() *RealSensor {
	return &RealSensor{}
}

// Percent returns the current charge level of battery 0.
func (s *RealSensor) Percent() (float64, error) {
	bat, err := distatus.Get(0)
	if err != nil {
		return 0, fmt.Errorf("read battery: %w", err)
	}
	if bat.Full == 0 {
		return 0, errors.New("battery reports zero capacity")
	}

	pct := bat.Current / bat.Full * 100
	// Worn batteries can report Current slightly above Full.
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}
