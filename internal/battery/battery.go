// Package battery reads the laptop's charge level with hardware
// abstraction. The real implementation uses the OS battery interfaces;
// the fake allows testing without hardware.
package battery

// Sensor reports the battery's charge level.
type Sensor interface {
	// Percent returns the current charge in the range 0 to 100.
	Percent() (float64, error)
}
