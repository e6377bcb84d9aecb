package wifi

// FakeDetector is a test double that reports a scripted network name.
type FakeDetector struct {
	// Network is the name to report while Associated is true.
	Network string

	// Associated controls whether the detector reports any network.
	Associated bool

	// CallCount counts CurrentNetwork calls.
	CallCount int
}

// NewFakeDetector creates a detector that reports being associated with
// the given network.
func NewFakeDetector(network string) *FakeDetector {
	return &FakeDetector{Network: network, Associated: true}
}

// CurrentNetwork returns the scripted association.
func (f *FakeDetector) CurrentNetwork() (string, bool) {
	f.CallCount++
	if !f.Associated {
		return "", false
	}
	return f.Network, true
}
