package plug

// FakeDriver is a test double that records relay commands.
type FakeDriver struct {
	// On is the simulated relay state.
	On bool

	// Calls records driver invocations in order: "probe", "on", "off",
	// "ison".
	Calls []string

	// ProbeError, if set, is returned by Probe and by the probe step of
	// TurnOn and TurnOff.
	ProbeError error

	// CommandError, if set, is returned by TurnOn, TurnOff and IsOn
	// after a successful probe.
	CommandError error
}

// NewFakeDriver creates a FakeDriver with the given relay state.
func NewFakeDriver(on bool) *FakeDriver {
	return &FakeDriver{On: on}
}

// Probe returns the scripted probe outcome.
func (f *FakeDriver) Probe() error {
	f.Calls = append(f.Calls, "probe")
	return f.ProbeError
}

// TurnOn energizes the simulated relay.
func (f *FakeDriver) TurnOn() error {
	f.Calls = append(f.Calls, "on")
	if f.ProbeError != nil {
		return f.ProbeError
	}
	if f.CommandError != nil {
		return f.CommandError
	}
	f.On = true
	return nil
}

// TurnOff de-energizes the simulated relay.
func (f *FakeDriver) TurnOff() error {
	f.Calls = append(f.Calls, "off")
	if f.ProbeError != nil {
		return f.ProbeError
	}
	if f.CommandError != nil {
		return f.CommandError
	}
	f.On = false
	return nil
}

// IsOn reports the simulated relay state.
func (f *FakeDriver) IsOn() (bool, error) {
	f.Calls = append(f.Calls, "ison")
	if f.ProbeError != nil {
		return false, f.ProbeError
	}
	if f.CommandError != nil {
		return false, f.CommandError
	}
	return f.On, nil
}

// SwitchCount returns how many on/off commands were issued.
func (f *FakeDriver) SwitchCount() int {
	n := 0
	for _, c := range f.Calls {
		if c == "on" || c == "off" {
			n++
		}
	}
	return n
}
