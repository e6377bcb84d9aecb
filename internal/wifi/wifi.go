// Package wifi answers one question: which Wi-Fi network is this host on
// right now. The answer gates all plug interaction, because away from the
// home network the laptop is neither plugged into the outlet nor able to
// reach it.
package wifi

// Detector reports the currently associated Wi-Fi network.
type Detector interface {
	// CurrentNetwork returns the network name and true when associated.
	// Any failure to determine the name reads as not associated.
	CurrentNetwork() (string, bool)
}
