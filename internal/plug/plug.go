// Package plug controls a TP-Link Kasa smart plug with hardware
// abstraction. The real driver speaks the plug's LAN protocol directly
// over TCP; the fake allows testing without a plug on the network.
package plug

import "errors"

// ErrUnreachable is returned when the plug cannot be contacted at all,
// as opposed to a plug that answers but refuses a command.
var ErrUnreachable = errors.New("smart plug unreachable")

// Driver switches and inspects the outlet relay.
type Driver interface {
	// Probe checks that the plug responds on the network, with bounded
	// retries. Returns ErrUnreachable when all attempts fail.
	Probe() error

	// TurnOn energizes the relay.
	TurnOn() error

	// TurnOff de-energizes the relay.
	TurnOff() error

	// IsOn reports the live relay state.
	IsOn() (bool, error)
}
