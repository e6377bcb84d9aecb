// Package policy contains the pure decision rules for the plug controller:
// expiry of overrides and keep windows, charge hysteresis, and desired-state
// precedence. This package does no I/O and never reads the clock. Time is
// always passed in.
package policy

import (
	"time"

	"github.com/sweeney/battery-control/internal/state"
)

// Thresholds are the battery percentages (0 to 100) the rules compare
// against.
type Thresholds struct {
	// Charge is the level at which charging has done its job: at or above
	// it the default flips to discharging (plug off). Must be greater
	// than Discharge.
	Charge float64

	// Discharge is the level at which discharging has gone far enough: at
	// or below it the default flips back to charging (plug on).
	Discharge float64

	// SleepCharge decides which state to hold while the host sleeps: at
	// or below it the plug stays on, above it the battery drains.
	SleepCharge float64
}

// DefaultThresholds returns the stock 75/50/30 band.
func DefaultThresholds() Thresholds {
	return Thresholds{Charge: 75, Discharge: 50, SleepCharge: 30}
}

// ExpireOverride clears the override pair once now reaches its expiry.
// Reports whether the override was cleared. An override with no recorded
// expiry never expires here.
func ExpireOverride(st *state.State, now time.Time) bool {
	if st.OverrideExpires != nil && !now.Before(*st.OverrideExpires) {
		st.ClearOverride()
		return true
	}
	return false
}

// ExpireKeepWindow clears the keep-state pin once now reaches it.
// Reports whether the pin was cleared.
func ExpireKeepWindow(st *state.State, now time.Time) bool {
	if st.KeepUntil != nil && !now.Before(*st.KeepUntil) {
		st.Unpin()
		return true
	}
	return false
}

// DefaultFor recomputes the default relay state from the battery level.
// Between the two thresholds the previous default stands, so the plug
// cannot flap around a single boundary. Both comparisons are inclusive.
func (t Thresholds) DefaultFor(previous bool, percent float64) bool {
	if previous {
		if percent >= t.Charge {
			return false
		}
		return true
	}
	if percent <= t.Discharge {
		return true
	}
	return false
}

// SleepDefault returns the relay state to hold while the host sleeps:
// on when the battery is at or below the sleep threshold, off otherwise.
func (t Thresholds) SleepDefault(percent float64) bool {
	return percent <= t.SleepCharge
}

// Desired returns the relay state the record calls for: the override when
// one is in effect, the default otherwise.
func Desired(st state.State) bool {
	if st.Override != nil {
		return *st.Override
	}
	return st.Default
}
