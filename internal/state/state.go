// Package state defines the persisted plug-control record and its on-disk
// JSON store. The state file is the only durable artifact: every invocation
// reconstructs where the controller left off from this record alone.
package state

import "time"

// State is the persisted record. Current and Default are relay states
// (true = plug energized, the laptop charges). The remaining fields are
// absent when unset. Override and OverrideExpires are always set and
// cleared together.
type State struct {
	Current         bool       `json:"currentState"`
	Default         bool       `json:"defaultState"`
	KeepUntil       *time.Time `json:"keepStateUntil,omitempty"`
	Override        *bool      `json:"manualOverrideState,omitempty"`
	OverrideExpires *time.Time `json:"manualOverrideStateExpiresAt,omitempty"`
}

// Initial is the record assumed when no state file exists yet: plug on,
// default on.
func Initial() State {
	return State{Current: true, Default: true}
}

// SetOverride pins the desired relay state until expires.
func (s *State) SetOverride(on bool, expires time.Time) {
	s.Override = &on
	s.OverrideExpires = &expires
}

// ClearOverride removes the override and its expiry together.
func (s *State) ClearOverride() {
	s.Override = nil
	s.OverrideExpires = nil
}

// HasOverride reports whether a manual override is in effect.
func (s *State) HasOverride() bool {
	return s.Override != nil
}

// PinUntil holds the current relay state untouched until t.
func (s *State) PinUntil(t time.Time) {
	s.KeepUntil = &t
}

// Unpin clears the keep-state window.
func (s *State) Unpin() {
	s.KeepUntil = nil
}

// Pinned reports whether a keep-state window is in effect.
func (s *State) Pinned() bool {
	return s.KeepUntil != nil
}
