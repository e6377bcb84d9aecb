// Package announce publishes relay transition events over MQTT with
// abstraction for testing. Announcements are strictly best-effort: the
// controller never blocks a reconciliation on the broker.
package announce

import (
	"encoding/json"
	"time"
)

// Topic is the MQTT topic for plug transition events.
const Topic = "energy/battery/control/events"

// Event names carried in the payload.
const (
	EventOn  = "PLUG_ON"
	EventOff = "PLUG_OFF"
)

// Publisher publishes transition events.
type Publisher interface {
	// Publish sends a transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// Close disconnects from the broker.
	Close() error
}

// Event represents a relay transition to be published.
type Event struct {
	Timestamp time.Time
	On        bool // the relay state after the transition
	Operation string
	// Battery is the charge level the decision used, when it used one.
	Battery *float64
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Plug PlugPayload `json:"plug"`
}

// PlugPayload contains the transition details.
type PlugPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Operation string   `json:"operation"`
	Battery   *float64 `json:"battery,omitempty"`
}

// FormatPayload creates the JSON payload for a transition event.
func FormatPayload(event Event) ([]byte, error) {
	name := EventOff
	if event.On {
		name = EventOn
	}

	payload := Payload{
		Plug: PlugPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     name,
			Operation: event.Operation,
			Battery:   event.Battery,
		},
	}
	return json.Marshal(payload)
}
