// Package telemetry defines the typed event structs that flow over the
// WebSocket connection between satmountd and its clients. These types serve
// as documentation for the event schema; most internal code still broadcasts
// events as map[string]any for flexibility.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat EventType = "heartbeat"
	EventState     EventType = "state"
	EventPulse     EventType = "pulse"
	EventPosition  EventType = "position"
	EventAbort     EventType = "abort"
	EventLog       EventType = "log"
)

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching
// the timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	Mount         string `json:"mount"`
	Tracking      string `json:"tracking"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// StateTransition is emitted whenever the tracker moves between phases
// (idle, slewing, tracking).
type StateTransition struct {
	Event
	State   string `json:"state"`
	NoradID int    `json:"norad_id,omitempty"`
}

// Pulse reports one correction burst sent to the mount.
type Pulse struct {
	Event
	Phase string `json:"phase"`
	AzDir string `json:"az_dir,omitempty"`
	AzMs  int64  `json:"az_ms,omitempty"`
	ElDir string `json:"el_dir,omitempty"`
	ElMs  int64  `json:"el_ms,omitempty"`
}

// Position carries a mount or satellite position sample.
type Position struct {
	Event
	Source       string  `json:"source"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km,omitempty"`
}

// Abort is emitted on a safety stop, e.g. the mount dipping below horizon.
type Abort struct {
	Event
	Reason   string  `json:"reason"`
	Altitude float64 `json:"altitude"`
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}
