// Package events provides NATS event publishing for the RailWatch broker.
//
// Every consumers-group broadcast has a matching NATS event so that external
// systems (dashboards, shift rosters, incident tooling) can follow presence
// and session changes without holding a signaling connection. Publishing is
// best-effort: a NATS outage never blocks or fails the signaling path.
package events

import (
	"time"
)

// ProducerPresenceEvent is published when a kiosk comes online or goes
// offline.
type ProducerPresenceEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	ProducerID string    `json:"producer_id"`
	// Reason is set on offline events: "disconnect" or "heartbeat-timeout".
	Reason string `json:"reason,omitempty"`
}

// SessionEvent is published when a monitoring session starts or ends.
type SessionEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	ProducerID string    `json:"producer_id"`
	ConsumerID string    `json:"consumer_id"`
	// Reason is set on ended events: "stopped", "producer-disconnect",
	// "consumer-disconnect", "producer-timeout", or "session-timeout".
	Reason string `json:"reason,omitempty"`
}

// CrewEvent is published when a kiosk reports a crew sign-on or sign-off.
// ProducerID is the authenticated kiosk identity, not the payload's claim.
type CrewEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	ProducerID string    `json:"producer_id"`
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	EventType  string    `json:"event_type"`
}
