package events

// NATS subject constants for broker domain events.
// Format: railwatch.<domain>.<action>

const (
	// Presence events
	SubjectProducerOnline  = "railwatch.producer.online"
	SubjectProducerOffline = "railwatch.producer.offline"

	// Session events
	SubjectSessionStarted = "railwatch.session.started"
	SubjectSessionEnded   = "railwatch.session.ended"

	// Crew events
	SubjectCrewSignOn  = "railwatch.crew.signon"
	SubjectCrewSignOff = "railwatch.crew.signoff"
)
