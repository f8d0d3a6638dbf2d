package broker

import (
	"encoding/json"
	"time"
)

// Envelope is the wire frame for every signaling message in both directions:
// a type tag plus an opaque JSON payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound message types (client -> broker)
const (
	MsgRegisterProducer = "register-producer"
	MsgRegisterConsumer = "register-consumer"
	MsgStartMonitoring  = "start-monitoring"
	MsgStopMonitoring   = "stop-monitoring"
	MsgOffer            = "offer"
	MsgAnswer           = "answer"
	MsgIceCandidate     = "ice-candidate"
	MsgHeartbeatPing    = "heartbeat-ping"
	MsgCrewSignOn       = "crew-sign-on"
	MsgCrewSignOff      = "crew-sign-off"
)

// Outbound message types (broker -> client)
const (
	MsgProducerRegistered = "producer-registered"
	MsgConsumerRegistered = "consumer-registered"
	MsgProducerOnline     = "producer-online"
	MsgProducerOffline    = "producer-offline"
	MsgMonitoringStarted  = "monitoring-started"
	MsgMonitoringStopped  = "monitoring-stopped"
	MsgSessionEnded       = "session-ended"
	MsgSessionTimeout     = "session-timeout"
	MsgCrewSignOnAck      = "crew-sign-on-ack"
	MsgCrewSignOffAck     = "crew-sign-off-ack"
	MsgHeartbeatPong      = "heartbeat-pong"
	MsgError              = "error"
)

// Offline / session-ended reasons
const (
	ReasonDisconnect         = "disconnect"
	ReasonHeartbeatTimeout   = "heartbeat-timeout"
	ReasonStopped            = "stopped"
	ReasonProducerDisconnect = "producer-disconnect"
	ReasonConsumerDisconnect = "consumer-disconnect"
	ReasonProducerTimeout    = "producer-timeout"
	ReasonSessionTimeout     = "session-timeout"
)

// monitoringRequest is the payload of start-monitoring and stop-monitoring.
type monitoringRequest struct {
	ProducerID string `json:"producerId"`
}

// signalPayload is the inbound payload of offer, answer, and ice-candidate.
// The signal fields stay raw: the broker forwards them untouched.
type signalPayload struct {
	TargetID  string          `json:"targetId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// field returns the signal blob for the given message kind.
func (p *signalPayload) field(kind string) json.RawMessage {
	switch kind {
	case MsgOffer:
		return p.Offer
	case MsgAnswer:
		return p.Answer
	case MsgIceCandidate:
		return p.Candidate
	}
	return nil
}

// crewRequest is the inbound payload of crew-sign-on and crew-sign-off.
// ProducerID must be present but its value is discarded: attribution comes
// from the authenticated sender.
type crewRequest struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Timestamp  int64  `json:"timestamp,omitempty"`
	ProducerID string `json:"producerId"`
}

// Outbound payloads. Timestamps are epoch milliseconds.

type producerRegisteredPayload struct {
	ProducerID string `json:"producerId"`
	Timestamp  int64  `json:"timestamp"`
}

type onlineProducer struct {
	ProducerID  string `json:"producerId"`
	ConnectedAt int64  `json:"connectedAt"`
}

type consumerRegisteredPayload struct {
	ConsumerID      string           `json:"consumerId"`
	OnlineProducers []onlineProducer `json:"onlineProducers"`
	Timestamp       int64            `json:"timestamp"`
}

type producerOnlinePayload struct {
	ProducerID string `json:"producerId"`
	Timestamp  int64  `json:"timestamp"`
}

type producerOfflinePayload struct {
	ProducerID string `json:"producerId"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}

type monitoringStartedPayload struct {
	ProducerID string `json:"producerId"`
	SessionID  string `json:"sessionId"`
	StartedAt  int64  `json:"startedAt,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

type monitoringStoppedPayload struct {
	ProducerID string `json:"producerId"`
	Timestamp  int64  `json:"timestamp"`
}

type sessionEndedPayload struct {
	ProducerID string `json:"producerId"`
	ConsumerID string `json:"consumerId"`
	Reason     string `json:"reason"`
	Timestamp  int64  `json:"timestamp"`
}

type sessionTimeoutPayload struct {
	ProducerID string `json:"producerId"`
	Timestamp  int64  `json:"timestamp"`
}

// signalForward is the outbound shape of a forwarded signaling message.
type signalForward struct {
	FromID    string          `json:"fromId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

type crewBroadcastPayload struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	Timestamp  int64  `json:"timestamp"`
	ProducerID string `json:"producerId"`
	EventType  string `json:"eventType"`
}

type crewAckPayload struct {
	EmployeeID string `json:"employeeId"`
	Timestamp  int64  `json:"timestamp"`
}

type heartbeatPongPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// nowMs is the wire clock: epoch milliseconds.
func nowMs() int64 {
	return time.Now().UnixMilli()
}
