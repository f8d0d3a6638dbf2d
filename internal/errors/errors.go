// Package errors provides standardized error handling for the RailWatch broker.
//
// This package implements a consistent error format across the HTTP surface
// and the WebSocket signaling protocol:
//   - Structured errors with machine-readable codes
//   - Automatic HTTP status code mapping for the REST surface
//   - Wire-level error payloads for signaling clients
//
// Error Structure:
//   - Code: Machine-readable error identifier (e.g., "SESSION_ALREADY_EXISTS")
//   - Message: Human-readable error message
//   - Details: Optional additional context keyed by field name
//   - StatusCode: HTTP status code (only meaningful on the REST surface)
//
// Usage patterns:
//
//	// Simple error
//	return errors.New(errors.ErrCodeSessionNotFound, "no active session for producer")
//
//	// Error with details
//	return errors.NewWithDetails(errors.ErrCodeSessionAlreadyExists,
//	    "producer is already being monitored",
//	    map[string]interface{}{"existingConsumerId": other})
//
//	// On the wire
//	conn.Send(err.ToWire(now))
package errors

import (
	"fmt"
	"net/http"
)

// BrokerError represents a standardized broker error.
//
// The same error type serves the REST surface (StatusCode + JSON body) and the
// signaling protocol (wire payload with epoch-ms timestamp).
type BrokerError struct {
	// Code is a machine-readable error identifier.
	// Format: UPPER_SNAKE_CASE (e.g., "SIGNALING_NO_SESSION")
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Details provides additional context (optional).
	// Keys are merged into the wire-level error payload.
	Details map[string]interface{} `json:"details,omitempty"`

	// StatusCode is the HTTP status code for the REST surface.
	// Not included in JSON (marked with `json:"-"`).
	StatusCode int `json:"-"`
}

// Error implements the error interface
func (e *BrokerError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WirePayload is the JSON shape of an `error` message sent to a signaling
// client: {code, message, timestamp, ...details}.
type WirePayload map[string]interface{}

// ToWire flattens the error into the signaling wire payload. Detail keys are
// merged at the top level; reserved keys (code, message, timestamp) win.
func (e *BrokerError) ToWire(timestampMs int64) WirePayload {
	payload := make(WirePayload, len(e.Details)+3)
	for k, v := range e.Details {
		payload[k] = v
	}
	payload["code"] = e.Code
	payload["message"] = e.Message
	payload["timestamp"] = timestampMs
	return payload
}

// Error codes
const (
	// Auth
	ErrCodeAuthInvalidToken = "AUTH_INVALID_TOKEN"
	ErrCodeAuthInvalidRole  = "AUTH_INVALID_ROLE"

	// Request shape
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeOperationNotAllowed = "OPERATION_NOT_ALLOWED"
	ErrCodeClientNotRegistered = "CLIENT_NOT_REGISTERED"

	// Session
	ErrCodeSessionProducerOffline = "SESSION_PRODUCER_OFFLINE"
	ErrCodeSessionAlreadyExists   = "SESSION_ALREADY_EXISTS"
	ErrCodeSessionNotFound        = "SESSION_NOT_FOUND"
	ErrCodeSessionNotAuthorized   = "SESSION_NOT_AUTHORIZED"

	// Signaling
	ErrCodeSignalingMissingData        = "SIGNALING_MISSING_DATA"
	ErrCodeSignalingInvalidTarget      = "SIGNALING_INVALID_TARGET"
	ErrCodeSignalingInvalidPairing     = "SIGNALING_INVALID_PAIRING"
	ErrCodeSignalingNoSession          = "SIGNALING_NO_SESSION"
	ErrCodeSignalingUnauthorizedSender = "SIGNALING_UNAUTHORIZED_SENDER"

	// Crew events
	ErrCodeCrewEventUnauthorized   = "CREW_EVENT_UNAUTHORIZED"
	ErrCodeCrewEventInvalidPayload = "CREW_EVENT_INVALID_PAYLOAD"

	// Flow control
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// Catch-all
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// New creates a new BrokerError
func New(code string, message string) *BrokerError {
	return &BrokerError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCodeForErrorCode(code),
	}
}

// NewWithDetails creates a new BrokerError with details
func NewWithDetails(code string, message string, details map[string]interface{}) *BrokerError {
	return &BrokerError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: getStatusCodeForErrorCode(code),
	}
}

// Wrap wraps an existing error with a BrokerError
func Wrap(code string, message string, err error) *BrokerError {
	var details map[string]interface{}
	if err != nil {
		details = map[string]interface{}{"cause": err.Error()}
	}
	return NewWithDetails(code, message, details)
}

// getStatusCodeForErrorCode returns the HTTP status code for an error code
func getStatusCodeForErrorCode(code string) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeSignalingMissingData, ErrCodeCrewEventInvalidPayload:
		return http.StatusBadRequest
	case ErrCodeAuthInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeAuthInvalidRole, ErrCodeOperationNotAllowed, ErrCodeClientNotRegistered,
		ErrCodeSessionNotAuthorized, ErrCodeSignalingUnauthorizedSender, ErrCodeCrewEventUnauthorized:
		return http.StatusForbidden
	case ErrCodeSessionNotFound, ErrCodeSignalingInvalidTarget, ErrCodeSessionProducerOffline,
		ErrCodeSignalingNoSession:
		return http.StatusNotFound
	case ErrCodeSessionAlreadyExists, ErrCodeSignalingInvalidPairing:
		return http.StatusConflict
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for convenience

func InvalidRequest(message string) *BrokerError {
	return New(ErrCodeInvalidRequest, message)
}

func OperationNotAllowed(message string) *BrokerError {
	return New(ErrCodeOperationNotAllowed, message)
}

func ClientNotRegistered() *BrokerError {
	return New(ErrCodeClientNotRegistered, "Client must register before sending this message")
}

func AuthInvalidToken(message string) *BrokerError {
	return New(ErrCodeAuthInvalidToken, message)
}

func AuthInvalidRole(message string) *BrokerError {
	return New(ErrCodeAuthInvalidRole, message)
}

func SessionProducerOffline(producerID string) *BrokerError {
	return NewWithDetails(ErrCodeSessionProducerOffline,
		fmt.Sprintf("Producer %s is not online", producerID),
		map[string]interface{}{"producerId": producerID})
}

func SessionAlreadyExists(producerID, existingConsumerID string) *BrokerError {
	return NewWithDetails(ErrCodeSessionAlreadyExists,
		fmt.Sprintf("Producer %s is already being monitored", producerID),
		map[string]interface{}{
			"producerId":         producerID,
			"existingConsumerId": existingConsumerID,
		})
}

func SessionNotFound(producerID string) *BrokerError {
	return NewWithDetails(ErrCodeSessionNotFound,
		fmt.Sprintf("No active monitoring session for producer %s", producerID),
		map[string]interface{}{"producerId": producerID})
}

func SessionNotAuthorized(producerID string) *BrokerError {
	return NewWithDetails(ErrCodeSessionNotAuthorized,
		"Session belongs to another consumer",
		map[string]interface{}{"producerId": producerID})
}

func SignalingMissingData(message string) *BrokerError {
	return New(ErrCodeSignalingMissingData, message)
}

func SignalingInvalidTarget(targetID string) *BrokerError {
	return NewWithDetails(ErrCodeSignalingInvalidTarget,
		fmt.Sprintf("Target %s is not connected", targetID),
		map[string]interface{}{"targetId": targetID})
}

func SignalingInvalidPairing() *BrokerError {
	return New(ErrCodeSignalingInvalidPairing,
		"Signaling is only allowed between a producer and a consumer")
}

func SignalingNoSession(producerID string) *BrokerError {
	return NewWithDetails(ErrCodeSignalingNoSession,
		fmt.Sprintf("No active monitoring session for producer %s", producerID),
		map[string]interface{}{"producerId": producerID})
}

func SignalingUnauthorizedSender() *BrokerError {
	return New(ErrCodeSignalingUnauthorizedSender,
		"Sender is not a member of the active session")
}

func CrewEventInvalidPayload(message string) *BrokerError {
	return New(ErrCodeCrewEventInvalidPayload, message)
}

func CrewEventUnauthorized() *BrokerError {
	return New(ErrCodeCrewEventUnauthorized, "Only producers may emit crew events")
}

func RateLimitExceeded(kind string, current, limit int, resetAtMs int64) *BrokerError {
	return NewWithDetails(ErrCodeRateLimitExceeded,
		fmt.Sprintf("Rate limit exceeded for %s", kind),
		map[string]interface{}{
			"eventType": kind,
			"current":   current,
			"limit":     limit,
			"resetAt":   resetAtMs,
		})
}

func Internal(message string) *BrokerError {
	return New(ErrCodeInternalError, message)
}
