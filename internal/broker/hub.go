// Package broker implements the signaling connection controller: the
// per-connection state machine, message dispatch, session arbitration,
// signaling forwarding, and cascading disconnect cleanup.
//
// Architecture:
//   - Hub: connection registry and broadcast groups
//   - Client: one WebSocket connection with read/write pumps
//   - Controller: validates and routes every inbound message
//
// Concurrency:
//   - Each Client has readPump and writePump goroutines
//   - Dispatch runs on the readPump, so one connection's messages are
//     processed strictly in arrival order
//   - Hub maps are protected with sync.RWMutex
package broker

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/railwatch/broker/internal/logger"
)

// Broadcast group names. Producers and consumers each join their role group
// on registration; domain events fan out to the consumers group.
const (
	GroupProducers = "producers"
	GroupConsumers = "consumers"
)

// Hub maintains active signaling connections and broadcast groups.
//
// The hub only moves bytes: which clients a message goes to is decided by the
// Controller. Slow clients whose send buffers fill are evicted so one stalled
// monitor cannot block a broadcast.
type Hub struct {
	mu sync.RWMutex

	// clients maps connection handle -> client
	clients map[string]*Client

	// groups maps group name -> connection handle -> client
	groups map[string]map[string]*Client
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		groups: map[string]map[string]*Client{
			GroupProducers: make(map[string]*Client),
			GroupConsumers: make(map[string]*Client),
		},
	}
}

// Add registers a connection with the hub.
func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	logger.Broker().Debug().
		Str("connection", client.ID).
		Str("clientId", client.ClientID).
		Int("total", len(h.clients)).
		Msg("Connection added")
}

// Remove drops a connection from the hub and every group.
func (h *Hub) Remove(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, connectionID)
	for _, group := range h.groups {
		delete(group, connectionID)
	}
}

// JoinGroup adds the client to a named broadcast group.
func (h *Hub) JoinGroup(group string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*Client)
		h.groups[group] = members
	}
	members[client.ID] = client
}

// Get returns the client for a connection handle.
func (h *Hub) Get(connectionID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connectionID]
	return client, ok
}

// SendTo delivers a message to a single connection. Returns an error when the
// connection is gone or its send buffer is full.
func (h *Hub) SendTo(connectionID, msgType string, payload interface{}) error {
	h.mu.RLock()
	client, ok := h.clients[connectionID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("connection %s is not present", connectionID)
	}
	return client.Send(msgType, payload)
}

// BroadcastToGroup sends a message to every member of a group. The payload is
// marshaled once. Members whose send buffers are full are evicted.
func (h *Hub) BroadcastToGroup(group, msgType string, payload interface{}) {
	frame, err := marshalEnvelope(msgType, payload)
	if err != nil {
		logger.Broker().Error().Err(err).Str("type", msgType).Msg("Failed to marshal broadcast")
		return
	}

	h.mu.RLock()
	var blocked []*Client
	for _, client := range h.groups[group] {
		if !client.trySendFrame(frame) {
			blocked = append(blocked, client)
		}
	}
	h.mu.RUnlock()

	// Evict blocked clients outside the read lock; their pumps will run the
	// normal disconnect path.
	for _, client := range blocked {
		logger.Broker().Warn().
			Str("connection", client.ID).
			Str("clientId", client.ClientID).
			Msg("Send buffer full, evicting slow client")
		client.close()
	}
}

// GroupSize returns the number of members in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// ConnectionCount returns the number of tracked connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func marshalEnvelope(msgType string, payload interface{}) ([]byte, error) {
	env := Envelope{Type: msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
