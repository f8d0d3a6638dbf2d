// Package presence tracks online signaling clients.
//
// The registry keeps two disjoint indices, one per role: kiosks (producers)
// and monitor stations (consumers). Each role is indexed both by client id and
// by connection handle so that a disconnect maps to O(1) cleanup.
//
// The registry owns the authoritative records; every read returns a copy so
// callers never observe a partially updated entry.
//
// Thread Safety: all operations are guarded by a single RWMutex and are atomic
// with respect to each other.
package presence

import (
	"fmt"
	"sync"
	"time"

	"github.com/railwatch/broker/internal/logger"
)

// Role identifies which side of a monitoring session a client is on.
type Role string

const (
	// RoleProducer is a kiosk: owns a camera, emits crew events, heartbeats.
	RoleProducer Role = "producer"
	// RoleConsumer is a monitor station: subscribes to producers.
	RoleConsumer Role = "consumer"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleProducer || r == RoleConsumer
}

// Status is a client's presence state.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Entry is one registered client. Fields are identical for both roles; the
// role is implied by which index the entry lives in.
type Entry struct {
	ClientID     string
	Connection   string
	RegisteredAt time.Time
	LastSeenAt   time.Time
	Status       Status
}

// Registry is the in-process presence store.
type Registry struct {
	mu sync.RWMutex

	// producers maps clientId -> entry; producersByConn maps connection
	// handle -> clientId. The two are kept consistent under mu.
	producers       map[string]*Entry
	producersByConn map[string]string

	consumers       map[string]*Entry
	consumersByConn map[string]string

	now func() time.Time
}

// NewRegistry creates an empty presence registry.
func NewRegistry() *Registry {
	return &Registry{
		producers:       make(map[string]*Entry),
		producersByConn: make(map[string]string),
		consumers:       make(map[string]*Entry),
		consumersByConn: make(map[string]string),
		now:             time.Now,
	}
}

// RegisterProducer records a producer as online. Re-registering an existing
// clientId is last-writer-wins: the new connection replaces the old entry.
func (r *Registry) RegisterProducer(clientID, connection string) (Entry, error) {
	return r.register(r.producers, r.producersByConn, clientID, connection)
}

// RegisterConsumer records a consumer as online, with the same semantics as
// RegisterProducer in a disjoint namespace.
func (r *Registry) RegisterConsumer(clientID, connection string) (Entry, error) {
	return r.register(r.consumers, r.consumersByConn, clientID, connection)
}

func (r *Registry) register(byID map[string]*Entry, byConn map[string]string, clientID, connection string) (Entry, error) {
	if clientID == "" {
		return Entry{}, fmt.Errorf("clientId cannot be empty")
	}
	if connection == "" {
		return Entry{}, fmt.Errorf("connection cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Last-writer-wins: drop the stale connection index before replacing.
	if existing, ok := byID[clientID]; ok {
		delete(byConn, existing.Connection)
		logger.Presence().Debug().
			Str("clientId", clientID).
			Str("oldConnection", existing.Connection).
			Str("newConnection", connection).
			Msg("Replacing existing registration")
	}
	// A connection handle can carry at most one entry per role.
	if oldID, ok := byConn[connection]; ok && oldID != clientID {
		delete(byID, oldID)
	}

	now := r.now()
	entry := &Entry{
		ClientID:     clientID,
		Connection:   connection,
		RegisteredAt: now,
		LastSeenAt:   now,
		Status:       StatusOnline,
	}
	byID[clientID] = entry
	byConn[connection] = clientID
	return *entry, nil
}

// RemoveProducer deletes a producer entry. Returns false on miss.
func (r *Registry) RemoveProducer(clientID string) bool {
	return r.remove(r.producers, r.producersByConn, clientID)
}

// RemoveConsumer deletes a consumer entry. Returns false on miss.
func (r *Registry) RemoveConsumer(clientID string) bool {
	return r.remove(r.consumers, r.consumersByConn, clientID)
}

func (r *Registry) remove(byID map[string]*Entry, byConn map[string]string, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := byID[clientID]
	if !ok {
		return false
	}
	delete(byConn, entry.Connection)
	delete(byID, clientID)
	return true
}

// LookupProducer returns a copy of the producer entry for clientID.
func (r *Registry) LookupProducer(clientID string) (Entry, bool) {
	return r.lookup(r.producers, clientID)
}

// LookupConsumer returns a copy of the consumer entry for clientID.
func (r *Registry) LookupConsumer(clientID string) (Entry, bool) {
	return r.lookup(r.consumers, clientID)
}

func (r *Registry) lookup(byID map[string]*Entry, clientID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := byID[clientID]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// LookupProducerByConnection resolves a connection handle to its producer.
func (r *Registry) LookupProducerByConnection(connection string) (Entry, bool) {
	return r.lookupByConn(r.producers, r.producersByConn, connection)
}

// LookupConsumerByConnection resolves a connection handle to its consumer.
func (r *Registry) LookupConsumerByConnection(connection string) (Entry, bool) {
	return r.lookupByConn(r.consumers, r.consumersByConn, connection)
}

func (r *Registry) lookupByConn(byID map[string]*Entry, byConn map[string]string, connection string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clientID, ok := byConn[connection]
	if !ok {
		return Entry{}, false
	}
	entry, ok := byID[clientID]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// ListOnlineProducers returns copies of every producer entry with
// Status == online.
func (r *Registry) ListOnlineProducers() []Entry {
	return r.listOnline(r.producers)
}

// ListOnlineConsumers returns copies of every consumer entry with
// Status == online.
func (r *Registry) ListOnlineConsumers() []Entry {
	return r.listOnline(r.consumers)
}

func (r *Registry) listOnline(byID map[string]*Entry) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(byID))
	for _, entry := range byID {
		if entry.Status == StatusOnline {
			entries = append(entries, *entry)
		}
	}
	return entries
}

// MarkProducerOffline flips a producer to offline without removing it.
// The entry stays so a heartbeat-timeout scan and a late disconnect both
// resolve the same client.
func (r *Registry) MarkProducerOffline(clientID string) bool {
	return r.markOffline(r.producers, clientID)
}

// MarkConsumerOffline flips a consumer to offline without removing it.
func (r *Registry) MarkConsumerOffline(clientID string) bool {
	return r.markOffline(r.consumers, clientID)
}

func (r *Registry) markOffline(byID map[string]*Entry, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := byID[clientID]
	if !ok {
		return false
	}
	entry.Status = StatusOffline
	return true
}

// RefreshProducer sets lastSeenAt to now and status to online.
func (r *Registry) RefreshProducer(clientID string) bool {
	return r.refresh(r.producers, clientID)
}

// RefreshConsumer sets lastSeenAt to now and status to online.
func (r *Registry) RefreshConsumer(clientID string) bool {
	return r.refresh(r.consumers, clientID)
}

func (r *Registry) refresh(byID map[string]*Entry, clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := byID[clientID]
	if !ok {
		return false
	}
	entry.LastSeenAt = r.now()
	entry.Status = StatusOnline
	return true
}

// IsProducerOnline reports whether clientID is registered and online.
func (r *Registry) IsProducerOnline(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.producers[clientID]
	return ok && entry.Status == StatusOnline
}

// IsConsumerOnline reports whether clientID is registered and online.
func (r *Registry) IsConsumerOnline(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.consumers[clientID]
	return ok && entry.Status == StatusOnline
}

// Counts returns the number of online producers and consumers.
func (r *Registry) Counts() (producers, consumers int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.producers {
		if entry.Status == StatusOnline {
			producers++
		}
	}
	for _, entry := range r.consumers {
		if entry.Status == StatusOnline {
			consumers++
		}
	}
	return producers, consumers
}
