package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/railwatch/broker/internal/cache"
	"github.com/railwatch/broker/internal/config"
	brokererrors "github.com/railwatch/broker/internal/errors"
	"github.com/railwatch/broker/internal/events"
	"github.com/railwatch/broker/internal/liveness"
	"github.com/railwatch/broker/internal/logger"
	"github.com/railwatch/broker/internal/presence"
	"github.com/railwatch/broker/internal/ratelimit"
	"github.com/railwatch/broker/internal/session"
)

// mirrorTTL bounds how stale the Redis state mirror can get if the broker
// dies without cleanup.
const mirrorTTL = 10 * time.Minute

// Controller validates and routes every inbound signaling message.
//
// It is the only mutator of the presence, session, rate limit, and heartbeat
// registries. Dispatch runs on each connection's readPump, so messages from
// one connection are handled strictly in arrival order while distinct
// connections proceed concurrently; the registries serialize the shared
// state underneath.
type Controller struct {
	hub        *Hub
	presence   *presence.Registry
	sessions   *session.Registry
	limiter    *ratelimit.Limiter
	heartbeats *liveness.Tracker
	publisher  *events.Publisher
	mirror     *cache.Cache
	cfg        *config.Config

	scheduler *cron.Cron
}

// NewController wires the controller over its registries and collaborators.
func NewController(
	hub *Hub,
	presenceReg *presence.Registry,
	sessionReg *session.Registry,
	limiter *ratelimit.Limiter,
	heartbeats *liveness.Tracker,
	publisher *events.Publisher,
	mirror *cache.Cache,
	cfg *config.Config,
) *Controller {
	return &Controller{
		hub:        hub,
		presence:   presenceReg,
		sessions:   sessionReg,
		limiter:    limiter,
		heartbeats: heartbeats,
		publisher:  publisher,
		mirror:     mirror,
		cfg:        cfg,
	}
}

// Dispatch routes one inbound message. Every failure is reported to the
// sender only; peers never observe another client's errors.
func (ctl *Controller) Dispatch(c *Client, env Envelope) {
	switch env.Type {
	case MsgRegisterProducer:
		ctl.handleRegister(c, presence.RoleProducer)
	case MsgRegisterConsumer:
		ctl.handleRegister(c, presence.RoleConsumer)
	case MsgHeartbeatPing:
		ctl.handleHeartbeat(c)
	case MsgStartMonitoring:
		ctl.handleStartMonitoring(c, env.Data)
	case MsgStopMonitoring:
		ctl.handleStopMonitoring(c, env.Data)
	case MsgOffer, MsgAnswer, MsgIceCandidate:
		ctl.handleSignal(c, env.Type, env.Data)
	case MsgCrewSignOn, MsgCrewSignOff:
		ctl.handleCrewEvent(c, env.Type, env.Data)
	default:
		c.SendError(brokererrors.InvalidRequest(fmt.Sprintf("Unknown message type: %s", env.Type)))
	}
}

// requireRegistered gates every post-registration message.
func (ctl *Controller) requireRegistered(c *Client) bool {
	if !c.Registered() {
		c.SendError(brokererrors.ClientNotRegistered())
		return false
	}
	return true
}

// handleRegister processes register-producer / register-consumer.
func (ctl *Controller) handleRegister(c *Client, claimed presence.Role) {
	if c.Role != claimed {
		c.SendError(brokererrors.AuthInvalidRole(
			fmt.Sprintf("Authenticated role %s cannot register as %s", c.Role, claimed)))
		return
	}

	now := nowMs()
	switch claimed {
	case presence.RoleProducer:
		entry, err := ctl.presence.RegisterProducer(c.ClientID, c.ID)
		if err != nil {
			c.SendError(brokererrors.InvalidRequest(err.Error()))
			return
		}
		c.markRegistered()
		ctl.hub.JoinGroup(GroupProducers, c)
		ctl.mirrorPresence(cache.ProducerKey(c.ClientID), entry)

		ctl.hub.BroadcastToGroup(GroupConsumers, MsgProducerOnline, producerOnlinePayload{
			ProducerID: c.ClientID,
			Timestamp:  now,
		})
		ctl.publisher.Publish(events.SubjectProducerOnline, events.ProducerPresenceEvent{
			EventID:    uuid.NewString(),
			Timestamp:  time.Now(),
			ProducerID: c.ClientID,
		})

		if err := c.Send(MsgProducerRegistered, producerRegisteredPayload{
			ProducerID: c.ClientID,
			Timestamp:  now,
		}); err != nil {
			logger.Broker().Warn().Err(err).Str("clientId", c.ClientID).Msg("Failed to confirm registration")
		}

		logger.Broker().Info().
			Str("producerId", c.ClientID).
			Str("connection", c.ID).
			Msg("Producer registered")

	case presence.RoleConsumer:
		entry, err := ctl.presence.RegisterConsumer(c.ClientID, c.ID)
		if err != nil {
			c.SendError(brokererrors.InvalidRequest(err.Error()))
			return
		}
		c.markRegistered()
		ctl.hub.JoinGroup(GroupConsumers, c)
		ctl.mirrorPresence(cache.ConsumerKey(c.ClientID), entry)

		online := ctl.presence.ListOnlineProducers()
		snapshot := make([]onlineProducer, 0, len(online))
		for _, p := range online {
			snapshot = append(snapshot, onlineProducer{
				ProducerID:  p.ClientID,
				ConnectedAt: p.RegisteredAt.UnixMilli(),
			})
		}

		if err := c.Send(MsgConsumerRegistered, consumerRegisteredPayload{
			ConsumerID:      c.ClientID,
			OnlineProducers: snapshot,
			Timestamp:       now,
		}); err != nil {
			logger.Broker().Warn().Err(err).Str("clientId", c.ClientID).Msg("Failed to confirm registration")
		}

		logger.Broker().Info().
			Str("consumerId", c.ClientID).
			Str("connection", c.ID).
			Int("onlineProducers", len(snapshot)).
			Msg("Consumer registered")
	}
}

// handleHeartbeat processes heartbeat-ping from producers.
func (ctl *Controller) handleHeartbeat(c *Client) {
	if !ctl.requireRegistered(c) {
		return
	}
	if c.Role != presence.RoleProducer {
		c.SendError(brokererrors.OperationNotAllowed("Only producers send heartbeats"))
		return
	}

	ping := ctl.heartbeats.RecordPing(c.ClientID)
	ctl.presence.RefreshProducer(c.ClientID)

	c.Send(MsgHeartbeatPong, heartbeatPongPayload{Timestamp: ping.Timestamp.UnixMilli()})
}

// handleStartMonitoring processes a consumer's claim on a producer.
// Checks run in order; the first failure wins.
func (ctl *Controller) handleStartMonitoring(c *Client, data json.RawMessage) {
	if !ctl.requireRegistered(c) {
		return
	}
	if c.Role != presence.RoleConsumer {
		c.SendError(brokererrors.OperationNotAllowed("Only consumers start monitoring"))
		return
	}

	var req monitoringRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ProducerID == "" {
		c.SendError(brokererrors.InvalidRequest("producerId is required"))
		return
	}

	if !ctl.presence.IsProducerOnline(req.ProducerID) {
		c.SendError(brokererrors.SessionProducerOffline(req.ProducerID))
		return
	}

	// Idempotent start: re-claiming an owned session refreshes it.
	if existing, ok := ctl.sessions.GetSession(req.ProducerID); ok {
		if existing.ConsumerConnection == c.ID {
			ctl.sessions.RefreshActivity(req.ProducerID)
			c.Send(MsgMonitoringStarted, monitoringStartedPayload{
				ProducerID: req.ProducerID,
				SessionID:  req.ProducerID,
				Timestamp:  nowMs(),
			})
			return
		}
		c.SendError(brokererrors.SessionAlreadyExists(req.ProducerID, existing.ConsumerID))
		return
	}

	s, err := ctl.sessions.CreateSession(req.ProducerID, c.ClientID, c.ID)
	if err != nil {
		// Lost the race with another consumer between check and create.
		if exists, ok := err.(*session.ErrSessionExists); ok {
			c.SendError(brokererrors.SessionAlreadyExists(req.ProducerID, exists.ConsumerID))
			return
		}
		c.SendError(brokererrors.Internal("Failed to create session"))
		return
	}

	ctl.mirrorSession(s)
	ctl.publisher.Publish(events.SubjectSessionStarted, events.SessionEvent{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		ProducerID: s.ProducerID,
		ConsumerID: s.ConsumerID,
	})

	c.Send(MsgMonitoringStarted, monitoringStartedPayload{
		ProducerID: s.ProducerID,
		SessionID:  s.ProducerID,
		StartedAt:  s.StartedAt.UnixMilli(),
		Timestamp:  nowMs(),
	})

	logger.Session().Info().
		Str("producerId", s.ProducerID).
		Str("consumerId", s.ConsumerID).
		Msg("Monitoring session started")
}

// handleStopMonitoring releases a consumer's claim.
func (ctl *Controller) handleStopMonitoring(c *Client, data json.RawMessage) {
	if !ctl.requireRegistered(c) {
		return
	}
	if c.Role != presence.RoleConsumer {
		c.SendError(brokererrors.OperationNotAllowed("Only consumers stop monitoring"))
		return
	}

	var req monitoringRequest
	if err := json.Unmarshal(data, &req); err != nil || req.ProducerID == "" {
		c.SendError(brokererrors.InvalidRequest("producerId is required"))
		return
	}

	if !ctl.sessions.HasActive(req.ProducerID) {
		c.SendError(brokererrors.SessionNotFound(req.ProducerID))
		return
	}
	if !ctl.sessions.ValidateOwnership(req.ProducerID, c.ID) {
		c.SendError(brokererrors.SessionNotAuthorized(req.ProducerID))
		return
	}

	s, ok := ctl.sessions.EndSession(req.ProducerID)
	if !ok {
		c.SendError(brokererrors.SessionNotFound(req.ProducerID))
		return
	}

	ctl.unmirrorSession(s.ProducerID)
	ctl.publisher.Publish(events.SubjectSessionEnded, events.SessionEvent{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		ProducerID: s.ProducerID,
		ConsumerID: s.ConsumerID,
		Reason:     ReasonStopped,
	})

	// No broadcast on a normal stop: the producer observes the peer
	// connection closing directly.
	c.Send(MsgMonitoringStopped, monitoringStoppedPayload{
		ProducerID: req.ProducerID,
		Timestamp:  nowMs(),
	})

	logger.Session().Info().
		Str("producerId", s.ProducerID).
		Str("consumerId", s.ConsumerID).
		Msg("Monitoring session stopped")
}

// handleSignal runs the forwarding pipeline for offer, answer, and
// ice-candidate messages.
func (ctl *Controller) handleSignal(c *Client, kind string, data json.RawMessage) {
	if !ctl.requireRegistered(c) {
		return
	}

	// 1. Shape check.
	var payload signalPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.SendError(brokererrors.SignalingMissingData("Malformed signaling payload"))
		return
	}
	signal := payload.field(kind)
	if payload.TargetID == "" || len(signal) == 0 || string(signal) == "null" {
		c.SendError(brokererrors.SignalingMissingData(
			fmt.Sprintf("targetId and %s are required", signalFieldName(kind))))
		return
	}

	// 2. Rate limit.
	verdict := ctl.limiter.Check(c.ClientID, kind)
	if !verdict.Allowed {
		c.SendError(brokererrors.RateLimitExceeded(kind, verdict.Current, verdict.Limit, verdict.ResetAt.UnixMilli()))
		return
	}

	// 3. Target lookup: producer index first, then consumer.
	var targetRole presence.Role
	target, ok := ctl.presence.LookupProducer(payload.TargetID)
	if ok {
		targetRole = presence.RoleProducer
	} else {
		target, ok = ctl.presence.LookupConsumer(payload.TargetID)
		targetRole = presence.RoleConsumer
	}
	if !ok {
		c.SendError(brokererrors.SignalingInvalidTarget(payload.TargetID))
		return
	}

	// 4. Pairing: signaling only crosses the producer/consumer edge.
	if targetRole == c.Role {
		c.SendError(brokererrors.SignalingInvalidPairing())
		return
	}

	// 5. Session derivation.
	producerID := c.ClientID
	if c.Role == presence.RoleConsumer {
		producerID = payload.TargetID
	}
	s, ok := ctl.sessions.GetSession(producerID)
	if !ok {
		c.SendError(brokererrors.SignalingNoSession(producerID))
		return
	}

	// 6. Ownership.
	if c.Role == presence.RoleConsumer {
		if s.ConsumerConnection != c.ID {
			c.SendError(brokererrors.SignalingUnauthorizedSender())
			return
		}
	} else if s.ProducerID != c.ClientID {
		c.SendError(brokererrors.SignalingUnauthorizedSender())
		return
	}

	// 7. Activity refresh.
	ctl.sessions.RefreshActivity(producerID)

	// 8. Deliver to the target's current connection. The handle can vanish
	// between lookup and delivery; that is the sender's problem to retry,
	// never re-routed.
	forward := signalForward{FromID: c.ClientID}
	switch kind {
	case MsgOffer:
		forward.Offer = signal
	case MsgAnswer:
		forward.Answer = signal
	case MsgIceCandidate:
		forward.Candidate = signal
	}
	if err := ctl.hub.SendTo(target.Connection, kind, forward); err != nil {
		c.SendError(brokererrors.SignalingInvalidTarget(payload.TargetID))
		return
	}

	logger.Broker().Debug().
		Str("kind", kind).
		Str("fromId", c.ClientID).
		Str("targetId", payload.TargetID).
		Msg("Signaling message forwarded")
}

func signalFieldName(kind string) string {
	switch kind {
	case MsgOffer:
		return "offer"
	case MsgAnswer:
		return "answer"
	default:
		return "candidate"
	}
}

// handleCrewEvent processes crew-sign-on / crew-sign-off from producers.
func (ctl *Controller) handleCrewEvent(c *Client, kind string, data json.RawMessage) {
	if !ctl.requireRegistered(c) {
		return
	}
	if c.Role != presence.RoleProducer {
		c.SendError(brokererrors.CrewEventUnauthorized())
		return
	}

	var req crewRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.SendError(brokererrors.CrewEventInvalidPayload("Malformed crew event payload"))
		return
	}
	if req.EmployeeID == "" || req.Name == "" || req.ProducerID == "" {
		c.SendError(brokererrors.CrewEventInvalidPayload("employeeId, name and producerId are required"))
		return
	}

	verdict := ctl.limiter.Check(c.ClientID, kind)
	if !verdict.Allowed {
		c.SendError(brokererrors.RateLimitExceeded(kind, verdict.Current, verdict.Limit, verdict.ResetAt.UnixMilli()))
		return
	}

	now := nowMs()
	ackType := MsgCrewSignOnAck
	subject := events.SubjectCrewSignOn
	if kind == MsgCrewSignOff {
		ackType = MsgCrewSignOffAck
		subject = events.SubjectCrewSignOff
	}

	// Attribution is authoritative: the broadcast carries the authenticated
	// sender id regardless of what the payload claimed.
	ctl.hub.BroadcastToGroup(GroupConsumers, kind, crewBroadcastPayload{
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		Timestamp:  now,
		ProducerID: c.ClientID,
		EventType:  kind,
	})
	ctl.publisher.Publish(subject, events.CrewEvent{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		ProducerID: c.ClientID,
		EmployeeID: req.EmployeeID,
		Name:       req.Name,
		EventType:  kind,
	})

	c.Send(ackType, crewAckPayload{EmployeeID: req.EmployeeID, Timestamp: now})

	logger.Broker().Info().
		Str("producerId", c.ClientID).
		Str("employeeId", req.EmployeeID).
		Str("eventType", kind).
		Msg("Crew event broadcast")
}

// HandleDisconnect runs the cascading cleanup for a closed connection.
// Every step is best-effort and idempotent: one failing step never blocks
// the rest, so a single misbehaving client cannot corrupt presence for the
// fleet.
func (ctl *Controller) HandleDisconnect(c *Client) {
	defer ctl.hub.Remove(c.ID)

	if !c.Registered() {
		return
	}

	switch c.Role {
	case presence.RoleProducer:
		ctl.disconnectProducer(c)
	case presence.RoleConsumer:
		ctl.disconnectConsumer(c)
	}
}

func (ctl *Controller) disconnectProducer(c *Client) {
	// A newer connection may have replaced this registration
	// (last-writer-wins); only the current owner runs the cascade.
	entry, ok := ctl.presence.LookupProducer(c.ClientID)
	if !ok || entry.Connection != c.ID {
		return
	}

	ctl.guard("remove heartbeat", func() {
		ctl.heartbeats.Remove(c.ClientID)
	})
	ctl.guard("mark offline", func() {
		ctl.presence.MarkProducerOffline(c.ClientID)
	})

	var ended *session.Session
	ctl.guard("end session", func() {
		if s, ok := ctl.sessions.EndSession(c.ClientID); ok {
			ended = &s
		}
	})

	now := nowMs()
	ctl.guard("broadcast offline", func() {
		ctl.hub.BroadcastToGroup(GroupConsumers, MsgProducerOffline, producerOfflinePayload{
			ProducerID: c.ClientID,
			Reason:     ReasonDisconnect,
			Timestamp:  now,
		})
		ctl.publisher.Publish(events.SubjectProducerOffline, events.ProducerPresenceEvent{
			EventID:    uuid.NewString(),
			Timestamp:  time.Now(),
			ProducerID: c.ClientID,
			Reason:     ReasonDisconnect,
		})
	})

	if ended != nil {
		ctl.guard("broadcast session end", func() {
			ctl.notifySessionEnded(*ended, ReasonProducerDisconnect)
		})
	}

	ctl.guard("remove presence", func() {
		ctl.presence.RemoveProducer(c.ClientID)
		ctl.unmirrorPresence(cache.ProducerKey(c.ClientID))
	})
	ctl.guard("reset rate counters", func() {
		ctl.limiter.ResetAll(c.ClientID)
	})

	logger.Broker().Info().
		Str("producerId", c.ClientID).
		Bool("sessionEnded", ended != nil).
		Msg("Producer disconnected")
}

func (ctl *Controller) disconnectConsumer(c *Client) {
	// End every session this connection owned, across distinct producers.
	var ended []session.Session
	ctl.guard("end sessions", func() {
		ended = ctl.sessions.EndByConsumerConnection(c.ID)
	})

	for _, s := range ended {
		s := s
		ctl.guard("broadcast session end", func() {
			ctl.notifySessionEnded(s, ReasonConsumerDisconnect)
		})
	}

	ctl.guard("remove presence", func() {
		if entry, ok := ctl.presence.LookupConsumer(c.ClientID); ok && entry.Connection == c.ID {
			ctl.presence.RemoveConsumer(c.ClientID)
			ctl.unmirrorPresence(cache.ConsumerKey(c.ClientID))
		}
	})
	ctl.guard("reset rate counters", func() {
		ctl.limiter.ResetAll(c.ClientID)
	})

	logger.Broker().Info().
		Str("consumerId", c.ClientID).
		Int("sessionsEnded", len(ended)).
		Msg("Consumer disconnected")
}

// notifySessionEnded broadcasts and publishes a session teardown.
func (ctl *Controller) notifySessionEnded(s session.Session, reason string) {
	ctl.unmirrorSession(s.ProducerID)
	ctl.hub.BroadcastToGroup(GroupConsumers, MsgSessionEnded, sessionEndedPayload{
		ProducerID: s.ProducerID,
		ConsumerID: s.ConsumerID,
		Reason:     reason,
		Timestamp:  nowMs(),
	})
	ctl.publisher.Publish(events.SubjectSessionEnded, events.SessionEvent{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		ProducerID: s.ProducerID,
		ConsumerID: s.ConsumerID,
		Reason:     reason,
	})
}

// guard runs one cleanup step, logging and suppressing any panic.
func (ctl *Controller) guard(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Broker().Error().
				Str("step", step).
				Interface("panic", r).
				Msg("Cleanup step failed")
		}
	}()
	fn()
}

// StartScheduler runs the periodic liveness and session-timeout scans.
func (ctl *Controller) StartScheduler() {
	ctl.scheduler = cron.New()
	spec := fmt.Sprintf("@every %dms", ctl.cfg.ScanIntervalMs)

	ctl.scheduler.AddFunc(spec, ctl.ScanHeartbeats)
	ctl.scheduler.AddFunc(spec, ctl.ScanSessionTimeouts)
	ctl.scheduler.Start()

	logger.Broker().Info().
		Int64("scanIntervalMs", ctl.cfg.ScanIntervalMs).
		Msg("Timeout scheduler started")
}

// StopScheduler stops the periodic scans.
func (ctl *Controller) StopScheduler() {
	if ctl.scheduler != nil {
		ctl.scheduler.Stop()
	}
}

// ScanHeartbeats expires producers that stopped pinging and cascades their
// teardown to consumers.
func (ctl *Controller) ScanHeartbeats() {
	timeout := time.Duration(ctl.cfg.HeartbeatTimeoutMs) * time.Millisecond
	for _, producerID := range ctl.heartbeats.ScanExpired(timeout) {
		if !ctl.presence.IsProducerOnline(producerID) {
			continue
		}

		logger.Liveness().Warn().
			Str("producerId", producerID).
			Msg("Producer heartbeat timed out")

		ctl.presence.MarkProducerOffline(producerID)
		ended, hadSession := ctl.sessions.EndSession(producerID)

		now := nowMs()
		ctl.hub.BroadcastToGroup(GroupConsumers, MsgProducerOffline, producerOfflinePayload{
			ProducerID: producerID,
			Reason:     ReasonHeartbeatTimeout,
			Timestamp:  now,
		})
		ctl.publisher.Publish(events.SubjectProducerOffline, events.ProducerPresenceEvent{
			EventID:    uuid.NewString(),
			Timestamp:  time.Now(),
			ProducerID: producerID,
			Reason:     ReasonHeartbeatTimeout,
		})

		if hadSession {
			ctl.notifySessionEnded(ended, ReasonProducerTimeout)
		}
	}
}

// ScanSessionTimeouts ends sessions with no signaling traffic inside the
// inactivity window.
func (ctl *Controller) ScanSessionTimeouts() {
	threshold := time.Duration(ctl.cfg.SessionTimeoutMs) * time.Millisecond
	for _, stale := range ctl.sessions.ScanTimedOut(threshold) {
		ended, ok := ctl.sessions.EndSession(stale.ProducerID)
		if !ok {
			continue
		}

		logger.Session().Warn().
			Str("producerId", ended.ProducerID).
			Str("consumerId", ended.ConsumerID).
			Msg("Session timed out from inactivity")

		ctl.notifySessionEnded(ended, ReasonSessionTimeout)

		// Nudge the owning consumer directly if it is still connected.
		ctl.hub.SendTo(ended.ConsumerConnection, MsgSessionTimeout, sessionTimeoutPayload{
			ProducerID: ended.ProducerID,
			Timestamp:  nowMs(),
		})
	}
}

// PurgeMirror drops every mirrored entry. Called once at startup: the broker
// is the single-process authority, so state left behind by a previous run is
// stale by definition.
func (ctl *Controller) PurgeMirror(ctx context.Context) {
	if !ctl.mirror.IsEnabled() {
		return
	}
	for _, pattern := range []string{
		cache.ProducerPattern(),
		cache.ConsumerPattern(),
		cache.SessionPattern(),
	} {
		if err := ctl.mirror.DeletePattern(ctx, pattern); err != nil {
			logger.Broker().Warn().Err(err).Str("pattern", pattern).Msg("Mirror purge failed")
		}
	}
}

// mirrorPresence writes a presence entry to the state mirror, best-effort.
func (ctl *Controller) mirrorPresence(key string, entry presence.Entry) {
	if !ctl.mirror.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.mirror.Set(ctx, key, entry, mirrorTTL); err != nil {
		logger.Broker().Debug().Err(err).Str("key", key).Msg("Mirror write failed")
	}
}

func (ctl *Controller) unmirrorPresence(key string) {
	if !ctl.mirror.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.mirror.Delete(ctx, key); err != nil {
		logger.Broker().Debug().Err(err).Str("key", key).Msg("Mirror delete failed")
	}
}

func (ctl *Controller) mirrorSession(s session.Session) {
	if !ctl.mirror.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.mirror.Set(ctx, cache.SessionKey(s.ProducerID), s, mirrorTTL); err != nil {
		logger.Broker().Debug().Err(err).Str("producerId", s.ProducerID).Msg("Mirror write failed")
	}
}

func (ctl *Controller) unmirrorSession(producerID string) {
	if !ctl.mirror.IsEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ctl.mirror.Delete(ctx, cache.SessionKey(producerID)); err != nil {
		logger.Broker().Debug().Err(err).Str("producerId", producerID).Msg("Mirror delete failed")
	}
}
