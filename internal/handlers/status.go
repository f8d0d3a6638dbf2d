package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/railwatch/broker/internal/broker"
	"github.com/railwatch/broker/internal/cache"
	brokererrors "github.com/railwatch/broker/internal/errors"
	"github.com/railwatch/broker/internal/logger"
	"github.com/railwatch/broker/internal/presence"
	"github.com/railwatch/broker/internal/session"
)

// StatusHandler exposes broker health, occupancy, and session lookups.
type StatusHandler struct {
	hub      *broker.Hub
	presence *presence.Registry
	sessions *session.Registry
	mirror   *cache.Cache
}

// NewStatusHandler creates the status handler.
func NewStatusHandler(hub *broker.Hub, presenceReg *presence.Registry, sessionReg *session.Registry, mirror *cache.Cache) *StatusHandler {
	return &StatusHandler{
		hub:      hub,
		presence: presenceReg,
		sessions: sessionReg,
		mirror:   mirror,
	}
}

// RegisterRoutes registers health and status routes.
func (h *StatusHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)
	router.GET("/api/v1/status", h.Status)
	router.GET("/api/v1/sessions/:producerId", h.Session)
}

// Health is the liveness probe.
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports current occupancy.
func (h *StatusHandler) Status(c *gin.Context) {
	producers, consumers := h.presence.Counts()
	c.JSON(http.StatusOK, gin.H{
		"connections":     h.hub.ConnectionCount(),
		"onlineProducers": producers,
		"onlineConsumers": consumers,
		"activeSessions":  h.sessions.ActiveCount(),
	})
}

// sessionView is the REST representation of a monitoring session.
type sessionView struct {
	ProducerID     string `json:"producerId"`
	ConsumerID     string `json:"consumerId"`
	StartedAt      int64  `json:"startedAt"`
	LastActivityAt int64  `json:"lastActivityAt"`
	Status         string `json:"status"`
	// Source is "registry" for the in-process record or "mirror" when the
	// answer came from the Redis keyspace.
	Source string `json:"source"`
}

func toSessionView(s session.Session, source string) sessionView {
	return sessionView{
		ProducerID:     s.ProducerID,
		ConsumerID:     s.ConsumerID,
		StartedAt:      s.StartedAt.UnixMilli(),
		LastActivityAt: s.LastActivityAt.UnixMilli(),
		Status:         string(s.Status),
		Source:         source,
	}
}

// Session reports the active session on a producer. The in-process registry
// is authoritative; when it has no record the handler falls back to the
// Redis mirror, which in a shared-keyspace deployment can hold sessions
// owned by another broker instance.
func (h *StatusHandler) Session(c *gin.Context) {
	producerID := c.Param("producerId")

	if s, ok := h.sessions.GetSession(producerID); ok {
		c.JSON(http.StatusOK, toSessionView(s, "registry"))
		return
	}

	key := cache.SessionKey(producerID)
	if mirrored, err := h.mirror.Exists(c.Request.Context(), key); err == nil && mirrored {
		var s session.Session
		switch err := h.mirror.Get(c.Request.Context(), key, &s); {
		case err == nil:
			c.JSON(http.StatusOK, toSessionView(s, "mirror"))
			return
		case !errors.Is(err, cache.ErrNotMirrored):
			logger.HTTP().Warn().Err(err).Str("producerId", producerID).Msg("Mirror read failed")
		}
	}

	brokererrors.AbortWithError(c, brokererrors.SessionNotFound(producerID))
}
