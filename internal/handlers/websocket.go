// Package handlers provides the HTTP surface of the RailWatch broker.
// This file implements the WebSocket handler for signaling connections.
//
// CONNECTION LIFECYCLE:
//  1. Client obtains a token from POST /api/v1/auth/login
//  2. Client sends HTTP GET to /ws?token=<jwt>
//  3. Handler verifies the token BEFORE upgrading; rejection is an HTTP 401
//     and no signaling message is ever dispatched
//  4. HTTP connection upgraded to WebSocket
//  5. Connection (now CONNECTED, identity fixed by the token) is added to
//     the hub; read and write pumps start
//  6. Client sends register-<role> to become REGISTERED
//  7. On disconnect, the controller runs cascading cleanup
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/railwatch/broker/internal/auth"
	"github.com/railwatch/broker/internal/broker"
	"github.com/railwatch/broker/internal/logger"
)

// WebSocketHandler upgrades signaling connections.
type WebSocketHandler struct {
	hub        *broker.Hub
	controller *broker.Controller
	jwtManager *auth.JWTManager
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler creates the signaling connection handler.
// corsOrigin restricts the allowed handshake Origin; "*" allows any.
func NewWebSocketHandler(hub *broker.Hub, controller *broker.Controller, jwtManager *auth.JWTManager, corsOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		controller: controller,
		jwtManager: jwtManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if corsOrigin == "*" {
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || origin == corsOrigin
			},
		},
	}
}

// RegisterRoutes registers the signaling route.
func (h *WebSocketHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ws", h.HandleConnection)
}

// HandleConnection authenticates the handshake and starts the connection
// state machine.
//
// The token comes from the `token` query parameter or an
// `Authorization: Bearer` header.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	identity, err := h.jwtManager.Verify(token)
	if err != nil {
		logger.Security().Warn().Err(err).Msg("Rejected signaling handshake")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "AUTH_INVALID_TOKEN",
			"message": "Invalid or missing auth token",
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Broker().Warn().Err(err).
			Str("clientId", identity.ClientID).
			Msg("Failed to upgrade connection")
		return
	}

	client := broker.NewClient(uuid.NewString(), identity.ClientID, identity.Role, conn)
	h.hub.Add(client)

	logger.Broker().Info().
		Str("clientId", identity.ClientID).
		Str("role", string(identity.Role)).
		Str("connection", client.ID).
		Msg("Signaling connection established")

	client.Start(h.controller)
}
