package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/railwatch/broker/internal/config"
	"github.com/railwatch/broker/internal/logger"
	"github.com/railwatch/broker/internal/presence"
)

// Handler serves the token issuance endpoint.
type Handler struct {
	jwtManager *JWTManager
	// credentials maps clientId -> provisioned credential.
	credentials map[string]config.ClientCredential
	// provisionSecret, when set, lets any client without a per-client
	// credential obtain a token by presenting it. Used for fleet provisioning
	// before per-client credentials exist.
	provisionSecret string
}

// NewHandler creates a login handler from provisioned credentials.
func NewHandler(jwtManager *JWTManager, clients []config.ClientCredential, provisionSecret string) *Handler {
	credentials := make(map[string]config.ClientCredential, len(clients))
	for _, c := range clients {
		credentials[c.ClientID] = c
	}
	return &Handler{
		jwtManager:      jwtManager,
		credentials:     credentials,
		provisionSecret: provisionSecret,
	}
}

// RegisterRoutes registers the auth routes.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/auth/login", h.Login)
}

type loginRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ClientID  string `json:"clientId"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Login authenticates a client and issues a signaling token.
//
// POST /auth/login {clientId, role, secret}
//
// Provisioned clients authenticate against their bcrypt secret hash and must
// request their provisioned role. Without a per-client credential, the shared
// provision secret is accepted for any clientId.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_REQUEST",
			"message": "clientId, role and secret are required",
		})
		return
	}

	role := presence.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "AUTH_INVALID_ROLE",
			"message": "role must be producer or consumer",
		})
		return
	}

	if !h.authenticate(req.ClientID, string(role), req.Secret) {
		logger.Security().Warn().
			Str("clientId", req.ClientID).
			Str("role", req.Role).
			Msg("Login rejected")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "AUTH_INVALID_TOKEN",
			"message": "Invalid credentials",
		})
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.ClientID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "INTERNAL_ERROR",
			"message": "Failed to issue token",
		})
		return
	}

	logger.Security().Info().
		Str("clientId", req.ClientID).
		Str("role", req.Role).
		Time("expiresAt", expiresAt).
		Msg("Token issued")

	c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		ClientID:  req.ClientID,
		Role:      string(role),
		ExpiresAt: expiresAt.UnixMilli(),
	})
}

func (h *Handler) authenticate(clientID, role, secret string) bool {
	if cred, ok := h.credentials[clientID]; ok {
		if cred.Role != role {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)) == nil
	}
	if h.provisionSecret != "" {
		return subtle.ConstantTimeCompare([]byte(h.provisionSecret), []byte(secret)) == 1
	}
	return false
}

// HashSecret produces a bcrypt hash suitable for the clients config block.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
