// Package auth implements token issuance and verification for signaling
// clients using HMAC-SHA256 signed JWTs.
//
// TOKEN LIFECYCLE:
//
//  1. A kiosk or monitor station logs in with its provisioned credentials
//  2. GenerateToken creates a signed JWT carrying {client_id, role}
//  3. The client presents the token on the WebSocket handshake
//  4. Verify validates the token before any signaling message is dispatched
//  5. Expired or tampered tokens close the connection with AUTH_INVALID_TOKEN
//
// The broker treats the token as the single source of client identity: every
// forwarded or broadcast message carries the authenticated id from the token,
// never a client-supplied one.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/railwatch/broker/internal/presence"
)

// Identity is the authenticated result of token verification.
type Identity struct {
	ClientID string
	Role     presence.Role
}

// Claims is the JWT payload for signaling clients.
type Claims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies signaling tokens.
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	issuer        string
}

// NewJWTManager creates a manager with the given HMAC secret and token
// lifetime.
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		issuer:        "railwatch-broker",
	}
}

// GenerateToken creates a signed JWT for the given client.
func (m *JWTManager) GenerateToken(clientID string, role presence.Role) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, errors.New("clientId cannot be empty")
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("invalid role: %s", role)
	}

	now := time.Now()
	expiresAt := now.Add(m.tokenDuration)
	claims := Claims{
		ClientID: clientID,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token string and returns the authenticated identity.
//
// Rejects tokens signed with anything but HMAC (algorithm substitution),
// expired tokens, and tokens from a different issuer.
func (m *JWTManager) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, errors.New("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithIssuer(m.issuer))
	if err != nil {
		return Identity{}, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, errors.New("invalid token claims")
	}

	role := presence.Role(claims.Role)
	if claims.ClientID == "" || !role.Valid() {
		return Identity{}, errors.New("token missing client identity")
	}

	return Identity{ClientID: claims.ClientID, Role: role}, nil
}
