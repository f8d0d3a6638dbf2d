package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwatch/broker/internal/config"
	"github.com/railwatch/broker/internal/presence"
)

const testSecret = "test-secret-key-at-least-256-bits-long!!"

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	token, expiresAt, err := m.GenerateToken("kiosk-1", presence.RoleProducer)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	identity, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "kiosk-1", identity.ClientID)
	assert.Equal(t, presence.RoleProducer, identity.Role)
}

func TestGenerateToken_InvalidInput(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	_, _, err := m.GenerateToken("", presence.RoleProducer)
	assert.Error(t, err)

	_, _, err = m.GenerateToken("kiosk-1", presence.Role("operator"))
	assert.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	m := NewJWTManager(testSecret, -time.Minute)

	token, _, err := m.GenerateToken("kiosk-1", presence.RoleProducer)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)
	other := NewJWTManager("a-completely-different-signing-secret!!!", time.Hour)

	token, _, err := other.GenerateToken("kiosk-1", presence.RoleProducer)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	m := NewJWTManager(testSecret, time.Hour)

	_, err := m.Verify("")
	assert.Error(t, err)

	_, err = m.Verify("not.a.jwt")
	assert.Error(t, err)
}

func TestAuthenticate_ProvisionedClient(t *testing.T) {
	hash, err := HashSecret("kiosk-secret")
	require.NoError(t, err)

	h := NewHandler(NewJWTManager(testSecret, time.Hour), []config.ClientCredential{
		{ClientID: "kiosk-1", Role: "producer", SecretHash: hash},
	}, "")

	assert.True(t, h.authenticate("kiosk-1", "producer", "kiosk-secret"))
	assert.False(t, h.authenticate("kiosk-1", "producer", "wrong"))
	// A provisioned client cannot claim another role.
	assert.False(t, h.authenticate("kiosk-1", "consumer", "kiosk-secret"))
	// Unknown client with no provision secret configured.
	assert.False(t, h.authenticate("kiosk-2", "producer", "kiosk-secret"))
}

func TestAuthenticate_ProvisionSecret(t *testing.T) {
	h := NewHandler(NewJWTManager(testSecret, time.Hour), nil, "fleet-secret")

	assert.True(t, h.authenticate("any-kiosk", "producer", "fleet-secret"))
	assert.False(t, h.authenticate("any-kiosk", "producer", "wrong"))
}
