package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter() (*Limiter, *time.Time) {
	l := NewLimiter(time.Minute, map[string]int{
		"offer":         30,
		"answer":        30,
		"ice-candidate": 60,
		"crew-sign-on":  10,
		"crew-sign-off": 10,
		"default":       60,
	})
	now := time.Now()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheck_AllowsUpToCeiling(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 1; i <= 10; i++ {
		v := l.Check("kiosk-1", "crew-sign-on")
		assert.True(t, v.Allowed)
		assert.Equal(t, i, v.Current)
		assert.Equal(t, 10, v.Limit)
	}

	v := l.Check("kiosk-1", "crew-sign-on")
	assert.False(t, v.Allowed)
	assert.Equal(t, 10, v.Current)
	assert.Equal(t, 10, v.Limit)
}

func TestCheck_ResetAtIsOldestPlusWindow(t *testing.T) {
	l, now := newTestLimiter()
	first := *now

	for i := 0; i < 10; i++ {
		require.True(t, l.Check("kiosk-1", "crew-sign-on").Allowed)
		*now = now.Add(time.Second)
	}

	v := l.Check("kiosk-1", "crew-sign-on")
	require.False(t, v.Allowed)
	assert.Equal(t, first.Add(time.Minute), v.ResetAt)
}

func TestCheck_WindowSlides(t *testing.T) {
	l, now := newTestLimiter()

	for i := 0; i < 10; i++ {
		require.True(t, l.Check("kiosk-1", "crew-sign-on").Allowed)
	}
	require.False(t, l.Check("kiosk-1", "crew-sign-on").Allowed)

	// After the window passes, the counter has drained.
	*now = now.Add(time.Minute + time.Millisecond)
	v := l.Check("kiosk-1", "crew-sign-on")
	assert.True(t, v.Allowed)
	assert.Equal(t, 1, v.Current)
}

func TestCheck_KindsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 10; i++ {
		require.True(t, l.Check("kiosk-1", "crew-sign-on").Allowed)
	}
	require.False(t, l.Check("kiosk-1", "crew-sign-on").Allowed)

	assert.True(t, l.Check("kiosk-1", "crew-sign-off").Allowed)
	assert.True(t, l.Check("kiosk-1", "offer").Allowed)
}

func TestCheck_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 10; i++ {
		require.True(t, l.Check("kiosk-1", "crew-sign-on").Allowed)
	}
	require.False(t, l.Check("kiosk-1", "crew-sign-on").Allowed)

	assert.True(t, l.Check("kiosk-2", "crew-sign-on").Allowed)
}

func TestCheck_UnknownKindUsesFallback(t *testing.T) {
	l, _ := newTestLimiter()

	v := l.Check("kiosk-1", "something-else")
	assert.True(t, v.Allowed)
	assert.Equal(t, 60, v.Limit)
}

func TestNewLimiter_MissingDefaultCeiling(t *testing.T) {
	l := NewLimiter(time.Minute, map[string]int{"offer": 5})

	v := l.Check("kiosk-1", "mystery")
	assert.True(t, v.Allowed)
	assert.Equal(t, 60, v.Limit)
}

func TestResetAll(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 10; i++ {
		require.True(t, l.Check("kiosk-1", "crew-sign-on").Allowed)
	}
	require.True(t, l.Check("kiosk-10", "offer").Allowed)

	l.ResetAll("kiosk-1")

	// kiosk-1 starts fresh; kiosk-10's counters survive (no prefix bleed).
	v := l.Check("kiosk-1", "crew-sign-on")
	assert.True(t, v.Allowed)
	assert.Equal(t, 1, v.Current)

	v = l.Check("kiosk-10", "offer")
	assert.Equal(t, 2, v.Current)
}
