package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession_Success(t *testing.T) {
	r := NewRegistry()

	s, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "kiosk-1", s.ProducerID)
	assert.Equal(t, "monitor-1", s.ConsumerID)
	assert.Equal(t, "conn-1", s.ConsumerConnection)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, s.StartedAt, s.LastActivityAt)

	assert.True(t, r.HasActive("kiosk-1"))
}

func TestCreateSession_Exclusive(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)

	_, err = r.CreateSession("kiosk-1", "monitor-2", "conn-2")
	require.Error(t, err)
	exists, ok := err.(*ErrSessionExists)
	require.True(t, ok)
	assert.Equal(t, "kiosk-1", exists.ProducerID)
	assert.Equal(t, "monitor-1", exists.ConsumerID)

	// The original claim is untouched.
	s, ok := r.GetSession("kiosk-1")
	require.True(t, ok)
	assert.Equal(t, "monitor-1", s.ConsumerID)
}

func TestCreateSession_ExclusiveUnderContention(t *testing.T) {
	r := NewRegistry()

	const attempts = 50
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.CreateSession("kiosk-1", "monitor", "conn")
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, r.ActiveCount())
}

func TestEndSession_Idempotent(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)

	s, ok := r.EndSession("kiosk-1")
	require.True(t, ok)
	assert.Equal(t, StatusEnded, s.Status)

	_, ok = r.EndSession("kiosk-1")
	assert.False(t, ok)
	assert.False(t, r.HasActive("kiosk-1"))
}

func TestEndByConsumerConnection(t *testing.T) {
	r := NewRegistry()

	// One consumer connection holding sessions on two distinct producers.
	_, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)
	_, err = r.CreateSession("kiosk-2", "monitor-1", "conn-1")
	require.NoError(t, err)
	_, err = r.CreateSession("kiosk-3", "monitor-2", "conn-2")
	require.NoError(t, err)

	ended := r.EndByConsumerConnection("conn-1")
	assert.Len(t, ended, 2)
	assert.False(t, r.HasActive("kiosk-1"))
	assert.False(t, r.HasActive("kiosk-2"))
	assert.True(t, r.HasActive("kiosk-3"))

	assert.Empty(t, r.EndByConsumerConnection("conn-1"))
}

func TestValidateOwnership(t *testing.T) {
	r := NewRegistry()

	_, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)

	assert.True(t, r.ValidateOwnership("kiosk-1", "conn-1"))
	assert.False(t, r.ValidateOwnership("kiosk-1", "conn-2"))
	assert.False(t, r.ValidateOwnership("kiosk-2", "conn-1"))
}

func TestRefreshActivity(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	r.now = func() time.Time { return base }

	_, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(time.Minute) }
	assert.True(t, r.RefreshActivity("kiosk-1"))

	s, ok := r.GetSession("kiosk-1")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), s.LastActivityAt)

	assert.False(t, r.RefreshActivity("kiosk-2"))
}

func TestRefreshActivity_Monotonic(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	r.now = func() time.Time { return base }

	_, err := r.CreateSession("kiosk-1", "monitor-1", "conn-1")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(time.Minute) }
	require.True(t, r.RefreshActivity("kiosk-1"))

	// A clock step backwards must not move the watermark back.
	r.now = func() time.Time { return base.Add(30 * time.Second) }
	require.True(t, r.RefreshActivity("kiosk-1"))

	s, ok := r.GetSession("kiosk-1")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), s.LastActivityAt)
}

func TestScanTimedOut(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	r.now = func() time.Time { return base }

	_, err := r.CreateSession("kiosk-stale", "monitor-1", "conn-1")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(3 * time.Minute) }
	_, err = r.CreateSession("kiosk-fresh", "monitor-2", "conn-2")
	require.NoError(t, err)

	r.now = func() time.Time { return base.Add(6 * time.Minute) }
	stale := r.ScanTimedOut(5 * time.Minute)
	require.Len(t, stale, 1)
	assert.Equal(t, "kiosk-stale", stale[0].ProducerID)

	// Pure read: nothing was ended.
	assert.True(t, r.HasActive("kiosk-stale"))
	assert.True(t, r.HasActive("kiosk-fresh"))
}
