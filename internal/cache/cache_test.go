package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The disabled mirror must behave like an empty keyspace: writes vanish,
// reads miss, and nothing errors. The session read-back path depends on this.
func TestDisabledMirror_BehavesLikeEmptyKeyspace(t *testing.T) {
	c, err := NewCache(Config{Enabled: false})
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	assert.False(t, c.IsEnabled())

	require.NoError(t, c.Set(ctx, SessionKey("kiosk-1"), map[string]string{"a": "b"}, time.Minute))

	var target map[string]string
	err = c.Get(ctx, SessionKey("kiosk-1"), &target)
	assert.ErrorIs(t, err, ErrNotMirrored)

	mirrored, err := c.Exists(ctx, SessionKey("kiosk-1"))
	require.NoError(t, err)
	assert.False(t, mirrored)

	assert.NoError(t, c.Delete(ctx, SessionKey("kiosk-1")))
	assert.NoError(t, c.DeletePattern(ctx, SessionPattern()))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "railwatch:producer:kiosk-1", ProducerKey("kiosk-1"))
	assert.Equal(t, "railwatch:consumer:monitor-1", ConsumerKey("monitor-1"))
	assert.Equal(t, "railwatch:session:kiosk-1", SessionKey("kiosk-1"))
	assert.Equal(t, "railwatch:producer:*", ProducerPattern())
	assert.Equal(t, "railwatch:consumer:*", ConsumerPattern())
	assert.Equal(t, "railwatch:session:*", SessionPattern())
}
