package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterProducer_Success(t *testing.T) {
	r := NewRegistry()

	entry, err := r.RegisterProducer("kiosk-1", "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "kiosk-1", entry.ClientID)
	assert.Equal(t, "conn-1", entry.Connection)
	assert.Equal(t, StatusOnline, entry.Status)
	assert.False(t, entry.RegisteredAt.IsZero())

	assert.True(t, r.IsProducerOnline("kiosk-1"))
}

func TestRegisterProducer_EmptyArgs(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("", "conn-1")
	assert.Error(t, err)

	_, err = r.RegisterProducer("kiosk-1", "")
	assert.Error(t, err)
}

func TestRegisterProducer_LastWriterWins(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("kiosk-1", "conn-old")
	require.NoError(t, err)

	entry, err := r.RegisterProducer("kiosk-1", "conn-new")
	require.NoError(t, err)
	assert.Equal(t, "conn-new", entry.Connection)

	// The stale connection index must be gone.
	_, ok := r.LookupProducerByConnection("conn-old")
	assert.False(t, ok)

	found, ok := r.LookupProducerByConnection("conn-new")
	require.True(t, ok)
	assert.Equal(t, "kiosk-1", found.ClientID)
}

func TestRegisterProducer_ConnectionReuse(t *testing.T) {
	r := NewRegistry()

	// Same connection claiming a new identity evicts the old one.
	_, err := r.RegisterProducer("kiosk-1", "conn-1")
	require.NoError(t, err)
	_, err = r.RegisterProducer("kiosk-2", "conn-1")
	require.NoError(t, err)

	_, ok := r.LookupProducer("kiosk-1")
	assert.False(t, ok)
	found, ok := r.LookupProducerByConnection("conn-1")
	require.True(t, ok)
	assert.Equal(t, "kiosk-2", found.ClientID)
}

func TestProducerConsumerNamespacesDisjoint(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("station", "conn-p")
	require.NoError(t, err)
	_, err = r.RegisterConsumer("station", "conn-c")
	require.NoError(t, err)

	p, ok := r.LookupProducer("station")
	require.True(t, ok)
	c, ok := r.LookupConsumer("station")
	require.True(t, ok)
	assert.Equal(t, "conn-p", p.Connection)
	assert.Equal(t, "conn-c", c.Connection)
}

func TestRemoveProducer(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("kiosk-1", "conn-1")
	require.NoError(t, err)

	assert.True(t, r.RemoveProducer("kiosk-1"))
	assert.False(t, r.RemoveProducer("kiosk-1"))

	_, ok := r.LookupProducer("kiosk-1")
	assert.False(t, ok)
	_, ok = r.LookupProducerByConnection("conn-1")
	assert.False(t, ok)
}

func TestMarkProducerOffline(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("kiosk-1", "conn-1")
	require.NoError(t, err)

	assert.True(t, r.MarkProducerOffline("kiosk-1"))
	assert.False(t, r.IsProducerOnline("kiosk-1"))

	// The entry is still present for the disconnect path to resolve.
	entry, ok := r.LookupProducer("kiosk-1")
	require.True(t, ok)
	assert.Equal(t, StatusOffline, entry.Status)

	assert.Empty(t, r.ListOnlineProducers())
}

func TestRefreshProducer(t *testing.T) {
	r := NewRegistry()
	base := time.Now()
	r.now = func() time.Time { return base }

	_, err := r.RegisterProducer("kiosk-1", "conn-1")
	require.NoError(t, err)
	r.MarkProducerOffline("kiosk-1")

	r.now = func() time.Time { return base.Add(time.Minute) }
	assert.True(t, r.RefreshProducer("kiosk-1"))

	entry, ok := r.LookupProducer("kiosk-1")
	require.True(t, ok)
	assert.Equal(t, StatusOnline, entry.Status)
	assert.Equal(t, base.Add(time.Minute), entry.LastSeenAt)

	assert.False(t, r.RefreshProducer("unknown"))
}

func TestListOnlineProducers(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"k1", "k2", "k3"} {
		_, err := r.RegisterProducer(id, "conn-"+id)
		require.NoError(t, err)
	}
	r.MarkProducerOffline("k2")

	online := r.ListOnlineProducers()
	assert.Len(t, online, 2)
	ids := map[string]bool{}
	for _, e := range online {
		ids[e.ClientID] = true
	}
	assert.True(t, ids["k1"])
	assert.True(t, ids["k3"])
}

func TestReadsReturnCopies(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("kiosk-1", "conn-1")
	require.NoError(t, err)

	entry, ok := r.LookupProducer("kiosk-1")
	require.True(t, ok)
	entry.Status = StatusOffline

	// Mutating the returned copy must not touch the registry's record.
	assert.True(t, r.IsProducerOnline("kiosk-1"))
}

func TestCounts(t *testing.T) {
	r := NewRegistry()

	_, err := r.RegisterProducer("k1", "cp1")
	require.NoError(t, err)
	_, err = r.RegisterConsumer("m1", "cc1")
	require.NoError(t, err)
	_, err = r.RegisterConsumer("m2", "cc2")
	require.NoError(t, err)
	r.MarkConsumerOffline("m2")

	producers, consumers := r.Counts()
	assert.Equal(t, 1, producers)
	assert.Equal(t, 1, consumers)
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleProducer.Valid())
	assert.True(t, RoleConsumer.Valid())
	assert.False(t, Role("operator").Valid())
	assert.False(t, Role("").Valid())
}
