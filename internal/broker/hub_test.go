package broker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwatch/broker/internal/presence"
)

func TestHub_AddRemove(t *testing.T) {
	hub := NewHub()
	c := NewClient("conn-1", "kiosk-1", presence.RoleProducer, nil)

	hub.Add(c)
	assert.Equal(t, 1, hub.ConnectionCount())

	got, ok := hub.Get("conn-1")
	require.True(t, ok)
	assert.Same(t, c, got)

	hub.JoinGroup(GroupProducers, c)
	assert.Equal(t, 1, hub.GroupSize(GroupProducers))

	hub.Remove("conn-1")
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.Equal(t, 0, hub.GroupSize(GroupProducers))
	_, ok = hub.Get("conn-1")
	assert.False(t, ok)
}

func TestHub_SendTo(t *testing.T) {
	hub := NewHub()
	c := NewClient("conn-1", "kiosk-1", presence.RoleProducer, nil)
	hub.Add(c)

	require.NoError(t, hub.SendTo("conn-1", MsgHeartbeatPong, heartbeatPongPayload{Timestamp: 42}))

	frame := <-c.send
	var env Envelope
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, MsgHeartbeatPong, env.Type)

	assert.Error(t, hub.SendTo("conn-ghost", MsgHeartbeatPong, nil))
}

func TestHub_BroadcastToGroup(t *testing.T) {
	hub := NewHub()
	members := make([]*Client, 3)
	for i := range members {
		members[i] = NewClient("conn-"+string(rune('a'+i)), "monitor", presence.RoleConsumer, nil)
		hub.Add(members[i])
		hub.JoinGroup(GroupConsumers, members[i])
	}
	outsider := NewClient("conn-z", "kiosk-1", presence.RoleProducer, nil)
	hub.Add(outsider)
	hub.JoinGroup(GroupProducers, outsider)

	hub.BroadcastToGroup(GroupConsumers, MsgProducerOnline, producerOnlinePayload{ProducerID: "kiosk-1", Timestamp: 1})

	for _, m := range members {
		frame := <-m.send
		var env Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.Equal(t, MsgProducerOnline, env.Type)
	}
	select {
	case <-outsider.send:
		t.Fatal("broadcast leaked outside the group")
	default:
	}
}

func TestHub_BroadcastEvictsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := NewClient("conn-slow", "monitor-1", presence.RoleConsumer, nil)
	hub.Add(slow)
	hub.JoinGroup(GroupConsumers, slow)

	// Fill the slow client's outbound buffer.
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, slow.trySendFrame([]byte("{}")))
	}

	hub.BroadcastToGroup(GroupConsumers, MsgProducerOnline, producerOnlinePayload{ProducerID: "kiosk-1", Timestamp: 1})

	// The client was closed; later sends fail instead of blocking.
	assert.Error(t, slow.Send(MsgHeartbeatPong, nil))
}

func TestClient_SendAfterClose(t *testing.T) {
	c := NewClient("conn-1", "kiosk-1", presence.RoleProducer, nil)
	c.close()

	assert.Error(t, c.Send(MsgHeartbeatPong, heartbeatPongPayload{Timestamp: 1}))
	// close is idempotent
	c.close()
}
