package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moogtchat/internal/common"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_SendToUser_NoConnections(t *testing.T) {
	hub := NewHub()
	err := hub.SendToUser("nobody", common.Event{Type: common.EventMessage})
	assert.NoError(t, err)
}

func TestHub_RegisterAndSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := &Client{ID: "c1", UserID: "user-a", hub: hub, send: make(chan []byte, 8)}
	hub.register <- client
	waitFor(t, func() bool { return hub.ConnectionCount("user-a") == 1 })

	event := common.Event{
		Type:    common.EventMessage,
		Payload: map[string]interface{}{"conversation_id": "conv-1"},
	}
	require.NoError(t, hub.SendToUser("user-a", event))

	select {
	case raw := <-client.send:
		var got common.Event
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, common.EventMessage, got.Type)
		assert.Equal(t, "conv-1", got.Payload["conversation_id"])
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}

	// other users see nothing
	require.NoError(t, hub.SendToUser("user-b", event))
	assert.Empty(t, client.send)
}

func TestHub_MultipleConnectionsPerUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	first := &Client{ID: "c1", UserID: "user-a", hub: hub, send: make(chan []byte, 8)}
	second := &Client{ID: "c2", UserID: "user-a", hub: hub, send: make(chan []byte, 8)}
	hub.register <- first
	hub.register <- second
	waitFor(t, func() bool { return hub.ConnectionCount("user-a") == 2 })

	require.NoError(t, hub.SendToUser("user-a", common.Event{Type: common.EventMessageRead}))
	waitFor(t, func() bool { return len(first.send) == 1 && len(second.send) == 1 })
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := &Client{ID: "c1", UserID: "user-a", hub: hub, send: make(chan []byte, 8)}
	hub.register <- client
	waitFor(t, func() bool { return hub.ConnectionCount("user-a") == 1 })

	hub.unregister <- client
	waitFor(t, func() bool { return hub.ConnectionCount("user-a") == 0 })

	// channel closed on unregister
	_, open := <-client.send
	assert.False(t, open)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	client := &Client{ID: "c1", UserID: "user-a", hub: hub, send: make(chan []byte, 1)}
	hub.register <- client
	waitFor(t, func() bool { return hub.ConnectionCount("user-a") == 1 })

	event := common.Event{Type: common.EventMessage}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.SendToUser("user-a", event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendToUser blocked on a slow client")
	}
	assert.Len(t, client.send, 1)
}
