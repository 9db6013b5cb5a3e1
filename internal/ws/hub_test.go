package ws

import (
	"io"
	"testing"

	"omnichan/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(logger.New(logger.Config{Level: "error", Output: io.Discard}))
}

func TestPublishDeliversToConnectedClient(t *testing.T) {
	hub := newTestHub()
	client := &Client{hub: hub, userID: 1, send: make(chan []byte, 1)}
	hub.register(client)

	hub.Publish(1, StreamEvent{Type: EventMessageReceived, ConversationID: 7})

	require.Len(t, client.send, 1)
	frame := <-client.send
	assert.Contains(t, string(frame), EventMessageReceived)
	assert.Equal(t, 1, hub.ConnectedClients())
}

func TestPublishIgnoresOtherAccounts(t *testing.T) {
	hub := newTestHub()
	client := &Client{hub: hub, userID: 1, send: make(chan []byte, 1)}
	hub.register(client)

	hub.Publish(2, StreamEvent{Type: EventMessageSent})

	assert.Empty(t, client.send)
}

// A stalled connection must be dropped on the first full buffer and never
// published to again; a second Publish used to hit its closed send channel.
func TestPublishDropsSlowClientWithoutPanic(t *testing.T) {
	hub := newTestHub()
	slow := &Client{hub: hub, userID: 1, send: make(chan []byte)} // no reader
	hub.register(slow)

	hub.Publish(1, StreamEvent{Type: EventMessageReceived})
	assert.Equal(t, 0, hub.ConnectedClients())

	assert.NotPanics(t, func() {
		hub.Publish(1, StreamEvent{Type: EventMessageReceived})
	})
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := newTestHub()
	client := &Client{hub: hub, userID: 1, send: make(chan []byte, 1)}
	hub.register(client)

	hub.unregister(client)
	hub.unregister(client)
	assert.Equal(t, 0, hub.ConnectedClients())
}
