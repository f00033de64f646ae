package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHub_PublishToSubscribers(t *testing.T) {
	h := New()
	a := make(Client, 1)
	b := make(Client, 1)
	h.Subscribe(1, a)
	h.Subscribe(2, b)

	require.NoError(t, h.Publish(Event{Type: EventFriendRequest, Payload: map[string]uint{"from": 1}}, 2))

	select {
	case <-a:
		t.Fatal("user 1 must not receive the event")
	default:
	}

	msg := <-b
	var e struct {
		Type    string          `json:"type"`
		Payload map[string]uint `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &e))
	require.Equal(t, EventFriendRequest, e.Type)
	require.Equal(t, uint(1), e.Payload["from"])
}

func TestHub_SlowClientSkipped(t *testing.T) {
	h := New()
	c := make(Client, 1)
	h.Subscribe(1, c)

	require.NoError(t, h.Publish(Event{Type: EventLikeAdded}, 1))
	require.NoError(t, h.Publish(Event{Type: EventLikeRemoved}, 1))

	require.Len(t, c, 1)
}

func TestHub_Unsubscribe(t *testing.T) {
	h := New()
	c := make(Client, 1)
	h.Subscribe(7, c)
	require.Equal(t, 1, h.Subscribers(7))

	h.Unsubscribe(7, c)
	require.Zero(t, h.Subscribers(7))

	_, open := <-c
	require.False(t, open)

	// Unsubscribing twice is a no-op.
	h.Unsubscribe(7, c)
}
