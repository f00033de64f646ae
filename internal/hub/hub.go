package hub

import (
	"encoding/json"
	"sync"
)

// Event types published to users.
const (
	EventFriendRequest = "friend_request"
	EventFriendship    = "friendship"
	EventFriendRemoved = "friend_removed"
	EventLikeAdded     = "like_added"
	EventLikeRemoved   = "like_removed"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Client is one open event stream. The SSE handler reads from it until it is closed.
type Client chan []byte

// Hub fans events out to the streams each user has open.
type Hub struct {
	users map[uint]map[Client]bool
	mu    sync.RWMutex
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		users: make(map[uint]map[Client]bool),
	}
}

// Subscribe registers a stream for a user.
func (h *Hub) Subscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
}

// Unsubscribe removes a stream and closes it.
func (h *Hub) Unsubscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client)
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// Subscribers returns the number of open streams of a user.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Publish sends an event to every stream of the given users.
// A stream whose buffer is full misses the event.
func (h *Hub) Publish(event Event, userIDs ...uint) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var message []byte
	for _, id := range userIDs {
		clients, ok := h.users[id]
		if !ok {
			continue
		}
		if message == nil {
			var err error
			if message, err = json.Marshal(event); err != nil {
				return err
			}
		}
		for client := range clients {
			select {
			case client <- message:
			default:
			}
		}
	}
	return nil
}
