package socket

import (
	"encoding/json"
	"time"

	"sesi/pkg/logger"
)

const (
	EventSaved     = "SAVED"     // Session created or updated
	EventPublished = "PUBLISHED" // Status moved to published
	EventDeleted   = "DELETED"   // Session removed
)

// Event is pushed to every open connection of a session's owner after a
// successful mutation, so other tabs can refresh their save indicators.
// No session content travels over the feed.
type Event struct {
	Type            string    `json:"type"`
	SessionID       string    `json:"sessionId"`
	Title           string    `json:"title,omitempty"`
	Status          string    `json:"status,omitempty"`
	LastAutoSavedAt time.Time `json:"lastAutoSavedAt,omitempty"`
}

type userEvent struct {
	UserID string
	Event  Event
}

// Hub fans lifecycle events out to the owner's connected clients. Rooms are
// keyed by user id; events never cross users.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	events     chan userEvent
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		events:     make(chan userEvent, 64),
	}
}

// Publish queues an event for a user's connections. It never blocks: when
// the hub is saturated the event is dropped, because a feed outage must not
// fail the save that produced it.
func (h *Hub) Publish(userID string, ev Event) {
	select {
	case h.events <- userEvent{UserID: userID, Event: ev}:
	default:
		logger.Sugar.Warnf("Event feed is saturated, dropping %s event for user %s", ev.Type, userID)
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Rooms[client.UserID] == nil {
				h.Rooms[client.UserID] = make(map[*Client]bool)
			}
			h.Rooms[client.UserID][client] = true

		case client := <-h.Unregister:
			if _, ok := h.Rooms[client.UserID][client]; ok {
				delete(h.Rooms[client.UserID], client)
				close(client.Send)
				if len(h.Rooms[client.UserID]) == 0 {
					delete(h.Rooms, client.UserID)
				}
			}

		case ev := <-h.events:
			clients := h.Rooms[ev.UserID]
			if len(clients) == 0 {
				continue
			}
			payload, err := json.Marshal(ev.Event)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling feed event: %v", err)
				continue
			}
			for client := range clients {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Client %s's send buffer is full. Dropping connection.", client.UserID)
					delete(clients, client)
					close(client.Send)
				}
			}
			if len(clients) == 0 {
				delete(h.Rooms, ev.UserID)
			}
		}
	}
}
