package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Subscription filters which events a client receives. Zero-value fields
// mean "no filter" for that dimension, except OrganizationID which is
// always enforced for org-scoped principals.
type Subscription struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Tables         []string
}

func (s Subscription) matches(event Event) bool {
	// users row events are private to that principal
	if event.Table == TableUsers {
		return event.RowID == s.UserID
	}

	if s.OrganizationID != uuid.Nil && event.OrganizationID != s.OrganizationID {
		return false
	}

	if len(s.Tables) == 0 {
		return true
	}
	for _, table := range s.Tables {
		if table == event.Table {
			return true
		}
	}
	return false
}

// Client is one subscribed event consumer. Send is closed by the hub when
// the client is dropped (slow consumer or unregistered).
type Client struct {
	Sub  Subscription
	Send chan Event
}

// Hub fans change events out to subscribed clients, one goroutine, channel
// driven. Events for organization A are never delivered to a client bound
// to organization B.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a hub and starts its dispatch loop
func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}

	go hub.run()
	return hub
}

// Subscribe registers a new client for the given filter
func (h *Hub) Subscribe(sub Subscription) *Client {
	client := &Client{
		Sub:  sub,
		Send: make(chan Event, 256),
	}
	h.register <- client
	return client
}

// Unsubscribe removes a client and closes its event channel
func (h *Hub) Unsubscribe(client *Client) {
	h.unregister <- client
}

// Publish queues a change event for fan-out
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	h.broadcast <- event
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Debug().
				Str("org_id", client.Sub.OrganizationID.String()).
				Msg("realtime client subscribed")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.Sub.matches(event) {
					continue
				}
				select {
				case client.Send <- event:
				default:
					// Slow consumer, drop it rather than block the feed
					delete(h.clients, client)
					close(client.Send)
				}
			}
			h.mu.Unlock()
		}
	}
}
