package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types pushed to connected staff clients.
const (
	EventCallWaiter   = "call_waiter"
	EventOrderCreated = "order_created"
)

// Event is a notification broadcast to all connected staff devices.
type Event struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	TableNumber  int32     `json:"table_number"`
	CustomerName string    `json:"customer_name,omitempty"`
	OrderID      string    `json:"order_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewEvent builds an event with a fresh id and timestamp.
func NewEvent(eventType string, tableNumber int32) Event {
	return Event{
		ID:          uuid.New(),
		Type:        eventType,
		TableNumber: tableNumber,
		CreatedAt:   time.Now(),
	}
}

// Hub maintains the set of active clients and broadcasts notifications to
// them. There is one hub for the whole restaurant; every connected staff
// device sees every event.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Event

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues an event for delivery to every connected client.
// Fire-and-forget: delivery is best effort and never blocks the caller
// beyond the channel buffer.
func (h *Hub) Broadcast(event Event) {
	h.broadcast <- event
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
