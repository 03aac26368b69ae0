package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MessageType represents the type of WebSocket message.
type MessageType string

const (
	// MessageTypeAvailability announces a flight's new booked-seat
	// count after a committed booking or cancellation.
	MessageTypeAvailability MessageType = "availability"
)

// Message is a WebSocket message sent to clients watching a flight.
type Message struct {
	Type      MessageType `json:"type"`
	FID       int64       `json:"fid"`
	Booked    int         `json:"booked"`
	Capacity  int         `json:"capacity"`
	Timestamp int64       `json:"timestamp"`
}

// Hub manages WebSocket subscriptions per flight.
type Hub struct {
	clients    map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	mu         sync.RWMutex
	log        *logrus.Logger
}

// NewHub creates a new Hub. Call Run in a goroutine to start it.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		log:        log,
	}
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.fid] == nil {
				h.clients[client.fid] = make(map[*Client]bool)
			}
			h.clients[client.fid][client] = true
			h.mu.Unlock()
			h.log.WithField("fid", client.fid).Debug("ws client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.fid]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.fid)
					}
				}
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.log.WithError(err).Warn("ws marshal failed")
				continue
			}

			h.mu.RLock()
			clients := h.clients[message.FID]
			h.mu.RUnlock()

			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.mu.Lock()
					delete(h.clients[message.FID], client)
					close(client.send)
					h.mu.Unlock()
				}
			}
		}
	}
}

// BroadcastAvailability announces a flight's booked-seat count to every
// client watching that flight.
func (h *Hub) BroadcastAvailability(fid int64, booked, capacity int) {
	h.broadcast <- &Message{
		Type:      MessageTypeAvailability,
		FID:       fid,
		Booked:    booked,
		Capacity:  capacity,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ClientCount returns the number of clients watching a flight.
func (h *Hub) ClientCount(fid int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[fid])
}
