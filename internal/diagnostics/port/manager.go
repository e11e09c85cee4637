package port

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/mirzahilmi/lora-orion-bridge/internal/ingest"
	"github.com/rs/zerolog/log"
)

// Hub fans cycle reports out to every connected websocket client.
type Hub struct {
	sync.RWMutex

	// Registered clients.
	clients map[*Client]bool

	// Encoded reports waiting to be broadcast.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

func (h *Hub) Clients() int {
	h.RLock()
	defer h.RUnlock()
	return len(h.clients)
}

// Observe never blocks the state machine; reports are dropped when the hub lags.
func (h *Hub) Observe(_ context.Context, report ingest.Report) {
	message, err := json.Marshal(report)
	if err != nil {
		log.Error().Err(err).Msg("diagnostics: cannot encode report")
		return
	}
	select {
	case h.broadcast <- message:
	default:
		log.Warn().Str("cycle", report.CycleId).Msg("diagnostics: hub busy, report dropped")
	}
}

func (h *Hub) run(ctx context.Context) {
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case client := <-h.register:
			func() {
				h.Lock()
				defer h.Unlock()
				h.clients[client] = true
			}()
		case client := <-h.unregister:
			func() {
				h.Lock()
				defer h.Unlock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					close(client.send)
				}
			}()
		case message := <-h.broadcast:
			func() {
				h.Lock()
				defer h.Unlock()
				for client := range h.clients {
					select {
					case client.send <- message:
					default:
						close(client.send)
						delete(h.clients, client)
					}
				}
			}()
		}
	}

	h.Lock()
	defer h.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
