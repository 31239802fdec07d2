package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/titanite07/TechVault/internal/domain"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans asset events out to every connected subscriber. A single
// goroutine owns the subscriber set.
type Hub struct {
	clients   map[Subscriber]struct{}
	register  chan Subscriber
	unreg     chan Subscriber
	broadcast chan []byte
	done      chan struct{}
	active    atomic.Int64
	log       *slog.Logger
}

// NewHub creates a Hub whose loop runs until ctx is cancelled.
func NewHub(ctx context.Context, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		clients:   make(map[Subscriber]struct{}),
		register:  make(chan Subscriber),
		unreg:     make(chan Subscriber),
		broadcast: make(chan []byte, 16),
		done:      make(chan struct{}),
		log:       logger,
	}
	go h.run(ctx)
	return h
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.active.Store(0)
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unreg:
			delete(h.clients, c)
		case payload := <-h.broadcast:
			for c := range h.clients {
				if err := c.Send(payload); err != nil {
					c.Close()
					delete(h.clients, c)
				}
			}
		}
		h.active.Store(int64(len(h.clients)))
	}
}

// Register adds a subscriber. It is a no-op once the hub has stopped.
func (h *Hub) Register(client Subscriber) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(client Subscriber) {
	select {
	case h.unreg <- client:
	case <-h.done:
	}
}

// Broadcast sends payload to all subscribers.
func (h *Hub) Broadcast(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// PublishAsset encodes event as JSON and broadcasts it.
func (h *Hub) PublishAsset(event domain.AssetEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("encode asset event", "error", err, "kind", event.Kind)
		return
	}
	h.Broadcast(payload)
}

// Subscribers reports the number of connected subscribers.
func (h *Hub) Subscribers() int {
	return int(h.active.Load())
}

// Done is closed once the hub loop has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
