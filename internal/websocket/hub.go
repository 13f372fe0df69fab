package websocket

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"resonite-spotify/internal/bridge"
	"resonite-spotify/internal/logging"
)

// Observer is told when clients come and go.
type Observer interface {
	ClientConnected(id string)
	ClientDisconnected(id string)
}

type nopObserver struct{}

func (nopObserver) ClientConnected(string)    {}
func (nopObserver) ClientDisconnected(string) {}

// Hub manages the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]struct{}
	mu         sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	observer   Observer
}

// NewHub creates a new Hub. observer may be nil.
func NewHub(observer Observer) *Hub {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		observer:   observer,
	}
}

// Run starts the hub's event loop. It must be run in a separate goroutine.
func (h *Hub) Run(ctx context.Context) {
	logrus.Info("hub started")
	defer logrus.Info("hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.closeAllConnections()
			close(h.done)
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			logging.With(logging.Connection).Infof("Client %s connected!", client.session.ShortID())
			h.observer.ClientConnected(client.id)
		case client := <-h.unregister:
			if h.remove(client) {
				logging.With(logging.Connection).Infof("Client %s disconnected", client.session.ShortID())
			}
		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast sends a reply to all connected clients.
func (h *Hub) Broadcast(r bridge.Reply) {
	msg, err := r.Encode()
	if err != nil {
		logrus.WithError(err).Error("failed to encode broadcast")
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// broadcastMessage queues msg on every client. A client whose queue is full
// is dropped.
func (h *Hub) broadcastMessage(msg []byte) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logrus.WithField("client", client.id).Warn("client too slow, dropping connection")
		h.remove(client)
	}
}

// remove deletes a client and closes its connection. It reports whether the
// client was still registered.
func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
	if ok {
		h.observer.ClientDisconnected(c.id)
	}
	return ok
}

// closeAllConnections closes all active client connections during shutdown.
func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.close()
		h.observer.ClientDisconnected(client.id)
	}
}
