package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/metrics"
	"github.com/priya3054/ZerodhaClone/pkg/protocol"
)

type ClientInterface interface {
	ID() string
	// SendBytes queues a frame without blocking. It reports false when the
	// frame was dropped (closed client or full queue).
	SendBytes(b []byte) bool
	Close()
}

// RequestHandler serves one client -> server event kind.
type RequestHandler func(ctx context.Context, client ClientInterface, msg protocol.Message)

// Hub is the broadcast channel: a registry of connected subscribers plus the
// routing table for client requests.
type Hub struct {
	clients   map[string]ClientInterface
	handlers  map[protocol.EventKind]RequestHandler
	onConnect []func()

	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]ClientInterface),
		handlers: make(map[protocol.EventKind]RequestHandler),
		logger:   logger,
	}
}

// OnConnect registers fn to run after every successful Register.
func (h *Hub) OnConnect(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onConnect = append(h.onConnect, fn)
}

// OnRequest routes client events of the given kind to handler.
func (h *Hub) OnRequest(kind protocol.EventKind, handler RequestHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[kind] = handler
}

func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	h.clients[client.ID()] = client
	total := len(h.clients)
	hooks := append([]func(){}, h.onConnect...)
	h.mu.Unlock()

	metrics.Subscribers.Set(float64(total))
	h.logger.Info("Client connected", zap.String("client_id", client.ID()), zap.Int("total", total))

	for _, fn := range hooks {
		fn()
	}
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	_, ok := h.clients[client.ID()]
	delete(h.clients, client.ID())
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.Subscribers.Set(float64(total))
		h.logger.Info("Client disconnected", zap.String("client_id", client.ID()), zap.Int("total", total))
	}
	client.Close()
}

// Publish sends p to every currently connected subscriber. Delivery is best
// effort: a subscriber that is gone or backed up is skipped and the fan-out
// continues. Nothing is retained for subscribers that connect later.
func (h *Hub) Publish(p protocol.Payload) {
	msg, err := protocol.Encode("", p)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event", string(p.Kind())), zap.Error(err))
		return
	}

	for _, client := range h.snapshot() {
		if !client.SendBytes(msg) {
			metrics.DroppedSends.Inc()
		}
	}
	metrics.EventsPublished.WithLabelValues(string(p.Kind())).Inc()
}

// SendTo delivers p to a single subscriber, tagged with a request id.
func (h *Hub) SendTo(client ClientInterface, id string, p protocol.Payload) {
	msg, err := protocol.Encode(id, p)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event", string(p.Kind())), zap.Error(err))
		return
	}
	if !client.SendBytes(msg) {
		metrics.DroppedSends.Inc()
	}
}

// HandleCommand dispatches a decoded client request to its handler.
func (h *Hub) HandleCommand(ctx context.Context, client ClientInterface, msg protocol.Message) {
	if msg.Payload == nil {
		h.sendError(client, msg.ID, "Empty request")
		return
	}

	h.mu.RLock()
	handler, ok := h.handlers[msg.Payload.Kind()]
	h.mu.RUnlock()

	if !ok {
		h.sendError(client, msg.ID, "Unknown event: "+string(msg.Payload.Kind()))
		return
	}
	handler(ctx, client, msg)
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every subscriber.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]ClientInterface, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	metrics.Subscribers.Set(0)
}

// snapshot copies the subscriber set so sends happen outside the lock.
func (h *Hub) snapshot() []ClientInterface {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ClientInterface, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	h.SendTo(c, id, protocol.ErrorMessage{Message: msg})
}
