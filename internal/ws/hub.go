package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"zentari/internal/entitlement"
	"zentari/internal/logger"
)

// StatusSource recomputes an account's status.
type StatusSource interface {
	GetStatus(ctx context.Context, userID string) (*entitlement.Status, error)
}

var errNoSource = errors.New("ws: hub has no status source")

type change struct {
	userID    string
	operation string
}

// Hub fans committed account changes out to the websocket connections of
// the affected user. It implements the engine's Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	source  StatusSource
	changes chan change
	log     *slog.Logger
}

func NewHub(source StatusSource) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		source:  source,
		changes: make(chan change, 1024),
		log:     logger.With("component", "ws_hub"),
	}
}

// SetSource attaches the status source when it is built after the hub, as
// the engine is. Call it before Run.
func (h *Hub) SetSource(source StatusSource) {
	h.mu.Lock()
	h.source = source
	h.mu.Unlock()
}

func (h *Hub) status(ctx context.Context, userID string) (*entitlement.Status, error) {
	h.mu.RLock()
	source := h.source
	h.mu.RUnlock()
	if source == nil {
		return nil, errNoSource
	}
	return source.GetStatus(ctx, userID)
}

// AccountChanged queues a push for userID. It never blocks the caller; when
// the queue is full the change is dropped and the client catches up on its
// next refresh.
func (h *Hub) AccountChanged(userID, operation string) {
	if !h.connected(userID) {
		return
	}
	select {
	case h.changes <- change{userID: userID, operation: operation}:
	default:
		h.log.Warn("status push dropped", "user_id", userID, "operation", operation)
	}
}

// Run delivers queued changes until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case ch := <-h.changes:
			h.push(ctx, ch.userID, ch.operation)
		}
	}
}

func (h *Hub) push(ctx context.Context, userID, operation string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := h.status(ctx, userID)
	if err != nil {
		h.log.Warn("status push failed", "user_id", userID, "error", err)
		return
	}
	h.Broadcast(userID, encode(MsgStatus, StatusPayload{Operation: operation, Status: status}))
}

// Broadcast sends msg to every connection of userID.
func (h *Hub) Broadcast(userID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		c.enqueue(msg)
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
}

func (h *Hub) connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Connections reports how many sockets are open.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			c.close()
		}
	}
}
