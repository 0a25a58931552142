package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultSendBuffer = 32

// Client is a connected recipient of one audience.
type Client struct {
	audience Audience
	send     chan []byte
	once     sync.Once
}

// NewClient creates a client with a bounded send buffer.
func NewClient(audience Audience, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Client{audience: audience, send: make(chan []byte, buffer)}
}

// Audience returns the client's audience.
func (c *Client) Audience() Audience {
	return c.audience
}

// Send yields encoded messages; it is closed when the hub drops the client.
func (c *Client) Send() <-chan []byte {
	return c.send
}

func (c *Client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans events from a channel out to connected clients, each receiving
// only the payload addressed to its audience.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Run subscribes the hub to channel on sub. Delivery stops when ctx is done.
func (h *Hub) Run(ctx context.Context, sub Subscriber, channel string) error {
	return sub.Subscribe(ctx, channel, h.Dispatch)
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dispatch decodes payload and delivers it. Clients whose buffer is full are
// dropped.
func (h *Hub) Dispatch(ctx context.Context, payload []byte) {
	env, err := Decode(payload)
	if err != nil {
		logger.Warn(ctx, "discard malformed realtime event", zap.Error(err))
		return
	}

	messages := make(map[Audience][]byte, len(env.Data))
	for _, audience := range Audiences {
		msg, ok := env.MessageFor(audience)
		if !ok {
			continue
		}
		encoded, err := json.Marshal(msg)
		if err != nil {
			logger.Warn(ctx, "encode realtime message failed", zap.String("audience", string(audience)), zap.Error(err))
			continue
		}
		messages[audience] = encoded
	}
	if len(messages) == 0 {
		return
	}

	var slow []*Client
	h.mu.RLock()
	for c := range h.clients {
		encoded, ok := messages[c.audience]
		if !ok {
			continue
		}
		select {
		case c.send <- encoded:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		logger.Warn(ctx, "drop slow realtime client", zap.String("audience", string(c.audience)))
		h.Unregister(c)
	}
}

// Shutdown drops every client.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}
