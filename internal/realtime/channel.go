package realtime

import "context"

// PayloadHandler receives a raw event payload from a channel.
type PayloadHandler func(ctx context.Context, payload []byte)

// Subscriber delivers payloads published on a channel until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler PayloadHandler) error
}

// Channel is a realtime transport.
type Channel interface {
	Publisher
	Subscriber
	Close() error
}
