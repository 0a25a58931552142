package realtime

import (
	"context"
	"sync"
	"time"

	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultChannel is the channel name events are published on.
const DefaultChannel = "realtime"

// Publisher delivers an encoded event to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

// Sink accepts events from services. Emit never blocks and never fails the
// caller.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// EmitterConfig controls the emitter queue.
type EmitterConfig struct {
	Channel        string
	QueueSize      int
	PublishTimeout time.Duration
}

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// Emitter publishes events fire-and-forget: Emit enqueues, a single worker
// publishes in enqueue order. Publish failures are logged and dropped.
type Emitter struct {
	publisher Publisher
	channel   string
	timeout   time.Duration

	mu     sync.RWMutex
	queue  chan queuedEvent
	closed bool
	done   chan struct{}
}

// NewEmitter starts the publishing worker.
func NewEmitter(publisher Publisher, cfg EmitterConfig) *Emitter {
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 3 * time.Second
	}
	e := &Emitter{
		publisher: publisher,
		channel:   cfg.Channel,
		timeout:   cfg.PublishTimeout,
		queue:     make(chan queuedEvent, cfg.QueueSize),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit schedules event for publishing. A full queue or a closed emitter
// drops the event with a warning.
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if ctx == nil {
		ctx = context.Background()
	}
	// keep trace values, drop request cancellation
	ctx = context.WithoutCancel(ctx)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		logger.Warn(ctx, "emitter closed, event dropped", zap.String("type", string(event.Type)))
		return
	}
	select {
	case e.queue <- queuedEvent{ctx: ctx, event: event}:
	default:
		logger.Warn(ctx, "emitter queue full, event dropped", zap.String("type", string(event.Type)))
	}
}

// Close stops accepting events and waits until queued ones are published.
func (e *Emitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.done
		return
	}
	e.closed = true
	close(e.queue)
	e.mu.Unlock()
	<-e.done
}

func (e *Emitter) run() {
	defer close(e.done)
	for item := range e.queue {
		e.publish(item)
	}
}

func (e *Emitter) publish(item queuedEvent) {
	ctx, cancel := context.WithTimeout(item.ctx, e.timeout)
	defer cancel()
	if err := e.publisher.Publish(ctx, e.channel, item.event); err != nil {
		logger.Warn(ctx, "publish event failed",
			zap.String("channel", e.channel),
			zap.String("type", string(item.event.Type)),
			zap.Error(err),
		)
		return
	}
	logger.Debug(ctx, "event published", zap.String("channel", e.channel), zap.String("type", string(item.event.Type)))
}
