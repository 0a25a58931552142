package mq

import (
	"context"
	"errors"
	"sync"

	"ctfplatform/pkg/utils/logger"

	"go.uber.org/zap"
)

// MemoryQueue is an in-process MessageQueue. Every subscriber of a topic
// receives every message published after Start, in publish order.
type MemoryQueue struct {
	mu      sync.RWMutex
	subs    map[string][]*memorySubscription
	started bool
	closed  bool
}

type memorySubscription struct {
	topic   string
	handler HandlerFunc
	ctx     context.Context
	ch      chan *Message
	done    chan struct{}
	once    sync.Once
}

// NewMemoryQueue creates an empty in-process queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{subs: make(map[string][]*memorySubscription)}
}

// Publish delivers message to the buffers of all subscribers of topic.
// A full subscriber buffer drops the message for that subscriber.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, message *Message) error {
	if message == nil {
		return errors.New("message is nil")
	}
	if topic == "" {
		return errors.New("topic is required")
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	for _, sub := range q.subs[topic] {
		select {
		case sub.ch <- message:
		default:
			logger.Warn(ctx, "memory queue subscriber buffer full, message dropped",
				zap.String("topic", topic), zap.String("message_id", message.ID))
		}
	}
	return nil
}

// Subscribe subscribes to a topic with default options.
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler HandlerFunc) error {
	return q.SubscribeWithOptions(ctx, topic, handler, nil)
}

// SubscribeWithOptions subscribes to a topic; ConsumerGroup is ignored.
func (q *MemoryQueue) SubscribeWithOptions(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	var options SubscribeOptions
	if opts != nil {
		options = *opts
	}
	options.SetDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	sub := &memorySubscription{
		topic:   topic,
		handler: handler,
		ctx:     ctx,
		ch:      make(chan *Message, options.Buffer),
		done:    make(chan struct{}),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	q.subs[topic] = append(q.subs[topic], sub)
	if q.started {
		go sub.run()
	}
	return nil
}

// Start begins delivery to registered handlers.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	if q.started {
		return nil
	}
	for _, subs := range q.subs {
		for _, sub := range subs {
			go sub.run()
		}
	}
	q.started = true
	return nil
}

// Stop drains pending messages and stops all handlers.
func (q *MemoryQueue) Stop() error {
	q.mu.Lock()
	started := q.started
	q.started = false
	var all []*memorySubscription
	for _, subs := range q.subs {
		all = append(all, subs...)
	}
	q.subs = make(map[string][]*memorySubscription)
	q.mu.Unlock()

	for _, sub := range all {
		sub.once.Do(func() { close(sub.ch) })
		if started {
			<-sub.done
		}
	}
	return nil
}

// Ping always succeeds.
func (q *MemoryQueue) Ping(ctx context.Context) error {
	return nil
}

// Close stops consumers and rejects further use.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	return q.Stop()
}

func (s *memorySubscription) run() {
	defer close(s.done)
	for msg := range s.ch {
		if err := s.handler(s.ctx, msg); err != nil {
			logger.Warn(s.ctx, "message handler failed",
				zap.String("topic", s.topic), zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}
