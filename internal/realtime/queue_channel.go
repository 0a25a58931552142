package realtime

import (
	"context"
	"errors"
	"fmt"

	"ctfplatform/internal/common/mq"

	"github.com/google/uuid"
)

const headerEventType = "x-event-type"

// QueueChannel carries events over a message queue topic named after the
// channel. Over Kafka each node joins its own consumer group so every node
// sees every event.
type QueueChannel struct {
	queue mq.MessageQueue
	group string
}

// NewQueueChannel wraps queue. group is the consumer group for Subscribe;
// empty picks a unique per-process group.
func NewQueueChannel(queue mq.MessageQueue, group string) *QueueChannel {
	if group == "" {
		group = "ctfplatform-realtime-" + uuid.NewString()
	}
	return &QueueChannel{queue: queue, group: group}
}

// NewMemoryChannel is an in-process channel for single-node mode and tests.
func NewMemoryChannel() *QueueChannel {
	return NewQueueChannel(mq.NewMemoryQueue(), "")
}

func (q *QueueChannel) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := Encode(event)
	if err != nil {
		return err
	}
	message := mq.NewMessage(payload)
	message.ID = uuid.NewString()
	message.SetHeader(headerEventType, string(event.Type))
	if err := q.queue.Publish(ctx, channel, message); err != nil {
		return fmt.Errorf("queue publish failed: %w", err)
	}
	return nil
}

func (q *QueueChannel) Subscribe(ctx context.Context, channel string, handler PayloadHandler) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	err := q.queue.SubscribeWithOptions(ctx, channel, func(ctx context.Context, message *mq.Message) error {
		handler(ctx, message.Body)
		return nil
	}, &mq.SubscribeOptions{ConsumerGroup: q.group})
	if err != nil {
		return err
	}
	return q.queue.Start()
}

func (q *QueueChannel) Close() error {
	return q.queue.Close()
}
