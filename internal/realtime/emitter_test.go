package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ctfplatform/internal/realtime"
	"ctfplatform/internal/testutil"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
	kinds    []realtime.Kind
	fail     map[realtime.Kind]bool
	block    chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, event realtime.Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[event.Type] {
		return errors.New("publish failed")
	}
	p.channels = append(p.channels, channel)
	p.kinds = append(p.kinds, event.Type)
	return nil
}

func (p *recordingPublisher) published() []realtime.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Kind(nil), p.kinds...)
}

func TestEmitter_PublishesInOrderAndDrainsOnClose(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := realtime.NewEmitter(pub, realtime.EmitterConfig{Channel: "ctf"})

	kinds := []realtime.Kind{realtime.KindCreateTask, realtime.KindUpdateTask, realtime.KindOpenTask, realtime.KindCloseTask}
	for _, k := range kinds {
		emitter.Emit(context.Background(), realtime.NewEvent(k, nil, realtime.AudienceSupervisors))
	}
	emitter.Close()

	testutil.AssertDeepEqual(t, pub.published(), kinds)
	for _, ch := range pub.channels {
		testutil.AssertEqual(t, ch, "ctf")
	}
}

func TestEmitter_FailureDoesNotStopQueue(t *testing.T) {
	pub := &recordingPublisher{fail: map[realtime.Kind]bool{realtime.KindUpdateTask: true}}
	emitter := realtime.NewEmitter(pub, realtime.EmitterConfig{})

	emitter.Emit(context.Background(), realtime.NewEvent(realtime.KindCreateTask, nil))
	emitter.Emit(context.Background(), realtime.NewEvent(realtime.KindUpdateTask, nil))
	emitter.Emit(context.Background(), realtime.NewEvent(realtime.KindOpenTask, nil))
	emitter.Close()

	testutil.AssertDeepEqual(t, pub.published(), []realtime.Kind{realtime.KindCreateTask, realtime.KindOpenTask})
	testutil.AssertEqual(t, pub.channels[0], realtime.DefaultChannel)
}

func TestEmitter_EmitAfterCloseIsDropped(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := realtime.NewEmitter(pub, realtime.EmitterConfig{})
	emitter.Close()
	emitter.Close()

	emitter.Emit(context.Background(), realtime.NewEvent(realtime.KindCreateTask, nil))
	testutil.AssertEqual(t, len(pub.published()), 0)
}

func TestEmitter_FullQueueDropsWithoutBlocking(t *testing.T) {
	pub := &recordingPublisher{block: make(chan struct{})}
	emitter := realtime.NewEmitter(pub, realtime.EmitterConfig{QueueSize: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			emitter.Emit(context.Background(), realtime.NewEvent(realtime.KindCreateTask, nil))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(pub.block)
	emitter.Close()
	got := len(pub.published())
	testutil.AssertTrue(t, got >= 1 && got <= 2, "only the in-flight and queued events are published")
}

func TestEmitter_CanceledContextStillPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := realtime.NewEmitter(pub, realtime.EmitterConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	emitter.Emit(ctx, realtime.NewEvent(realtime.KindCloseTask, nil))
	emitter.Close()
	testutil.AssertDeepEqual(t, pub.published(), []realtime.Kind{realtime.KindCloseTask})
}
