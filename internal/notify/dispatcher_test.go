package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	delay  time.Duration
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

func TestDispatcher_CloseWaitsForInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &recordingPublisher{delay: 20 * time.Millisecond}
	d := New(pub, time.Second)

	d.Dispatch(context.Background(), "order_events", "k1", NewEvent("order_created", uuid.Nil, nil))
	d.Dispatch(context.Background(), "order_events", "k2", NewEvent("order_cancelled", uuid.Nil, nil))
	d.Close()

	assert.Len(t, pub.sent(), 2)

	d.Dispatch(context.Background(), "order_events", "k3", nil)
	d.Close()
	assert.Len(t, pub.sent(), 2)
}

func TestDispatcher_SurvivesRequestCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := &recordingPublisher{delay: 10 * time.Millisecond}
	d := New(pub, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, "cart_events", "k", nil)
	cancel()
	d.Close()

	require.Equal(t, []string{"cart_events"}, pub.sent())
}

func TestDispatcher_TimeoutAndErrorsAreSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := &recordingPublisher{delay: time.Second}
	d := New(slow, 10*time.Millisecond)
	start := time.Now()
	d.Dispatch(context.Background(), "order_events", "k", nil)
	d.Close()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Empty(t, slow.sent())

	failing := &recordingPublisher{err: errors.New("broker down")}
	d = New(failing, time.Second)
	d.Dispatch(context.Background(), "order_events", "k", nil)
	d.Close()
	assert.Len(t, failing.sent(), 1)
}

func TestDispatcher_NilSafe(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(context.Background(), "x", "y", nil)
	d.Close()

	New(nil, 0).Dispatch(context.Background(), "x", "y", nil)
}
