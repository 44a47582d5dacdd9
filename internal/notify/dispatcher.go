package notify

import (
	"context"
	"sync"
	"time"

	"github.com/JKeiyuru/cornells-sub002/pkg/logging"
)

const DefaultTimeout = 5 * time.Second

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// Dispatcher sends events in the background. A failed send is logged and
// dropped; nothing is retried.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a dispatcher; a nil publisher makes every Dispatch a no-op.
func New(pub Publisher, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{pub: pub, timeout: timeout}
}

// Dispatch returns immediately. The send outlives the request context but
// keeps its values (logger, trace).
func (d *Dispatcher) Dispatch(ctx context.Context, topic, key string, event any) {
	if d == nil || d.pub == nil {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	go func() {
		defer d.wg.Done()
		defer cancel()

		l := logging.FromContext(sendCtx).With("component", "notify", "topic", topic, "key", key)
		if err := d.pub.Publish(sendCtx, topic, key, event); err != nil {
			l.Warn("notify_publish_failed", "error", err)
			return
		}
		l.Debug("notify_published")
	}()
}

// Close stops accepting events and waits for in-flight sends.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
