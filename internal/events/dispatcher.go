package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"water-delivery/internal/core"
	"water-delivery/internal/metrics"
)

const (
	defaultBuffer         = 256
	defaultPublishTimeout = 5 * time.Second
)

// Dispatcher hands events to a Publisher on a background goroutine. Dispatch
// never blocks: when the buffer is full or the dispatcher is closed the event is
// dropped, logged and counted. Publish failures are handled the same way.
type Dispatcher struct {
	pub     Publisher
	queue   chan core.OrderDelivered
	timeout time.Duration
	log     *zap.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}

	pubOnce sync.Once
	pubErr  error
}

// NewDispatcher starts a dispatcher; zero buffer or timeout select the defaults.
func NewDispatcher(pub Publisher, buffer int, publishTimeout time.Duration, log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		pub:     pub,
		queue:   make(chan core.OrderDelivered, buffer),
		timeout: publishTimeout,
		log:     log.Named("dispatcher"),
		metrics: m,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch enqueues evt without blocking.
func (d *Dispatcher) Dispatch(evt core.OrderDelivered) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(evt, "dispatcher closed")
		return
	}
	select {
	case d.queue <- evt:
	default:
		d.drop(evt, "buffer full")
	}
}

// Close stops accepting events, drains the buffer and closes the publisher.
// It returns ctx.Err() if draining does not finish in time. Repeated calls close
// the publisher once.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.pubOnce.Do(func() { d.pubErr = d.pub.Close() })
	return d.pubErr
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for evt := range d.queue {
		d.publish(evt)
	}
}

func (d *Dispatcher) publish(evt core.OrderDelivered) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	env := NewEnvelope(evt)
	if err := d.pub.Publish(ctx, env); err != nil {
		d.metrics.EventResult(metrics.EventFailed)
		d.log.Error("failed to publish order delivered event",
			zap.String("event_id", env.ID),
			zap.Int("order_id", evt.OrderID),
			zap.Error(err),
		)
		return
	}
	d.metrics.EventResult(metrics.EventPublished)
}

func (d *Dispatcher) drop(evt core.OrderDelivered, reason string) {
	d.metrics.EventResult(metrics.EventDropped)
	d.log.Warn("dropped order delivered event",
		zap.Int("order_id", evt.OrderID),
		zap.String("reason", reason),
	)
}
