package realtime

import (
	"context"
	"sync"
)

// Dispatcher is the Publisher services use. Publish enqueues and returns; a
// single worker drains the queue into the sink, so events leave in publish order.
type Dispatcher struct {
	sink   Sink
	queue  chan Event
	logger Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher starts the worker goroutine. Call Close to drain and stop it.
func NewDispatcher(sink Sink, buffer int, logger Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &Dispatcher{
		sink:   sink,
		queue:  make(chan Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go d.worker()
	return d
}

// Publish encodes the payload and queues the event. When the queue is full the
// event is dropped; the mutation it describes has already committed.
func (d *Dispatcher) Publish(_ context.Context, kind Kind, channel string, payload interface{}) {
	ev, err := NewEvent(kind, channel, payload)
	if err != nil {
		d.logf(true, "realtime: encode %s: %v", kind, err)
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.logf(false, "realtime: queue full, dropping %s on %q", kind, channel)
	}
}

// worker runs detached from any request context so a finished request does not
// cancel delivery of its event.
func (d *Dispatcher) worker() {
	defer close(d.done)
	ctx := context.Background()
	for ev := range d.queue {
		if err := d.sink.Deliver(ctx, ev); err != nil {
			d.logf(true, "realtime: deliver %s on %q: %v", ev.Kind, ev.Channel, err)
		}
	}
}

// Close stops accepting events, delivers what is queued, and waits for the worker.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) logf(isErr bool, format string, args ...interface{}) {
	if d.logger == nil {
		return
	}
	if isErr {
		d.logger.Errorf(format, args...)
		return
	}
	d.logger.Warnf(format, args...)
}
