package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type pending struct {
	ctx   context.Context
	event Event
}

// Dispatcher hands audit events to a sink on one background goroutine, in
// emit order. Login, logout and role switch never wait on the audit endpoint
// unless DropIfFull is off and the buffer is full.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu guards queue against send-after-close. Emit holds it shared.
	mu     sync.RWMutex
	closed bool
	queue  chan pending
	idle   chan struct{}

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher returns nil when cfg.Enabled is false. A nil *Dispatcher is
// safe to use and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan pending, max(cfg.BufferSize, 1)),
		idle:       make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.idle)
	for p := range d.queue {
		d.sink.Emit(p.ctx, p.event)
		d.delivered.Add(1)
	}
}

// Emit queues event. The sink sees ctx's values but not its cancellation,
// since delivery usually outlives the call that produced the event.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	p := pending{ctx: context.WithoutCancel(ctx), event: event}
	if d.dropIfFull {
		select {
		case d.queue <- p:
		default:
			d.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- p:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close rejects further events and returns once everything already queued
// reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

// Delivered counts events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}

// Dropped counts events lost to a full buffer or an expired caller context.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
