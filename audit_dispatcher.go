package credVault

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples lifecycle operations from sink latency. A single
// goroutine consumes the buffer; Close delivers whatever is still queued
// before returning.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	quit       chan struct{}
	drained    chan struct{}
	dropIfFull bool
	dropped    atomic.Uint64
	stopOnce   sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		quit:       make(chan struct{}),
		drained:    make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.drained)
	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			for len(d.events) > 0 {
				d.sink.Emit(context.Background(), <-d.events)
			}
			return
		}
	}
}

// dispatch stamps and enqueues one event. When the buffer is full the event
// is dropped and counted, or, without DropIfFull, the call blocks until the
// consumer catches up, the context ends, or the dispatcher stops.
func (d *auditDispatcher) dispatch(ctx context.Context, at time.Time, eventType, accountID string, success bool, cause error) {
	if d == nil {
		return
	}
	select {
	case <-d.quit:
		return
	default:
	}
	if ctx == nil {
		ctx = context.Background()
	}

	event := AuditEvent{
		Timestamp: at,
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		close(d.quit)
		<-d.drained
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
