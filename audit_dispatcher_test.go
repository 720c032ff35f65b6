package credVault

import (
	"context"
	"testing"
	"time"
)

// stallSink blocks every Emit until released, forcing the buffer to fill.
type stallSink struct {
	release chan struct{}
}

func (s *stallSink) Emit(context.Context, AuditEvent) { <-s.release }

func TestAuditDispatcherCountsDrops(t *testing.T) {
	sink := &stallSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	now := time.Now()
	for i := 0; i < 5; i++ {
		d.dispatch(context.Background(), now, "login", "", true, nil)
	}

	// At most one event is held by the sink and one by the buffer; the rest
	// must be counted as dropped.
	if got := d.Dropped(); got < 3 {
		t.Fatalf("dropped = %d, want >= 3", got)
	}

	close(sink.release)
	d.Close()
}

func TestAuditDispatcherIgnoresEventsAfterClose(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)

	d.dispatch(context.Background(), time.Now(), "login", "", true, nil)
	d.Close()
	d.dispatch(context.Background(), time.Now(), "logout", "", true, nil)

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login" {
			t.Fatalf("event type = %q, want login", ev.EventType)
		}
	default:
		t.Fatal("event queued before Close was not delivered")
	}
	select {
	case ev := <-sink.Events():
		t.Fatalf("unexpected event after Close: %q", ev.EventType)
	default:
	}
}
