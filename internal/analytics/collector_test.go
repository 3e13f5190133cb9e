package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bet0x/bm25-retrieval-service/pkg/kafka"
)

// fakePublisher records published events in order.
type fakePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (f *fakePublisher) Publish(ctx context.Context, event kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) published() []kafka.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]kafka.Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestCollectorPublishesTrackedEvents(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16)
	c.Start(context.Background())

	c.Track(QueryEvent{Type: EventQuery, Query: "cat", K: 3, Returned: 2})
	c.Track(QueryEvent{Type: EventZeroResult, Query: "zebra", K: 3})
	c.Close()

	events := pub.published()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}
	if events[0].Key != string(EventQuery) {
		t.Errorf("events[0].Key = %q, want %q", events[0].Key, EventQuery)
	}
	payload, ok := events[0].Value.(QueryEvent)
	if !ok {
		t.Fatalf("events[0].Value has type %T, want QueryEvent", events[0].Value)
	}
	if payload.Query != "cat" || payload.Returned != 2 {
		t.Errorf("payload = %+v", payload)
	}
	if events[1].Key != string(EventZeroResult) {
		t.Errorf("events[1].Key = %q, want %q", events[1].Key, EventZeroResult)
	}
}

func TestCollectorTrackNeverBlocks(t *testing.T) {
	// No Start: nothing consumes the buffer, so overflow exercises the drop
	// path. Track must return promptly regardless.
	c := NewCollector(&fakePublisher{}, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			c.Track(QueryEvent{Type: EventQuery, Query: "q"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Track blocked on a full buffer")
	}
}

func TestCollectorPublishFailureIsContained(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	c := NewCollector(pub, 4)
	c.Start(context.Background())

	c.Track(QueryEvent{Type: EventQueryError, Query: "cat"})
	c.Close() // must not panic or hang on publish errors
}

func TestCollectorDrainsOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 16)

	// Buffer events before the consumer starts, then cancel immediately:
	// cancellation drains what is already queued.
	c.Track(QueryEvent{Type: EventQuery, Query: "one"})
	c.Track(QueryEvent{Type: EventQuery, Query: "two"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Start(ctx)
	<-c.done

	if got := len(pub.published()); got != 2 {
		t.Errorf("drained %d events, want 2", got)
	}
}
