package bus

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"ircgram/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOutboundQueue_DeliversToHandler(t *testing.T) {
	q := New(8, discardLogger())

	var mu sync.Mutex
	var got []domain.OutboundMessage
	q.OnOutbound("irc", func(m domain.OutboundMessage) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	})

	q.Publish(domain.OutboundMessage{Network: "irc", Target: "#foo", Text: "hello"})
	q.Close() // drains the queue before returning

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("handler received %+v, want one message %q", got, "hello")
	}
}

func TestOutboundQueue_UnknownNetworkDrops(t *testing.T) {
	q := New(8, discardLogger())
	defer q.Close()

	// Must not panic or block.
	q.Publish(domain.OutboundMessage{Network: "matrix", Target: "x", Text: "y"})
}

func TestOutboundQueue_FullQueueDrops(t *testing.T) {
	q := New(1, discardLogger())

	release := make(chan struct{})
	var mu sync.Mutex
	var delivered int
	q.OnOutbound("irc", func(m domain.OutboundMessage) {
		<-release
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	q.Publish(domain.OutboundMessage{Network: "irc", Text: "a"})
	// Give the worker time to take "a" off the queue and block.
	time.Sleep(50 * time.Millisecond)
	q.Publish(domain.OutboundMessage{Network: "irc", Text: "b"}) // buffered
	q.Publish(domain.OutboundMessage{Network: "irc", Text: "c"}) // dropped

	close(release)
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	if delivered != 2 {
		t.Errorf("delivered %d messages, want 2 (one dropped at-most-once)", delivered)
	}
}

func TestOutboundQueue_PublishAfterClose(t *testing.T) {
	q := New(8, discardLogger())
	q.OnOutbound("irc", func(domain.OutboundMessage) {})
	q.Close()

	// Must not panic.
	q.Publish(domain.OutboundMessage{Network: "irc", Text: "late"})
}

func TestOutboundQueue_DuplicateHandlerPanics(t *testing.T) {
	q := New(8, discardLogger())
	defer q.Close()
	q.OnOutbound("irc", func(domain.OutboundMessage) {})

	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()
	q.OnOutbound("irc", func(domain.OutboundMessage) {})
}
