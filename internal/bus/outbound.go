// Package bus routes outbound messages to their destination network.
// Each network gets its own buffered queue drained by one worker, so a
// slow send on one network never stalls handling on the other.
package bus

import (
	"log/slog"
	"sync"

	"ircgram/internal/domain"
	"ircgram/internal/metrics"
)

// OutboundQueue implements domain.OutboundBus with one buffered channel
// and one worker goroutine per registered network. Delivery is
// at-most-once: when a queue is full the message is dropped with a
// warning rather than blocking the publisher.
type OutboundQueue struct {
	mu      sync.RWMutex
	queues  map[string]chan domain.OutboundMessage
	size    int
	closed  bool
	workers sync.WaitGroup
	logger  *slog.Logger
}

// New creates an OutboundQueue with the given per-network buffer size.
func New(bufferSize int, logger *slog.Logger) *OutboundQueue {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &OutboundQueue{
		queues: make(map[string]chan domain.OutboundMessage),
		size:   bufferSize,
		logger: logger,
	}
}

// OnOutbound registers the send handler for a network and starts its
// worker. Registering the same network twice replaces nothing and
// panics; networks are wired once at startup.
func (q *OutboundQueue) OnOutbound(network string, handler func(domain.OutboundMessage)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.queues[network]; ok {
		panic("bus: duplicate outbound handler for " + network)
	}
	ch := make(chan domain.OutboundMessage, q.size)
	q.queues[network] = ch

	q.workers.Add(1)
	go func() {
		defer q.workers.Done()
		for msg := range ch {
			handler(msg)
		}
	}()
}

// Publish enqueues a message for its network. Unknown networks and full
// queues drop the message with a warning.
func (q *OutboundQueue) Publish(msg domain.OutboundMessage) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.logger.Warn("publish on closed outbound queue", "network", msg.Network)
		return
	}
	ch, ok := q.queues[msg.Network]
	if !ok {
		q.logger.Warn("no outbound handler for network", "network", msg.Network)
		metrics.Dropped.Inc()
		return
	}

	select {
	case ch <- msg:
	default:
		q.logger.Warn("outbound queue full, dropping message",
			"network", msg.Network, "target", msg.Target)
		metrics.Dropped.Inc()
	}
}

// Close stops all workers after the queued messages drain.
func (q *OutboundQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.queues {
		close(ch)
	}
	q.mu.Unlock()
	q.workers.Wait()
}
