// Package hub fans server events out to websocket subscribers.
//
// One Run goroutine owns the subscriber set. Publish never blocks: when the
// queue is full the event is counted and dropped, and a subscriber whose
// own queue is full is disconnected rather than allowed to stall the rest.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	queueSize      = 256
	subscriberSize = 64
)

// Hub is a broadcast point for JSON events.
type Hub struct {
	logger *slog.Logger

	queue chan []byte
	join  chan *Subscriber
	leave chan *Subscriber
	done  chan struct{}

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}

	running atomic.Bool
	dropped atomic.Int64
}

// New creates a Hub; name tags its log lines.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "hub", "hub", name),
		queue:  make(chan []byte, queueSize),
		join:   make(chan *Subscriber),
		leave:  make(chan *Subscriber),
		done:   make(chan struct{}),
		subs:   make(map[*Subscriber]struct{}),
	}
}

// Run delivers events until ctx is done and then disconnects everyone.
// It must be called once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.running.Store(false)
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for s := range h.subs {
				h.remove(s)
			}
			h.mu.Unlock()
			return

		case s := <-h.join:
			h.mu.Lock()
			h.subs[s] = struct{}{}
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Info("subscriber joined", "subscribers", n)

		case s := <-h.leave:
			h.mu.Lock()
			h.remove(s)
			n := len(h.subs)
			h.mu.Unlock()
			h.logger.Info("subscriber left", "subscribers", n)

		case data := <-h.queue:
			h.mu.Lock()
			for s := range h.subs {
				select {
				case s.out <- data:
				default:
					h.remove(s)
					h.logger.Warn("disconnected slow subscriber")
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(s *Subscriber) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.out)
	}
}

// Publish encodes v as JSON and queues it for every subscriber.
func (h *Hub) Publish(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case h.queue <- data:
	default:
		h.dropped.Add(1)
		h.logger.Warn("event queue full, dropping event")
	}
	return nil
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

func (h *Hub) Running() bool {
	return h.running.Load()
}
