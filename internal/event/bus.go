package event

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBusBuffer is sized so that bursts of artifact stores within
// one tool call do not drop, while a stalled subscriber cannot pin
// unbounded memory.
const DefaultBusBuffer = 256

// AsyncBus fans notifications out to a downstream sink on a dedicated
// goroutine. Notify never blocks: when the buffer is full the
// notification is dropped and counted.
type AsyncBus struct {
	ch       chan Notification
	sink     Sink
	logger   *slog.Logger
	dropped  atomic.Int64
	dropWarn *rate.Limiter

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncBus starts a bus delivering to sink with the given buffer
// size (0 selects DefaultBusBuffer). Call Close to drain and stop the
// delivery goroutine.
func NewAsyncBus(sink Sink, buffer int, logger *slog.Logger) *AsyncBus {
	if buffer <= 0 {
		buffer = DefaultBusBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &AsyncBus{
		ch:     make(chan Notification, buffer),
		sink:   sink,
		logger: logger,
		// One drop warning per second at most; drops come in storms.
		dropWarn: rate.NewLimiter(rate.Every(time.Second), 1),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *AsyncBus) run() {
	defer close(b.done)
	for n := range b.ch {
		b.sink.Notify(n)
	}
}

// Notify enqueues a notification. If the bus is full the notification
// is dropped; session operations never wait on event delivery.
func (b *AsyncBus) Notify(n Notification) {
	select {
	case b.ch <- n:
	default:
		dropped := b.dropped.Add(1)
		if b.dropWarn.Allow() {
			b.logger.Warn("event bus full, dropping notification",
				"type", n.Type,
				"session_id", n.SessionID,
				"dropped_total", dropped,
			)
		}
	}
}

// Dropped reports how many notifications have been discarded since the
// bus started.
func (b *AsyncBus) Dropped() int64 {
	return b.dropped.Load()
}

// Close drains buffered notifications to the sink and stops the
// delivery goroutine. Notify must not be called after Close.
func (b *AsyncBus) Close() {
	b.closeOnce.Do(func() {
		close(b.ch)
		<-b.done
	})
}
