// Package batch accumulates events and flushes them to a sender on a size
// threshold, a one-shot timer, or an explicit flush. The buffer, the timer
// handle and the threshold comparison are all guarded by a single mutex, so
// every state transition is serialized; only the network send itself runs
// outside the critical section.
package batch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nicktill/mixgo/pkg/sdk/event"
	"github.com/nicktill/mixgo/pkg/sdk/transport"
)

// Sender delivers one batch of events. The client implements it by shaping
// live payloads, attaching credentials and calling the transport.
type Sender interface {
	Send(ctx context.Context, events []*event.Event) transport.Outcome
}

// Config holds the batcher's flush triggers.
type Config struct {
	MaxBatchSize int           // flush when the buffer reaches this size
	FlushAfter   time.Duration // flush this long after the first buffered event
	SendTimeout  time.Duration // budget for each detached auto-flush send
}

// Batcher buffers events between flushes. All methods are safe for
// concurrent use.
type Batcher struct {
	cfg    Config
	sender Sender
	log    *zap.Logger

	mu     sync.Mutex
	events []*event.Event
	timer  *time.Timer
	closed bool
}

// New creates a batcher. It is idle until the first Add.
func New(sender Sender, cfg Config, log *zap.Logger) *Batcher {
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Batcher{
		cfg:    cfg,
		sender: sender,
		log:    log,
		events: make([]*event.Event, 0, cfg.MaxBatchSize),
	}
}

// Add appends one event to the buffer. Reaching the size threshold flushes
// asynchronously; the caller never waits on the network. The first event
// into an idle buffer arms the flush timer.
func (b *Batcher) Add(ev *event.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Warn("event dropped, batcher closed", zap.String("event", ev.Name()))
		return
	}

	b.events = append(b.events, ev)
	if len(b.events) >= b.cfg.MaxBatchSize {
		batch := b.take()
		b.mu.Unlock()
		go b.send(batch, "threshold")
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.cfg.FlushAfter, b.onTimeout)
	}
	b.mu.Unlock()
}

// Flush synchronously sends whatever is buffered and resets to idle. It
// reports how many events the attempt covered; it does not report delivery —
// the send outcome, success or not, is only logged.
func (b *Batcher) Flush(ctx context.Context) int {
	b.mu.Lock()
	batch := b.take()
	b.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}
	outcome := b.sender.Send(ctx, batch)
	b.observe(outcome, len(batch), "explicit")
	return len(batch)
}

// Clear discards all buffered events without sending and resets to idle.
// It returns the number of events dropped.
func (b *Batcher) Clear() int {
	b.mu.Lock()
	batch := b.take()
	b.mu.Unlock()
	return len(batch)
}

// Pending returns the number of buffered events.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Close performs one best-effort final flush and rejects further adds.
func (b *Batcher) Close(ctx context.Context) {
	b.mu.Lock()
	b.closed = true
	batch := b.take()
	b.mu.Unlock()

	if len(batch) > 0 {
		outcome := b.sender.Send(ctx, batch)
		b.observe(outcome, len(batch), "shutdown")
	}
}

// take empties the buffer and disarms the timer. Callers must hold b.mu.
func (b *Batcher) take() []*event.Event {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.events) == 0 {
		return nil
	}
	batch := b.events
	b.events = make([]*event.Event, 0, b.cfg.MaxBatchSize)
	return batch
}

// onTimeout fires when the flush timer expires. A fire against an already
// emptied buffer is a benign race and a no-op.
func (b *Batcher) onTimeout() {
	b.mu.Lock()
	b.timer = nil
	batch := b.take()
	b.mu.Unlock()

	if len(batch) > 0 {
		b.send(batch, "timer")
	}
}

// send delivers one auto-flushed batch outside the critical section. The
// outcome is observable only through logging; a failed batch is dropped,
// never re-queued, to keep the buffer bounded under sustained outage.
func (b *Batcher) send(batch []*event.Event, trigger string) {
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.SendTimeout)
	defer cancel()

	outcome := b.sender.Send(ctx, batch)
	b.observe(outcome, len(batch), trigger)
}

func (b *Batcher) observe(outcome transport.Outcome, size int, trigger string) {
	if outcome.Accepted() {
		b.log.Debug("batch sent",
			zap.Int("events", size),
			zap.String("trigger", trigger))
		return
	}
	b.log.Warn("batch dropped after failed send",
		zap.Int("events", size),
		zap.String("trigger", trigger),
		zap.String("kind", outcome.Kind.String()),
		zap.String("message", outcome.Message))
}
