package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nicktill/mixgo/pkg/sdk/event"
	"github.com/nicktill/mixgo/pkg/sdk/transport"
)

// mockSender records every batch it is handed.
type mockSender struct {
	mu      sync.Mutex
	batches [][]*event.Event
	outcome transport.Outcome
}

func (m *mockSender) Send(ctx context.Context, events []*event.Event) transport.Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]*event.Event, len(events))
	copy(batch, events)
	m.batches = append(m.batches, batch)
	return m.outcome
}

func (m *mockSender) batchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockSender) totalEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, b := range m.batches {
		total += len(b)
	}
	return total
}

func (m *mockSender) batch(i int) []*event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches[i]
}

func accepted() transport.Outcome {
	return transport.Outcome{Kind: transport.KindAccepted, Count: 1}
}

func makeEvent(t *testing.T, distinctID string) *event.Event {
	t.Helper()
	ev, err := event.New("test_event", map[string]any{
		event.KeyDistinctID: distinctID,
	})
	require.NoError(t, err)
	return ev
}

func TestAddFlushesAtThreshold(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 5, FlushAfter: time.Hour}, zap.NewNop())

	for i := 0; i < 5; i++ {
		b.Add(makeEvent(t, fmt.Sprintf("d%d", i)))
	}

	require.Eventually(t, func() bool { return sender.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, sender.batch(0), 5)
	assert.Equal(t, 0, b.Pending())
}

func TestAddBelowThresholdDoesNotSend(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 5, FlushAfter: time.Hour}, zap.NewNop())

	for i := 0; i < 4; i++ {
		b.Add(makeEvent(t, fmt.Sprintf("d%d", i)))
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, sender.batchCount())
	assert.Equal(t, 4, b.Pending())

	// The Nth event tips it over.
	b.Add(makeEvent(t, "d4"))
	require.Eventually(t, func() bool { return sender.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, sender.batch(0), 5)
}

func TestTimerFlushesSingleEvent(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 100, FlushAfter: 50 * time.Millisecond}, zap.NewNop())

	b.Add(makeEvent(t, "d1"))
	assert.Equal(t, 1, b.Pending())

	require.Eventually(t, func() bool { return sender.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, sender.batch(0), 1)
	assert.Equal(t, 0, b.Pending())

	// Back to idle: no stale timer fires a second send.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 1, sender.batchCount())
}

func TestThresholdFlushCancelsTimer(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 3, FlushAfter: 50 * time.Millisecond}, zap.NewNop())

	for i := 0; i < 3; i++ {
		b.Add(makeEvent(t, fmt.Sprintf("d%d", i)))
	}

	// Wait past the timer window; the threshold flush must be the only send.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, sender.batchCount())
	assert.Equal(t, 3, sender.totalEvents())
}

func TestConcurrentAddsExactlyOneBatch(t *testing.T) {
	const m = 25
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: m, FlushAfter: time.Hour}, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < m; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b.Add(makeEvent(t, fmt.Sprintf("d%d", i)))
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool { return sender.batchCount() == 1 }, time.Second, 5*time.Millisecond)

	// No event lost or duplicated, regardless of interleaving.
	seen := make(map[string]bool, m)
	for _, ev := range sender.batch(0) {
		assert.False(t, seen[ev.DistinctID()], "duplicate event %s", ev.DistinctID())
		seen[ev.DistinctID()] = true
	}
	assert.Len(t, seen, m)
	assert.Equal(t, 0, b.Pending())
}

func TestFlushSynchronous(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 100, FlushAfter: time.Hour}, zap.NewNop())

	for i := 0; i < 3; i++ {
		b.Add(makeEvent(t, fmt.Sprintf("d%d", i)))
	}

	n := b.Flush(context.Background())
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, sender.batchCount())
	assert.Equal(t, 0, b.Pending())
}

func TestFlushEmptyIsIdempotentAndSendsNothing(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 100, FlushAfter: time.Hour}, zap.NewNop())

	assert.Equal(t, 0, b.Flush(context.Background()))
	assert.Equal(t, 0, b.Flush(context.Background()))
	assert.Equal(t, 0, sender.batchCount())
}

func TestFlushAcknowledgesAttemptNotDelivery(t *testing.T) {
	sender := &mockSender{outcome: transport.Outcome{Kind: transport.KindServer, Message: "boom"}}
	b := New(sender, Config{MaxBatchSize: 100, FlushAfter: time.Hour}, zap.NewNop())

	b.Add(makeEvent(t, "d1"))
	b.Add(makeEvent(t, "d2"))

	// The send failed, but Flush still reports the attempt and the buffer
	// resets: failed batches are dropped, never re-queued.
	assert.Equal(t, 2, b.Flush(context.Background()))
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 0, b.Flush(context.Background()))
	assert.Equal(t, 1, sender.batchCount())
}

func TestClearDiscardsWithoutSending(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 100, FlushAfter: 50 * time.Millisecond}, zap.NewNop())

	b.Add(makeEvent(t, "d1"))
	b.Add(makeEvent(t, "d2"))

	assert.Equal(t, 2, b.Clear())
	assert.Equal(t, 0, b.Pending())

	// Clear also disarmed the timer.
	time.Sleep(120 * time.Millisecond)
	assert.Equal(t, 0, sender.batchCount())
}

func TestCloseFlushesAndRejectsFurtherAdds(t *testing.T) {
	sender := &mockSender{outcome: accepted()}
	b := New(sender, Config{MaxBatchSize: 100, FlushAfter: time.Hour}, zap.NewNop())

	b.Add(makeEvent(t, "d1"))
	b.Add(makeEvent(t, "d2"))
	b.Close(context.Background())

	assert.Equal(t, 1, sender.batchCount())
	assert.Len(t, sender.batch(0), 2)

	b.Add(makeEvent(t, "d3"))
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, 1, sender.batchCount())
}

func TestAutoFlushFailureIsSilentToCallers(t *testing.T) {
	sender := &mockSender{outcome: transport.Outcome{Kind: transport.KindNetwork, Message: "down"}}
	b := New(sender, Config{MaxBatchSize: 2, FlushAfter: time.Hour}, zap.NewNop())

	// Add never surfaces the send failure; the batch is simply dropped.
	b.Add(makeEvent(t, "d1"))
	b.Add(makeEvent(t, "d2"))

	require.Eventually(t, func() bool { return sender.batchCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.Pending())

	// The batcher keeps working after the drop.
	b.Add(makeEvent(t, "d3"))
	assert.Equal(t, 1, b.Pending())
}
