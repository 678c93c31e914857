package historian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/cache"
	"github.com/jason-s-yu/pairs/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	batches   [][]cache.RoundActionRecord
	abandoned []uuid.UUID
	failSave  bool
}

func (f *fakeStore) SaveActions(ctx context.Context, records []cache.RoundActionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errors.New("db down")
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeStore) MarkRoundAbandoned(ctx context.Context, roundID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.abandoned = append(f.abandoned, roundID)
	return true, nil
}

func (f *fakeStore) saved() []cache.RoundActionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []cache.RoundActionRecord
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

// chanQueue serves payloads pushed onto a channel.
type chanQueue chan []byte

func (q chanQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	select {
	case p := <-q:
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func encode(t *testing.T, rec cache.RoundActionRecord) []byte {
	t.Helper()
	data, err := cache.EncodeRecord(rec)
	require.NoError(t, err)
	return data
}

func testConfig(batch int) *config.Config {
	return &config.Config{BatchSize: batch, FlushDelay: time.Hour, RoundIdle: time.Minute}
}

func TestHandlePayloadFlushesFullBatch(t *testing.T) {
	store := &fakeStore{}
	s := NewService(testConfig(2), chanQueue(nil), store)
	round := uuid.New()
	ctx := context.Background()

	s.handlePayload(ctx, encode(t, cache.RoundActionRecord{RoundID: round, ActionIndex: 1, ActionType: "round_start"}), time.Now())
	assert.Empty(t, store.saved())

	s.handlePayload(ctx, []byte(`{not json`), time.Now())
	s.handlePayload(ctx, []byte(`{"action_type":"select_card"}`), time.Now())
	assert.Empty(t, store.saved(), "malformed entries are dropped")

	s.handlePayload(ctx, encode(t, cache.RoundActionRecord{RoundID: round, ActionIndex: 2, ActionType: "select_card"}), time.Now())
	saved := store.saved()
	require.Len(t, saved, 2)
	assert.Equal(t, 1, saved[0].ActionIndex)
	assert.Equal(t, 2, saved[1].ActionIndex)
}

func TestFlushFailureDropsBatch(t *testing.T) {
	store := &fakeStore{failSave: true}
	s := NewService(testConfig(10), chanQueue(nil), store)
	s.handlePayload(context.Background(), encode(t, cache.RoundActionRecord{RoundID: uuid.New(), ActionType: "select_card"}), time.Now())
	s.flush(context.Background())

	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	assert.Empty(t, s.batch)
}

func TestSweepInactiveAbandonsOnlyOpenRounds(t *testing.T) {
	store := &fakeStore{}
	s := NewService(testConfig(10), chanQueue(nil), store)
	ctx := context.Background()
	start := time.Now()

	idle, done, busy := uuid.New(), uuid.New(), uuid.New()
	s.handlePayload(ctx, encode(t, cache.RoundActionRecord{RoundID: idle, ActionType: "select_card"}), start)
	s.handlePayload(ctx, encode(t, cache.RoundActionRecord{RoundID: done, ActionType: "select_card"}), start)
	s.handlePayload(ctx, encode(t, cache.RoundActionRecord{RoundID: done, ActionType: "round_complete"}), start)
	s.handlePayload(ctx, encode(t, cache.RoundActionRecord{RoundID: busy, ActionType: "select_card"}), start.Add(50*time.Second))

	stale := s.sweepInactive(ctx, start.Add(90*time.Second))
	assert.Equal(t, []uuid.UUID{idle}, stale)
	assert.Equal(t, []uuid.UUID{idle}, store.abandoned)
	assert.Len(t, store.saved(), 4, "pending actions are flushed before abandoning")

	assert.Empty(t, s.sweepInactive(ctx, start.Add(100*time.Second)))
}

func TestRunDrainsQueueAndFlushesOnShutdown(t *testing.T) {
	store := &fakeStore{}
	q := make(chanQueue, 8)
	s := NewService(testConfig(100), q, store)
	round := uuid.New()
	for i := 1; i <= 3; i++ {
		q <- encode(t, cache.RoundActionRecord{RoundID: round, ActionIndex: i, ActionType: "select_card"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(q) == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("historian did not stop")
	}
	assert.Len(t, store.saved(), 3)
}
