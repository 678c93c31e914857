package game

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/catalog"
	"github.com/jason-s-yu/pairs/internal/deck"
	"github.com/jason-s-yu/pairs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []TableEvent
}

func (mb *mockBroadcaster) broadcastFn(ev TableEvent) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

func (mb *mockBroadcaster) ofType(t TableEventType) []TableEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []TableEvent
	for _, ev := range mb.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) last() *TableEvent {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

// setupTestTable starts a round on a table with a short reveal delay.
func setupTestTable(t *testing.T, players, cards int) (*Table, *mockBroadcaster) {
	t.Helper()
	cfg := DefaultTableConfig()
	cfg.PlayerCount = players
	cfg.TotalCards = cards
	cfg.RevealDelayMs = 5

	b := deck.NewBuilder(catalog.Default(), rand.New(rand.NewSource(11)))
	tbl := NewTable(cfg, b)
	mb := &mockBroadcaster{}
	tbl.BroadcastFn = mb.broadcastFn
	require.NoError(t, tbl.StartRound())
	t.Cleanup(tbl.Close)
	return tbl, mb
}

// pairIDs groups the current deck's card ids by face value.
func pairIDs(s RoundState) map[string][]int {
	out := make(map[string][]int)
	for _, c := range s.Deck {
		out[c.FaceValue] = append(out[c.FaceValue], c.ID)
	}
	return out
}

// mismatchIDs returns two unmatched ids with different faces.
func mismatchIDs(t *testing.T, s RoundState) (int, int) {
	t.Helper()
	var first *models.Card
	for i := range s.Deck {
		c := s.Deck[i]
		if c.Matched {
			continue
		}
		if first == nil {
			first = &c
			continue
		}
		if c.FaceValue != first.FaceValue {
			return first.ID, c.ID
		}
	}
	t.Fatal("no mismatching pair left")
	return -1, -1
}

func waitIdle(t *testing.T, tbl *Table) {
	t.Helper()
	require.Eventually(t, func() bool { return !tbl.State().Resolving() }, time.Second, time.Millisecond)
}

func TestStartRoundBroadcastsSnapshot(t *testing.T) {
	tbl, mb := setupTestTable(t, 2, 12)
	ev := mb.last()
	require.NotNil(t, ev)
	assert.Equal(t, EventSyncState, ev.Type)
	require.NotNil(t, ev.State)
	assert.Len(t, ev.State.Cards, 12)
	assert.Len(t, ev.State.Players, 2)
	assert.Equal(t, "Player 1", ev.State.Players[0].Name)
	assert.True(t, ev.State.Players[0].IsActive)
	assert.Equal(t, 4, ev.State.Columns)
	assert.Equal(t, 3, ev.State.Rows)
	assert.Equal(t, tbl.ID, ev.State.TableID)
	for _, c := range ev.State.Cards {
		assert.Empty(t, c.FaceValue, "face-down cards must not leak their face")
	}
}

func TestStartRoundRejectsBadConfig(t *testing.T) {
	b := deck.NewBuilder(catalog.Default(), rand.New(rand.NewSource(1)))

	cfg := DefaultTableConfig()
	cfg.Theme = "Moomins"
	err := NewTable(cfg, b).StartRound()
	assert.True(t, errors.Is(err, models.ErrUnknownTheme))

	cfg = DefaultTableConfig()
	cfg.TotalCards = 13
	err = NewTable(cfg, b).StartRound()
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))

	cfg = DefaultTableConfig()
	cfg.PlayerCount = 0
	err = NewTable(cfg, b).StartRound()
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
}

func TestSelectBeforeStartIgnored(t *testing.T) {
	b := deck.NewBuilder(catalog.Default(), rand.New(rand.NewSource(1)))
	tbl := NewTable(DefaultTableConfig(), b)
	assert.False(t, tbl.SelectCard(0))
}

func TestTableMismatchPassesTurnAfterDelay(t *testing.T) {
	tbl, mb := setupTestTable(t, 2, 12)
	a, c := mismatchIDs(t, tbl.State())
	mb.clear()

	require.True(t, tbl.SelectCard(a))
	require.True(t, tbl.SelectCard(c))

	sounds := mb.ofType(EventPlayMismatchSound)
	require.Len(t, sounds, 1)
	assert.Equal(t, MismatchSoundURL, sounds[0].Payload["sound"])
	assert.Empty(t, mb.ofType(EventPlayMatchSound))

	waitIdle(t, tbl)
	s := tbl.State()
	assert.Equal(t, 1, s.ActivePlayerIndex)
	for _, card := range s.Deck {
		assert.False(t, card.Revealed)
	}
	snap := tbl.Snapshot()
	assert.True(t, snap.Players[1].IsActive)
}

func TestTableMatchKeepsTurn(t *testing.T) {
	tbl, mb := setupTestTable(t, 2, 12)
	for _, ids := range pairIDs(tbl.State()) {
		require.True(t, tbl.SelectCard(ids[0]))
		require.True(t, tbl.SelectCard(ids[1]))
		break
	}
	require.Len(t, mb.ofType(EventPlayMatchSound), 1)

	waitIdle(t, tbl)
	s := tbl.State()
	assert.Equal(t, 0, s.ActivePlayerIndex)
	assert.Equal(t, 1, s.Players[0].Score)
	assert.Empty(t, s.Pending)
}

func TestTableIgnoresTapsWhileResolving(t *testing.T) {
	cfg := DefaultTableConfig()
	cfg.RevealDelayMs = 200
	tbl := NewTable(cfg, deck.NewBuilder(catalog.Default(), rand.New(rand.NewSource(3))))
	require.NoError(t, tbl.StartRound())
	defer tbl.Close()

	a, c := mismatchIDs(t, tbl.State())
	require.True(t, tbl.SelectCard(a))
	require.True(t, tbl.SelectCard(c))

	before := tbl.State()
	for _, card := range before.Deck {
		assert.False(t, tbl.SelectCard(card.ID))
	}
	assert.Equal(t, before, tbl.State())
}

func TestStartRoundDiscardsPendingResolution(t *testing.T) {
	tbl, _ := setupTestTable(t, 2, 12)
	old := tbl.State()
	a, c := mismatchIDs(t, old)
	require.True(t, tbl.SelectCard(a))
	require.True(t, tbl.SelectCard(c))

	require.NoError(t, tbl.StartRound())
	fresh := tbl.State()
	assert.NotEqual(t, old.RoundID, fresh.RoundID)

	// outlast the discarded timer; the new round must be untouched
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, fresh, tbl.State())

	// a late callback from the old round is a no-op
	tbl.applyResolution(Resolution{RoundID: old.RoundID, Seq: 0})
	assert.Equal(t, fresh, tbl.State())
}

func TestRoundCompleteReportsSummary(t *testing.T) {
	tbl, mb := setupTestTable(t, 1, 12)

	var mu sync.Mutex
	var got *RoundSummary
	tbl.OnRoundComplete = func(tableID uuid.UUID, summary RoundSummary) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, tbl.ID, tableID)
		got = &summary
	}

	for _, ids := range pairIDs(tbl.State()) {
		require.True(t, tbl.SelectCard(ids[0]))
		require.True(t, tbl.SelectCard(ids[1]))
		waitIdle(t, tbl)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil
	}, time.Second, time.Millisecond)

	assert.Equal(t, []int{6}, got.Scores)
	assert.Equal(t, []int{0}, got.Winners)
	assert.Equal(t, "Paddington", got.Theme)

	done := mb.ofType(EventRoundComplete)
	require.Len(t, done, 1)
	require.NotNil(t, done[0].State)
	assert.True(t, done[0].State.Complete)
	assert.Equal(t, []int{0}, done[0].State.Winners)

	assert.False(t, tbl.SelectCard(0), "matched cards stay put")
}

func TestTableStore(t *testing.T) {
	store := NewTableStore()
	b := deck.NewBuilder(catalog.Default(), rand.New(rand.NewSource(1)))
	tbl := NewTable(DefaultTableConfig(), b)
	store.AddTable(tbl)

	got, ok := store.GetTable(tbl.ID)
	require.True(t, ok)
	assert.Same(t, tbl, got)
	assert.Equal(t, 1, store.Len())

	assert.Empty(t, store.PruneIdle(time.Now(), time.Hour))
	pruned := store.PruneIdle(time.Now().Add(2*time.Hour), time.Hour)
	assert.Equal(t, []uuid.UUID{tbl.ID}, pruned)
	_, ok = store.GetTable(tbl.ID)
	assert.False(t, ok)

	store.DeleteTable(uuid.New())
	assert.Equal(t, 0, store.Len())
}

func TestReconfigureDealsWithNewConfig(t *testing.T) {
	tbl, mb := setupTestTable(t, 2, 12)
	before := tbl.State().RoundID

	cfg := tbl.CurrentConfig()
	cfg.TotalCards = 24
	cfg.Theme = "Lilo & Stitch"
	cfg.PlayerCount = 3
	require.NoError(t, tbl.Reconfigure(cfg))

	s := tbl.State()
	assert.NotEqual(t, before, s.RoundID)
	assert.Len(t, s.Deck, 24)
	assert.Len(t, s.Players, 3)
	assert.Equal(t, 5, mb.last().State.Columns)

	bad := cfg
	bad.Theme = "Moomins"
	err := tbl.Reconfigure(bad)
	assert.True(t, errors.Is(err, models.ErrUnknownTheme))
	assert.Equal(t, "Lilo & Stitch", tbl.CurrentConfig().Theme, "failed reconfigure keeps the old config")
	assert.Equal(t, s.RoundID, tbl.State().RoundID)
}
