// internal/game/table.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/cache"
	"github.com/jason-s-yu/pairs/internal/deck"
	"github.com/jason-s-yu/pairs/internal/metrics"
	"github.com/jason-s-yu/pairs/internal/models"
	log "github.com/sirupsen/logrus"
)

// Sound assets the client plays for the sound effects.
const (
	MatchSoundURL    = "/sounds/success.mp3"
	MismatchSoundURL = "/sounds/fail.mp3"
)

// TableEventType is an enum-like type for events pushed to the client.
type TableEventType string

const (
	EventSyncState         TableEventType = "sync_state"
	EventPlayMatchSound    TableEventType = "play_match_sound"
	EventPlayMismatchSound TableEventType = "play_mismatch_sound"
	EventRoundComplete     TableEventType = "round_complete"
)

// TableEvent is broadcast to the client rendering a table.
type TableEvent struct {
	Type    TableEventType         `json:"type"`
	State   *Snapshot              `json:"state,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// RoundSummary describes a finished round.
type RoundSummary struct {
	RoundID uuid.UUID `json:"roundId"`
	Theme   string    `json:"theme"`
	Scores  []int     `json:"scores"`
	Names   []string  `json:"names"`
	Winners []int     `json:"winners"`
}

// Table hosts rounds for one client. It runs the engine under a lock and
// executes scheduled resolutions with timers, feeding them back into the engine.
type Table struct {
	ID     uuid.UUID
	Config TableConfig

	engine  Engine
	builder *deck.Builder

	state        RoundState
	started      bool
	resolveTimer *time.Timer
	actionIndex  int
	lastSeen     time.Time
	mu           sync.Mutex

	// BroadcastFn sends events to the client. If nil, no broadcast is done.
	// It is called with the table lock held and must not call back into the table.
	BroadcastFn func(ev TableEvent)

	// OnRoundComplete is invoked once per round after the last pair resolves.
	OnRoundComplete func(tableID uuid.UUID, summary RoundSummary)
}

// NewTable creates a table; call StartRound to deal the first round.
func NewTable(cfg TableConfig, builder *deck.Builder) *Table {
	return &Table{
		ID:       uuid.New(),
		Config:   cfg,
		engine:   NewEngine(cfg.RevealDelay()),
		builder:  builder,
		lastSeen: time.Now(),
	}
}

// StartRound deals a new round with the table's config. A resolution still
// pending from the previous round is discarded.
func (t *Table) StartRound() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startRoundLocked()
}

// Reconfigure replaces the table config and deals a new round with it. The
// previous config is kept if the new one cannot deal a round.
func (t *Table) Reconfigure(cfg TableConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	prevCfg, prevEngine := t.Config, t.engine
	t.Config = cfg
	t.engine = NewEngine(cfg.RevealDelay())
	if err := t.startRoundLocked(); err != nil {
		t.Config, t.engine = prevCfg, prevEngine
		return err
	}
	return nil
}

// CurrentConfig returns the config the current round was dealt with.
func (t *Table) CurrentConfig() TableConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	cfg := t.Config
	cfg.Players = append([]models.RosterEntry(nil), t.Config.Players...)
	return cfg
}

// startRoundLocked builds a deck and initializes the round. Assumes lock is held.
func (t *Table) startRoundLocked() error {
	d, err := t.builder.Build(t.Config.Theme, t.Config.TotalCards)
	if err != nil {
		return fmt.Errorf("failed to build deck for table %s: %w", t.ID, err)
	}
	state, err := t.engine.Initialize(d, t.Config.Roster())
	if err != nil {
		return fmt.Errorf("failed to initialize round for table %s: %w", t.ID, err)
	}

	t.stopResolveTimer()
	t.state = state
	t.started = true
	t.lastSeen = time.Now()
	metrics.RoundsStarted.Inc()

	names := make([]string, len(state.Players))
	for i, p := range state.Players {
		names[i] = p.Name
	}
	t.logAction("round_start", map[string]interface{}{
		"theme":      t.Config.Theme,
		"totalCards": t.Config.TotalCards,
		"players":    names,
	})
	log.Debugf("Table %s: started round %s (%s, %d cards, %d players).", t.ID, state.RoundID, t.Config.Theme, t.Config.TotalCards, len(names))

	t.broadcastSyncState()
	return nil
}

// SelectCard forwards a tap to the engine. It reports whether the tap was
// accepted; ignored taps leave the round untouched.
func (t *Table) SelectCard(cardID int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		log.Debugf("Table %s: tap on card %d before the first round. Ignoring.", t.ID, cardID)
		return false
	}
	t.lastSeen = time.Now()

	prev := t.state
	next, effects := t.engine.SelectCard(prev, cardID)
	if len(next.Pending) == len(prev.Pending) {
		metrics.Selections.WithLabelValues("ignored").Inc()
		log.Debugf("Table %s: tap on card %d ignored (pending=%d).", t.ID, cardID, len(prev.Pending))
		return false
	}
	t.state = next
	t.logAction("select_card", map[string]interface{}{
		"card_id": cardID,
		"player":  next.ActivePlayerIndex,
	})
	if len(effects) == 0 {
		metrics.Selections.WithLabelValues("revealed").Inc()
	}

	t.broadcastSyncState()
	t.handleEffects(effects)
	return true
}

// handleEffects performs each effect in order. Assumes lock is held.
func (t *Table) handleEffects(effects []Effect) {
	for _, ef := range effects {
		switch ef.Kind {
		case EffectPlayMatchSound:
			metrics.Selections.WithLabelValues("match").Inc()
			t.fireEvent(TableEvent{
				Type:    EventPlayMatchSound,
				Payload: map[string]interface{}{"sound": MatchSoundURL},
			})
		case EffectPlayMismatchSound:
			metrics.Selections.WithLabelValues("mismatch").Inc()
			t.fireEvent(TableEvent{
				Type:    EventPlayMismatchSound,
				Payload: map[string]interface{}{"sound": MismatchSoundURL},
			})
		case EffectScheduleResolution:
			if ef.Resolution == nil {
				log.Warnf("Table %s: resolution effect without ticket.", t.ID)
				continue
			}
			t.scheduleResolution(*ef.Resolution, ef.Delay)
		}
	}
}

// scheduleResolution arms the timer that feeds res back into the engine.
// Assumes lock is held.
func (t *Table) scheduleResolution(res Resolution, delay time.Duration) {
	t.stopResolveTimer()
	t.resolveTimer = time.AfterFunc(delay, func() {
		t.applyResolution(res)
	})
}

// applyResolution runs when a resolution timer fires. Tickets for a
// superseded round or evaluation are dropped by the engine.
func (t *Table) applyResolution(res Resolution) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, ok := t.engine.Resolve(t.state, res)
	if !ok {
		log.Debugf("Table %s: stale resolution for round %s seq %d dropped.", t.ID, res.RoundID, res.Seq)
		return
	}
	t.state = next
	t.resolveTimer = nil
	t.logAction("resolve", map[string]interface{}{
		"match":  res.Match,
		"seq":    res.Seq,
		"player": next.ActivePlayerIndex,
	})
	t.broadcastSyncState()

	if IsComplete(next) {
		t.completeRound()
	}
}

// completeRound reports the finished round. Assumes lock is held.
func (t *Table) completeRound() {
	summary := RoundSummary{
		RoundID: t.state.RoundID,
		Theme:   t.Config.Theme,
		Scores:  make([]int, len(t.state.Players)),
		Names:   make([]string, len(t.state.Players)),
		Winners: Winners(t.state),
	}
	for i, p := range t.state.Players {
		summary.Scores[i] = p.Score
		summary.Names[i] = p.Name
	}
	metrics.RoundsCompleted.Inc()
	t.logAction("round_complete", map[string]interface{}{
		"scores":  summary.Scores,
		"names":   summary.Names,
		"winners": summary.Winners,
	})
	snap := BuildSnapshot(t.ID, t.Config.Theme, t.state)
	t.fireEvent(TableEvent{
		Type:  EventRoundComplete,
		State: &snap,
		Payload: map[string]interface{}{
			"winners": summary.Winners,
			"scores":  summary.Scores,
		},
	})
	if t.OnRoundComplete != nil {
		t.OnRoundComplete(t.ID, summary)
	}
	log.Infof("Table %s: round %s complete. Winner(s): %v. Scores: %v", t.ID, summary.RoundID, summary.Winners, summary.Scores)
}

// Snapshot returns the current render model.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return BuildSnapshot(t.ID, t.Config.Theme, t.state)
}

// State returns the current round state. The copy shares nothing with the table.
func (t *Table) State() RoundState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

// LastSeen is the time of the last round start or accepted tap.
func (t *Table) LastSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

// SetBroadcast installs fn as the table's broadcast function.
func (t *Table) SetBroadcast(fn func(ev TableEvent)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.BroadcastFn = fn
}

// SendSyncState pushes the current snapshot, e.g. after a client connects.
func (t *Table) SendSyncState() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcastSyncState()
}

// Close stops any pending resolution; the table must not be used afterwards.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopResolveTimer()
	t.started = false
}

// stopResolveTimer cancels the pending timer, if any. Assumes lock is held.
func (t *Table) stopResolveTimer() {
	if t.resolveTimer != nil {
		t.resolveTimer.Stop()
		t.resolveTimer = nil
	}
}

// broadcastSyncState sends the snapshot to the client. Assumes lock is held.
func (t *Table) broadcastSyncState() {
	snap := BuildSnapshot(t.ID, t.Config.Theme, t.state)
	t.fireEvent(TableEvent{Type: EventSyncState, State: &snap})
}

// fireEvent is a helper to call BroadcastFn if set. Assumes lock is held.
func (t *Table) fireEvent(ev TableEvent) {
	if t.BroadcastFn != nil {
		t.BroadcastFn(ev)
	}
}

// logAction sends the action details to the historian via Redis.
// Assumes lock is held.
func (t *Table) logAction(actionType string, payload map[string]interface{}) {
	t.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoundActionRecord{
		TableID:       t.ID,
		RoundID:       t.state.RoundID,
		ActionIndex:   t.actionIndex,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if cache.Rdb == nil {
		return
	}
	go func(rec cache.RoundActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishRoundAction(ctx, rec); err != nil {
			log.Warnf("Error publishing action %d for table %s: %v", rec.ActionIndex, t.ID, err)
		}
	}(record)
}
