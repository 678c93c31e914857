// internal/game/engine.go
package game

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/models"
)

// DefaultRevealDelay is how long a resolved pair stays face-up before the
// scheduled resolution is applied.
const DefaultRevealDelay = 1000 * time.Millisecond

// EffectKind names a side action the host must perform after a selection.
type EffectKind string

const (
	EffectPlayMatchSound     EffectKind = "play_match_sound"
	EffectPlayMismatchSound  EffectKind = "play_mismatch_sound"
	EffectScheduleResolution EffectKind = "schedule_resolution"
)

// Resolution is the ticket for a deferred pair resolution. It is only valid
// against the round and evaluation it was issued for.
type Resolution struct {
	RoundID uuid.UUID `json:"roundId"`
	Seq     int       `json:"seq"`
	Match   bool      `json:"match"`
}

// Effect is one notification emitted by SelectCard. Delay and Resolution are
// set only for EffectScheduleResolution.
type Effect struct {
	Kind       EffectKind    `json:"kind"`
	Delay      time.Duration `json:"delay,omitempty"`
	Resolution *Resolution   `json:"resolution,omitempty"`
}

// RoundState is the complete state of one round. Values returned by the
// engine never share slices with their inputs.
type RoundState struct {
	RoundID           uuid.UUID
	Deck              models.Deck
	Players           []models.Player
	ActivePlayerIndex int
	// Pending holds the ids of face-up, unresolved cards (at most 2).
	Pending []int
	// Seq counts pair evaluations; it keys Resolution tickets.
	Seq int
}

func (s RoundState) clone() RoundState {
	out := s
	out.Deck = s.Deck.Clone()
	out.Players = make([]models.Player, len(s.Players))
	copy(out.Players, s.Players)
	out.Pending = make([]int, len(s.Pending), 2)
	copy(out.Pending, s.Pending)
	return out
}

// Resolving reports whether a pair is face-up and awaiting its resolution.
func (s RoundState) Resolving() bool {
	return len(s.Pending) == 2
}

// Engine enforces turn rules and scoring. It holds no round state; every
// call takes a RoundState and returns a new one.
type Engine struct {
	RevealDelay time.Duration
}

// NewEngine returns an Engine using delay, or DefaultRevealDelay if delay <= 0.
func NewEngine(delay time.Duration) Engine {
	if delay <= 0 {
		delay = DefaultRevealDelay
	}
	return Engine{RevealDelay: delay}
}

// Initialize starts a round with the given deck and roster. Scores are reset
// and the first player is active.
func (e Engine) Initialize(deck models.Deck, players []models.Player) (RoundState, error) {
	if len(players) < 1 {
		return RoundState{}, fmt.Errorf("a round needs at least one player: %w", models.ErrInvalidConfiguration)
	}
	s := RoundState{
		RoundID: uuid.New(),
		Deck:    deck.Clone(),
		Players: make([]models.Player, len(players)),
		Pending: make([]int, 0, 2),
	}
	copy(s.Players, players)
	for i := range s.Players {
		s.Players[i].Score = 0
	}
	return s, nil
}

// SelectCard reveals cardID for the active player. Taps while a pair is
// resolving, on face-up or matched cards, or on unknown ids return state
// unchanged with no effects.
func (e Engine) SelectCard(state RoundState, cardID int) (RoundState, []Effect) {
	if state.Resolving() {
		return state, nil
	}
	idx := state.Deck.IndexOf(cardID)
	if idx < 0 {
		return state, nil
	}
	if c := state.Deck[idx]; c.Revealed || c.Matched {
		return state, nil
	}

	next := state.clone()
	next.Deck[idx].Revealed = true
	next.Pending = append(next.Pending, cardID)
	if len(next.Pending) < 2 {
		return next, nil
	}

	first := next.Deck[next.Deck.IndexOf(next.Pending[0])]
	second := next.Deck[idx]
	res := &Resolution{RoundID: next.RoundID, Seq: next.Seq, Match: first.FaceValue == second.FaceValue}

	var effects []Effect
	if res.Match {
		for i := range next.Deck {
			if next.Deck[i].FaceValue == first.FaceValue {
				next.Deck[i].Matched = true
			}
		}
		next.Players[next.ActivePlayerIndex].Score++
		effects = append(effects, Effect{Kind: EffectPlayMatchSound})
	} else {
		effects = append(effects, Effect{Kind: EffectPlayMismatchSound})
	}
	effects = append(effects, Effect{Kind: EffectScheduleResolution, Delay: e.RevealDelay, Resolution: res})
	return next, effects
}

// Resolve applies a scheduled resolution. It reports false and returns state
// unchanged when the ticket belongs to another round or evaluation, or when
// no pair is pending.
func (e Engine) Resolve(state RoundState, res Resolution) (RoundState, bool) {
	if res.RoundID != state.RoundID || res.Seq != state.Seq || !state.Resolving() {
		return state, false
	}
	next := state.clone()
	if !res.Match {
		for _, id := range next.Pending {
			if i := next.Deck.IndexOf(id); i >= 0 {
				next.Deck[i].Revealed = false
			}
		}
		next.ActivePlayerIndex = (next.ActivePlayerIndex + 1) % len(next.Players)
	}
	next.Pending = next.Pending[:0]
	next.Seq++
	return next, true
}

// IsComplete reports whether every card in the round is matched.
func IsComplete(state RoundState) bool {
	for _, c := range state.Deck {
		if !c.Matched {
			return false
		}
	}
	return true
}

// Winners returns the indices of the players sharing the highest score.
func Winners(state RoundState) []int {
	best := -1
	var winners []int
	for i, p := range state.Players {
		switch {
		case p.Score > best:
			best = p.Score
			winners = []int{i}
		case p.Score == best:
			winners = append(winners, i)
		}
	}
	return winners
}

// Layout returns the grid for n cards: cols = ceil(sqrt(n)), rows = ceil(n/cols).
func Layout(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}
