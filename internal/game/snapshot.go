// internal/game/snapshot.go
package game

import (
	"github.com/google/uuid"
)

// CardView is a card as the client may see it. FaceValue is only set for
// face-up or matched cards.
type CardView struct {
	ID        int    `json:"id"`
	FaceValue string `json:"faceValue,omitempty"`
	Revealed  bool   `json:"revealed"`
	Matched   bool   `json:"matched"`
}

// PlayerView is one seat with its score and active marker.
type PlayerView struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Score    int    `json:"score"`
	IsActive bool   `json:"isActive"`
}

// Snapshot is the read-only render model of a table's current round.
type Snapshot struct {
	TableID           uuid.UUID    `json:"tableId"`
	RoundID           uuid.UUID    `json:"roundId"`
	Theme             string       `json:"theme"`
	Cards             []CardView   `json:"cards"`
	Players           []PlayerView `json:"players"`
	ActivePlayerIndex int          `json:"activePlayerIndex"`
	PendingCount      int          `json:"pendingCount"`
	Resolving         bool         `json:"resolving"`
	Complete          bool         `json:"complete"`
	Winners           []int        `json:"winners,omitempty"`
	Columns           int          `json:"columns"`
	Rows              int          `json:"rows"`
}

// BuildSnapshot renders s for the client driving tableID.
func BuildSnapshot(tableID uuid.UUID, theme string, s RoundState) Snapshot {
	snap := Snapshot{
		TableID:           tableID,
		RoundID:           s.RoundID,
		Theme:             theme,
		Cards:             make([]CardView, len(s.Deck)),
		Players:           make([]PlayerView, len(s.Players)),
		ActivePlayerIndex: s.ActivePlayerIndex,
		PendingCount:      len(s.Pending),
		Resolving:         s.Resolving(),
	}
	for i, c := range s.Deck {
		cv := CardView{ID: c.ID, Revealed: c.Revealed, Matched: c.Matched}
		if c.Revealed || c.Matched {
			cv.FaceValue = c.FaceValue
		}
		snap.Cards[i] = cv
	}
	for i, p := range s.Players {
		snap.Players[i] = PlayerView{
			Index:    i,
			Name:     p.Name,
			Avatar:   p.AvatarRef,
			Score:    p.Score,
			IsActive: i == s.ActivePlayerIndex,
		}
	}
	// complete once the last pair has been resolved
	if len(s.Deck) > 0 && IsComplete(s) && !s.Resolving() {
		snap.Complete = true
		snap.Winners = Winners(s)
	}
	snap.Columns, snap.Rows = Layout(len(s.Deck))
	return snap
}
