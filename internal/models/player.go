package models

import "fmt"

// Player is a seat at the table for the duration of a round.
type Player struct {
	Name      string `json:"name"`
	AvatarRef string `json:"avatar,omitempty"`
	Score     int    `json:"score"`
}

// RosterEntry is the identity a host supplies for a seat. Both fields are optional.
type RosterEntry struct {
	Name      string `json:"name"`
	AvatarRef string `json:"avatar"`
}

// NewRoster builds count players from entries, falling back to "Player N" for
// seats with no entry or an empty name. Extra entries are ignored.
func NewRoster(count int, entries []RosterEntry) []Player {
	if count <= 0 {
		return nil
	}
	players := make([]Player, count)
	for i := 0; i < count; i++ {
		var e RosterEntry
		if i < len(entries) {
			e = entries[i]
		}
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", i+1)
		}
		players[i] = Player{Name: name, AvatarRef: e.AvatarRef}
	}
	return players
}
