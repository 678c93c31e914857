// internal/game/config.go
package game

import (
	"fmt"
	"time"

	"github.com/jason-s-yu/pairs/internal/models"
)

// SupportedCardCounts are the table sizes offered to players.
var SupportedCardCounts = []int{12, 24, 36}

// DefaultMaxPlayers bounds the roster size when no limit is configured.
const DefaultMaxPlayers = 4

// TableConfig is the round setup supplied by the client that creates a table.
type TableConfig struct {
	Theme         string               `json:"theme"`         // catalog theme name
	TotalCards    int                  `json:"totalCards"`    // even, one of SupportedCardCounts
	PlayerCount   int                  `json:"playerCount"`   // number of seats
	Players       []models.RosterEntry `json:"players"`       // optional identities per seat
	RevealDelayMs int                  `json:"revealDelayMs"` // how long a pair stays face-up; 0 uses the default
}

// DefaultTableConfig mirrors the setup screen's initial selections.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		Theme:         "Paddington",
		TotalCards:    12,
		PlayerCount:   2,
		RevealDelayMs: int(DefaultRevealDelay / time.Millisecond),
	}
}

// RevealDelay converts RevealDelayMs, falling back to DefaultRevealDelay.
func (c TableConfig) RevealDelay() time.Duration {
	if c.RevealDelayMs <= 0 {
		return DefaultRevealDelay
	}
	return time.Duration(c.RevealDelayMs) * time.Millisecond
}

// Roster builds the seat list, defaulting missing names.
func (c TableConfig) Roster() []models.Player {
	return models.NewRoster(c.PlayerCount, c.Players)
}

// Validate checks the host-level limits. Theme and pair availability are
// checked by the deck builder when the round starts.
func (c TableConfig) Validate(maxPlayers int) error {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}
	if c.PlayerCount < 1 || c.PlayerCount > maxPlayers {
		return fmt.Errorf("playerCount must be between 1 and %d: %w", maxPlayers, models.ErrInvalidConfiguration)
	}
	supported := false
	for _, n := range SupportedCardCounts {
		if c.TotalCards == n {
			supported = true
			break
		}
	}
	if !supported {
		return fmt.Errorf("totalCards must be one of %v: %w", SupportedCardCounts, models.ErrInvalidConfiguration)
	}
	if c.RevealDelayMs < 0 {
		return fmt.Errorf("revealDelayMs must be non-negative: %w", models.ErrInvalidConfiguration)
	}
	return nil
}

// Update applies the keys present in newCfg, leaving the others untouched.
// Values arrive from decoded JSON, so numbers may be float64.
func (c *TableConfig) Update(newCfg map[string]interface{}) error {
	var ok bool

	assignString := func(field *string, key string) error {
		if val, exists := newCfg[key]; exists && val != nil {
			*field, ok = val.(string)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	assignInt := func(field *int, key string) error {
		if val, exists := newCfg[key]; exists && val != nil {
			switch v := val.(type) {
			case float64:
				if v != float64(int(v)) {
					return fmt.Errorf("%s must be an integer", key)
				}
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	if err := assignString(&c.Theme, "theme"); err != nil {
		return err
	}
	if err := assignInt(&c.TotalCards, "totalCards"); err != nil {
		return err
	}
	if err := assignInt(&c.PlayerCount, "playerCount"); err != nil {
		return err
	}
	if err := assignInt(&c.RevealDelayMs, "revealDelayMs"); err != nil {
		return err
	}

	if val, exists := newCfg["players"]; exists && val != nil {
		list, ok := val.([]interface{})
		if !ok {
			return fmt.Errorf("invalid type for players")
		}
		entries := make([]models.RosterEntry, 0, len(list))
		for i, item := range list {
			if item == nil {
				entries = append(entries, models.RosterEntry{})
				continue
			}
			m, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("invalid type for players[%d]", i)
			}
			var e models.RosterEntry
			if name, exists := m["name"]; exists && name != nil {
				if e.Name, ok = name.(string); !ok {
					return fmt.Errorf("invalid type for players[%d].name", i)
				}
			}
			if avatar, exists := m["avatar"]; exists && avatar != nil {
				if e.AvatarRef, ok = avatar.(string); !ok {
					return fmt.Errorf("invalid type for players[%d].avatar", i)
				}
			}
			entries = append(entries, e)
		}
		c.Players = entries
	}
	return nil
}

// ParseConfig applies cfg on top of current and returns the result.
func ParseConfig(cfg map[string]interface{}, current TableConfig) (TableConfig, error) {
	out := current
	err := out.Update(cfg)
	return out, err
}
