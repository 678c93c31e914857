// Package deck builds shuffled decks of paired cards from the theme catalog.
package deck

import (
	"fmt"
	"sync"

	"github.com/jason-s-yu/pairs/internal/catalog"
	"github.com/jason-s-yu/pairs/internal/models"
)

// Shuffler is the randomness a Builder needs. *math/rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Builder produces decks for any theme in its catalog. It is safe for
// concurrent use; calls into the shuffler are serialised.
type Builder struct {
	catalog *catalog.Catalog

	mu  sync.Mutex
	rng Shuffler
}

// NewBuilder returns a Builder drawing face values from cat and randomness from rng.
func NewBuilder(cat *catalog.Catalog, rng Shuffler) *Builder {
	return &Builder{catalog: cat, rng: rng}
}

// Catalog exposes the catalog the builder draws from.
func (b *Builder) Catalog() *catalog.Catalog {
	return b.catalog
}

// Build returns totalCards cards: the first totalCards/2 face values of theme,
// each twice, in uniformly random order with ids 0..totalCards-1.
func (b *Builder) Build(theme string, totalCards int) (models.Deck, error) {
	if totalCards < 2 || totalCards%2 != 0 {
		return nil, fmt.Errorf("card count %d must be even and at least 2: %w", totalCards, models.ErrInvalidConfiguration)
	}
	faces, ok := b.catalog.FaceValues(theme)
	if !ok {
		return nil, fmt.Errorf("theme %q: %w", theme, models.ErrUnknownTheme)
	}
	pairs := totalCards / 2
	if pairs > len(faces) {
		return nil, fmt.Errorf("theme %q has %d face values, %d pairs requested: %w", theme, len(faces), pairs, models.ErrInsufficientFaceValues)
	}

	values := make([]string, 0, totalCards)
	values = append(values, faces[:pairs]...)
	values = append(values, faces[:pairs]...)

	b.mu.Lock()
	b.rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})
	b.mu.Unlock()

	d := make(models.Deck, totalCards)
	for i, v := range values {
		d[i] = models.Card{ID: i, FaceValue: v}
	}
	return d, nil
}
