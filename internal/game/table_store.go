package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/metrics"
)

// TableStore holds live tables in memory.
type TableStore struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
}

func NewTableStore() *TableStore {
	return &TableStore{
		tables: make(map[uuid.UUID]*Table),
	}
}

func (s *TableStore) AddTable(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.ID] = t
	metrics.ActiveTables.Set(float64(len(s.tables)))
}

func (s *TableStore) GetTable(id uuid.UUID) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.tables[id]
	return t, exists
}

// DeleteTable removes the table and stops its pending timer.
func (s *TableStore) DeleteTable(id uuid.UUID) {
	s.mu.Lock()
	t, exists := s.tables[id]
	delete(s.tables, id)
	metrics.ActiveTables.Set(float64(len(s.tables)))
	s.mu.Unlock()
	if exists {
		t.Close()
	}
}

// Len returns the number of live tables.
func (s *TableStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables)
}

// PruneIdle deletes tables with no activity since before now-maxIdle and
// returns their ids.
func (s *TableStore) PruneIdle(now time.Time, maxIdle time.Duration) []uuid.UUID {
	s.mu.Lock()
	candidates := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		candidates = append(candidates, t)
	}
	s.mu.Unlock()

	var pruned []uuid.UUID
	for _, t := range candidates {
		if now.Sub(t.LastSeen()) > maxIdle {
			s.DeleteTable(t.ID)
			pruned = append(pruned, t.ID)
		}
	}
	return pruned
}
