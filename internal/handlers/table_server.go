// internal/handlers/table_server.go
package handlers

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/deck"
	"github.com/jason-s-yu/pairs/internal/game"
	"github.com/sirupsen/logrus"
)

// TableServer owns the live tables and the socket hubs attached to them.
type TableServer struct {
	Store   *game.TableStore
	Builder *deck.Builder
	Logger  *logrus.Logger

	// MaxPlayers bounds the roster of a new table.
	MaxPlayers int
	// RevealDelay is used for tables that do not request their own delay.
	RevealDelay time.Duration

	mu   sync.Mutex
	hubs map[uuid.UUID]*tableHub
}

func NewTableServer(builder *deck.Builder, logger *logrus.Logger, maxPlayers int, revealDelay time.Duration) *TableServer {
	if maxPlayers <= 0 {
		maxPlayers = game.DefaultMaxPlayers
	}
	return &TableServer{
		Store:       game.NewTableStore(),
		Builder:     builder,
		Logger:      logger,
		MaxPlayers:  maxPlayers,
		RevealDelay: revealDelay,
		hubs:        make(map[uuid.UUID]*tableHub),
	}
}

// CreateTable validates cfg, deals the first round and registers the table.
func (ts *TableServer) CreateTable(cfg game.TableConfig) (*game.Table, error) {
	if cfg.RevealDelayMs == 0 && ts.RevealDelay > 0 {
		cfg.RevealDelayMs = int(ts.RevealDelay / time.Millisecond)
	}
	if err := cfg.Validate(ts.MaxPlayers); err != nil {
		return nil, err
	}

	t := game.NewTable(cfg, ts.Builder)
	hub := newTableHub(t.ID, ts.Logger)
	t.SetBroadcast(hub.broadcast)
	t.OnRoundComplete = func(tableID uuid.UUID, summary game.RoundSummary) {
		ts.Logger.WithFields(logrus.Fields{
			"table":   tableID,
			"round":   summary.RoundID,
			"winners": summary.Winners,
		}).Info("round complete")
	}

	if err := t.StartRound(); err != nil {
		return nil, fmt.Errorf("failed to start table: %w", err)
	}

	ts.mu.Lock()
	ts.hubs[t.ID] = hub
	ts.mu.Unlock()
	ts.Store.AddTable(t)
	return t, nil
}

// RestartTable deals a new round, first applying any config changes in update.
func (ts *TableServer) RestartTable(t *game.Table, update map[string]interface{}) error {
	if len(update) > 0 {
		cfg, err := game.ParseConfig(update, t.CurrentConfig())
		if err != nil {
			return err
		}
		if err := cfg.Validate(ts.MaxPlayers); err != nil {
			return err
		}
		return t.Reconfigure(cfg)
	}
	return t.StartRound()
}

// hub returns the socket hub of a live table.
func (ts *TableServer) hub(id uuid.UUID) (*tableHub, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	h, ok := ts.hubs[id]
	return h, ok
}

// RemoveTable drops a table and disconnects its clients.
func (ts *TableServer) RemoveTable(id uuid.UUID) {
	ts.Store.DeleteTable(id)
	ts.mu.Lock()
	h, ok := ts.hubs[id]
	delete(ts.hubs, id)
	ts.mu.Unlock()
	if ok {
		h.closeAll()
	}
}

// PruneIdle removes tables idle for longer than maxIdle and returns how many were dropped.
func (ts *TableServer) PruneIdle(now time.Time, maxIdle time.Duration) int {
	pruned := ts.Store.PruneIdle(now, maxIdle)
	for _, id := range pruned {
		ts.mu.Lock()
		h, ok := ts.hubs[id]
		delete(ts.hubs, id)
		ts.mu.Unlock()
		if ok {
			h.closeAll()
		}
		ts.Logger.Infof("Pruned idle table %s", id)
	}
	return len(pruned)
}
