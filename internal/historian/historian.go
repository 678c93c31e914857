// Package historian drains round actions from the Redis queue into Postgres
// and closes out rounds that stop receiving actions.
package historian

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/pairs/internal/cache"
	"github.com/jason-s-yu/pairs/internal/config"
	"github.com/jason-s-yu/pairs/internal/database"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Store persists batches of actions and abandons rounds.
type Store interface {
	SaveActions(ctx context.Context, records []cache.RoundActionRecord) error
	MarkRoundAbandoned(ctx context.Context, roundID uuid.UUID) (bool, error)
}

// Queue yields raw action payloads. Pop returns nil, nil when nothing arrived
// within timeout.
type Queue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// RedisQueue pops from a Redis list with BLPOP.
type RedisQueue struct {
	Client *redis.Client
	Name   string
}

func (q RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.Client.BLPop(ctx, timeout, q.Name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	return []byte(res[1]), nil
}

const (
	popTimeout    = 3 * time.Second
	sweepInterval = time.Minute
)

// Service batches queue records and flushes them to the store.
type Service struct {
	queue      Queue
	store      Store
	batchSize  int
	flushDelay time.Duration
	inactivity time.Duration

	// lastActivity maps an open round id to the time its last action arrived.
	lastActivity sync.Map

	batchMu sync.Mutex
	batch   []cache.RoundActionRecord
}

// NewService builds a Service from the loaded config.
func NewService(cfg *config.Config, queue Queue, store Store) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	flushDelay := cfg.FlushDelay
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		queue:      queue,
		store:      store,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		inactivity: cfg.RoundIdle,
		batch:      make([]cache.RoundActionRecord, 0, batchSize),
	}
}

// NewRedisPostgresService wires the service to the connected Redis client
// and database pool.
func NewRedisPostgresService(cfg *config.Config) (*Service, error) {
	if cache.Rdb == nil {
		return nil, fmt.Errorf("redis client not connected")
	}
	if database.DB == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return NewService(cfg,
		RedisQueue{Client: cache.Rdb, Name: cfg.HistorianQueue},
		database.RoundStore{Pool: database.DB},
	), nil
}

// Run reads the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	log.Info("pairs-historian service started.")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.flushLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.readLoop(ctx)
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	log.Info("pairs-historian shutting down.")
}

func (s *Service) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		payload, err := s.queue.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("BLPop: %v", err)
			// back off so a dead connection does not spin
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if payload == nil {
			continue
		}
		s.handlePayload(ctx, payload, time.Now())
	}
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.flushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		}
	}
}

// handlePayload decodes one queue entry and adds it to the batch, flushing
// when the batch is full.
func (s *Service) handlePayload(ctx context.Context, payload []byte, now time.Time) {
	record, err := cache.DecodeRecord(payload)
	if err != nil {
		log.Warnf("Dropping queue entry: %v", err)
		return
	}

	if record.ActionType == database.ActionRoundComplete {
		s.lastActivity.Delete(record.RoundID)
	} else {
		s.lastActivity.Store(record.RoundID, now)
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, record)
	full := len(s.batch) >= s.batchSize
	s.batchMu.Unlock()

	if full {
		s.flush(ctx)
	}
}

// flush writes the current batch in one transaction. A failed batch is logged
// and dropped.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	batchCopy := make([]cache.RoundActionRecord, len(s.batch))
	copy(batchCopy, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.store.SaveActions(ctx, batchCopy); err != nil {
		log.Errorf("flush of %d actions failed: %v", len(batchCopy), err)
		return
	}
	log.Debugf("Flushed %d actions to DB.", len(batchCopy))
}

func (s *Service) inactivityLoop(ctx context.Context) {
	if s.inactivity <= 0 {
		return
	}
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweepInactive(ctx, now)
		}
	}
}

// sweepInactive abandons rounds whose last action is older than the
// inactivity threshold and returns their ids. Pending actions are flushed
// first so the round row exists.
func (s *Service) sweepInactive(ctx context.Context, now time.Time) []uuid.UUID {
	var stale []uuid.UUID
	s.lastActivity.Range(func(key, val interface{}) bool {
		roundID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if ok1 && ok2 && now.Sub(last) > s.inactivity {
			stale = append(stale, roundID)
		}
		return true
	})
	if len(stale) == 0 {
		return nil
	}

	s.flush(ctx)
	for _, roundID := range stale {
		changed, err := s.store.MarkRoundAbandoned(ctx, roundID)
		if err != nil {
			log.Errorf("failed to mark round %s abandoned: %v", roundID, err)
			continue
		}
		s.lastActivity.Delete(roundID)
		if changed {
			log.Infof("Marked round %s as 'abandoned' due to inactivity.", roundID)
		}
	}
	return stale
}
