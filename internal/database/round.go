// internal/database/round.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/pairs/internal/cache"
)

// Action types written by the table host that change the rounds row.
const (
	ActionRoundStart    = "round_start"
	ActionRoundComplete = "round_complete"
)

// SeatResult is one player's final line in a completed round.
type SeatResult struct {
	Seat   int
	Name   string
	Score  int
	DidWin bool
}

// RoundStore persists round history.
type RoundStore struct {
	Pool *pgxpool.Pool
}

// SaveActions writes a batch of action records in one transaction.
func (s RoundStore) SaveActions(ctx context.Context, records []cache.RoundActionRecord) error {
	return pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertRoundActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertRoundActionTx(%s #%d): %w", rec.RoundID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// MarkRoundAbandoned flags a round still in progress as abandoned. It reports
// whether a row changed.
func (s RoundStore) MarkRoundAbandoned(ctx context.Context, roundID uuid.UUID) (bool, error) {
	var changed bool
	err := pgx.BeginTxFunc(ctx, s.Pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE rounds
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		tag, err := tx.Exec(ctx, q, roundID)
		if err != nil {
			return err
		}
		changed = tag.RowsAffected() > 0
		return nil
	})
	return changed, err
}

// insertRoundActionTx upserts the round row, appends the action and, for a
// round_complete action, finalizes the round with its results.
func insertRoundActionTx(ctx context.Context, tx pgx.Tx, rec cache.RoundActionRecord) error {
	at := time.UnixMilli(rec.Timestamp)

	theme, _ := rec.ActionPayload["theme"].(string)
	var totalCards *int
	if rec.ActionType == ActionRoundStart {
		if n, ok := payloadInt(rec.ActionPayload["totalCards"]); ok {
			totalCards = &n
		}
	}
	upsertRoundQ := `
		INSERT INTO rounds (id, table_id, theme, total_cards, status, start_time)
		VALUES ($1, $2, NULLIF($3, ''), $4, 'in_progress', $5)
		ON CONFLICT (id) DO UPDATE SET
			theme = COALESCE(rounds.theme, EXCLUDED.theme),
			total_cards = COALESCE(rounds.total_cards, EXCLUDED.total_cards)
	`
	if _, err := tx.Exec(ctx, upsertRoundQ, rec.RoundID, rec.TableID, theme, totalCards, at); err != nil {
		return err
	}

	payload := rec.ActionPayload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO round_actions (round_id, action_index, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (round_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ, rec.RoundID, rec.ActionIndex, rec.ActionType, jsonPayload, at); err != nil {
		return err
	}

	if rec.ActionType != ActionRoundComplete {
		return nil
	}
	finalizeQ := `
		UPDATE rounds
		SET status = 'completed', end_time = $2
		WHERE id = $1 AND status <> 'completed'
	`
	if _, err := tx.Exec(ctx, finalizeQ, rec.RoundID, at); err != nil {
		return err
	}
	for _, r := range ResultsFromPayload(rec.ActionPayload) {
		q := `
			INSERT INTO round_results (round_id, seat, name, score, did_win)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (round_id, seat)
			DO UPDATE SET name = $3, score = $4, did_win = $5
		`
		if _, err := tx.Exec(ctx, q, rec.RoundID, r.Seat, r.Name, r.Score, r.DidWin); err != nil {
			return err
		}
	}
	return nil
}

// ResultsFromPayload reads the scores, names and winners lists of a
// round_complete payload as decoded from JSON.
func ResultsFromPayload(payload map[string]interface{}) []SeatResult {
	scores, _ := payload["scores"].([]interface{})
	names, _ := payload["names"].([]interface{})
	winners, _ := payload["winners"].([]interface{})

	won := make(map[int]bool, len(winners))
	for _, w := range winners {
		if i, ok := payloadInt(w); ok {
			won[i] = true
		}
	}

	out := make([]SeatResult, 0, len(scores))
	for i, raw := range scores {
		score, ok := payloadInt(raw)
		if !ok {
			continue
		}
		r := SeatResult{Seat: i, Score: score, DidWin: won[i]}
		if i < len(names) {
			r.Name, _ = names[i].(string)
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("Player %d", i+1)
		}
		out = append(out, r)
	}
	return out
}

func payloadInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}
