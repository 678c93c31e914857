// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for round action logs.
var DefaultQueueName = "pairs_actions"

// QueueName is the list actions are pushed to; overridden from config at startup.
var QueueName = DefaultQueueName

// RoundActionRecord holds the minimal info needed by the historian.
type RoundActionRecord struct {
	TableID       uuid.UUID              `json:"table_id"`
	RoundID       uuid.UUID              `json:"round_id"`
	ActionIndex   int                    `json:"action_index"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client and pings it.
func ConnectRedis(addr string, db int) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// EncodeRecord serializes a record the way it is stored on the queue.
func EncodeRecord(record RoundActionRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RoundActionRecord: %w", err)
	}
	return data, nil
}

// DecodeRecord parses a queue payload.
func DecodeRecord(payload []byte) (RoundActionRecord, error) {
	var record RoundActionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return RoundActionRecord{}, fmt.Errorf("invalid action record: %w", err)
	}
	if record.RoundID == uuid.Nil {
		return RoundActionRecord{}, fmt.Errorf("invalid action record: missing round_id")
	}
	return record, nil
}

// PublishRoundAction serializes the record and pushes it to the Redis queue.
func PublishRoundAction(ctx context.Context, record RoundActionRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not connected")
	}
	data, err := EncodeRecord(record)
	if err != nil {
		return err
	}
	if err := Rdb.RPush(ctx, QueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", QueueName, err)
	}
	return nil
}
