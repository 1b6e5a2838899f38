package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hiring_assistant_backend/internal/hiring/ports"
)

const defaultKeyPrefix = "hiring:history:"

// RedisStore keeps each session's transcript in a Redis list of JSON entries.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore creates a store. A ttl of zero keeps transcripts forever.
func NewRedisStore(client *redis.Client, keyPrefix string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix, ttl: ttl}, nil
}

func (r *RedisStore) key(sessionID string) string {
	return r.keyPrefix + sessionID
}

// Append pushes entry and refreshes the transcript TTL in one transaction.
func (r *RedisStore) Append(ctx context.Context, sessionID string, entry ports.HistoryEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry for session %s: %w", sessionID, err)
	}

	key := r.key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history for session %s: %w", sessionID, err)
	}
	return nil
}

// List returns the transcript oldest first. Unknown sessions yield an empty list.
func (r *RedisStore) List(ctx context.Context, sessionID string) ([]ports.HistoryEntry, error) {
	raw, err := r.client.LRange(ctx, r.key(sessionID), 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return []ports.HistoryEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list history for session %s: %w", sessionID, err)
	}

	entries := make([]ports.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry ports.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("decode history entry for session %s: %w", sessionID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete removes the transcript.
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete history for session %s: %w", sessionID, err)
	}
	return nil
}
