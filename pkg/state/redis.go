package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// stateTTL bounds memory for abandoned conversations; any interaction
	// rewrites the key and refreshes it.
	stateTTL = 24 * time.Hour

	stateKeyPrefix = "chat:state:"
	claimKeyPrefix = "chat:paid:"
)

// RedisStore is a Store backed by redis, for deployments where several
// replicas serve the same webhook and the debounce window must hold across
// all of them.
type RedisStore struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisStore creates a redis-backed store.
func NewRedisStore(rdb *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

func stateKey(tenantID string, userID int64) string {
	return fmt.Sprintf("%s%s:%d", stateKeyPrefix, tenantID, userID)
}

func claimKey(tenantID string, userID int64) string {
	return fmt.Sprintf("%s%s:%d", claimKeyPrefix, tenantID, userID)
}

func (s *RedisStore) Get(ctx context.Context, tenantID string, userID int64) (ConversationState, error) {
	val, err := s.rdb.Get(ctx, stateKey(tenantID, userID)).Result()
	if err == redis.Nil {
		return ConversationState{}, nil
	}
	if err != nil {
		return ConversationState{}, fmt.Errorf("redis state lookup: %w", err)
	}

	var st ConversationState
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		s.logger.Warn("invalid conversation state in redis, resetting",
			"tenant", tenantID,
			"user", userID,
			"error", err,
		)
		return ConversationState{}, nil
	}
	return st, nil
}

func (s *RedisStore) Put(ctx context.Context, tenantID string, userID int64, st ConversationState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding conversation state: %w", err)
	}
	if err := s.rdb.Set(ctx, stateKey(tenantID, userID), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("redis state set: %w", err)
	}
	return nil
}

// TryClaimPaid uses SET NX with the debounce window as TTL: the first claim
// creates the key and wins, later claims find it and lose until it expires.
func (s *RedisStore) TryClaimPaid(ctx context.Context, tenantID string, userID int64, now time.Time, window time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, claimKey(tenantID, userID), now.UTC().Format(time.RFC3339), window).Result()
	if err != nil {
		return false, fmt.Errorf("redis claim set: %w", err)
	}
	return ok, nil
}
