package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pkdindustries/retort/internal/core"
)

// maxStoredExchanges bounds the persisted list per user; replay depth is
// the engine's concern, this only keeps keys from growing unbounded.
const maxStoredExchanges = 50

// RedisStore persists conversations as redis lists of JSON-encoded
// exchanges. The key TTL is touched on every append so active
// conversations survive and idle ones expire.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ core.ConversationStore = (*RedisStore)(nil)

// NewRedisStore connects to the given redis URL.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: client, ttl: ttl}, nil
}

// NewRedisStoreWithClient wraps an existing client, for tests.
func NewRedisStoreWithClient(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) key(user string) string {
	return fmt.Sprintf("retort:convo:%s", user)
}

func (r *RedisStore) Append(ctx context.Context, user string, ex core.Exchange) error {
	b, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal exchange: %w", err)
	}
	key := r.key(user)
	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		return fmt.Errorf("push exchange: %w", err)
	}
	if err := r.rdb.LTrim(ctx, key, -maxStoredExchanges, -1).Err(); err != nil {
		return fmt.Errorf("trim conversation: %w", err)
	}
	if r.ttl > 0 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			return fmt.Errorf("touch ttl: %w", err)
		}
	}
	return nil
}

func (r *RedisStore) Recent(ctx context.Context, user string, n int) ([]core.Exchange, error) {
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	rows, err := r.rdb.LRange(ctx, r.key(user), start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	out := make([]core.Exchange, 0, len(rows))
	for i, row := range rows {
		var ex core.Exchange
		if err := json.Unmarshal([]byte(row), &ex); err != nil {
			return nil, fmt.Errorf("unmarshal exchange %d: %w", i, err)
		}
		out = append(out, ex)
	}
	return out, nil
}

func (r *RedisStore) Clear(ctx context.Context, user string) error {
	if err := r.rdb.Del(ctx, r.key(user)).Err(); err != nil {
		return fmt.Errorf("clear conversation: %w", err)
	}
	return nil
}
