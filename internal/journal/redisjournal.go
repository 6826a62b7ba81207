package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const maxRedisEntries = 5000

// RedisJournal keeps entries in a capped Redis list, newest at the head.
type RedisJournal struct {
	client *redis.Client
	key    string
}

// NewRedisJournal creates a Redis-backed journal. If url is empty, operations will error.
func NewRedisJournal(url, key string) *RedisJournal {
	if key == "" {
		key = "optimizer:uploads"
	}
	if url == "" {
		return &RedisJournal{client: nil, key: key}
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return &RedisJournal{client: nil, key: key}
	}
	return &RedisJournal{client: redis.NewClient(opt), key: key}
}

func (r *RedisJournal) ensure() error {
	if r.client == nil {
		return errors.New("redis journal not configured")
	}
	return nil
}

func (r *RedisJournal) Record(ctx context.Context, e Entry) error {
	if err := r.ensure(); err != nil {
		return err
	}
	if e.SubmittedAt == 0 {
		e.SubmittedAt = time.Now().Unix()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, maxRedisEntries-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisJournal) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := r.ensure(); err != nil {
		return nil, err
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := r.client.LRange(ctx, r.key, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	items := make([]Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err == nil {
			items = append(items, e)
		}
	}
	return items, nil
}

func (r *RedisJournal) Stats(ctx context.Context) (Stats, error) {
	if err := r.ensure(); err != nil {
		return Stats{}, err
	}
	length, err := r.client.LLen(ctx, r.key).Result()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Length: int(length)}
	if length > 0 {
		first, err := r.client.LIndex(ctx, r.key, 0).Result()
		if err == nil {
			var e Entry
			if err := json.Unmarshal([]byte(first), &e); err == nil && e.SubmittedAt > 0 {
				stats.NewestAge = time.Now().Unix() - e.SubmittedAt
			}
		}
	}
	return stats, nil
}

// Close releases the Redis connection pool.
func (r *RedisJournal) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
