package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jjudge-oj/contestjudge/config"
)

const (
	defaultPoolSize = 20
	pingTimeout     = 5 * time.Second
	// Entries outlive any realistic contest but do not accumulate forever.
	entryTTL = 7 * 24 * time.Hour
)

// RedisStore implements Store on go-redis. Deadlines are stored as unix
// milliseconds, solved-sets as Redis sets.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Deadline(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Unparseable values are treated as absent.
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

func (r *RedisStore) SetDeadline(ctx context.Context, key string, deadline time.Time) error {
	return r.client.Set(ctx, key, strconv.FormatInt(deadline.UnixMilli(), 10), entryTTL).Err()
}

func (r *RedisStore) Solved(ctx context.Context, key string) ([]int, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (r *RedisStore) MarkSolved(ctx context.Context, key string, questionID int) (int, error) {
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, strconv.Itoa(questionID))
	pipe.Expire(ctx, key, entryTTL)
	card := pipe.SCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return int(card.Val()), nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
