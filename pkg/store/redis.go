package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Redis implements Store on a go-redis client.
type Redis struct {
	client      *redis.Client
	maxAttempts int
}

var _ Store = (*Redis)(nil)

// NewRedis connects to the server described by a redis:// URL and verifies the
// connection with a PING.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Success(fmt.Sprintf("Conectado a Redis en %s (db %d)", opt.Addr, opt.DB), "Store")
	return NewRedisFromClient(client), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client, maxAttempts: DefaultMaxAttempts}
}

// Client exposes the underlying client
func (r *Redis) Client() *redis.Client {
	return r.client
}

func (r *Redis) GetInt(ctx context.Context, key string) (int64, bool, error) {
	v, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (r *Redis) SetInt(ctx context.Context, key string, value int64) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) GetBlob(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, decode(raw, dst)
}

func (r *Redis) SetBlob(ctx context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, 0).Err()
}

// ScanKeys walks the keyspace with SCAN so large blacklists never block the server.
func (r *Redis) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	iter := r.client.Scan(ctx, 0, pattern, 200).Iterator()
	for iter.Next(ctx) {
		seen[iter.Val()] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) AddToSet(ctx context.Context, setKey, value string) error {
	return r.client.SAdd(ctx, setKey, value).Err()
}

func (r *Redis) RemoveFromSet(ctx context.Context, setKey, value string) (bool, error) {
	n, err := r.client.SRem(ctx, setKey, value).Result()
	return n > 0, err
}

func (r *Redis) IsMember(ctx context.Context, setKey, value string) (bool, error) {
	return r.client.SIsMember(ctx, setKey, value).Result()
}

func (r *Redis) Members(ctx context.Context, setKey string) ([]string, error) {
	members, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

// UpdateInts runs fn inside WATCH/MULTI/EXEC and retries when another client
// touched any of the keys before EXEC.
func (r *Redis) UpdateInts(ctx context.Context, keys []string, fn func(current []int64) ([]int64, error)) error {
	txf := func(tx *redis.Tx) error {
		current := make([]int64, len(keys))
		for i, key := range keys {
			v, err := tx.Get(ctx, key).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			current[i] = v
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		if len(next) != len(keys) {
			return fmt.Errorf("store: UpdateInts devolvió %d valores para %d claves", len(next), len(keys))
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, key := range keys {
				pipe.Set(ctx, key, next[i], 0)
			}
			return nil
		})
		return err
	}
	return r.retryWatch(ctx, txf, keys...)
}

func (r *Redis) UpdateBlob(ctx context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			found, err = false, nil
		}
		if err != nil {
			return err
		}

		next, err := fn(raw, found)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			return nil
		})
		return err
	}
	return r.retryWatch(ctx, txf, key)
}

func (r *Redis) retryWatch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Millisecond):
		}
	}
	return ErrTooManyConflicts
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
