// Package store is the key-value layer behind warnings, the blacklist, the
// whitelist and pending submissions. Redis is the production backend; Memory
// serves tests and local runs without a Redis server.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrTooManyConflicts is returned when an optimistic update keeps losing the
// race against concurrent writers.
var ErrTooManyConflicts = errors.New("store: demasiados conflictos de escritura")

// DefaultMaxAttempts bounds the compare-and-swap loops.
const DefaultMaxAttempts = 64

// Store is the contract every backend implements. Single-key operations are
// atomic; UpdateInts and UpdateBlob are the only multi-step operations and
// they run as compare-and-swap loops.
type Store interface {
	GetInt(ctx context.Context, key string) (int64, bool, error)
	SetInt(ctx context.Context, key string, value int64) error
	Delete(ctx context.Context, keys ...string) error

	GetBlob(ctx context.Context, key string, dst any) (bool, error)
	SetBlob(ctx context.Context, key string, value any) error

	// ScanKeys returns every key matching a glob pattern such as "blacklist:*".
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	AddToSet(ctx context.Context, setKey, value string) error
	RemoveFromSet(ctx context.Context, setKey, value string) (bool, error)
	IsMember(ctx context.Context, setKey, value string) (bool, error)
	Members(ctx context.Context, setKey string) ([]string, error)

	// UpdateInts reads keys (missing ones as 0), calls fn and writes back its
	// result only if none of the keys changed in between. fn may run more than
	// once and must not have side effects beyond capturing its result.
	UpdateInts(ctx context.Context, keys []string, fn func(current []int64) ([]int64, error)) error

	// UpdateBlob is the single-key version of UpdateInts for JSON records. A
	// nil result from fn deletes the key.
	UpdateBlob(ctx context.Context, key string, fn func(current []byte, found bool) ([]byte, error)) error

	Ping(ctx context.Context) error
	Close() error
}

// Update decodes the record under key into T, lets fn change it and stores
// the result with the same compare-and-swap guarantees as UpdateBlob. An error
// from fn aborts the update without writing anything.
func Update[T any](ctx context.Context, s Store, key string, fn func(current *T, found bool) (*T, error)) error {
	return s.UpdateBlob(ctx, key, func(raw []byte, found bool) ([]byte, error) {
		var cur *T
		if found {
			cur = new(T)
			if err := json.Unmarshal(raw, cur); err != nil {
				return nil, fmt.Errorf("decode %s: %w", key, err)
			}
		}
		next, err := fn(cur, found)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, nil
		}
		return json.Marshal(next)
	})
}

func encode(value any) ([]byte, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("store: encode: %w", err)
	}
	return b, nil
}

func decode(raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}
