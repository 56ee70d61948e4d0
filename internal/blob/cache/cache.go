// Package cache puts a Redis read-through cache in front of a blob store.
// Reference images are re-read on every verification attempt, so caching them
// saves an object-store round trip per retry. Redis failures never fail a
// read or a write; they fall through to the backing store.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cheya01/facial-recog-poc-server/internal/blob"
)

const keyPrefix = "blob:ref:"

// maxCachedBytes keeps very large uploads out of Redis.
const maxCachedBytes = 5 * 1024 * 1024

// Store decorates a blob.Store with a Redis cache keyed by reference.
type Store struct {
	next   blob.Store
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// New wraps next. A nil logger discards cache warnings.
func New(next blob.Store, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ref, err := s.next.Put(ctx, key, data, contentType)
	if err != nil {
		return "", err
	}
	s.store(ctx, ref, data)
	return ref, nil
}

func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+ref).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "blob cache read failed", "error", err)
	}

	data, err = s.next.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.store(ctx, ref, data)
	return data, nil
}

func (s *Store) store(ctx context.Context, ref string, data []byte) {
	if len(data) > maxCachedBytes {
		return
	}
	if err := s.rdb.Set(ctx, keyPrefix+ref, data, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "blob cache write failed", "error", err)
	}
}
