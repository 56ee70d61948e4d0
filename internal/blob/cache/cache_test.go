package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheya01/facial-recog-poc-server/internal/blob"
	"github.com/cheya01/facial-recog-poc-server/internal/blob/memory"
)

// unreachableRedis points at a closed port so every command fails fast.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCacheFallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	rdb := unreachableRedis()
	defer rdb.Close()

	backing := memory.NewInMemory()
	store := New(backing, rdb, time.Minute, nil)

	ref, err := store.Put(ctx, "1_alice.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)

	data, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)

	_, err = store.Get(ctx, "mem://missing.jpg")
	assert.ErrorIs(t, err, blob.ErrBlobNotFound)
}
