package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr, rdb
}

type cachedEssay struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestAside(t *testing.T) {
	mr, _ := setupMiniredis(t)
	ctx := context.Background()

	loads := 0
	load := func(dest *cachedEssay) func() error {
		return func() error {
			loads++
			*dest = cachedEssay{ID: 1, Title: "On Reading"}
			return nil
		}
	}

	var first cachedEssay
	require.NoError(t, Aside(ctx, EssayKey(1), &first, EssayTTL, load(&first)))
	assert.Equal(t, "On Reading", first.Title)
	assert.True(t, mr.Exists(EssayKey(1)))

	var second cachedEssay
	require.NoError(t, Aside(ctx, EssayKey(1), &second, EssayTTL, load(&second)))
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)

	InvalidateEssay(ctx, 1)
	assert.False(t, mr.Exists(EssayKey(1)))
}

func TestAside_LoadErrorNotCached(t *testing.T) {
	mr, _ := setupMiniredis(t)

	var dest cachedEssay
	err := Aside(context.Background(), EssayKey(2), &dest, EssayTTL, func() error {
		return errors.New("not found")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists(EssayKey(2)))
}

func TestAside_NoRedis(t *testing.T) {
	SetClient(nil)
	called := false
	var dest cachedEssay
	require.NoError(t, Aside(context.Background(), "k", &dest, time.Minute, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestAcquire(t *testing.T) {
	_, rdb := setupMiniredis(t)
	ctx := context.Background()
	key := SelectionKey(7, "chapter-1")

	lock, err := Acquire(ctx, rdb, key, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = Acquire(ctx, rdb, key, 5*time.Second, 30*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockBusy)

	require.NoError(t, lock.Release(ctx))

	again, err := Acquire(ctx, rdb, key, 5*time.Second, 30*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestAcquire_NoRedis(t *testing.T) {
	_, err := Acquire(context.Background(), nil, "k", time.Second, time.Second)
	assert.ErrorIs(t, err, ErrNoRedis)
}
