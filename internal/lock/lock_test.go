package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryExclusive(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	unlock, err := m.TryLock(ctx, "123")
	require.NoError(t, err)

	_, err = m.TryLock(ctx, "123")
	assert.ErrorIs(t, err, ErrLocked)

	// other keys are independent
	other, err := m.TryLock(ctx, "456")
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := m.TryLock(ctx, "123")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestMemoryDoubleUnlock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, err := m.TryLock(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, first(ctx))

	second, err := m.TryLock(ctx, "1")
	require.NoError(t, err)

	// a stale release must not free the new holder
	require.NoError(t, first(ctx))
	_, err = m.TryLock(ctx, "1")
	assert.ErrorIs(t, err, ErrLocked)
	require.NoError(t, second(ctx))
}

func TestMemoryConcurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var acquired int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := m.TryLock(ctx, "hot"); err == nil {
				atomic.AddInt32(&acquired, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), acquired)
}

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skip("Redis is not available, skipping test")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLock(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	prefix := "test:lock:" + uuid.NewString() + ":"

	a := NewRedis(client, prefix, time.Minute)
	b := NewRedis(client, prefix, time.Minute)

	unlock, err := a.TryLock(ctx, "123")
	require.NoError(t, err)

	_, err = b.TryLock(ctx, "123")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, unlock(ctx))

	unlockB, err := b.TryLock(ctx, "123")
	require.NoError(t, err)
	require.NoError(t, unlockB(ctx))
}

func TestRedisReleaseKeepsForeignLock(t *testing.T) {
	client := redisClient(t)
	ctx := context.Background()
	prefix := "test:lock:" + uuid.NewString() + ":"

	l := NewRedis(client, prefix, time.Minute)
	unlock, err := l.TryLock(ctx, "9")
	require.NoError(t, err)

	// simulate expiry and takeover by another process
	require.NoError(t, client.Set(ctx, prefix+"9", "someone-else", time.Minute).Err())
	require.NoError(t, unlock(ctx))

	val, err := client.Get(ctx, prefix+"9").Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	require.NoError(t, client.Del(ctx, prefix+"9").Err())
}
