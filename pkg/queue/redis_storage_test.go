package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/queue"
)

func newRedisRepository(t *testing.T) queue.Repository {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return queue.NewRedisStorage(client, queue.WithKeyPrefix("test:queue"))
}

func TestRedisStorage_Keys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := queue.NewRedisStorage(client, queue.WithKeyPrefix("clinic:queue"))
	now := newFakeClock().Now()

	job := newJob("send-whatsapp", now, 3)
	require.NoError(t, repo.Push(ctx, job))

	assert.True(t, mr.Exists("clinic:queue:jobs"))
	members, err := mr.ZMembers("clinic:queue:pending")
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID.String()}, members)

	score, err := mr.ZScore("clinic:queue:pending", job.ID.String())
	require.NoError(t, err)
	assert.Equal(t, float64(now.UnixMilli()*1000+3), score)

	_, err = repo.Claim(ctx, now, time.Minute)
	require.NoError(t, err)

	inflight, err := mr.ZMembers("clinic:queue:inflight")
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID.String()}, inflight)
}

func TestRedisStorage_PushFailsWhenServerIsDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	repo := queue.NewRedisStorage(client)
	mr.Close()

	err := repo.Push(context.Background(), newJob("send-email", time.Now(), 0))
	assert.Error(t, err)
}

func TestRedisStorage_ClaimDropsOrphanedIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := queue.NewRedisStorage(client, queue.WithKeyPrefix("q"))
	now := newFakeClock().Now()

	_, err := mr.ZAdd("q:pending", float64(now.UnixMilli()*1000), "orphan")
	require.NoError(t, err)

	_, err = repo.Claim(ctx, now, time.Minute)
	assert.ErrorIs(t, err, queue.ErrJobNotFound)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{}, stats)
}
