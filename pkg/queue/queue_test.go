package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dentflow/pkg/queue"
)

func TestNew(t *testing.T) {
	t.Parallel()

	q, err := queue.New(nil)
	assert.ErrorIs(t, err, queue.ErrRepositoryNil)
	assert.Nil(t, q)
}

func TestQueue_CleanupDeadOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := newFakeClock()
	storage := queue.NewMemoryStorage()
	q, err := queue.New(storage, queue.WithEnqueuerNowFunc(clock.Now))
	require.NoError(t, err)

	day := 24 * time.Hour
	buryAt(t, storage, clock.Now().Add(-10*day))
	buryAt(t, storage, clock.Now().Add(-8*day))
	recent := buryAt(t, storage, clock.Now().Add(-3*day))

	removed, err := q.CleanupDeadOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	dead, err := q.DeadJobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, recent, dead[0].Job.ID)

	removed, err = q.CleanupDeadOlderThan(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestQueue_ResendDead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := newFakeClock()
	storage := queue.NewMemoryStorage()
	q, err := queue.New(storage, queue.WithEnqueuerNowFunc(clock.Now))
	require.NoError(t, err)

	id := buryAt(t, storage, clock.Now().Add(-time.Hour))

	job, err := q.ResendDead(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Zero(t, job.Attempt)
	assert.Equal(t, clock.Now(), job.ReadyAt)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Pending: 1}, stats)

	_, err = q.ResendDead(ctx, uuid.New())
	assert.ErrorIs(t, err, queue.ErrJobNotFound)
}

func TestQueue_Stats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := newFakeClock()
	storage := queue.NewMemoryStorage()
	q, err := queue.New(storage, queue.WithEnqueuerNowFunc(clock.Now))
	require.NoError(t, err)

	for range 3 {
		_, err := q.Enqueue(ctx, emailPayload{To: "a@b.c"})
		require.NoError(t, err)
	}
	_, err = storage.Claim(ctx, clock.Now(), time.Minute)
	require.NoError(t, err)
	buryAt(t, storage, clock.Now())

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, queue.Stats{Pending: 2, InFlight: 1, Dead: 1}, stats)
}

func TestQueue_EnqueueWithoutFallback(t *testing.T) {
	t.Parallel()

	storage := queue.NewMemoryStorage()
	storage.SetUnavailable(errors.New("redis: connection refused"))

	q, err := queue.New(storage)
	require.NoError(t, err)

	_, err = q.Enqueue(context.Background(), emailPayload{To: "a@b.c"})
	assert.ErrorIs(t, err, queue.ErrJobPush)
}
