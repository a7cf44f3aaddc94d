package redis

import (
	"context"
	"testing"
	"time"

	"donor-crm/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickLockIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	lock := NewRedisTickLock(client)

	release, ok, err := lock.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while the lease is held")

	release()
	assert.False(t, mr.Exists("journey:scheduler:tick"))

	_, ok, err = lock.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTickLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	lock := NewRedisTickLock(client)
	_, ok, err := lock.TryAcquire(ctx, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)

	_, ok, err = lock.TryAcquire(ctx, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStaleReleaseKeepsNewLease(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	client, err := NewRedisClient(ctx, mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	lock := NewRedisTickLock(client)
	staleRelease, ok, err := lock.TryAcquire(ctx, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(11 * time.Second)
	_, ok, err = lock.TryAcquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	staleRelease()
	assert.True(t, mr.Exists("journey:scheduler:tick"))
}

func TestEventBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := NewRedisClient(ctx, mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	bus := NewRedisEventBus(client)
	events, err := bus.SubscribeRunEvents(ctx)
	require.NoError(t, err)

	sent := domain.RunEvent{
		RunID:     uuid.New(),
		JourneyID: uuid.New(),
		NodeID:    "n1",
		Status:    domain.RunRunning,
		At:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, bus.PublishRunEvent(ctx, sent))

	select {
	case got := <-events:
		assert.Equal(t, sent.RunID, got.RunID)
		assert.Equal(t, domain.RunRunning, got.Status)
		assert.True(t, sent.At.Equal(got.At))
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestSubscriptionStopsWhileRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())

	client, err := NewRedisClient(ctx, mr.Addr())
	require.NoError(t, err)
	defer client.Close()

	events, err := NewRedisEventBus(client).SubscribeRunEvents(ctx)
	require.NoError(t, err)

	mr.Close()
	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case _, open := <-events:
		assert.False(t, open)
	case <-time.After(3 * time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestNextReceiveBackoff(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{minReceiveBackoff, 2 * minReceiveBackoff},
		{time.Second, 2 * time.Second},
		{4 * time.Second, maxReceiveBackoff},
		{maxReceiveBackoff, maxReceiveBackoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nextReceiveBackoff(tt.in))
	}
}

func TestNewRedisClientFailsFast(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
}

func TestLocalImplementations(t *testing.T) {
	release, ok, err := LocalTickLock{}.TryAcquire(context.Background(), time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release()

	assert.NoError(t, NoopEventBus{}.PublishRunEvent(context.Background(), domain.RunEvent{}))
}
