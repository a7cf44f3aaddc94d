package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisTickLock is a SETNX lease shared by every scheduler process
type RedisTickLock struct {
	client *redis.Client
	key    string
}

func NewRedisTickLock(client *redis.Client) *RedisTickLock {
	return &RedisTickLock{
		client: client,
		key:    "journey:scheduler:tick",
	}
}

func (l *RedisTickLock) TryAcquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}

	release := func() {
		// the tick context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}
	return release, true, nil
}

// LocalTickLock always grants the lease. Ticks inside one process are
// already serialized by the scheduler.
type LocalTickLock struct{}

func (LocalTickLock) TryAcquire(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
