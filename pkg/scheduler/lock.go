package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// LockKey guards scheduled runs across replicas.
const LockKey = "episodic:schedule:lock"

// Locker is a best-effort mutual exclusion between scheduler replicas.
type Locker interface {
	// Acquire returns a release func when the lock was taken, and nil when
	// another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.UniversalClient
}

func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// NewRedisClient connects to the redis URL and checks the connection.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	if !acquired {
		return nil, nil
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, nil
}

// LocalLocker serializes runs inside one process.
type LocalLocker struct {
	held chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(chan struct{}, 1)}
}

func (l *LocalLocker) Acquire(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, error) {
	select {
	case l.held <- struct{}{}:
		return func(context.Context) error {
			<-l.held

			return nil
		}, nil
	default:
		return nil, nil
	}
}
