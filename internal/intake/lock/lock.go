package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	errx "github.com/hospitalbot-poc/server/internal/core/error"
	"github.com/hospitalbot-poc/server/internal/intake/model"
	logx "github.com/hospitalbot-poc/server/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Locker serialises turn persistence per session. Two concurrent turns for
// the same session must not interleave their transcript/entity writes.
type Locker interface {
	// Acquire blocks until the session lock is held or ctx expires.
	// The returned release function must be called exactly once.
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// ================ Redis locker ================

// releaseScript deletes the lock only when the holder token still matches,
// so an expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0`)

type RedisLocker struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(rdb redis.Cmdable, cfg model.SessionLockConfig) (*RedisLocker, error) {
	ttl, err := time.ParseDuration(cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_LOCK_TTL %q: %w", cfg.TTL, err)
	}
	retry, err := time.ParseDuration(cfg.RetryInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_LOCK_RETRY %q: %w", cfg.RetryInterval, err)
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: retry}, nil
}

func (l *RedisLocker) key(sessionID string) string {
	return fmt.Sprintf("session:%s:lock", sessionID)
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := l.key(sessionID)
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to acquire session lock")
			return nil, errx.WrapRedis(err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	release := func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to release session lock")
		}
	}
	return release, nil
}

// ================ In-process locker ================

// LocalLocker serialises sessions inside a single process. Used in tests and
// single-instance deployments where Redis is not configured.
type LocalLocker struct {
	mu       sync.Mutex
	sessions map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{sessions: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.sessions[sessionID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.sessions[sessionID] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
