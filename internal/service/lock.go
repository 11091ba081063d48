package service

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/germainlefebvre4/cvwonder-studio/internal/redis"
)

const lockRetryInterval = 100 * time.Millisecond

// Lua compare-and-delete so a lock holder never releases a lock it lost to
// TTL expiry.
var unlockScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

// RenderLocker serializes renders per session id. One CV source file exists
// per session, so concurrent renders for the same session must not interleave.
type RenderLocker interface {
	Lock(ctx context.Context, sessionID string) (release func(), err error)
}

type redisRenderLock struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewRedisRenderLock builds a RenderLocker over redis SET NX with a TTL
// slightly above the render timeout, so a crashed holder cannot wedge a
// session forever.
func NewRedisRenderLock(client *goredis.Client, ttl time.Duration) RenderLocker {
	return &redisRenderLock{client: client, ttl: ttl}
}

func (l *redisRenderLock) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := redis.RenderLockKey(sessionID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			// Redis being down should degrade the serialization
			// guarantee, not block all rendering.
			log.Warn().Err(err).Str("sessionId", sessionID).
				Msg("render lock unavailable, proceeding without serialization")
			return func() {}, nil
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil && err != goredis.Nil {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("failed to release render lock")
		}
	}
	return release, nil
}
