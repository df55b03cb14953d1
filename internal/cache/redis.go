package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dad1755/ktransport/config"
	"github.com/dad1755/ktransport/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// sessionLockTTL must exceed one submission (SMTP plus chat timeouts).
	sessionLockTTL   = time.Minute
	lockRetryDelay   = 20 * time.Millisecond
	lockReleaseLimit = 2 * time.Second
)

// releaseLock deletes the lock only while it still carries our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCache keeps form sessions and the places catalog in Redis so that
// several app instances can serve the same browser.
type RedisCache struct {
	client     *redis.Client
	sessionTTL time.Duration
	placesTTL  time.Duration
}

func NewRedisCache(cfg config.RedisConfig, sessionTTL, placesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		sessionTTL: sessionTTL,
		placesTTL:  placesTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetSession returns nil, nil when the session is unknown or has expired.
func (c *RedisCache) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *RedisCache) SaveSession(ctx context.Context, session *domain.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(session.ID), payload, c.sessionTTL).Err()
}

func (c *RedisCache) DeleteSession(ctx context.Context, id string) error {
	return c.client.Del(ctx, sessionKey(id)).Err()
}

// LockSession takes the session's lock key with SET NX, retrying until it is
// free or ctx is done.
func (c *RedisCache) LockSession(ctx context.Context, id string) (func(), error) {
	key := sessionLockKey(id)
	token := uuid.NewString()
	for {
		ok, err := c.client.SetNX(ctx, key, token, sessionLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock session: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lockReleaseLimit)
			defer cancel()
			_ = releaseLock.Run(releaseCtx, c.client, []string{key}, token).Err()
		})
	}, nil
}

func (c *RedisCache) GetPlaces(ctx context.Context) (*domain.Places, error) {
	data, err := c.client.Get(ctx, placesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var places domain.Places
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, err
	}
	return &places, nil
}

func (c *RedisCache) SetPlaces(ctx context.Context, places domain.Places) error {
	payload, err := json.Marshal(places)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, placesKey(), payload, c.placesTTL).Err()
}

func sessionKey(id string) string {
	return "session:booking:" + id
}

func sessionLockKey(id string) string {
	return "lock:session:booking:" + id
}

func placesKey() string {
	return "cache:places"
}
