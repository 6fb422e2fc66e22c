package redisad

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const kvTimeout = 2 * time.Second

// SessionKV is a cart KV scoped to one browser session: keys live under cart:<session>:.
// Every write refreshes the session TTL. Calls are bounded by kvTimeout and
// by the caller's context.
type SessionKV struct {
	c      *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionKV(c *redis.Client, sessionID string, ttl time.Duration) *SessionKV {
	return &SessionKV{c: c, prefix: "cart:" + sessionID + ":", ttl: ttl}
}

func (kv *SessionKV) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, kvTimeout)
	defer cancel()
	v, err := kv.c.Get(ctx, kv.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (kv *SessionKV) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, kvTimeout)
	defer cancel()
	return kv.c.Set(ctx, kv.prefix+key, value, kv.ttl).Err()
}

func (kv *SessionKV) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, kvTimeout)
	defer cancel()
	return kv.c.Del(ctx, kv.prefix+key).Err()
}
