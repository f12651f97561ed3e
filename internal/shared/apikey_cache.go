package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// KeyResolver is what the auth middleware needs from a key store.
type KeyResolver interface {
	Resolve(ctx context.Context, key string) (*TenantContext, error)
}

// CachedKeyResolver fronts a KeyResolver with Redis. The bcrypt comparison in
// the backing store is deliberately slow, so resolved tenant contexts are
// cached by key fingerprint for a short TTL. Invalid keys are never cached.
type CachedKeyResolver struct {
	next   KeyResolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCachedKeyResolver wraps next with a Redis cache.
func NewCachedKeyResolver(next KeyResolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedKeyResolver {
	return &CachedKeyResolver{next: next, client: client, ttl: ttl, logger: logger}
}

func apiKeyCacheKey(key string) string {
	return "apikey:" + fingerprint(key)
}

// Resolve returns the cached tenant context when present, otherwise falls
// through to the backing store and caches the result. Cache failures degrade
// to the backing store rather than failing the request.
func (r *CachedKeyResolver) Resolve(ctx context.Context, key string) (*TenantContext, error) {
	if key == "" {
		return nil, ErrInvalidAPIKey
	}
	cacheKey := apiKeyCacheKey(key)

	raw, err := r.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var tc TenantContext
		if json.Unmarshal(raw, &tc) == nil {
			return &tc, nil
		}
		// Poisoned entry, drop it and resolve fresh.
		r.client.Del(ctx, cacheKey)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("api key cache read failed", slog.Any("error", err))
	}

	// Collapse concurrent misses for the same key into one bcrypt check.
	v, err, _ := r.group.Do(cacheKey, func() (any, error) {
		tc, err := r.next.Resolve(ctx, key)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(tc); err == nil {
			if err := r.client.Set(ctx, cacheKey, raw, r.ttl).Err(); err != nil {
				r.logger.Warn("api key cache write failed", slog.Any("error", err))
			}
		}
		return tc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TenantContext), nil
}

// Invalidate drops the cached entry for a key, used after revocation.
func (r *CachedKeyResolver) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, apiKeyCacheKey(key)).Err()
}
