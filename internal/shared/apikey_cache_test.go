package shared

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	tc    *TenantContext
	err   error
	calls int
}

func (r *countingResolver) Resolve(ctx context.Context, key string) (*TenantContext, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.tc, nil
}

func newCachedResolver(t *testing.T, next KeyResolver, ttl time.Duration) (*CachedKeyResolver, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCachedKeyResolver(next, client, ttl, logger), mr
}

func TestCachedResolverHitsBackingStoreOnce(t *testing.T) {
	next := &countingResolver{tc: &TenantContext{
		TenantID:  uuid.New(),
		ActorID:   uuid.New(),
		ActorName: "Integration Bot",
	}}
	resolver, _ := newCachedResolver(t, next, time.Minute)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "sk_live_abc")
	require.NoError(t, err)
	require.Equal(t, next.tc.TenantID, first.TenantID)

	second, err := resolver.Resolve(ctx, "sk_live_abc")
	require.NoError(t, err)
	require.Equal(t, next.tc.ActorName, second.ActorName)
	require.Equal(t, 1, next.calls)
}

func TestCachedResolverDoesNotCacheFailures(t *testing.T) {
	next := &countingResolver{err: ErrInvalidAPIKey}
	resolver, _ := newCachedResolver(t, next, time.Minute)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "sk_live_bogus")
	require.ErrorIs(t, err, ErrInvalidAPIKey)
	_, err = resolver.Resolve(ctx, "sk_live_bogus")
	require.ErrorIs(t, err, ErrInvalidAPIKey)
	require.Equal(t, 2, next.calls)
}

func TestCachedResolverExpiry(t *testing.T) {
	next := &countingResolver{tc: &TenantContext{TenantID: uuid.New(), ActorID: uuid.New()}}
	resolver, mr := newCachedResolver(t, next, time.Minute)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "sk_live_abc")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = resolver.Resolve(ctx, "sk_live_abc")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestCachedResolverRejectsEmptyKey(t *testing.T) {
	next := &countingResolver{}
	resolver, _ := newCachedResolver(t, next, time.Minute)

	_, err := resolver.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidAPIKey)
	require.Equal(t, 0, next.calls)
}

func TestInvalidateDropsEntry(t *testing.T) {
	next := &countingResolver{tc: &TenantContext{TenantID: uuid.New(), ActorID: uuid.New()}}
	resolver, _ := newCachedResolver(t, next, time.Minute)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "sk_live_abc")
	require.NoError(t, err)
	require.NoError(t, resolver.Invalidate(ctx, "sk_live_abc"))

	_, err = resolver.Resolve(ctx, "sk_live_abc")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}
