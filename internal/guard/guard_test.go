package guard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl), mr
}

func TestRedis_ExclusiveUntilReleased(t *testing.T) {
	g, _ := newRedisGuard(t, time.Minute)
	ctx := context.Background()

	release, err := g.Acquire(ctx, "verify:u1")
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "verify:u1")
	assert.ErrorIs(t, err, ErrBusy)

	other, err := g.Acquire(ctx, "verify:u2")
	require.NoError(t, err)
	other()

	release()
	again, err := g.Acquire(ctx, "verify:u1")
	require.NoError(t, err)
	again()
}

func TestRedis_HoldExpires(t *testing.T) {
	g, mr := newRedisGuard(t, 5*time.Second)
	ctx := context.Background()

	_, err := g.Acquire(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)

	release, err := g.Acquire(ctx, "k")
	require.NoError(t, err)
	release()
}

func TestRedis_StaleReleaseKeepsNewHolder(t *testing.T) {
	g, mr := newRedisGuard(t, 5*time.Second)
	ctx := context.Background()

	stale, err := g.Acquire(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(6 * time.Second)

	fresh, err := g.Acquire(ctx, "k")
	require.NoError(t, err)

	stale()
	_, err = g.Acquire(ctx, "k")
	assert.ErrorIs(t, err, ErrBusy, "stale release must not drop the new hold")
	fresh()
}

func TestRedis_ConnectionError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })
	g := NewRedis(client, time.Second)

	_, err := g.Acquire(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBusy)
}

func TestNop(t *testing.T) {
	release, err := Nop{}.Acquire(context.Background(), "k")
	require.NoError(t, err)
	release()
}
