// Package guard serialises OTP verification per user so concurrent attempts
// cannot race on the attempt counter.
package guard

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another request holds the key.
var ErrBusy = errors.New("guard: key is held by another request")

// Guard hands out short-lived exclusive holds on a key.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Nop never blocks. It is used when no Redis is configured.
type Nop struct{}

// Acquire always succeeds.
func (Nop) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements Guard with SET NX PX and a compare-and-delete release.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis returns a Redis guard whose holds expire after ttl even if never
// released.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: "guard:"}
}

// Acquire takes key with SET NX and returns a release func that deletes it
// only while this holder still owns it. A held key yields ErrBusy.
func (g *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	k := g.prefix + key
	holder := uuid.NewString()
	ok, err := g.client.SetNX(ctx, k, holder, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() {
		// Release must not depend on the request context, which may already
		// be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{k}, holder).Err()
	}, nil
}
