package expiry

import (
	"context"
	"time"
)

const (
	// TTLAbsent is reported by RemainingTTL when the marker is expired or was never set.
	TTLAbsent = -2 * time.Second
	// TTLPersistent is reported for a marker that exists without an expiry.
	TTLPersistent = -1 * time.Second
)

// Listener receives one call per elapsed marker. Delivery is at least once, so
// implementations must tolerate repeats.
type Listener interface {
	OnExpire(ctx context.Context, id int64) error
}

type ListenerFunc func(ctx context.Context, id int64) error

func (f ListenerFunc) OnExpire(ctx context.Context, id int64) error {
	return f(ctx, id)
}

// Index holds short-lived liveness markers keyed by reservation id.
type Index interface {
	// Put sets the marker for id to elapse after ttl. The last write wins.
	Put(ctx context.Context, id int64, ttl time.Duration) error
	IsLive(ctx context.Context, id int64) (bool, error)
	// RemainingTTL returns the time left on the marker, or TTLAbsent.
	RemainingTTL(ctx context.Context, id int64) (time.Duration, error)
	// Listen delivers elapsed markers to l until ctx is cancelled.
	Listen(ctx context.Context, l Listener) error
	Ping(ctx context.Context) error
	Close() error
}
