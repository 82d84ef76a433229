package expiry

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/pkg/logger"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const KeyPrefix = "reservation:"

// Key returns the redis key holding the marker for id.
func Key(id int64) string {
	return KeyPrefix + strconv.FormatInt(id, 10)
}

// ParseKey extracts the reservation id from a marker key. Keys outside the
// reservation namespace are rejected.
func ParseKey(key string) (int64, bool) {
	raw, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func ExpiredChannel(db int) string {
	return fmt.Sprintf("__keyevent@%d__:expired", db)
}

type RedisIndex struct {
	client                 *redis.Client
	db                     int
	configureNotifications bool
	log                    *logger.Logger
}

func NewRedisIndex(client *redis.Client, db int, configureNotifications bool, log *logger.Logger) *RedisIndex {
	return &RedisIndex{
		client:                 client,
		db:                     db,
		configureNotifications: configureNotifications,
		log:                    log,
	}
}

func indexErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", reservationserrors.ErrIndex, op, err)
}

func (r *RedisIndex) Put(ctx context.Context, id int64, ttl time.Duration) error {
	if err := r.client.Set(ctx, Key(id), "1", ttl).Err(); err != nil {
		return indexErr("set marker", err)
	}
	return nil
}

func (r *RedisIndex) IsLive(ctx context.Context, id int64) (bool, error) {
	n, err := r.client.Exists(ctx, Key(id)).Result()
	if err != nil {
		return false, indexErr("check marker", err)
	}
	return n > 0, nil
}

func (r *RedisIndex) RemainingTTL(ctx context.Context, id int64) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, Key(id)).Result()
	if err != nil {
		return 0, indexErr("read marker ttl", err)
	}
	// go-redis passes the -2/-1 replies through unscaled.
	switch {
	case ttl == -2:
		return TTLAbsent, nil
	case ttl == -1:
		return TTLPersistent, nil
	case ttl <= 0:
		return TTLAbsent, nil
	}
	return ttl, nil
}

// EnableNotifications turns on expired-key events. Managed deployments that
// forbid CONFIG must configure notify-keyspace-events themselves.
func (r *RedisIndex) EnableNotifications(ctx context.Context) error {
	if err := r.client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		return indexErr("enable keyspace notifications", err)
	}
	return nil
}

func (r *RedisIndex) Listen(ctx context.Context, l Listener) error {
	if r.configureNotifications {
		if err := r.EnableNotifications(ctx); err != nil {
			r.log.Warn("Could not enable keyspace notifications, expecting them to be preconfigured", "error", err)
		}
	}

	channel := ExpiredChannel(r.db)
	pubsub := r.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return indexErr("subscribe to expired events", err)
	}
	r.log.Info("Listening for expired reservations", "driver", "redis", "channel", channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return indexErr("subscription closed", errors.New("pubsub channel closed"))
			}
			id, ok := ParseKey(msg.Payload)
			if !ok {
				r.log.Debug("Ignoring expired key outside the reservation namespace", "key", msg.Payload)
				continue
			}
			if err := l.OnExpire(ctx, id); err != nil {
				r.log.Error("Expiry listener failed", "reservation_id", id, "error", err)
			}
		}
	}
}

func (r *RedisIndex) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return indexErr("ping redis", err)
	}
	return nil
}

// Close is a no-op; the shared client is closed with the other connections.
func (r *RedisIndex) Close() error {
	return nil
}
