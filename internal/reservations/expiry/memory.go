package expiry

import (
	"context"
	"fmt"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/pkg/logger"
	"sort"
	"sync"
	"time"
)

const DefaultSweepInterval = 250 * time.Millisecond

// MemoryIndex keeps markers as deadlines in a map. Elapsed markers are
// delivered by a periodic sweep while Listen runs, or on demand by ExpireDue.
type MemoryIndex struct {
	mu        sync.Mutex
	deadlines map[int64]time.Time
	now       func() time.Time
	interval  time.Duration
	log       *logger.Logger
	closed    bool
}

type MemoryOption func(*MemoryIndex)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryIndex) { m.now = now }
}

func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(m *MemoryIndex) { m.interval = interval }
}

func NewMemoryIndex(log *logger.Logger, opts ...MemoryOption) *MemoryIndex {
	m := &MemoryIndex{
		deadlines: make(map[int64]time.Time),
		now:       time.Now,
		interval:  DefaultSweepInterval,
		log:       log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryIndex) checkOpen(op string) error {
	if m.closed {
		return fmt.Errorf("%w: %s: index closed", reservationserrors.ErrIndex, op)
	}
	return nil
}

func (m *MemoryIndex) Put(_ context.Context, id int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("put"); err != nil {
		return err
	}
	m.deadlines[id] = m.now().Add(ttl)
	return nil
}

// remaining reports the time left for id. Callers hold m.mu.
func (m *MemoryIndex) remaining(id int64) time.Duration {
	deadline, ok := m.deadlines[id]
	if !ok {
		return TTLAbsent
	}
	left := deadline.Sub(m.now())
	if left <= 0 {
		return TTLAbsent
	}
	return left
}

func (m *MemoryIndex) IsLive(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("exists"); err != nil {
		return false, err
	}
	return m.remaining(id) != TTLAbsent, nil
}

func (m *MemoryIndex) RemainingTTL(_ context.Context, id int64) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkOpen("ttl"); err != nil {
		return 0, err
	}
	return m.remaining(id), nil
}

// due removes and returns the ids whose deadline has passed, oldest first.
func (m *MemoryIndex) due() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var ids []int64
	for id, deadline := range m.deadlines {
		if !deadline.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.deadlines[ids[i]].Before(m.deadlines[ids[j]])
	})
	for _, id := range ids {
		delete(m.deadlines, id)
	}
	return ids
}

// ExpireDue delivers every elapsed marker to l and returns how many were delivered.
func (m *MemoryIndex) ExpireDue(ctx context.Context, l Listener) int {
	ids := m.due()
	for _, id := range ids {
		if err := l.OnExpire(ctx, id); err != nil {
			m.log.Error("Expiry listener failed", "reservation_id", id, "error", err)
		}
	}
	return len(ids)
}

func (m *MemoryIndex) Listen(ctx context.Context, l Listener) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("Listening for expired reservations", "driver", "memory", "sweep_interval", m.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.ExpireDue(ctx, l)
		}
	}
}

func (m *MemoryIndex) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkOpen("ping")
}

func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
