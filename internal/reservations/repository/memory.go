package repository

import (
	"context"
	"fmt"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/pkg/model"
	"sort"
	"sync"
	"time"
)

// memoryReservationRepository keeps reservations in process memory. It is used
// for local runs and tests.
type memoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[int64]model.Reservation
	lastID       int64
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{
		reservations: make(map[int64]model.Reservation),
	}
}

func (r *memoryReservationRepository) Insert(ctx context.Context, res *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return persistenceErr("insert reservation", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	res.ID = r.lastID
	res.Status = model.StatusReserved
	r.reservations[res.ID] = *res
	return nil
}

func (r *memoryReservationRepository) FindByID(ctx context.Context, id int64) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("find reservation", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", reservationserrors.ErrNotFound, id)
	}
	return &res, nil
}

func (r *memoryReservationRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, persistenceErr("mark reservation expired", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok || res.Status != model.StatusReserved {
		return false, nil
	}
	res.Status = model.StatusExpired
	r.reservations[id] = res
	return true, nil
}

// sorted returns copies of the reservations accepted by keep, ordered by less.
func (r *memoryReservationRepository) sorted(keep func(model.Reservation) bool, less func(a, b *model.Reservation) bool) []*model.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Reservation, 0, len(r.reservations))
	for _, res := range r.reservations {
		if keep(res) {
			res := res
			out = append(out, &res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func matches(filter model.ReservationFilter) func(model.Reservation) bool {
	return func(res model.Reservation) bool {
		return filter.Status == "" || res.Status == filter.Status
	}
}

func (r *memoryReservationRepository) FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("query reservations", err)
	}

	all := r.sorted(matches(filter), func(a, b *model.Reservation) bool { return a.ID > b.ID })
	if offset >= int64(len(all)) {
		return []*model.Reservation{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, persistenceErr("count reservations", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	keep := matches(filter)
	var count int64
	for _, res := range r.reservations {
		if keep(res) {
			count++
		}
	}
	return count, nil
}

func (r *memoryReservationRepository) FindOverdue(ctx context.Context, before time.Time, limit int) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistenceErr("query overdue reservations", err)
	}

	overdue := r.sorted(
		func(res model.Reservation) bool {
			return res.Status == model.StatusReserved && res.ExpiresAt.Before(before)
		},
		func(a, b *model.Reservation) bool { return a.ExpiresAt.Before(b.ExpiresAt) },
	)
	if limit > 0 && len(overdue) > limit {
		overdue = overdue[:limit]
	}
	return overdue, nil
}

func (r *memoryReservationRepository) Ping(context.Context) error {
	return nil
}
