package repository

import (
	"context"
	"spacedesk/pkg/model"
	"time"
)

type ReservationRepository interface {
	// Insert persists r as RESERVED and assigns its ID.
	Insert(ctx context.Context, r *model.Reservation) error
	FindByID(ctx context.Context, id int64) (*model.Reservation, error)
	// MarkExpired moves a RESERVED reservation to EXPIRED in one conditional
	// write. It reports false when the reservation is unknown or already expired.
	MarkExpired(ctx context.Context, id int64) (bool, error)
	FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error)
	Count(ctx context.Context, filter model.ReservationFilter) (int64, error)
	// FindOverdue returns RESERVED reservations whose expiresAt is before the given instant, oldest first.
	FindOverdue(ctx context.Context, before time.Time, limit int) ([]*model.Reservation, error)
	Ping(ctx context.Context) error
}

// withTimeout bounds ctx by timeout unless the caller already set a shorter deadline.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}
