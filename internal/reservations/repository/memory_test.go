package repository

import (
	"context"
	"errors"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/pkg/model"
	"sync"
	"testing"
	"time"
)

func newReservation(createdAt time.Time, ttl time.Duration) *model.Reservation {
	return &model.Reservation{
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(ttl),
	}
}

func TestMemoryRepository_InsertAssignsIDs(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	first := newReservation(now, 30*time.Second)
	first.Status = model.StatusExpired
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	second := newReservation(now, 30*time.Second)
	if err := repo.Insert(ctx, second); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if first.ID == second.ID {
		t.Errorf("expected distinct ids, got %d twice", first.ID)
	}
	if first.Status != model.StatusReserved {
		t.Errorf("expected Insert to force status RESERVED, got %s", first.Status)
	}

	got, err := repo.FindByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !got.ExpiresAt.Equal(second.ExpiresAt) {
		t.Errorf("expected expiresAt %v, got %v", second.ExpiresAt, got.ExpiresAt)
	}
}

func TestMemoryRepository_FindByIDNotFound(t *testing.T) {
	repo := NewMemoryReservationRepository()

	_, err := repo.FindByID(context.Background(), 99)
	if !errors.Is(err, reservationserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepository_MarkExpiredOnlyOnce(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	res := newReservation(time.Now().UTC(), time.Second)
	if err := repo.Insert(ctx, res); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkExpired(ctx, res.ID)
			if err != nil {
				t.Errorf("MarkExpired() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Errorf("expected exactly one transition, got %d", applied)
	}

	got, _ := repo.FindByID(ctx, res.ID)
	if got.Status != model.StatusExpired {
		t.Errorf("expected EXPIRED, got %s", got.Status)
	}

	ok, err := repo.MarkExpired(ctx, 12345)
	if err != nil || ok {
		t.Errorf("expected unknown id to be a no-op, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryRepository_FindAllAndCount(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		if err := repo.Insert(ctx, newReservation(now, time.Minute)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if _, err := repo.MarkExpired(ctx, 2); err != nil {
		t.Fatalf("MarkExpired() error = %v", err)
	}

	reserved := model.ReservationFilter{Status: model.StatusReserved}
	count, err := repo.Count(ctx, reserved)
	if err != nil || count != 4 {
		t.Errorf("expected 4 reserved, got %d (err=%v)", count, err)
	}

	page, err := repo.FindAll(ctx, model.ReservationFilter{}, 2, 1)
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if len(page) != 2 || page[0].ID != 4 || page[1].ID != 3 {
		t.Errorf("expected ids [4 3] newest first, got %v", ids(page))
	}

	empty, err := repo.FindAll(ctx, model.ReservationFilter{}, 10, 50)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %v (err=%v)", ids(empty), err)
	}
}

func TestMemoryRepository_FindOverdue(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	late := newReservation(now.Add(-2*time.Minute), time.Minute)
	later := newReservation(now.Add(-5*time.Minute), time.Minute)
	fresh := newReservation(now, time.Minute)
	expired := newReservation(now.Add(-10*time.Minute), time.Minute)
	for _, r := range []*model.Reservation{late, later, fresh, expired} {
		if err := repo.Insert(ctx, r); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if _, err := repo.MarkExpired(ctx, expired.ID); err != nil {
		t.Fatalf("MarkExpired() error = %v", err)
	}

	overdue, err := repo.FindOverdue(ctx, now, 10)
	if err != nil {
		t.Fatalf("FindOverdue() error = %v", err)
	}
	if len(overdue) != 2 || overdue[0].ID != later.ID || overdue[1].ID != late.ID {
		t.Errorf("expected [%d %d] oldest first, got %v", later.ID, late.ID, ids(overdue))
	}

	limited, _ := repo.FindOverdue(ctx, now, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Insert(ctx, newReservation(time.Now(), time.Second))
	if !errors.Is(err, reservationserrors.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func ids(rs []*model.Reservation) []int64 {
	out := make([]int64, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
