package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/internal/reservations/expiry"
	"spacedesk/internal/reservations/repository"
	"spacedesk/internal/reservations/validator"
	"spacedesk/pkg/config"
	apperrors "spacedesk/pkg/errors"
	"spacedesk/pkg/logger"
	"spacedesk/pkg/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []int64
	expired []int64
	err     error
}

func (p *recordingPublisher) ReservationCreated(_ context.Context, r *model.Reservation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, r.ID)
	return p.err
}

func (p *recordingPublisher) ReservationExpired(_ context.Context, id int64, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expired = append(p.expired, id)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// flakyIndex wraps a real index and fails the selected operations.
type flakyIndex struct {
	expiry.Index
	putErr  error
	readErr error
}

func (f *flakyIndex) Put(ctx context.Context, id int64, ttl time.Duration) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.Index.Put(ctx, id, ttl)
}

func (f *flakyIndex) IsLive(ctx context.Context, id int64) (bool, error) {
	if f.readErr != nil {
		return false, f.readErr
	}
	return f.Index.IsLive(ctx, id)
}

func (f *flakyIndex) RemainingTTL(ctx context.Context, id int64) (time.Duration, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.Index.RemainingTTL(ctx, id)
}

// flakyRepository wraps a real repository and fails the selected operations.
type flakyRepository struct {
	repository.ReservationRepository
	insertErr error
	markErr   error
	countErr  error
}

func (f *flakyRepository) Insert(ctx context.Context, r *model.Reservation) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.ReservationRepository.Insert(ctx, r)
}

func (f *flakyRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	return f.ReservationRepository.MarkExpired(ctx, id)
}

func (f *flakyRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.ReservationRepository.Count(ctx, filter)
}

type fixture struct {
	svc       ReservationService
	clock     *fakeClock
	index     *expiry.MemoryIndex
	flakyIdx  *flakyIndex
	repo      *flakyRepository
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	index := expiry.NewMemoryIndex(logger.NewNop(), expiry.WithClock(clock.Now))
	flakyIdx := &flakyIndex{Index: index}
	repo := &flakyRepository{ReservationRepository: repository.NewMemoryReservationRepository()}
	publisher := &recordingPublisher{}
	cfg := &config.Config{
		Log:                  logger.NewNop(),
		ReservationTTL:       30 * time.Second,
		MaxReservationTTL:    time.Hour,
		RemediationGrace:     time.Minute,
		RemediationBatchSize: 100,
	}

	svc := NewReservationService(repo, flakyIdx, validator.NewReservationValidator(cfg.MaxReservationTTL, cfg.Log), publisher, cfg, WithClock(clock.Now))
	return &fixture{svc: svc, clock: clock, index: index, flakyIdx: flakyIdx, repo: repo, publisher: publisher}
}

func (f *fixture) deliverExpired(ctx context.Context) int {
	return f.index.ExpireDue(ctx, f.svc)
}

func requireAppError(t *testing.T, err error, status int) *apperrors.AppError {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, status, appErr.StatusCode())
	return appErr
}

func id(r *model.Reservation) string {
	return fmt.Sprint(r.ID)
}

func TestCreate_DefaultTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, &model.CreateReservationRequest{})
	require.NoError(t, err)

	assert.Positive(t, r.ID)
	assert.Equal(t, model.StatusReserved, r.Status)
	assert.True(t, f.clock.Now().Equal(r.CreatedAt))
	assert.Equal(t, 30*time.Second, r.ExpiresAt.Sub(r.CreatedAt))
	assert.Equal(t, []int64{r.ID}, f.publisher.created)

	live, err := f.index.IsLive(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, live)
}

func TestCreate_CustomTTLAndValidation(t *testing.T) {
	f := newFixture(t)
	ttl := 120

	r, err := f.svc.Create(context.Background(), &model.CreateReservationRequest{TTLSeconds: &ttl})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, r.ExpiresAt.Sub(r.CreatedAt))

	tooLong := 7200
	_, err = f.svc.Create(context.Background(), &model.CreateReservationRequest{TTLSeconds: &tooLong})
	appErr := requireAppError(t, err, http.StatusUnprocessableEntity)
	assert.Contains(t, appErr.Details, "ttlSeconds")
}

func TestCreate_PersistenceFailureRegistersNothing(t *testing.T) {
	f := newFixture(t)
	f.repo.insertErr = fmt.Errorf("%w: connection refused", reservationserrors.ErrPersistence)

	r, err := f.svc.Create(context.Background(), nil)
	assert.Nil(t, r)
	requireAppError(t, err, http.StatusServiceUnavailable)

	f.clock.Advance(time.Hour)
	assert.Zero(t, f.deliverExpired(context.Background()), "no marker may exist for a failed insert")
	assert.Empty(t, f.publisher.created)
}

func TestCreate_DegradedWhenIndexFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.flakyIdx.putErr = fmt.Errorf("%w: redis down", reservationserrors.ErrIndex)

	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err, "index failure must not fail creation")

	stored, err := f.svc.GetByID(ctx, id(r))
	require.NoError(t, err)
	assert.Equal(t, model.StatusReserved, stored.Status)

	view, err := f.svc.GetStatus(ctx, id(r))
	require.NoError(t, err)
	assert.True(t, view.ExistsInDatabase)
	assert.False(t, view.IsActiveInRedis)
	assert.Equal(t, int64(-2), view.TTLSeconds)
	assert.Equal(t, model.StatusReserved, view.Reservation.Status)
	assert.True(t, view.Reservation.IsExpiredAt(f.clock.Now().Add(31*time.Second)))
}

func TestCreate_PublisherFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker unreachable")

	_, err := f.svc.Create(context.Background(), nil)
	assert.NoError(t, err)
}

func TestOnExpire_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.OnExpire(ctx, r.ID))
	}

	got, err := f.svc.GetByID(ctx, id(r))
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)
	assert.Equal(t, []int64{r.ID}, f.publisher.expired, "only the effective transition is announced")
}

func TestOnExpire_ConcurrentNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.OnExpire(ctx, r.ID))
		}()
	}
	wg.Wait()

	assert.Len(t, f.publisher.expired, 1)
}

func TestOnExpire_UnknownIDIsIgnored(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.svc.OnExpire(context.Background(), 404))
	assert.Empty(t, f.publisher.expired)
}

func TestOnExpire_StoreFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)

	f.repo.markErr = fmt.Errorf("%w: timeout", reservationserrors.ErrPersistence)
	err = f.svc.OnExpire(ctx, r.ID)
	assert.ErrorIs(t, err, reservationserrors.ErrPersistence)

	f.repo.markErr = nil
	require.NoError(t, f.svc.OnExpire(ctx, r.ID), "a redelivered notification completes the transition")
	got, _ := f.svc.GetByID(ctx, id(r))
	assert.Equal(t, model.StatusExpired, got.Status)
}

func TestNoBackwardTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.OnExpire(ctx, r.ID))

	// A stale marker write after expiry must not revive the record.
	require.NoError(t, f.index.Put(ctx, r.ID, time.Minute))
	f.clock.Advance(2 * time.Minute)
	f.deliverExpired(ctx)
	_, err = f.svc.RemediateOverdue(ctx)
	require.NoError(t, err)

	got, err := f.svc.GetByID(ctx, id(r))
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, got.Status)
}

func TestEndToEndExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ttl := 30

	r, err := f.svc.Create(ctx, &model.CreateReservationRequest{TTLSeconds: &ttl})
	require.NoError(t, err)

	view, err := f.svc.GetStatus(ctx, id(r))
	require.NoError(t, err)
	assert.True(t, view.ExistsInDatabase)
	assert.True(t, view.IsActiveInRedis)
	assert.Equal(t, int64(30), view.TTLSeconds)
	assert.Equal(t, model.StatusReserved, view.Reservation.Status)

	f.clock.Advance(10 * time.Second)
	view, err = f.svc.GetStatus(ctx, id(r))
	require.NoError(t, err)
	assert.Equal(t, int64(20), view.TTLSeconds)

	f.clock.Advance(21 * time.Second)
	assert.Equal(t, 1, f.deliverExpired(ctx))

	view, err = f.svc.GetStatus(ctx, id(r))
	require.NoError(t, err)
	assert.True(t, view.ExistsInDatabase)
	assert.False(t, view.IsActiveInRedis)
	assert.Equal(t, int64(-2), view.TTLSeconds)
	assert.Equal(t, model.StatusExpired, view.Reservation.Status)
}

func TestGetStatus_NotFound(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.GetStatus(context.Background(), "999")
	assert.Nil(t, view)
	appErr := requireAppError(t, err, http.StatusNotFound)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestGetStatus_InvalidID(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"", "abc", "-1", "0"} {
		_, err := f.svc.GetStatus(context.Background(), raw)
		appErr := requireAppError(t, err, http.StatusBadRequest)
		assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code, raw)
		assert.ErrorIs(t, err, reservationserrors.ErrInvalidID, raw)
	}
}

func TestGetByID_NormalizesID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)

	for _, raw := range []string{" 1", "+1", "001"} {
		got, err := f.svc.GetByID(ctx, raw)
		require.NoError(t, err, raw)
		assert.Equal(t, r.ID, got.ID)
	}
}

func TestGetStatus_IndexReadFailureDegrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)

	f.flakyIdx.readErr = fmt.Errorf("%w: i/o timeout", reservationserrors.ErrIndex)
	view, err := f.svc.GetStatus(ctx, id(r))
	require.NoError(t, err)
	assert.True(t, view.ExistsInDatabase)
	assert.False(t, view.IsActiveInRedis)
	assert.Equal(t, int64(-2), view.TTLSeconds)
}

func TestGetAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, nil)
		require.NoError(t, err)
	}
	require.NoError(t, f.svc.OnExpire(ctx, 1))

	all, total, err := f.svc.GetAll(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	expired, total, err := f.svc.GetAll(ctx, string(model.StatusExpired), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, expired, 1)
	assert.Equal(t, int64(1), expired[0].ID)

	expired, _, err = f.svc.GetAll(ctx, " expired ", 10, 0)
	require.NoError(t, err)
	assert.Len(t, expired, 1)

	_, _, err = f.svc.GetAll(ctx, "CANCELLED", 10, 0)
	requireAppError(t, err, http.StatusUnprocessableEntity)

	f.repo.countErr = fmt.Errorf("%w: down", reservationserrors.ErrPersistence)
	_, _, err = f.svc.GetAll(ctx, "", 10, 0)
	requireAppError(t, err, http.StatusServiceUnavailable)
}

func TestRemediateOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.flakyIdx.putErr = errors.New("redis down")
	degraded, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)
	f.flakyIdx.putErr = nil

	healthy, err := f.svc.Create(ctx, &model.CreateReservationRequest{TTLSeconds: intPtr(3600)})
	require.NoError(t, err)

	count, err := f.svc.RemediateOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "nothing is overdue yet")

	f.clock.Advance(30*time.Second + time.Minute + time.Second)
	count, err = f.svc.RemediateOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, _ := f.svc.GetByID(ctx, id(degraded))
	assert.Equal(t, model.StatusExpired, got.Status)
	got, _ = f.svc.GetByID(ctx, id(healthy))
	assert.Equal(t, model.StatusReserved, got.Status)

	count, err = f.svc.RemediateOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemediateOverdue_SkipsLiveMarkers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, nil)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	// Marker re-registered late, so the notification is still pending.
	require.NoError(t, f.index.Put(ctx, r.ID, time.Minute))

	count, err := f.svc.RemediateOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTTLSeconds(t *testing.T) {
	assert.Equal(t, int64(-2), ttlSeconds(expiry.TTLAbsent))
	assert.Equal(t, int64(-1), ttlSeconds(expiry.TTLPersistent))
	assert.Equal(t, int64(30), ttlSeconds(30*time.Second))
	assert.Equal(t, int64(30), ttlSeconds(29600*time.Millisecond))
	assert.Equal(t, int64(1), ttlSeconds(700*time.Millisecond))
}

func intPtr(v int) *int { return &v }
