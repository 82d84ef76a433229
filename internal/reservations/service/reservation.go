package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/internal/reservations/events"
	"spacedesk/internal/reservations/expiry"
	"spacedesk/internal/reservations/repository"
	"spacedesk/internal/reservations/validator"
	"spacedesk/pkg/config"
	apperrors "spacedesk/pkg/errors"
	"spacedesk/pkg/model"
	"spacedesk/pkg/sanitizer"
	"strconv"
	"sync"
	"time"
)

const resourceName = "Reservation"

type ReservationService interface {
	Create(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetStatus(ctx context.Context, id string) (*model.StatusView, error)
	GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error)

	// OnExpire records that the marker for id elapsed. Repeated or unknown
	// notifications are ignored.
	OnExpire(ctx context.Context, id int64) error
	// RemediateOverdue expires RESERVED reservations whose deadline passed
	// without a processed notification. It returns the number expired.
	RemediateOverdue(ctx context.Context) (int, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	index     expiry.Index
	validator *validator.ReservationValidator
	publisher events.Publisher
	cfg       *config.Config
	now       func() time.Time
}

type Option func(*reservationService)

func WithClock(now func() time.Time) Option {
	return func(s *reservationService) { s.now = now }
}

func NewReservationService(
	repo repository.ReservationRepository,
	index expiry.Index,
	validator *validator.ReservationValidator,
	publisher events.Publisher,
	cfg *config.Config,
	opts ...Option,
) ReservationService {
	s := &reservationService{
		repo:      repo,
		index:     index,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *reservationService) Create(ctx context.Context, req *model.CreateReservationRequest) (*model.Reservation, error) {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Reservation validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Reservation validation failed", verrs.Details())
		}
		return nil, apperrors.Validation("Reservation validation failed", map[string]any{"error": err.Error()})
	}

	ttl := s.cfg.ReservationTTL
	if req != nil && req.TTLSeconds != nil {
		ttl = time.Duration(*req.TTLSeconds) * time.Second
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	reservation := &model.Reservation{
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Status:    model.StatusReserved,
	}

	if err := s.repo.Insert(ctx, reservation); err != nil {
		s.cfg.Log.Error("Failed to persist reservation", "ttl", ttl, "error", err)
		return nil, s.storeError("Failed to create reservation", err)
	}

	// The record is committed; a client disconnect must not leave it unregistered.
	detached := context.WithoutCancel(ctx)

	if err := s.index.Put(detached, reservation.ID, ttl); err != nil {
		s.cfg.Log.Error("Failed to register reservation in expiry index",
			"reservation_id", reservation.ID,
			"ttl", ttl,
			"degraded", true,
			"error", err,
		)
	}

	if err := s.publisher.ReservationCreated(detached, reservation); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation created event",
			"reservation_id", reservation.ID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Reservation created",
		"reservation_id", reservation.ID,
		"expires_at", reservation.ExpiresAt,
		"ttl", ttl,
	)

	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	reservationID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	reservation, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID(resourceName, id)
		}
		s.cfg.Log.Error("Failed to get reservation by ID", "reservation_id", reservationID, "error", err)
		return nil, s.storeError("Failed to retrieve reservation", err)
	}

	return reservation, nil
}

func (s *reservationService) GetStatus(ctx context.Context, id string) (*model.StatusView, error) {
	reservation, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	live, ttl := s.liveness(ctx, reservation.ID)

	return &model.StatusView{
		ExistsInDatabase: true,
		IsActiveInRedis:  live,
		TTLSeconds:       ttlSeconds(ttl),
		Reservation:      reservation,
	}, nil
}

// liveness reads the marker for id. Index failures are reported as an absent
// marker since the durable record is authoritative.
func (s *reservationService) liveness(ctx context.Context, id int64) (bool, time.Duration) {
	live, err := s.index.IsLive(ctx, id)
	if err != nil {
		s.cfg.Log.Warn("Failed to read expiry index, reporting marker as absent",
			"reservation_id", id,
			"error", err,
		)
		return false, expiry.TTLAbsent
	}
	if !live {
		return false, expiry.TTLAbsent
	}

	ttl, err := s.index.RemainingTTL(ctx, id)
	if err != nil {
		s.cfg.Log.Warn("Failed to read expiry index TTL, reporting marker as absent",
			"reservation_id", id,
			"error", err,
		)
		return false, expiry.TTLAbsent
	}
	// Elapsed between the two reads.
	if ttl == expiry.TTLAbsent {
		return false, expiry.TTLAbsent
	}
	return true, ttl
}

// ttlSeconds rounds to the nearest second and keeps the negative sentinels as is.
func ttlSeconds(ttl time.Duration) int64 {
	switch ttl {
	case expiry.TTLAbsent:
		return -2
	case expiry.TTLPersistent:
		return -1
	}
	return int64((ttl + 500*time.Millisecond) / time.Second)
}

func (s *reservationService) GetAll(ctx context.Context, status string, limit int, offset int64) ([]*model.Reservation, int64, error) {
	status = sanitizer.SanitizeStatus(status)
	filter := model.ReservationFilter{Status: model.ReservationStatus(status)}
	if err := s.validator.ValidateFilter(&filter); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, 0, apperrors.Validation("Invalid reservation filter", verrs.Details())
		}
		return nil, 0, apperrors.InvalidInput(err.Error())
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count reservations", "status", status, "error", err)
			errCount = s.storeError("Failed to count reservations", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		reservations, err = s.repo.FindAll(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list reservations",
				"status", status,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = s.storeError("Failed to retrieve reservations", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return reservations, count, nil
}

func (s *reservationService) OnExpire(ctx context.Context, id int64) error {
	_, err := s.expire(ctx, id, "notification")
	return err
}

func (s *reservationService) expire(ctx context.Context, id int64, source string) (bool, error) {
	applied, err := s.repo.MarkExpired(ctx, id)
	if err != nil {
		return false, fmt.Errorf("expire reservation %d: %w", id, err)
	}

	if !applied {
		s.cfg.Log.Debug("Ignoring expiry for reservation that is unknown or already expired",
			"reservation_id", id,
			"source", source,
		)
		return false, nil
	}

	expiredAt := s.now().UTC()
	s.cfg.Log.Info("Reservation expired", "reservation_id", id, "source", source)

	if err := s.publisher.ReservationExpired(ctx, id, expiredAt); err != nil {
		s.cfg.Log.Warn("Failed to publish reservation expired event",
			"reservation_id", id,
			"error", err,
		)
	}
	return true, nil
}

func (s *reservationService) RemediateOverdue(ctx context.Context) (int, error) {
	before := s.now().UTC().Add(-s.cfg.RemediationGrace)

	overdue, err := s.repo.FindOverdue(ctx, before, s.cfg.RemediationBatchSize)
	if err != nil {
		s.cfg.Log.Error("Failed to query overdue reservations", "error", err)
		return 0, s.storeError("Failed to query overdue reservations", err)
	}

	expired := 0
	var errs []error
	for _, reservation := range overdue {
		live, err := s.index.IsLive(ctx, reservation.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if live {
			continue
		}

		applied, err := s.expire(ctx, reservation.ID, "remediation")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if applied {
			expired++
		}
	}

	if len(overdue) > 0 {
		s.cfg.Log.Info("Remediation pass finished",
			"overdue", len(overdue),
			"expired", expired,
			"failed", len(errs),
		)
	}

	if len(errs) > 0 {
		return expired, errors.Join(errs...)
	}
	return expired, nil
}

func parseID(id string) (int64, error) {
	id = sanitizer.SanitizeID(id)
	if id == "" {
		return 0, apperrors.Wrap(reservationserrors.ErrInvalidID, apperrors.CodeInvalidInput, "Reservation ID cannot be empty", http.StatusBadRequest)
	}
	reservationID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || reservationID <= 0 {
		return 0, apperrors.Wrap(reservationserrors.ErrInvalidID, apperrors.CodeInvalidInput, "Invalid reservation ID format", http.StatusBadRequest)
	}
	return reservationID, nil
}

// storeError maps a repository failure to the API error returned to clients.
func (s *reservationService) storeError(message string, err error) error {
	if errors.Is(err, reservationserrors.ErrPersistence) {
		return apperrors.Unavailable("Reservation store", err)
	}
	return apperrors.Internal(message, err)
}
