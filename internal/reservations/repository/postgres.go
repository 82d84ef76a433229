package repository

import (
	"context"
	"errors"
	"fmt"
	reservationserrors "spacedesk/internal/reservations/errors"
	"spacedesk/pkg/config"
	"spacedesk/pkg/model"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationColumns = `id, created_at, expires_at, status`

type postgresReservationRepository struct {
	pool         *pgxpool.Pool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewPostgresReservationRepository(cfg *config.Config) ReservationRepository {
	return &postgresReservationRepository{
		pool:         cfg.Client.Postgres,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *postgresReservationRepository) Insert(ctx context.Context, res *model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	res.Status = model.StatusReserved
	row := r.pool.QueryRow(ctx,
		`INSERT INTO reservations (created_at, expires_at, status) VALUES ($1, $2, $3) RETURNING id`,
		res.CreatedAt, res.ExpiresAt, res.Status,
	)
	if err := row.Scan(&res.ID); err != nil {
		return persistenceErr("insert reservation", err)
	}
	return nil
}

func scanReservation(row pgx.Row) (*model.Reservation, error) {
	var res model.Reservation
	if err := row.Scan(&res.ID, &res.CreatedAt, &res.ExpiresAt, &res.Status); err != nil {
		return nil, err
	}
	res.CreatedAt = res.CreatedAt.UTC()
	res.ExpiresAt = res.ExpiresAt.UTC()
	return &res, nil
}

func (r *postgresReservationRepository) FindByID(ctx context.Context, id int64) (*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", reservationserrors.ErrNotFound, id)
		}
		return nil, persistenceErr("find reservation", err)
	}
	return res, nil
}

func (r *postgresReservationRepository) MarkExpired(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.writeTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx,
		`UPDATE reservations SET status = $2 WHERE id = $1 AND status = $3`,
		id, model.StatusExpired, model.StatusReserved,
	)
	if err != nil {
		return false, persistenceErr("mark reservation expired", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresReservationRepository) query(ctx context.Context, op, sql string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	defer rows.Close()

	reservations := make([]*model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, persistenceErr(op, err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(op, err)
	}
	return reservations, nil
}

func (r *postgresReservationRepository) FindAll(ctx context.Context, filter model.ReservationFilter, limit int, offset int64) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	if filter.Status == "" {
		return r.query(ctx, "query reservations",
			`SELECT `+reservationColumns+` FROM reservations ORDER BY id DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	return r.query(ctx, "query reservations",
		`SELECT `+reservationColumns+` FROM reservations WHERE status = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		filter.Status, limit, offset)
}

func (r *postgresReservationRepository) Count(ctx context.Context, filter model.ReservationFilter) (int64, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	var row pgx.Row
	if filter.Status == "" {
		row = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations`)
	} else {
		row = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reservations WHERE status = $1`, filter.Status)
	}

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, persistenceErr("count reservations", err)
	}
	return count, nil
}

func (r *postgresReservationRepository) FindOverdue(ctx context.Context, before time.Time, limit int) ([]*model.Reservation, error) {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	return r.query(ctx, "query overdue reservations",
		`SELECT `+reservationColumns+` FROM reservations WHERE status = $1 AND expires_at < $2 ORDER BY expires_at ASC LIMIT $3`,
		model.StatusReserved, before, limit)
}

func (r *postgresReservationRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.readTimeout)
	defer cancel()

	if err := r.pool.Ping(ctx); err != nil {
		return persistenceErr("ping postgres", err)
	}
	return nil
}
