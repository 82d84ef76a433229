package events

import (
	"context"
	"spacedesk/pkg/model"
	"time"
)

const (
	EventReservationCreated = "reservation.created"
	EventReservationExpired = "reservation.expired"

	SchemaVersion = "1"

	// HeaderReservationStatus lets consumers route on the status without decoding the value.
	HeaderReservationStatus = "reservation-status"
)

// Publisher announces reservation lifecycle changes to other services.
type Publisher interface {
	ReservationCreated(ctx context.Context, r *model.Reservation) error
	ReservationExpired(ctx context.Context, id int64, at time.Time) error
	Close() error
}

// Payload is the JSON body of every lifecycle event.
type Payload struct {
	ReservationID int64                   `json:"reservationId"`
	Status        model.ReservationStatus `json:"status"`
	CreatedAt     *time.Time              `json:"createdAt,omitempty"`
	ExpiresAt     *time.Time              `json:"expiresAt,omitempty"`
	OccurredAt    time.Time               `json:"occurredAt"`
}

type nopPublisher struct{}

// NewNopPublisher returns a Publisher that drops every event.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) ReservationCreated(context.Context, *model.Reservation) error { return nil }
func (nopPublisher) ReservationExpired(context.Context, int64, time.Time) error   { return nil }
func (nopPublisher) Close() error                                                 { return nil }
