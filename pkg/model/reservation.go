package model

import (
	"time"
)

type ReservationStatus string

const (
	StatusReserved ReservationStatus = "RESERVED"
	StatusExpired  ReservationStatus = "EXPIRED"
)

func (s ReservationStatus) Valid() bool {
	return s == StatusReserved || s == StatusExpired
}

type Reservation struct {
	ID        int64             `json:"id" bson:"_id"`
	CreatedAt time.Time         `json:"createdAt" bson:"created_at"`
	ExpiresAt time.Time         `json:"expiresAt" bson:"expires_at"`
	Status    ReservationStatus `json:"status" bson:"status"`
}

// IsExpiredAt reports whether the reservation is functionally expired at now,
// either because the expiry transition was recorded or because expiresAt has
// passed and the notification has not been processed yet.
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return r.Status == StatusExpired || !now.Before(r.ExpiresAt)
}

type CreateReservationRequest struct {
	TTLSeconds *int `json:"ttlSeconds,omitempty" validate:"omitempty,min=1,maxttl"`
}

type ReservationFilter struct {
	Status ReservationStatus `validate:"omitempty,oneof=RESERVED EXPIRED"`
}

type StatusView struct {
	ExistsInDatabase bool         `json:"existsInDatabase"`
	IsActiveInRedis  bool         `json:"isActiveInRedis"`
	TTLSeconds       int64        `json:"ttlSeconds"`
	Reservation      *Reservation `json:"reservation"`
}
