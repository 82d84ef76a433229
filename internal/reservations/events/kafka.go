package events

import (
	"context"
	"spacedesk/pkg/kafka"
	"spacedesk/pkg/middleware"
	"spacedesk/pkg/model"
	"strconv"
	"time"
)

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
}

// NewKafkaPublisher publishes lifecycle events keyed by reservation id, so all
// events of one reservation land on the same partition in order.
func NewKafkaPublisher(producer *kafka.Producer, source string) Publisher {
	return &kafkaPublisher{producer: producer, source: source}
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, payload Payload) error {
	msg, err := kafka.NewMessage().
		WithKey(strconv.FormatInt(payload.ReservationID, 10)).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithHeader(HeaderReservationStatus, string(payload.Status)).
		WithCorrelationID(middleware.RequestIDFrom(ctx)).
		WithTimestamp(payload.OccurredAt).
		WithValue(payload).
		Build()
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) ReservationCreated(ctx context.Context, r *model.Reservation) error {
	createdAt, expiresAt := r.CreatedAt, r.ExpiresAt
	return p.publish(ctx, EventReservationCreated, Payload{
		ReservationID: r.ID,
		Status:        r.Status,
		CreatedAt:     &createdAt,
		ExpiresAt:     &expiresAt,
		OccurredAt:    r.CreatedAt,
	})
}

func (p *kafkaPublisher) ReservationExpired(ctx context.Context, id int64, at time.Time) error {
	return p.publish(ctx, EventReservationExpired, Payload{
		ReservationID: id,
		Status:        model.StatusExpired,
		OccurredAt:    at,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
