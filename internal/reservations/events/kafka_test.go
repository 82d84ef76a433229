package events

import (
	"context"
	"encoding/json"
	"spacedesk/pkg/kafka"
	"spacedesk/pkg/middleware"
	"spacedesk/pkg/model"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	messages []kafkago.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_ReservationCreated(t *testing.T) {
	writer := &captureWriter{}
	publisher := NewKafkaPublisher(kafka.NewProducerWithWriters(writer, nil, "reservations.lifecycle", ""), "spacedesk")

	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	err := publisher.ReservationCreated(ctx, &model.Reservation{
		ID:        7,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(30 * time.Second),
		Status:    model.StatusReserved,
	})
	require.NoError(t, err)

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "7", string(msg.Key))
	assert.Equal(t, EventReservationCreated, header(msg, kafka.HeaderEventType))
	assert.Equal(t, "spacedesk", header(msg, kafka.HeaderSource))
	assert.Equal(t, "req-1", header(msg, kafka.HeaderCorrelationID))
	assert.Equal(t, "RESERVED", header(msg, HeaderReservationStatus))

	var payload Payload
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, int64(7), payload.ReservationID)
	assert.Equal(t, model.StatusReserved, payload.Status)
	require.NotNil(t, payload.ExpiresAt)
	assert.True(t, payload.ExpiresAt.Equal(createdAt.Add(30*time.Second)))
}

func TestKafkaPublisher_ReservationExpired(t *testing.T) {
	writer := &captureWriter{}
	publisher := NewKafkaPublisher(kafka.NewProducerWithWriters(writer, nil, "reservations.lifecycle", ""), "spacedesk")

	at := time.Date(2024, 5, 1, 12, 0, 31, 0, time.UTC)
	require.NoError(t, publisher.ReservationExpired(context.Background(), 7, at))

	require.Len(t, writer.messages, 1)
	assert.Equal(t, EventReservationExpired, header(writer.messages[0], kafka.HeaderEventType))
	assert.Empty(t, header(writer.messages[0], kafka.HeaderCorrelationID))
	assert.Equal(t, "EXPIRED", header(writer.messages[0], HeaderReservationStatus))

	var payload Payload
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &payload))
	assert.Equal(t, model.StatusExpired, payload.Status)
	assert.Nil(t, payload.CreatedAt)
	assert.NoError(t, publisher.Close())
}
