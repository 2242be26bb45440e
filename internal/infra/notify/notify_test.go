package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wemaster/booking-core/internal/audit"
)

func sampleEvent() audit.Event {
	return audit.Event{
		ID:         uuid.New(),
		Action:     audit.BookingConfirmed,
		Entity:     audit.EntityBooking,
		EntityID:   uuid.New(),
		Metadata:   map[string]any{"slot_id": "s1"},
		OccurredAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaKeysByEntity(t *testing.T) {
	w := &fakeWriter{}
	k := &Kafka{writer: w}
	ev := sampleEvent()

	require.NoError(t, k.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, ev.EntityID.String(), string(msg.Key))
	assert.Equal(t, ev.OccurredAt, msg.Time)

	var got audit.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.Action, got.Action)
}

func TestKafkaWrapsWriteErrors(t *testing.T) {
	k := &Kafka{writer: &fakeWriter{err: errors.New("broker down")}}

	err := k.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "broker down")
}

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.exchange, c.key, c.msg = exchange, key, msg
	return nil
}

func TestRabbitMQRoutesByAction(t *testing.T) {
	ch := &fakeChannel{}
	r := &RabbitMQ{pub: ch, exchange: "booking.events"}
	ev := sampleEvent()

	require.NoError(t, r.Publish(context.Background(), ev))

	assert.Equal(t, "booking.events", ch.exchange)
	assert.Equal(t, audit.BookingConfirmed, ch.key)
	assert.Equal(t, ev.ID.String(), ch.msg.MessageId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := NewLog(zap.New(core))

	require.NoError(t, l.Publish(context.Background(), sampleEvent()))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.BookingConfirmed, entries[0].ContextMap()["action"])
}
