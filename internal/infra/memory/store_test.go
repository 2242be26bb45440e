package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

func TestWithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	slot := models.TimeSlot{ID: uuid.New(), TutorID: uuid.New(), StartTime: time.Now(), EndTime: time.Now().Add(time.Hour)}
	s.PutSlot(slot)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx domain.Store) error {
		require.NoError(t, tx.Bookings().ReserveSlot(ctx, slot.ID, uuid.New()))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Bookings().GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, got.IsBooked)
}

func TestReserveSlotIsCheckAndSet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	slot := models.TimeSlot{ID: uuid.New(), TutorID: uuid.New()}
	s.PutSlot(slot)

	require.NoError(t, s.Bookings().ReserveSlot(ctx, slot.ID, uuid.New()))
	assert.ErrorIs(t, s.Bookings().ReserveSlot(ctx, slot.ID, uuid.New()), httperr.ErrSlotUnavailable)
}

func TestUpdateBookingChecksVersion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	b := &models.Booking{ID: uuid.New(), Status: "pending"}
	require.NoError(t, s.Bookings().CreateBooking(ctx, b))

	first, _ := s.Bookings().GetBooking(ctx, b.ID)
	second, _ := s.Bookings().GetBooking(ctx, b.ID)

	require.NoError(t, s.Bookings().UpdateBooking(ctx, first))
	assert.ErrorIs(t, s.Bookings().UpdateBooking(ctx, second), httperr.ErrConcurrentUpdate)
}

func seedBooking(t *testing.T, s *Store, status, payment string, start time.Time) uuid.UUID {
	t.Helper()
	b := &models.Booking{
		ID:            uuid.New(),
		Status:        status,
		PaymentStatus: payment,
		TimeSlot:      models.SlotSnapshot{SlotID: uuid.New(), StartTime: start, EndTime: start.Add(time.Hour)},
	}
	require.NoError(t, s.Bookings().CreateBooking(context.Background(), b))
	return b.ID
}

func ids(bs []models.Booking) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}

func TestListPaymentRetriesSkipsCancelledIntents(t *testing.T) {
	s := NewStore()
	now := time.Now()

	live := seedBooking(t, s, "pending", "intent_failed", now)
	seedBooking(t, s, "cancelled", "intent_failed", now)
	refund := seedBooking(t, s, "cancelled", "refund_failed", now)
	seedBooking(t, s, "pending", "awaiting_payment", now)

	due, err := s.Bookings().ListPaymentRetries(context.Background(), 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{live, refund}, ids(due))
}

func TestListDueForExpiry(t *testing.T) {
	s := NewStore()
	now := time.Now()

	started := seedBooking(t, s, "pending", "awaiting_payment", now.Add(-time.Minute))
	startsNow := seedBooking(t, s, "pending", "paid", now)
	seedBooking(t, s, "pending", "awaiting_payment", now.Add(time.Minute))
	seedBooking(t, s, "confirmed", "paid", now.Add(-time.Minute))

	due, err := s.Bookings().ListDueForExpiry(context.Background(), now, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{started, startsNow}, ids(due))
}
