package booking

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type ConfirmBooking struct {
	Deps
}

func NewConfirmBooking(deps Deps) *ConfirmBooking {
	return &ConfirmBooking{Deps: deps}
}

// Execute records the tutor's acceptance. Without a settled payment the
// booking stays pending until the payment webhook confirms it.
func (uc *ConfirmBooking) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
	tutorID uuid.UUID,
) (*models.Booking, error) {

	var (
		b         *models.Booking
		confirmed bool
		after     usecase.After
	)

	err := uc.LockBooking(ctx, bookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()

			var err error
			b, err = repo.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if err := requireTutor(b, tutorID); err != nil {
				return err
			}

			confirmed, err = bookingdomain.Confirm(b, now)
			if err != nil {
				return err
			}
			return repo.UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	if confirmed {
		uc.Log.Info("booking confirmed", zap.String("booking_id", b.ID.String()))
		uc.EmitAfter(&after, &tutorID, audit.BookingConfirmed, audit.EntityBooking, b.ID, b.TimeSlot)
	} else {
		uc.Log.Info("booking accepted, awaiting payment",
			zap.String("booking_id", b.ID.String()),
			zap.String("payment_status", b.PaymentStatus),
		)
	}
	after.Run()

	return b, nil
}
