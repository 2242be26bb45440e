package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type CompleteBooking struct {
	Deps
}

func NewCompleteBooking(deps Deps) *CompleteBooking {
	return &CompleteBooking{Deps: deps}
}

// Execute is triggered by the sweeper once the slot has ended. It opens
// the feedback and appeal windows.
func (uc *CompleteBooking) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
) (*models.Booking, error) {

	var b *models.Booking

	err := uc.LockBooking(ctx, bookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()

			var err error
			b, err = repo.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if now.Before(b.TimeSlot.EndTime) {
				return fmt.Errorf("%w: lesson has not ended", httperr.ErrInvalidTransition)
			}
			if err := bookingdomain.Complete(b, now); err != nil {
				return err
			}
			return repo.UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("booking completed", zap.String("booking_id", b.ID.String()))

	var after usecase.After
	uc.EmitAfter(&after, nil, audit.BookingCompleted, audit.EntityBooking, b.ID, map[string]any{
		"appeal_deadline":   uc.Policy.AppealDeadline(*b.CompletedAt),
		"feedback_deadline": uc.Policy.FeedbackDeadline(*b.CompletedAt),
	})
	after.Run()

	return b, nil
}
