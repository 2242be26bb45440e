package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/domain/actor"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

const expiredReason = "lesson started before the booking was confirmed"

type ExpireBooking struct {
	Deps
}

func NewExpireBooking(deps Deps) *ExpireBooking {
	return &ExpireBooking{Deps: deps}
}

// Execute cancels a booking still pending when its lesson starts and frees
// the slot. A student who already paid gets the full amount back.
func (uc *ExpireBooking) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
) (*models.Booking, error) {

	var (
		b      *models.Booking
		refund int64
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
			if bookingdomain.Status(b.Status) != bookingdomain.StatusPending {
				return fmt.Errorf("%w: booking is %s", httperr.ErrInvalidTransition, b.Status)
			}
			if now.Before(b.TimeSlot.StartTime) {
				return fmt.Errorf("%w: lesson has not started", httperr.ErrInvalidTransition)
			}

			paid := bookingdomain.PaymentStatus(b.PaymentStatus) == bookingdomain.PaymentPaid
			if paid {
				refund = b.Price.AmountDue()
			}

			if err := bookingdomain.Cancel(b, actor.System(), expiredReason, refund, now); err != nil {
				return err
			}
			if err := repo.ReleaseSlot(ctx, b.TimeSlot.SlotID, b.ID); err != nil {
				return err
			}

			if paid {
				ledger := wallet.NewLedger(tx.Wallets(), now)
				if _, err := ledger.RefundFromEarning(ctx, b.TutorID, b.ID, refund, wallet.TxCourseRefund, "expired booking refund"); err != nil {
					return err
				}
				bookingdomain.Settle(b, now)
				if refund > 0 {
					b.PaymentStatus = string(bookingdomain.PaymentRefundRequested)
				}
			}

			return repo.UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("pending booking expired",
		zap.String("booking_id", b.ID.String()),
		zap.Int64("refund", refund),
	)

	var after usecase.After
	uc.EmitAfter(&after, nil, audit.BookingCancelled, audit.EntityBooking, b.ID, map[string]any{
		"cancelled_by":  *b.CancelledBy,
		"reason":        expiredReason,
		"refund_amount": refund,
	})
	if refund > 0 {
		uc.scheduleRefund(&after, b.ID)
	}
	after.Run()

	return b, nil
}
