package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/domain/actor"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type CancelBooking struct {
	Deps
}

func NewCancelBooking(deps Deps) *CancelBooking {
	return &CancelBooking{Deps: deps}
}

// refundFor applies the lead-time tiers to student cancellations. A tutor
// or the platform cancelling returns everything but the fee.
func refundFor(b *models.Booking, by actor.Actor, now time.Time) int64 {
	if by.ID == b.StudentID {
		return pricing.CancellationRefund(b.Price, b.TimeSlot.StartTime.Sub(now))
	}
	return pricing.Refundable(b.Price)
}

func (uc *CancelBooking) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
	by actor.Actor,
	reason string,
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
			if err := requireParticipant(b, by); err != nil {
				return err
			}

			paid := bookingdomain.PaymentStatus(b.PaymentStatus) == bookingdomain.PaymentPaid
			if paid {
				refund = refundFor(b, by, now)
			}

			wasRescheduling := bookingdomain.Status(b.Status) == bookingdomain.StatusRescheduling
			if err := bookingdomain.Cancel(b, by, reason, refund, now); err != nil {
				return err
			}

			if err := repo.ReleaseSlot(ctx, b.TimeSlot.SlotID, b.ID); err != nil {
				return err
			}
			if wasRescheduling {
				if err := uc.dropPendingReschedule(ctx, repo, b); err != nil {
					return err
				}
			}

			if paid {
				ledger := wallet.NewLedger(tx.Wallets(), now)
				if _, err := ledger.RefundFromEarning(ctx, b.TutorID, b.ID, refund, wallet.TxCourseRefund, "cancellation refund"); err != nil {
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

	uc.Log.Info("booking cancelled",
		zap.String("booking_id", b.ID.String()),
		zap.String("cancelled_by", *b.CancelledBy),
		zap.Int64("refund", refund),
	)

	var after usecase.After
	uc.EmitAfter(&after, by.IDPtr(), audit.BookingCancelled, audit.EntityBooking, b.ID, map[string]any{
		"cancelled_by":  *b.CancelledBy,
		"reason":        reason,
		"refund_amount": refund,
	})
	if refund > 0 {
		uc.scheduleRefund(&after, b.ID)
	}
	after.Run()

	return b, nil
}

func (uc *CancelBooking) dropPendingReschedule(
	ctx context.Context,
	repo bookingdomain.Repository,
	b *models.Booking,
) error {
	rr, err := repo.GetPendingReschedule(ctx, b.ID)
	if err != nil || rr == nil {
		return err
	}

	msg := "booking cancelled"
	if err := bookingdomain.RejectRescheduleRequest(rr, &msg); err != nil {
		return err
	}
	rr.UpdatedAt = uc.Clock.Now()
	if err := repo.UpdateReschedule(ctx, rr); err != nil {
		return err
	}
	return repo.ReleaseSlot(ctx, rr.ProposedTimeSlot.SlotID, b.ID)
}
