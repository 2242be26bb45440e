package booking

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/usecase"
)

type SettleBooking struct {
	Deps
}

func NewSettleBooking(deps Deps) *SettleBooking {
	return &SettleBooking{Deps: deps}
}

// Execute releases the tutor's frozen earning once the appeal window
// lapsed without an appeal. It reports whether anything was settled.
func (uc *SettleBooking) Execute(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	var (
		settled  bool
		released int64
		tutorID  uuid.UUID
	)

	err := uc.LockBooking(ctx, bookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()

			b, err := repo.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if !bookingdomain.DueForSettlement(b, uc.Policy, now) {
				return nil
			}

			earning, err := wallet.NewLedger(tx.Wallets(), now).ReleaseEarning(ctx, b.TutorID, b.ID)
			if err != nil {
				return err
			}
			if earning != nil {
				released = earning.Amount
			}

			bookingdomain.Settle(b, now)
			settled = true
			tutorID = b.TutorID
			return repo.UpdateBooking(ctx, b)
		})
	})
	if err != nil || !settled {
		return false, err
	}

	uc.Log.Info("booking settled",
		zap.String("booking_id", bookingID.String()),
		zap.Int64("released", released),
	)

	var after usecase.After
	uc.EmitAfter(&after, nil, audit.BookingSettled, audit.EntityBooking, bookingID, map[string]any{
		"tutor_id": tutorID,
		"released": released,
	})
	after.Run()

	return true, nil
}
