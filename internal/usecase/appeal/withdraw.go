package appeal

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type WithdrawAppeal struct {
	Deps
}

func NewWithdrawAppeal(deps Deps) *WithdrawAppeal {
	return &WithdrawAppeal{Deps: deps}
}

// Execute cancels the appeal. The booking goes back to completed and the
// earning back to frozen, so the regular settlement pays the tutor.
func (uc *WithdrawAppeal) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	studentID uuid.UUID,
) (*models.Appeal, error) {

	m, err := uc.mutate(ctx, appealID, func(m *mutation) error {
		if err := requireStudent(m.appeal, studentID); err != nil {
			return err
		}
		if err := appealdomain.Withdraw(m.appeal, m.now); err != nil {
			return err
		}
		if err := bookingdomain.WithdrawAppeal(m.booking); err != nil {
			return err
		}
		if _, err := wallet.NewLedger(m.tx.Wallets(), m.now).UnlockEarning(ctx, m.booking.TutorID, m.booking.ID); err != nil {
			return err
		}
		m.touchBooking = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("appeal withdrawn", zap.String("appeal_id", appealID.String()))

	var after usecase.After
	uc.EmitAfter(&after, &studentID, audit.AppealWithdrawn, audit.EntityAppeal, appealID, map[string]any{
		"booking_id": m.booking.ID,
	})
	after.Run()

	return m.appeal, nil
}
