package appeal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type OpenAppeal struct {
	Deps
}

func NewOpenAppeal(deps Deps) *OpenAppeal {
	return &OpenAppeal{Deps: deps}
}

// Execute opens an appeal on a completed booking within the appeal window
// and locks the tutor's earning for it.
func (uc *OpenAppeal) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
	studentID uuid.UUID,
	reason string,
	content string,
) (*models.Appeal, error) {

	var a *models.Appeal

	err := uc.LockBooking(ctx, bookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			b, err := tx.Bookings().GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if b.StudentID != studentID {
				return fmt.Errorf("%w: only the booking's student may appeal", httperr.ErrForbidden)
			}
			if err := bookingdomain.CheckAppealWindow(b, uc.Policy, now); err != nil {
				return err
			}

			active, err := tx.Appeals().GetActiveForBooking(ctx, b.ID)
			if err != nil {
				return err
			}
			if active != nil {
				return fmt.Errorf("%w: appeal %s is already open", httperr.ErrInvalidTransition, active.ID)
			}

			a, err = appealdomain.New(b, reason, content, now, uc.windows())
			if err != nil {
				return err
			}
			a.CreatedAt = now
			a.UpdatedAt = now

			if err := bookingdomain.StartAppeal(b); err != nil {
				return err
			}
			if _, err := wallet.NewLedger(tx.Wallets(), now).LockEarning(ctx, b.TutorID, b.ID); err != nil {
				return err
			}

			if err := tx.Appeals().CreateAppeal(ctx, a); err != nil {
				return err
			}
			b.UpdatedAt = now
			return tx.Bookings().UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("appeal opened",
		zap.String("appeal_id", a.ID.String()),
		zap.String("booking_id", bookingID.String()),
		zap.Time("deadline_for_tutor", a.DeadlineForTutor),
	)

	var after usecase.After
	uc.EmitAfter(&after, &studentID, audit.AppealOpened, audit.EntityAppeal, a.ID, map[string]any{
		"booking_id":         bookingID,
		"tutor_id":           a.TutorID,
		"deadline_for_tutor": a.DeadlineForTutor,
	})
	after.Run()

	return a, nil
}
