package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type CreateSlot struct {
	Deps
}

func NewCreateSlot(deps Deps) *CreateSlot {
	return &CreateSlot{Deps: deps}
}

func (uc *CreateSlot) Execute(
	ctx context.Context,
	tutorID uuid.UUID,
	start time.Time,
	end time.Time,
) (*models.TimeSlot, error) {

	var slot *models.TimeSlot

	err := uc.WithLock(ctx, domain.TutorKey(tutorID.String()), func() error {
		now := uc.Clock.Now()

		var err error
		slot, err = bookingdomain.NewSlot(tutorID, start, end, now)
		if err != nil {
			return err
		}
		slot.CreatedAt = now
		slot.UpdatedAt = now

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()
			if err := repo.AssertNoSlotOverlap(ctx, tutorID, slot.StartTime, slot.EndTime); err != nil {
				return err
			}
			return repo.CreateSlot(ctx, slot)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("slot created", zap.String("slot_id", slot.ID.String()), zap.String("tutor_id", tutorID.String()))

	var after usecase.After
	uc.EmitAfter(&after, &tutorID, audit.SlotCreated, audit.EntitySlot, slot.ID, nil)
	after.Run()

	return slot, nil
}

type ListFreeSlots struct {
	Deps
}

func NewListFreeSlots(deps Deps) *ListFreeSlots {
	return &ListFreeSlots{Deps: deps}
}

const maxSlotRange = 62 * 24 * time.Hour

func (uc *ListFreeSlots) Execute(
	ctx context.Context,
	tutorID uuid.UUID,
	from time.Time,
	to time.Time,
) ([]models.TimeSlot, error) {

	if !to.After(from) {
		return nil, fmt.Errorf("%w: to must be after from", httperr.ErrInvalidInput)
	}
	if to.Sub(from) > maxSlotRange {
		return nil, fmt.Errorf("%w: range longer than %s", httperr.ErrInvalidInput, maxSlotRange)
	}

	return uc.Store.Bookings().ListFreeSlots(ctx, tutorID, from.UTC(), to.UTC())
}
