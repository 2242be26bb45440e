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

type CreateBookingInput struct {
	StudentID      uuid.UUID
	CourseID       uuid.UUID
	SlotID         uuid.UUID
	GiftCardAmount int64
	CouponAmount   int64
}

type CreateBooking struct {
	Deps
}

func NewCreateBooking(deps Deps) *CreateBooking {
	return &CreateBooking{Deps: deps}
}

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Booking, error) {

	var (
		b     *models.Booking
		after usecase.After
	)

	// The student lock keeps two concurrent requests for overlapping
	// slots from both passing the conflict check.
	err := uc.WithLock(ctx, domain.StudentKey(in.StudentID.String()), func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()

			course, err := repo.GetCourse(ctx, in.CourseID)
			if err != nil {
				return err
			}
			if !course.Active {
				return fmt.Errorf("%w: course is not active", httperr.ErrInvalidInput)
			}

			slot, err := repo.GetSlot(ctx, in.SlotID)
			if err != nil {
				return err
			}
			if slot.TutorID != course.TutorID {
				return fmt.Errorf("%w: slot does not belong to the course tutor", httperr.ErrInvalidInput)
			}
			if slot.TutorID == in.StudentID {
				return fmt.Errorf("%w: tutors cannot book themselves", httperr.ErrInvalidInput)
			}
			if !slot.StartTime.After(now) {
				return fmt.Errorf("%w: slot already started", httperr.ErrInvalidInput)
			}
			if slot.IsBooked {
				return fmt.Errorf("%w: slot %s", httperr.ErrSlotUnavailable, slot.ID)
			}

			if err := repo.AssertNoStudentConflict(ctx, in.StudentID, slot.StartTime, slot.EndTime, uuid.Nil); err != nil {
				return err
			}

			price, err := uc.Pricing.Snapshot(course, in.GiftCardAmount, in.CouponAmount)
			if err != nil {
				return err
			}

			b = bookingdomain.New(in.StudentID, course, slot, price)
			b.PaymentStatus = string(bookingdomain.PaymentIntentRequested)
			b.CreatedAt = now
			b.UpdatedAt = now

			if err := repo.ReserveSlot(ctx, slot.ID, b.ID); err != nil {
				return err
			}
			return repo.CreateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("booking created",
		zap.String("booking_id", b.ID.String()),
		zap.String("slot_id", b.TimeSlot.SlotID.String()),
		zap.Int64("total_price", b.Price.TotalPrice),
	)

	uc.EmitAfter(&after, &in.StudentID, audit.BookingCreated, audit.EntityBooking, b.ID, map[string]any{
		"tutor_id":  b.TutorID,
		"time_slot": b.TimeSlot,
		"price":     b.Price,
	})
	uc.scheduleIntent(&after, b.ID)
	after.Run()

	return b, nil
}
