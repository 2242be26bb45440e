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
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

// ======================================================
// Request
// ======================================================

type RequestReschedule struct {
	Deps
}

func NewRequestReschedule(deps Deps) *RequestReschedule {
	return &RequestReschedule{Deps: deps}
}

func (uc *RequestReschedule) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
	by actor.Actor,
	proposedSlotID uuid.UUID,
	reason string,
) (*models.RescheduleRequest, error) {

	var (
		rr    *models.RescheduleRequest
		after usecase.After
	)

	err := uc.LockBooking(ctx, bookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()

			b, err := repo.GetBooking(ctx, bookingID)
			if err != nil {
				return err
			}
			if !bookingdomain.IsParticipant(b, by.ID) {
				return fmt.Errorf("%w: not a participant of booking %s", httperr.ErrForbidden, b.ID)
			}

			pending, err := repo.GetPendingReschedule(ctx, b.ID)
			if err != nil {
				return err
			}
			if pending != nil {
				return fmt.Errorf("%w: reschedule %s is still pending", httperr.ErrInvalidTransition, pending.ID)
			}

			if err := bookingdomain.StartReschedule(b); err != nil {
				return err
			}
			if !now.Before(b.TimeSlot.StartTime) {
				return fmt.Errorf("%w: lesson already started", httperr.ErrInvalidTransition)
			}

			slot, err := repo.GetSlot(ctx, proposedSlotID)
			if err != nil {
				return err
			}
			if err := bookingdomain.ValidateProposedSlot(b, slot, now); err != nil {
				return err
			}
			if err := repo.AssertNoStudentConflict(ctx, b.StudentID, slot.StartTime, slot.EndTime, b.ID); err != nil {
				return err
			}
			if err := repo.ReserveSlot(ctx, slot.ID, b.ID); err != nil {
				return err
			}

			rr = bookingdomain.NewRescheduleRequest(b, by.ID, slot.Snapshot(), reason)
			rr.CreatedAt = now
			rr.UpdatedAt = now
			if err := repo.CreateReschedule(ctx, rr); err != nil {
				return err
			}
			return repo.UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("reschedule requested",
		zap.String("booking_id", bookingID.String()),
		zap.String("request_id", rr.ID.String()),
	)
	uc.EmitAfter(&after, &by.ID, audit.RescheduleRequested, audit.EntityReschedule, rr.ID, rr)
	after.Run()

	return rr, nil
}

// ======================================================
// Approve / Reject
// ======================================================

// requireResponder allows the side that did not ask for the reschedule.
func requireResponder(rr *models.RescheduleRequest, userID uuid.UUID) error {
	responder := rr.TutorID
	if rr.RequestedBy == rr.TutorID {
		responder = rr.StudentID
	}
	if userID != responder {
		return fmt.Errorf("%w: only the other participant may answer this request", httperr.ErrForbidden)
	}
	return nil
}

type resolveReschedule struct {
	Deps
}

func (uc *resolveReschedule) run(
	ctx context.Context,
	requestID uuid.UUID,
	userID uuid.UUID,
	apply func(repo bookingdomain.Repository, b *models.Booking, rr *models.RescheduleRequest) error,
) (*models.Booking, *models.RescheduleRequest, error) {

	found, err := uc.Store.Bookings().GetReschedule(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	var (
		b  *models.Booking
		rr *models.RescheduleRequest
	)

	err = uc.LockBooking(ctx, found.BookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			repo := tx.Bookings()

			var err error
			rr, err = repo.GetReschedule(ctx, requestID)
			if err != nil {
				return err
			}
			if err := requireResponder(rr, userID); err != nil {
				return err
			}
			b, err = repo.GetBooking(ctx, rr.BookingID)
			if err != nil {
				return err
			}

			if err := apply(repo, b, rr); err != nil {
				return err
			}

			rr.UpdatedAt = now
			if err := repo.UpdateReschedule(ctx, rr); err != nil {
				return err
			}
			return repo.UpdateBooking(ctx, b)
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return b, rr, nil
}

type ApproveReschedule struct {
	resolveReschedule
}

func NewApproveReschedule(deps Deps) *ApproveReschedule {
	return &ApproveReschedule{resolveReschedule{Deps: deps}}
}

// Execute moves the booking onto the proposed slot and frees the old one.
func (uc *ApproveReschedule) Execute(
	ctx context.Context,
	requestID uuid.UUID,
	userID uuid.UUID,
	message *string,
) (*models.Booking, error) {

	b, rr, err := uc.run(ctx, requestID, userID, func(repo bookingdomain.Repository, b *models.Booking, rr *models.RescheduleRequest) error {
		if err := bookingdomain.ApproveRescheduleRequest(rr, message); err != nil {
			return err
		}
		old := b.TimeSlot.SlotID
		if err := bookingdomain.ApplyReschedule(b, rr.ProposedTimeSlot); err != nil {
			return err
		}
		return repo.ReleaseSlot(ctx, old, b.ID)
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("reschedule approved",
		zap.String("booking_id", b.ID.String()),
		zap.String("slot_id", b.TimeSlot.SlotID.String()),
	)

	var after usecase.After
	uc.EmitAfter(&after, &userID, audit.BookingRescheduled, audit.EntityBooking, b.ID, map[string]any{
		"request_id":        rr.ID,
		"time_slot":         b.TimeSlot,
		"previous_slot_id":  rr.OriginalTimeSlot.SlotID,
		"previous_start_at": rr.OriginalTimeSlot.StartTime,
	})
	after.Run()

	return b, nil
}

type RejectReschedule struct {
	resolveReschedule
}

func NewRejectReschedule(deps Deps) *RejectReschedule {
	return &RejectReschedule{resolveReschedule{Deps: deps}}
}

// Execute keeps the original slot and frees the proposed one.
func (uc *RejectReschedule) Execute(
	ctx context.Context,
	requestID uuid.UUID,
	userID uuid.UUID,
	message *string,
) (*models.Booking, error) {

	b, rr, err := uc.run(ctx, requestID, userID, func(repo bookingdomain.Repository, b *models.Booking, rr *models.RescheduleRequest) error {
		if err := bookingdomain.RejectRescheduleRequest(rr, message); err != nil {
			return err
		}
		if err := bookingdomain.RevertReschedule(b); err != nil {
			return err
		}
		return repo.ReleaseSlot(ctx, rr.ProposedTimeSlot.SlotID, b.ID)
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("reschedule rejected", zap.String("booking_id", b.ID.String()))

	var after usecase.After
	uc.EmitAfter(&after, &userID, audit.RescheduleRejected, audit.EntityReschedule, rr.ID, rr)
	after.Run()

	return b, nil
}
