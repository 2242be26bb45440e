package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

func NewRescheduleRequest(
	b *models.Booking,
	requestedBy uuid.UUID,
	proposed models.SlotSnapshot,
	reason string,
) *models.RescheduleRequest {
	return &models.RescheduleRequest{
		ID:               uuid.New(),
		BookingID:        b.ID,
		StudentID:        b.StudentID,
		TutorID:          b.TutorID,
		RequestedBy:      requestedBy,
		OriginalTimeSlot: b.TimeSlot,
		ProposedTimeSlot: proposed,
		Status:           RescheduleStatusPending,
		Reason:           reason,
	}
}

func resolveReschedule(rr *models.RescheduleRequest, to string, message *string) error {
	if rr.Status != RescheduleStatusPending {
		return fmt.Errorf("%w: reschedule request is %s", httperr.ErrInvalidTransition, rr.Status)
	}
	rr.Status = to
	rr.ResponseMessage = message
	return nil
}

func ApproveRescheduleRequest(rr *models.RescheduleRequest, message *string) error {
	return resolveReschedule(rr, RescheduleStatusApproved, message)
}

func RejectRescheduleRequest(rr *models.RescheduleRequest, message *string) error {
	return resolveReschedule(rr, RescheduleStatusRejected, message)
}

// ValidateProposedSlot checks the proposed slot belongs to the booking's
// tutor and lies in the future.
func ValidateProposedSlot(b *models.Booking, slot *models.TimeSlot, now time.Time) error {
	if slot.TutorID != b.TutorID {
		return fmt.Errorf("%w: slot belongs to another tutor", httperr.ErrInvalidInput)
	}
	if slot.ID == b.TimeSlot.SlotID {
		return fmt.Errorf("%w: proposed slot equals current slot", httperr.ErrInvalidInput)
	}
	if !slot.StartTime.After(now) {
		return fmt.Errorf("%w: proposed slot is in the past", httperr.ErrInvalidInput)
	}
	return nil
}
