package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

// ===============================
// Construction
// ===============================

func New(
	studentID uuid.UUID,
	course *models.Course,
	slot *models.TimeSlot,
	price models.PriceSnapshot,
) *models.Booking {
	return &models.Booking{
		ID:            uuid.New(),
		StudentID:     studentID,
		TutorID:       course.TutorID,
		CourseID:      course.ID,
		TimeSlot:      slot.Snapshot(),
		Status:        string(InitialStatus()),
		PaymentStatus: string(PaymentNone),
		Price:         price,
	}
}

// ===============================
// Domain Actions
// ===============================

// Confirm records the tutor's acceptance. The booking only becomes
// confirmed once the payment has settled; otherwise it stays pending and
// MarkPaid finishes the job.
func Confirm(b *models.Booking, now time.Time) (bool, error) {
	if err := guard(Status(b.Status), StatusConfirmed); err != nil {
		return false, err
	}

	if b.TutorConfirmedAt == nil {
		b.TutorConfirmedAt = &now
	}
	if !PaymentStatus(b.PaymentStatus).IsSettled() {
		return false, nil
	}

	b.Status = string(StatusConfirmed)
	b.ConfirmedAt = &now
	return true, nil
}

// MarkPaid reports whether the payment also confirmed the booking.
func MarkPaid(b *models.Booking, now time.Time) bool {
	b.PaymentStatus = string(PaymentPaid)

	if Status(b.Status) != StatusPending || b.TutorConfirmedAt == nil {
		return false
	}
	b.Status = string(StatusConfirmed)
	b.ConfirmedAt = &now
	return true
}

func StartReschedule(b *models.Booking) error {
	if err := guard(Status(b.Status), StatusRescheduling); err != nil {
		return err
	}

	original := b.TimeSlot
	b.OriginalTimeSlot = &original
	b.Status = string(StatusRescheduling)
	return nil
}

func ApplyReschedule(b *models.Booking, proposed models.SlotSnapshot) error {
	if Status(b.Status) != StatusRescheduling {
		return fmt.Errorf("%w: booking is %s, not rescheduling", httperr.ErrInvalidTransition, b.Status)
	}

	b.TimeSlot = proposed
	b.OriginalTimeSlot = nil
	b.Status = string(StatusConfirmed)
	return nil
}

func RevertReschedule(b *models.Booking) error {
	if Status(b.Status) != StatusRescheduling {
		return fmt.Errorf("%w: booking is %s, not rescheduling", httperr.ErrInvalidTransition, b.Status)
	}

	b.OriginalTimeSlot = nil
	b.Status = string(StatusConfirmed)
	return nil
}

func Complete(b *models.Booking, now time.Time) error {
	if err := guard(Status(b.Status), StatusCompleted); err != nil {
		return err
	}

	b.Status = string(StatusCompleted)
	b.CompletedAt = &now
	return nil
}

// Cancel refuses user cancellations once the lesson has started. The
// system actor may cancel a pending booking at any time (failed payment).
func Cancel(
	b *models.Booking,
	by actor.Actor,
	reason string,
	refund int64,
	now time.Time,
) error {
	if err := guard(Status(b.Status), StatusCancelled); err != nil {
		return err
	}
	if !by.IsSystem() && !now.Before(b.TimeSlot.StartTime) {
		return fmt.Errorf("%w: lesson already started", httperr.ErrInvalidTransition)
	}

	label := by.Label()
	b.Status = string(StatusCancelled)
	b.CancelledBy = &label
	b.CancelReason = &reason
	b.RefundAmount = &refund
	b.CancelledAt = &now
	AbandonIntent(b)
	return nil
}

// AbandonIntent drops an unpaid intent from the retry queue. It reports
// whether anything changed.
func AbandonIntent(b *models.Booking) bool {
	switch PaymentStatus(b.PaymentStatus) {
	case PaymentIntentRequested, PaymentIntentFailed:
		b.PaymentStatus = string(PaymentNone)
		return true
	}
	return false
}

// CheckAppealWindow is the gate for opening an appeal.
func CheckAppealWindow(b *models.Booking, p Policy, now time.Time) error {
	if Status(b.Status) != StatusCompleted {
		return fmt.Errorf("%w: booking is %s", httperr.ErrInvalidTransition, b.Status)
	}
	if b.CompletedAt == nil || now.After(p.AppealDeadline(*b.CompletedAt)) {
		return httperr.ErrAppealWindowExpired
	}
	if b.SettledAt != nil {
		return fmt.Errorf("%w: booking already settled", httperr.ErrAppealWindowExpired)
	}
	return nil
}

func StartAppeal(b *models.Booking) error {
	if err := guard(Status(b.Status), StatusAppealing); err != nil {
		return err
	}
	b.Status = string(StatusAppealing)
	return nil
}

// CloseAppeal settles the booking with the appeal outcome.
func CloseAppeal(b *models.Booking, refund int64, now time.Time) error {
	to := StatusCompleted
	if refund > 0 {
		to = StatusRefunded
	}
	if err := guard(Status(b.Status), to); err != nil {
		return err
	}

	b.Status = string(to)
	b.SettledAt = &now
	if refund > 0 {
		b.RefundAmount = &refund
	}
	return nil
}

// WithdrawAppeal puts the booking back to completed without settling it;
// the sweeper releases the earning later.
func WithdrawAppeal(b *models.Booking) error {
	if err := guard(Status(b.Status), StatusCompleted); err != nil {
		return err
	}
	b.Status = string(StatusCompleted)
	return nil
}

// DueForSettlement reports whether the appeal window lapsed untouched.
func DueForSettlement(b *models.Booking, p Policy, now time.Time) bool {
	return Status(b.Status) == StatusCompleted &&
		b.SettledAt == nil &&
		b.CompletedAt != nil &&
		now.After(p.AppealDeadline(*b.CompletedAt))
}

func Settle(b *models.Booking, now time.Time) {
	b.SettledAt = &now
}

// IsParticipant reports whether the user is the student or the tutor.
func IsParticipant(b *models.Booking, userID uuid.UUID) bool {
	return b.StudentID == userID || b.TutorID == userID
}
