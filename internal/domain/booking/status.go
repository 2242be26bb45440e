package booking

import (
	"fmt"

	"github.com/wemaster/booking-core/internal/httperr"
)

// ===============================
// Booking Status
// ===============================

type Status string

const (
	StatusPending      Status = "pending"
	StatusConfirmed    Status = "confirmed"
	StatusRescheduling Status = "rescheduling"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
	StatusAppealing    Status = "appealing"
	StatusRefunded     Status = "refunded"
)

var transitions = map[Status][]Status{
	StatusPending:      {StatusConfirmed, StatusCancelled},
	StatusConfirmed:    {StatusCompleted, StatusCancelled, StatusRescheduling},
	StatusRescheduling: {StatusConfirmed, StatusCancelled},
	StatusCompleted:    {StatusAppealing},
	StatusAppealing:    {StatusRefunded, StatusCompleted},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether user-initiated mutations are closed. A
// completed booking can still enter an appeal.
func IsTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Occupies reports whether a booking in this status holds its slot.
func Occupies(s Status) bool {
	return s != StatusCancelled
}

func InitialStatus() Status {
	return StatusPending
}

func guard(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: booking %s -> %s", httperr.ErrInvalidTransition, from, to)
	}
	return nil
}

// ===============================
// Payment Status
// ===============================

type PaymentStatus string

const (
	PaymentNone            PaymentStatus = "none"
	PaymentIntentRequested PaymentStatus = "intent_requested"
	PaymentIntentFailed    PaymentStatus = "intent_failed"
	PaymentAwaiting        PaymentStatus = "awaiting_payment"
	PaymentPaid            PaymentStatus = "paid"
	PaymentFailed          PaymentStatus = "payment_failed"
	PaymentRefundRequested PaymentStatus = "refund_requested"
	PaymentRefunded        PaymentStatus = "refunded"
	PaymentRefundFailed    PaymentStatus = "refund_failed"
)

// IsSettled reports whether the student's money reached the platform.
func (p PaymentStatus) IsSettled() bool {
	switch p {
	case PaymentPaid, PaymentRefundRequested, PaymentRefunded, PaymentRefundFailed:
		return true
	}
	return false
}

// NeedsRetry lists the states the reconciliation pass picks up.
func (p PaymentStatus) NeedsRetry() bool {
	return p == PaymentIntentFailed || p == PaymentRefundFailed
}

// ===============================
// Reschedule Status
// ===============================

const (
	RescheduleStatusPending  = "pending"
	RescheduleStatusApproved = "approved"
	RescheduleStatusRejected = "rejected"
)
