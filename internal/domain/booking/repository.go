package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/models"
)

type ListFilter struct {
	UserID   uuid.UUID
	Role     actor.Role
	Statuses []Status
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Getters return an error wrapping httperr.ErrNotFound for missing rows.
type Repository interface {
	// -------- Slots --------
	CreateSlot(
		ctx context.Context,
		slot *models.TimeSlot,
	) error

	GetSlot(
		ctx context.Context,
		id uuid.UUID,
	) (*models.TimeSlot, error)

	AssertNoSlotOverlap(
		ctx context.Context,
		tutorID uuid.UUID,
		start time.Time,
		end time.Time,
	) error

	ListFreeSlots(
		ctx context.Context,
		tutorID uuid.UUID,
		from time.Time,
		to time.Time,
	) ([]models.TimeSlot, error)

	// ReserveSlot flips isBooked only if it was false.
	ReserveSlot(
		ctx context.Context,
		slotID uuid.UUID,
		bookingID uuid.UUID,
	) error

	// ReleaseSlot frees the slot only if bookingID still holds it.
	ReleaseSlot(
		ctx context.Context,
		slotID uuid.UUID,
		bookingID uuid.UUID,
	) error

	// -------- Courses --------
	GetCourse(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Course, error)

	CreateCourse(
		ctx context.Context,
		course *models.Course,
	) error

	// -------- Bookings --------
	CreateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	GetBooking(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Booking, error)

	// UpdateBooking bumps Version and fails with ErrConcurrentUpdate when
	// the stored version moved.
	UpdateBooking(
		ctx context.Context,
		b *models.Booking,
	) error

	AssertNoStudentConflict(
		ctx context.Context,
		studentID uuid.UUID,
		start time.Time,
		end time.Time,
		exclude uuid.UUID,
	) error

	ListBookings(
		ctx context.Context,
		filter ListFilter,
	) ([]models.Booking, int64, error)

	ListDueForCompletion(
		ctx context.Context,
		now time.Time,
		limit int,
	) ([]models.Booking, error)

	ListDueForSettlement(
		ctx context.Context,
		completedBefore time.Time,
		limit int,
	) ([]models.Booking, error)

	// ListDueForExpiry returns pending bookings whose lesson has started.
	ListDueForExpiry(
		ctx context.Context,
		now time.Time,
		limit int,
	) ([]models.Booking, error)

	// ListPaymentRetries returns failed intents of live bookings and
	// failed refunds of any booking.
	ListPaymentRetries(
		ctx context.Context,
		limit int,
	) ([]models.Booking, error)

	// -------- Reschedules --------
	CreateReschedule(
		ctx context.Context,
		rr *models.RescheduleRequest,
	) error

	GetReschedule(
		ctx context.Context,
		id uuid.UUID,
	) (*models.RescheduleRequest, error)

	// GetPendingReschedule returns nil, nil when the booking has none.
	GetPendingReschedule(
		ctx context.Context,
		bookingID uuid.UUID,
	) (*models.RescheduleRequest, error)

	UpdateReschedule(
		ctx context.Context,
		rr *models.RescheduleRequest,
	) error

	// -------- Payments --------
	SavePayment(
		ctx context.Context,
		p *models.PaymentRecord,
	) error

	// GetPaymentByBooking returns nil, nil before the first intent.
	GetPaymentByBooking(
		ctx context.Context,
		bookingID uuid.UUID,
	) (*models.PaymentRecord, error)

	GetPaymentByProviderRef(
		ctx context.Context,
		ref string,
	) (*models.PaymentRecord, error)
}
