package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type BookingGormRepository struct {
	db *gorm.DB
}

func NewBookingGormRepository(db *gorm.DB) *BookingGormRepository {
	return &BookingGormRepository{db: db}
}

// --------------------------------------------------
// Slots
// --------------------------------------------------

func (r *BookingGormRepository) CreateSlot(
	ctx context.Context,
	slot *models.TimeSlot,
) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *BookingGormRepository) GetSlot(
	ctx context.Context,
	id uuid.UUID,
) (*models.TimeSlot, error) {

	var slot models.TimeSlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, first(err, "slot", id)
	}
	return &slot, nil
}

func (r *BookingGormRepository) AssertNoSlotOverlap(
	ctx context.Context,
	tutorID uuid.UUID,
	start time.Time,
	end time.Time,
) error {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TimeSlot{}).
		Where(
			"tutor_id = ? AND start_time < ? AND end_time > ?",
			tutorID,
			end,
			start,
		).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return fmt.Errorf("%w: overlaps an existing slot", httperr.ErrTimeConflict)
	}
	return nil
}

func (r *BookingGormRepository) ListFreeSlots(
	ctx context.Context,
	tutorID uuid.UUID,
	from time.Time,
	to time.Time,
) ([]models.TimeSlot, error) {

	slots := []models.TimeSlot{}
	if err := r.db.WithContext(ctx).
		Where(
			"tutor_id = ? AND is_booked = false AND start_time >= ? AND start_time < ?",
			tutorID, from, to,
		).
		Order("start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *BookingGormRepository) ReserveSlot(
	ctx context.Context,
	slotID uuid.UUID,
	bookingID uuid.UUID,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.TimeSlot{}).
		Where("id = ? AND is_booked = false", slotID).
		Updates(map[string]any{
			"is_booked":  true,
			"booking_id": bookingID,
		})
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		if _, err := r.GetSlot(ctx, slotID); err != nil {
			return err
		}
		return fmt.Errorf("%w: slot %s", httperr.ErrSlotUnavailable, slotID)
	}
	return nil
}

func (r *BookingGormRepository) ReleaseSlot(
	ctx context.Context,
	slotID uuid.UUID,
	bookingID uuid.UUID,
) error {
	return r.db.WithContext(ctx).
		Model(&models.TimeSlot{}).
		Where("id = ? AND booking_id = ?", slotID, bookingID).
		Updates(map[string]any{
			"is_booked":  false,
			"booking_id": nil,
		}).Error
}

// --------------------------------------------------
// Courses
// --------------------------------------------------

func (r *BookingGormRepository) GetCourse(
	ctx context.Context,
	id uuid.UUID,
) (*models.Course, error) {

	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error; err != nil {
		return nil, first(err, "course", id)
	}
	return &course, nil
}

func (r *BookingGormRepository) CreateCourse(
	ctx context.Context,
	course *models.Course,
) error {
	return r.db.WithContext(ctx).Create(course).Error
}

// --------------------------------------------------
// Bookings
// --------------------------------------------------

func (r *BookingGormRepository) CreateBooking(
	ctx context.Context,
	b *models.Booking,
) error {

	err := r.db.WithContext(ctx).Create(b).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: slot %s", httperr.ErrSlotUnavailable, b.TimeSlot.SlotID)
	}
	return err
}

func (r *BookingGormRepository) GetBooking(
	ctx context.Context,
	id uuid.UUID,
) (*models.Booking, error) {

	var b models.Booking
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, first(err, "booking", id)
	}
	return &b, nil
}

func (r *BookingGormRepository) UpdateBooking(
	ctx context.Context,
	b *models.Booking,
) error {

	next := *b
	next.Version = b.Version + 1

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND version = ?", b.ID, b.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(&next)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		if _, err := r.GetBooking(ctx, b.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: booking %s", httperr.ErrConcurrentUpdate, b.ID)
	}

	*b = next
	return nil
}

func (r *BookingGormRepository) AssertNoStudentConflict(
	ctx context.Context,
	studentID uuid.UUID,
	start time.Time,
	end time.Time,
	exclude uuid.UUID,
) error {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where(
			"student_id = ? AND id <> ? AND status <> ? AND slot_start_time < ? AND slot_end_time > ?",
			studentID,
			exclude,
			booking.StatusCancelled,
			end,
			start,
		).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return fmt.Errorf("%w: overlaps another booking", httperr.ErrTimeConflict)
	}
	return nil
}

func (r *BookingGormRepository) ListBookings(
	ctx context.Context,
	f booking.ListFilter,
) ([]models.Booking, int64, error) {

	q := r.db.WithContext(ctx).Model(&models.Booking{})

	switch f.Role {
	case actor.RoleStudent:
		q = q.Where("student_id = ?", f.UserID)
	case actor.RoleTutor:
		q = q.Where("tutor_id = ?", f.UserID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.From != nil {
		q = q.Where("slot_start_time >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("slot_start_time < ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	out := []models.Booking{}
	q = q.Order("slot_start_time ASC").Offset(f.Offset())
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *BookingGormRepository) listWhere(
	ctx context.Context,
	limit int,
	query string,
	args ...any,
) ([]models.Booking, error) {

	out := []models.Booking{}
	q := r.db.WithContext(ctx).
		Where(query, args...).
		Order("slot_end_time ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingGormRepository) ListDueForCompletion(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]models.Booking, error) {
	return r.listWhere(ctx, limit,
		"status = ? AND slot_end_time <= ?",
		booking.StatusConfirmed, now,
	)
}

func (r *BookingGormRepository) ListDueForSettlement(
	ctx context.Context,
	completedBefore time.Time,
	limit int,
) ([]models.Booking, error) {
	return r.listWhere(ctx, limit,
		"status = ? AND settled_at IS NULL AND completed_at < ?",
		booking.StatusCompleted, completedBefore,
	)
}

func (r *BookingGormRepository) ListDueForExpiry(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]models.Booking, error) {
	return r.listWhere(ctx, limit,
		"status = ? AND slot_start_time <= ?",
		booking.StatusPending, now,
	)
}

func (r *BookingGormRepository) ListPaymentRetries(
	ctx context.Context,
	limit int,
) ([]models.Booking, error) {
	return r.listWhere(ctx, limit,
		"(payment_status = ? AND status <> ?) OR payment_status = ?",
		booking.PaymentIntentFailed, booking.StatusCancelled, booking.PaymentRefundFailed,
	)
}

// --------------------------------------------------
// Reschedules
// --------------------------------------------------

func (r *BookingGormRepository) CreateReschedule(
	ctx context.Context,
	rr *models.RescheduleRequest,
) error {

	err := r.db.WithContext(ctx).Create(rr).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: booking already has a pending reschedule", httperr.ErrInvalidTransition)
	}
	return err
}

func (r *BookingGormRepository) GetReschedule(
	ctx context.Context,
	id uuid.UUID,
) (*models.RescheduleRequest, error) {

	var rr models.RescheduleRequest
	if err := r.db.WithContext(ctx).First(&rr, "id = ?", id).Error; err != nil {
		return nil, first(err, "reschedule request", id)
	}
	return &rr, nil
}

func (r *BookingGormRepository) GetPendingReschedule(
	ctx context.Context,
	bookingID uuid.UUID,
) (*models.RescheduleRequest, error) {

	var rr models.RescheduleRequest
	err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, booking.RescheduleStatusPending).
		First(&rr).Error

	found, err := optional(err)
	if !found {
		return nil, err
	}
	return &rr, nil
}

func (r *BookingGormRepository) UpdateReschedule(
	ctx context.Context,
	rr *models.RescheduleRequest,
) error {
	return r.db.WithContext(ctx).Save(rr).Error
}

// --------------------------------------------------
// Payments
// --------------------------------------------------

func (r *BookingGormRepository) SavePayment(
	ctx context.Context,
	p *models.PaymentRecord,
) error {

	err := r.db.WithContext(ctx).Save(p).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: booking %s already has a payment", httperr.ErrConcurrentUpdate, p.BookingID)
	}
	return err
}

func (r *BookingGormRepository) GetPaymentByBooking(
	ctx context.Context,
	bookingID uuid.UUID,
) (*models.PaymentRecord, error) {

	var p models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&p).Error

	found, err := optional(err)
	if !found {
		return nil, err
	}
	return &p, nil
}

func (r *BookingGormRepository) GetPaymentByProviderRef(
	ctx context.Context,
	ref string,
) (*models.PaymentRecord, error) {

	if ref == "" {
		return nil, notFound("payment", ref)
	}

	var p models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("provider_ref = ?", ref).
		First(&p).Error; err != nil {
		return nil, first(err, "payment", ref)
	}
	return &p, nil
}

// Compile-time check
var _ booking.Repository = (*BookingGormRepository)(nil)
