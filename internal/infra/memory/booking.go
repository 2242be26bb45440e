package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type bookingRepository struct {
	db *Store
}

var _ booking.Repository = (*bookingRepository)(nil)

// --------------------------------------------------
// Slots
// --------------------------------------------------

func (r *bookingRepository) CreateSlot(_ context.Context, slot *models.TimeSlot) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.t.slots[slot.ID] = *slot
	return nil
}

func (r *bookingRepository) GetSlot(_ context.Context, id uuid.UUID) (*models.TimeSlot, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	slot, ok := r.db.t.slots[id]
	if !ok {
		return nil, notFound("slot", id)
	}
	return &slot, nil
}

func (r *bookingRepository) AssertNoSlotOverlap(
	_ context.Context,
	tutorID uuid.UUID,
	start time.Time,
	end time.Time,
) error {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, s := range r.db.t.slots {
		if s.TutorID == tutorID && s.StartTime.Before(end) && s.EndTime.After(start) {
			return fmt.Errorf("%w: overlaps slot %s", httperr.ErrTimeConflict, s.ID)
		}
	}
	return nil
}

func (r *bookingRepository) ListFreeSlots(
	_ context.Context,
	tutorID uuid.UUID,
	from time.Time,
	to time.Time,
) ([]models.TimeSlot, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := []models.TimeSlot{}
	for _, s := range r.db.t.slots {
		if s.TutorID != tutorID || s.IsBooked {
			continue
		}
		if s.StartTime.Before(from) || !s.StartTime.Before(to) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *bookingRepository) ReserveSlot(_ context.Context, slotID, bookingID uuid.UUID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	slot, ok := r.db.t.slots[slotID]
	if !ok {
		return notFound("slot", slotID)
	}
	if slot.IsBooked {
		return fmt.Errorf("%w: slot %s", httperr.ErrSlotUnavailable, slotID)
	}

	slot.IsBooked = true
	slot.BookingID = &bookingID
	r.db.t.slots[slotID] = slot
	return nil
}

func (r *bookingRepository) ReleaseSlot(_ context.Context, slotID, bookingID uuid.UUID) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	slot, ok := r.db.t.slots[slotID]
	if !ok || slot.BookingID == nil || *slot.BookingID != bookingID {
		return nil
	}

	slot.IsBooked = false
	slot.BookingID = nil
	r.db.t.slots[slotID] = slot
	return nil
}

// --------------------------------------------------
// Courses
// --------------------------------------------------

func (r *bookingRepository) GetCourse(_ context.Context, id uuid.UUID) (*models.Course, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	c, ok := r.db.t.courses[id]
	if !ok {
		return nil, notFound("course", id)
	}
	return &c, nil
}

func (r *bookingRepository) CreateCourse(_ context.Context, c *models.Course) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.t.courses[c.ID] = *c
	return nil
}

// --------------------------------------------------
// Bookings
// --------------------------------------------------

func (r *bookingRepository) CreateBooking(_ context.Context, b *models.Booking) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, other := range r.db.t.bookings {
		if other.TimeSlot.SlotID == b.TimeSlot.SlotID && booking.Occupies(booking.Status(other.Status)) {
			return fmt.Errorf("%w: slot %s", httperr.ErrSlotUnavailable, b.TimeSlot.SlotID)
		}
	}

	r.db.t.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	b, ok := r.db.t.bookings[id]
	if !ok {
		return nil, notFound("booking", id)
	}
	return &b, nil
}

func (r *bookingRepository) UpdateBooking(_ context.Context, b *models.Booking) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.t.bookings[b.ID]
	if !ok {
		return notFound("booking", b.ID)
	}
	if stored.Version != b.Version {
		return fmt.Errorf("%w: booking %s", httperr.ErrConcurrentUpdate, b.ID)
	}

	b.Version++
	r.db.t.bookings[b.ID] = *b
	return nil
}

func (r *bookingRepository) AssertNoStudentConflict(
	_ context.Context,
	studentID uuid.UUID,
	start time.Time,
	end time.Time,
	exclude uuid.UUID,
) error {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, b := range r.db.t.bookings {
		if b.StudentID != studentID || b.ID == exclude {
			continue
		}
		if !booking.Occupies(booking.Status(b.Status)) {
			continue
		}
		if b.TimeSlot.Overlaps(start, end) {
			return fmt.Errorf("%w: overlaps booking %s", httperr.ErrTimeConflict, b.ID)
		}
	}
	return nil
}

func matchesFilter(b models.Booking, f booking.ListFilter) bool {
	switch f.Role {
	case actor.RoleStudent:
		if b.StudentID != f.UserID {
			return false
		}
	case actor.RoleTutor:
		if b.TutorID != f.UserID {
			return false
		}
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, booking.Status(b.Status)) {
		return false
	}
	if f.From != nil && b.TimeSlot.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && !b.TimeSlot.StartTime.Before(*f.To) {
		return false
	}
	return true
}

func (r *bookingRepository) ListBookings(_ context.Context, f booking.ListFilter) ([]models.Booking, int64, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	all := []models.Booking{}
	for _, b := range r.db.t.bookings {
		if matchesFilter(b, f) {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].TimeSlot.StartTime.Before(all[j].TimeSlot.StartTime) })

	total := int64(len(all))
	start := min(f.Offset(), len(all))
	end := len(all)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(all))
	}
	return all[start:end], total, nil
}

func (r *bookingRepository) listWhere(limit int, keep func(models.Booking) bool) []models.Booking {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := []models.Booking{}
	for _, b := range r.db.t.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TimeSlot.EndTime.Before(out[j].TimeSlot.EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *bookingRepository) ListDueForCompletion(_ context.Context, now time.Time, limit int) ([]models.Booking, error) {
	return r.listWhere(limit, func(b models.Booking) bool {
		return b.Status == string(booking.StatusConfirmed) && !b.TimeSlot.EndTime.After(now)
	}), nil
}

func (r *bookingRepository) ListDueForSettlement(_ context.Context, before time.Time, limit int) ([]models.Booking, error) {
	return r.listWhere(limit, func(b models.Booking) bool {
		return b.Status == string(booking.StatusCompleted) &&
			b.SettledAt == nil &&
			b.CompletedAt != nil &&
			b.CompletedAt.Before(before)
	}), nil
}

func (r *bookingRepository) ListDueForExpiry(_ context.Context, now time.Time, limit int) ([]models.Booking, error) {
	return r.listWhere(limit, func(b models.Booking) bool {
		return b.Status == string(booking.StatusPending) && !b.TimeSlot.StartTime.After(now)
	}), nil
}

func (r *bookingRepository) ListPaymentRetries(_ context.Context, limit int) ([]models.Booking, error) {
	return r.listWhere(limit, func(b models.Booking) bool {
		switch booking.PaymentStatus(b.PaymentStatus) {
		case booking.PaymentIntentFailed:
			return b.Status != string(booking.StatusCancelled)
		case booking.PaymentRefundFailed:
			return true
		}
		return false
	}), nil
}

// --------------------------------------------------
// Reschedules
// --------------------------------------------------

func (r *bookingRepository) CreateReschedule(_ context.Context, rr *models.RescheduleRequest) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, other := range r.db.t.reschedules {
		if other.BookingID == rr.BookingID && other.Status == booking.RescheduleStatusPending {
			return fmt.Errorf("%w: booking already has a pending reschedule", httperr.ErrInvalidTransition)
		}
	}
	r.db.t.reschedules[rr.ID] = *rr
	return nil
}

func (r *bookingRepository) GetReschedule(_ context.Context, id uuid.UUID) (*models.RescheduleRequest, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	rr, ok := r.db.t.reschedules[id]
	if !ok {
		return nil, notFound("reschedule request", id)
	}
	return &rr, nil
}

func (r *bookingRepository) GetPendingReschedule(_ context.Context, bookingID uuid.UUID) (*models.RescheduleRequest, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, rr := range r.db.t.reschedules {
		if rr.BookingID == bookingID && rr.Status == booking.RescheduleStatusPending {
			return &rr, nil
		}
	}
	return nil, nil
}

func (r *bookingRepository) UpdateReschedule(_ context.Context, rr *models.RescheduleRequest) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t.reschedules[rr.ID]; !ok {
		return notFound("reschedule request", rr.ID)
	}
	r.db.t.reschedules[rr.ID] = *rr
	return nil
}

// --------------------------------------------------
// Payments
// --------------------------------------------------

func (r *bookingRepository) SavePayment(_ context.Context, p *models.PaymentRecord) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, other := range r.db.t.payments {
		if other.BookingID == p.BookingID && other.ID != p.ID {
			return fmt.Errorf("%w: booking %s already has a payment", httperr.ErrConcurrentUpdate, p.BookingID)
		}
	}
	r.db.t.payments[p.ID] = *p
	return nil
}

func (r *bookingRepository) GetPaymentByBooking(_ context.Context, bookingID uuid.UUID) (*models.PaymentRecord, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, p := range r.db.t.payments {
		if p.BookingID == bookingID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *bookingRepository) GetPaymentByProviderRef(_ context.Context, ref string) (*models.PaymentRecord, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, p := range r.db.t.payments {
		if ref != "" && p.ProviderRef == ref {
			return &p, nil
		}
	}
	return nil, notFound("payment", ref)
}
