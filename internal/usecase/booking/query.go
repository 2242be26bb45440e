package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/actor"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/models"
)

type GetBooking struct {
	Deps
}

func NewGetBooking(deps Deps) *GetBooking {
	return &GetBooking{Deps: deps}
}

func (uc *GetBooking) Execute(
	ctx context.Context,
	bookingID uuid.UUID,
	by actor.Actor,
) (*models.Booking, error) {

	b, err := uc.Store.Bookings().GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(b, by); err != nil {
		return nil, err
	}
	return b, nil
}

type ListBookings struct {
	Deps
}

func NewListBookings(deps Deps) *ListBookings {
	return &ListBookings{Deps: deps}
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Execute lists the caller's bookings. Students and tutors only ever see
// their own side; the platform sees everything.
func (uc *ListBookings) Execute(
	ctx context.Context,
	by actor.Actor,
	filter bookingdomain.ListFilter,
) ([]models.Booking, int64, error) {

	filter.UserID = by.ID
	filter.Role = by.Role
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultLimit
	}
	filter.Limit = min(filter.Limit, maxLimit)

	return uc.Store.Bookings().ListBookings(ctx, filter)
}
