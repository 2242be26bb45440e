package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/domain/actor"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

// PaymentFlow is the part of the payment service booking flows trigger.
type PaymentFlow interface {
	RequestIntent(ctx context.Context, bookingID uuid.UUID) error
	RequestRefund(ctx context.Context, bookingID uuid.UUID) error
}

type Deps struct {
	usecase.Deps

	Pricing  pricing.Config
	Policy   bookingdomain.Policy
	Payments PaymentFlow
}

func (d Deps) scheduleIntent(after *usecase.After, id uuid.UUID) {
	after.Do(func() {
		d.Async.Go("payment-intent:"+id.String(), func(ctx context.Context) {
			if err := d.Payments.RequestIntent(ctx, id); err != nil {
				d.Log.Warn("payment intent attempt failed", zap.String("booking_id", id.String()), zap.Error(err))
			}
		})
	})
}

func (d Deps) scheduleRefund(after *usecase.After, id uuid.UUID) {
	after.Do(func() {
		d.Async.Go("refund:"+id.String(), func(ctx context.Context) {
			if err := d.Payments.RequestRefund(ctx, id); err != nil {
				d.Log.Warn("refund attempt failed", zap.String("booking_id", id.String()), zap.Error(err))
			}
		})
	})
}

func requireParticipant(b *models.Booking, a actor.Actor) error {
	if a.Role == actor.RolePlatform || bookingdomain.IsParticipant(b, a.ID) {
		return nil
	}
	return fmt.Errorf("%w: not a participant of booking %s", httperr.ErrForbidden, b.ID)
}

func requireTutor(b *models.Booking, tutorID uuid.UUID) error {
	if b.TutorID != tutorID {
		return fmt.Errorf("%w: booking %s belongs to another tutor", httperr.ErrForbidden, b.ID)
	}
	return nil
}
