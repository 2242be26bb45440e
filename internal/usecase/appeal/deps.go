package appeal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/domain/actor"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/infra/storage"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type RefundRequester interface {
	RequestRefund(ctx context.Context, bookingID uuid.UUID) error
}

type Deps struct {
	usecase.Deps

	Policy   bookingdomain.Policy
	Payments RefundRequester
	Evidence storage.ObjectStore
}

func (d Deps) windows() appealdomain.Windows {
	return appealdomain.Windows{
		Tutor:    d.Policy.AppealWindow(),
		Student:  d.Policy.StudentConfirmWindow(),
		Platform: d.Policy.PlatformWindow(),
	}
}

// mutation is the state one appeal flow works on inside its transaction.
type mutation struct {
	tx      domain.Store
	appeal  *models.Appeal
	booking *models.Booking
	now     time.Time

	touchBooking bool
	unchanged    bool
	refund       int64
	needRefund   bool
}

// mutate loads the appeal, takes its booking's lock and runs fn inside a
// store transaction. The appeal is saved unless fn sets unchanged; the
// booking only when fn sets touchBooking.
func (d Deps) mutate(
	ctx context.Context,
	appealID uuid.UUID,
	fn func(m *mutation) error,
) (*mutation, error) {

	found, err := d.Store.Appeals().GetAppeal(ctx, appealID)
	if err != nil {
		return nil, err
	}

	m := &mutation{}
	err = d.LockBooking(ctx, found.BookingID, func() error {
		m.now = d.Clock.Now()

		return d.Store.WithinTx(ctx, func(tx domain.Store) error {
			m.tx = tx

			var err error
			m.appeal, err = tx.Appeals().GetAppeal(ctx, appealID)
			if err != nil {
				return err
			}
			m.booking, err = tx.Bookings().GetBooking(ctx, m.appeal.BookingID)
			if err != nil {
				return err
			}

			if err := fn(m); err != nil {
				return err
			}
			if m.unchanged {
				return nil
			}

			m.appeal.UpdatedAt = m.now
			if err := tx.Appeals().UpdateAppeal(ctx, m.appeal); err != nil {
				return err
			}
			if m.touchBooking {
				m.booking.UpdatedAt = m.now
				return tx.Bookings().UpdateBooking(ctx, m.booking)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// settleFunds closes the booking side of a resolved appeal: the refund is
// debited from the tutor's locked earning, the rest of it is released.
func (m *mutation) settleFunds(ctx context.Context, refund int64) error {
	ledger := wallet.NewLedger(m.tx.Wallets(), m.now)
	b := m.booking

	if refund > 0 {
		if _, err := ledger.RefundFromEarning(ctx, b.TutorID, b.ID, refund, wallet.TxAppealRefund, "appeal refund"); err != nil {
			return err
		}
	} else {
		if _, err := ledger.ReleaseEarning(ctx, b.TutorID, b.ID); err != nil {
			return err
		}
	}

	if err := bookingdomain.CloseAppeal(b, refund, m.now); err != nil {
		return err
	}
	if refund > 0 && bookingdomain.PaymentStatus(b.PaymentStatus) == bookingdomain.PaymentPaid {
		b.PaymentStatus = string(bookingdomain.PaymentRefundRequested)
		m.needRefund = true
	}

	m.refund = refund
	m.touchBooking = true
	return nil
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

func requireStudent(a *models.Appeal, userID uuid.UUID) error {
	if a.StudentID != userID {
		return fmt.Errorf("%w: appeal %s belongs to another student", httperr.ErrForbidden, a.ID)
	}
	return nil
}

func requireTutor(a *models.Appeal, userID uuid.UUID) error {
	if a.TutorID != userID {
		return fmt.Errorf("%w: appeal %s belongs to another tutor", httperr.ErrForbidden, a.ID)
	}
	return nil
}

func requireViewer(a *models.Appeal, by actor.Actor) error {
	if by.Role == actor.RolePlatform || a.StudentID == by.ID || a.TutorID == by.ID {
		return nil
	}
	return fmt.Errorf("%w: not a party to appeal %s", httperr.ErrForbidden, a.ID)
}

// errEscalated is returned after commit when a late call found the
// deadline lapsed and escalated the appeal instead.
var errEscalated = fmt.Errorf("%w: deadline passed, appeal escalated to the platform", httperr.ErrInvalidTransition)
