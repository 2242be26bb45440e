// Package usecasetest wires the use cases against in-memory collaborators.
package usecasetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/async"
	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/clock"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/infra/lock"
	"github.com/wemaster/booking-core/internal/infra/memory"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
	"github.com/wemaster/booking-core/internal/usecase/payment"
)

// Start is the fake clock's initial instant, a Monday.
var Start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type Env struct {
	Store    *memory.Store
	Clock    *clock.Fake
	Events   *audit.Recorder
	Gateway  *gateway.Fake
	Deduper  *lock.MemoryDeduper
	Payments *payment.Service
	Deps     usecase.Deps
	Pricing  pricing.Config
	Policy   booking.Policy

	StudentID uuid.UUID
	TutorID   uuid.UUID
	AdminID   uuid.UUID
}

func New(t *testing.T) *Env {
	t.Helper()

	env := &Env{
		Store:     memory.NewStore(),
		Clock:     clock.NewFake(Start),
		Events:    audit.NewRecorder(),
		Gateway:   gateway.NewFake(),
		Deduper:   lock.NewMemoryDeduper(),
		Pricing:   pricing.DefaultConfig(),
		Policy:    booking.DefaultPolicy(),
		StudentID: uuid.New(),
		TutorID:   uuid.New(),
		AdminID:   uuid.New(),
	}
	env.Deps = usecase.Deps{
		Store:  env.Store,
		Locker: lock.NewLocal(),
		Events: env.Events,
		Async:  async.Inline{},
		Clock:  env.Clock,
		Log:    zap.NewNop(),
	}
	env.Payments = payment.NewService(env.Deps, env.Gateway, env.Deduper, env.Pricing.Currency, time.Minute)
	return env
}

// Course seeds an active one-on-one course. A base price of 7500 gives a
// total of 10000 with the default 25% fee.
func (e *Env) Course(basePrice int64) models.Course {
	c := models.Course{
		ID:           uuid.New(),
		TutorID:      e.TutorID,
		Title:        "Conversation practice",
		Type:         "one_on_one",
		BasePrice:    basePrice,
		LessonsCount: 1,
		Active:       true,
	}
	e.Store.PutCourse(c)
	return c
}

// Slot seeds a free one-hour slot starting `in` from now.
func (e *Env) Slot(in time.Duration) models.TimeSlot {
	start := e.Clock.Now().Add(in)
	s := models.TimeSlot{
		ID:        uuid.New(),
		TutorID:   e.TutorID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
	e.Store.PutSlot(s)
	return s
}

// Pay captures the amount due on the fake processor and delivers the
// charge webhook for it. It returns the charge reference.
func (e *Env) Pay(t *testing.T, bookingID uuid.UUID) string {
	t.Helper()
	return e.Charge(t, bookingID, gateway.ChargeSucceeded)
}

// Decline delivers a webhook for a charge the processor refused.
func (e *Env) Decline(t *testing.T, bookingID uuid.UUID) string {
	t.Helper()
	return e.Charge(t, bookingID, gateway.ChargeFailed)
}

func (e *Env) Charge(t *testing.T, bookingID uuid.UUID, status gateway.ChargeStatus) string {
	t.Helper()

	b := e.Booking(t, bookingID)
	ref := "ch_" + uuid.NewString()
	e.Gateway.Capture(ref, bookingID, b.Price.AmountDue(), status)

	require.NoError(t, e.Payments.HandleNotification(context.Background(), payment.Notification{
		EventID:   "evt_" + uuid.NewString(),
		Kind:      payment.KindPayment,
		ChargeRef: ref,
	}))
	return ref
}

func (e *Env) Booking(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()

	b, err := e.Store.Bookings().GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (e *Env) Slotted(t *testing.T, id uuid.UUID) *models.TimeSlot {
	t.Helper()

	s, err := e.Store.Bookings().GetSlot(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (e *Env) Balance(t *testing.T, userID uuid.UUID) *models.WalletBalance {
	t.Helper()

	b, err := e.Store.Wallets().GetBalanceForUpdate(context.Background(), userID)
	require.NoError(t, err)
	return b
}

func (e *Env) Transactions(t *testing.T, bookingID uuid.UUID) []models.WalletTransaction {
	t.Helper()

	txs, err := e.Store.Wallets().ListTransactionsByRelated(context.Background(), bookingID)
	require.NoError(t, err)
	return txs
}

// FindTx returns the first transaction of the given type, or nil.
func FindTx(txs []models.WalletTransaction, txType string) *models.WalletTransaction {
	for i := range txs {
		if txs[i].Type == txType {
			return &txs[i]
		}
	}
	return nil
}
