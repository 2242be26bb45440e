package payment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain/actor"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase/booking"
	"github.com/wemaster/booking-core/internal/usecase/payment"
	"github.com/wemaster/booking-core/internal/usecase/usecasetest"
)

func setup(t *testing.T) (*usecasetest.Env, booking.Deps) {
	env := usecasetest.New(t)
	return env, booking.Deps{
		Deps:     env.Deps,
		Pricing:  env.Pricing,
		Policy:   env.Policy,
		Payments: env.Payments,
	}
}

func newBooking(t *testing.T, env *usecasetest.Env, deps booking.Deps) (*models.Booking, models.TimeSlot) {
	t.Helper()

	slot := env.Slot(48 * time.Hour)
	b, err := booking.NewCreateBooking(deps).Execute(context.Background(), booking.CreateBookingInput{
		StudentID: env.StudentID,
		CourseID:  env.Course(7500).ID,
		SlotID:    slot.ID,
	})
	require.NoError(t, err)
	return b, slot
}

func notify(env *usecasetest.Env, n payment.Notification) error {
	return env.Payments.HandleNotification(context.Background(), n)
}

func TestPaymentSuccessCreditsWallets(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)

	env.Pay(t, b.ID)

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.PaymentPaid), got.PaymentStatus)

	txs := env.Transactions(t, b.ID)
	pay := usecasetest.FindTx(txs, string(wallet.TxCoursePayment))
	require.NotNil(t, pay)
	assert.Equal(t, env.StudentID, pay.UserID)
	assert.Equal(t, int64(10000), pay.Amount)
	assert.Equal(t, string(wallet.TxCompleted), pay.Status)

	earning := usecasetest.FindTx(txs, string(wallet.TxCourseEarning))
	require.NotNil(t, earning)
	assert.Equal(t, int64(7500), earning.Amount)
	assert.Equal(t, string(wallet.Frozen), earning.FundsStatus)

	tutor := env.Balance(t, env.TutorID)
	assert.Equal(t, int64(7500), tutor.FrozenBalance)
	assert.Equal(t, int64(7500), tutor.TotalBalance)
}

func TestWebhookRedeliveryIsIgnored(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)

	env.Gateway.Capture("ch_1", b.ID, 10000, gateway.ChargeSucceeded)
	n := payment.Notification{
		EventID:   "evt_1",
		Kind:      payment.KindPayment,
		ChargeRef: "ch_1",
	}
	require.NoError(t, notify(env, n))
	require.NoError(t, notify(env, n))

	earnings := 0
	for _, tx := range env.Transactions(t, b.ID) {
		if tx.Type == string(wallet.TxCourseEarning) {
			earnings++
		}
	}
	assert.Equal(t, 1, earnings)
	assert.Equal(t, int64(7500), env.Balance(t, env.TutorID).FrozenBalance)

	succeeded := 0
	for _, a := range env.Events.Actions() {
		if a == audit.PaymentSucceeded {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestFailedDeliveryCanBeRetried(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)

	n := payment.Notification{
		EventID:   "evt_2",
		Kind:      payment.KindPayment,
		ChargeRef: "ch_2",
	}
	assert.ErrorIs(t, notify(env, n), httperr.ErrExternalServiceFailure, "processor does not know the charge yet")
	assert.ErrorIs(t, notify(env, n), httperr.ErrExternalServiceFailure, "a failed delivery is not remembered")

	env.Gateway.Capture("ch_2", b.ID, 10000, gateway.ChargeSucceeded)
	require.NoError(t, notify(env, n))
	assert.Equal(t, string(bookingdomain.PaymentPaid), env.Booking(t, b.ID).PaymentStatus)
}

func TestWebhookResolvesBareChargeAtProcessor(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)

	env.Gateway.Capture("ch_1", b.ID, 10000, gateway.ChargeSucceeded)

	// The posted status is replaced by the processor's answer.
	require.NoError(t, notify(env, payment.Notification{
		EventID:   "evt_3",
		Kind:      payment.KindPayment,
		ChargeRef: "ch_1",
		Status:    gateway.ChargeFailed,
	}))

	assert.Equal(t, string(bookingdomain.PaymentPaid), env.Booking(t, b.ID).PaymentStatus)
}

func TestForgedPaymentNotificationsAreRejected(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)
	other, _ := newBooking(t, env, deps)

	// A posted success the processor never saw.
	err := notify(env, payment.Notification{
		EventID:   "evt_f1",
		Kind:      payment.KindPayment,
		BookingID: b.ID,
		ChargeRef: "ch_forged",
		Status:    gateway.ChargeSucceeded,
		Amount:    10000,
	})
	assert.ErrorIs(t, err, httperr.ErrExternalServiceFailure)

	// A real charge replayed against another booking.
	env.Gateway.Capture("ch_other", other.ID, 10000, gateway.ChargeSucceeded)
	err = notify(env, payment.Notification{
		EventID:   "evt_f2",
		Kind:      payment.KindPayment,
		BookingID: b.ID,
		ChargeRef: "ch_other",
	})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	// A charge that does not cover the amount due.
	env.Gateway.Capture("ch_short", b.ID, 100, gateway.ChargeSucceeded)
	err = notify(env, payment.Notification{
		EventID:   "evt_f3",
		Kind:      payment.KindPayment,
		ChargeRef: "ch_short",
		Amount:    10000,
	})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	// A posted success for a charge the processor declined.
	env.Gateway.Capture("ch_declined", b.ID, 10000, gateway.ChargeFailed)
	require.NoError(t, notify(env, payment.Notification{
		EventID:   "evt_f4",
		Kind:      payment.KindPayment,
		ChargeRef: "ch_declined",
		Status:    gateway.ChargeSucceeded,
	}))

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusCancelled), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentFailed), got.PaymentStatus)
	assert.Empty(t, env.Transactions(t, b.ID))
}

func TestForgedRefundNotificationIsRejected(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)
	env.Pay(t, b.ID)

	env.Gateway.SetFailRefunds(true)
	tutor := actor.Actor{ID: env.TutorID, Role: actor.RoleTutor}
	_, err := booking.NewCancelBooking(deps).Execute(context.Background(), b.ID, tutor, "sick")
	require.NoError(t, err)

	err = notify(env, payment.Notification{
		EventID:   "evt_r1",
		Kind:      payment.KindRefund,
		BookingID: b.ID,
		RefundRef: "re_forged",
		Status:    gateway.ChargeSucceeded,
		Amount:    7500,
	})
	assert.ErrorIs(t, err, httperr.ErrExternalServiceFailure)
	assert.Equal(t, string(bookingdomain.PaymentRefundFailed), env.Booking(t, b.ID).PaymentStatus)
}

func TestWebhookRejectsUnidentifiedNotifications(t *testing.T) {
	env, _ := setup(t)

	err := notify(env, payment.Notification{EventID: "evt_4", Kind: payment.KindPayment, Status: gateway.ChargeSucceeded})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	err = notify(env, payment.Notification{EventID: "evt_4r", Kind: payment.KindRefund, RefundRef: "re_1"})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	err = notify(env, payment.Notification{EventID: "evt_4p", Kind: payment.KindPayout})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	err = notify(env, payment.Notification{EventID: "evt_5", Kind: "chargeback"})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)
}

func TestPaymentFailureCancelsPendingBooking(t *testing.T) {
	env, deps := setup(t)
	b, slot := newBooking(t, env, deps)

	env.Decline(t, b.ID)

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusCancelled), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentFailed), got.PaymentStatus)
	assert.False(t, env.Slotted(t, slot.ID).IsBooked)
	assert.Empty(t, env.Transactions(t, b.ID))

	// A success arriving after the failure is compensated in full.
	env.Pay(t, b.ID)
	got = env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusCancelled), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentRefunded), got.PaymentStatus)
}

func TestPaymentForCancelledBookingIsRefunded(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)

	student := actor.Actor{ID: env.StudentID, Role: actor.RoleStudent}
	_, err := booking.NewCancelBooking(deps).Execute(context.Background(), b.ID, student, "changed plans")
	require.NoError(t, err)

	env.Pay(t, b.ID)

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.PaymentRefunded), got.PaymentStatus)

	refunds := env.Gateway.RefundCalls()
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(10000), refunds[0].Amount)
	assert.Empty(t, env.Transactions(t, b.ID), "nothing reached the wallets")
}

func TestLatePaymentFailureIsIgnored(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)
	env.Pay(t, b.ID)
	env.Decline(t, b.ID)

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusPending), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentPaid), got.PaymentStatus)
}

func TestReconcileRetriesFailedIntentAfterBackoff(t *testing.T) {
	env, deps := setup(t)
	env.Gateway.SetFailIntents(true)

	b, _ := newBooking(t, env, deps)
	assert.Equal(t, string(bookingdomain.PaymentIntentFailed), env.Booking(t, b.ID).PaymentStatus)

	env.Gateway.SetFailIntents(false)

	retried, err := env.Payments.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, retried, "backoff has not elapsed")

	env.Clock.Advance(2 * time.Minute)

	retried, err = env.Payments.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)
	assert.Equal(t, string(bookingdomain.PaymentAwaiting), env.Booking(t, b.ID).PaymentStatus)

	p, err := env.Store.Bookings().GetPaymentByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.Attempts)
	assert.Nil(t, p.LastError)
}

func TestReconcileRetriesFailedRefund(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)
	env.Pay(t, b.ID)

	env.Gateway.SetFailRefunds(true)
	tutor := actor.Actor{ID: env.TutorID, Role: actor.RoleTutor}
	_, err := booking.NewCancelBooking(deps).Execute(context.Background(), b.ID, tutor, "sick")
	require.NoError(t, err)

	assert.Equal(t, string(bookingdomain.PaymentRefundFailed), env.Booking(t, b.ID).PaymentStatus)
	refundTx := usecasetest.FindTx(env.Transactions(t, b.ID), string(wallet.TxCourseRefund))
	require.NotNil(t, refundTx)
	assert.Equal(t, string(wallet.TxPending), refundTx.Status)

	env.Gateway.SetFailRefunds(false)
	env.Clock.Advance(5 * time.Minute)

	retried, err := env.Payments.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, retried)

	assert.Equal(t, string(bookingdomain.PaymentRefunded), env.Booking(t, b.ID).PaymentStatus)
	refundTx = usecasetest.FindTx(env.Transactions(t, b.ID), string(wallet.TxCourseRefund))
	require.NotNil(t, refundTx)
	assert.Equal(t, string(wallet.TxCompleted), refundTx.Status)
	assert.Len(t, env.Gateway.RefundCalls(), 2)
}

func TestRefundNotification(t *testing.T) {
	env, deps := setup(t)
	b, _ := newBooking(t, env, deps)
	env.Pay(t, b.ID)

	env.Gateway.SetFailRefunds(true)
	tutor := actor.Actor{ID: env.TutorID, Role: actor.RoleTutor}
	_, err := booking.NewCancelBooking(deps).Execute(context.Background(), b.ID, tutor, "sick")
	require.NoError(t, err)

	p, err := env.Store.Bookings().GetPaymentByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	env.Gateway.SettleRefund(p.ChargeRef, "re_manual", 7500, gateway.ChargeSucceeded)

	// Status and amount come from the processor, not the body.
	require.NoError(t, notify(env, payment.Notification{
		EventID:   "evt_8",
		Kind:      payment.KindRefund,
		BookingID: b.ID,
		RefundRef: "re_manual",
		Status:    gateway.ChargeFailed,
		Amount:    1,
	}))

	assert.Equal(t, string(bookingdomain.PaymentRefunded), env.Booking(t, b.ID).PaymentStatus)

	p, err = env.Store.Bookings().GetPaymentByBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "re_manual", p.RefundRef)
	assert.Equal(t, int64(7500), p.RefundAmount)
}

func TestCancelAfterFailedIntentLeavesRetryQueue(t *testing.T) {
	env, deps := setup(t)
	env.Gateway.SetFailIntents(true)

	b, _ := newBooking(t, env, deps)
	assert.Equal(t, string(bookingdomain.PaymentIntentFailed), env.Booking(t, b.ID).PaymentStatus)

	student := actor.Actor{ID: env.StudentID, Role: actor.RoleStudent}
	_, err := booking.NewCancelBooking(deps).Execute(context.Background(), b.ID, student, "changed plans")
	require.NoError(t, err)

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusCancelled), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentNone), got.PaymentStatus)

	due, err := env.Store.Bookings().ListPaymentRetries(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	env.Gateway.SetFailIntents(false)
	env.Clock.Advance(time.Hour)
	calls := len(env.Gateway.IntentCalls())

	retried, err := env.Payments.Reconcile(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, retried)
	assert.Len(t, env.Gateway.IntentCalls(), calls)
}

func TestIntentRequestForCancelledBookingClearsRetryState(t *testing.T) {
	env, deps := setup(t)
	env.Gateway.SetFailIntents(true)
	b, _ := newBooking(t, env, deps)

	// A row cancelled before the cancel path cleared retry state.
	stale := env.Booking(t, b.ID)
	stale.Status = string(bookingdomain.StatusCancelled)
	require.NoError(t, env.Store.Bookings().UpdateBooking(context.Background(), stale))

	require.NoError(t, env.Payments.RequestIntent(context.Background(), b.ID))
	assert.Equal(t, string(bookingdomain.PaymentNone), env.Booking(t, b.ID).PaymentStatus)

	due, err := env.Store.Bookings().ListPaymentRetries(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestPaymentAfterLessonStartCancelsAndRefunds(t *testing.T) {
	env, deps := setup(t)
	b, slot := newBooking(t, env, deps)

	env.Clock.Advance(49 * time.Hour)
	env.Pay(t, b.ID)

	got := env.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusCancelled), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentRefunded), got.PaymentStatus)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, "system", *got.CancelledBy)
	assert.False(t, env.Slotted(t, slot.ID).IsBooked)

	refunds := env.Gateway.RefundCalls()
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(10000), refunds[0].Amount)
	assert.Empty(t, env.Transactions(t, b.ID), "nothing reached the wallets")
	assert.Contains(t, env.Events.Actions(), audit.BookingCancelled)
}
