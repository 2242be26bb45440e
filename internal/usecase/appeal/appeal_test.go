package appeal_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain/actor"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/infra/storage"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase/appeal"
	"github.com/wemaster/booking-core/internal/usecase/booking"
	"github.com/wemaster/booking-core/internal/usecase/usecasetest"
)

type suite struct {
	*usecasetest.Env
	bookings booking.Deps
	appeals  appeal.Deps
	files    *storage.Memory
}

func newSuite(t *testing.T) *suite {
	env := usecasetest.New(t)
	files := storage.NewMemory("http://files.local")
	return &suite{
		Env: env,
		bookings: booking.Deps{
			Deps:     env.Deps,
			Pricing:  env.Pricing,
			Policy:   env.Policy,
			Payments: env.Payments,
		},
		appeals: appeal.Deps{
			Deps:     env.Deps,
			Policy:   env.Policy,
			Payments: env.Payments,
			Evidence: files,
		},
		files: files,
	}
}

// completed runs a booking through create, payment, confirm and complete.
func (s *suite) completed(t *testing.T) *models.Booking {
	t.Helper()
	ctx := context.Background()

	slot := s.Slot(2 * time.Hour)
	b, err := booking.NewCreateBooking(s.bookings).Execute(ctx, booking.CreateBookingInput{
		StudentID: s.StudentID,
		CourseID:  s.Course(7500).ID,
		SlotID:    slot.ID,
	})
	require.NoError(t, err)

	s.Pay(t, b.ID)
	_, err = booking.NewConfirmBooking(s.bookings).Execute(ctx, b.ID, s.TutorID)
	require.NoError(t, err)

	s.Clock.Advance(3 * time.Hour)
	b, err = booking.NewCompleteBooking(s.bookings).Execute(ctx, b.ID)
	require.NoError(t, err)
	return b
}

func (s *suite) open(t *testing.T, b *models.Booking) *models.Appeal {
	t.Helper()

	a, err := appeal.NewOpenAppeal(s.appeals).Execute(context.Background(), b.ID, s.StudentID, "tutor never showed up", "waited 20 minutes")
	require.NoError(t, err)
	return a
}

func (s *suite) load(t *testing.T, id uuid.UUID) *models.Appeal {
	t.Helper()

	a, err := s.Store.Appeals().GetAppeal(context.Background(), id)
	require.NoError(t, err)
	return a
}

func (s *suite) sweep(t *testing.T) appeal.SweepResult {
	t.Helper()

	res, err := appeal.NewSweepAppeals(s.appeals).Execute(context.Background(), 100)
	require.NoError(t, err)
	return res
}

func assertBalanced(t *testing.T, b *models.WalletBalance) {
	t.Helper()
	assert.Equal(t, b.TotalBalance, b.AvailableBalance+b.FrozenBalance+b.LockedBalance)
	assert.GreaterOrEqual(t, b.AvailableBalance, int64(0))
	assert.GreaterOrEqual(t, b.FrozenBalance, int64(0))
	assert.GreaterOrEqual(t, b.LockedBalance, int64(0))
}

func count(actions []string, action string) int {
	n := 0
	for _, a := range actions {
		if a == action {
			n++
		}
	}
	return n
}

func TestOpenAppealLocksEarning(t *testing.T) {
	s := newSuite(t)
	b := s.completed(t)

	a := s.open(t, b)

	assert.Equal(t, string(appealdomain.StatusPendingTutor), a.Status)
	assert.True(t, a.DeadlineForTutor.Equal(s.Clock.Now().Add(s.Policy.AppealWindow())))
	assert.Equal(t, string(bookingdomain.StatusAppealing), s.Booking(t, b.ID).Status)

	tutor := s.Balance(t, s.TutorID)
	assert.Zero(t, tutor.FrozenBalance)
	assert.Equal(t, int64(7500), tutor.LockedBalance)
	assertBalanced(t, tutor)

	_, err := appeal.NewOpenAppeal(s.appeals).Execute(context.Background(), b.ID, s.StudentID, "again", "")
	assert.ErrorIs(t, err, httperr.ErrInvalidTransition)
}

func TestOpenAppealGuards(t *testing.T) {
	t.Run("window expired", func(t *testing.T) {
		s := newSuite(t)
		b := s.completed(t)
		s.Clock.Advance(s.Policy.AppealWindow() + time.Minute)

		_, err := appeal.NewOpenAppeal(s.appeals).Execute(context.Background(), b.ID, s.StudentID, "late", "")
		assert.ErrorIs(t, err, httperr.ErrAppealWindowExpired)
	})

	t.Run("booking not completed", func(t *testing.T) {
		s := newSuite(t)
		slot := s.Slot(48 * time.Hour)
		b, err := booking.NewCreateBooking(s.bookings).Execute(context.Background(), booking.CreateBookingInput{
			StudentID: s.StudentID,
			CourseID:  s.Course(7500).ID,
			SlotID:    slot.ID,
		})
		require.NoError(t, err)

		_, err = appeal.NewOpenAppeal(s.appeals).Execute(context.Background(), b.ID, s.StudentID, "early", "")
		assert.ErrorIs(t, err, httperr.ErrInvalidTransition)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		s := newSuite(t)
		b := s.completed(t)

		_, err := appeal.NewOpenAppeal(s.appeals).Execute(context.Background(), b.ID, uuid.New(), "nosy", "")
		assert.ErrorIs(t, err, httperr.ErrForbidden)
	})
}

func TestEndToEndTutorTimeoutPlatformRefund(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()

	b := s.completed(t)
	a := s.open(t, b)
	lockedBefore := s.Balance(t, s.TutorID).LockedBalance

	s.Clock.Advance(s.Policy.AppealWindow() + time.Second)
	res := s.sweep(t)
	assert.Equal(t, 1, res.Escalated)

	a = s.load(t, a.ID)
	assert.Equal(t, string(appealdomain.StatusPendingPlatform), a.Status)
	require.NotNil(t, a.EscalationReason)
	assert.Equal(t, appealdomain.EscalationTutorTimeout, *a.EscalationReason)
	require.NotNil(t, a.DeadlineForPlatform)

	a, err := appeal.NewPlatformResolve(s.appeals).Execute(ctx, a.ID, s.AdminID, appeal.ResolveInput{
		Decision:     appealdomain.DecisionRefund,
		RefundAmount: b.Price.BasePrice,
		Response:     "tutor did not attend",
	})
	require.NoError(t, err)

	assert.Equal(t, string(appealdomain.StatusCompleted), a.Status)
	require.NotNil(t, a.RefundAmount)
	assert.Equal(t, b.Price.BasePrice, *a.RefundAmount)
	assert.Equal(t, appealdomain.ResolvedByPlatform, *a.ResolvedBy)

	refundTx := usecasetest.FindTx(s.Transactions(t, b.ID), string(wallet.TxAppealRefund))
	require.NotNil(t, refundTx)
	assert.Equal(t, b.Price.BasePrice, refundTx.Amount)
	assert.Equal(t, string(wallet.TxCompleted), refundTx.Status)

	tutor := s.Balance(t, s.TutorID)
	assert.Equal(t, lockedBefore-b.Price.BasePrice, tutor.LockedBalance)
	assertBalanced(t, tutor)

	got := s.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusRefunded), got.Status)
	assert.Equal(t, string(bookingdomain.PaymentRefunded), got.PaymentStatus)

	refunds := s.Gateway.RefundCalls()
	require.Len(t, refunds, 1)
	assert.Equal(t, b.Price.BasePrice, refunds[0].Amount)

	// Platform resolution is final.
	_, err = appeal.NewPlatformResolve(s.appeals).Execute(ctx, a.ID, s.AdminID, appeal.ResolveInput{Decision: appealdomain.DecisionReject})
	assert.ErrorIs(t, err, httperr.ErrInvalidTransition)
}

func TestLateTutorResponseEscalates(t *testing.T) {
	s := newSuite(t)
	a := s.open(t, s.completed(t))

	s.Clock.Advance(s.Policy.AppealWindow())

	_, err := appeal.NewTutorRespond(s.appeals).Execute(context.Background(), a.ID, s.TutorID, "sorry", nil)
	require.Error(t, err)
	assert.True(t, appeal.IsEscalated(err))
	assert.ErrorIs(t, err, httperr.ErrInvalidTransition)

	assert.Equal(t, string(appealdomain.StatusPendingPlatform), s.load(t, a.ID).Status)
	assert.Zero(t, s.sweep(t).Escalated)
}

func TestTutorResponseBeatsTimeout(t *testing.T) {
	s := newSuite(t)
	a := s.open(t, s.completed(t))

	refund := int64(3000)
	_, err := appeal.NewTutorRespond(s.appeals).Execute(context.Background(), a.ID, s.TutorID, "partial refund", &refund)
	require.NoError(t, err)

	s.Clock.Advance(s.Policy.AppealWindow() + time.Hour)
	assert.Zero(t, s.sweep(t).Escalated)
	assert.Equal(t, string(appealdomain.StatusPendingStudent), s.load(t, a.ID).Status)
}

func TestRespondRacingSweepMovesAppealOnce(t *testing.T) {
	for i := 0; i < 10; i++ {
		s := newSuite(t)
		a := s.open(t, s.completed(t))
		s.Clock.Advance(s.Policy.AppealWindow() - time.Nanosecond)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = appeal.NewTutorRespond(s.appeals).Execute(context.Background(), a.ID, s.TutorID, "here", nil)
		}()
		go func() {
			defer wg.Done()
			s.Clock.Advance(time.Nanosecond)
			_, _ = appeal.NewSweepAppeals(s.appeals).Execute(context.Background(), 10)
		}()
		wg.Wait()

		got := s.load(t, a.ID)
		actions := s.Events.Actions()
		responded := count(actions, audit.AppealResponded)
		escalated := count(actions, audit.AppealEscalated)

		assert.Equal(t, 1, responded+escalated, "exactly one transition out of pending_tutor")
		if responded == 1 {
			assert.Equal(t, string(appealdomain.StatusPendingStudent), got.Status)
		} else {
			assert.Equal(t, string(appealdomain.StatusPendingPlatform), got.Status)
		}
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	s := newSuite(t)
	a := s.open(t, s.completed(t))

	s.Clock.Advance(s.Policy.AppealWindow() + time.Minute)

	first := s.sweep(t)
	afterFirst := s.load(t, a.ID)
	second := s.sweep(t)
	afterSecond := s.load(t, a.ID)

	assert.Equal(t, 1, first.Escalated)
	assert.Equal(t, appeal.SweepResult{}, second)
	assert.Equal(t, afterFirst.Version, afterSecond.Version)
	assert.Equal(t, afterFirst.Status, afterSecond.Status)
	assert.Equal(t, 1, count(s.Events.Actions(), audit.AppealEscalated))
}

func TestPlatformOverdueIsFlaggedOnce(t *testing.T) {
	s := newSuite(t)
	a := s.open(t, s.completed(t))

	s.Clock.Advance(s.Policy.AppealWindow() + time.Minute)
	s.sweep(t)

	s.Clock.Advance(s.Policy.PlatformWindow() + time.Minute)
	assert.Equal(t, appeal.SweepResult{Overdue: 1}, s.sweep(t))
	assert.Equal(t, appeal.SweepResult{}, s.sweep(t))

	got := s.load(t, a.ID)
	assert.NotNil(t, got.PlatformOverdueAt)
	assert.Equal(t, string(appealdomain.StatusPendingPlatform), got.Status)
}

func TestStudentAcceptsProposal(t *testing.T) {
	s := newSuite(t)
	b := s.completed(t)
	a := s.open(t, b)

	refund := int64(3000)
	_, err := appeal.NewTutorRespond(s.appeals).Execute(context.Background(), a.ID, s.TutorID, "half the lesson was lost", &refund)
	require.NoError(t, err)

	_, err = appeal.NewStudentConfirm(s.appeals).Execute(context.Background(), a.ID, s.TutorID, true)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	got, err := appeal.NewStudentConfirm(s.appeals).Execute(context.Background(), a.ID, s.StudentID, true)
	require.NoError(t, err)
	assert.Equal(t, string(appealdomain.StatusCompleted), got.Status)
	assert.Equal(t, appealdomain.ResolvedByStudent, *got.ResolvedBy)

	tutor := s.Balance(t, s.TutorID)
	assert.Zero(t, tutor.LockedBalance)
	assert.Equal(t, int64(4500), tutor.AvailableBalance)
	assertBalanced(t, tutor)

	booked := s.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusRefunded), booked.Status)
	assert.Equal(t, string(bookingdomain.PaymentRefunded), booked.PaymentStatus)
}

func TestProposalAboveCapIsRejected(t *testing.T) {
	s := newSuite(t)
	a := s.open(t, s.completed(t))

	tooMuch := int64(7501)
	_, err := appeal.NewTutorRespond(s.appeals).Execute(context.Background(), a.ID, s.TutorID, "all of it", &tooMuch)
	assert.ErrorIs(t, err, httperr.ErrInvalidAmount)
	assert.Equal(t, string(appealdomain.StatusPendingTutor), s.load(t, a.ID).Status)
}

func TestStudentRejectsThenPlatformRejects(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	b := s.completed(t)
	a := s.open(t, b)

	_, err := appeal.NewTutorRespond(s.appeals).Execute(ctx, a.ID, s.TutorID, "lesson happened", nil)
	require.NoError(t, err)

	got, err := appeal.NewStudentConfirm(s.appeals).Execute(ctx, a.ID, s.StudentID, false)
	require.NoError(t, err)
	assert.Equal(t, string(appealdomain.StatusPendingPlatform), got.Status)
	assert.Equal(t, appealdomain.EscalationStudentRejects, *got.EscalationReason)

	got, err = appeal.NewStartProcessing(s.appeals).Execute(ctx, a.ID, s.AdminID)
	require.NoError(t, err)
	assert.Equal(t, string(appealdomain.StatusPlatformProcessing), got.Status)

	got, err = appeal.NewPlatformResolve(s.appeals).Execute(ctx, a.ID, s.AdminID, appeal.ResolveInput{
		Decision: appealdomain.DecisionReject,
	})
	require.NoError(t, err)
	assert.Equal(t, string(appealdomain.StatusCompleted), got.Status)
	assert.Zero(t, *got.RefundAmount)

	tutor := s.Balance(t, s.TutorID)
	assert.Equal(t, int64(7500), tutor.AvailableBalance)
	assert.Zero(t, tutor.LockedBalance)
	assertBalanced(t, tutor)

	booked := s.Booking(t, b.ID)
	assert.Equal(t, string(bookingdomain.StatusCompleted), booked.Status)
	assert.NotNil(t, booked.SettledAt)
	assert.Empty(t, s.Gateway.RefundCalls())
}

func TestPlatformFeeOverride(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	b := s.completed(t)
	a := s.open(t, b)

	s.Clock.Advance(s.Policy.AppealWindow() + time.Minute)
	s.sweep(t)

	_, err := appeal.NewPlatformResolve(s.appeals).Execute(ctx, a.ID, s.AdminID, appeal.ResolveInput{
		Decision:     appealdomain.DecisionRefund,
		RefundAmount: b.Price.TotalPrice,
	})
	assert.ErrorIs(t, err, httperr.ErrInvalidAmount)

	got, err := appeal.NewPlatformResolve(s.appeals).Execute(ctx, a.ID, s.AdminID, appeal.ResolveInput{
		Decision:     appealdomain.DecisionRefund,
		RefundAmount: b.Price.TotalPrice,
		OverrideFee:  true,
	})
	require.NoError(t, err)
	assert.True(t, got.FeeOverride)

	// The tutor loses the earning; the platform covers the fee part.
	refundTx := usecasetest.FindTx(s.Transactions(t, b.ID), string(wallet.TxAppealRefund))
	require.NotNil(t, refundTx)
	assert.Equal(t, b.Price.BasePrice, refundTx.Amount)

	refunds := s.Gateway.RefundCalls()
	require.Len(t, refunds, 1)
	assert.Equal(t, b.Price.TotalPrice, refunds[0].Amount)
	assertBalanced(t, s.Balance(t, s.TutorID))
}

func TestWithdrawReturnsEarningToFrozen(t *testing.T) {
	s := newSuite(t)
	b := s.completed(t)
	a := s.open(t, b)

	_, err := appeal.NewWithdrawAppeal(s.appeals).Execute(context.Background(), a.ID, s.TutorID)
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	got, err := appeal.NewWithdrawAppeal(s.appeals).Execute(context.Background(), a.ID, s.StudentID)
	require.NoError(t, err)
	assert.Equal(t, string(appealdomain.StatusCancelled), got.Status)
	assert.Equal(t, string(bookingdomain.StatusCompleted), s.Booking(t, b.ID).Status)

	tutor := s.Balance(t, s.TutorID)
	assert.Equal(t, int64(7500), tutor.FrozenBalance)
	assert.Zero(t, tutor.LockedBalance)

	s.Clock.Advance(s.Policy.AppealWindow() + time.Minute)
	settled, err := booking.NewSettleBooking(s.bookings).Execute(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, settled)
	assert.Equal(t, int64(7500), s.Balance(t, s.TutorID).AvailableBalance)

	_, err = appeal.NewWithdrawAppeal(s.appeals).Execute(context.Background(), a.ID, s.StudentID)
	assert.ErrorIs(t, err, httperr.ErrInvalidTransition)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16))))
	return buf.Bytes()
}

func TestAddEvidence(t *testing.T) {
	s := newSuite(t)
	ctx := context.Background()
	a := s.open(t, s.completed(t))

	ev, err := appeal.NewAddEvidence(s.appeals).Execute(ctx, a.ID, s.StudentID, appeal.EvidenceInput{
		Type:        appealdomain.EvidenceImage,
		ContentType: "image/png",
		Body:        pngBytes(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "image/webp", ev.ContentType)
	assert.Contains(t, ev.URL, "http://files.local/appeals/"+a.ID.String())

	obj, err := s.files.Get(ev.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", obj.ContentType)

	_, err = appeal.NewAddEvidence(s.appeals).Execute(ctx, a.ID, s.TutorID, appeal.EvidenceInput{
		Type:        appealdomain.EvidenceDocument,
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4"),
	})
	require.NoError(t, err)

	assert.Len(t, s.load(t, a.ID).Evidence, 2)

	_, err = appeal.NewAddEvidence(s.appeals).Execute(ctx, a.ID, uuid.New(), appeal.EvidenceInput{
		Type:        appealdomain.EvidenceDocument,
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4"),
	})
	assert.ErrorIs(t, err, httperr.ErrForbidden)

	_, err = appeal.NewWithdrawAppeal(s.appeals).Execute(ctx, a.ID, s.StudentID)
	require.NoError(t, err)

	_, err = appeal.NewAddEvidence(s.appeals).Execute(ctx, a.ID, s.StudentID, appeal.EvidenceInput{
		Type:        appealdomain.EvidenceDocument,
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.4"),
	})
	assert.ErrorIs(t, err, httperr.ErrInvalidTransition)
	assert.Equal(t, 2, s.files.Len())
}

func TestGetAppealVisibility(t *testing.T) {
	s := newSuite(t)
	a := s.open(t, s.completed(t))

	for _, by := range []actor.Actor{
		{ID: s.StudentID, Role: actor.RoleStudent},
		{ID: s.TutorID, Role: actor.RoleTutor},
		{ID: s.AdminID, Role: actor.RolePlatform},
	} {
		got, err := appeal.NewGetAppeal(s.appeals).Execute(context.Background(), a.ID, by)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
	}

	_, err := appeal.NewGetAppeal(s.appeals).Execute(context.Background(), a.ID, actor.Actor{ID: uuid.New(), Role: actor.RoleStudent})
	assert.ErrorIs(t, err, httperr.ErrForbidden)
}
