package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/async"
	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
	ucWallet "github.com/wemaster/booking-core/internal/usecase/wallet"
)

const (
	KindPayment = "payment"
	KindRefund  = "refund"
	KindPayout  = "payout"

	dedupeTTL = 72 * time.Hour

	lapsedReason = "lesson started before payment"
)

// Service drives a booking's payment through the processor. Calls to the
// gateway happen under the booking lock but outside any store
// transaction; their outcome is written back in a short transaction.
type Service struct {
	usecase.Deps

	gateway     gateway.Gateway
	deduper     domain.Deduper
	withdrawals *ucWallet.SettleWithdrawal
	currency    string
	retryBase   time.Duration
}

func NewService(
	deps usecase.Deps,
	gw gateway.Gateway,
	deduper domain.Deduper,
	currency string,
	retryBase time.Duration,
) *Service {
	return &Service{
		Deps:        deps,
		gateway:     gw,
		deduper:     deduper,
		withdrawals: ucWallet.NewSettleWithdrawal(ucWallet.Deps{Deps: deps, Payouts: gw, Currency: currency}),
		currency:    currency,
		retryBase:   retryBase,
	}
}

func (s *Service) locked(ctx context.Context, id uuid.UUID, fn func(after *usecase.After) error) error {
	var after usecase.After
	if err := s.LockBooking(ctx, id, func() error { return fn(&after) }); err != nil {
		return err
	}
	after.Run()
	return nil
}

func (s *Service) paymentRecord(
	ctx context.Context,
	repo booking.Repository,
	b *models.Booking,
	now time.Time,
) (*models.PaymentRecord, error) {
	p, err := repo.GetPaymentByBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	return &models.PaymentRecord{
		ID:        uuid.New(),
		BookingID: b.ID,
		Provider:  s.gateway.Name(),
		Amount:    b.Price.AmountDue(),
		Currency:  s.currency,
		Status:    string(booking.PaymentNone),
		CreatedAt: now,
	}, nil
}

// ======================================================
// Payment intent
// ======================================================

func (s *Service) RequestIntent(ctx context.Context, bookingID uuid.UUID) error {
	return s.locked(ctx, bookingID, func(after *usecase.After) error {
		return s.requestIntent(ctx, bookingID, after)
	})
}

func (s *Service) requestIntent(ctx context.Context, id uuid.UUID, after *usecase.After) error {
	b, err := s.Store.Bookings().GetBooking(ctx, id)
	if err != nil {
		return err
	}

	switch booking.PaymentStatus(b.PaymentStatus) {
	case booking.PaymentNone, booking.PaymentIntentRequested, booking.PaymentIntentFailed:
	default:
		return nil
	}
	if booking.Status(b.Status) == booking.StatusCancelled {
		return s.abandonIntent(ctx, id)
	}

	// Fully discounted lessons never reach the processor.
	if b.Price.AmountDue() == 0 {
		return s.applyPaymentSuccess(ctx, id, "", 0, after)
	}

	res, callErr := s.gateway.CreatePaymentIntent(ctx, gateway.Intent{
		BookingID:   b.ID,
		PayerID:     b.StudentID,
		Amount:      b.Price.AmountDue(),
		Currency:    s.currency,
		Description: "Lesson " + b.TimeSlot.StartTime.Format(time.RFC3339),
	})

	now := s.Clock.Now()
	err = s.Store.WithinTx(ctx, func(tx domain.Store) error {
		repo := tx.Bookings()

		b, err := repo.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		p, err := s.paymentRecord(ctx, repo, b, now)
		if err != nil {
			return err
		}

		p.Attempts++
		p.UpdatedAt = now
		if callErr != nil {
			msg := callErr.Error()
			p.LastError = &msg
			p.Status = string(booking.PaymentIntentFailed)
			b.PaymentStatus = string(booking.PaymentIntentFailed)
		} else {
			p.ProviderRef = res.ProviderRef
			p.ClientSecret = res.ClientSecret
			p.LastError = nil
			p.Status = string(booking.PaymentAwaiting)
			b.PaymentStatus = string(booking.PaymentAwaiting)
		}

		if err := repo.SavePayment(ctx, p); err != nil {
			return err
		}
		return repo.UpdateBooking(ctx, b)
	})
	if err != nil {
		return err
	}

	if callErr != nil {
		s.Log.Error("payment intent failed",
			zap.String("booking_id", id.String()),
			zap.String("gateway", s.gateway.Name()),
			zap.Error(callErr),
		)
		return fmt.Errorf("%w: payment intent: %v", httperr.ErrExternalServiceFailure, callErr)
	}

	s.Log.Info("payment intent created",
		zap.String("booking_id", id.String()),
		zap.String("provider_ref", res.ProviderRef),
	)
	return nil
}

// abandonIntent takes a cancelled booking out of the retry queue.
func (s *Service) abandonIntent(ctx context.Context, id uuid.UUID) error {
	return s.Store.WithinTx(ctx, func(tx domain.Store) error {
		repo := tx.Bookings()

		b, err := repo.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if !booking.AbandonIntent(b) {
			return nil
		}
		s.Log.Info("payment intent abandoned", zap.String("booking_id", id.String()))
		return repo.UpdateBooking(ctx, b)
	})
}

// ======================================================
// Payment outcome
// ======================================================

// applyPaymentSuccess books a captured charge. paid is the amount the
// processor reports; it is only checked when a charge is named.
func (s *Service) applyPaymentSuccess(
	ctx context.Context,
	id uuid.UUID,
	chargeRef string,
	paid int64,
	after *usecase.After,
) error {
	now := s.Clock.Now()

	var (
		b          *models.Booking
		skipped    bool
		confirmed  bool
		compensate bool
		lapsed     bool
	)

	err := s.Store.WithinTx(ctx, func(tx domain.Store) error {
		repo := tx.Bookings()

		var err error
		b, err = repo.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if booking.PaymentStatus(b.PaymentStatus).IsSettled() {
			skipped = true
			return nil
		}
		if due := b.Price.AmountDue(); chargeRef != "" && paid < due {
			return fmt.Errorf("%w: charge %s covers %d of %d", httperr.ErrInvalidInput, chargeRef, paid, due)
		}

		p, err := s.paymentRecord(ctx, repo, b, now)
		if err != nil {
			return err
		}
		p.Status = string(booking.PaymentPaid)
		p.LastError = nil
		p.UpdatedAt = now
		if chargeRef != "" {
			p.ChargeRef = chargeRef
		}
		if err := repo.SavePayment(ctx, p); err != nil {
			return err
		}

		// A lesson that started without payment never takes place.
		if booking.Status(b.Status) == booking.StatusPending && !now.Before(b.TimeSlot.StartTime) {
			if err := booking.Cancel(b, actor.System(), lapsedReason, 0, now); err != nil {
				return err
			}
			if err := repo.ReleaseSlot(ctx, b.TimeSlot.SlotID, b.ID); err != nil {
				return err
			}
			lapsed = true
		}

		// Money arrived for a booking that no longer exists: give it all back.
		if booking.Status(b.Status) == booking.StatusCancelled {
			full := b.Price.AmountDue()
			b.PaymentStatus = string(booking.PaymentPaid)
			if full > 0 {
				b.PaymentStatus = string(booking.PaymentRefundRequested)
				b.RefundAmount = &full
				compensate = true
			}
			return repo.UpdateBooking(ctx, b)
		}

		confirmed = booking.MarkPaid(b, now)
		if err := repo.UpdateBooking(ctx, b); err != nil {
			return err
		}

		ledger := wallet.NewLedger(tx.Wallets(), now)
		related := b.ID
		if due := b.Price.AmountDue(); due > 0 {
			pay, err := ledger.Record(ctx, wallet.RecordInput{
				UserID:      b.StudentID,
				Type:        wallet.TxCoursePayment,
				Amount:      due,
				RelatedID:   &related,
				Description: "lesson payment",
			})
			if err != nil {
				return err
			}
			if _, err := ledger.Settle(ctx, pay.ID, wallet.TxCompleted); err != nil {
				return err
			}
		}

		_, err = ledger.Record(ctx, wallet.RecordInput{
			UserID:      b.TutorID,
			Type:        wallet.TxCourseEarning,
			Amount:      b.Price.BasePrice,
			RelatedID:   &related,
			Description: "lesson earning",
		})
		return err
	})
	if err != nil || skipped {
		return err
	}

	s.Log.Info("payment settled",
		zap.String("booking_id", id.String()),
		zap.String("status", b.Status),
		zap.Bool("confirmed", confirmed),
	)

	s.EmitAfter(after, nil, audit.PaymentSucceeded, audit.EntityBooking, b.ID, map[string]any{
		"amount": b.Price.AmountDue(),
	})
	if lapsed {
		s.EmitAfter(after, nil, audit.BookingCancelled, audit.EntityBooking, b.ID, map[string]any{
			"cancelled_by": "system",
			"reason":       lapsedReason,
		})
	}
	if confirmed {
		s.EmitAfter(after, nil, audit.BookingConfirmed, audit.EntityBooking, b.ID, b.TimeSlot)
	}
	if compensate {
		s.scheduleRefund(after, b.ID)
	}
	return nil
}

func (s *Service) applyPaymentFailure(ctx context.Context, id uuid.UUID, reason string, after *usecase.After) error {
	now := s.Clock.Now()

	var (
		b         *models.Booking
		skipped   bool
		cancelled bool
	)

	err := s.Store.WithinTx(ctx, func(tx domain.Store) error {
		repo := tx.Bookings()

		var err error
		b, err = repo.GetBooking(ctx, id)
		if err != nil {
			return err
		}

		ps := booking.PaymentStatus(b.PaymentStatus)
		if ps.IsSettled() || ps == booking.PaymentFailed {
			skipped = true
			return nil
		}

		p, err := s.paymentRecord(ctx, repo, b, now)
		if err != nil {
			return err
		}
		p.Status = string(booking.PaymentFailed)
		p.LastError = &reason
		p.UpdatedAt = now
		if err := repo.SavePayment(ctx, p); err != nil {
			return err
		}

		b.PaymentStatus = string(booking.PaymentFailed)
		if booking.Status(b.Status) == booking.StatusPending {
			if err := booking.Cancel(b, actor.System(), "payment failed", 0, now); err != nil {
				return err
			}
			if err := repo.ReleaseSlot(ctx, b.TimeSlot.SlotID, b.ID); err != nil {
				return err
			}
			cancelled = true
		}
		return repo.UpdateBooking(ctx, b)
	})
	if err != nil {
		return err
	}
	if skipped {
		s.Log.Warn("late payment failure ignored", zap.String("booking_id", id.String()), zap.String("payment_status", b.PaymentStatus))
		return nil
	}

	s.Log.Info("payment failed", zap.String("booking_id", id.String()), zap.Bool("cancelled", cancelled))

	s.EmitAfter(after, nil, audit.PaymentFailed, audit.EntityBooking, b.ID, map[string]any{"reason": reason})
	if cancelled {
		s.EmitAfter(after, nil, audit.BookingCancelled, audit.EntityBooking, b.ID, map[string]any{
			"cancelled_by": "system",
			"reason":       "payment failed",
		})
	}
	return nil
}

// ======================================================
// Refunds
// ======================================================

func (s *Service) scheduleRefund(after *usecase.After, id uuid.UUID) {
	s.EmitAfter(after, nil, audit.RefundRequested, audit.EntityBooking, id, nil)
	after.Do(func() {
		s.Async.Go("refund:"+id.String(), func(ctx context.Context) {
			if err := s.RequestRefund(ctx, id); err != nil {
				s.Log.Warn("refund attempt failed, reconciliation will retry", zap.String("booking_id", id.String()), zap.Error(err))
			}
		})
	})
}

// RequestRefund sends booking.RefundAmount back to the student.
func (s *Service) RequestRefund(ctx context.Context, bookingID uuid.UUID) error {
	return s.locked(ctx, bookingID, func(after *usecase.After) error {
		return s.requestRefund(ctx, bookingID, after)
	})
}

func (s *Service) requestRefund(ctx context.Context, id uuid.UUID, after *usecase.After) error {
	repo := s.Store.Bookings()

	b, err := repo.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	ps := booking.PaymentStatus(b.PaymentStatus)
	if ps != booking.PaymentRefundRequested && ps != booking.PaymentRefundFailed {
		return nil
	}
	if b.RefundAmount == nil || *b.RefundAmount <= 0 {
		return nil
	}

	p, err := repo.GetPaymentByBooking(ctx, id)
	if err != nil {
		return err
	}
	var chargeRef string
	if p != nil {
		chargeRef = p.ChargeRef
	}

	res, callErr := s.gateway.Refund(ctx, gateway.RefundRequest{
		BookingID: id,
		ChargeRef: chargeRef,
		Amount:    *b.RefundAmount,
	})
	if callErr == nil && res.Status == gateway.ChargeFailed {
		callErr = fmt.Errorf("refund rejected by %s", s.gateway.Name())
	}

	now := s.Clock.Now()
	var done bool
	err = s.Store.WithinTx(ctx, func(tx domain.Store) error {
		repo := tx.Bookings()

		b, err := repo.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		p, err := s.paymentRecord(ctx, repo, b, now)
		if err != nil {
			return err
		}
		p.Attempts++
		p.UpdatedAt = now

		switch {
		case callErr != nil:
			msg := callErr.Error()
			p.LastError = &msg
			b.PaymentStatus = string(booking.PaymentRefundFailed)
		case res.Status == gateway.ChargeSucceeded:
			done = true
			if err := s.markRefunded(ctx, tx, b, p, res.RefundRef, res.Amount, now); err != nil {
				return err
			}
		default:
			p.RefundRef = res.RefundRef
			b.PaymentStatus = string(booking.PaymentRefundRequested)
		}

		if err := repo.SavePayment(ctx, p); err != nil {
			return err
		}
		return repo.UpdateBooking(ctx, b)
	})
	if err != nil {
		return err
	}

	if callErr != nil {
		s.Log.Error("refund failed",
			zap.String("booking_id", id.String()),
			zap.Int64("amount", *b.RefundAmount),
			zap.Error(callErr),
		)
		s.EmitAfter(after, nil, audit.RefundFailed, audit.EntityBooking, id, map[string]any{"error": callErr.Error()})
		return fmt.Errorf("%w: refund: %v", httperr.ErrExternalServiceFailure, callErr)
	}
	if done {
		s.Log.Info("refund completed", zap.String("booking_id", id.String()), zap.Int64("amount", res.Amount))
		s.EmitAfter(after, nil, audit.RefundCompleted, audit.EntityBooking, id, map[string]any{"amount": res.Amount})
	}
	return nil
}

// markRefunded closes the refund on the booking and completes the tutor's
// pending refund transactions.
func (s *Service) markRefunded(
	ctx context.Context,
	tx domain.Store,
	b *models.Booking,
	p *models.PaymentRecord,
	refundRef string,
	amount int64,
	now time.Time,
) error {
	b.PaymentStatus = string(booking.PaymentRefunded)
	p.RefundRef = refundRef
	p.RefundAmount = amount
	p.Status = string(booking.PaymentRefunded)
	p.LastError = nil

	txs, err := tx.Wallets().ListTransactionsByRelated(ctx, b.ID)
	if err != nil {
		return err
	}

	ledger := wallet.NewLedger(tx.Wallets(), now)
	for _, t := range txs {
		tt := wallet.TxType(t.Type)
		if tt != wallet.TxCourseRefund && tt != wallet.TxAppealRefund {
			continue
		}
		if wallet.TxStatus(t.Status).IsFinal() {
			continue
		}
		if _, err := ledger.Settle(ctx, t.ID, wallet.TxCompleted); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applyRefundOutcome(
	ctx context.Context,
	id uuid.UUID,
	status gateway.ChargeStatus,
	refundRef string,
	amount int64,
	after *usecase.After,
) error {
	now := s.Clock.Now()

	var changed bool
	err := s.Store.WithinTx(ctx, func(tx domain.Store) error {
		repo := tx.Bookings()

		b, err := repo.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		ps := booking.PaymentStatus(b.PaymentStatus)
		if ps != booking.PaymentRefundRequested && ps != booking.PaymentRefundFailed {
			return nil
		}

		p, err := s.paymentRecord(ctx, repo, b, now)
		if err != nil {
			return err
		}
		p.UpdatedAt = now

		if status == gateway.ChargeSucceeded {
			if amount == 0 && b.RefundAmount != nil {
				amount = *b.RefundAmount
			}
			if err := s.markRefunded(ctx, tx, b, p, refundRef, amount, now); err != nil {
				return err
			}
		} else {
			msg := "refund failed at processor"
			p.LastError = &msg
			b.PaymentStatus = string(booking.PaymentRefundFailed)
		}
		changed = true

		if err := repo.SavePayment(ctx, p); err != nil {
			return err
		}
		return repo.UpdateBooking(ctx, b)
	})
	if err != nil || !changed {
		return err
	}

	action := audit.RefundCompleted
	if status != gateway.ChargeSucceeded {
		action = audit.RefundFailed
	}
	s.EmitAfter(after, nil, action, audit.EntityBooking, id, map[string]any{"amount": amount})
	return nil
}

// ======================================================
// Webhook
// ======================================================

// Notification is a processor callback. Only the ids in it are trusted:
// status and amount are always read back from the processor.
type Notification struct {
	EventID     string
	Kind        string
	BookingID   uuid.UUID
	ProviderRef string
	ChargeRef   string
	RefundRef   string
	PayoutRef   string

	Status gateway.ChargeStatus
	Amount int64

	reference uuid.UUID
}

// HandleNotification applies a processor callback. Redelivered event ids
// are ignored; a failed delivery is forgotten so the processor's retry
// gets processed.
func (s *Service) HandleNotification(ctx context.Context, n Notification) error {
	if n.Kind != KindPayment && n.Kind != KindRefund && n.Kind != KindPayout {
		return fmt.Errorf("%w: notification kind %q", httperr.ErrInvalidInput, n.Kind)
	}

	key := "payment:" + n.EventID
	if n.EventID != "" && s.deduper != nil {
		first, err := s.deduper.FirstSeen(ctx, key, dedupeTTL)
		switch {
		case err != nil:
			s.Log.Warn("webhook dedupe unavailable", zap.String("event_id", n.EventID), zap.Error(err))
		case !first:
			s.Log.Info("duplicate webhook ignored", zap.String("event_id", n.EventID))
			return nil
		}
	}

	err := s.handle(ctx, n)
	if err != nil && n.EventID != "" && s.deduper != nil {
		if ferr := s.deduper.Forget(ctx, key); ferr != nil {
			s.Log.Warn("webhook dedupe forget failed", zap.String("event_id", n.EventID), zap.Error(ferr))
		}
	}
	return err
}

func (s *Service) handle(ctx context.Context, n Notification) error {
	if err := s.resolve(ctx, &n); err != nil {
		return err
	}

	if n.Kind == KindPayout {
		_, err := s.withdrawals.Execute(ctx, n.PayoutRef, n.reference, n.Status)
		return err
	}

	return s.locked(ctx, n.BookingID, func(after *usecase.After) error {
		switch {
		case n.Kind == KindPayment && n.Status == gateway.ChargeSucceeded:
			return s.applyPaymentSuccess(ctx, n.BookingID, n.ChargeRef, n.Amount, after)
		case n.Kind == KindPayment && n.Status == gateway.ChargeFailed:
			return s.applyPaymentFailure(ctx, n.BookingID, "payment declined", after)
		case n.Kind == KindRefund && n.Status != gateway.ChargePending:
			return s.applyRefundOutcome(ctx, n.BookingID, n.Status, n.RefundRef, n.Amount, after)
		}
		return nil
	})
}

// resolve replaces whatever status and amount were posted with the
// processor's own answer for the named charge, refund or payout.
func (s *Service) resolve(ctx context.Context, n *Notification) error {
	n.Status = gateway.ChargePending
	n.Amount = 0

	switch n.Kind {
	case KindPayment:
		return s.resolveCharge(ctx, n)
	case KindRefund:
		return s.resolveRefund(ctx, n)
	default:
		return s.resolvePayout(ctx, n)
	}
}

func (s *Service) resolveCharge(ctx context.Context, n *Notification) error {
	if n.ChargeRef == "" {
		return fmt.Errorf("%w: payment notification names no charge", httperr.ErrInvalidInput)
	}

	info, err := s.gateway.LookupPayment(ctx, n.ChargeRef)
	if err != nil {
		return fmt.Errorf("%w: %v", httperr.ErrExternalServiceFailure, err)
	}
	if n.BookingID != uuid.Nil && n.BookingID != info.BookingID {
		return fmt.Errorf("%w: charge %s belongs to another booking", httperr.ErrInvalidInput, n.ChargeRef)
	}

	n.BookingID = info.BookingID
	n.Status = info.Status
	n.Amount = info.Amount
	return nil
}

func (s *Service) resolveRefund(ctx context.Context, n *Notification) error {
	if n.RefundRef == "" {
		return fmt.Errorf("%w: refund notification names no refund", httperr.ErrInvalidInput)
	}

	repo := s.Store.Bookings()

	var (
		p   *models.PaymentRecord
		err error
	)
	switch {
	case n.BookingID != uuid.Nil:
		p, err = repo.GetPaymentByBooking(ctx, n.BookingID)
	case n.ProviderRef != "":
		p, err = repo.GetPaymentByProviderRef(ctx, n.ProviderRef)
	default:
		return fmt.Errorf("%w: notification does not identify a booking", httperr.ErrInvalidInput)
	}
	if err != nil {
		return err
	}
	if p == nil || p.ChargeRef == "" {
		return fmt.Errorf("%w: booking has no captured charge", httperr.ErrInvalidInput)
	}

	res, err := s.gateway.LookupRefund(ctx, p.ChargeRef, n.RefundRef)
	if err != nil {
		return fmt.Errorf("%w: %v", httperr.ErrExternalServiceFailure, err)
	}

	n.BookingID = p.BookingID
	n.RefundRef = res.RefundRef
	n.Status = res.Status
	n.Amount = res.Amount
	return nil
}

func (s *Service) resolvePayout(ctx context.Context, n *Notification) error {
	if n.PayoutRef == "" {
		return fmt.Errorf("%w: payout notification names no payout", httperr.ErrInvalidInput)
	}

	info, err := s.gateway.LookupPayout(ctx, n.PayoutRef)
	if err != nil {
		return fmt.Errorf("%w: %v", httperr.ErrExternalServiceFailure, err)
	}

	n.PayoutRef = info.PayoutRef
	n.reference = info.Reference
	n.Status = info.Status
	n.Amount = info.Amount
	return nil
}

// ======================================================
// Reconciliation
// ======================================================

// Reconcile retries failed intents and refunds whose backoff elapsed. It
// returns how many retries succeeded.
func (s *Service) Reconcile(ctx context.Context, limit int) (int, error) {
	due, err := s.Store.Bookings().ListPaymentRetries(ctx, limit)
	if err != nil {
		return 0, err
	}

	now := s.Clock.Now()
	retried := 0
	for _, b := range due {
		if ctx.Err() != nil {
			return retried, ctx.Err()
		}

		p, err := s.Store.Bookings().GetPaymentByBooking(ctx, b.ID)
		if err != nil {
			s.Log.Warn("reconcile: load payment", zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}
		if p != nil && now.Before(p.UpdatedAt.Add(async.Backoff(s.retryBase, p.Attempts-1))) {
			continue
		}

		switch booking.PaymentStatus(b.PaymentStatus) {
		case booking.PaymentIntentFailed:
			err = s.RequestIntent(ctx, b.ID)
		case booking.PaymentRefundFailed:
			err = s.RequestRefund(ctx, b.ID)
		}
		if err != nil {
			s.Log.Warn("reconcile retry failed", zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}
		retried++
	}
	return retried, nil
}
