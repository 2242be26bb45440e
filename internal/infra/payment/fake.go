package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var errFakeDown = errors.New("fake gateway: unavailable")

type fakeRefund struct {
	chargeRef string
	result    RefundResult
}

// Fake records calls and succeeds unless told otherwise. It backs local
// runs without processor credentials and the use-case tests.
type Fake struct {
	mu sync.Mutex

	FailIntents bool
	FailRefunds bool
	FailPayouts bool

	Intents  []Intent
	Refunds  []RefundRequest
	Payouts  []Payout
	Payments map[string]PaymentInfo

	refunds map[string]fakeRefund
	payouts map[string]PayoutInfo
}

var _ Gateway = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		Payments: map[string]PaymentInfo{},
		refunds:  map[string]fakeRefund{},
		payouts:  map[string]PayoutInfo{},
	}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) SetFailRefunds(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailRefunds = v
}

func (f *Fake) SetFailIntents(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailIntents = v
}

func (f *Fake) SetFailPayouts(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailPayouts = v
}

func (f *Fake) CreatePaymentIntent(_ context.Context, in Intent) (*IntentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Intents = append(f.Intents, in)
	if f.FailIntents {
		return nil, errFakeDown
	}

	ref := "pi_" + in.BookingID.String()
	return &IntentResult{ProviderRef: ref, ClientSecret: ref + "_secret"}, nil
}

func (f *Fake) Refund(_ context.Context, req RefundRequest) (*RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Refunds = append(f.Refunds, req)
	if f.FailRefunds {
		return nil, errFakeDown
	}

	res := RefundResult{
		RefundRef: fmt.Sprintf("re_%s_%d", req.BookingID, len(f.Refunds)),
		Status:    ChargeSucceeded,
		Amount:    req.Amount,
	}
	f.refunds[res.RefundRef] = fakeRefund{chargeRef: req.ChargeRef, result: res}
	return &res, nil
}

func (f *Fake) CreatePayout(_ context.Context, p Payout) (*PayoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Payouts = append(f.Payouts, p)
	if f.FailPayouts {
		return nil, errFakeDown
	}

	ref := "po_" + p.Reference.String()
	f.payouts[ref] = PayoutInfo{PayoutRef: ref, Reference: p.Reference, Status: ChargePending, Amount: p.Amount}
	return &PayoutResult{PayoutRef: ref, Status: ChargePending}, nil
}

func (f *Fake) LookupPayment(_ context.Context, chargeRef string) (*PaymentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, ok := f.Payments[chargeRef]
	if !ok {
		return nil, fmt.Errorf("fake gateway: unknown charge %s", chargeRef)
	}
	return &info, nil
}

func (f *Fake) LookupRefund(_ context.Context, chargeRef, refundRef string) (*RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.refunds[refundRef]
	if !ok || r.chargeRef != chargeRef {
		return nil, fmt.Errorf("fake gateway: unknown refund %s on charge %s", refundRef, chargeRef)
	}
	res := r.result
	return &res, nil
}

func (f *Fake) LookupPayout(_ context.Context, payoutRef string) (*PayoutInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, ok := f.payouts[payoutRef]
	if !ok {
		return nil, fmt.Errorf("fake gateway: unknown payout %s", payoutRef)
	}
	return &info, nil
}

// Capture registers a charge the way the processor would after checkout.
func (f *Fake) Capture(chargeRef string, bookingID uuid.UUID, amount int64, status ChargeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Payments[chargeRef] = PaymentInfo{ChargeRef: chargeRef, BookingID: bookingID, Status: status, Amount: amount}
}

// SettleRefund records a refund outcome on the processor side, for refunds
// completed outside the Refund call.
func (f *Fake) SettleRefund(chargeRef, refundRef string, amount int64, status ChargeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds[refundRef] = fakeRefund{
		chargeRef: chargeRef,
		result:    RefundResult{RefundRef: refundRef, Status: status, Amount: amount},
	}
}

// SettlePayout moves a payout to its final processor status.
func (f *Fake) SettlePayout(payoutRef string, status ChargeStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.payouts[payoutRef]
	info.PayoutRef = payoutRef
	info.Status = status
	f.payouts[payoutRef] = info
}

func (f *Fake) RefundCalls() []RefundRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RefundRequest(nil), f.Refunds...)
}

func (f *Fake) IntentCalls() []Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Intent(nil), f.Intents...)
}

func (f *Fake) PayoutCalls() []Payout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Payout(nil), f.Payouts...)
}
