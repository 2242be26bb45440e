package payment

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
)

type Intent struct {
	BookingID   uuid.UUID
	PayerID     uuid.UUID
	Amount      int64
	Currency    string
	Description string
}

type IntentResult struct {
	ProviderRef  string
	ClientSecret string
}

type RefundRequest struct {
	BookingID uuid.UUID
	ChargeRef string
	Amount    int64
}

type RefundResult struct {
	RefundRef string
	Status    ChargeStatus
	Amount    int64
}

type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
)

// PaymentInfo is the processor's view of a charge, used to verify
// webhook deliveries that only carry an id.
type PaymentInfo struct {
	ChargeRef string
	BookingID uuid.UUID
	Status    ChargeStatus
	Amount    int64
}

// Payout sends a tutor's available funds out. Reference is the wallet
// transaction that already debited them.
type Payout struct {
	Reference   uuid.UUID
	UserID      uuid.UUID
	Amount      int64
	Currency    string
	Destination string
	Description string
}

type PayoutResult struct {
	PayoutRef string
	Status    ChargeStatus
}

type PayoutInfo struct {
	PayoutRef string
	Reference uuid.UUID
	Status    ChargeStatus
	Amount    int64
}

// Payouter is the part of the gateway the withdrawal flow needs.
type Payouter interface {
	CreatePayout(ctx context.Context, p Payout) (*PayoutResult, error)
}

// Gateway is the payment collaborator. The Lookup methods are the only
// source of truth for webhook outcomes.
type Gateway interface {
	Payouter

	Name() string
	CreatePaymentIntent(ctx context.Context, in Intent) (*IntentResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
	LookupPayment(ctx context.Context, chargeRef string) (*PaymentInfo, error)
	LookupRefund(ctx context.Context, chargeRef, refundRef string) (*RefundResult, error)
	LookupPayout(ctx context.Context, payoutRef string) (*PayoutInfo, error)
}

var ErrNoCharge = errors.New("payment: booking has no captured charge")

func toMajor(cents int64) float64 {
	return float64(cents) / 100
}

func toMinor(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
