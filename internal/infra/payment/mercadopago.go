package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/mercadopago/sdk-go/pkg/refund"
	"go.uber.org/zap"
)

// DefaultPayoutURL is MercadoPago's transaction intents API, which
// handles money out to a bank account or PIX key.
const DefaultPayoutURL = "https://api.mercadopago.com/v1/transaction-intents"

type MercadoPago struct {
	cfg             *config.Config
	preferences     preference.Client
	refunds         refund.Client
	payments        mppayment.Client
	notificationURL string
	payoutURL       string
	log             *zap.Logger
}

var _ Gateway = (*MercadoPago)(nil)

func NewMercadoPago(accessToken, notificationURL, payoutURL string, log *zap.Logger) (*MercadoPago, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	if payoutURL == "" {
		payoutURL = DefaultPayoutURL
	}

	return &MercadoPago{
		cfg:             cfg,
		preferences:     preference.NewClient(cfg),
		refunds:         refund.NewClient(cfg),
		payments:        mppayment.NewClient(cfg),
		notificationURL: notificationURL,
		payoutURL:       payoutURL,
		log:             log,
	}, nil
}

func (m *MercadoPago) Name() string { return "mercadopago" }

// CreatePaymentIntent opens a checkout preference. The booking id travels
// as the external reference so the webhook can find it again.
func (m *MercadoPago) CreatePaymentIntent(ctx context.Context, in Intent) (*IntentResult, error) {
	req := preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:         in.BookingID.String(),
				Title:      in.Description,
				Quantity:   1,
				UnitPrice:  toMajor(in.Amount),
				CurrencyID: in.Currency,
			},
		},
		ExternalReference: in.BookingID.String(),
		NotificationURL:   m.notificationURL,
	}

	res, err := m.preferences.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago preference: %w", err)
	}

	m.log.Info("payment preference created",
		zap.String("booking_id", in.BookingID.String()),
		zap.String("preference_id", res.ID),
	)

	return &IntentResult{
		ProviderRef:  res.ID,
		ClientSecret: res.InitPoint,
	}, nil
}

func (m *MercadoPago) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if req.ChargeRef == "" {
		return nil, ErrNoCharge
	}
	paymentID, err := strconv.Atoi(req.ChargeRef)
	if err != nil {
		return nil, fmt.Errorf("mercadopago refund: charge ref %q: %w", req.ChargeRef, err)
	}

	res, err := m.refunds.CreatePartialRefund(ctx, paymentID, toMajor(req.Amount))
	if err != nil {
		return nil, fmt.Errorf("mercadopago refund: %w", err)
	}

	return refundResult(res), nil
}

func refundResult(res *refund.Response) *RefundResult {
	status := ChargePending
	switch res.Status {
	case "approved":
		status = ChargeSucceeded
	case "rejected", "cancelled":
		status = ChargeFailed
	}

	return &RefundResult{
		RefundRef: strconv.Itoa(res.ID),
		Status:    status,
		Amount:    toMinor(res.Amount),
	}
}

func (m *MercadoPago) LookupRefund(ctx context.Context, chargeRef, refundRef string) (*RefundResult, error) {
	paymentID, err := strconv.Atoi(chargeRef)
	if err != nil {
		return nil, fmt.Errorf("mercadopago refund lookup: charge ref %q: %w", chargeRef, err)
	}
	refundID, err := strconv.Atoi(refundRef)
	if err != nil {
		return nil, fmt.Errorf("mercadopago refund lookup: refund ref %q: %w", refundRef, err)
	}

	res, err := m.refunds.Get(ctx, paymentID, refundID)
	if err != nil {
		return nil, fmt.Errorf("mercadopago refund lookup: %w", err)
	}
	return refundResult(res), nil
}

func (m *MercadoPago) LookupPayment(ctx context.Context, chargeRef string) (*PaymentInfo, error) {
	paymentID, err := strconv.Atoi(chargeRef)
	if err != nil {
		return nil, fmt.Errorf("mercadopago lookup: charge ref %q: %w", chargeRef, err)
	}

	res, err := m.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("mercadopago lookup: %w", err)
	}

	bookingID, err := uuid.Parse(res.ExternalReference)
	if err != nil {
		return nil, fmt.Errorf("mercadopago lookup: external reference %q: %w", res.ExternalReference, err)
	}

	status := ChargePending
	switch res.Status {
	case "approved":
		status = ChargeSucceeded
	case "rejected", "cancelled", "refunded", "charged_back":
		status = ChargeFailed
	}

	return &PaymentInfo{
		ChargeRef: chargeRef,
		BookingID: bookingID,
		Status:    status,
		Amount:    toMinor(res.TransactionAmount),
	}, nil
}

// ======================================================
// Payouts
// ======================================================

// sdk-go has no client for transaction intents; the calls reuse the SDK's
// configured requester and credentials.

type payoutAccount struct {
	Amount float64 `json:"amount"`
	Type   string  `json:"type,omitempty"`
	Key    string  `json:"key,omitempty"`
}

type payoutRequest struct {
	ExternalReference string `json:"external_reference"`
	Description       string `json:"description,omitempty"`
	Currency          string `json:"currency_id"`
	Transaction       struct {
		From struct {
			Accounts []payoutAccount `json:"accounts"`
		} `json:"from"`
		To struct {
			Accounts []payoutAccount `json:"accounts"`
		} `json:"to"`
		TotalAmount float64 `json:"total_amount"`
	} `json:"transaction"`
}

type payoutResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	Transaction       struct {
		TotalAmount float64 `json:"total_amount"`
	} `json:"transaction"`
}

func payoutStatus(s string) ChargeStatus {
	switch s {
	case "approved", "processed", "completed":
		return ChargeSucceeded
	case "rejected", "failed", "cancelled", "canceled":
		return ChargeFailed
	}
	return ChargePending
}

func (m *MercadoPago) CreatePayout(ctx context.Context, p Payout) (*PayoutResult, error) {
	amount := toMajor(p.Amount)

	var body payoutRequest
	body.ExternalReference = p.Reference.String()
	body.Description = p.Description
	body.Currency = p.Currency
	body.Transaction.From.Accounts = []payoutAccount{{Amount: amount}}
	body.Transaction.To.Accounts = []payoutAccount{{Amount: amount, Type: "pix", Key: p.Destination}}
	body.Transaction.TotalAmount = amount

	var res payoutResponse
	if err := m.call(ctx, http.MethodPost, m.payoutURL+"/process", p.Reference.String(), body, &res); err != nil {
		return nil, fmt.Errorf("mercadopago payout: %w", err)
	}

	m.log.Info("payout created",
		zap.String("reference", p.Reference.String()),
		zap.String("payout_id", res.ID),
		zap.String("status", res.Status),
	)

	return &PayoutResult{PayoutRef: res.ID, Status: payoutStatus(res.Status)}, nil
}

func (m *MercadoPago) LookupPayout(ctx context.Context, payoutRef string) (*PayoutInfo, error) {
	var res payoutResponse
	if err := m.call(ctx, http.MethodGet, m.payoutURL+"/"+payoutRef, "", nil, &res); err != nil {
		return nil, fmt.Errorf("mercadopago payout lookup: %w", err)
	}

	reference, err := uuid.Parse(res.ExternalReference)
	if err != nil {
		return nil, fmt.Errorf("mercadopago payout lookup: external reference %q: %w", res.ExternalReference, err)
	}

	return &PayoutInfo{
		PayoutRef: res.ID,
		Reference: reference,
		Status:    payoutStatus(res.Status),
		Amount:    toMinor(res.Transaction.TotalAmount),
	}, nil
}

func (m *MercadoPago) call(ctx context.Context, method, url, idempotencyKey string, in, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.AccessToken)
	if idempotencyKey != "" {
		req.Header.Set("X-Idempotency-Key", idempotencyKey)
	}

	res, err := m.cfg.Requester.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("status %d: %s", res.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}
