package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/httperr"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	ucPayment "github.com/wemaster/booking-core/internal/usecase/payment"
)

// NotificationHandler is what the webhook needs from the payment flow.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, n ucPayment.Notification) error
}

type WebhookHandler struct {
	payments NotificationHandler
	log      *zap.Logger
}

func NewWebhookHandler(payments NotificationHandler, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, log: log}
}

// PaymentWebhookRequest accepts the internal shape and MercadoPago's
// {"id", "type", "data": {"id"}} notification. Either way only the ids are
// used; the outcome is read back from the processor.
type PaymentWebhookRequest struct {
	ID          json.RawMessage `json:"id"`
	EventID     string          `json:"event_id"`
	Type        string          `json:"type"`
	Kind        string          `json:"kind"`
	BookingID   string          `json:"booking_id"`
	ProviderRef string          `json:"provider_ref"`
	ChargeRef   string          `json:"charge_ref"`
	RefundRef   string          `json:"refund_ref"`
	PayoutRef   string          `json:"payout_ref"`
	Status      string          `json:"status"`
	Amount      int64           `json:"amount"`
	Data        struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

func rawID(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}

func chargeStatus(s string) gateway.ChargeStatus {
	switch strings.ToLower(s) {
	case "succeeded", "approved", "completed", "paid":
		return gateway.ChargeSucceeded
	case "failed", "rejected", "cancelled", "canceled":
		return gateway.ChargeFailed
	}
	return gateway.ChargePending
}

// notification maps the body onto a Notification. signedID is the
// data.id query parameter covered by the delivery signature; when present
// it names the object and the body may not contradict it.
func (r PaymentWebhookRequest) notification(signedID string) (ucPayment.Notification, error) {
	n := ucPayment.Notification{
		EventID:     r.EventID,
		Kind:        r.Kind,
		ProviderRef: r.ProviderRef,
		ChargeRef:   r.ChargeRef,
		RefundRef:   r.RefundRef,
		PayoutRef:   r.PayoutRef,
		Status:      chargeStatus(r.Status),
		Amount:      r.Amount,
	}
	if n.EventID == "" {
		n.EventID = rawID(r.ID)
	}
	if n.Kind == "" {
		n.Kind = r.Type
	}

	dataID := rawID(r.Data.ID)
	if signedID != "" {
		if dataID != "" && !strings.EqualFold(dataID, signedID) {
			return n, errors.New("data.id does not match the signed delivery")
		}
		dataID = signedID
	}

	ref := &n.ChargeRef
	switch n.Kind {
	case ucPayment.KindRefund:
		ref = &n.RefundRef
	case ucPayment.KindPayout:
		ref = &n.PayoutRef
	}
	switch {
	case signedID != "":
		*ref = signedID
	case *ref == "":
		*ref = dataID
	}

	if r.BookingID != "" {
		id, err := uuid.Parse(r.BookingID)
		if err != nil {
			return n, errors.New("booking_id must be a uuid")
		}
		n.BookingID = id
	}
	return n, nil
}

func (h *WebhookHandler) Payments(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	n, err := req.notification(c.Query("data.id"))
	if err != nil {
		httperr.BadRequest(c, "invalid_request", err.Error())
		return
	}

	if err := h.payments.HandleNotification(c.Request.Context(), n); err != nil {
		h.log.Warn("payment webhook rejected",
			zap.String("event_id", n.EventID),
			zap.String("kind", n.Kind),
			zap.Error(err),
		)
		httperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
