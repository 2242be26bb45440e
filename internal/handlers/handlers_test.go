package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gateway "github.com/wemaster/booking-core/internal/infra/payment"
)

func queryContext(rawQuery string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c, w
}

func TestPageQuery(t *testing.T) {
	cases := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 20},
		{"page=3&limit=10", 3, 10},
		{"page=-1&limit=0", 1, 20},
		{"limit=1000", 1, 100},
		{"page=abc", 1, 20},
	}

	for _, tc := range cases {
		c, _ := queryContext(tc.query)
		page, limit := pageQuery(c)
		assert.Equal(t, tc.wantPage, page, tc.query)
		assert.Equal(t, tc.wantLimit, limit, tc.query)
	}
}

func TestTimeQuery(t *testing.T) {
	c, _ := queryContext("from=2026-03-02")
	got, ok := timeQuery(c, "from")
	require.True(t, ok)
	assert.Equal(t, "2026-03-02T00:00:00Z", got.Format("2006-01-02T15:04:05Z07:00"))

	c, _ = queryContext("from=2026-03-02T12:00:00-03:00")
	got, ok = timeQuery(c, "from")
	require.True(t, ok)
	assert.Equal(t, 15, got.Hour())

	c, _ = queryContext("")
	got, ok = timeQuery(c, "from")
	assert.True(t, ok)
	assert.Nil(t, got)

	c, w := queryContext("from=yesterday")
	_, ok = timeQuery(c, "from")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListQuery(t *testing.T) {
	c, _ := queryContext("status=pending,confirmed&status=completed&status=")
	assert.Equal(t, []string{"pending", "confirmed", "completed"}, listQuery(c, "status"))
}

func TestWebhookRequestInternalShape(t *testing.T) {
	id := uuid.New()
	var req PaymentWebhookRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"event_id": "evt_1",
		"kind": "refund",
		"booking_id": "`+id.String()+`",
		"refund_ref": "rf_9",
		"status": "failed",
		"amount": 2500
	}`), &req))

	n, err := req.notification("")
	require.NoError(t, err)
	assert.Equal(t, "evt_1", n.EventID)
	assert.Equal(t, "refund", n.Kind)
	assert.Equal(t, id, n.BookingID)
	assert.Equal(t, "rf_9", n.RefundRef)
	assert.Equal(t, gateway.ChargeFailed, n.Status)
	assert.EqualValues(t, 2500, n.Amount)
}

func TestWebhookRequestMercadoPagoShape(t *testing.T) {
	var req PaymentWebhookRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 12345,
		"type": "payment",
		"data": {"id": "987654"}
	}`), &req))

	n, err := req.notification("")
	require.NoError(t, err)
	assert.Equal(t, "12345", n.EventID)
	assert.Equal(t, "payment", n.Kind)
	assert.Equal(t, "987654", n.ChargeRef)
	assert.Equal(t, uuid.Nil, n.BookingID)
	assert.Equal(t, gateway.ChargePending, n.Status)
}

func TestWebhookRequestSignedIDNamesTheObject(t *testing.T) {
	var req PaymentWebhookRequest
	require.NoError(t, json.Unmarshal([]byte(`{"id": 7, "type": "payout", "data": {"id": "PO_1"}}`), &req))

	n, err := req.notification("po_1")
	require.NoError(t, err)
	assert.Equal(t, "payout", n.Kind)
	assert.Equal(t, "po_1", n.PayoutRef)
	assert.Empty(t, n.ChargeRef)

	// A body naming another object than the signed one is refused.
	req.Data.ID = json.RawMessage(`"po_2"`)
	_, err = req.notification("po_1")
	assert.Error(t, err)

	// The signed id also wins over a ref field in the internal shape.
	req = PaymentWebhookRequest{EventID: "evt", Kind: "payment", ChargeRef: "ch_other"}
	n, err = req.notification("ch_signed")
	require.NoError(t, err)
	assert.Equal(t, "ch_signed", n.ChargeRef)
}

func TestWebhookRequestRejectsBadBookingID(t *testing.T) {
	req := PaymentWebhookRequest{EventID: "evt", Kind: "payment", BookingID: "nope"}
	_, err := req.notification("")
	assert.Error(t, err)
}

func TestChargeStatus(t *testing.T) {
	assert.Equal(t, gateway.ChargeSucceeded, chargeStatus("approved"))
	assert.Equal(t, gateway.ChargeSucceeded, chargeStatus("SUCCEEDED"))
	assert.Equal(t, gateway.ChargeFailed, chargeStatus("rejected"))
	assert.Equal(t, gateway.ChargePending, chargeStatus("in_process"))
}
