package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const webhookSecret = "whsec_test"

func webhookRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/hook", WebhookSignature(secret), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func deliver(r http.Handler, path, signature, requestID string) int {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if signature != "" {
		req.Header.Set(HeaderSignature, signature)
	}
	if requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestSignatureManifest(t *testing.T) {
	assert.Equal(t, "id:abc123;request-id:req-1;ts:1704908010;", SignatureManifest("ABC123", "req-1", "1704908010"))
	assert.Equal(t, "ts:1704908010;", SignatureManifest("", "", "1704908010"))
}

func TestWebhookSignature(t *testing.T) {
	r := webhookRouter(webhookSecret)
	valid := SignWebhook(webhookSecret, "987654", "req-1", "1704908010")

	cases := []struct {
		name      string
		path      string
		signature string
		requestID string
		want      int
	}{
		{"valid", "/hook?data.id=987654&type=payment", valid, "req-1", http.StatusOK},
		{"unsigned", "/hook?data.id=987654&type=payment", "", "req-1", http.StatusUnauthorized},
		{"wrong secret", "/hook?data.id=987654", SignWebhook("other", "987654", "req-1", "1704908010"), "req-1", http.StatusUnauthorized},
		{"other data id", "/hook?data.id=111", valid, "req-1", http.StatusUnauthorized},
		{"other request id", "/hook?data.id=987654", valid, "req-2", http.StatusUnauthorized},
		{"not hex", "/hook?data.id=987654", "ts=1704908010,v1=zz", "req-1", http.StatusUnauthorized},
		{"no ts", "/hook?data.id=987654", "v1=00", "req-1", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, deliver(r, tc.path, tc.signature, tc.requestID))
		})
	}
}

func TestWebhookSignatureDisabledWithoutSecret(t *testing.T) {
	r := webhookRouter("")
	assert.Equal(t, http.StatusOK, deliver(r, "/hook", "", ""))
}
