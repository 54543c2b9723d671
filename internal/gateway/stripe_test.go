package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"checkout-service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const testWebhookSecret = "whsec_test"

func signPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestGateway(baseURL string) *StripeGateway {
	gw := NewStripeGateway(baseURL, "sk_test", testWebhookSecret, 2*time.Second)
	gw.now = func() time.Time { return time.Unix(1700000000, 0) }
	return gw
}

func TestVerifyAndParseWebhook(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_123", "latest_charge": "ch_1"}}
	}`)

	t.Run("valid signature parses the event", func(t *testing.T) {
		gw := newTestGateway("")
		sig := signPayload(testWebhookSecret, 1700000000, payload)

		event, err := gw.VerifyAndParseWebhook(payload, sig)

		assert.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, EventPaymentSucceeded, event.Type)
		assert.Equal(t, "pi_123", event.IntentID)
		assert.Equal(t, "ch_1", event.ChargeID)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		gw := newTestGateway("")
		sig := signPayload("whsec_other", 1700000000, payload)

		_, err := gw.VerifyAndParseWebhook(payload, sig)

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("tampered payload is rejected", func(t *testing.T) {
		gw := newTestGateway("")
		sig := signPayload(testWebhookSecret, 1700000000, payload)

		_, err := gw.VerifyAndParseWebhook([]byte(`{"id":"evt_forged"}`), sig)

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("stale timestamp is rejected", func(t *testing.T) {
		gw := newTestGateway("")
		stale := int64(1700000000 - 600)
		sig := signPayload(testWebhookSecret, stale, payload)

		_, err := gw.VerifyAndParseWebhook(payload, sig)

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("garbage header is rejected", func(t *testing.T) {
		gw := newTestGateway("")

		_, err := gw.VerifyAndParseWebhook(payload, "not-a-signature")

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("charge refunded event carries the charge id", func(t *testing.T) {
		gw := newTestGateway("")
		refunded := []byte(`{
			"id": "evt_2",
			"type": "charge.refunded",
			"data": {"object": {"id": "ch_9"}}
		}`)
		sig := signPayload(testWebhookSecret, 1700000000, refunded)

		event, err := gw.VerifyAndParseWebhook(refunded, sig)

		assert.NoError(t, err)
		assert.Equal(t, EventChargeRefunded, event.Type)
		assert.Equal(t, "ch_9", event.ChargeID)
		assert.Empty(t, event.IntentID)
	})

	t.Run("failed event carries the last payment error", func(t *testing.T) {
		gw := newTestGateway("")
		failed := []byte(`{
			"id": "evt_3",
			"type": "payment_intent.payment_failed",
			"data": {"object": {"id": "pi_123", "last_payment_error": {"code": "card_declined", "message": "declined"}}}
		}`)
		sig := signPayload(testWebhookSecret, 1700000000, failed)

		event, err := gw.VerifyAndParseWebhook(failed, sig)

		assert.NoError(t, err)
		assert.Equal(t, "card_declined", event.ErrorCode)
		assert.Equal(t, "declined", event.ErrorMessage)
	})
}

func TestCreateIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "3440", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "ORD-1", r.PostForm.Get("metadata[orderId]"))

		fmt.Fprint(w, `{"id": "pi_123", "status": "requires_payment_method", "client_secret": "pi_123_secret"}`)
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	intent, err := gw.CreateIntent(context.Background(), 3440, "USD", map[string]string{"orderId": "ORD-1"})

	assert.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
}

func TestConfirmIntent(t *testing.T) {
	t.Run("succeeded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payment_intents/pi_123/confirm", r.URL.Path)
			fmt.Fprint(w, `{"id": "pi_123", "status": "succeeded", "latest_charge": "ch_1"}`)
		}))
		defer server.Close()

		result, err := newTestGateway(server.URL).ConfirmIntent(context.Background(), "pi_123", "pm_card")

		assert.NoError(t, err)
		assert.Equal(t, IntentStatusSucceeded, result.Status)
		assert.Equal(t, "ch_1", result.ChargeID)
	})

	t.Run("declined card surfaces the payment error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"id": "pi_123",
				"status": "requires_payment_method",
				"last_payment_error": {"code": "card_declined", "message": "Your card was declined."}
			}`)
		}))
		defer server.Close()

		result, err := newTestGateway(server.URL).ConfirmIntent(context.Background(), "pi_123", "pm_card")

		assert.NoError(t, err)
		assert.Equal(t, "card_declined", result.ErrorCode)
	})

	t.Run("api error maps to a gateway error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			fmt.Fprint(w, `{"error": {"code": "card_declined", "message": "Your card was declined."}}`)
		}))
		defer server.Close()

		_, err := newTestGateway(server.URL).ConfirmIntent(context.Background(), "pi_123", "pm_card")

		var gwErr *domain.GatewayError
		assert.ErrorAs(t, err, &gwErr)
		assert.Equal(t, "card_declined", gwErr.Code)
	})
}

func TestCreateRefund(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/refunds", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "ch_1", r.PostForm.Get("charge"))
		assert.Equal(t, "4000", r.PostForm.Get("amount"))
		// Non-enum reasons travel as metadata instead.
		assert.Empty(t, r.PostForm.Get("reason"))
		assert.Equal(t, "wrong size", r.PostForm.Get("metadata[custom_reason]"))

		fmt.Fprint(w, `{"id": "re_1", "status": "succeeded"}`)
	}))
	defer server.Close()

	result, err := newTestGateway(server.URL).CreateRefund(context.Background(), "ch_1", 4000, "wrong size", nil)

	assert.NoError(t, err)
	assert.Equal(t, "re_1", result.ID)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(3440), ToMinorUnits(decimal.NewFromFloat(34.40)))
	assert.Equal(t, int64(100), ToMinorUnits(decimal.NewFromFloat(1.00)))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.NewFromFloat(0.005)))
	assert.Equal(t, int64(0), ToMinorUnits(decimal.Zero))
}
