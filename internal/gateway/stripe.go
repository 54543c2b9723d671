package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/domain"
)

// StripeGateway talks to a Stripe-compatible payment API over HTTP. The base
// URL is injectable so tests can point it at a local server.
type StripeGateway struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	tolerance     time.Duration
	now           func() time.Time
}

var _ Gateway = (*StripeGateway)(nil)

func NewStripeGateway(baseURL, secretKey, webhookSecret string, timeout time.Duration) *StripeGateway {
	return &StripeGateway{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
		tolerance:     5 * time.Minute,
		now:           time.Now,
	}
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type intentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret"`
	LatestCharge string `json:"latest_charge"`

	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out intentResponse
	if err := g.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return nil, err
	}
	return &Intent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, methodToken string) (*IntentResult, error) {
	form := url.Values{}
	form.Set("payment_method", methodToken)

	var out intentResponse
	if err := g.post(ctx, "/v1/payment_intents/"+intentID+"/confirm", form, &out); err != nil {
		return nil, err
	}

	result := &IntentResult{ID: out.ID, Status: out.Status, ChargeID: out.LatestCharge}
	if out.LastPaymentError != nil {
		result.ErrorCode = out.LastPaymentError.Code
		result.ErrorMessage = out.LastPaymentError.Message
	}
	return result, nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) (string, error) {
	var out intentResponse
	if err := g.post(ctx, "/v1/payment_intents/"+intentID+"/cancel", url.Values{}, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (g *StripeGateway) RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error) {
	var out struct {
		ID         string `json:"id"`
		ReceiptURL string `json:"receipt_url"`
	}
	if err := g.get(ctx, "/v1/charges/"+chargeID, &out); err != nil {
		return nil, err
	}
	return &Charge{ID: out.ID, ReceiptURL: out.ReceiptURL}, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, chargeID string, amountMinor int64, reason string, metadata map[string]string) (*RefundResult, error) {
	form := url.Values{}
	form.Set("charge", chargeID)
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	switch reason {
	case "duplicate", "fraudulent", "requested_by_customer":
		form.Set("reason", reason)
	case "":
	default:
		// Free-text reasons are not part of the API enum; carry them as metadata.
		form.Set("metadata[custom_reason]", reason)
	}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := g.post(ctx, "/v1/refunds", form, &out); err != nil {
		return nil, err
	}
	return &RefundResult{ID: out.ID, Status: out.Status}, nil
}

// VerifyAndParseWebhook checks the "t=<unix>,v1=<hex>" signature header
// against HMAC-SHA256(secret, "<t>.<payload>") and rejects stale timestamps.
// Verification failure never yields a parsed event.
func (g *StripeGateway) VerifyAndParseWebhook(payload []byte, signature string) (*Event, error) {
	ts, sigs, err := parseSignatureHeader(signature)
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}

	if g.tolerance > 0 {
		eventTime := time.Unix(ts, 0)
		if g.now().Sub(eventTime) > g.tolerance || eventTime.Sub(g.now()) > g.tolerance {
			return nil, domain.ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, s := range sigs {
		decoded, decErr := hex.DecodeString(s)
		if decErr == nil && hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, domain.ErrInvalidSignature
	}

	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID           string `json:"id"`
				LatestCharge string `json:"latest_charge"`

				LastPaymentError *struct {
					Code    string `json:"code"`
					Message string `json:"message"`
				} `json:"last_payment_error"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("malformed webhook payload: %w", err)
	}

	event := &Event{ID: raw.ID, Type: raw.Type}
	switch raw.Type {
	case EventChargeRefunded:
		event.ChargeID = raw.Data.Object.ID
	default:
		event.IntentID = raw.Data.Object.ID
		event.ChargeID = raw.Data.Object.LatestCharge
	}
	if raw.Data.Object.LastPaymentError != nil {
		event.ErrorCode = raw.Data.Object.LastPaymentError.Code
		event.ErrorMessage = raw.Data.Object.LastPaymentError.Message
	}
	return event, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var ts int64 = -1
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			parsed, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, err
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("missing timestamp or signature")
	}
	return ts, sigs, nil
}

func (g *StripeGateway) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, out)
}

func (g *StripeGateway) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *StripeGateway) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &domain.GatewayError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.GatewayError{Message: err.Error(), Err: err}
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return &domain.GatewayError{Code: apiErr.Error.Code, Message: apiErr.Error.Message}
		}
		return &domain.GatewayError{Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	return json.Unmarshal(body, out)
}
