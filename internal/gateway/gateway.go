package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Intent statuses surfaced by the processor that the payment service maps
// onto its own state machine.
const (
	IntentStatusSucceeded      = "succeeded"
	IntentStatusRequiresAction = "requires_action"
	IntentStatusCanceled       = "canceled"
)

// Webhook event types handled by the reconciler.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

type Intent struct {
	ID           string
	ClientSecret string
}

type IntentResult struct {
	ID           string
	Status       string
	ChargeID     string
	ErrorCode    string
	ErrorMessage string
}

type Charge struct {
	ID         string
	ReceiptURL string
}

type RefundResult struct {
	ID     string
	Status string
}

// Event is a verified, parsed webhook notification.
type Event struct {
	ID           string
	Type         string
	IntentID     string
	ChargeID     string
	ErrorCode    string
	ErrorMessage string
}

type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID, methodToken string) (*IntentResult, error)
	CancelIntent(ctx context.Context, intentID string) (string, error)
	RetrieveCharge(ctx context.Context, chargeID string) (*Charge, error)
	CreateRefund(ctx context.Context, chargeID string, amountMinor int64, reason string, metadata map[string]string) (*RefundResult, error)
	VerifyAndParseWebhook(payload []byte, signature string) (*Event, error)
}

// ToMinorUnits converts a major-unit amount to the processor's smallest
// currency unit, rounding half-up.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
