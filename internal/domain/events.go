package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	OrderID     uint64          `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	UserID      uint64          `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// PaymentStatusUpdate is the summary the payment side pushes to the order
// aggregate after a terminal-ish payment transition.
type PaymentStatusUpdate struct {
	PaymentID      string          `json:"paymentId"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
	TransactionRef string          `json:"transactionRef"`
	Amount         decimal.Decimal `json:"amount"`
}

type RefundCompletedEvent struct {
	RefundID    string          `json:"refundId"`
	PaymentID   string          `json:"paymentId"`
	OrderID     string          `json:"orderId"`
	Amount      decimal.Decimal `json:"amount"`
	ProcessedAt time.Time       `json:"processedAt"`
}

// MapPaymentStatusToOrder is the fixed payment-to-order facing status table.
func MapPaymentStatusToOrder(status PaymentStatus) string {
	switch status {
	case PaymentStatusCompleted:
		return "PAID"
	case PaymentStatusFailed:
		return "FAILED"
	case PaymentStatusCancelled:
		return "CANCELLED"
	case PaymentStatusRefunded:
		return "REFUNDED"
	case PaymentStatusPartiallyRefunded:
		return "PARTIALLY_REFUNDED"
	default:
		return "PENDING"
	}
}
