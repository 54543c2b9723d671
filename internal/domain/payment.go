package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusProcessing        PaymentStatus = "PROCESSING"
	PaymentStatusCompleted         PaymentStatus = "COMPLETED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// FAILED, CANCELLED and REFUNDED are terminal.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:           {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing:        {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted:         {PaymentStatusRefunded, PaymentStatusPartiallyRefunded},
	PaymentStatusPartiallyRefunded: {PaymentStatusRefunded},
	PaymentStatusFailed:            {},
	PaymentStatusCancelled:         {},
	PaymentStatusRefunded:          {},
}

func IsValidPaymentTransition(current, next PaymentStatus) bool {
	for _, s := range paymentTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusCompleted RefundStatus = "COMPLETED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

type Payment struct {
	ID        uint64          `json:"-" gorm:"primaryKey;autoIncrement"`
	PaymentID string          `json:"paymentId" gorm:"uniqueIndex;size:64;not null"`
	OrderID   string          `json:"orderId" gorm:"size:64;not null;index"`
	UserID    uint64          `json:"userId" gorm:"not null;index"`
	Amount    decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency  string          `json:"currency" gorm:"size:3;not null"`
	Status    PaymentStatus   `json:"status" gorm:"size:32;not null;index"`

	PaymentMethod   string `json:"paymentMethod" gorm:"size:32;not null"`
	PaymentIntentID string `json:"paymentIntentId" gorm:"size:128;index"`
	ChargeID        string `json:"chargeId" gorm:"size:128"`
	ReceiptURL      string `json:"receiptUrl" gorm:"size:512"`
	ErrorCode       string `json:"errorCode" gorm:"size:64"`
	ErrorMessage    string `json:"errorMessage" gorm:"type:text"`
	Metadata        string `json:"metadata" gorm:"type:text"`

	Refunds []Refund `json:"refunds" gorm:"constraint:OnDelete:CASCADE;foreignKey:PaymentRef"`

	Version     uint64     `json:"-" gorm:"not null;default:0"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
	ProcessedAt *time.Time `json:"processedAt"`
}

// TransitionTo validates the requested payment transition and applies it.
func (p *Payment) TransitionTo(next PaymentStatus) error {
	if !IsValidPaymentTransition(p.Status, next) {
		return &InvalidTransitionError{Entity: "payment", From: string(p.Status), To: string(next)}
	}
	p.Status = next
	return nil
}

// RefundedAmount sums the COMPLETED refunds recorded against the payment.
func (p *Payment) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status == RefundStatusCompleted {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// AvailableRefundAmount is the derived refund ledger view. It is computed on
// demand, never cached. Payments outside COMPLETED/PARTIALLY_REFUNDED have
// nothing refundable.
func (p *Payment) AvailableRefundAmount() decimal.Decimal {
	if p.Status != PaymentStatusCompleted && p.Status != PaymentStatusPartiallyRefunded {
		return decimal.Zero
	}
	return p.Amount.Sub(p.RefundedAmount())
}

// Refund cannot outlive its payment; rows cascade with the payment record.
type Refund struct {
	ID         uint64          `json:"-" gorm:"primaryKey;autoIncrement"`
	RefundID   string          `json:"refundId" gorm:"uniqueIndex;size:64;not null"`
	PaymentRef uint64          `json:"-" gorm:"not null;index"`
	Amount     decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Status     RefundStatus    `json:"status" gorm:"size:32;not null"`
	Reason     string          `json:"reason" gorm:"size:255"`

	RefundIntentID string `json:"refundIntentId" gorm:"size:128"`
	ErrorCode      string `json:"errorCode" gorm:"size:64"`
	ErrorMessage   string `json:"errorMessage" gorm:"type:text"`
	Metadata       string `json:"metadata" gorm:"type:text"`

	CreatedAt   time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
	ProcessedAt *time.Time `json:"processedAt"`
}
