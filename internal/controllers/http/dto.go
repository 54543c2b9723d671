package http

import (
	"checkout-service/internal/domain"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	UserID          uint64               `json:"userId" binding:"required"`
	ShippingAddress domain.OrderAddress  `json:"shippingAddress" binding:"required"`
	BillingAddress  *domain.OrderAddress `json:"billingAddress"`
	Notes           string               `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderPaymentStatusRequest struct {
	PaymentID      string          `json:"paymentId" binding:"required"`
	Status         string          `json:"status" binding:"required"`
	PaymentMethod  string          `json:"paymentMethod"`
	TransactionRef string          `json:"transactionRef"`
	Amount         decimal.Decimal `json:"amount"`
}

type CreatePaymentRequest struct {
	UserID        uint64          `json:"userId" binding:"required"`
	OrderID       string          `json:"orderId" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
	Metadata      string          `json:"metadata"`
}

type ProcessPaymentRequest struct {
	PaymentMethodID string `json:"paymentMethodId" binding:"required"`
}

type UpdatePaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CreateRefundRequest struct {
	PaymentID string          `json:"paymentId" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Reason    string          `json:"reason"`
	Metadata  string          `json:"metadata"`
}

type CreatePaymentResponse struct {
	Payment      *domain.Payment `json:"payment"`
	ClientSecret string          `json:"clientSecret"`
}
