package repository

import (
	"checkout-service/internal/domain"
)

// Find methods return (nil, nil) when no row matches; callers map that to
// their own not-found errors.

type OrderRepository interface {
	Save(order *domain.Order) error
	Update(order *domain.Order) error
	FindByID(id uint64) (*domain.Order, error)
	FindByNumber(orderNumber string) (*domain.Order, error)
	FindByUser(userID uint64) ([]domain.Order, error)
	FindByUserAndStatus(userID uint64, status domain.OrderStatus) ([]domain.Order, error)
	FindByStatus(status domain.OrderStatus) ([]domain.Order, error)
}

type PaymentRepository interface {
	Save(payment *domain.Payment) error
	Update(payment *domain.Payment) error
	FindByPaymentID(paymentID string) (*domain.Payment, error)
	FindByOrderID(orderID string) (*domain.Payment, error)
	FindByIntentID(paymentIntentID string) (*domain.Payment, error)
	FindByUser(userID uint64) ([]domain.Payment, error)
	FindByUserAndStatus(userID uint64, status domain.PaymentStatus) ([]domain.Payment, error)
}

type RefundRepository interface {
	Save(refund *domain.Refund) error
	Update(refund *domain.Refund) error
	FindByRefundID(refundID string) (*domain.Refund, error)
	FindByPayment(paymentRef uint64) ([]domain.Refund, error)
}
