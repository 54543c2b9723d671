package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/gateway"
	rabbit "checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderLookup resolves the order a payment settles. Payment creation fails
// when the order cannot be resolved.
type OrderLookup interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
}

// StatusPusher hands a payment status change to the order side. The push is
// fire-and-forget: implementations log failures and never return them here.
type StatusPusher interface {
	Push(ctx context.Context, orderID string, update domain.PaymentStatusUpdate)
}

type CreatePaymentInput struct {
	OrderID       string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Metadata      string
}

type PaymentService struct {
	payments        repository.PaymentRepository
	refunds         repository.RefundRepository
	orders          OrderLookup
	gateway         gateway.Gateway
	pusher          StatusPusher
	publisher       rabbit.PublisherInterface
	logger          *zap.Logger
	defaultCurrency string
}

func NewPaymentService(
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	orders OrderLookup,
	gw gateway.Gateway,
	pusher StatusPusher,
	publisher rabbit.PublisherInterface,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments:        payments,
		refunds:         refunds,
		orders:          orders,
		gateway:         gw,
		pusher:          pusher,
		publisher:       publisher,
		logger:          logger,
		defaultCurrency: "USD",
	}
}

// CreatePayment validates the target order, persists a PENDING payment and
// opens a payment intent with the gateway. A gateway failure marks the
// payment FAILED but keeps the row so failed attempts stay auditable.
// Returns the payment and the intent client secret.
func (s *PaymentService) CreatePayment(ctx context.Context, userID uint64, input CreatePaymentInput) (*domain.Payment, string, error) {
	if !input.Amount.IsPositive() {
		return nil, "", domain.ErrInvalidAmount
	}

	if _, err := s.orders.GetOrderByNumber(ctx, input.OrderID); err != nil {
		return nil, "", err
	}

	currency := strings.ToUpper(input.Currency)
	if currency == "" {
		currency = s.defaultCurrency
	}

	payment := &domain.Payment{
		PaymentID:     domain.NewPaymentID(),
		OrderID:       input.OrderID,
		UserID:        userID,
		Amount:        input.Amount,
		Currency:      currency,
		Status:        domain.PaymentStatusPending,
		PaymentMethod: input.PaymentMethod,
		Metadata:      input.Metadata,
	}
	if err := s.payments.Save(payment); err != nil {
		return nil, "", err
	}

	intent, err := s.gateway.CreateIntent(ctx, gateway.ToMinorUnits(input.Amount), currency, map[string]string{
		"orderId":   input.OrderID,
		"paymentId": payment.PaymentID,
	})
	if err != nil {
		s.markPaymentFailed(payment, err)
		return nil, "", err
	}

	payment.PaymentIntentID = intent.ID
	if err := s.payments.Update(payment); err != nil {
		return nil, "", err
	}

	s.logger.Info("payment created",
		zap.String("paymentId", payment.PaymentID),
		zap.String("orderId", payment.OrderID),
		zap.String("intentId", intent.ID))
	return payment, intent.ClientSecret, nil
}

// ProcessPayment confirms the intent with the given payment method token and
// maps the gateway outcome onto the payment state machine. Only PENDING
// payments may be processed.
func (s *PaymentService) ProcessPayment(ctx context.Context, paymentID, methodToken string) (*domain.Payment, error) {
	payment, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusPending {
		return nil, fmt.Errorf("%w: payment %s is %s, expected PENDING",
			domain.ErrInvalidState, paymentID, payment.Status)
	}

	if err := payment.TransitionTo(domain.PaymentStatusProcessing); err != nil {
		return nil, err
	}
	if err := s.payments.Update(payment); err != nil {
		return nil, err
	}

	result, err := s.gateway.ConfirmIntent(ctx, payment.PaymentIntentID, methodToken)
	if err != nil {
		s.markPaymentFailed(payment, err)
		return nil, err
	}

	switch result.Status {
	case gateway.IntentStatusSucceeded:
		if err := payment.TransitionTo(domain.PaymentStatusCompleted); err != nil {
			return nil, err
		}
		now := time.Now()
		payment.ProcessedAt = &now
		payment.ChargeID = result.ChargeID
		s.attachReceipt(ctx, payment)

	case gateway.IntentStatusRequiresAction:
		// The client has to complete an out-of-band challenge; the payment
		// stays PROCESSING until a webhook or another process call settles it.

	default:
		if err := payment.TransitionTo(domain.PaymentStatusFailed); err != nil {
			return nil, err
		}
		payment.ErrorCode = result.ErrorCode
		payment.ErrorMessage = result.ErrorMessage
	}

	if err := s.payments.Update(payment); err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusCompleted {
		s.pushStatus(ctx, payment)
	}

	s.logger.Info("payment processed",
		zap.String("paymentId", payment.PaymentID),
		zap.String("status", string(payment.Status)))
	return payment, nil
}

// CancelPayment cancels the upstream intent first; if the gateway refuses,
// the local payment is left untouched.
func (s *PaymentService) CancelPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	payment, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusPending && payment.Status != domain.PaymentStatusProcessing {
		return nil, fmt.Errorf("%w: payment %s cannot be cancelled in %s state",
			domain.ErrInvalidState, paymentID, payment.Status)
	}

	if payment.PaymentIntentID != "" {
		if _, err := s.gateway.CancelIntent(ctx, payment.PaymentIntentID); err != nil {
			return nil, err
		}
	}

	if err := payment.TransitionTo(domain.PaymentStatusCancelled); err != nil {
		return nil, err
	}
	if err := s.payments.Update(payment); err != nil {
		return nil, err
	}

	s.pushStatus(ctx, payment)

	s.logger.Info("payment cancelled", zap.String("paymentId", payment.PaymentID))
	return payment, nil
}

// UpdatePaymentStatus is the administrative override. It honors the same
// transition table as every other path.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, paymentID string, next domain.PaymentStatus) (*domain.Payment, error) {
	payment, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}

	if err := payment.TransitionTo(next); err != nil {
		return nil, err
	}
	if next == domain.PaymentStatusCompleted {
		now := time.Now()
		payment.ProcessedAt = &now
	}
	if err := s.payments.Update(payment); err != nil {
		return nil, err
	}

	switch next {
	case domain.PaymentStatusCompleted, domain.PaymentStatusFailed,
		domain.PaymentStatusCancelled, domain.PaymentStatusRefunded:
		s.pushStatus(ctx, payment)
	}

	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	return s.getPayment(paymentID)
}

func (s *PaymentService) GetPaymentByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	p, err := s.payments.FindByOrderID(orderID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (s *PaymentService) ListUserPayments(ctx context.Context, userID uint64, status *domain.PaymentStatus) ([]domain.Payment, error) {
	if status != nil {
		return s.payments.FindByUserAndStatus(userID, *status)
	}
	return s.payments.FindByUser(userID)
}

func (s *PaymentService) getPayment(paymentID string) (*domain.Payment, error) {
	p, err := s.payments.FindByPaymentID(paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPaymentNotFound
	}
	return p, nil
}

// attachReceipt is best-effort: a missing receipt URL never fails the
// COMPLETED transition.
func (s *PaymentService) attachReceipt(ctx context.Context, payment *domain.Payment) {
	if payment.ChargeID == "" {
		return
	}
	charge, err := s.gateway.RetrieveCharge(ctx, payment.ChargeID)
	if err != nil {
		s.logger.Warn("failed to retrieve charge for receipt URL",
			zap.String("paymentId", payment.PaymentID),
			zap.String("chargeId", payment.ChargeID),
			zap.Error(err))
		return
	}
	payment.ReceiptURL = charge.ReceiptURL
}

func (s *PaymentService) markPaymentFailed(payment *domain.Payment, cause error) {
	payment.Status = domain.PaymentStatusFailed
	var gwErr *domain.GatewayError
	if errors.As(cause, &gwErr) {
		payment.ErrorCode = gwErr.Code
		payment.ErrorMessage = gwErr.Message
	} else {
		payment.ErrorMessage = cause.Error()
	}
	if err := s.payments.Update(payment); err != nil {
		s.logger.Error("failed to persist FAILED payment status",
			zap.String("paymentId", payment.PaymentID), zap.Error(err))
	}
}

func (s *PaymentService) pushStatus(ctx context.Context, payment *domain.Payment) {
	s.pusher.Push(ctx, payment.OrderID, domain.PaymentStatusUpdate{
		PaymentID:      payment.PaymentID,
		Status:         domain.MapPaymentStatusToOrder(payment.Status),
		PaymentMethod:  payment.PaymentMethod,
		TransactionRef: payment.ChargeID,
		Amount:         payment.Amount,
	})
}
