package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/gateway"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateRefundInput struct {
	PaymentID string
	Amount    decimal.Decimal
	Reason    string
	Metadata  string
}

// AvailableRefundAmount computes how much of a payment remains refundable.
// Always derived from the refund rows, never cached.
func (s *PaymentService) AvailableRefundAmount(ctx context.Context, paymentID string) (decimal.Decimal, error) {
	payment, err := s.getPayment(paymentID)
	if err != nil {
		return decimal.Zero, err
	}
	return payment.AvailableRefundAmount(), nil
}

// CreateRefund executes a refund against the payment's stored charge.
// Both COMPLETED and PARTIALLY_REFUNDED payments are eligible; the remaining
// balance caps the amount. On gateway failure the refund row is marked
// FAILED and the payment status is left untouched.
func (s *PaymentService) CreateRefund(ctx context.Context, input CreateRefundInput) (*domain.Refund, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	payment, err := s.getPayment(input.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != domain.PaymentStatusCompleted && payment.Status != domain.PaymentStatusPartiallyRefunded {
		return nil, fmt.Errorf("%w: payment %s is %s, refunds require COMPLETED or PARTIALLY_REFUNDED",
			domain.ErrInvalidState, input.PaymentID, payment.Status)
	}

	available := payment.AvailableRefundAmount()
	if input.Amount.GreaterThan(available) {
		return nil, domain.ErrRefundExceedsAvailable
	}

	refund := &domain.Refund{
		RefundID:   domain.NewRefundID(),
		PaymentRef: payment.ID,
		Amount:     input.Amount,
		Status:     domain.RefundStatusPending,
		Reason:     input.Reason,
		Metadata:   input.Metadata,
	}
	if err := s.refunds.Save(refund); err != nil {
		return nil, err
	}

	result, err := s.gateway.CreateRefund(ctx, payment.ChargeID, gateway.ToMinorUnits(input.Amount), input.Reason, nil)
	if err != nil {
		s.markRefundFailed(refund, err)
		return nil, err
	}

	now := time.Now()
	refund.RefundIntentID = result.ID
	refund.Status = domain.RefundStatusCompleted
	refund.ProcessedAt = &now
	if err := s.refunds.Update(refund); err != nil {
		return nil, err
	}
	payment.Refunds = append(payment.Refunds, *refund)

	next := domain.PaymentStatusPartiallyRefunded
	if available.Sub(input.Amount).LessThanOrEqual(decimal.Zero) {
		next = domain.PaymentStatusRefunded
	}
	if payment.Status != next {
		if err := payment.TransitionTo(next); err != nil {
			return nil, err
		}
		if err := s.payments.Update(payment); err != nil {
			return nil, err
		}
	}

	s.pushStatus(ctx, payment)

	if s.publisher != nil {
		evt := domain.RefundCompletedEvent{
			RefundID:    refund.RefundID,
			PaymentID:   payment.PaymentID,
			OrderID:     payment.OrderID,
			Amount:      refund.Amount,
			ProcessedAt: now,
		}
		if err := s.publisher.Publish(ctx, "refund.completed", evt); err != nil {
			s.logger.Warn("failed to publish refund.completed event",
				zap.String("refundId", refund.RefundID), zap.Error(err))
		}
	}

	s.logger.Info("refund completed",
		zap.String("refundId", refund.RefundID),
		zap.String("paymentId", payment.PaymentID),
		zap.String("paymentStatus", string(payment.Status)))
	return refund, nil
}

func (s *PaymentService) GetRefund(ctx context.Context, refundID string) (*domain.Refund, error) {
	r, err := s.refunds.FindByRefundID(refundID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrRefundNotFound
	}
	return r, nil
}

func (s *PaymentService) ListRefundsByPayment(ctx context.Context, paymentID string) ([]domain.Refund, error) {
	payment, err := s.getPayment(paymentID)
	if err != nil {
		return nil, err
	}
	return s.refunds.FindByPayment(payment.ID)
}

func (s *PaymentService) markRefundFailed(refund *domain.Refund, cause error) {
	refund.Status = domain.RefundStatusFailed
	var gwErr *domain.GatewayError
	if errors.As(cause, &gwErr) {
		refund.ErrorCode = gwErr.Code
		refund.ErrorMessage = gwErr.Message
	} else {
		refund.ErrorMessage = cause.Error()
	}
	if err := s.refunds.Update(refund); err != nil {
		s.logger.Error("failed to persist FAILED refund status",
			zap.String("refundId", refund.RefundID), zap.Error(err))
	}
}
