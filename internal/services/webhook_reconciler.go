package services

import (
	"context"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/gateway"
	"checkout-service/internal/infra"
	"checkout-service/internal/repository"

	"go.uber.org/zap"
)

// WebhookReconciler converges local payment state with asynchronous gateway
// notifications. A gateway status change (a 3-D Secure challenge completing
// after the client session ended, for instance) would otherwise never reach
// the stored payment.
type WebhookReconciler struct {
	payments repository.PaymentRepository
	gateway  gateway.Gateway
	dedup    infra.DedupStoreInterface
	pusher   StatusPusher
	logger   *zap.Logger
}

func NewWebhookReconciler(
	payments repository.PaymentRepository,
	gw gateway.Gateway,
	dedup infra.DedupStoreInterface,
	pusher StatusPusher,
	logger *zap.Logger,
) *WebhookReconciler {
	return &WebhookReconciler{
		payments: payments,
		gateway:  gw,
		dedup:    dedup,
		pusher:   pusher,
		logger:   logger,
	}
}

// HandleWebhook verifies the signature, de-duplicates by gateway event id
// and dispatches by event type. Signature failures change no state.
func (r *WebhookReconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := r.gateway.VerifyAndParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	claimed := false
	if r.dedup != nil && event.ID != "" {
		first, err := r.dedup.MarkProcessed(ctx, event.ID)
		if err != nil {
			// A dedup store outage should not drop the event; handlers below
			// are no-ops on already-converged payments anyway.
			r.logger.Warn("webhook dedup store unavailable",
				zap.String("eventId", event.ID), zap.Error(err))
		} else if !first {
			r.logger.Info("duplicate webhook event ignored",
				zap.String("eventId", event.ID), zap.String("type", event.Type))
			return nil
		} else {
			claimed = true
		}
	}

	if err := r.dispatch(ctx, event); err != nil {
		// Release the claim: the HTTP layer answers 500 on this error so the
		// gateway redelivers, and the redelivery must not be seen as a
		// duplicate or the payment never converges.
		if claimed {
			if ferr := r.dedup.Forget(ctx, event.ID); ferr != nil {
				r.logger.Error("failed to release webhook event id",
					zap.String("eventId", event.ID), zap.Error(ferr))
			}
		}
		return err
	}
	return nil
}

func (r *WebhookReconciler) dispatch(ctx context.Context, event *gateway.Event) error {
	switch event.Type {
	case gateway.EventPaymentSucceeded:
		return r.handlePaymentSucceeded(ctx, event)
	case gateway.EventPaymentFailed:
		return r.handlePaymentFailed(ctx, event)
	case gateway.EventChargeRefunded:
		// The refund ledger is authoritative through the synchronous refund
		// path; reconciling amounts from this event would double-count
		// refunds created locally. Acknowledge and move on.
		r.logger.Info("charge.refunded webhook acknowledged",
			zap.String("chargeId", event.ChargeID))
		return nil
	default:
		r.logger.Info("unhandled webhook event type", zap.String("type", event.Type))
		return nil
	}
}

// The gateway is ground truth for intent outcomes, so webhook handlers force
// the stored status instead of running the transition table. A payment is
// never created from a webhook.
func (r *WebhookReconciler) handlePaymentSucceeded(ctx context.Context, event *gateway.Event) error {
	payment, err := r.payments.FindByIntentID(event.IntentID)
	if err != nil {
		return err
	}
	if payment == nil {
		r.logger.Warn("webhook for unknown payment intent",
			zap.String("intentId", event.IntentID))
		return nil
	}
	if payment.Status == domain.PaymentStatusCompleted {
		return nil
	}

	payment.Status = domain.PaymentStatusCompleted
	now := time.Now()
	payment.ProcessedAt = &now
	if event.ChargeID != "" {
		payment.ChargeID = event.ChargeID
		if charge, err := r.gateway.RetrieveCharge(ctx, event.ChargeID); err == nil {
			payment.ReceiptURL = charge.ReceiptURL
		} else {
			r.logger.Warn("failed to retrieve charge from webhook",
				zap.String("chargeId", event.ChargeID), zap.Error(err))
		}
	}
	if err := r.payments.Update(payment); err != nil {
		return err
	}

	r.pusher.Push(ctx, payment.OrderID, domain.PaymentStatusUpdate{
		PaymentID:      payment.PaymentID,
		Status:         domain.MapPaymentStatusToOrder(payment.Status),
		PaymentMethod:  payment.PaymentMethod,
		TransactionRef: payment.ChargeID,
		Amount:         payment.Amount,
	})

	r.logger.Info("payment reconciled to COMPLETED from webhook",
		zap.String("paymentId", payment.PaymentID),
		zap.String("intentId", event.IntentID))
	return nil
}

func (r *WebhookReconciler) handlePaymentFailed(ctx context.Context, event *gateway.Event) error {
	payment, err := r.payments.FindByIntentID(event.IntentID)
	if err != nil {
		return err
	}
	if payment == nil {
		r.logger.Warn("webhook for unknown payment intent",
			zap.String("intentId", event.IntentID))
		return nil
	}
	if payment.Status == domain.PaymentStatusFailed {
		return nil
	}

	payment.Status = domain.PaymentStatusFailed
	payment.ErrorCode = event.ErrorCode
	payment.ErrorMessage = event.ErrorMessage
	if err := r.payments.Update(payment); err != nil {
		return err
	}

	r.pusher.Push(ctx, payment.OrderID, domain.PaymentStatusUpdate{
		PaymentID:     payment.PaymentID,
		Status:        domain.MapPaymentStatusToOrder(payment.Status),
		PaymentMethod: payment.PaymentMethod,
		Amount:        payment.Amount,
	})

	r.logger.Info("payment reconciled to FAILED from webhook",
		zap.String("paymentId", payment.PaymentID),
		zap.String("intentId", event.IntentID))
	return nil
}
