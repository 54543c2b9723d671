package services

import (
	"context"

	"checkout-service/internal/domain"
	"checkout-service/internal/outbox"

	"go.uber.org/zap"
)

// OrderStatusApplier is the order aggregate's push receiver.
type OrderStatusApplier interface {
	ApplyPaymentStatus(ctx context.Context, orderNumber string, update domain.PaymentStatusUpdate) error
}

// Coordinator is the glue between the payment and order aggregates. Pushes
// go through a durable outbox drained by the relay; if even the enqueue
// fails, a direct best-effort delivery keeps the signal from vanishing.
// Failures are logged, never surfaced to the payment operation that
// triggered the push — the aggregates may be transiently inconsistent.
type Coordinator struct {
	store  outbox.Store
	orders OrderStatusApplier
	logger *zap.Logger
}

var _ StatusPusher = (*Coordinator)(nil)
var _ outbox.Deliverer = (*Coordinator)(nil)

func NewCoordinator(store outbox.Store, orders OrderStatusApplier, logger *zap.Logger) *Coordinator {
	return &Coordinator{store: store, orders: orders, logger: logger}
}

func (c *Coordinator) Push(ctx context.Context, orderID string, update domain.PaymentStatusUpdate) {
	if err := c.store.Enqueue(orderID, update); err != nil {
		c.logger.Error("failed to enqueue payment status push, attempting direct delivery",
			zap.String("orderId", orderID),
			zap.String("paymentId", update.PaymentID),
			zap.Error(err))
		if err := c.orders.ApplyPaymentStatus(ctx, orderID, update); err != nil {
			c.logger.Error("direct payment status push failed",
				zap.String("orderId", orderID),
				zap.String("paymentId", update.PaymentID),
				zap.Error(err))
		}
	}
}

// Deliver is called by the outbox relay for each queued push.
func (c *Coordinator) Deliver(ctx context.Context, orderID string, update domain.PaymentStatusUpdate) error {
	return c.orders.ApplyPaymentStatus(ctx, orderID, update)
}
