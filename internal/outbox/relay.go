package outbox

import (
	"context"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra/rabbitmq"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deliverer applies a payment-status update to the order aggregate.
type Deliverer interface {
	Deliver(ctx context.Context, orderID string, update domain.PaymentStatusUpdate) error
}

// Relay drains pending outbox rows and pushes them into the order side.
// Delivery is at-least-once: the order aggregate tolerates replays.
type Relay struct {
	store       Store
	deliverer   Deliverer
	publisher   rabbitmq.PublisherInterface
	logger      *zap.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
	concurrency int
}

func NewRelay(store Store, deliverer Deliverer, publisher rabbitmq.PublisherInterface, logger *zap.Logger) *Relay {
	return &Relay{
		store:       store,
		deliverer:   deliverer,
		publisher:   publisher,
		logger:      logger,
		interval:    2 * time.Second,
		batchSize:   50,
		maxAttempts: 5,
		concurrency: 4,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.Drain(ctx); err != nil {
				r.logger.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// Drain processes one batch of pending messages.
func (r *Relay) Drain(ctx context.Context) error {
	pending, err := r.store.FetchPending(r.batchSize)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, msg := range pending {
		msg := msg
		g.Go(func() error {
			r.dispatch(gctx, msg)
			return nil
		})
	}
	return g.Wait()
}

func (r *Relay) dispatch(ctx context.Context, msg Message) {
	update, err := msg.Update()
	if err != nil {
		r.logger.Error("outbox message has malformed payload",
			zap.Uint64("messageId", msg.ID), zap.Error(err))
		if err := r.store.RecordAttempt(msg.ID, msg.Attempts+1, true); err != nil {
			r.logger.Error("failed to mark outbox message", zap.Uint64("messageId", msg.ID), zap.Error(err))
		}
		return
	}

	if err := r.deliverer.Deliver(ctx, msg.OrderID, update); err != nil {
		attempts := msg.Attempts + 1
		exhausted := attempts >= r.maxAttempts
		r.logger.Warn("payment status push failed",
			zap.String("orderId", msg.OrderID),
			zap.String("paymentId", update.PaymentID),
			zap.Int("attempts", attempts),
			zap.Bool("exhausted", exhausted),
			zap.Error(err))
		if err := r.store.RecordAttempt(msg.ID, attempts, exhausted); err != nil {
			r.logger.Error("failed to record outbox attempt", zap.Uint64("messageId", msg.ID), zap.Error(err))
		}
		return
	}

	if err := r.store.MarkDelivered(msg.ID); err != nil {
		r.logger.Error("failed to mark outbox message delivered",
			zap.Uint64("messageId", msg.ID), zap.Error(err))
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, "payment.status", map[string]any{
			"orderId":        msg.OrderID,
			"paymentId":      update.PaymentID,
			"status":         update.Status,
			"transactionRef": update.TransactionRef,
			"amount":         update.Amount,
		}); err != nil {
			r.logger.Warn("failed to publish payment.status event", zap.Error(err))
		}
	}
}
