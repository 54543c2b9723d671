package services

import (
	"context"

	"checkout-service/internal/domain"
	"checkout-service/internal/infra"
	rabbit "checkout-service/internal/infra/rabbitmq"
	"checkout-service/internal/repository"

	"go.uber.org/zap"
)

type CreateOrderInput struct {
	ShippingAddress domain.OrderAddress
	BillingAddress  *domain.OrderAddress
	Notes           string
}

type OrderService struct {
	repo          repository.OrderRepository
	cartClient    infra.CartClientInterface
	productClient infra.ProductClientInterface
	publisher     rabbit.PublisherInterface
	logger        *zap.Logger
}

func NewOrderService(
	repo repository.OrderRepository,
	cartClient infra.CartClientInterface,
	productClient infra.ProductClientInterface,
	publisher rabbit.PublisherInterface,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:          repo,
		cartClient:    cartClient,
		productClient: productClient,
		publisher:     publisher,
		logger:        logger,
	}
}

// CreateOrder snapshots the user's cart into a new order. Item prices are
// captured at creation time and never change afterwards. The cart clear is
// best-effort; its failure does not fail the order.
func (s *OrderService) CreateOrder(ctx context.Context, userID uint64, input CreateOrderInput) (*domain.Order, error) {
	cart, err := s.cartClient.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	order := &domain.Order{
		OrderNumber:     domain.NewOrderNumber(),
		UserID:          userID,
		Status:          domain.OrderStatusCreated,
		Notes:           input.Notes,
		ShippingAddress: input.ShippingAddress,
		BillingAddress:  billing,
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Price:        item.Price,
			Quantity:     item.Quantity,
		})
	}
	order.RecalculateAmounts()

	if err := s.repo.Save(order); err != nil {
		return nil, err
	}

	if err := s.cartClient.ClearCart(ctx, userID); err != nil {
		s.logger.Warn("failed to clear cart after order creation",
			zap.Uint64("userId", userID),
			zap.String("orderNumber", order.OrderNumber),
			zap.Error(err))
	}

	go s.publishOrderCreated(context.Background(), order)

	return order, nil
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *domain.Order) {
	evt := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, "order.created", evt); err != nil {
		s.logger.Warn("failed to publish order.created event",
			zap.String("orderNumber", order.OrderNumber), zap.Error(err))
	}
}

func (s *OrderService) GetOrderByID(ctx context.Context, id uint64) (*domain.Order, error) {
	o, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	o, err := s.repo.FindByNumber(orderNumber)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uint64, status *domain.OrderStatus) ([]domain.Order, error) {
	if status != nil {
		return s.repo.FindByUserAndStatus(userID, *status)
	}
	return s.repo.FindByUser(userID)
}

func (s *OrderService) ListOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return s.repo.FindByStatus(status)
}

// UpdateStatus applies a validated lifecycle transition. Entering SHIPPED
// assigns a tracking number when the order does not have one yet.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint64, next domain.OrderStatus, notes string) (*domain.Order, error) {
	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := order.TransitionTo(next); err != nil {
		return nil, err
	}
	if notes != "" {
		order.Notes = notes
	}
	if next == domain.OrderStatusShipped && order.TrackingNumber == "" {
		order.TrackingNumber = domain.NewTrackingNumber()
	}

	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		zap.String("orderNumber", order.OrderNumber),
		zap.String("status", string(next)))
	return order, nil
}

// CancelOrder rejects SHIPPED and DELIVERED orders. A PAID or PROCESSING
// order has its line items restored to stock before the status flips; stock
// restoration failures are logged and swallowed.
func (s *OrderService) CancelOrder(ctx context.Context, id uint64, reason string) (*domain.Order, error) {
	order, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == domain.OrderStatusPaid || order.Status == domain.OrderStatusProcessing {
		s.adjustStockForItems(ctx, order, 1)
	}

	if err := order.TransitionTo(domain.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if reason != "" {
		order.Notes = reason
	}

	if err := s.repo.Update(order); err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled",
		zap.String("orderNumber", order.OrderNumber),
		zap.String("reason", reason))
	return order, nil
}

// ApplyPaymentStatus is the push receiver for the payment side. It mirrors
// the order-facing payment status and, on the first PAID signal, transitions
// the order and decrements stock. Replays of the same status are no-ops, so
// at-least-once delivery from the outbox cannot double-apply side effects.
func (s *OrderService) ApplyPaymentStatus(ctx context.Context, orderNumber string, update domain.PaymentStatusUpdate) error {
	order, err := s.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}

	if order.PaymentStatus == update.Status {
		return nil
	}
	order.PaymentStatus = update.Status
	if update.PaymentMethod != "" {
		order.PaymentMethod = update.PaymentMethod
	}

	if update.Status == "PAID" && order.Status == domain.OrderStatusCreated {
		if err := order.TransitionTo(domain.OrderStatusPaid); err != nil {
			return err
		}
		s.adjustStockForItems(ctx, order, -1)
	}

	if err := s.repo.Update(order); err != nil {
		return err
	}

	s.logger.Info("payment status applied to order",
		zap.String("orderNumber", orderNumber),
		zap.String("paymentId", update.PaymentID),
		zap.String("paymentStatus", update.Status))
	return nil
}

func (s *OrderService) adjustStockForItems(ctx context.Context, order *domain.Order, sign int64) {
	for _, item := range order.Items {
		ok, err := s.productClient.AdjustStock(ctx, item.ProductID, sign*item.Quantity)
		if err != nil || !ok {
			s.logger.Warn("stock adjustment failed",
				zap.String("orderNumber", order.OrderNumber),
				zap.Uint64("productId", item.ProductID),
				zap.Int64("delta", sign*item.Quantity),
				zap.Error(err))
		}
	}
}
