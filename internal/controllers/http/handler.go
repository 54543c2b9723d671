package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"checkout-service/internal/domain"
	"checkout-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type Handler struct {
	orders   *services.OrderService
	payments *services.PaymentService
	webhooks *services.WebhookReconciler
	rdb      *redis.Client
	logger   *zap.Logger
}

func NewHandler(
	orders *services.OrderService,
	payments *services.PaymentService,
	webhooks *services.WebhookReconciler,
	rdb *redis.Client,
	logger *zap.Logger,
) *Handler {
	return &Handler{orders: orders, payments: payments, webhooks: webhooks, rdb: rdb, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.GetOrderByNumber)
	r.GET("/orders/:id", h.GetOrder)
	r.PUT("/orders/:id/status", h.UpdateOrderStatus)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	r.GET("/users/:userId/orders", h.ListUserOrders)
	r.GET("/admin/orders", h.ListOrdersByStatus)
	r.PUT("/internal/orders/:orderNumber/payment-status", h.ApplyOrderPaymentStatus)

	r.POST("/payments", h.CreatePayment)
	r.GET("/payments", h.GetPaymentByOrder)
	r.GET("/payments/:paymentId", h.GetPayment)
	r.POST("/payments/:paymentId/process", h.ProcessPayment)
	r.POST("/payments/:paymentId/cancel", h.CancelPayment)
	r.PUT("/payments/:paymentId/status", h.UpdatePaymentStatus)
	r.GET("/payments/:paymentId/refunds", h.ListRefunds)
	r.GET("/payments/:paymentId/refunds/available", h.AvailableRefund)
	r.GET("/users/:userId/payments", h.ListUserPayments)

	r.POST("/refunds", h.CreateRefund)
	r.GET("/refunds/:refundId", h.GetRefund)

	r.POST("/webhooks/payment", h.PaymentWebhook)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req.UserID, services.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	h.invalidateUserOrders(req.UserID)
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	order, err := h.orders.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) GetOrderByNumber(c *gin.Context) {
	number := c.Query("number")
	if number == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number query parameter required"})
		return
	}
	order, err := h.orders.GetOrderByNumber(c.Request.Context(), number)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), id, domain.OrderStatus(req.Status), req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidateUserOrders(order.UserID)
	c.JSON(http.StatusOK, order)
}

func (h *Handler) CancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.invalidateUserOrders(order.UserID)
	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListUserOrders(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var status *domain.OrderStatus
	if s := c.Query("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}

	ctx := c.Request.Context()
	cacheKey := userOrdersKey(c.Param("userId"), c.Query("status"))
	if h.rdb != nil {
		if b, err := h.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var cached []domain.Order
			if json.Unmarshal([]byte(b), &cached) == nil {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
	}

	orders, err := h.orders.ListUserOrders(ctx, userID, status)
	if err != nil {
		h.fail(c, err)
		return
	}

	if h.rdb != nil {
		if data, err := json.Marshal(orders); err == nil {
			h.rdb.Set(ctx, cacheKey, data, 10*time.Second)
		}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) ListOrdersByStatus(c *gin.Context) {
	s := c.Query("status")
	if s == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status query parameter required"})
		return
	}
	orders, err := h.orders.ListOrdersByStatus(c.Request.Context(), domain.OrderStatus(s))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ApplyOrderPaymentStatus is the order side of the status push. The outbox
// relay delivers in-process; this endpoint keeps the contract callable by an
// external payment service as well.
func (h *Handler) ApplyOrderPaymentStatus(c *gin.Context) {
	var req OrderPaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.orders.ApplyPaymentStatus(c.Request.Context(), c.Param("orderNumber"), domain.PaymentStatusUpdate{
		PaymentID:      req.PaymentID,
		Status:         req.Status,
		PaymentMethod:  req.PaymentMethod,
		TransactionRef: req.TransactionRef,
		Amount:         req.Amount,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, clientSecret, err := h.payments.CreatePayment(c.Request.Context(), req.UserID, services.CreatePaymentInput{
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Metadata:      req.Metadata,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, CreatePaymentResponse{Payment: payment, ClientSecret: clientSecret})
}

func (h *Handler) ProcessPayment(c *gin.Context) {
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.payments.ProcessPayment(c.Request.Context(), c.Param("paymentId"), req.PaymentMethodID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) CancelPayment(c *gin.Context) {
	payment, err := h.payments.CancelPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.payments.UpdatePaymentStatus(c.Request.Context(), c.Param("paymentId"), domain.PaymentStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) GetPayment(c *gin.Context) {
	payment, err := h.payments.GetPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) GetPaymentByOrder(c *gin.Context) {
	orderID := c.Query("orderId")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId query parameter required"})
		return
	}
	payment, err := h.payments.GetPaymentByOrderID(c.Request.Context(), orderID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) ListUserPayments(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var status *domain.PaymentStatus
	if s := c.Query("status"); s != "" {
		st := domain.PaymentStatus(s)
		status = &st
	}

	payments, err := h.payments.ListUserPayments(c.Request.Context(), userID, status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *Handler) CreateRefund(c *gin.Context) {
	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	refund, err := h.payments.CreateRefund(c.Request.Context(), services.CreateRefundInput{
		PaymentID: req.PaymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
		Metadata:  req.Metadata,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, refund)
}

func (h *Handler) GetRefund(c *gin.Context) {
	refund, err := h.payments.GetRefund(c.Request.Context(), c.Param("refundId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, refund)
}

func (h *Handler) ListRefunds(c *gin.Context) {
	refunds, err := h.payments.ListRefundsByPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, refunds)
}

func (h *Handler) AvailableRefund(c *gin.Context) {
	available, err := h.payments.AvailableRefundAmount(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentId": c.Param("paymentId"), "availableAmount": available})
}

func (h *Handler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	signature := c.GetHeader("Stripe-Signature")

	if err := h.webhooks.HandleWebhook(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		// Non-signature failures return 500 so the gateway redelivers.
		h.logger.Error("webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// userOrdersKey shapes cache entries as orders:user:<id>:<status>, with an
// empty status for the unfiltered listing.
func userOrdersKey(userID, status string) string {
	return "orders:user:" + userID + ":" + status
}

// userOrdersPattern covers every status variant of one user and nothing else;
// the trailing colon keeps user 1 from matching user 12.
func userOrdersPattern(userID uint64) string {
	return "orders:user:" + strconv.FormatUint(userID, 10) + ":*"
}

func (h *Handler) invalidateUserOrders(userID uint64) {
	if h.rdb == nil {
		return
	}
	ctx := context.Background()
	iter := h.rdb.Scan(ctx, 0, userOrdersPattern(userID), 20).Iterator()
	for iter.Next(ctx) {
		h.rdb.Del(ctx, iter.Val())
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	var transitionErr *domain.InvalidTransitionError
	var gatewayErr *domain.GatewayError

	switch {
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrRefundNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrRefundExceedsAvailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrStaleAggregate),
		errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &gatewayErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
