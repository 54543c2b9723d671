package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"created to paid", OrderStatusCreated, OrderStatusPaid, true},
		{"created to cancelled", OrderStatusCreated, OrderStatusCancelled, true},
		{"created to delivered skips lifecycle", OrderStatusCreated, OrderStatusDelivered, false},
		{"created to shipped skips lifecycle", OrderStatusCreated, OrderStatusShipped, false},
		{"paid to processing", OrderStatusPaid, OrderStatusProcessing, true},
		{"paid to cancelled", OrderStatusPaid, OrderStatusCancelled, true},
		{"processing to shipped", OrderStatusProcessing, OrderStatusShipped, true},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"shipped to cancelled rejected", OrderStatusShipped, OrderStatusCancelled, false},
		{"delivered is terminal", OrderStatusDelivered, OrderStatusCancelled, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPaid, false},
		{"refunded is terminal", OrderStatusRefunded, OrderStatusCreated, false},
		{"no transition reaches refunded", OrderStatusDelivered, OrderStatusRefunded, false},
		{"same status is not a transition", OrderStatusPaid, OrderStatusPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{Status: tt.from}
			err := order.TransitionTo(tt.to)
			if tt.allowed {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, order.Status)
			} else {
				var invErr *InvalidTransitionError
				assert.ErrorAs(t, err, &invErr)
				assert.Equal(t, tt.from, order.Status)
			}
		})
	}
}

func TestOrderFullLifecycle(t *testing.T) {
	order := &Order{Status: OrderStatusCreated}

	for _, next := range []OrderStatus{
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
	} {
		assert.NoError(t, order.TransitionTo(next))
	}

	assert.Equal(t, OrderStatusDelivered, order.Status)
	assert.True(t, order.IsTerminal())
}

func TestRecalculateAmounts(t *testing.T) {
	order := &Order{
		Items: []OrderItem{
			{ProductID: 1, Price: decimal.NewFromFloat(19.99), Quantity: 2},
			{ProductID: 2, Price: decimal.NewFromFloat(4.50), Quantity: 1},
		},
	}

	order.RecalculateAmounts()

	assert.True(t, order.Subtotal.Equal(decimal.NewFromFloat(44.48)), "subtotal %s", order.Subtotal)
	assert.True(t, order.Tax.Equal(decimal.NewFromFloat(2.22)), "tax %s", order.Tax)
	assert.True(t, order.ShippingCost.Equal(decimal.NewFromFloat(5.00)), "shipping %s", order.ShippingCost)

	sum := order.Subtotal.Add(order.Tax).Add(order.ShippingCost)
	assert.True(t, order.TotalAmount.Equal(sum), "total %s != %s", order.TotalAmount, sum)
}

func TestRecalculateAmountsEmptyOrder(t *testing.T) {
	order := &Order{}
	order.RecalculateAmounts()

	assert.True(t, order.Subtotal.IsZero())
	assert.True(t, order.ShippingCost.IsZero())
	assert.True(t, order.TotalAmount.IsZero())
}

func TestIDGenerators(t *testing.T) {
	orderNumber := NewOrderNumber()
	assert.Regexp(t, `^ORD-\d{12}-[0-9A-F]{8}$`, orderNumber)
	assert.NotEqual(t, orderNumber, NewOrderNumber())

	assert.Regexp(t, `^PAY-[0-9A-F]{8}-[0-9A-F]{4}$`, NewPaymentID())
	assert.Regexp(t, `^REF-[0-9A-F]{8}-[0-9A-F]{4}$`, NewRefundID())
	assert.Regexp(t, `^TRK-[0-9A-F]{12}$`, NewTrackingNumber())
}
