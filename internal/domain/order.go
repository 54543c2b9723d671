package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusCreated    OrderStatus = "CREATED"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// orderTransitions is the closed transition table for the order lifecycle.
// DELIVERED, CANCELLED and REFUNDED are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:    {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

func IsValidOrderTransition(current, next OrderStatus) bool {
	for _, s := range orderTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

var (
	taxRate      = decimal.NewFromFloat(0.05)
	flatShipping = decimal.NewFromFloat(5.00)
)

type Order struct {
	ID           uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber  string          `json:"orderNumber" gorm:"uniqueIndex;size:64;not null"`
	UserID       uint64          `json:"userId" gorm:"not null;index"`
	Status       OrderStatus     `json:"status" gorm:"size:32;not null;index"`
	Subtotal     decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Tax          decimal.Decimal `json:"tax" gorm:"type:decimal(10,2);not null"`
	ShippingCost decimal.Decimal `json:"shippingCost" gorm:"type:decimal(10,2);not null"`
	TotalAmount  decimal.Decimal `json:"totalAmount" gorm:"type:decimal(10,2);not null"`

	PaymentMethod  string `json:"paymentMethod" gorm:"size:32"`
	PaymentStatus  string `json:"paymentStatus" gorm:"size:32"`
	TrackingNumber string `json:"trackingNumber" gorm:"size:64"`
	Notes          string `json:"notes" gorm:"type:text"`

	Items           []OrderItem  `json:"items" gorm:"constraint:OnDelete:CASCADE;foreignKey:OrderID"`
	ShippingAddress OrderAddress `json:"shippingAddress" gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  OrderAddress `json:"billingAddress" gorm:"embedded;embeddedPrefix:billing_"`

	Version   uint64    `json:"-" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

type OrderItem struct {
	ID           uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID      uint64          `json:"-" gorm:"not null;index"`
	ProductID    uint64          `json:"productId" gorm:"not null"`
	ProductName  string          `json:"productName" gorm:"size:255;not null"`
	ProductImage string          `json:"productImage" gorm:"size:512"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity     int64           `json:"quantity" gorm:"not null"`
}

// Subtotal is the captured unit price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Quantity))
}

// OrderAddress is immutable once set on an order.
type OrderAddress struct {
	FullName     string `json:"fullName" gorm:"size:255"`
	AddressLine1 string `json:"addressLine1" gorm:"size:255"`
	AddressLine2 string `json:"addressLine2" gorm:"size:255"`
	City         string `json:"city" gorm:"size:128"`
	State        string `json:"state" gorm:"size:128"`
	PostalCode   string `json:"postalCode" gorm:"size:32"`
	Country      string `json:"country" gorm:"size:64"`
	PhoneNumber  string `json:"phoneNumber" gorm:"size:32"`
}

// RecalculateAmounts re-derives subtotal, tax, shipping and total from the
// item lines. Totals are never accepted from external input.
func (o *Order) RecalculateAmounts() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Subtotal())
	}
	o.Subtotal = subtotal
	o.Tax = subtotal.Mul(taxRate).Round(2)
	if len(o.Items) == 0 {
		o.ShippingCost = decimal.Zero
	} else {
		o.ShippingCost = flatShipping
	}
	o.TotalAmount = o.Subtotal.Add(o.Tax).Add(o.ShippingCost)
}

// TransitionTo validates the requested transition against the table and
// applies it. The caller persists the order afterwards.
func (o *Order) TransitionTo(next OrderStatus) error {
	if !IsValidOrderTransition(o.Status, next) {
		return &InvalidTransitionError{Entity: "order", From: string(o.Status), To: string(next)}
	}
	o.Status = next
	return nil
}

func (o *Order) IsTerminal() bool {
	return len(orderTransitions[o.Status]) == 0
}
