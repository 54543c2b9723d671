package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart              = errors.New("cannot create order from an empty cart")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrOrderNotFound          = errors.New("order not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrRefundNotFound         = errors.New("refund not found")
	ErrInvalidState           = errors.New("operation not allowed in current state")
	ErrRefundExceedsAvailable = errors.New("refund amount exceeds available amount")
	ErrInvalidSignature       = errors.New("webhook signature verification failed")
	ErrUpstreamUnavailable    = errors.New("upstream service unavailable")
	ErrStaleAggregate         = errors.New("aggregate was modified concurrently")
)

// InvalidTransitionError names both sides of a rejected status transition.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition from %s to %s", e.Entity, e.From, e.To)
}

// GatewayError wraps a payment processor failure. It is kept distinct from
// local validation errors because the upstream condition may be transient.
type GatewayError struct {
	Code    string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment gateway error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("payment gateway error: %s", e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }
