package infra

import "context"

type CartClientInterface interface {
	GetCartByUser(ctx context.Context, userID uint64) (*Cart, error)
	ClearCart(ctx context.Context, userID uint64) error
}

type ProductClientInterface interface {
	// AdjustStock applies a signed quantity delta to a product's stock.
	// Positive restores, negative decrements.
	AdjustStock(ctx context.Context, productID uint64, delta int64) (bool, error)
}

var _ CartClientInterface = (*CartClient)(nil)
var _ ProductClientInterface = (*ProductClient)(nil)
