// Package order describes what happens to a cart once it is checked out.
// Orders are not stored; completion is announced to a Publisher.
package order

import (
	"context"

	"github.com/xenking/kart-storefront/internal/domain/cart"
)

// Publisher announces completed orders to downstream consumers.
type Publisher interface {
	PublishCompleted(ctx context.Context, o cart.Order) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, o cart.Order) error

// PublishCompleted calls f.
func (f PublisherFunc) PublishCompleted(ctx context.Context, o cart.Order) error {
	return f(ctx, o)
}
