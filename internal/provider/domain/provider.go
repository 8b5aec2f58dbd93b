// Package domain declares the external pricing lookup boundary.
package domain

import (
	"context"
	"errors"

	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/basket"
)

// Quote is a validated offer: a price within the item's plausible range and
// the seller identity it came from.
type Quote struct {
	Price  float64
	Seller string
}

// Gateway performs a single provider lookup for one item in one region.
// A nil quote with nil error means the provider answered but no offer fell
// within the item's plausible price range; that call still consumes quota.
// A returned error is transient (network, timeout, non-2xx, bad payload).
type Gateway interface {
	FetchPrice(ctx context.Context, item basket.Item, region string) (*Quote, error)
}

var ErrProviderUnavailable = errors.New("provider_unavailable")
