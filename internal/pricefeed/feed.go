// Package pricefeed looks up the exchange rate used to display an order
// total in an external asset.
package pricefeed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable means no trustworthy rate could be obtained. Callers must
// fail instead of substituting a default.
var ErrUnavailable = errors.New("price feed unavailable")

type Feed interface {
	Rate(ctx context.Context, asset string) (decimal.Decimal, error)
}

type FeedFunc func(ctx context.Context, asset string) (decimal.Decimal, error)

func (f FeedFunc) Rate(ctx context.Context, asset string) (decimal.Decimal, error) {
	return f(ctx, asset)
}
