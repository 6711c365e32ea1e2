// Package oracle fetches market quotes from external sources. The bulk
// oracle is the primary price feed; the single oracle is a best-effort
// scraper for one symbol that never fails hard.
package oracle

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrRateLimited distinguishes a 429 from other bulk-oracle failures so
// the cache can start its backoff window.
var ErrRateLimited = errors.New("price oracle rate limited")

// RawQuote is one record of the bulk feed. Crypto sell prices are in USD,
// everything else in toman.
type RawQuote struct {
	Symbol     string          `json:"symbol"`
	Title      string          `json:"title"`
	Sell       decimal.Decimal `json:"sell"`
	LastUpdate string          `json:"last_update"`
}

// Bulk fetches all quotes in one call.
type Bulk interface {
	FetchQuotes(ctx context.Context) ([]RawQuote, error)
}

// Single extracts one price from a secondary source. Implementations must
// always yield a usable value, falling back to a default instead of
// propagating extraction failures.
type Single interface {
	FetchPrice(ctx context.Context) (decimal.Decimal, error)
}
