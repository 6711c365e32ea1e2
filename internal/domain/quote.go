package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies assets for quote grouping.
type Category string

const (
	CategoryCrypto   Category = "crypto"
	CategoryGoldCoin Category = "gold_coin"
	CategoryCurrency Category = "currency"
	CategoryStock    Category = "stock"
	CategoryWallet   Category = "wallet"
)

// Categories lists all quote board categories in display order.
var Categories = []Category{CategoryCrypto, CategoryGoldCoin, CategoryCurrency, CategoryStock}

var symbolCategories = map[string]Category{}

func init() {
	register := func(cat Category, symbols ...string) {
		for _, s := range symbols {
			symbolCategories[s] = cat
		}
	}
	register(CategoryCrypto,
		"USDT", "BITCOIN", "XRP", "ETH", "BNB", "TRX", "BCH", "DOGE", "LTC", "SOL",
		"XMR", "DASH", "EOS", "TON", "DOT", "ADA", "AVAX", "FIL", "XLM", "SHIB",
		"VET", "LINK", "MATIC", "ATOM", "UNI")
	register(CategoryGoldCoin,
		"AYAR", "EMAMI1", "GOL18", "OUNCE", "MITHQAL", "AZADI1_4", "AZADI1_2",
		"AZADI1", "AZADI1G")
	register(CategoryCurrency,
		"USD", "EUR", "GBP", "AED", "CNY", "TRY", "RUB", "CAD", "CHF", "OMR",
		"NOK", "AZN", "DKK", "MYR", "AFN", "KWD", "SEK", "AUD", "THB", "SGD",
		"JPY", "MEXUSD")
}

// CategoryOf returns the quote category of a symbol. The wallet maps to
// CategoryWallet; unknown symbols report ok=false.
func CategoryOf(symbol string) (Category, bool) {
	if symbol == WalletSymbol {
		return CategoryWallet, true
	}
	cat, ok := symbolCategories[symbol]
	return cat, ok
}

// Quote is one asset quote in the local currency (toman).
type Quote struct {
	Symbol     string          `json:"symbol"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	USDPrice   decimal.Decimal `json:"usd_price"`
	LastUpdate string          `json:"last_update,omitempty"`
	Source     string          `json:"source,omitempty"`
}

// QuoteBoard holds the last known quotes grouped by category, plus cache
// metadata. Advisory carries a degradation note when the board was served
// from a stale or fallback source; it is never persisted.
type QuoteBoard struct {
	Categories  map[Category][]Quote `json:"categorized"`
	LastUpdated time.Time            `json:"last_updated,omitempty"`
	Advisory    string               `json:"-"`
}

// Empty reports whether the board carries no quotes at all.
func (b QuoteBoard) Empty() bool {
	for _, quotes := range b.Categories {
		if len(quotes) > 0 {
			return false
		}
	}
	return true
}

// PriceOf returns the toman price of a symbol. The wallet is always 1.
func (b QuoteBoard) PriceOf(symbol string) (decimal.Decimal, bool) {
	if symbol == WalletSymbol {
		return decimal.NewFromInt(1), true
	}
	for _, quotes := range b.Categories {
		for _, q := range quotes {
			if q.Symbol == symbol {
				return q.Price, true
			}
		}
	}
	return decimal.Zero, false
}

// TitleOf returns the display title a quote carries for a symbol, falling
// back to the symbol itself when unquoted.
func (b QuoteBoard) TitleOf(symbol string) string {
	for _, quotes := range b.Categories {
		for _, q := range quotes {
			if q.Symbol == symbol {
				return q.Title
			}
		}
	}
	return symbol
}

// PriceMap flattens the board into symbol → toman price, including the
// wallet at 1. This is the engine's quote input.
func (b QuoteBoard) PriceMap() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	for _, quotes := range b.Categories {
		for _, q := range quotes {
			prices[q.Symbol] = q.Price
		}
	}
	prices[WalletSymbol] = decimal.NewFromInt(1)
	return prices
}
