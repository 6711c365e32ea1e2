package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout keys all historical series by calendar day.
const DateLayout = "2006-01-02"

const (
	// ComparisonRetention caps the macro-equivalence series.
	ComparisonRetention = 365
	// DailyProfitRetention caps the day-over-day profit series.
	DailyProfitRetention = 90
)

// ChartSnapshot is one point of the total-value history. One entry per
// calendar day, unbounded retention, same-day writes overwrite.
type ChartSnapshot struct {
	Date       string          `json:"date"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// ComparisonSnapshot records the portfolio value alongside its USD and
// gold equivalents for one day.
type ComparisonSnapshot struct {
	Date                string          `json:"date"`
	TotalValue          decimal.Decimal `json:"total_value_toman"`
	USDPrice            decimal.Decimal `json:"usd_price"`
	GoldPricePerGram    decimal.Decimal `json:"gold_price_per_gram"`
	EquivalentUSD       decimal.Decimal `json:"equivalent_usd"`
	EquivalentGoldGrams decimal.Decimal `json:"equivalent_gold_grams"`
}

// DailyProfitSnapshot records total and day-over-day profit for one day.
// YesterdayValue is nil when no earlier entry existed to compare against.
type DailyProfitSnapshot struct {
	Date               string           `json:"date"`
	TotalValue         decimal.Decimal  `json:"total_value"`
	TotalProfit        decimal.Decimal  `json:"total_profit"`
	ProfitPercent      decimal.Decimal  `json:"profit_percent"`
	DailyChange        decimal.Decimal  `json:"daily_change"`
	DailyChangePercent decimal.Decimal  `json:"daily_change_percent"`
	AssetCount         int              `json:"asset_count"`
	YesterdayValue     *decimal.Decimal `json:"yesterday_value"`
	Timestamp          time.Time        `json:"timestamp"`
}

// ValueChangeReport compares the two most recent comparison snapshots.
type ValueChangeReport struct {
	Date                string          `json:"date"`
	TotalValue          decimal.Decimal `json:"total_value_toman"`
	USDPrice            decimal.Decimal `json:"usd_price"`
	GoldPricePerGram    decimal.Decimal `json:"gold_price_per_gram"`
	EquivalentUSD       decimal.Decimal `json:"equivalent_usd"`
	EquivalentGoldGrams decimal.Decimal `json:"equivalent_gold_grams"`
	USDChange           decimal.Decimal `json:"usd_change"`
	GoldChange          decimal.Decimal `json:"gold_change"`
	USDChangePercent    decimal.Decimal `json:"usd_change_percent"`
	GoldChangePercent   decimal.Decimal `json:"gold_change_percent"`
}
