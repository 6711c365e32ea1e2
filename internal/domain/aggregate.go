package domain

import "github.com/shopspring/decimal"

// AggregatedAsset is the derived view of one asset: current position,
// moving-average cost basis and profit/loss. It is recomputed from the
// ledger on demand and never persisted.
type AggregatedAsset struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Title          string          `json:"title"`
	Category       Category        `json:"type"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	Quantity       decimal.Decimal `json:"total_quantity"`
	CostBasis      decimal.Decimal `json:"cost_basis"`
	BreakEvenPrice decimal.Decimal `json:"break_even_price"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	ProfitLoss     decimal.Decimal `json:"profit_loss"`
	ReturnPct      decimal.Decimal `json:"return_pct"`
	Transactions   []Transaction   `json:"transactions"`
}

// IsWallet reports whether the aggregate is the reserved cash wallet.
func (a *AggregatedAsset) IsWallet() bool {
	return a.Symbol == WalletSymbol
}

// PortfolioValue is the portfolio total in toman: market value of every
// non-wallet position plus the wallet cash balance.
func PortfolioValue(aggregated []AggregatedAsset) decimal.Decimal {
	total := decimal.Zero
	for i := range aggregated {
		if aggregated[i].IsWallet() {
			total = total.Add(aggregated[i].Quantity)
		} else {
			total = total.Add(aggregated[i].CurrentValue)
		}
	}
	return total
}
