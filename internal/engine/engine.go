// Package engine turns the raw transaction ledger into aggregated
// positions with a moving-average cost basis.
package engine

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Aggregate derives the current position of every asset from its
// transactions and the given symbol → toman price map. It is a pure
// function of its inputs: the same ledger and quotes always produce the
// same output. Symbols without a quote are valued at zero, and an
// oversold position simply goes negative.
func Aggregate(assets []domain.Asset, prices map[string]decimal.Decimal) []domain.AggregatedAsset {
	aggregated := make([]domain.AggregatedAsset, 0, len(assets))
	for i := range assets {
		aggregated = append(aggregated, aggregateAsset(&assets[i], prices))
	}
	return aggregated
}

func aggregateAsset(asset *domain.Asset, prices map[string]decimal.Decimal) domain.AggregatedAsset {
	txs := make([]domain.Transaction, len(asset.Transactions))
	copy(txs, asset.Transactions)
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})

	var (
		totalQuantity  = decimal.Zero
		totalCost      = decimal.Zero
		buyQuantitySum = decimal.Zero
		buyCostSum     = decimal.Zero
	)

	for _, tx := range txs {
		switch tx.Type {
		case domain.TxBuy:
			cost := tx.Cost()
			totalQuantity = totalQuantity.Add(tx.Quantity)
			totalCost = totalCost.Add(cost)
			buyQuantitySum = buyQuantitySum.Add(tx.Quantity)
			buyCostSum = buyCostSum.Add(cost)

		case domain.TxSell, domain.TxSaveProfit:
			// Reduce retained cost proportionally to the fraction of the
			// open quantity liquidated. The ratio is undefined when no
			// bought quantity remains, so the reduction is skipped.
			if buyQuantitySum.IsPositive() {
				reduction := tx.Quantity.Div(buyQuantitySum).Mul(buyCostSum)
				buyCostSum = buyCostSum.Sub(reduction)
			}
			buyQuantitySum = buyQuantitySum.Sub(tx.Quantity)
			totalQuantity = totalQuantity.Sub(tx.Quantity)
			totalCost = totalCost.Sub(tx.Cost())

		case domain.TxDeposit:
			if asset.IsWallet() {
				totalQuantity = totalQuantity.Add(tx.Quantity)
			}
		case domain.TxWithdrawal:
			if asset.IsWallet() {
				totalQuantity = totalQuantity.Sub(tx.Quantity)
			}
		}
	}

	currentPrice := decimal.Zero
	if p, ok := prices[asset.Symbol]; ok {
		currentPrice = p
	}

	breakEven := decimal.Zero
	if buyQuantitySum.IsPositive() {
		breakEven = buyCostSum.Div(buyQuantitySum)
	}

	currentValue := totalQuantity.Mul(currentPrice)

	var costBasis, profitLoss, returnPct decimal.Decimal
	if asset.IsWallet() {
		costBasis = totalQuantity
		profitLoss = decimal.Zero
		returnPct = decimal.Zero
	} else {
		costBasis = buyCostSum
		profitLoss = currentValue.Sub(costBasis)
		returnPct = decimal.Zero
		if costBasis.IsPositive() {
			returnPct = profitLoss.Div(costBasis).Mul(hundred)
		}
	}

	category := domain.CategoryWallet
	if !asset.IsWallet() {
		if cat, ok := domain.CategoryOf(asset.Symbol); ok {
			category = cat
		} else {
			category = domain.CategoryStock
		}
	}

	return domain.AggregatedAsset{
		ID:             asset.ID,
		Symbol:         asset.Symbol,
		Title:          asset.Title,
		Category:       category,
		CurrentPrice:   currentPrice,
		Quantity:       totalQuantity,
		CostBasis:      costBasis,
		BreakEvenPrice: breakEven,
		CurrentValue:   currentValue,
		ProfitLoss:     profitLoss,
		ReturnPct:      returnPct,
		Transactions:   txs,
	}
}
