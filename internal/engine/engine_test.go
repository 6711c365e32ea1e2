package engine

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/stretchr/testify/require"
)

func tx(t domain.TxType, day int, qty, price string) domain.Transaction {
	return domain.Transaction{
		ID:           uuid.NewString(),
		Date:         time.Date(2026, 1, day, 12, 0, 0, 0, time.UTC),
		Type:         t,
		Quantity:     decimal.RequireFromString(qty),
		PricePerUnit: decimal.RequireFromString(price),
	}
}

func asset(symbol string, txs ...domain.Transaction) domain.Asset {
	return domain.Asset{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Title:        symbol,
		Transactions: txs,
	}
}

func prices(pairs map[string]string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(pairs))
	for sym, p := range pairs {
		out[sym] = decimal.RequireFromString(p)
	}
	return out
}

func TestAggregateBuyThenSell(t *testing.T) {
	// buy 10 @10, sell 4 @20: cost basis shrinks proportionally,
	// break-even stays at the average buy price.
	assets := []domain.Asset{asset("ETH",
		tx(domain.TxBuy, 1, "10", "10"),
		tx(domain.TxSell, 2, "4", "20"),
	)}

	got := Aggregate(assets, prices(map[string]string{"ETH": "20"}))
	require.Len(t, got, 1)

	agg := got[0]
	require.True(t, agg.Quantity.Equal(decimal.NewFromInt(6)))
	require.True(t, agg.CostBasis.Equal(decimal.NewFromInt(60)), "cost basis: %s", agg.CostBasis)
	require.True(t, agg.BreakEvenPrice.Equal(decimal.NewFromInt(10)))
	require.True(t, agg.CurrentValue.Equal(decimal.NewFromInt(120)))
	require.True(t, agg.ProfitLoss.Equal(decimal.NewFromInt(60)))
	require.True(t, agg.ReturnPct.Equal(decimal.NewFromInt(100)))
}

func TestAggregateSaveProfitReducesBasisLikeSell(t *testing.T) {
	sell := []domain.Asset{asset("ETH",
		tx(domain.TxBuy, 1, "10", "10"),
		tx(domain.TxSell, 2, "4", "20"),
	)}
	save := []domain.Asset{asset("ETH",
		tx(domain.TxBuy, 1, "10", "10"),
		tx(domain.TxSaveProfit, 2, "4", "20"),
	)}

	p := prices(map[string]string{"ETH": "20"})
	a, b := Aggregate(sell, p)[0], Aggregate(save, p)[0]
	require.True(t, a.CostBasis.Equal(b.CostBasis))
	require.True(t, a.Quantity.Equal(b.Quantity))
	require.True(t, a.BreakEvenPrice.Equal(b.BreakEvenPrice))
}

func TestAggregateCostBasisBounds(t *testing.T) {
	// For any buy/sell sequence that never oversells, the cost basis stays
	// within [0, total bought cost] and break-even within the buy price range.
	assets := []domain.Asset{asset("BTC",
		tx(domain.TxBuy, 1, "2", "100"),
		tx(domain.TxBuy, 2, "3", "140"),
		tx(domain.TxSell, 3, "1", "200"),
		tx(domain.TxBuy, 4, "1", "120"),
		tx(domain.TxSell, 5, "2", "90"),
	)}

	agg := Aggregate(assets, prices(map[string]string{"BTC": "150"}))[0]

	totalBought := decimal.RequireFromString("740") // 2*100 + 3*140 + 1*120
	require.True(t, agg.CostBasis.GreaterThanOrEqual(decimal.Zero))
	require.True(t, agg.CostBasis.LessThanOrEqual(totalBought))
	require.True(t, agg.BreakEvenPrice.GreaterThanOrEqual(decimal.NewFromInt(100)))
	require.True(t, agg.BreakEvenPrice.LessThanOrEqual(decimal.NewFromInt(140)))
}

func TestAggregateOversellPermitted(t *testing.T) {
	assets := []domain.Asset{asset("DOGE",
		tx(domain.TxBuy, 1, "5", "10"),
		tx(domain.TxSell, 2, "8", "12"),
	)}

	agg := Aggregate(assets, prices(map[string]string{"DOGE": "12"}))[0]
	require.True(t, agg.Quantity.Equal(decimal.NewFromInt(-3)))
	// Break-even is zero once no bought quantity remains.
	require.True(t, agg.BreakEvenPrice.Equal(decimal.Zero))
}

func TestAggregateSellBeforeAnyBuySkipsBasisReduction(t *testing.T) {
	assets := []domain.Asset{asset("XRP",
		tx(domain.TxSell, 1, "3", "10"),
	)}

	agg := Aggregate(assets, prices(map[string]string{"XRP": "10"}))[0]
	require.True(t, agg.Quantity.Equal(decimal.NewFromInt(-3)))
	require.True(t, agg.CostBasis.Equal(decimal.Zero))
}

func TestAggregateUnknownSymbolValuedAtZero(t *testing.T) {
	assets := []domain.Asset{asset("OBSCURE",
		tx(domain.TxBuy, 1, "4", "25"),
	)}

	agg := Aggregate(assets, nil)[0]
	require.True(t, agg.CurrentPrice.IsZero())
	require.True(t, agg.CurrentValue.IsZero())
	require.True(t, agg.CostBasis.Equal(decimal.NewFromInt(100)))
	require.True(t, agg.ProfitLoss.Equal(decimal.NewFromInt(-100)))
}

func TestAggregateWallet(t *testing.T) {
	wallet := asset(domain.WalletSymbol,
		tx(domain.TxDeposit, 1, "500", "1"),
		tx(domain.TxWithdrawal, 2, "120", "1"),
	)

	agg := Aggregate([]domain.Asset{wallet}, nil)[0]
	require.True(t, agg.Quantity.Equal(decimal.NewFromInt(380)))
	require.True(t, agg.CostBasis.Equal(decimal.NewFromInt(380)))
	require.True(t, agg.ProfitLoss.IsZero())
	require.True(t, agg.ReturnPct.IsZero())
	require.Equal(t, domain.CategoryWallet, agg.Category)
}

func TestAggregateSortsByDateBeforePass(t *testing.T) {
	// The sell is listed first but dated after the buy; the pass must see
	// the buy first so the basis reduction applies.
	assets := []domain.Asset{asset("ETH",
		tx(domain.TxSell, 5, "4", "20"),
		tx(domain.TxBuy, 1, "10", "10"),
	)}

	agg := Aggregate(assets, prices(map[string]string{"ETH": "20"}))[0]
	require.True(t, agg.CostBasis.Equal(decimal.NewFromInt(60)))
}

func TestAggregateIdempotent(t *testing.T) {
	assets := []domain.Asset{
		asset("ETH", tx(domain.TxBuy, 1, "10", "10"), tx(domain.TxSell, 3, "4", "20")),
		asset(domain.WalletSymbol, tx(domain.TxDeposit, 1, "1000", "1")),
	}
	p := prices(map[string]string{"ETH": "20"})

	first := Aggregate(assets, p)
	second := Aggregate(assets, p)
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.True(t, first[i].CostBasis.Equal(second[i].CostBasis))
		require.True(t, first[i].Quantity.Equal(second[i].Quantity))
		require.True(t, first[i].CurrentValue.Equal(second[i].CurrentValue))
		require.True(t, first[i].ReturnPct.Equal(second[i].ReturnPct))
	}
}

func TestPortfolioValue(t *testing.T) {
	assets := []domain.Asset{
		asset("ETH", tx(domain.TxBuy, 1, "2", "100")),
		asset(domain.WalletSymbol, tx(domain.TxDeposit, 1, "300", "1")),
	}
	agg := Aggregate(assets, prices(map[string]string{"ETH": "150"}))

	total := domain.PortfolioValue(agg)
	require.True(t, total.Equal(decimal.NewFromInt(600)), "got %s", total) // 2*150 + 300
}
