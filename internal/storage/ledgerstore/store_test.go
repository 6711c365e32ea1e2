package ledgerstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedsWalletOnce(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "assets.json"))
	require.NoError(t, err)

	assets, err := store.Load()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, domain.WalletSymbol, assets[0].Symbol)
	assert.Equal(t, domain.WalletTitle, assets[0].Title)
	assert.NotEmpty(t, assets[0].ID)
	assert.Empty(t, assets[0].Transactions)

	// The seed is persisted: a second load keeps the same wallet id.
	again, err := store.Load()
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, assets[0].ID, again[0].ID)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "assets.json"))
	require.NoError(t, err)

	assets, err := store.Load()
	require.NoError(t, err)

	qty := decimal.RequireFromString("0.123456789012345678")
	assets = append(assets, domain.Asset{
		ID:     "eth-id",
		Symbol: "ETH",
		Title:  "Ethereum",
		Transactions: []domain.Transaction{{
			ID:           "tx-1",
			Date:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Type:         domain.TxBuy,
			Quantity:     qty,
			PricePerUnit: decimal.NewFromInt(100),
		}},
	})
	require.NoError(t, store.Save(assets))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	var eth *domain.Asset
	for i := range loaded {
		if loaded[i].Symbol == "ETH" {
			eth = &loaded[i]
		}
	}
	require.NotNil(t, eth)
	require.Len(t, eth.Transactions, 1)
	assert.True(t, qty.Equal(eth.Transactions[0].Quantity), "quantity precision preserved")
	assert.Equal(t, domain.TxBuy, eth.Transactions[0].Type)
}
