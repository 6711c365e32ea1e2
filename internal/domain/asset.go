package domain

import "github.com/shopspring/decimal"

// WalletSymbol is the reserved cash-wallet asset. It always exists and is
// never removed, even with an empty transaction list.
const WalletSymbol = "RIAL_WALLET"

// WalletTitle is the display title of the reserved wallet asset.
const WalletTitle = "کیف پول ریالی"

// Asset groups all transactions of one holding (one symbol).
type Asset struct {
	ID           string        `json:"id"`
	Symbol       string        `json:"symbol"`
	Title        string        `json:"title"`
	Transactions []Transaction `json:"transactions"`
}

// IsWallet reports whether the asset is the reserved cash wallet.
func (a *Asset) IsWallet() bool {
	return a.Symbol == WalletSymbol
}

// WalletBalance computes the wallet's running cash balance from its own
// ledger: deposits minus withdrawals. Returns zero when no wallet exists.
func WalletBalance(assets []Asset) decimal.Decimal {
	balance := decimal.Zero
	for i := range assets {
		if !assets[i].IsWallet() {
			continue
		}
		for _, tx := range assets[i].Transactions {
			switch tx.Type {
			case TxDeposit:
				balance = balance.Add(tx.Quantity)
			case TxWithdrawal:
				balance = balance.Sub(tx.Quantity)
			}
		}
	}
	return balance
}
