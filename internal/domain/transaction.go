package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType is the kind of ledger transaction.
type TxType string

const (
	TxBuy        TxType = "buy"
	TxSell       TxType = "sell"
	TxSaveProfit TxType = "save_profit"
	TxDeposit    TxType = "deposit"
	TxWithdrawal TxType = "withdrawal"
)

// Valid reports whether t is one of the known transaction types.
func (t TxType) Valid() bool {
	switch t {
	case TxBuy, TxSell, TxSaveProfit, TxDeposit, TxWithdrawal:
		return true
	}
	return false
}

// IsTrade reports whether t requires a price per unit and a reciprocal
// wallet posting. Trades are legal only on non-wallet assets.
func (t TxType) IsTrade() bool {
	return t == TxBuy || t == TxSell || t == TxSaveProfit
}

// IsCashFlow reports whether t moves cash directly. Cash flows are legal
// only on the wallet asset.
func (t TxType) IsCashFlow() bool {
	return t == TxDeposit || t == TxWithdrawal
}

// Transaction is a single append-only ledger entry embedded in an Asset.
// Quantity and PricePerUnit are exact decimals and serialize as strings.
type Transaction struct {
	ID           string          `json:"transaction_id"`
	Date         time.Time       `json:"date"`
	Type         TxType          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	Category     string          `json:"category,omitempty"`
	Comment      string          `json:"comment,omitempty"`

	// LinkedTx holds the id of the counterpart entry of a reciprocal
	// posting: a trade points at its auto-generated wallet entry and the
	// wallet entry points back at the trade. Empty on ledgers written
	// before the link existed.
	LinkedTx string `json:"linked_tx,omitempty"`
}

// Cost is Quantity × PricePerUnit, the cash effect of a trade.
func (t Transaction) Cost() decimal.Decimal {
	return t.Quantity.Mul(t.PricePerUnit)
}
