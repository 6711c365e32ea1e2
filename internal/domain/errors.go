package domain

import "github.com/pkg/errors"

var (
	// ErrValidation rejects a mutation before the ledger is touched:
	// missing field, unknown type, or a type illegal for the target asset.
	ErrValidation = errors.New("invalid transaction")

	// ErrInsufficientFunds rejects a buy whose cost exceeds the wallet's
	// running balance.
	ErrInsufficientFunds = errors.New("insufficient wallet funds")

	// ErrNotFound signals an unknown transaction id.
	ErrNotFound = errors.New("transaction not found")
)
