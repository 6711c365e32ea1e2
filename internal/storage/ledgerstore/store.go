// Package ledgerstore persists the asset ledger as one JSON document.
// Quantities and prices round-trip as decimal strings with no precision
// loss.
package ledgerstore

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/storage/docstore"
)

// Store loads and saves the full asset list. The reserved wallet asset is
// seeded on first load and is guaranteed present in every result.
type Store struct {
	doc *docstore.Store[[]domain.Asset]
}

// New creates a ledger store backed by the JSON document at path.
func New(path string) (*Store, error) {
	doc, err := docstore.New[[]domain.Asset](path)
	if err != nil {
		return nil, errors.Wrap(err, "init ledger store")
	}
	return &Store{doc: doc}, nil
}

// Load reads the ledger, seeding the wallet asset when absent.
func (s *Store) Load() ([]domain.Asset, error) {
	assets, err := s.doc.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load ledger")
	}

	for i := range assets {
		if assets[i].IsWallet() {
			return assets, nil
		}
	}

	assets = append(assets, domain.Asset{
		ID:           uuid.NewString(),
		Symbol:       domain.WalletSymbol,
		Title:        domain.WalletTitle,
		Transactions: []domain.Transaction{},
	})
	if err := s.doc.Save(assets); err != nil {
		return nil, errors.Wrap(err, "seed wallet asset")
	}
	return assets, nil
}

// Save writes the full ledger atomically.
func (s *Store) Save(assets []domain.Asset) error {
	if err := s.doc.Save(assets); err != nil {
		return errors.Wrap(err, "save ledger")
	}
	return nil
}
