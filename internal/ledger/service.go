// Package ledger implements the transaction service: validated Add,
// Update and Delete over the asset ledger, reciprocal wallet postings for
// trades, and synchronous recomputation of the valuation series after
// every successful mutation.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/engine"
	"go.uber.org/zap"
)

// Default categories and comment templates for auto-generated wallet
// postings.
const (
	defaultCategory   = "بدون دسته‌بندی"
	buyCategory       = "خرید دارایی"
	sellCategory      = "فروش دارایی"
	saveCategory      = "سود سیو شده"
	buyCommentFormat  = "خرید %s واحد %s"
	sellCommentFormat = "فروش %s واحد %s"
	saveCommentFormat = "انتقال سود سیو شده از %s"
)

type ledgerStore interface {
	Load() ([]domain.Asset, error)
	Save([]domain.Asset) error
}

type quoteProvider interface {
	Board() domain.QuoteBoard
}

type seriesRecomputer interface {
	RecomputeAll(aggregated []domain.AggregatedAsset, board domain.QuoteBoard) error
	UpdateChart(aggregated []domain.AggregatedAsset) error
	UpdateComparison(aggregated []domain.AggregatedAsset, board domain.QuoteBoard) error
	UpdateDailyProfit(aggregated []domain.AggregatedAsset) error
}

// Service serializes all ledger mutations behind one mutex so a mutation
// and its reciprocal posting land as a single persisted unit.
type Service struct {
	mu      sync.Mutex
	store   ledgerStore
	quotes  quoteProvider
	history seriesRecomputer
	logger  *zap.Logger
	now     func() time.Time
}

// New creates the transaction service.
func New(store ledgerStore, quotes quoteProvider, history seriesRecomputer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:   store,
		quotes:  quotes,
		history: history,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock injects the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddInput carries the fields of a new transaction. Date defaults to now,
// Title is only consulted when the target asset does not exist yet.
type AddInput struct {
	Symbol       string
	Title        string
	Date         *time.Time
	Type         domain.TxType
	Quantity     decimal.Decimal
	PricePerUnit decimal.Decimal
	Category     string
	Comment      string
}

// UpdateInput patches an existing transaction; nil fields keep their
// current value.
type UpdateInput struct {
	Type         *domain.TxType
	Quantity     *decimal.Decimal
	PricePerUnit *decimal.Decimal
	Category     *string
	Comment      *string
	Date         *time.Time
}

// Add validates and appends one transaction, creating the target asset
// when absent and posting the reciprocal wallet entry for trades.
func (s *Service) Add(ctx context.Context, in AddInput) (domain.Transaction, error) {
	if err := validateAdd(in); err != nil {
		return domain.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.store.Load()
	if err != nil {
		return domain.Transaction{}, err
	}

	if in.Type == domain.TxBuy {
		cost := in.Quantity.Mul(in.PricePerUnit)
		balance := domain.WalletBalance(assets)
		if cost.GreaterThan(balance) {
			return domain.Transaction{}, errors.Wrapf(domain.ErrInsufficientFunds,
				"need %s, wallet balance %s", cost.String(), balance.String())
		}
	}

	idx := s.findOrCreateAsset(&assets, in.Symbol, in.Title)

	date := s.now().UTC()
	if in.Date != nil {
		date = *in.Date
	}
	category := in.Category
	if category == "" {
		category = defaultCategory
	}

	tx := domain.Transaction{
		ID:       uuid.NewString(),
		Date:     date,
		Type:     in.Type,
		Quantity: in.Quantity,
		Category: category,
		Comment:  in.Comment,
	}
	if in.Type.IsTrade() {
		tx.PricePerUnit = in.PricePerUnit
		recip := s.reciprocalEntry(tx, assets[idx].Title, in.Category)
		tx.LinkedTx = recip.ID
		if w := walletIndex(assets); w >= 0 {
			assets[w].Transactions = append(assets[w].Transactions, recip)
		}
	}
	assets[idx].Transactions = append(assets[idx].Transactions, tx)

	if err := s.persistAndRecompute(ctx, assets); err != nil {
		return domain.Transaction{}, err
	}

	s.logger.Info("transaction added",
		zap.String("id", tx.ID),
		zap.String("symbol", in.Symbol),
		zap.String("type", string(tx.Type)),
		zap.String("quantity", tx.Quantity.String()))
	return tx, nil
}

// Update patches a transaction in place. The old reciprocal wallet entry
// is removed and a fresh one derived from the new values is appended when
// the new type still requires one.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.store.Load()
	if err != nil {
		return domain.Transaction{}, err
	}

	assetIdx, txIdx := findTransaction(assets, id)
	if assetIdx < 0 {
		return domain.Transaction{}, errors.Wrapf(domain.ErrNotFound, "transaction %s", id)
	}

	old := assets[assetIdx].Transactions[txIdx]
	updated := applyPatch(old, in)
	if err := validateUpdated(updated, &assets[assetIdx]); err != nil {
		return domain.Transaction{}, err
	}

	if old.Type.IsTrade() {
		removeReciprocal(assets, old)
		updated.LinkedTx = ""
	}
	if updated.Type.IsTrade() && !assets[assetIdx].IsWallet() {
		recip := s.reciprocalEntry(updated, assets[assetIdx].Title, updated.Category)
		updated.LinkedTx = recip.ID
		if w := walletIndex(assets); w >= 0 {
			assets[w].Transactions = append(assets[w].Transactions, recip)
		}
	}
	assets[assetIdx].Transactions[txIdx] = updated

	if err := s.persistAndRecompute(ctx, assets); err != nil {
		return domain.Transaction{}, err
	}

	s.logger.Info("transaction updated", zap.String("id", id))
	return updated, nil
}

// Delete removes a transaction together with its reciprocal wallet entry.
// An asset left with no transactions is dropped, except the wallet.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.store.Load()
	if err != nil {
		return err
	}

	assetIdx, txIdx := findTransaction(assets, id)
	if assetIdx < 0 {
		return errors.Wrapf(domain.ErrNotFound, "transaction %s", id)
	}

	deleted := assets[assetIdx].Transactions[txIdx]
	if deleted.Type.IsTrade() {
		removeReciprocal(assets, deleted)
	}

	txs := assets[assetIdx].Transactions
	assets[assetIdx].Transactions = append(txs[:txIdx], txs[txIdx+1:]...)

	if len(assets[assetIdx].Transactions) == 0 && !assets[assetIdx].IsWallet() {
		assets = append(assets[:assetIdx], assets[assetIdx+1:]...)
	}

	if err := s.persistAndRecompute(ctx, assets); err != nil {
		return err
	}

	s.logger.Info("transaction deleted", zap.String("id", id))
	return nil
}

// Assets returns the current ledger.
func (s *Service) Assets(_ context.Context) ([]domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load()
}

// Aggregate values the current ledger against the current quote board.
func (s *Service) Aggregate(_ context.Context) ([]domain.AggregatedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	board := s.quotes.Board()
	return engine.Aggregate(assets, board.PriceMap()), nil
}

// Recompute refreshes all valuation series from the current ledger and
// quotes.
func (s *Service) Recompute(_ context.Context) error {
	aggregated, board, err := s.snapshotState()
	if err != nil {
		return err
	}
	return s.history.RecomputeAll(aggregated, board)
}

// RecomputeChart refreshes only the chart series. Periodic jobs call the
// per-series variants on their own schedules.
func (s *Service) RecomputeChart(_ context.Context) error {
	aggregated, _, err := s.snapshotState()
	if err != nil {
		return err
	}
	return s.history.UpdateChart(aggregated)
}

// RecomputeComparison refreshes only the comparison series.
func (s *Service) RecomputeComparison(_ context.Context) error {
	aggregated, board, err := s.snapshotState()
	if err != nil {
		return err
	}
	return s.history.UpdateComparison(aggregated, board)
}

// RecomputeDailyProfit refreshes only the daily-profit series.
func (s *Service) RecomputeDailyProfit(_ context.Context) error {
	aggregated, _, err := s.snapshotState()
	if err != nil {
		return err
	}
	return s.history.UpdateDailyProfit(aggregated)
}

// snapshotState aggregates the current ledger against the current quotes
// under the mutation lock.
func (s *Service) snapshotState() ([]domain.AggregatedAsset, domain.QuoteBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assets, err := s.store.Load()
	if err != nil {
		return nil, domain.QuoteBoard{}, err
	}
	board := s.quotes.Board()
	return engine.Aggregate(assets, board.PriceMap()), board, nil
}

// persistAndRecompute runs the post-mutation sequence: save the ledger,
// then refresh all three series from one aggregation pass. Callers hold
// s.mu.
func (s *Service) persistAndRecompute(_ context.Context, assets []domain.Asset) error {
	if err := s.store.Save(assets); err != nil {
		return err
	}

	board := s.quotes.Board()
	aggregated := engine.Aggregate(assets, board.PriceMap())
	if err := s.history.RecomputeAll(aggregated, board); err != nil {
		return errors.Wrap(err, "recompute valuation series")
	}
	return nil
}

// findOrCreateAsset returns the index of the asset holding symbol,
// creating it when absent. New assets take the given title, falling back
// to the quote board's display title.
func (s *Service) findOrCreateAsset(assets *[]domain.Asset, symbol, title string) int {
	for i := range *assets {
		if (*assets)[i].Symbol == symbol {
			return i
		}
	}

	if title == "" {
		title = s.quotes.Board().TitleOf(symbol)
	}
	*assets = append(*assets, domain.Asset{
		ID:           uuid.NewString(),
		Symbol:       symbol,
		Title:        title,
		Transactions: []domain.Transaction{},
	})
	return len(*assets) - 1
}

// reciprocalEntry builds the wallet posting mirroring a trade's cash
// effect: a withdrawal for a buy, a deposit for a sell or profit-take.
func (s *Service) reciprocalEntry(tx domain.Transaction, assetTitle, requestCategory string) domain.Transaction {
	entry := domain.Transaction{
		ID:           uuid.NewString(),
		Date:         tx.Date,
		Quantity:     tx.Cost(),
		PricePerUnit: decimal.NewFromInt(1),
		LinkedTx:     tx.ID,
	}

	switch tx.Type {
	case domain.TxBuy:
		entry.Type = domain.TxWithdrawal
		entry.Category = buyCategory
		entry.Comment = fmt.Sprintf(buyCommentFormat, tx.Quantity.String(), assetTitle)
	case domain.TxSell:
		entry.Type = domain.TxDeposit
		entry.Category = sellCategory
		entry.Comment = fmt.Sprintf(sellCommentFormat, tx.Quantity.String(), assetTitle)
	case domain.TxSaveProfit:
		entry.Type = domain.TxDeposit
		entry.Category = saveCategory
		entry.Comment = fmt.Sprintf(saveCommentFormat, assetTitle)
	}
	if requestCategory != "" && requestCategory != defaultCategory {
		entry.Category = requestCategory
	}
	return entry
}

// removeReciprocal drops the wallet entry mirroring old. The explicit
// LinkedTx back-reference wins; ledgers written before the link existed
// fall back to the first wallet entry matching the expected type and
// amount.
func removeReciprocal(assets []domain.Asset, old domain.Transaction) {
	w := walletIndex(assets)
	if w < 0 {
		return
	}

	wantType := domain.TxDeposit
	if old.Type == domain.TxBuy {
		wantType = domain.TxWithdrawal
	}
	amount := old.Cost()

	txs := assets[w].Transactions
	match := -1
	for i := range txs {
		if txs[i].LinkedTx == old.ID {
			match = i
			break
		}
		if match < 0 && txs[i].LinkedTx == "" && txs[i].Type == wantType && txs[i].Quantity.Equal(amount) {
			match = i
		}
	}
	if match >= 0 {
		assets[w].Transactions = append(txs[:match], txs[match+1:]...)
	}
}

// walletIndex locates the reserved wallet asset.
func walletIndex(assets []domain.Asset) int {
	for i := range assets {
		if assets[i].IsWallet() {
			return i
		}
	}
	return -1
}

// findTransaction locates a transaction id across all assets.
func findTransaction(assets []domain.Asset, id string) (assetIdx, txIdx int) {
	for i := range assets {
		for j := range assets[i].Transactions {
			if assets[i].Transactions[j].ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

// applyPatch copies old and overwrites the recognized mutable fields.
func applyPatch(old domain.Transaction, in UpdateInput) domain.Transaction {
	updated := old
	if in.Type != nil {
		updated.Type = *in.Type
	}
	if in.Quantity != nil {
		updated.Quantity = *in.Quantity
	}
	if in.PricePerUnit != nil {
		updated.PricePerUnit = *in.PricePerUnit
	}
	if in.Category != nil {
		updated.Category = *in.Category
	}
	if in.Comment != nil {
		updated.Comment = *in.Comment
	}
	if in.Date != nil {
		updated.Date = *in.Date
	}
	return updated
}

// validateAdd rejects a malformed input before the ledger is touched.
func validateAdd(in AddInput) error {
	if in.Symbol == "" {
		return errors.Wrap(domain.ErrValidation, "symbol is required")
	}
	if !in.Type.Valid() {
		return errors.Wrapf(domain.ErrValidation, "unknown transaction type %q", in.Type)
	}
	if !in.Quantity.IsPositive() {
		return errors.Wrap(domain.ErrValidation, "quantity must be positive")
	}
	if in.Type.IsTrade() {
		if in.Symbol == domain.WalletSymbol {
			return errors.Wrapf(domain.ErrValidation, "%s is not allowed on the wallet", in.Type)
		}
		if !in.PricePerUnit.IsPositive() {
			return errors.Wrap(domain.ErrValidation, "price_per_unit is required for trades")
		}
	}
	if in.Type.IsCashFlow() && in.Symbol != domain.WalletSymbol {
		return errors.Wrapf(domain.ErrValidation, "%s is only valid on %s", in.Type, domain.WalletSymbol)
	}
	return nil
}

// validateUpdated checks a patched transaction against its owning asset.
func validateUpdated(tx domain.Transaction, owner *domain.Asset) error {
	if !tx.Type.Valid() {
		return errors.Wrapf(domain.ErrValidation, "unknown transaction type %q", tx.Type)
	}
	if !tx.Quantity.IsPositive() {
		return errors.Wrap(domain.ErrValidation, "quantity must be positive")
	}
	if tx.Type.IsTrade() {
		if owner.IsWallet() {
			return errors.Wrapf(domain.ErrValidation, "%s is not allowed on the wallet", tx.Type)
		}
		if !tx.PricePerUnit.IsPositive() {
			return errors.Wrap(domain.ErrValidation, "price_per_unit is required for trades")
		}
	}
	if tx.Type.IsCashFlow() && !owner.IsWallet() {
		return errors.Wrapf(domain.ErrValidation, "%s is only valid on %s", tx.Type, domain.WalletSymbol)
	}
	return nil
}
