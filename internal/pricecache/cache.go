// Package pricecache owns the last-fetched quote board and its staleness
// state: TTL freshness, rate-limit backoff and multi-tier fallback to
// persisted or default quotes. Refresh never hard-fails; callers always
// get a usable board, possibly with an advisory error.
package pricecache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/oracle"
	"go.uber.org/zap"
)

const (
	// DefaultTTL is how long a fetched board stays fresh.
	DefaultTTL = 5 * time.Minute
	// DefaultBackoff is the rate-limit window opened by a 429.
	DefaultBackoff = 10 * time.Minute
)

// Conservative defaults served when no quotes were ever persisted.
var (
	defaultUSDPrice  = decimal.NewFromInt(124050)
	defaultGoldPrice = decimal.NewFromInt(12689180)
)

type boardStore interface {
	Load() (map[domain.Category][]domain.Quote, error)
	Save(map[domain.Category][]domain.Quote) error
}

type boardArchive interface {
	Append(domain.QuoteBoard) error
}

// Cache is the quote cache state machine.
type Cache struct {
	bulk    oracle.Bulk
	single  oracle.Single
	store   boardStore
	archive boardArchive
	logger  *zap.Logger
	now     func() time.Time
	ttl     time.Duration
	backoff time.Duration

	mu               sync.Mutex
	board            domain.QuoteBoard
	rateLimitedUntil time.Time
	refreshing       bool
}

// Option configures the cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithBackoff overrides the rate-limit window.
func WithBackoff(d time.Duration) Option {
	return func(c *Cache) { c.backoff = d }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithArchive attaches an append-only archive receiving every
// successfully refreshed board.
func WithArchive(a boardArchive) Option {
	return func(c *Cache) { c.archive = a }
}

// New creates the cache. The persisted board, if any, is loaded lazily on
// the first fallback or via Refresh.
func New(bulk oracle.Bulk, single oracle.Single, store boardStore, logger *zap.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cache{
		bulk:    bulk,
		single:  single,
		store:   store,
		logger:  logger,
		now:     time.Now,
		ttl:     DefaultTTL,
		backoff: DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Board returns the current in-memory board without touching any oracle.
func (c *Cache) Board() domain.QuoteBoard {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.board.Empty() {
		return c.fallbackLocked("no quotes fetched yet")
	}
	return c.board
}

// Refresh advances the state machine: the rate-limit gate is checked
// first, then the TTL gate, and only then is the bulk oracle called. Any
// oracle failure degrades to the last good board plus an advisory error;
// the returned board is always usable.
func (c *Cache) Refresh(ctx context.Context) (domain.QuoteBoard, error) {
	c.mu.Lock()
	now := c.now()

	if now.Before(c.rateLimitedUntil) {
		board := c.fallbackLocked("rate limited by price oracle")
		until := c.rateLimitedUntil
		c.mu.Unlock()
		return board, errors.Wrapf(oracle.ErrRateLimited, "backoff until %s", until.Format(time.RFC3339))
	}

	if !c.board.LastUpdated.IsZero() && now.Sub(c.board.LastUpdated) < c.ttl {
		board := c.board
		c.mu.Unlock()
		return board, nil
	}

	if c.refreshing {
		// Another refresh is in flight; serve what we have.
		board := c.board
		c.mu.Unlock()
		return board, nil
	}
	c.refreshing = true
	c.mu.Unlock()

	// Oracle calls run outside the lock: they may block for seconds.
	raw, err := c.bulk.FetchQuotes(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.refreshing = false

		if errors.Is(err, oracle.ErrRateLimited) {
			c.rateLimitedUntil = c.now().Add(c.backoff)
			c.logger.Warn("price oracle rate limited",
				zap.Time("until", c.rateLimitedUntil))
			return c.fallbackLocked("rate limited by price oracle"), err
		}

		c.logger.Warn("price oracle fetch failed", zap.Error(err))
		return c.fallbackLocked("price oracle unavailable"), err
	}

	// The secondary oracle runs unconditionally after every successful
	// primary refresh. It has no backoff state and cannot fail hard.
	ayar, err := c.single.FetchPrice(ctx)
	if err != nil {
		// Single implementations default instead of erroring; a non-nil
		// error here means a test fake, treat it as "no quote".
		c.logger.Warn("secondary oracle failed", zap.Error(err))
		ayar = decimal.Zero
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshing = false

	board := buildBoard(raw, ayar, c.now())
	c.board = board
	c.rateLimitedUntil = time.Time{}

	if err := c.store.Save(board.Categories); err != nil {
		c.logger.Error("persist quote board failed", zap.Error(err))
		board.Advisory = "quotes fetched but not persisted"
		return board, errors.Wrap(err, "persist quote board")
	}
	if c.archive != nil {
		if err := c.archive.Append(board); err != nil {
			c.logger.Warn("archive quote board failed", zap.Error(err))
		}
	}

	c.logger.Info("quote board refreshed",
		zap.Int("crypto", len(board.Categories[domain.CategoryCrypto])),
		zap.Int("gold_coin", len(board.Categories[domain.CategoryGoldCoin])),
		zap.Int("currency", len(board.Categories[domain.CategoryCurrency])))
	return board, nil
}

// fallbackLocked serves the best degraded board available: the current
// in-memory quotes, else the persisted ones, else synthesized defaults.
// Callers must hold c.mu.
func (c *Cache) fallbackLocked(reason string) domain.QuoteBoard {
	if c.board.Empty() {
		persisted, err := c.store.Load()
		if err != nil {
			c.logger.Error("load persisted quotes failed", zap.Error(err))
		}
		if len(persisted) > 0 {
			c.board = domain.QuoteBoard{Categories: persisted}
		} else {
			c.board = defaultBoard()
			c.logger.Warn("no persisted quotes, serving defaults")
		}
	}
	board := c.board
	board.Advisory = reason
	return board
}

// defaultBoard synthesizes the conservative minimum needed by valuation:
// a USD and a GOL18 quote at documented default prices.
func defaultBoard() domain.QuoteBoard {
	return domain.QuoteBoard{
		Categories: map[domain.Category][]domain.Quote{
			domain.CategoryCurrency: {
				{Symbol: "USD", Title: "USD", Price: defaultUSDPrice, Source: "default"},
			},
			domain.CategoryGoldCoin: {
				{Symbol: "GOL18", Title: "GOL18", Price: defaultGoldPrice, Source: "default"},
			},
		},
	}
}

// buildBoard converts the raw bulk feed into a categorized board. Crypto
// prices arrive in USD and are converted to toman through the USDT quote;
// everything else is already in toman. A non-zero ayar price is merged
// into the gold_coin category.
func buildBoard(raw []oracle.RawQuote, ayar decimal.Decimal, now time.Time) domain.QuoteBoard {
	categories := make(map[domain.Category][]domain.Quote, len(domain.Categories))
	for _, cat := range domain.Categories {
		categories[cat] = []domain.Quote{}
	}

	usdt := decimal.Zero
	for _, r := range raw {
		if r.Symbol == "USDT" {
			usdt = r.Sell
			break
		}
	}

	for _, r := range raw {
		cat, ok := domain.CategoryOf(r.Symbol)
		if !ok || cat == domain.CategoryWallet {
			continue
		}

		q := domain.Quote{
			Symbol:     r.Symbol,
			Title:      r.Title,
			LastUpdate: r.LastUpdate,
		}
		if cat == domain.CategoryCrypto {
			if !usdt.IsPositive() {
				continue
			}
			q.Price = r.Sell.Mul(usdt)
			q.USDPrice = r.Sell
		} else {
			q.Price = r.Sell
			if usdt.IsPositive() && r.Symbol != "USDT" {
				q.USDPrice = r.Sell.Div(usdt)
			}
		}
		categories[cat] = append(categories[cat], q)
	}

	if ayar.IsPositive() {
		q := domain.Quote{
			Symbol:     oracle.AyarSymbol,
			Title:      "عیار",
			Price:      ayar,
			LastUpdate: now.Format("2006-01-02 15:04"),
			Source:     oracle.AyarSource,
		}
		if usdt.IsPositive() {
			q.USDPrice = ayar.Div(usdt)
		}
		categories[domain.CategoryGoldCoin] = append(categories[domain.CategoryGoldCoin], q)
	}

	for cat := range categories {
		sort.Slice(categories[cat], func(i, j int) bool {
			return categories[cat][i].Symbol < categories[cat][j].Symbol
		})
	}

	return domain.QuoteBoard{Categories: categories, LastUpdated: now}
}
