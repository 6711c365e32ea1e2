package pricecache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/oracle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBulk struct {
	quotes []oracle.RawQuote
	err    error
	calls  int
}

func (f *fakeBulk) FetchQuotes(_ context.Context) ([]oracle.RawQuote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

type fakeSingle struct {
	price decimal.Decimal
	err   error
	calls int
}

func (f *fakeSingle) FetchPrice(_ context.Context) (decimal.Decimal, error) {
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return f.price, nil
}

type fakeStore struct {
	persisted map[domain.Category][]domain.Quote
	saved     map[domain.Category][]domain.Quote
	loadErr   error
	saveErr   error
}

func (f *fakeStore) Load() (map[domain.Category][]domain.Quote, error) {
	return f.persisted, f.loadErr
}

func (f *fakeStore) Save(categories map[domain.Category][]domain.Quote) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = categories
	return nil
}

type fakeArchive struct {
	boards []domain.QuoteBoard
}

func (f *fakeArchive) Append(board domain.QuoteBoard) error {
	f.boards = append(f.boards, board)
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func marketQuotes() []oracle.RawQuote {
	return []oracle.RawQuote{
		{Symbol: "USDT", Title: "Tether", Sell: decimal.NewFromInt(100000)},
		{Symbol: "BITCOIN", Title: "Bitcoin", Sell: decimal.NewFromInt(60000)},
		{Symbol: "USD", Title: "US Dollar", Sell: decimal.NewFromInt(124000)},
		{Symbol: "GOL18", Title: "Gold 18K", Sell: decimal.NewFromInt(12000000)},
		{Symbol: "UNKNOWN_SYM", Title: "Mystery", Sell: decimal.NewFromInt(5)},
	}
}

func TestRefreshBuildsCategorizedBoard(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(t0)
	bulk := &fakeBulk{quotes: marketQuotes()}
	single := &fakeSingle{price: decimal.NewFromInt(35510)}
	store := &fakeStore{}
	archive := &fakeArchive{}

	cache := New(bulk, single, store, nil,
		WithClock(clock.Now), WithArchive(archive))

	board, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	crypto := board.Categories[domain.CategoryCrypto]
	require.Len(t, crypto, 2)
	btc, ok := board.PriceOf("BITCOIN")
	require.True(t, ok)
	// 60000 USD * 100000 toman/USDT
	assert.True(t, decimal.NewFromInt(6000000000).Equal(btc))

	for _, q := range crypto {
		if q.Symbol == "BITCOIN" {
			assert.True(t, decimal.NewFromInt(60000).Equal(q.USDPrice))
		}
	}

	currency := board.Categories[domain.CategoryCurrency]
	require.Len(t, currency, 1)
	assert.Equal(t, "USD", currency[0].Symbol)
	assert.True(t, decimal.NewFromFloat(1.24).Equal(currency[0].USDPrice))

	// AYAR merged into gold_coin next to GOL18, sorted by symbol.
	gold := board.Categories[domain.CategoryGoldCoin]
	require.Len(t, gold, 2)
	assert.Equal(t, "AYAR", gold[0].Symbol)
	assert.Equal(t, oracle.AyarSource, gold[0].Source)
	assert.Equal(t, "GOL18", gold[1].Symbol)

	// Unknown symbols are dropped.
	_, ok = board.PriceOf("UNKNOWN_SYM")
	assert.False(t, ok)

	assert.Equal(t, t0, board.LastUpdated)
	assert.Empty(t, board.Advisory)
	assert.NotNil(t, store.saved)
	require.Len(t, archive.boards, 1)
	assert.Equal(t, 1, single.calls)
}

func TestRefreshHonorsTTL(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	bulk := &fakeBulk{quotes: marketQuotes()}
	cache := New(bulk, &fakeSingle{}, &fakeStore{}, nil, WithClock(clock.Now))

	_, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	clock.Advance(4 * time.Minute)
	_, err = cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, bulk.calls, "fresh board must not trigger a fetch")

	clock.Advance(2 * time.Minute)
	_, err = cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, bulk.calls, "expired board must refetch")
}

func TestRefreshRateLimitBackoff(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	bulk := &fakeBulk{err: oracle.ErrRateLimited}
	cache := New(bulk, &fakeSingle{}, &fakeStore{}, nil, WithClock(clock.Now))

	board, err := cache.Refresh(context.Background())
	require.ErrorIs(t, err, oracle.ErrRateLimited)
	assert.NotEmpty(t, board.Advisory)
	assert.Equal(t, 1, bulk.calls)

	// Inside the backoff window: no oracle call at all.
	clock.Advance(5 * time.Minute)
	board, err = cache.Refresh(context.Background())
	require.ErrorIs(t, err, oracle.ErrRateLimited)
	assert.NotEmpty(t, board.Advisory)
	assert.Equal(t, 1, bulk.calls)

	// Past the window: the oracle is tried again and succeeds.
	clock.Advance(6 * time.Minute)
	bulk.err = nil
	bulk.quotes = marketQuotes()
	board, err = cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, board.Advisory)
	assert.Equal(t, 2, bulk.calls)
}

func TestRefreshFallsBackToPersisted(t *testing.T) {
	persisted := map[domain.Category][]domain.Quote{
		domain.CategoryCurrency: {
			{Symbol: "USD", Title: "US Dollar", Price: decimal.NewFromInt(120000)},
		},
	}
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	bulk := &fakeBulk{err: errors.New("connection refused")}
	cache := New(bulk, &fakeSingle{}, &fakeStore{persisted: persisted}, nil, WithClock(clock.Now))

	board, err := cache.Refresh(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, board.Advisory)

	price, ok := board.PriceOf("USD")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(120000).Equal(price))
}

func TestRefreshFallsBackToDefaults(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	bulk := &fakeBulk{err: errors.New("connection refused")}
	cache := New(bulk, &fakeSingle{}, &fakeStore{}, nil, WithClock(clock.Now))

	board, err := cache.Refresh(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, board.Advisory)

	usd, ok := board.PriceOf("USD")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(124050).Equal(usd))

	gold, ok := board.PriceOf("GOL18")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(12689180).Equal(gold))
}

func TestRefreshSurvivesSecondaryFailure(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	single := &fakeSingle{err: errors.New("scrape failed")}
	cache := New(&fakeBulk{quotes: marketQuotes()}, single, &fakeStore{}, nil, WithClock(clock.Now))

	board, err := cache.Refresh(context.Background())
	require.NoError(t, err)

	gold := board.Categories[domain.CategoryGoldCoin]
	require.Len(t, gold, 1)
	assert.Equal(t, "GOL18", gold[0].Symbol)
}

func TestBoardServesDefaultsWhenEmpty(t *testing.T) {
	cache := New(&fakeBulk{}, &fakeSingle{}, &fakeStore{}, nil)

	board := cache.Board()
	assert.NotEmpty(t, board.Advisory)

	usd, ok := board.PriceOf("USD")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(124050).Equal(usd))
}
