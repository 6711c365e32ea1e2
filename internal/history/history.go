// Package history maintains the three date-keyed portfolio series: the
// unbounded total-value chart, the 365-day USD/gold comparison series and
// the 90-day daily-profit series. Each series keeps one entry per calendar
// day; writing again on the same day overwrites that day's entry.
package history

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/storage/docstore"
	"go.uber.org/zap"
)

const (
	chartFile       = "chart_data.json"
	comparisonFile  = "comparison_data.json"
	dailyProfitFile = "daily_profit_data.json"
)

var hundred = decimal.NewFromInt(100)

// Service recomputes and serves the historical series.
type Service struct {
	mu          sync.Mutex
	chart       *docstore.Store[[]domain.ChartSnapshot]
	comparison  *docstore.Store[[]domain.ComparisonSnapshot]
	dailyProfit *docstore.Store[[]domain.DailyProfitSnapshot]
	logger      *zap.Logger
	now         func() time.Time
}

// New creates the service with its three series files under dataDir.
func New(dataDir string, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chart, err := docstore.New[[]domain.ChartSnapshot](filepath.Join(dataDir, chartFile))
	if err != nil {
		return nil, errors.Wrap(err, "init chart store")
	}
	comparison, err := docstore.New[[]domain.ComparisonSnapshot](filepath.Join(dataDir, comparisonFile))
	if err != nil {
		return nil, errors.Wrap(err, "init comparison store")
	}
	dailyProfit, err := docstore.New[[]domain.DailyProfitSnapshot](filepath.Join(dataDir, dailyProfitFile))
	if err != nil {
		return nil, errors.Wrap(err, "init daily profit store")
	}

	return &Service{
		chart:       chart,
		comparison:  comparison,
		dailyProfit: dailyProfit,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// WithClock injects the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UpdateChart upserts today's total-value point. The chart series has no
// retention cap.
func (s *Service) UpdateChart(aggregated []domain.AggregatedAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.chart.Load()
	if err != nil {
		return errors.Wrap(err, "load chart series")
	}

	today := s.now().Format(domain.DateLayout)
	entry := domain.ChartSnapshot{
		Date:       today,
		TotalValue: domain.PortfolioValue(aggregated),
	}

	snapshots = upsertByDate(snapshots, entry, today, func(c domain.ChartSnapshot) string { return c.Date })
	return errors.Wrap(s.chart.Save(snapshots), "save chart series")
}

// UpdateComparison upserts today's macro-equivalence point. When the board
// carries no positive USD or gold quote the update is skipped so a
// degraded refresh never poisons the series.
func (s *Service) UpdateComparison(aggregated []domain.AggregatedAsset, board domain.QuoteBoard) error {
	usd, _ := board.PriceOf("USD")
	gold, _ := board.PriceOf("GOL18")
	if !usd.IsPositive() || !gold.IsPositive() {
		s.logger.Warn("comparison update skipped, no usable USD or gold quote",
			zap.String("usd", usd.String()),
			zap.String("gold", gold.String()))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.comparison.Load()
	if err != nil {
		return errors.Wrap(err, "load comparison series")
	}

	total := domain.PortfolioValue(aggregated)
	today := s.now().Format(domain.DateLayout)
	entry := domain.ComparisonSnapshot{
		Date:                today,
		TotalValue:          total,
		USDPrice:            usd,
		GoldPricePerGram:    gold,
		EquivalentUSD:       total.Div(usd),
		EquivalentGoldGrams: total.Div(gold),
	}

	snapshots = upsertByDate(snapshots, entry, today, func(c domain.ComparisonSnapshot) string { return c.Date })
	snapshots = trimOldest(snapshots, domain.ComparisonRetention)
	return errors.Wrap(s.comparison.Save(snapshots), "save comparison series")
}

// UpdateDailyProfit upserts today's profit point. Yesterday's value is the
// exact previous-day entry when present, otherwise the most recent entry
// before today; with no earlier entry at all the day-over-day change is
// zero and YesterdayValue stays nil.
func (s *Service) UpdateDailyProfit(aggregated []domain.AggregatedAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.dailyProfit.Load()
	if err != nil {
		return errors.Wrap(err, "load daily profit series")
	}

	now := s.now()
	entry := buildDailyProfit(aggregated, snapshots, now)

	snapshots = upsertByDate(snapshots, entry, entry.Date, func(c domain.DailyProfitSnapshot) string { return c.Date })
	snapshots = trimOldest(snapshots, domain.DailyProfitRetention)
	return errors.Wrap(s.dailyProfit.Save(snapshots), "save daily profit series")
}

// RecomputeAll refreshes all three series from one aggregation pass.
func (s *Service) RecomputeAll(aggregated []domain.AggregatedAsset, board domain.QuoteBoard) error {
	if err := s.UpdateChart(aggregated); err != nil {
		return err
	}
	if err := s.UpdateComparison(aggregated, board); err != nil {
		return err
	}
	return s.UpdateDailyProfit(aggregated)
}

// Chart returns the full chart series, oldest first.
func (s *Service) Chart() ([]domain.ChartSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots, err := s.chart.Load()
	return snapshots, errors.Wrap(err, "load chart series")
}

// Comparison returns the comparison series, oldest first.
func (s *Service) Comparison() ([]domain.ComparisonSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots, err := s.comparison.Load()
	return snapshots, errors.Wrap(err, "load comparison series")
}

// DailyProfit returns the daily-profit series, oldest first.
func (s *Service) DailyProfit() ([]domain.DailyProfitSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots, err := s.dailyProfit.Load()
	return snapshots, errors.Wrap(err, "load daily profit series")
}

// ValueChange compares the two most recent comparison snapshots. It needs
// at least two entries to report a change.
func (s *Service) ValueChange() (domain.ValueChangeReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.comparison.Load()
	if err != nil {
		return domain.ValueChangeReport{}, errors.Wrap(err, "load comparison series")
	}
	if len(snapshots) < 2 {
		return domain.ValueChangeReport{}, errors.Wrapf(domain.ErrNotFound,
			"value change needs two comparison snapshots, have %d", len(snapshots))
	}

	latest := snapshots[len(snapshots)-1]
	previous := snapshots[len(snapshots)-2]

	report := domain.ValueChangeReport{
		Date:                latest.Date,
		TotalValue:          latest.TotalValue,
		USDPrice:            latest.USDPrice,
		GoldPricePerGram:    latest.GoldPricePerGram,
		EquivalentUSD:       latest.EquivalentUSD,
		EquivalentGoldGrams: latest.EquivalentGoldGrams,
		USDChange:           latest.EquivalentUSD.Sub(previous.EquivalentUSD),
		GoldChange:          latest.EquivalentGoldGrams.Sub(previous.EquivalentGoldGrams),
	}
	if previous.EquivalentUSD.IsPositive() {
		report.USDChangePercent = report.USDChange.Div(previous.EquivalentUSD).Mul(hundred)
	}
	if previous.EquivalentGoldGrams.IsPositive() {
		report.GoldChangePercent = report.GoldChange.Div(previous.EquivalentGoldGrams).Mul(hundred)
	}
	return report, nil
}

// TodayProfit computes the current profit point without persisting it.
func (s *Service) TodayProfit(aggregated []domain.AggregatedAsset) (domain.DailyProfitSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots, err := s.dailyProfit.Load()
	if err != nil {
		return domain.DailyProfitSnapshot{}, errors.Wrap(err, "load daily profit series")
	}
	return buildDailyProfit(aggregated, snapshots, s.now()), nil
}

// buildDailyProfit derives one profit snapshot from the aggregation and
// the existing series.
func buildDailyProfit(aggregated []domain.AggregatedAsset, snapshots []domain.DailyProfitSnapshot, now time.Time) domain.DailyProfitSnapshot {
	totalValue := domain.PortfolioValue(aggregated)

	totalProfit := decimal.Zero
	totalCost := decimal.Zero
	assetCount := 0
	for _, a := range aggregated {
		if a.Category == domain.CategoryWallet {
			continue
		}
		totalProfit = totalProfit.Add(a.ProfitLoss)
		totalCost = totalCost.Add(a.CostBasis)
		if a.Quantity.IsPositive() {
			assetCount++
		}
	}

	profitPercent := decimal.Zero
	if totalCost.IsPositive() {
		profitPercent = totalProfit.Div(totalCost).Mul(hundred)
	}

	today := now.Format(domain.DateLayout)
	yesterday := findYesterdayValue(snapshots, now)

	dailyChange := decimal.Zero
	dailyChangePercent := decimal.Zero
	if yesterday != nil && yesterday.IsPositive() {
		dailyChange = totalValue.Sub(*yesterday)
		dailyChangePercent = dailyChange.Div(*yesterday).Mul(hundred)
	}

	return domain.DailyProfitSnapshot{
		Date:               today,
		TotalValue:         totalValue,
		TotalProfit:        totalProfit,
		ProfitPercent:      profitPercent,
		DailyChange:        dailyChange,
		DailyChangePercent: dailyChangePercent,
		AssetCount:         assetCount,
		YesterdayValue:     yesterday,
		Timestamp:          now,
	}
}

// findYesterdayValue prefers the exact previous calendar day, then the
// most recent entry strictly before today.
func findYesterdayValue(snapshots []domain.DailyProfitSnapshot, now time.Time) *decimal.Decimal {
	today := now.Format(domain.DateLayout)
	exact := now.AddDate(0, 0, -1).Format(domain.DateLayout)

	var latestBefore *domain.DailyProfitSnapshot
	for i := range snapshots {
		snap := &snapshots[i]
		if snap.Date == exact {
			v := snap.TotalValue
			return &v
		}
		if snap.Date < today && (latestBefore == nil || snap.Date > latestBefore.Date) {
			latestBefore = snap
		}
	}
	if latestBefore != nil {
		v := latestBefore.TotalValue
		return &v
	}
	return nil
}

// upsertByDate replaces the entry keyed by date or appends a new one, then
// restores ascending date order.
func upsertByDate[T any](snapshots []T, entry T, date string, dateOf func(T) string) []T {
	replaced := false
	for i := range snapshots {
		if dateOf(snapshots[i]) == date {
			snapshots[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		snapshots = append(snapshots, entry)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return dateOf(snapshots[i]) < dateOf(snapshots[j])
	})
	return snapshots
}

// trimOldest caps the series at limit entries, dropping the oldest.
func trimOldest[T any](snapshots []T, limit int) []T {
	if len(snapshots) <= limit {
		return snapshots
	}
	return snapshots[len(snapshots)-limit:]
}
