// Command ganjine runs the personal portfolio tracker: a JSON HTTP API
// over a file-backed asset ledger, with scheduled quote refreshes and
// valuation series recomputation.
//
// Usage:
//
//	ganjine --config config.yaml
//	ganjine setup   (interactive configuration wizard)
//	ganjine         (uses CLI arguments)
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/smoravej/ganjine/config"
	"github.com/smoravej/ganjine/internal/domain"
	"github.com/smoravej/ganjine/internal/history"
	"github.com/smoravej/ganjine/internal/ledger"
	"github.com/smoravej/ganjine/internal/oracle"
	"github.com/smoravej/ganjine/internal/pricecache"
	"github.com/smoravej/ganjine/internal/setup"
	"github.com/smoravej/ganjine/internal/storage/docstore"
	"github.com/smoravej/ganjine/internal/storage/ledgerstore"
	"github.com/smoravej/ganjine/internal/storage/quotearchive"
	"github.com/smoravej/ganjine/internal/web"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", setup.GeneratedConfigFile}
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerStore, err := ledgerstore.New(filepath.Join(cfg.DataDir, "assets.json"))
	if err != nil {
		logger.Fatal("init ledger store", zap.Error(err))
	}
	boardStore, err := docstore.New[map[domain.Category][]domain.Quote](filepath.Join(cfg.DataDir, "prices.json"))
	if err != nil {
		logger.Fatal("init quote store", zap.Error(err))
	}
	archive, err := quotearchive.NewWALStore(filepath.Join(cfg.DataDir, "quotes_wal"))
	if err != nil {
		logger.Fatal("init quote archive", zap.Error(err))
	}
	defer archive.Close()

	bulk := oracle.NewBaha24(cfg.BulkOracleURL)
	single := oracle.NewChartix(cfg.SingleOracleURL, logger)
	cache := pricecache.New(bulk, single, boardStore, logger,
		pricecache.WithTTL(cfg.QuoteTTL),
		pricecache.WithBackoff(cfg.RateLimitBackoff),
		pricecache.WithArchive(archive))

	hist, err := history.New(cfg.DataDir, logger)
	if err != nil {
		logger.Fatal("init history service", zap.Error(err))
	}

	transactions := ledger.New(ledgerStore, cache, hist, logger)

	// Warm start: fetch quotes and bring all series up to date before
	// serving. Oracle failures degrade, they never block startup.
	if _, err := cache.Refresh(ctx); err != nil {
		logger.Warn("initial quote refresh degraded", zap.Error(err))
	}
	if err := transactions.Recompute(ctx); err != nil {
		logger.Warn("initial series recompute failed", zap.Error(err))
	}

	refreshQuotes := func(ctx context.Context) error {
		_, err := cache.Refresh(ctx)
		return err
	}
	go runEvery(ctx, cfg.PriceInterval, "quote refresh", logger, refreshQuotes)
	go runEvery(ctx, cfg.ChartInterval, "chart recompute", logger, transactions.RecomputeChart)
	go runEvery(ctx, cfg.ComparisonInterval, "comparison recompute", logger, transactions.RecomputeComparison)
	go runEvery(ctx, cfg.DailyProfitInterval, "daily profit recompute", logger, transactions.RecomputeDailyProfit)

	server := web.NewServer(cfg.ListenAddr, transactions, hist, cache, logger)
	if err := server.Run(ctx); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// runEvery invokes job on every tick until ctx is cancelled. Failures are
// logged and retried implicitly on the next tick.
func runEvery(ctx context.Context, interval time.Duration, name string, logger *zap.Logger, job func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job(ctx); err != nil {
				logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}
