// Package config loads runtime settings from a yaml file or CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither the yaml config nor a flag sets a value.
const (
	DefaultListenAddr          = ":8080"
	DefaultDataDir             = "data"
	DefaultQuoteTTL            = 5 * time.Minute
	DefaultRateLimitBackoff    = 10 * time.Minute
	DefaultPriceInterval       = 5 * time.Minute
	DefaultChartInterval       = time.Hour
	DefaultDailyProfitInterval = 2 * time.Hour
	DefaultComparisonInterval  = 3 * time.Hour
)

type Config struct {
	ListenAddr          string
	DataDir             string
	BulkOracleURL       string
	SingleOracleURL     string
	QuoteTTL            time.Duration
	RateLimitBackoff    time.Duration
	PriceInterval       time.Duration
	ChartInterval       time.Duration
	DailyProfitInterval time.Duration
	ComparisonInterval  time.Duration
}

// FileConfig mirrors the yaml layout of the config file. The setup
// wizard marshals it when generating config.gen.yaml.
type FileConfig struct {
	ListenAddr          string        `yaml:"listen_addr,omitempty"`
	DataDir             string        `yaml:"data_dir,omitempty"`
	BulkOracleURL       string        `yaml:"bulk_oracle_url,omitempty"`
	SingleOracleURL     string        `yaml:"single_oracle_url,omitempty"`
	QuoteTTL            time.Duration `yaml:"quote_ttl,omitempty"`
	RateLimitBackoff    time.Duration `yaml:"rate_limit_backoff,omitempty"`
	PriceInterval       time.Duration `yaml:"price_interval,omitempty"`
	ChartInterval       time.Duration `yaml:"chart_interval,omitempty"`
	DailyProfitInterval time.Duration `yaml:"daily_profit_interval,omitempty"`
	ComparisonInterval  time.Duration `yaml:"comparison_interval,omitempty"`
}

func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	listen := flag.String("listen", DefaultListenAddr, "http listen address")
	dataDir := flag.String("datadir", DefaultDataDir, "directory holding ledger and series files")
	priceInterval := flag.Duration("priceinterval", DefaultPriceInterval, "quote refresh interval")
	chartInterval := flag.Duration("chartinterval", DefaultChartInterval, "chart series recompute interval")
	dailyProfitInterval := flag.Duration("dailyprofitinterval", DefaultDailyProfitInterval, "daily profit recompute interval")
	comparisonInterval := flag.Duration("comparisoninterval", DefaultComparisonInterval, "comparison series recompute interval")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg := Config{
		ListenAddr:          *listen,
		DataDir:             *dataDir,
		QuoteTTL:            DefaultQuoteTTL,
		RateLimitBackoff:    DefaultRateLimitBackoff,
		PriceInterval:       *priceInterval,
		ChartInterval:       *chartInterval,
		DailyProfitInterval: *dailyProfitInterval,
		ComparisonInterval:  *comparisonInterval,
	}
	return cfg, validate(cfg)
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp FileConfig
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("parse yaml config %s: %w", path, err)
	}

	cfg := Config{
		ListenAddr:          tmp.ListenAddr,
		DataDir:             tmp.DataDir,
		BulkOracleURL:       tmp.BulkOracleURL,
		SingleOracleURL:     tmp.SingleOracleURL,
		QuoteTTL:            tmp.QuoteTTL,
		RateLimitBackoff:    tmp.RateLimitBackoff,
		PriceInterval:       tmp.PriceInterval,
		ChartInterval:       tmp.ChartInterval,
		DailyProfitInterval: tmp.DailyProfitInterval,
		ComparisonInterval:  tmp.ComparisonInterval,
	}
	applyDefaults(&cfg)
	return cfg, validate(cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	if cfg.QuoteTTL == 0 {
		cfg.QuoteTTL = DefaultQuoteTTL
	}
	if cfg.RateLimitBackoff == 0 {
		cfg.RateLimitBackoff = DefaultRateLimitBackoff
	}
	if cfg.PriceInterval == 0 {
		cfg.PriceInterval = DefaultPriceInterval
	}
	if cfg.ChartInterval == 0 {
		cfg.ChartInterval = DefaultChartInterval
	}
	if cfg.DailyProfitInterval == 0 {
		cfg.DailyProfitInterval = DefaultDailyProfitInterval
	}
	if cfg.ComparisonInterval == 0 {
		cfg.ComparisonInterval = DefaultComparisonInterval
	}
}

func validate(cfg Config) error {
	for name, d := range map[string]time.Duration{
		"quote_ttl":             cfg.QuoteTTL,
		"rate_limit_backoff":    cfg.RateLimitBackoff,
		"price_interval":        cfg.PriceInterval,
		"chart_interval":        cfg.ChartInterval,
		"daily_profit_interval": cfg.DailyProfitInterval,
		"comparison_interval":   cfg.ComparisonInterval,
	} {
		if d < 0 {
			return fmt.Errorf("negative %s in config: %s", name, d)
		}
	}
	return nil
}
