package oracle

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultSingleURL is the production page carrying the AYAR gold price.
const DefaultSingleURL = "https://chartix.ir/market/saham/BRS00927"

const (
	singleTimeout = 10 * time.Second

	// AyarSymbol is the symbol the secondary oracle quotes.
	AyarSymbol = "AYAR"
	// AyarSource labels quotes produced by this oracle.
	AyarSource = "chartix.ir"
)

var (
	// defaultAyarPrice is served whenever the page yields nothing usable.
	// It is the last digit-adjusted value observed in production (355105
	// with the trailing digit dropped).
	defaultAyarPrice = decimal.NewFromInt(35510)

	// Tier-3 heuristic: grouped numbers in the plausible AYAR range.
	groupedNumberRe = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\b`)
	ayarRangeLow    = decimal.NewFromInt(300000)
	ayarRangeHigh   = decimal.NewFromInt(400000)

	ten = decimal.NewFromInt(10)
)

// Chartix scrapes the AYAR price from an HTML page with a three-tier
// extraction fallback. It carries no retry or backoff state: every call
// is a fresh attempt, and extraction failure degrades to the default
// price rather than an error.
type Chartix struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewChartix creates the secondary oracle against the given page URL,
// falling back to DefaultSingleURL when empty.
func NewChartix(url string, logger *zap.Logger) *Chartix {
	if url == "" {
		url = DefaultSingleURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chartix{
		url:    url,
		client: &http.Client{Timeout: singleTimeout},
		logger: logger,
	}
}

// FetchPrice fetches and extracts the AYAR price. It never returns an
// error: any failure yields the documented default.
func (c *Chartix) FetchPrice(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		c.logger.Warn("ayar request build failed, using default", zap.Error(err))
		return defaultAyarPrice, nil
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("ayar fetch failed, using default", zap.Error(err))
		return defaultAyarPrice, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ayar fetch bad status, using default", zap.Int("status", resp.StatusCode))
		return defaultAyarPrice, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.logger.Warn("ayar page parse failed, using default", zap.Error(err))
		return defaultAyarPrice, nil
	}

	if price, ok := c.extract(doc); ok {
		return price, nil
	}

	c.logger.Warn("ayar price not found on page, using default")
	return defaultAyarPrice, nil
}

// extract runs the three extraction tiers in order.
func (c *Chartix) extract(doc *goquery.Document) (decimal.Decimal, bool) {
	// Tier 1: the dedicated price element.
	if text := doc.Find(`p[data-v-31f00d67] b.text-white.font-sans`).First().Text(); text != "" {
		if price, ok := parseGroupedNumber(text); ok {
			return dropLastDigit(price), true
		}
	}

	// Tier 2: any paragraph labelled "آخرین قیمت" (last price) with a
	// highlighted bold value.
	var found decimal.Decimal
	var ok bool
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if !strings.Contains(p.Text(), "آخرین قیمت") {
			return true
		}
		p.Find("b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
			class, _ := b.Attr("class")
			if !strings.Contains(class, "text-white") {
				return true
			}
			if price, parsed := parseGroupedNumber(b.Text()); parsed {
				found, ok = dropLastDigit(price), true
				return false
			}
			return true
		})
		return !ok
	})
	if ok {
		return found, true
	}

	// Tier 3: any grouped number on the page within the plausible range.
	for _, match := range groupedNumberRe.FindAllString(doc.Text(), -1) {
		price, parsed := parseGroupedNumber(match)
		if !parsed {
			continue
		}
		if price.GreaterThanOrEqual(ayarRangeLow) && price.LessThanOrEqual(ayarRangeHigh) {
			return dropLastDigit(price), true
		}
	}

	return decimal.Zero, false
}

// parseGroupedNumber parses a comma-grouped integer like "355,105".
func parseGroupedNumber(text string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if cleaned == "" {
		return decimal.Zero, false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return decimal.Zero, false
		}
	}
	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

// dropLastDigit removes the trailing digit of the scraped integer, the
// source page's unit adjustment (355105 → 35510).
func dropLastDigit(price decimal.Decimal) decimal.Decimal {
	return price.Div(ten).Floor()
}
