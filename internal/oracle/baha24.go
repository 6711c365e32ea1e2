package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// DefaultBulkURL is the production bulk quote endpoint.
const DefaultBulkURL = "https://baha24.com/api/v1/price"

const bulkTimeout = 15 * time.Second

// Baha24 is the primary bulk oracle: one JSON array of quote records per
// call.
type Baha24 struct {
	url    string
	client *http.Client
}

// NewBaha24 creates the bulk oracle against the given endpoint, falling
// back to DefaultBulkURL when empty.
func NewBaha24(url string) *Baha24 {
	if url == "" {
		url = DefaultBulkURL
	}
	return &Baha24{
		url:    url,
		client: &http.Client{Timeout: bulkTimeout},
	}
}

// FetchQuotes performs one bulk fetch. A 429 maps to ErrRateLimited so
// callers can tell backoff-worthy rejections apart from plain failures.
func (b *Baha24) FetchQuotes(ctx context.Context) ([]RawQuote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build bulk quote request")
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", "https://baha24.com/")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch bulk quotes")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("bulk oracle returned status %d", resp.StatusCode)
	}

	var quotes []RawQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, errors.Wrap(err, "decode bulk quotes")
	}
	return quotes, nil
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
