package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaha24FetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"symbol":"USDT","title":"Tether","sell":"100000","last_update":"2026-03-01 12:00"},
			{"symbol":"BITCOIN","title":"Bitcoin","sell":"60000"}
		]`))
	}))
	defer srv.Close()

	quotes, err := NewBaha24(srv.URL).FetchQuotes(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "USDT", quotes[0].Symbol)
	assert.True(t, decimal.NewFromInt(100000).Equal(quotes[0].Sell))
	assert.Equal(t, "2026-03-01 12:00", quotes[0].LastUpdate)
}

func TestBaha24RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewBaha24(srv.URL).FetchQuotes(context.Background())
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestBaha24BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewBaha24(srv.URL).FetchQuotes(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestBaha24BadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	_, err := NewBaha24(srv.URL).FetchQuotes(context.Background())
	require.Error(t, err)
}
