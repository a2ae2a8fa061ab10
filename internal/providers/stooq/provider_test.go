package stooq

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/hodlsight/hodlsight/internal/provider"
)

func newTestServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
}

func TestDailyCloses(t *testing.T) {
	srv := newTestServer(`Date,Open,High,Low,Close,Volume
2024-01-03,42800,43100,42500,42950,1200
2024-01-01,42000,42500,41800,42300,1000
2024-01-02,42300,42900,42100,42850,N/D
`)
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	series, err := p.DailyCloses(context.Background(), "btcusd", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("DailyCloses failed: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("got %d points, want 3", len(series))
	}

	// Oldest first, regardless of response order.
	if !series.Sorted() {
		t.Error("series not sorted ascending")
	}
	if series[0].Value != 42300 {
		t.Errorf("first close = %v, want 42300", series[0].Value)
	}
	if series[2].Value != 42950 {
		t.Errorf("last close = %v, want 42950", series[2].Value)
	}
	if !series[0].Date.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first date = %v, want 2024-01-01 UTC midnight", series[0].Date)
	}
}

func TestDailyClosesSkipsBadRows(t *testing.T) {
	srv := newTestServer(`Date,Open,High,Low,Close,Volume
2024-01-01,42000,42500,41800,42300,1000
2024-01-02,42300,42900,42100,N/D,900
not-a-date,1,1,1,1,1
`)
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	series, err := p.DailyCloses(context.Background(), "btcusd", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("DailyCloses failed: %v", err)
	}
	if len(series) != 1 {
		t.Fatalf("got %d points, want 1 after skipping bad rows", len(series))
	}
}

func TestDailyClosesEmptyResponse(t *testing.T) {
	srv := newTestServer("")
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.DailyCloses(context.Background(), "btcusd", time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestDailyClosesNoData(t *testing.T) {
	// Stooq answers unknown symbols with a bare message, not CSV.
	srv := newTestServer("No data\n")
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	if _, err := p.DailyCloses(context.Background(), "nosuchsym", time.Time{}, time.Time{}); err == nil {
		t.Fatal("expected error for missing symbol")
	}
}

func TestDailyClosesRangeParams(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, "Date,Open,High,Low,Close,Volume\n2024-01-01,1,1,1,42300,1\n")
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := p.DailyCloses(context.Background(), "BTCUSD", from, to); err != nil {
		t.Fatalf("DailyCloses failed: %v", err)
	}

	want := map[string]string{"s": "btcusd", "i": "d", "d1": "20240101", "d2": "20240201"}
	for k, v := range want {
		if got := gotQuery.Get(k); got != v {
			t.Errorf("query param %s = %q, want %q", k, got, v)
		}
	}
}

func TestHistoricalFetcher(t *testing.T) {
	srv := newTestServer("Date,Open,High,Low,Close,Volume\n2024-01-01,1,1,1,42300,1\n")
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	f := p.Fetcher(provider.ModelCryptoHistorical)
	if f == nil {
		t.Fatal("missing historical fetcher")
	}

	res, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "btcusd"})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.Cached {
		t.Error("first fetch should not be cached")
	}

	res, err = f.Fetch(context.Background(), provider.QueryParams{provider.ParamSymbol: "btcusd"})
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if !res.Cached {
		t.Error("second fetch should come from cache")
	}
}
