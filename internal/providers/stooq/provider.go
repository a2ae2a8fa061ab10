// Package stooq implements a provider backed by stooq.com, a free quote
// service that serves daily OHLCV history as CSV without an API key.
package stooq

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hodlsight/hodlsight/internal/infra"
	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
	"github.com/hodlsight/hodlsight/pkg/utils"
)

const defaultBaseURL = "https://stooq.com/q/d/l/"

// Provider fetches daily price history from stooq's CSV download endpoint.
type Provider struct {
	provider.BaseProvider
	baseURL string
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the CSV endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// New creates a stooq provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			"stooq",
			"Free daily OHLCV history via stooq.com CSV downloads",
			"https://stooq.com",
			nil,
		),
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.RegisterFetcher(newHistoricalFetcher(p))
	return p
}

// Ping verifies the endpoint answers for a well-known symbol.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.DailyCloses(ctx, "btcusd", time.Now().AddDate(0, 0, -7), time.Time{})
	return err
}

// DailyCloses returns the daily closing prices for a symbol, oldest first.
// A zero from/to leaves that end of the range open.
func (p *Provider) DailyCloses(ctx context.Context, symbol string, from, to time.Time) (models.TimeSeries, error) {
	sym := strings.ToLower(strings.TrimSpace(symbol))
	if sym == "" {
		return nil, fmt.Errorf("stooq: empty symbol")
	}

	q := url.Values{}
	q.Set("s", sym)
	q.Set("i", "d")
	if !from.IsZero() {
		q.Set("d1", from.Format("20060102"))
	}
	if !to.IsZero() {
		q.Set("d2", to.Format("20060102"))
	}

	body, err := infra.GetBytes(ctx, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("stooq fetch %s: %w", sym, err)
	}

	series, err := parseDailyCSV(body)
	if err != nil {
		return nil, fmt.Errorf("stooq parse %s: %w", sym, err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("stooq: no data for symbol %s", sym)
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series, nil
}

// parseDailyCSV reads stooq's Date,Open,High,Low,Close,Volume layout. Rows
// with an unparsable date or close are skipped rather than failing the whole
// download; stooq occasionally emits "N/D" placeholders.
func parseDailyCSV(data []byte) (models.TimeSeries, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty response")
	}
	if err != nil {
		return nil, err
	}
	dateCol, closeCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateCol = i
		case "close":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	var series models.TimeSeries
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) <= dateCol || len(record) <= closeCol {
			continue
		}
		day, ok := utils.ParseDate(record[dateCol])
		if !ok {
			continue
		}
		closePx, err := strconv.ParseFloat(record[closeCol], 64)
		if err != nil || closePx <= 0 {
			continue
		}
		series = append(series, models.PricePoint{Date: utils.Day(day), Value: closePx})
	}
	return series, nil
}

// ---- CryptoHistorical fetcher ----

type historicalFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newHistoricalFetcher(p *Provider) *historicalFetcher {
	return &historicalFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelCryptoHistorical,
			"Daily closing price history as a time series",
			[]string{provider.ParamSymbol},
			[]string{provider.ParamStartDate, provider.ParamEndDate},
			15*time.Minute, 4, time.Second,
		),
		p: p,
	}
}

func (f *historicalFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return &provider.FetchResult{Data: cached, FetchedAt: time.Now(), Cached: true}, nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	var from, to time.Time
	if sd := params[provider.ParamStartDate]; sd != "" {
		t, ok := utils.ParseDate(sd)
		if !ok {
			return nil, fmt.Errorf("invalid start_date %q", sd)
		}
		from = t
	}
	if ed := params[provider.ParamEndDate]; ed != "" {
		t, ok := utils.ParseDate(ed)
		if !ok {
			return nil, fmt.Errorf("invalid end_date %q", ed)
		}
		to = t
	}

	series, err := f.p.DailyCloses(ctx, params[provider.ParamSymbol], from, to)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, series)
	return &provider.FetchResult{Data: series, FetchedAt: time.Now()}, nil
}
