// Package coingecko implements a provider backed by the CoinGecko REST API.
// The public endpoints work without a key; a demo key raises the rate limit.
//
// Docs: https://docs.coingecko.com/reference/introduction
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hodlsight/hodlsight/internal/infra"
	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
)

const (
	providerName   = "coingecko"
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	credAPIKey     = "api_key"
)

type coinMarketResponse struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Name         string  `json:"name"`
	CurrentPrice float64 `json:"current_price"`
	MarketCap    float64 `json:"market_cap"`
	TotalVolume  float64 `json:"total_volume"`
	Change24h    float64 `json:"price_change_percentage_24h"`
	LastUpdated  string  `json:"last_updated"`
}

// Provider implements provider.Provider for CoinGecko.
type Provider struct {
	provider.BaseProvider
	baseURL string
}

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
}

// New creates a CoinGecko provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"CoinGecko - cryptocurrency market data",
			"https://www.coingecko.com",
			[]provider.ProviderCredential{
				{
					Name:        credAPIKey,
					Description: "CoinGecko demo API key (optional, raises rate limit)",
					Required:    false,
					EnvVar:      "COINGECKO_API_KEY",
				},
			},
		),
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.RegisterFetcher(newCoinMarketFetcher(p))
	return p
}

// Ping verifies the API answers.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := infra.GetBytes(ctx, p.baseURL+"/ping", p.headers())
	return err
}

func (p *Provider) headers() map[string]string {
	if key := p.Credential(credAPIKey); key != "" {
		return map[string]string{"x-cg-demo-api-key": key}
	}
	return nil
}

// CoinMarket returns the current market snapshot for a coin by its CoinGecko
// id, e.g. "bitcoin".
func (p *Provider) CoinMarket(ctx context.Context, coinID string) (*models.CoinMarket, error) {
	id := strings.ToLower(strings.TrimSpace(coinID))
	if id == "" {
		return nil, fmt.Errorf("coingecko: empty coin id")
	}

	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", id)

	body, err := infra.GetBytes(ctx, p.baseURL+"/coins/markets?"+q.Encode(), p.headers())
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch %s: %w", id, err)
	}

	var resp []coinMarketResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coingecko decode %s: %w", id, err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("coingecko: unknown coin %s", id)
	}

	m := resp[0]
	updated, _ := time.Parse(time.RFC3339, m.LastUpdated)
	return &models.CoinMarket{
		ID:           m.ID,
		Symbol:       strings.ToUpper(m.Symbol),
		Name:         m.Name,
		PriceUSD:     m.CurrentPrice,
		MarketCapUSD: m.MarketCap,
		Volume24hUSD: m.TotalVolume,
		ChangePct24h: m.Change24h,
		UpdatedAt:    updated,
	}, nil
}

// ---- CoinMarket fetcher ----

type coinMarketFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newCoinMarketFetcher(p *Provider) *coinMarketFetcher {
	return &coinMarketFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelCoinMarket,
			"Current price, market cap and volume for a coin",
			[]string{provider.ParamCoin},
			nil,
			time.Minute, 10, time.Minute,
		),
		p: p,
	}
}

func (f *coinMarketFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return &provider.FetchResult{Data: cached, FetchedAt: time.Now(), Cached: true}, nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	market, err := f.p.CoinMarket(ctx, params[provider.ParamCoin])
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, market)
	return &provider.FetchResult{Data: market, FetchedAt: time.Now()}, nil
}
