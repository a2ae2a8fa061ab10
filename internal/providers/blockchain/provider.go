// Package blockchain implements a provider backed by the blockchain.info
// query API, used for the Bitcoin chain tip and the halving countdown derived
// from it.
package blockchain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hodlsight/hodlsight/internal/infra"
	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
)

const (
	providerName   = "blockchain"
	defaultBaseURL = "https://blockchain.info"

	// The subsidy halves every 210,000 blocks; blocks arrive roughly every
	// ten minutes.
	halvingInterval  = 210_000
	targetBlockSpace = 10 * time.Minute
)

// Provider implements provider.Provider for blockchain.info.
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

// New creates a blockchain.info provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"blockchain.info - Bitcoin chain state",
			"https://blockchain.info",
			nil,
		),
		baseURL: defaultBaseURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.RegisterFetcher(newBlockHeightFetcher(p))
	return p
}

// Ping verifies the API answers.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.BlockHeight(ctx)
	return err
}

// BlockHeight returns the current Bitcoin chain height.
func (p *Provider) BlockHeight(ctx context.Context) (int64, error) {
	body, err := infra.GetBytes(ctx, p.baseURL+"/q/getblockcount", nil)
	if err != nil {
		return 0, fmt.Errorf("blockchain fetch height: %w", err)
	}
	height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("blockchain parse height %q: %w", strings.TrimSpace(string(body)), err)
	}
	if height <= 0 {
		return 0, fmt.Errorf("blockchain: implausible height %d", height)
	}
	return height, nil
}

// HalvingCountdown returns the countdown to the next subsidy halving,
// estimated at the target block spacing.
func (p *Provider) HalvingCountdown(ctx context.Context) (*models.HalvingCountdown, error) {
	height, err := p.BlockHeight(ctx)
	if err != nil {
		return nil, err
	}
	return CountdownAt(height, time.Now()), nil
}

// CountdownAt derives the halving countdown for a given chain height. A
// height that lands exactly on a halving boundary counts toward the next
// interval.
func CountdownAt(height int64, now time.Time) *models.HalvingCountdown {
	next := (height/halvingInterval + 1) * halvingInterval
	remaining := next - height
	return &models.HalvingCountdown{
		CurrentHeight:   height,
		HalvingHeight:   next,
		BlocksRemaining: remaining,
		EstimatedAt:     now.Add(time.Duration(remaining) * targetBlockSpace),
		FetchedAt:       now,
	}
}

// ---- BlockHeight fetcher ----

type blockHeightFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newBlockHeightFetcher(p *Provider) *blockHeightFetcher {
	return &blockHeightFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelBlockHeight,
			"Current Bitcoin chain height with halving countdown",
			nil,
			nil,
			time.Minute, 10, time.Minute,
		),
		p: p,
	}
}

func (f *blockHeightFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return &provider.FetchResult{Data: cached, FetchedAt: time.Now(), Cached: true}, nil
	}
	if err := f.RateLimit(ctx); err != nil {
		return nil, err
	}

	countdown, err := f.p.HalvingCountdown(ctx)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, countdown)
	return &provider.FetchResult{Data: countdown, FetchedAt: time.Now()}, nil
}
