// Package edgar implements the SEC EDGAR filing provider: company filing
// discovery via the submissions API, document retrieval from the EDGAR
// archives, and the company Atom filing feed.
//
// No API key required. SEC policy requires a User-Agent identifying the
// caller and expects no more than ~10 requests/second; this provider
// self-throttles well below that.
// Docs: https://www.sec.gov/edgar/sec-api-documentation
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hodlsight/hodlsight/internal/infra"
	"github.com/hodlsight/hodlsight/internal/provider"
)

const (
	providerName = "edgar"

	defaultDataURL    = "https://data.sec.gov"
	defaultArchiveURL = "https://www.sec.gov/Archives"
	defaultBrowseURL  = "https://www.sec.gov/cgi-bin/browse-edgar"

	defaultUserAgent = "hodlsight/1.0 (github.com/hodlsight/hodlsight)"

	// defaultMaxHistoryPages caps supplementary history-file fetches per
	// company, bounding index cost for long filer histories.
	defaultMaxHistoryPages = 4

	// historyFetchConcurrency bounds in-flight history-page fetches.
	historyFetchConcurrency = 2
)

// Provider implements provider.Provider for SEC EDGAR. It also exposes
// concrete methods consumed directly by the treasury aggregator.
type Provider struct {
	provider.BaseProvider

	userAgent       string
	dataURL         string
	archiveURL      string
	browseURL       string
	maxHistoryPages int

	cache   *infra.Cache
	limiter *infra.RateLimiter
}

// Option configures the provider.
type Option func(*Provider)

// WithUserAgent sets the User-Agent sent to SEC endpoints.
func WithUserAgent(ua string) Option {
	return func(p *Provider) { p.userAgent = ua }
}

// WithDataURL overrides the data API base URL.
func WithDataURL(u string) Option {
	return func(p *Provider) { p.dataURL = strings.TrimRight(u, "/") }
}

// WithArchiveURL overrides the archives base URL.
func WithArchiveURL(u string) Option {
	return func(p *Provider) { p.archiveURL = strings.TrimRight(u, "/") }
}

// WithBrowseURL overrides the browse (Atom feed) base URL.
func WithBrowseURL(u string) Option {
	return func(p *Provider) { p.browseURL = strings.TrimRight(u, "/") }
}

// WithMaxHistoryPages caps supplementary history-file fetches.
func WithMaxHistoryPages(n int) Option {
	return func(p *Provider) { p.maxHistoryPages = n }
}

// New creates an EDGAR provider and registers its fetchers.
func New(opts ...Option) *Provider {
	p := &Provider{
		BaseProvider: provider.NewBaseProvider(
			providerName,
			"SEC EDGAR — US securities filings and filing documents",
			"https://www.sec.gov/edgar",
			nil, // no credentials required
		),
		userAgent:       defaultUserAgent,
		dataURL:         defaultDataURL,
		archiveURL:      defaultArchiveURL,
		browseURL:       defaultBrowseURL,
		maxHistoryPages: defaultMaxHistoryPages,
		cache:           infra.NewCache(10 * time.Minute),
		limiter:         infra.NewRateLimiter(8, time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.RegisterFetcher(newCompanyFilingsFetcher(p))
	p.RegisterFetcher(newFilingDocumentFetcher(p))
	p.RegisterFetcher(newFilingFeedFetcher(p))
	return p
}

// Ping checks connectivity to the submissions endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	// MicroStrategy; any stable CIK works.
	if _, err := p.submissions(ctx, "1050446"); err != nil {
		return fmt.Errorf("edgar ping: %w", err)
	}
	return nil
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"User-Agent": p.userAgent,
		"Accept":     "application/json",
	}
}

// getJSON performs a rate-limited GET and decodes the JSON response.
func (p *Provider) getJSON(ctx context.Context, url string, dest any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	data, err := infra.GetBytes(ctx, url, p.headers())
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse EDGAR JSON from %s: %w", url, err)
	}
	return nil
}

// getRaw performs a rate-limited GET and returns the raw body.
func (p *Provider) getRaw(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return infra.GetBytes(ctx, url, map[string]string{"User-Agent": p.userAgent})
}

// ResolveCIK resolves a ticker symbol to its CIK via the SEC ticker mapping.
// A numeric input is taken as a CIK already.
func (p *Provider) ResolveCIK(ctx context.Context, symbol string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if isNumeric(sym) {
		return strings.TrimLeft(sym, "0"), nil
	}

	cacheKey := "cik:" + sym
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(string), nil
	}

	var tickers map[string]tickerEntry
	if err := p.getJSON(ctx, p.dataURL+"/files/company_tickers.json", &tickers); err != nil {
		return "", fmt.Errorf("fetch company tickers: %w", err)
	}
	for _, entry := range tickers {
		if strings.EqualFold(entry.Ticker, sym) {
			cik := cikString(entry.CIKStr)
			p.cache.Set(cacheKey, cik)
			return cik, nil
		}
	}
	return "", fmt.Errorf("CIK not found for symbol %s", symbol)
}

// --- URL construction ---

// padCIK pads a CIK to the 10 digits the submissions endpoint expects.
func padCIK(cik string) string {
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

func (p *Provider) submissionsURL(cik string) string {
	return fmt.Sprintf("%s/submissions/CIK%s.json", p.dataURL, padCIK(cik))
}

func (p *Provider) historyFileURL(name string) string {
	return fmt.Sprintf("%s/submissions/%s", p.dataURL, name)
}

func (p *Provider) filingDirURL(cik, accessionNumber string) string {
	return fmt.Sprintf("%s/edgar/data/%s/%s",
		p.archiveURL, strings.TrimLeft(cik, "0"), strings.ReplaceAll(accessionNumber, "-", ""))
}

// PrimaryDocumentURL locates a filing's declared primary document.
func (p *Provider) PrimaryDocumentURL(cik, accessionNumber, primaryDocument string) string {
	return p.filingDirURL(cik, accessionNumber) + "/" + primaryDocument
}

// SubmissionTextURL locates a filing's complete combined submission text.
func (p *Provider) SubmissionTextURL(cik, accessionNumber string) string {
	return p.filingDirURL(cik, accessionNumber) + "/" + accessionNumber + ".txt"
}

func (p *Provider) filingIndexURL(cik, accessionNumber string) string {
	return p.filingDirURL(cik, accessionNumber) + "/index.json"
}

// --- small helpers ---

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// cikString renders the cik_str field, which the SEC serves as a number in
// some dumps and a string in others.
func cikString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimLeft(t, "0")
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func newResult(data any) *provider.FetchResult {
	return &provider.FetchResult{Data: data, FetchedAt: time.Now()}
}

func newCachedResult(data any) *provider.FetchResult {
	return &provider.FetchResult{Data: data, FetchedAt: time.Now(), Cached: true}
}
