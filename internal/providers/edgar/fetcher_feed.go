package edgar

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
)

// LatestFilingsFeed parses a company's EDGAR Atom feed. The feed updates
// ahead of the submissions JSON, so it serves as a cheap freshness check
// for the latest disclosure.
func (p *Provider) LatestFilingsFeed(ctx context.Context, cik string, limit int) ([]models.FilingFeedItem, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", padCIK(cik))
	q.Set("owner", "include")
	q.Set("count", "40")
	q.Set("output", "atom")
	feedURL := p.browseURL + "?" + q.Encode()

	parser := gofeed.NewParser()
	parser.UserAgent = p.userAgent
	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("edgar atom feed for CIK %s: %w", cik, err)
	}

	var items []models.FilingFeedItem
	for _, entry := range feed.Items {
		item := models.FilingFeedItem{
			Title:    entry.Title,
			FormType: feedFormType(entry),
			Link:     entry.Link,
		}
		if entry.UpdatedParsed != nil {
			item.Filed = *entry.UpdatedParsed
		} else if entry.PublishedParsed != nil {
			item.Filed = *entry.PublishedParsed
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

// feedFormType recovers the form type from an Atom entry. EDGAR puts it in
// the category term, falling back to the title prefix ("8-K - Current
// report").
func feedFormType(entry *gofeed.Item) string {
	for _, c := range entry.Categories {
		if c != "" {
			return c
		}
	}
	if i := strings.Index(entry.Title, " - "); i > 0 {
		return strings.TrimSpace(entry.Title[:i])
	}
	return ""
}

// ---- FilingFeed fetcher ----

type filingFeedFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newFilingFeedFetcher(p *Provider) *filingFeedFetcher {
	return &filingFeedFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelFilingFeed,
			"Latest filings from a company's EDGAR Atom feed",
			[]string{provider.ParamSymbol},
			[]string{provider.ParamLimit},
			5*time.Minute, 8, time.Second,
		),
		p: p,
	}
}

func (f *filingFeedFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}

	cik, err := f.p.ResolveCIK(ctx, params[provider.ParamSymbol])
	if err != nil {
		return nil, err
	}

	limit := 0
	if lim := params[provider.ParamLimit]; lim != "" {
		fmt.Sscanf(lim, "%d", &limit)
	}

	items, err := f.p.LatestFilingsFeed(ctx, cik, limit)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, items)
	return newResult(items), nil
}
