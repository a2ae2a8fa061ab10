package edgar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
	"github.com/hodlsight/hodlsight/pkg/utils"
)

// submissions fetches and caches a company's submissions index.
func (p *Provider) submissions(ctx context.Context, cik string) (*submissionsResponse, error) {
	cacheKey := "submissions:" + cik
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(*submissionsResponse), nil
	}

	var resp submissionsResponse
	if err := p.getJSON(ctx, p.submissionsURL(cik), &resp); err != nil {
		return nil, fmt.Errorf("edgar submissions for CIK %s: %w", cik, err)
	}
	p.cache.Set(cacheKey, &resp)
	return &resp, nil
}

// CompanyName returns the registrant name from the submissions index.
func (p *Provider) CompanyName(ctx context.Context, cik string) (string, error) {
	resp, err := p.submissions(ctx, cik)
	if err != nil {
		return "", err
	}
	return resp.Name, nil
}

// FilingHistory enumerates a company's filings back to the since date. The
// inline recent set is used as-is; supplementary history files are fetched
// only when the recent set does not reach back far enough, capped at
// maxHistoryPages and fetched two at a time. The result is sorted
// descending by filing date and deduplicated by accession number.
func (p *Provider) FilingHistory(ctx context.Context, cik string, since time.Time) ([]models.FilingReference, error) {
	resp, err := p.submissions(ctx, cik)
	if err != nil {
		return nil, err
	}

	refs := referencesFromSet(resp.Filings.Recent, cik)

	if needsHistoryPages(refs, since) {
		pages := selectHistoryFiles(resp.Filings.Files, since, p.maxHistoryPages)

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(historyFetchConcurrency)
		for _, hf := range pages {
			g.Go(func() error {
				var page historyPage
				if err := p.getJSON(gctx, p.historyFileURL(hf.Name), &page); err != nil {
					return fmt.Errorf("edgar history page %s: %w", hf.Name, err)
				}
				more := referencesFromSet(filingSet(page), cik)
				mu.Lock()
				refs = append(refs, more...)
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(refs, func(i, j int) bool {
		return refs[i].FilingDate.After(refs[j].FilingDate)
	})
	return dedupeByAccession(refs), nil
}

// referencesFromSet converts EDGAR's column-oriented filing set into
// references. Rows with a missing accession number are dropped.
func referencesFromSet(set filingSet, cik string) []models.FilingReference {
	refs := make([]models.FilingReference, 0, len(set.AccessionNumber))
	for i, accNo := range set.AccessionNumber {
		if accNo == "" {
			continue
		}
		ref := models.FilingReference{
			AccessionNumber: accNo,
			CIK:             cik,
		}
		if i < len(set.Form) {
			ref.FormType = set.Form[i]
		}
		if i < len(set.FilingDate) {
			ref.FilingDate = parseFilingDate(set.FilingDate[i])
		}
		if i < len(set.PrimaryDocument) {
			ref.PrimaryDocument = set.PrimaryDocument[i]
		}
		refs = append(refs, ref)
	}
	return refs
}

// needsHistoryPages reports whether the refs already cover the since date.
func needsHistoryPages(refs []models.FilingReference, since time.Time) bool {
	if since.IsZero() {
		return false
	}
	earliest := time.Time{}
	for _, r := range refs {
		if r.FilingDate.IsZero() {
			continue
		}
		if earliest.IsZero() || r.FilingDate.Before(earliest) {
			earliest = r.FilingDate
		}
	}
	return earliest.IsZero() || earliest.After(since)
}

// selectHistoryFiles picks the supplementary files whose date range touches
// the desired window, newest first, bounded by max.
func selectHistoryFiles(files []historyFile, since time.Time, max int) []historyFile {
	var picked []historyFile
	for _, hf := range files {
		to := parseFilingDate(hf.FilingTo)
		if !to.IsZero() && to.Before(since) {
			continue
		}
		picked = append(picked, hf)
		if len(picked) >= max {
			break
		}
	}
	return picked
}

func dedupeByAccession(refs []models.FilingReference) []models.FilingReference {
	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, r := range refs {
		if seen[r.AccessionNumber] {
			continue
		}
		seen[r.AccessionNumber] = true
		out = append(out, r)
	}
	return out
}

// ---- CompanyFilings fetcher ----
// Registry-facing wrapper over FilingHistory.

type companyFilingsFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newCompanyFilingsFetcher(p *Provider) *companyFilingsFetcher {
	return &companyFilingsFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelCompanyFilings,
			"List a company's SEC filings by ticker or CIK",
			[]string{provider.ParamSymbol},
			[]string{provider.ParamStartDate},
			10*time.Minute, 8, time.Second,
		),
		p: p,
	}
}

func (f *companyFilingsFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}

	cik, err := f.p.ResolveCIK(ctx, params[provider.ParamSymbol])
	if err != nil {
		return nil, err
	}

	since := time.Time{}
	if sd := params[provider.ParamStartDate]; sd != "" {
		t, ok := utils.ParseDate(sd)
		if !ok {
			return nil, fmt.Errorf("invalid start_date %q", sd)
		}
		since = t
	}

	refs, err := f.p.FilingHistory(ctx, cik, since)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, refs)
	return newResult(refs), nil
}
