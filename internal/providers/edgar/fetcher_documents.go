package edgar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
)

// Document fetches one filing document as raw markup.
func (p *Provider) Document(ctx context.Context, url string) (string, error) {
	data, err := p.getRaw(ctx, url)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FilingDocuments enumerates the HTML documents inside a filing package,
// ordered by extraction priority. Which physical document carries the
// treasury disclosure varies filing-to-filing with no reliable naming
// convention, so the order is a heuristic: press-release/exhibit documents
// first, then the primary filing body, then everything else.
func (p *Provider) FilingDocuments(ctx context.Context, ref models.FilingReference) ([]models.FilingDocument, error) {
	var resp filingIndexResponse
	if err := p.getJSON(ctx, p.filingIndexURL(ref.CIK, ref.AccessionNumber), &resp); err != nil {
		return nil, fmt.Errorf("edgar filing index %s: %w", ref.AccessionNumber, err)
	}

	base := p.filingDirURL(ref.CIK, ref.AccessionNumber)
	var docs []models.FilingDocument
	for _, item := range resp.Directory.Items {
		name := strings.ToLower(item.Name)
		if !strings.HasSuffix(name, ".htm") && !strings.HasSuffix(name, ".html") {
			continue
		}
		docs = append(docs, models.FilingDocument{
			Name:        item.Name,
			Type:        item.Type,
			Description: item.LastModified,
			URL:         base + "/" + item.Name,
		})
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return documentPriority(docs[i], ref) < documentPriority(docs[j], ref)
	})
	return docs, nil
}

// documentPriority ranks a document for extraction: 0 for press-release and
// exhibit content, 1 for the primary filing body, 2 for the rest.
func documentPriority(doc models.FilingDocument, ref models.FilingReference) int {
	name := strings.ToLower(doc.Name)
	switch {
	case strings.Contains(name, "ex99"), strings.Contains(name, "ex-99"),
		strings.Contains(name, "press"):
		return 0
	case doc.Name == ref.PrimaryDocument,
		strings.Contains(name, "10-k"), strings.Contains(name, "10k"),
		strings.Contains(name, "10-q"), strings.Contains(name, "10q"),
		strings.Contains(name, "8-k"), strings.Contains(name, "8k"):
		return 1
	default:
		return 2
	}
}

// ---- FilingDocument fetcher ----

type filingDocumentFetcher struct {
	provider.BaseFetcher
	p *Provider
}

func newFilingDocumentFetcher(p *Provider) *filingDocumentFetcher {
	return &filingDocumentFetcher{
		BaseFetcher: provider.NewBaseFetcher(
			provider.ModelFilingDocument,
			"Fetch one filing document as raw markup",
			[]string{provider.ParamURL},
			nil,
			30*time.Minute, 8, time.Second,
		),
		p: p,
	}
}

func (f *filingDocumentFetcher) Fetch(ctx context.Context, params provider.QueryParams) (*provider.FetchResult, error) {
	url := params[provider.ParamURL]
	cacheKey := provider.CacheKey(f.ModelType(), params)
	if cached, ok := f.CacheGet(cacheKey); ok {
		return newCachedResult(cached), nil
	}

	doc, err := f.p.Document(ctx, url)
	if err != nil {
		return nil, err
	}

	f.CacheSet(cacheKey, doc)
	return newResult(doc), nil
}
