// Package treasury reconstructs a company's bitcoin treasury history from its
// public filings: it discovers candidate filings, mines each one for a
// disclosure fact, and turns the surviving facts into a date-ordered snapshot
// list and an average-cost step series.
package treasury

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hodlsight/hodlsight/internal/extract"
	"github.com/hodlsight/hodlsight/pkg/models"
	"github.com/hodlsight/hodlsight/pkg/utils"
)

// ErrNoTreasuryData is returned when every candidate filing was tried and
// none produced a usable disclosure.
var ErrNoTreasuryData = errors.New("no treasury disclosure found")

// FilingSource is the filing-side contract the aggregator consumes. The
// edgar provider satisfies it.
type FilingSource interface {
	ResolveCIK(ctx context.Context, symbol string) (string, error)
	CompanyName(ctx context.Context, cik string) (string, error)
	FilingHistory(ctx context.Context, cik string, since time.Time) ([]models.FilingReference, error)
	Document(ctx context.Context, url string) (string, error)
	FilingDocuments(ctx context.Context, ref models.FilingReference) ([]models.FilingDocument, error)
	PrimaryDocumentURL(cik, accessionNumber, primaryDocument string) string
	SubmissionTextURL(cik, accessionNumber string) string
}

// Policy bounds the network cost of one reconstruction. The sampling keeps
// everything inside the recent window and thins older history to a coarse
// resolution; the budget caps the fan-out outright.
type Policy struct {
	FormTypes        []string
	RecentWindowDays int
	MaxPerMonth      int
	CandidateBudget  int
	Workers          int
}

// DefaultPolicy returns the standard sampling policy.
func DefaultPolicy() Policy {
	return Policy{
		FormTypes:        []string{"10-K", "10-Q", "8-K"},
		RecentWindowDays: 180,
		MaxPerMonth:      2,
		CandidateBudget:  40,
		Workers:          2,
	}
}

// Service runs the discovery and extraction pipeline.
type Service struct {
	source    FilingSource
	extractor *extract.Extractor
	policy    Policy
	now       func() time.Time
}

// NewService creates the aggregation service. A zero-valued policy field
// falls back to its default.
func NewService(source FilingSource, ex *extract.Extractor, policy Policy) *Service {
	def := DefaultPolicy()
	if len(policy.FormTypes) == 0 {
		policy.FormTypes = def.FormTypes
	}
	if policy.RecentWindowDays <= 0 {
		policy.RecentWindowDays = def.RecentWindowDays
	}
	if policy.MaxPerMonth <= 0 {
		policy.MaxPerMonth = def.MaxPerMonth
	}
	if policy.CandidateBudget <= 0 {
		policy.CandidateBudget = def.CandidateBudget
	}
	if policy.Workers <= 0 {
		policy.Workers = def.Workers
	}
	return &Service{
		source:    source,
		extractor: ex,
		policy:    policy,
		now:       time.Now,
	}
}

// Snapshots reconstructs the treasury history for a symbol back to since.
// The result is ascending by resolved date with at most one snapshot per day.
// A failed submissions-index fetch is fatal; per-filing failures are absorbed
// and only surface when nothing at all could be extracted.
func (s *Service) Snapshots(ctx context.Context, symbol string, since time.Time) ([]models.TreasurySnapshot, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))

	cik, err := s.source.ResolveCIK(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", sym, err)
	}

	refs, err := s.source.FilingHistory(ctx, cik, since)
	if err != nil {
		return nil, fmt.Errorf("filing history for %s: %w", sym, err)
	}

	cands := s.selectCandidates(refs, since)
	if len(cands) == 0 {
		return nil, fmt.Errorf("%s: %w", sym, ErrNoTreasuryData)
	}

	snaps, lastErr := s.extractAll(ctx, sym, cik, cands)
	if len(snaps) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("treasury data unavailable for %s: %w", sym, lastErr)
		}
		return nil, fmt.Errorf("%s: %w", sym, ErrNoTreasuryData)
	}

	snaps = dedupeByDate(snaps)
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].Date.Before(snaps[j].Date)
	})
	return snaps, nil
}

// Report wraps Snapshots with the display metadata the rendering side needs.
func (s *Service) Report(ctx context.Context, symbol string, since time.Time) (*models.TreasuryMeta, error) {
	snaps, err := s.Snapshots(ctx, symbol, since)
	if err != nil {
		return nil, err
	}

	meta := &models.TreasuryMeta{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Snapshots: snaps,
	}
	latest := snaps[len(snaps)-1]
	meta.SourceURL = latest.SourceURL
	meta.AsOfLabel = latest.AsOfLabel
	meta.StalenessDays = utils.StalenessDays(latest.Date, s.now())

	// Cosmetic only; the snapshots stand on their own without it.
	if cik, err := s.source.ResolveCIK(ctx, symbol); err == nil {
		if name, err := s.source.CompanyName(ctx, cik); err == nil {
			meta.CompanyName = name
		}
	}
	return meta, nil
}

// selectCandidates applies the form filter and sampling policy to the
// descending reference list. Everything inside the recent window is kept;
// older filings are thinned to MaxPerMonth per calendar month. Selection
// stops at the budget or at the first filing older than since.
func (s *Service) selectCandidates(refs []models.FilingReference, since time.Time) []models.FilingReference {
	recentCutoff := s.now().AddDate(0, 0, -s.policy.RecentWindowDays)
	perMonth := make(map[int]int)

	var cands []models.FilingReference
	for _, ref := range refs {
		if !since.IsZero() && ref.FilingDate.Before(since) {
			break
		}
		if !s.relevantForm(ref.FormType) {
			continue
		}
		if ref.FilingDate.Before(recentCutoff) {
			key := utils.MonthKey(ref.FilingDate)
			if perMonth[key] >= s.policy.MaxPerMonth {
				continue
			}
			perMonth[key]++
		}
		cands = append(cands, ref)
		if len(cands) >= s.policy.CandidateBudget {
			break
		}
	}
	return cands
}

// relevantForm reports whether a form type carries treasury disclosure.
// Amendments count the same as the form they amend.
func (s *Service) relevantForm(form string) bool {
	base := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(form)), "/A")
	for _, f := range s.policy.FormTypes {
		if base == f {
			return true
		}
	}
	return false
}

// extractAll fans extraction out over the candidates with a fixed worker
// pool pulling indexes from a shared counter. Each worker writes to its
// claimed output slot, so completion order never affects the result. A
// failing candidate does not abort its siblings; the last fetch error is
// kept for the all-failed report.
func (s *Service) extractAll(ctx context.Context, symbol, cik string, cands []models.FilingReference) ([]models.TreasurySnapshot, error) {
	results := make([]*models.TreasurySnapshot, len(cands))

	var next atomic.Int64
	var errMu sync.Mutex
	var lastErr error

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.policy.Workers; w++ {
		g.Go(func() error {
			for {
				i := int(next.Add(1)) - 1
				if i >= len(cands) {
					return nil
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				snap, err := s.extractFiling(gctx, symbol, cik, cands[i])
				if err != nil {
					errMu.Lock()
					lastErr = err
					errMu.Unlock()
					continue
				}
				results[i] = snap
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var snaps []models.TreasurySnapshot
	for _, r := range results {
		if r != nil {
			snaps = append(snaps, *r)
		}
	}
	return snaps, lastErr
}

// extractFiling runs the document cascade for one filing: the declared
// primary document, then the complete combined submission text, then every
// HTML document from the filing index in priority order. The first source
// that yields a fact wins. Which physical document holds the disclosure
// varies filing to filing, so each fallback is a different document, not a
// retry of the same one.
func (s *Service) extractFiling(ctx context.Context, symbol, cik string, ref models.FilingReference) (*models.TreasurySnapshot, error) {
	var lastErr error

	try := func(url string) (*models.TreasurySnapshot, bool) {
		text, err := s.source.Document(ctx, url)
		if err != nil {
			lastErr = err
			return nil, false
		}
		fact, ok := s.extractor.ExtractMarkup(text)
		if !ok {
			return nil, false
		}
		return s.snapshot(symbol, ref, url, fact), true
	}

	if ref.PrimaryDocument != "" {
		if snap, ok := try(s.source.PrimaryDocumentURL(cik, ref.AccessionNumber, ref.PrimaryDocument)); ok {
			return snap, nil
		}
	}

	if snap, ok := try(s.source.SubmissionTextURL(cik, ref.AccessionNumber)); ok {
		return snap, nil
	}

	docs, err := s.source.FilingDocuments(ctx, ref)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, lastErr
	}
	for _, doc := range docs {
		if doc.Name == ref.PrimaryDocument {
			continue
		}
		if snap, ok := try(doc.URL); ok {
			return snap, nil
		}
	}

	return nil, lastErr
}

// snapshot builds a TreasurySnapshot from an extracted fact, resolving the
// timestamp from the as-of label when it parses, else the filing date.
func (s *Service) snapshot(symbol string, ref models.FilingReference, url string, fact *extract.Fact) *models.TreasurySnapshot {
	date, ok := utils.ParseAsOfLabel(fact.AsOfLabel)
	if !ok {
		date = utils.Day(ref.FilingDate)
	}
	return &models.TreasurySnapshot{
		Symbol:       symbol,
		AsOfLabel:    fact.AsOfLabel,
		Date:         date,
		FilingDate:   ref.FilingDate,
		SourceURL:    url,
		HoldingsBTC:  fact.HoldingsBTC,
		TotalCostUSD: fact.TotalCostUSD,
		AvgCostUSD:   fact.AvgCostUSD,
	}
}

// dedupeByDate keeps one snapshot per resolved day, preferring the larger
// holdings figure. Ties keep the earlier-encountered snapshot.
func dedupeByDate(snaps []models.TreasurySnapshot) []models.TreasurySnapshot {
	byDay := make(map[time.Time]int, len(snaps))
	out := snaps[:0]
	for _, snap := range snaps {
		day := utils.Day(snap.Date)
		idx, seen := byDay[day]
		if !seen {
			byDay[day] = len(out)
			out = append(out, snap)
			continue
		}
		if snap.HoldingsBTC > out[idx].HoldingsBTC {
			out[idx] = snap
		}
	}
	return out
}
