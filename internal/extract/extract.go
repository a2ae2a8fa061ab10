// Package extract mines treasury disclosures out of unstructured filing
// text. There is no structured feed for these facts: issuers disclose
// Bitcoin holdings, aggregate purchase cost and average cost basis in free
// prose, repeated with drift across a filing. The extractor recovers the
// numbers with layered pattern matching and reconciles the candidates into
// at most one internally consistent fact per document.
package extract

import "math"

// Options are the extraction policy parameters. The defaults are empirical;
// they exist to keep noisy matches out, not as hard invariants.
type Options struct {
	// Tolerance is the maximum relative deviation allowed between a stated
	// average and the average derived from a stated total.
	Tolerance float64
	// MinAvgUSD/MaxAvgUSD bound plausible per-unit averages, guarding
	// against unit errors (cents vs. dollars, misread footnotes).
	MinAvgUSD float64
	MaxAvgUSD float64
	// MaxHoldingsBTC is the sanity ceiling on a holdings candidate.
	MaxHoldingsBTC int64
	// WindowBefore/WindowAfter bound the text window searched for context
	// around a holdings match. "Before" captures the preceding as-of
	// phrase; "after" is larger because filings place the cost disclosure
	// block after the headline holdings figure.
	WindowBefore int
	WindowAfter  int
}

// DefaultOptions returns the standard extraction policy.
func DefaultOptions() Options {
	return Options{
		Tolerance:      0.35,
		MinAvgUSD:      1_000,
		MaxAvgUSD:      2_000_000,
		MaxHoldingsBTC: 5_000_000,
		WindowBefore:   7_500,
		WindowAfter:    25_000,
	}
}

// Fact is the reconciled numeric fact set recovered from one document.
type Fact struct {
	AsOfLabel     string  // raw disclosed label, may be empty
	HoldingsBTC   int64   // positive
	TotalCostUSD  float64 // positive
	AvgCostUSD    float64 // positive, = TotalCostUSD/HoldingsBTC within Tolerance
	ExplicitAvg   bool    // average was stated, not derived
	ExplicitTotal bool    // total was stated, not derived
	Score         int
}

// Extractor applies the rule set under a fixed policy. Extraction is a pure
// function of the input text; an Extractor is safe for concurrent use.
type Extractor struct {
	opts Options
}

// New creates an extractor with the given policy.
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// ExtractMarkup normalizes raw filing markup and extracts from the result.
func (e *Extractor) ExtractMarkup(markup string) (*Fact, bool) {
	return e.ExtractText(Normalize(markup))
}

// ExtractText extracts the best-effort fact from normalized text. ok is
// false when the text yields no extractable fact — a normal outcome for
// filings that don't discuss treasury holdings, not an error.
func (e *Extractor) ExtractText(text string) (*Fact, bool) {
	var best *Fact

	for _, h := range findMatches(text, holdingsRules) {
		holdings := int64(h.value)
		if h.value != math.Trunc(h.value) || holdings <= 0 || holdings > e.opts.MaxHoldingsBTC {
			continue
		}

		lo := h.pos - e.opts.WindowBefore
		if lo < 0 {
			lo = 0
		}
		hi := h.pos + e.opts.WindowAfter
		if hi > len(text) {
			hi = len(text)
		}
		window := text[lo:hi]

		fact, ok := e.reconcile(window, holdings)
		if !ok {
			continue
		}
		if asOf := findMatches(window, asOfRules); len(asOf) > 0 {
			// First as-of phrase in the window wins.
			fact.AsOfLabel = asOf[0].label
			fact.Score += asOf[0].weight
		}
		if best == nil || fact.Score > best.Score {
			best = fact
		}
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// reconcile combines the window's average and total-cost candidates with a
// holdings figure, in priority order: consistent stated pair, stated average
// alone, stated total alone.
func (e *Extractor) reconcile(window string, holdings int64) (*Fact, bool) {
	avgs := findMatches(window, avgCostRules)
	totals := findMatches(window, totalCostRules)

	if len(avgs) > 0 && len(totals) > 0 {
		if f, ok := e.bestPair(avgs, totals, holdings); ok {
			return f, true
		}
		// Every pairing exceeded tolerance: the stated average is still the
		// more direct disclosure, so fall through to it alone.
	}

	switch {
	case len(avgs) > 0:
		a := avgs[0]
		if !e.plausibleAvg(a.value) {
			return nil, false
		}
		return &Fact{
			HoldingsBTC:  holdings,
			AvgCostUSD:   a.value,
			TotalCostUSD: a.value * float64(holdings),
			ExplicitAvg:  true,
			Score:        a.weight,
		}, true
	case len(totals) > 0:
		t := totals[0]
		avg := t.value / float64(holdings)
		if !e.plausibleAvg(avg) {
			return nil, false
		}
		return &Fact{
			HoldingsBTC:   holdings,
			AvgCostUSD:    avg,
			TotalCostUSD:  t.value,
			ExplicitTotal: true,
			Score:         t.weight,
		}, true
	default:
		return nil, false
	}
}

// bestPair scores every (average, total) pairing and keeps the most
// consistent one. Filings repeat both figures several times with drift, so
// a pure first-match strategy picks up mismatched pairs; instead each pair
// is scored on relative deviation plus textual distance, deviation dominant.
func (e *Extractor) bestPair(avgs, totals []match, holdings int64) (*Fact, bool) {
	var (
		found    bool
		bestCost float64
		bestA    match
		bestT    match
	)
	for _, a := range avgs {
		for _, t := range totals {
			derived := t.value / float64(holdings)
			dev := math.Abs(derived-a.value) / a.value
			if dev > e.opts.Tolerance {
				continue
			}
			dist := a.pos - t.pos
			if dist < 0 {
				dist = -dist
			}
			// One point of relative deviation outweighs a kilobyte of
			// separation.
			cost := dev*100 + float64(dist)/1000
			if !found || cost < bestCost {
				found = true
				bestCost = cost
				bestA = a
				bestT = t
			}
		}
	}
	if !found || !e.plausibleAvg(bestA.value) {
		return nil, false
	}
	return &Fact{
		HoldingsBTC:   holdings,
		AvgCostUSD:    bestA.value,
		TotalCostUSD:  bestT.value,
		ExplicitAvg:   true,
		ExplicitTotal: true,
		Score:         bestA.weight + bestT.weight,
	}, true
}

func (e *Extractor) plausibleAvg(avg float64) bool {
	return avg >= e.opts.MinAvgUSD && avg <= e.opts.MaxAvgUSD
}
