package models

import "time"

// --- SEC Filings ---

// FilingReference identifies one filing in a company's EDGAR history.
// It carries just enough to locate the filing's documents; it is immutable
// once discovered.
type FilingReference struct {
	AccessionNumber string    `json:"accession_number"` // e.g. "0001050446-24-000107"
	CIK             string    `json:"cik"`
	FormType        string    `json:"form_type"` // "10-K", "10-Q", "8-K", ...
	FilingDate      time.Time `json:"filing_date"`
	PrimaryDocument string    `json:"primary_document,omitempty"`
}

// FilingDocument is one physical document inside a filing package, as listed
// by the filing's index.
type FilingDocument struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
}

// FilingFeedItem is one entry from a company's EDGAR Atom filing feed.
type FilingFeedItem struct {
	Title    string    `json:"title"`
	FormType string    `json:"form_type"`
	Filed    time.Time `json:"filed"`
	Link     string    `json:"link"`
}

// --- Treasury disclosures ---

// TreasurySnapshot is one reconciled treasury fact set extracted from a
// single filing. AvgCostUSD satisfies TotalCostUSD/HoldingsBTC within the
// extraction tolerance whenever both figures were independently stated in
// the source text. Never mutated after creation.
type TreasurySnapshot struct {
	Symbol       string    `json:"symbol"`
	CompanyName  string    `json:"company_name,omitempty"`
	AsOfLabel    string    `json:"as_of_label,omitempty"` // raw disclosed label, e.g. "August 2, 2024"
	Date         time.Time `json:"date"`                  // resolved: parsed as-of label, else filing date
	FilingDate   time.Time `json:"filing_date"`
	SourceURL    string    `json:"source_url"`
	HoldingsBTC  int64     `json:"holdings_btc"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	AvgCostUSD   float64   `json:"avg_cost_usd"`
}

// TreasuryMeta is the reconstructed history plus the display metadata handed
// to the rendering collaborator alongside the two series.
type TreasuryMeta struct {
	Symbol        string             `json:"symbol"`
	CompanyName   string             `json:"company_name,omitempty"`
	SourceURL     string             `json:"source_url,omitempty"`
	AsOfLabel     string             `json:"as_of_label,omitempty"`
	StalenessDays int                `json:"staleness_days"`
	Snapshots     []TreasurySnapshot `json:"snapshots"`
}
