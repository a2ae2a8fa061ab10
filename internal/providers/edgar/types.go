package edgar

import "time"

// --- Submissions (data.sec.gov/submissions) ---

// submissionsResponse is the company submissions index. The "recent" set is
// column-oriented: parallel arrays indexed together.
type submissionsResponse struct {
	CIK     string         `json:"cik"`
	Name    string         `json:"name"`
	Tickers []string       `json:"tickers"`
	Filings companyFilings `json:"filings"`
}

type companyFilings struct {
	Recent filingSet     `json:"recent"`
	Files  []historyFile `json:"files"`
}

type filingSet struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	ReportDate      []string `json:"reportDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// historyFile references a supplementary page of older filing history. The
// inline recent set only covers a bounded span; anything earlier lives in
// these files.
type historyFile struct {
	Name        string `json:"name"`
	FilingCount int    `json:"filingCount"`
	FilingFrom  string `json:"filingFrom"`
	FilingTo    string `json:"filingTo"`
}

// historyPage is the shape of a supplementary history file: a bare filingSet.
type historyPage filingSet

// --- Filing index (www.sec.gov/Archives/.../index.json) ---

type filingIndexResponse struct {
	Directory filingDirectory `json:"directory"`
}

type filingDirectory struct {
	Name  string           `json:"name"`
	Items []filingIndexDoc `json:"item"`
}

type filingIndexDoc struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Size         string `json:"size"`
	LastModified string `json:"last-modified"`
}

// --- Ticker mapping (company_tickers.json) ---

type tickerEntry struct {
	CIKStr any    `json:"cik_str"` // number in some dumps, string in others
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// parseFilingDate parses the date formats EDGAR emits. Zero time on failure;
// filings with unparsable dates sort last and are skipped by the window
// filter.
func parseFilingDate(s string) time.Time {
	for _, layout := range []string{
		"2006-01-02",
		"2006-01-02T15:04:05.000Z",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
