package edgar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hodlsight/hodlsight/internal/provider"
	"github.com/hodlsight/hodlsight/pkg/models"
)

const testCIK = "1050446"

// newTestServer serves a minimal EDGAR: a submissions index whose recent set
// covers 2024 only, one history page reaching back to 2020, and a filing
// index listing.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/submissions/CIK0001050446.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"cik": "1050446",
			"name": "MicroStrategy Incorporated",
			"tickers": ["MSTR"],
			"filings": {
				"recent": {
					"accessionNumber": ["0001050446-24-000002", "0001050446-24-000001"],
					"filingDate": ["2024-04-29", "2024-02-15"],
					"reportDate": ["2024-03-31", "2023-12-31"],
					"form": ["10-Q", "10-K"],
					"primaryDocument": ["mstr-20240331.htm", "mstr-20231231.htm"]
				},
				"files": [
					{"name": "CIK0001050446-submissions-001.json", "filingCount": 2, "filingFrom": "2020-08-11", "filingTo": "2023-12-01"}
				]
			}
		}`)
	})

	mux.HandleFunc("/submissions/CIK0001050446-submissions-001.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"accessionNumber": ["0001050446-20-000001", "0001050446-24-000001"],
			"filingDate": ["2020-08-11", "2024-02-15"],
			"reportDate": ["2020-08-10", "2023-12-31"],
			"form": ["8-K", "10-K"],
			"primaryDocument": ["pressrelease.htm", "mstr-20231231.htm"]
		}`)
	})

	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"0": {"cik_str": 1050446, "ticker": "MSTR", "title": "MicroStrategy Incorporated"}}`)
	})

	mux.HandleFunc("/edgar/data/1050446/000105044620000001/index.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"directory": {
				"name": "/Archives/edgar/data/1050446/000105044620000001",
				"item": [
					{"name": "filing.txt", "type": "text.gif", "size": "9000"},
					{"name": "mstr-8k_20200811.htm", "type": "text.gif", "size": "40000"},
					{"name": "chart.jpg", "type": "image.gif", "size": "2000"},
					{"name": "mstr-ex99_1.htm", "type": "text.gif", "size": "30000"}
				]
			}
		}`)
	})

	return httptest.NewServer(mux)
}

func newTestProvider(srv *httptest.Server) *Provider {
	return New(
		WithDataURL(srv.URL),
		WithArchiveURL(srv.URL),
		WithBrowseURL(srv.URL+"/cgi-bin/browse-edgar"),
		WithUserAgent("hodlsight-test/1.0"),
	)
}

func TestProviderInfo(t *testing.T) {
	p := New()
	info := p.Info()
	if info.Name != "edgar" {
		t.Errorf("name = %q, want edgar", info.Name)
	}
	if len(info.Credentials) != 0 {
		t.Errorf("expected no credentials, got %d", len(info.Credentials))
	}

	for _, m := range []provider.ModelType{
		provider.ModelCompanyFilings,
		provider.ModelFilingDocument,
		provider.ModelFilingFeed,
	} {
		if p.Fetcher(m) == nil {
			t.Errorf("missing fetcher for %s", m)
		}
	}
}

func TestResolveCIK(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(srv)

	cik, err := p.ResolveCIK(context.Background(), "mstr")
	if err != nil {
		t.Fatalf("ResolveCIK failed: %v", err)
	}
	if cik != "1050446" {
		t.Errorf("cik = %q, want 1050446", cik)
	}

	// Numeric input passes through without a network call.
	cik, err = p.ResolveCIK(context.Background(), "0001050446")
	if err != nil {
		t.Fatalf("ResolveCIK numeric failed: %v", err)
	}
	if cik != "1050446" {
		t.Errorf("cik = %q, want 1050446", cik)
	}
}

func TestFilingHistoryRecentOnly(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(srv)

	// Window starts inside the recent set: no history page needed.
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	refs, err := p.FilingHistory(context.Background(), testCIK, since)
	if err != nil {
		t.Fatalf("FilingHistory failed: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2 (recent set only)", len(refs))
	}
}

func TestFilingHistoryWithHistoryPages(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(srv)

	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	refs, err := p.FilingHistory(context.Background(), testCIK, since)
	if err != nil {
		t.Fatalf("FilingHistory failed: %v", err)
	}

	// 2 recent + 2 history, minus 1 duplicate accession.
	if len(refs) != 3 {
		t.Fatalf("got %d refs, want 3 after dedup", len(refs))
	}

	// Sorted descending by filing date.
	for i := 1; i < len(refs); i++ {
		if refs[i].FilingDate.After(refs[i-1].FilingDate) {
			t.Errorf("refs not sorted descending at %d", i)
		}
	}

	seen := make(map[string]int)
	for _, r := range refs {
		seen[r.AccessionNumber]++
	}
	if seen["0001050446-24-000001"] != 1 {
		t.Errorf("duplicate accession survived dedup: %v", seen)
	}
}

func TestFilingDocumentsPriority(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	p := newTestProvider(srv)

	ref := models.FilingReference{
		AccessionNumber: "0001050446-20-000001",
		CIK:             testCIK,
		FormType:        "8-K",
		PrimaryDocument: "mstr-8k_20200811.htm",
	}
	docs, err := p.FilingDocuments(context.Background(), ref)
	if err != nil {
		t.Fatalf("FilingDocuments failed: %v", err)
	}

	// Only the two .htm files survive, exhibit first.
	if len(docs) != 2 {
		t.Fatalf("got %d docs, want 2", len(docs))
	}
	if docs[0].Name != "mstr-ex99_1.htm" {
		t.Errorf("first doc = %q, want the ex99 exhibit", docs[0].Name)
	}
	if docs[1].Name != "mstr-8k_20200811.htm" {
		t.Errorf("second doc = %q, want the filing body", docs[1].Name)
	}
}

func TestSelectHistoryFiles(t *testing.T) {
	files := []historyFile{
		{Name: "a.json", FilingFrom: "2022-01-01", FilingTo: "2023-12-31"},
		{Name: "b.json", FilingFrom: "2018-01-01", FilingTo: "2021-12-31"},
		{Name: "c.json", FilingFrom: "2014-01-01", FilingTo: "2017-12-31"},
	}

	since := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	picked := selectHistoryFiles(files, since, 4)
	if len(picked) != 2 {
		t.Fatalf("picked %d files, want 2 (c.json ends before the window)", len(picked))
	}

	// The page cap bounds the fetch count regardless of window.
	picked = selectHistoryFiles(files, since, 1)
	if len(picked) != 1 {
		t.Errorf("picked %d files, want 1 with cap", len(picked))
	}
}

func TestURLConstruction(t *testing.T) {
	p := New()

	got := p.PrimaryDocumentURL("1050446", "0001050446-24-000002", "mstr-20240331.htm")
	want := "https://www.sec.gov/Archives/edgar/data/1050446/000105044624000002/mstr-20240331.htm"
	if got != want {
		t.Errorf("PrimaryDocumentURL = %q, want %q", got, want)
	}

	got = p.SubmissionTextURL("1050446", "0001050446-24-000002")
	want = "https://www.sec.gov/Archives/edgar/data/1050446/000105044624000002/0001050446-24-000002.txt"
	if got != want {
		t.Errorf("SubmissionTextURL = %q, want %q", got, want)
	}
}

func TestFeedFormType(t *testing.T) {
	entry := &gofeed.Item{Title: "8-K - Current report", Categories: []string{"8-K"}}
	if ft := feedFormType(entry); ft != "8-K" {
		t.Errorf("form type = %q, want 8-K from category", ft)
	}

	entry = &gofeed.Item{Title: "10-Q - Quarterly report"}
	if ft := feedFormType(entry); ft != "10-Q" {
		t.Errorf("form type = %q, want 10-Q from title", ft)
	}
}
