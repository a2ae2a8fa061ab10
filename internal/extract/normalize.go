package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Normalize flattens raw filing markup into a single plain-text line:
// script/style blocks removed, tags stripped, entities decoded, whitespace
// runs collapsed to single spaces. Filings bury their numbers inside
// inconsistent markup and entity encodings, so pattern matching runs on this
// normalized blob, never on the raw document.
func Normalize(markup string) string {
	if text, ok := normalizeDOM(markup); ok {
		return collapse(text)
	}
	return collapse(normalizeRaw(markup))
}

// normalizeDOM strips markup via an HTML parse. The parser tolerates the
// malformed HTML EDGAR serves and decodes entities for free.
func normalizeDOM(markup string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", false
	}
	doc.Find("script, style").Remove()
	return doc.Text(), true
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
)

// entityReplacer decodes the entities that matter for currency and
// whitespace handling in filings.
var entityReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"&#160;", " ",
	"&#xa0;", " ",
	"&#xA0;", " ",
	"&#36;", "$",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#34;", `"`,
	"&apos;", "'",
	"&#39;", "'",
	"&amp;", "&",
)

// normalizeRaw is the fallback path when the HTML parse fails.
func normalizeRaw(markup string) string {
	s := scriptRe.ReplaceAllString(markup, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	return entityReplacer.Replace(s)
}

// collapse squeezes all whitespace runs (including non-breaking spaces) to
// single spaces and trims.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
