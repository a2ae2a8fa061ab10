package extract

import (
	"strings"
	"testing"
)

func TestNormalizeStripsTagsAndEntities(t *testing.T) {
	in := `<html><head><style>p { color: red; }</style>
<script>var x = 1 < 2;</script></head>
<body><p>held&nbsp;approximately <b>252,220</b> BTC&#160;at an aggregate cost of&nbsp;&#36;9.9 billion</p></body></html>`

	got := Normalize(in)
	want := "held approximately 252,220 BTC at an aggregate cost of $9.9 billion"
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := Normalize("a \n\t  b  c  ")
	if got != "a b c" {
		t.Errorf("Normalize = %q, want %q", got, "a b c")
	}
}

func TestNormalizePlainText(t *testing.T) {
	in := "no markup here, just   text with $ signs and 1,234 numbers"
	got := Normalize(in)
	if !strings.Contains(got, "$ signs") || !strings.Contains(got, "1,234") {
		t.Errorf("plain text mangled: %q", got)
	}
}

func TestNormalizeMalformedMarkup(t *testing.T) {
	in := `<p>holds a total of 189,150 bitcoins<div>aggregate purchase price of $5.9 billion`
	got := Normalize(in)
	if !strings.Contains(got, "189,150 bitcoins") {
		t.Errorf("lost holdings text: %q", got)
	}
	if !strings.Contains(got, "$5.9 billion") {
		t.Errorf("lost cost text: %q", got)
	}
}

func TestNormalizeRawFallbackEntities(t *testing.T) {
	// Exercise the regex path directly; it must decode the same entity set.
	got := collapse(normalizeRaw(`<p>cost of &#36;1,000 &amp; holdings&nbsp;of 10 &lt;estimated&gt;</p>`))
	want := `cost of $1,000 & holdings of 10 <estimated>`
	if got != want {
		t.Errorf("normalizeRaw = %q, want %q", got, want)
	}
}
