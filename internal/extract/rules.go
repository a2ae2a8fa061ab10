package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Extraction runs as an ordered rule set: each rule binds one disclosure
// phrasing to the field its first capture group yields, with a weight that
// feeds the candidate score when the field was explicitly stated. Keeping
// the patterns in one table keeps the heuristic tunable without touching
// the reconciliation logic.

type field int

const (
	fieldHoldings field = iota
	fieldAvgCost
	fieldTotalCost
	fieldAsOf
)

type rule struct {
	re     *regexp.Regexp
	field  field
	weight int
}

// num matches a comma-grouped number with an optional decimal part.
const num = `([0-9][0-9,]*(?:\.[0-9]+)?)`

// mult optionally captures a unit-multiplier word after a dollar figure.
const mult = `(?:\s*(billion|million))?`

const unit = `(?:btc|bitcoins?)\b`

var holdingsRules = []rule{
	{regexp.MustCompile(`(?i)held\s+(?:a\s+total\s+of\s+)?(?:approximately\s+)?` + num + `\s+` + unit), fieldHoldings, 0},
	{regexp.MustCompile(`(?i)holds?\s+(?:a\s+total\s+of\s+)?(?:approximately\s+)?` + num + `\s+` + unit), fieldHoldings, 0},
	{regexp.MustCompile(`(?i)bitcoin\s+holdings\s+[^.]{0,80}?` + num + `\s+` + unit), fieldHoldings, 0},
	{regexp.MustCompile(`(?i)(?:aggregate|total)\s+of\s+(?:approximately\s+)?` + num + `\s+` + unit), fieldHoldings, 0},
	{regexp.MustCompile(`(?i)own(?:s|ed)?\s+(?:approximately\s+)?` + num + `\s+` + unit), fieldHoldings, 0},
}

var avgCostRules = []rule{
	{regexp.MustCompile(`(?i)average\s+(?:purchase\s+|acquisition\s+)?(?:price|cost)\s+(?:basis\s+)?(?:per\s+(?:btc|bitcoin)\s+)?(?:of|was|is|at)\s+(?:approximately\s+)?\$` + num), fieldAvgCost, 3},
	{regexp.MustCompile(`(?i)at\s+an\s+average\s+of\s+(?:approximately\s+)?\$` + num + `\s+per\s+(?:btc|bitcoin)`), fieldAvgCost, 3},
}

var totalCostRules = []rule{
	{regexp.MustCompile(`(?i)aggregate\s+(?:purchase\s+price|purchase\s+cost|cost|amount)\s+of\s+(?:approximately\s+)?\$` + num + mult), fieldTotalCost, 2},
	{regexp.MustCompile(`(?i)\$` + num + mult + `\s+(?:in\s+)?aggregate\s+(?:purchase\s+price|purchase\s+cost|cost)`), fieldTotalCost, 2},
	{regexp.MustCompile(`(?i)total\s+(?:purchase\s+price|acquisition\s+cost|cost)\s+of\s+(?:approximately\s+)?\$` + num + mult), fieldTotalCost, 2},
}

var asOfRules = []rule{
	{regexp.MustCompile(`(?i)as\s+of\s+([a-z]+\s+[0-9]{1,2},?\s+[0-9]{4})`), fieldAsOf, 1},
	{regexp.MustCompile(`(?i)as\s+of\s+([0-9]{1,2}/[0-9]{1,2}/[0-9]{2,4})`), fieldAsOf, 1},
}

// match is one rule hit with its position retained for proximity scoring.
type match struct {
	value  float64 // numeric fields
	label  string  // raw captured text (as-of labels)
	pos    int     // byte offset of the match in the scanned text
	weight int
}

// findMatches applies a rule set to text and returns all hits in position
// order. Numeric capture groups are parsed with grouping commas removed and
// any captured multiplier word applied.
func findMatches(text string, rules []rule) []match {
	var out []match
	for _, r := range rules {
		for _, idx := range r.re.FindAllStringSubmatchIndex(text, -1) {
			// idx[2],idx[3] bound capture group 1; a second group, when
			// present, is the multiplier word.
			if len(idx) < 4 || idx[2] < 0 {
				continue
			}
			raw := text[idx[2]:idx[3]]
			m := match{label: raw, pos: idx[0], weight: r.weight}
			if r.field != fieldAsOf {
				v, ok := parseAmount(raw)
				if !ok {
					continue
				}
				if len(idx) >= 6 && idx[4] >= 0 {
					v *= multiplier(text[idx[4]:idx[5]])
				}
				m.value = v
			}
			out = append(out, m)
		}
	}
	sortByPos(out)
	return out
}

func parseAmount(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func multiplier(word string) float64 {
	switch strings.ToLower(word) {
	case "billion":
		return 1e9
	case "million":
		return 1e6
	default:
		return 1
	}
}

// sortByPos orders matches by text position, keeping encounter order stable
// for equal positions. Insertion sort; match lists are tiny.
func sortByPos(ms []match) {
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && ms[j].pos < ms[j-1].pos; j-- {
			ms[j], ms[j-1] = ms[j-1], ms[j]
		}
	}
}
