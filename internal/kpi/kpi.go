// Package kpi extracts headline numbers from insight text and ranks
// them for display.
package kpi

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/storymint/storymint/internal/model"
)

// DefaultMaxKPIs caps story-level extraction.
const DefaultMaxKPIs = 5

// DefaultSectionMaxKPIs caps per-section extraction.
const DefaultSectionMaxKPIs = 3

const labelWindow = 50 // characters kept on each side of a match

var (
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	numberPattern  = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})+\b|\b\d{3,}\b`)

	deltaPatterns = []struct {
		re   *regexp.Regexp
		sign string
		unit string
	}{
		{regexp.MustCompile(`\+(\d+(?:\.\d+)?)\s*pts?\b`), "+", " pts"},
		{regexp.MustCompile(`(?i)increased by (\d+(?:\.\d+)?)\s*%`), "+", "%"},
		{regexp.MustCompile(`(?i)decreased by (\d+(?:\.\d+)?)\s*%`), "-", "%"},
		{regexp.MustCompile(`(?i)growth of (\d+(?:\.\d+)?)\s*%`), "+", "%"},
	}
)

type candidate struct {
	kpi   model.KPI
	score float64
	seq   int
}

// Extract scans each insight for percentage, large-count, and delta
// patterns, scores the candidates, and returns the top max KPIs with
// contiguous 1-based ranks. Duplicate display values are dropped, not
// merged. A max of 0 or below falls back to DefaultMaxKPIs.
func Extract(insights []model.Insight, max int, context string) []model.KPI {
	if max <= 0 {
		max = DefaultMaxKPIs
	}

	var candidates []candidate
	seq := 0
	add := func(in model.Insight, k model.KPI, magnitude float64) {
		k.Context = context
		k.InsightID = in.ID
		candidates = append(candidates, candidate{
			kpi:   k,
			score: scoreCandidate(k, in, magnitude),
			seq:   seq,
		})
		seq++
	}

	for _, in := range insights {
		for _, loc := range percentPattern.FindAllStringSubmatchIndex(in.Text, -1) {
			numText := in.Text[loc[2]:loc[3]]
			v, err := strconv.ParseFloat(numText, 64)
			if err != nil {
				continue
			}
			kind := model.KPISupporting
			if v >= 50 {
				kind = model.KPIHeadline
			}
			add(in, model.KPI{
				Value: humanize.Ftoa(v) + "%",
				Label: deriveLabel(in.Text, loc[0], loc[1]),
				Kind:  kind,
			}, v)
		}

		for _, loc := range numberPattern.FindAllStringIndex(in.Text, -1) {
			if percentAdjacent(in.Text, loc[1]) {
				continue
			}
			raw := strings.ReplaceAll(in.Text[loc[0]:loc[1]], ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 100 {
				continue
			}
			add(in, model.KPI{
				Value: abbreviate(v),
				Label: deriveLabel(in.Text, loc[0], loc[1]),
				Kind:  model.KPICount,
			}, 0)
		}

		for _, dp := range deltaPatterns {
			for _, loc := range dp.re.FindAllStringSubmatchIndex(in.Text, -1) {
				v, err := strconv.ParseFloat(in.Text[loc[2]:loc[3]], 64)
				if err != nil {
					continue
				}
				add(in, model.KPI{
					Value: dp.sign + humanize.Ftoa(v) + dp.unit,
					Label: deriveLabel(in.Text, loc[0], loc[1]),
					Kind:  model.KPIDelta,
				}, 0)
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].seq < candidates[j].seq
	})

	var out []model.KPI
	seen := make(map[string]bool)
	for _, c := range candidates {
		if len(out) >= max {
			break
		}
		if seen[c.kpi.Value] {
			continue
		}
		seen[c.kpi.Value] = true
		c.kpi.Rank = len(out) + 1
		out = append(out, c.kpi)
	}
	return out
}

func scoreCandidate(k model.KPI, in model.Insight, magnitude float64) float64 {
	var base float64
	switch k.Kind {
	case model.KPIHeadline:
		base = 10
	case model.KPIDelta:
		base = 7
	case model.KPISupporting:
		base = 5
	case model.KPICount:
		base = 3
	}

	score := base + in.BusinessValue*5 + in.Confidence*3

	switch {
	case magnitude >= 70:
		score += 5
	case magnitude >= 50:
		score += 3
	case magnitude >= 30:
		score += 1
	}

	switch {
	case len(k.Label) >= 20:
		score += 2
	case len(k.Label) >= 10:
		score += 1
	}
	return score
}

// deriveLabel builds a short description from the text surrounding a
// match, with the matched substring removed.
func deriveLabel(text string, start, end int) string {
	from := start - labelWindow
	if from < 0 {
		from = 0
	}
	to := end + labelWindow
	if to > len(text) {
		to = len(text)
	}

	label := strings.TrimSpace(text[from:start]) + " " + strings.TrimSpace(text[end:to])
	label = strings.Join(strings.Fields(label), " ")
	label = strings.Trim(label, " .,;:!?-–—()[]")
	if len(label) > 80 {
		label = strings.TrimSpace(label[:80])
	}
	return label
}

// percentAdjacent reports whether the text directly after offset is a
// percent sign, meaning the number was already captured as a percentage.
func percentAdjacent(text string, offset int) bool {
	rest := strings.TrimLeft(text[offset:], " ")
	return strings.HasPrefix(rest, "%")
}

func abbreviate(v float64) string {
	switch {
	case v >= 1e9:
		return humanize.FtoaWithDigits(v/1e9, 1) + "B"
	case v >= 1e6:
		return humanize.FtoaWithDigits(v/1e6, 1) + "M"
	case v >= 1e3:
		return humanize.FtoaWithDigits(v/1e3, 1) + "K"
	default:
		return strconv.Itoa(int(v))
	}
}
