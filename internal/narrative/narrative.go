// Package narrative composes audience-adapted prose from the
// structural parts of a story: thesis, KPIs, sections, and the
// insights behind them. Generation is template-based and a pure
// function of its input.
package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/storymint/storymint/internal/model"
)

// HighConfidence is the threshold at which a finding counts toward
// evidence rigor.
const HighConfidence = 0.8

// Input carries everything the summary generators draw from.
type Input struct {
	ProjectName string
	Objective   string
	Context     string // provenance annotation, e.g. "n=1200 survey responses"
	Thesis      model.Thesis
	TopKPIs     []model.KPI
	Sections    []model.Section
	Insights    []model.Insight
}

// Cross-finding pattern vocabulary used by the analyst register.
var patternVocab = []struct {
	name  string
	words []string
}{
	{"distribution", []string{"distribution", "spread", "variance", "median", "quartile", "skew"}},
	{"correlation", []string{"correlat", "relationship", "linked to", "associated with", "drives", "predicts"}},
	{"temporal", []string{"trend", "over time", "quarter", "month", "year", "seasonal"}},
	{"segmentation", []string{"segment", "cohort", "demographic", "subgroup", "tier", "persona"}},
}

// ExecutiveSummary composes the story-level summary for the given
// audience mode.
func ExecutiveSummary(mode model.NarrativeMode, in Input) string {
	switch mode {
	case model.ModeAnalyst:
		return analystSummary(in)
	case model.ModeTechnical:
		return technicalSummary(in)
	}
	return executiveSummary(in)
}

// executiveSummary leads with the hook, names the headline numbers,
// and closes on the implication and chapter list.
func executiveSummary(in Input) string {
	parts := []string{strings.TrimSpace(in.Thesis.Hook)}
	if kpis := in.TopKPIs; len(kpis) > 0 {
		if len(kpis) > 3 {
			kpis = kpis[:3]
		}
		parts = append(parts, fmt.Sprintf("The numbers tell the story: %s.", joinKPIs(kpis)))
	}
	if imp := strings.TrimSpace(in.Thesis.Implication); imp != "" {
		parts = append(parts, imp)
	}
	if len(in.Sections) > 0 {
		parts = append(parts, fmt.Sprintf("The full story unfolds across %s.", commaAnd(sectionTitles(in.Sections))))
	}
	return joinParts(parts)
}

// analystSummary counts the evidence, reports cross-finding patterns,
// and enumerates the section theses.
func analystSummary(in Input) string {
	parts := []string{fmt.Sprintf("Analysis of %d findings across %d thematic sections.", len(in.Insights), len(in.Sections))}
	if sum := strings.TrimSpace(in.Thesis.Summary); sum != "" {
		parts = append(parts, sum)
	}
	parts = append(parts, patternLine(in.Insights))
	for _, sec := range in.Sections {
		if sec.Thesis == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", sec.Title, sec.Thesis))
	}
	return joinParts(parts)
}

// technicalSummary reports the evidence base: sample size, confidence
// profile, rigor grade, and KPI provenance.
func technicalSummary(in Input) string {
	basis := fmt.Sprintf("Basis: %d findings", len(in.Insights))
	if in.Context != "" {
		basis += fmt.Sprintf(" (%s)", in.Context)
	}
	basis += fmt.Sprintf(" organized into %d sections.", len(in.Sections))

	parts := []string{
		basis,
		fmt.Sprintf("Mean confidence %.2f; %d of %d findings at or above %.2f.",
			meanConfidence(in.Insights), highConfidenceCount(in.Insights), len(in.Insights), HighConfidence),
		fmt.Sprintf("Evidence rigor: %s.", RigorLabel(in.Insights)),
	}
	if sum := strings.TrimSpace(in.Thesis.Summary); sum != "" {
		parts = append(parts, fmt.Sprintf("Working thesis: %s", sum))
	}
	if len(in.TopKPIs) > 0 {
		parts = append(parts, fmt.Sprintf("%d KPIs extracted from finding text (%s).",
			len(in.TopKPIs), strings.Join(kpiKinds(in.TopKPIs), ", ")))
	}
	return joinParts(parts)
}

// SectionText composes the narrative paragraph for one section.
// members are the insights whose IDs appear in the section, in
// section order.
func SectionText(mode model.NarrativeMode, sec model.Section, members []model.Insight) string {
	switch mode {
	case model.ModeAnalyst:
		return analystSection(sec, members)
	case model.ModeTechnical:
		return technicalSection(sec, members)
	}
	return executiveSection(sec, members)
}

func executiveSection(sec model.Section, members []model.Insight) string {
	parts := []string{sec.Thesis}
	if len(sec.KPIs) > 0 {
		k := sec.KPIs[0]
		if k.Label != "" {
			parts = append(parts, fmt.Sprintf("The number to remember is %s (%s).", k.Value, k.Label))
		} else {
			parts = append(parts, fmt.Sprintf("The number to remember is %s.", k.Value))
		}
	}
	if n := len(members); n > 1 {
		parts = append(parts, fmt.Sprintf("%d findings back this up.", n))
	}
	if meanActionability(members) >= 0.7 {
		parts = append(parts, "This area is ready for action.")
	}
	return joinParts(parts)
}

func analystSection(sec model.Section, members []model.Insight) string {
	parts := []string{sec.Thesis, fmt.Sprintf("This section draws on %d findings.", len(members))}
	for _, in := range topByConfidence(members, 3) {
		parts = append(parts, fmt.Sprintf("%s (confidence %.2f).", clause(in.Text), in.Confidence))
	}
	if line := patternLine(members); !strings.HasPrefix(line, "No recurring") {
		parts = append(parts, line)
	}
	return joinParts(parts)
}

func technicalSection(sec model.Section, members []model.Insight) string {
	parts := []string{fmt.Sprintf("%d findings; mean confidence %.2f; %d at or above %.2f.",
		len(members), meanConfidence(members), highConfidenceCount(members), HighConfidence)}
	if len(sec.KPIs) > 0 {
		parts = append(parts, fmt.Sprintf("KPIs extracted: %d (%s).", len(sec.KPIs), strings.Join(kpiKinds(sec.KPIs), ", ")))
	}
	if len(sec.ChartRefs) > 0 {
		parts = append(parts, fmt.Sprintf("Chart references: %s.", strings.Join(sec.ChartRefs, ", ")))
	}
	if len(sec.InsightIDs) > 0 {
		parts = append(parts, fmt.Sprintf("Source findings: %s.", strings.Join(sec.InsightIDs, ", ")))
	}
	return joinParts(parts)
}

// RigorLabel grades the evidence base by the share of high-confidence
// findings: High at 70% or more, Moderate at 50%, Preliminary below.
func RigorLabel(insights []model.Insight) string {
	if len(insights) == 0 {
		return "Preliminary"
	}
	share := float64(highConfidenceCount(insights)) / float64(len(insights))
	switch {
	case share >= 0.7:
		return "High"
	case share >= 0.5:
		return "Moderate"
	}
	return "Preliminary"
}

// patternLine summarizes which cross-finding pattern families appear
// in the insight texts.
func patternLine(insights []model.Insight) string {
	var parts []string
	for _, v := range patternVocab {
		n := 0
		for _, in := range insights {
			text := strings.ToLower(in.Text)
			for _, w := range v.words {
				if strings.Contains(text, w) {
					n++
					break
				}
			}
		}
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, v.name))
		}
	}
	if len(parts) == 0 {
		return "No recurring cross-finding patterns were detected."
	}
	return fmt.Sprintf("Pattern scan: %s signals.", strings.Join(parts, ", "))
}

func meanConfidence(insights []model.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	sum := 0.0
	for _, in := range insights {
		sum += in.Confidence
	}
	return sum / float64(len(insights))
}

func meanActionability(insights []model.Insight) float64 {
	if len(insights) == 0 {
		return 0
	}
	sum := 0.0
	for _, in := range insights {
		sum += in.Actionability
	}
	return sum / float64(len(insights))
}

func highConfidenceCount(insights []model.Insight) int {
	n := 0
	for _, in := range insights {
		if in.Confidence >= HighConfidence {
			n++
		}
	}
	return n
}

func topByConfidence(insights []model.Insight, n int) []model.Insight {
	sorted := make([]model.Insight, len(insights))
	copy(sorted, insights)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func kpiKinds(kpis []model.KPI) []string {
	seen := map[model.KPIKind]bool{}
	var kinds []string
	for _, k := range kpis {
		if !seen[k.Kind] {
			seen[k.Kind] = true
			kinds = append(kinds, string(k.Kind))
		}
	}
	return kinds
}

func joinKPIs(kpis []model.KPI) string {
	parts := make([]string, len(kpis))
	for i, k := range kpis {
		if k.Label != "" {
			parts[i] = fmt.Sprintf("%s (%s)", k.Value, k.Label)
		} else {
			parts[i] = k.Value
		}
	}
	return strings.Join(parts, ", ")
}

func sectionTitles(sections []model.Section) []string {
	titles := make([]string, len(sections))
	for i, sec := range sections {
		titles[i] = sec.Title
	}
	return titles
}

func commaAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}

func joinParts(parts []string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// clause returns the first sentence of text, capped for display.
func clause(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i > 0 {
		text = text[:i]
	}
	if len(text) > 140 {
		text = strings.TrimSpace(text[:140])
	}
	return text
}
