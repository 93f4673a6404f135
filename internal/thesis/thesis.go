// Package thesis distills an insight set into the single claim the
// story is built around.
package thesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/storymint/storymint/internal/model"
	"github.com/storymint/storymint/internal/ontology"
)

// Signal vocabularies for paradox detection. These express sentiment
// polarity, not domain language, so they stay fixed while the theme
// table is injected.
var (
	positiveSignals = ontology.Group{Name: "positive", Keywords: []string{
		"high", "strong", "satisfied", "growth", "loyal", "positive", "excellent", "love", "improve",
	}}
	negativeSignals = ontology.Group{Name: "negative", Keywords: []string{
		"low", "risk", "switching", "concern", "churn", "dissatisfied", "decline", "complaint", "weak", "friction",
	}}
	contrastSignals = ontology.Group{Name: "contrast", Keywords: []string{
		"unexpected", "however", "despite", "surprising", "contrary", "counterintuitive", "paradox",
	}}
)

// Extractor finds the dominant narrative claim in an insight set.
type Extractor struct {
	themes []ontology.Group
}

// NewExtractor creates an extractor over the given theme vocabulary.
func NewExtractor(themes []ontology.Group) *Extractor {
	return &Extractor{themes: themes}
}

// Extract tries, in order: a paradox between opposing signals, a
// dominant theme, a surprising finding, and finally a summary built
// from the highest-value insights. Deterministic for a fixed insight
// ordering.
func (e *Extractor) Extract(insights []model.Insight, project, objective string) model.Thesis {
	if t, ok := e.paradox(insights, project); ok {
		return t
	}
	if t, ok := e.dominantTheme(insights); ok {
		return t
	}
	if t, ok := e.surprise(insights); ok {
		return t
	}
	return e.summary(insights, project, objective)
}

// paradox pairs the first positive-signal insight with the first
// negative-signal insight from a different record. An insight may carry
// both signals, so the two scans are independent.
func (e *Extractor) paradox(insights []model.Insight, project string) (model.Thesis, bool) {
	var pos *model.Insight
	for i := range insights {
		if positiveSignals.Matches(insights[i].Text) {
			pos = &insights[i]
			break
		}
	}
	if pos == nil {
		return model.Thesis{}, false
	}

	var neg *model.Insight
	for i := range insights {
		if insights[i].ID != pos.ID && negativeSignals.Matches(insights[i].Text) {
			neg = &insights[i]
			break
		}
	}
	if neg == nil {
		return model.Thesis{}, false
	}

	confidence := pos.Confidence
	if neg.Confidence < confidence {
		confidence = neg.Confidence
	}

	return model.Thesis{
		Title: fmt.Sprintf("The %s Paradox", project),
		Hook:  fmt.Sprintf("%s, yet %s.", clause(pos.Text), lowerFirst(clause(neg.Text))),
		Summary: fmt.Sprintf("The data points in two directions at once. %s. At the same time, %s.",
			clause(pos.Text), lowerFirst(clause(neg.Text))),
		Implication:          "Resolving this tension is the clearest lever the findings expose.",
		Confidence:           confidence,
		SupportingInsightIDs: []string{pos.ID, neg.ID},
	}, true
}

// dominantTheme picks the theme with the most matching insights,
// requiring at least two. Ties go to the earlier theme in the table.
func (e *Extractor) dominantTheme(insights []model.Insight) (model.Thesis, bool) {
	var best ontology.Group
	var matched []model.Insight

	for _, theme := range e.themes {
		var hits []model.Insight
		for _, in := range insights {
			if theme.Matches(in.Text) {
				hits = append(hits, in)
			}
		}
		if len(hits) > len(matched) {
			best = theme
			matched = hits
		}
	}
	if len(matched) < 2 {
		return model.Thesis{}, false
	}

	ids := make([]string, len(matched))
	var confSum float64
	for i, in := range matched {
		ids[i] = in.ID
		confSum += in.Confidence
	}

	return model.Thesis{
		Title: fmt.Sprintf("The %s Story", titleCase(best.Name)),
		Hook:  fmt.Sprintf("%d of %d findings point to %s as the driving theme.", len(matched), len(insights), best.Name),
		Summary: fmt.Sprintf("%s. Across the dataset, %d findings return to %s.",
			clause(matched[0].Text), len(matched), best.Name),
		Implication:          fmt.Sprintf("Lead with %s; the supporting findings give it depth.", best.Name),
		Confidence:           confSum / float64(len(matched)),
		SupportingInsightIDs: ids,
	}, true
}

// surprise looks for explicit contrast language, then for a single
// finding that is both high-confidence and high-value.
func (e *Extractor) surprise(insights []model.Insight) (model.Thesis, bool) {
	for _, in := range insights {
		if contrastSignals.Matches(in.Text) {
			return surpriseThesis("An Unexpected Finding", in), true
		}
	}
	for _, in := range insights {
		if in.Confidence >= 0.8 && in.BusinessValue >= 0.8 {
			return surpriseThesis("The Standout Finding", in), true
		}
	}
	return model.Thesis{}, false
}

func surpriseThesis(title string, in model.Insight) model.Thesis {
	return model.Thesis{
		Title:                title,
		Hook:                 clause(in.Text) + ".",
		Summary:              fmt.Sprintf("One finding stands apart from the rest: %s.", lowerFirst(clause(in.Text))),
		Implication:          "This finding deserves its own slide; the rest of the data is context.",
		Confidence:           in.Confidence,
		SupportingInsightIDs: []string{in.ID},
	}
}

// summary builds a generic thesis from the top insights by business
// value when no sharper pattern exists.
func (e *Extractor) summary(insights []model.Insight, project, objective string) model.Thesis {
	top := make([]model.Insight, len(insights))
	copy(top, insights)
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].BusinessValue > top[j].BusinessValue
	})
	if len(top) > 3 {
		top = top[:3]
	}

	hook := fmt.Sprintf("A handful of findings carry most of the story for %s.", project)
	if objective != "" {
		hook = fmt.Sprintf("Measured against the objective (%s), a handful of findings carry most of the story.", objective)
	}

	clauses := make([]string, len(top))
	ids := make([]string, len(top))
	for i, in := range top {
		clauses[i] = clause(in.Text)
		ids[i] = in.ID
	}

	confidence := 0.5
	if len(insights) > 0 {
		var sum float64
		for _, in := range insights {
			sum += in.Confidence
		}
		confidence = sum / float64(len(insights))
	}

	return model.Thesis{
		Title:                fmt.Sprintf("%s: What the Data Shows", project),
		Hook:                 hook,
		Summary:              strings.Join(clauses, ". ") + ".",
		Implication:          "Start with the highest-value findings; the rest of the data supports them.",
		Confidence:           confidence,
		SupportingInsightIDs: ids,
	}
}

// clause returns the first sentence of text, without its trailing
// period, capped at 140 characters.
func clause(text string) string {
	s := strings.TrimSpace(text)
	if idx := strings.Index(s, ". "); idx > 0 {
		s = s[:idx]
	}
	s = strings.TrimRight(s, ".")
	if len(s) > 140 {
		s = strings.TrimSpace(s[:140])
	}
	return s
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
