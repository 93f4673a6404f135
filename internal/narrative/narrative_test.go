package narrative

import (
	"strings"
	"testing"

	"github.com/storymint/storymint/internal/model"
)

func sampleInput() Input {
	return Input{
		ProjectName: "Retail Pulse",
		Objective:   "understand churn drivers",
		Context:     "n=1200 survey responses",
		Thesis: model.Thesis{
			Title:       "The Price Story",
			Hook:        "Price dominates the findings.",
			Summary:     "Shoppers are loyal until prices move.",
			Implication: "Pricing strategy deserves immediate attention.",
			Confidence:  0.8,
		},
		TopKPIs: []model.KPI{
			{Value: "82%", Label: "shoppers compare prices", Kind: model.KPIHeadline, Rank: 1},
			{Value: "+15%", Label: "churn among trial users", Kind: model.KPIDelta, Rank: 2},
		},
		Sections: []model.Section{
			{ID: "sec-price", Title: "Price", Thesis: "Price is the top consideration.", Order: 0},
			{ID: "sec-key-findings", Title: "Key Findings", Thesis: "Several findings stand alone.", Order: 1},
		},
		Insights: []model.Insight{
			{ID: "i1", Text: "Shoppers segment sharply by price sensitivity", Confidence: 0.9},
			{ID: "i2", Text: "Churn trend accelerated over time this quarter", Confidence: 0.85},
			{ID: "i3", Text: "Support tickets correlate with churn risk", Confidence: 0.4},
		},
	}
}

func TestExecutiveSummaryLeadsWithHook(t *testing.T) {
	got := ExecutiveSummary(model.ModeExecutive, sampleInput())

	if !strings.HasPrefix(got, "Price dominates the findings.") {
		t.Errorf("expected summary to open with the hook, got %q", got)
	}
	for _, want := range []string{"82%", "+15%", "Pricing strategy deserves immediate attention.", "Price and Key Findings"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected summary to contain %q, got %q", want, got)
		}
	}
}

func TestExecutiveSummaryCapsKPIsAtThree(t *testing.T) {
	in := sampleInput()
	in.TopKPIs = []model.KPI{
		{Value: "1%"}, {Value: "2%"}, {Value: "3%"}, {Value: "4%"},
	}
	got := ExecutiveSummary(model.ModeExecutive, in)
	if strings.Contains(got, "4%") {
		t.Errorf("expected at most three KPIs in summary, got %q", got)
	}
}

func TestAnalystSummaryCountsAndPatterns(t *testing.T) {
	got := ExecutiveSummary(model.ModeAnalyst, sampleInput())

	if !strings.Contains(got, "3 findings across 2 thematic sections") {
		t.Errorf("expected finding and section counts, got %q", got)
	}
	if !strings.Contains(got, "1 correlation") || !strings.Contains(got, "1 temporal") || !strings.Contains(got, "1 segmentation") {
		t.Errorf("expected pattern scan counts, got %q", got)
	}
	if !strings.Contains(got, "Price: Price is the top consideration.") {
		t.Errorf("expected section theses enumerated, got %q", got)
	}
}

func TestAnalystSummaryNoPatterns(t *testing.T) {
	in := sampleInput()
	in.Insights = []model.Insight{{ID: "i1", Text: "Customers like the new checkout flow", Confidence: 0.9}}
	got := ExecutiveSummary(model.ModeAnalyst, in)
	if !strings.Contains(got, "No recurring cross-finding patterns") {
		t.Errorf("expected no-pattern notice, got %q", got)
	}
}

func TestTechnicalSummaryReportsEvidence(t *testing.T) {
	got := ExecutiveSummary(model.ModeTechnical, sampleInput())

	for _, want := range []string{
		"Basis: 3 findings (n=1200 survey responses)",
		"2 of 3 findings at or above 0.80",
		"Evidence rigor: Moderate.",
		"2 KPIs extracted from finding text (headline, delta).",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in technical summary, got %q", want, got)
		}
	}
}

func TestRigorLabelThresholds(t *testing.T) {
	high := model.Insight{Confidence: 0.9}
	low := model.Insight{Confidence: 0.3}

	tests := []struct {
		name     string
		insights []model.Insight
		want     string
	}{
		{"empty", nil, "Preliminary"},
		{"all high", []model.Insight{high, high, high}, "High"},
		{"seventy percent", []model.Insight{high, high, high, high, high, high, high, low, low, low}, "High"},
		{"half", []model.Insight{high, low}, "Moderate"},
		{"mostly low", []model.Insight{high, low, low}, "Preliminary"},
	}
	for _, tt := range tests {
		if got := RigorLabel(tt.insights); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}

func TestExecutiveSectionTextLeadsWithThesis(t *testing.T) {
	sec := model.Section{
		Title:  "Price",
		Thesis: "Price is the top consideration.",
		KPIs:   []model.KPI{{Value: "82%", Label: "compare prices weekly", Kind: model.KPIHeadline, Rank: 1}},
	}
	members := []model.Insight{
		{ID: "i1", Text: "Price is the top consideration", Actionability: 0.9},
		{ID: "i2", Text: "Shoppers compare prices weekly", Actionability: 0.8},
	}

	got := SectionText(model.ModeExecutive, sec, members)

	if !strings.HasPrefix(got, "Price is the top consideration.") {
		t.Errorf("expected thesis first, got %q", got)
	}
	if !strings.Contains(got, "The number to remember is 82% (compare prices weekly).") {
		t.Errorf("expected KPI callout, got %q", got)
	}
	if !strings.Contains(got, "2 findings back this up.") {
		t.Errorf("expected backing count, got %q", got)
	}
	if !strings.Contains(got, "ready for action") {
		t.Errorf("expected action nudge for high actionability, got %q", got)
	}
}

func TestAnalystSectionTextCitesConfidence(t *testing.T) {
	sec := model.Section{Title: "Churn", Thesis: "Churn concentrates early."}
	members := []model.Insight{
		{ID: "i1", Text: "Churn concentrates in the first month", Confidence: 0.92},
		{ID: "i2", Text: "Trial users churn twice as often", Confidence: 0.75},
	}

	got := SectionText(model.ModeAnalyst, sec, members)

	if !strings.Contains(got, "draws on 2 findings") {
		t.Errorf("expected member count, got %q", got)
	}
	if !strings.Contains(got, "(confidence 0.92)") {
		t.Errorf("expected confidence citations, got %q", got)
	}
}

func TestTechnicalSectionTextListsSources(t *testing.T) {
	sec := model.Section{
		Title:      "Churn",
		InsightIDs: []string{"i1", "i2"},
		ChartRefs:  []string{"chart_3"},
		KPIs:       []model.KPI{{Value: "2x", Kind: model.KPISupporting, Rank: 1}},
	}
	members := []model.Insight{
		{ID: "i1", Confidence: 0.9},
		{ID: "i2", Confidence: 0.7},
	}

	got := SectionText(model.ModeTechnical, sec, members)

	for _, want := range []string{"2 findings; mean confidence 0.80", "Chart references: chart_3.", "Source findings: i1, i2."} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestSummariesAreDeterministic(t *testing.T) {
	in := sampleInput()
	for _, mode := range []model.NarrativeMode{model.ModeExecutive, model.ModeAnalyst, model.ModeTechnical} {
		a := ExecutiveSummary(mode, in)
		b := ExecutiveSummary(mode, in)
		if a != b {
			t.Errorf("mode %s: expected identical output for identical input", mode)
		}
	}
}
