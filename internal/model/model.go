// Package model defines the core data types shared across the story
// synthesis pipeline: insights in, story manifests out.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoInsights is returned when a story build is attempted with no insights.
var ErrNoInsights = errors.New("no insights provided")

// NarrativeMode selects the audience register for generated prose.
type NarrativeMode string

const (
	ModeExecutive NarrativeMode = "executive"
	ModeAnalyst   NarrativeMode = "analyst"
	ModeTechnical NarrativeMode = "technical"
)

// ParseNarrativeMode validates a mode string, defaulting empty to executive.
func ParseNarrativeMode(s string) (NarrativeMode, error) {
	switch NarrativeMode(s) {
	case "":
		return ModeExecutive, nil
	case ModeExecutive, ModeAnalyst, ModeTechnical:
		return NarrativeMode(s), nil
	}
	return "", fmt.Errorf("unknown narrative mode %q", s)
}

// UnmarshalJSON validates the mode on decode.
func (m *NarrativeMode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	mode, err := ParseNarrativeMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// KPIKind classifies how a KPI was derived from insight text.
type KPIKind string

const (
	KPIHeadline   KPIKind = "headline"
	KPISupporting KPIKind = "supporting"
	KPIDelta      KPIKind = "delta"
	KPICount      KPIKind = "count"
)

// UnmarshalJSON validates the kind on decode.
func (k *KPIKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch KPIKind(s) {
	case KPIHeadline, KPISupporting, KPIDelta, KPICount:
		*k = KPIKind(s)
		return nil
	}
	return fmt.Errorf("unknown kpi kind %q", s)
}

// ChartType identifies a visualization family a section can reference.
type ChartType string

const (
	ChartBar           ChartType = "bar"
	ChartHorizontalBar ChartType = "horizontal_bar"
	ChartGroupedBar    ChartType = "grouped_bar"
	ChartLine          ChartType = "line"
	ChartStackedArea   ChartType = "stacked_area"
	ChartPie           ChartType = "pie"
	ChartDonut         ChartType = "donut"
	ChartScatter       ChartType = "scatter"
	ChartHeatmap       ChartType = "heatmap"
	ChartHistogram     ChartType = "histogram"
	ChartSankey        ChartType = "sankey"
	ChartTreemap       ChartType = "treemap"
	ChartChoropleth    ChartType = "choropleth"
)

var chartTypes = map[ChartType]bool{
	ChartBar:           true,
	ChartHorizontalBar: true,
	ChartGroupedBar:    true,
	ChartLine:          true,
	ChartStackedArea:   true,
	ChartPie:           true,
	ChartDonut:         true,
	ChartScatter:       true,
	ChartHeatmap:       true,
	ChartHistogram:     true,
	ChartSankey:        true,
	ChartTreemap:       true,
	ChartChoropleth:    true,
}

// ValidChartType reports whether s names a known chart type.
func ValidChartType(s string) bool {
	return chartTypes[ChartType(s)]
}

// UnmarshalJSON validates the chart type on decode.
func (c *ChartType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !ValidChartType(s) {
		return fmt.Errorf("unknown chart type %q", s)
	}
	*c = ChartType(s)
	return nil
}

// Insight is a single analytical finding produced upstream of the pipeline.
type Insight struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Category       string          `json:"category,omitempty"`
	Confidence     float64         `json:"confidence"`      // 0..1
	BusinessValue  float64         `json:"business_value"`  // 0..1
	Actionability  float64         `json:"actionability"`   // 0..1
	SupportingData json.RawMessage `json:"supporting_data,omitempty"`
}

// Thesis is the central claim a story is organized around.
type Thesis struct {
	Title                string   `json:"title"`
	Hook                 string   `json:"hook"`
	Summary              string   `json:"summary"`
	Implication          string   `json:"implication"`
	Confidence           float64  `json:"confidence"`
	SupportingInsightIDs []string `json:"supporting_insight_ids,omitempty"`
}

// KPI is a quantitative highlight extracted from insight text.
type KPI struct {
	Value     string  `json:"value"`
	Label     string  `json:"label"`
	Context   string  `json:"context,omitempty"`
	Kind      KPIKind `json:"type"`
	Rank      int     `json:"rank"`
	InsightID string  `json:"insight_id,omitempty"`
}

// Section is one thematic block of the story.
type Section struct {
	ID            string   `json:"section_id"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Thesis        string   `json:"thesis,omitempty"`
	KPIs          []KPI    `json:"kpis,omitempty"`
	ChartRefs     []string `json:"chart_refs,omitempty"`
	InsightIDs    []string `json:"insight_ids"`
	NarrativeText string   `json:"narrative_text"`
	Order         int      `json:"order"`
}

// Manifest is the complete synthesized story document.
type Manifest struct {
	StoryID          string            `json:"story_id"`
	ProjectName      string            `json:"project_name"`
	Thesis           Thesis            `json:"thesis"`
	TopKPIs          []KPI             `json:"top_kpis"`
	Sections         []Section         `json:"sections"`
	NarrativeMode    NarrativeMode     `json:"narrative_mode"`
	ExecutiveSummary string            `json:"executive_summary"`
	KeyFindings      []string          `json:"key_findings"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}
