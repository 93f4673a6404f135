// Package chart picks a visualization type for an insight given hints
// about the shape of its backing data. Selection is a pure function;
// rendering happens elsewhere.
package chart

import (
	"encoding/json"
	"strings"

	"github.com/storymint/storymint/internal/model"
	"github.com/storymint/storymint/internal/ontology"
)

var (
	flowVocab = ontology.Group{Name: "flow", Keywords: []string{
		"flow", "funnel", "transition", "journey", "migration", "pathway", "conversion path",
	}}
	partsVocab = ontology.Group{Name: "parts", Keywords: []string{
		"share", "proportion", "breakdown", "composition", "mix", "split", "of total",
	}}
	comparisonVocab = ontology.Group{Name: "comparison", Keywords: []string{
		"compare", "comparison", "versus", "vs.", "higher than", "lower than", "top ", "ranking", "outperform",
	}}
	averageVocab = ontology.Group{Name: "average", Keywords: []string{
		"average", "mean", "median", "typical",
	}}
)

// DataShape describes the table behind an insight. Zero values mean
// the hint is unknown.
type DataShape struct {
	CategoryColumn   string
	TimeColumn       string   // non-empty when a date or quarter-like axis exists
	GeoColumns       []string // columns holding region, country, or similar values
	ValueColumns     []string
	CategoryValues   []string
	CategoryCount    int
	CorrelatedSeries int     // numeric series that correlate with each other
	UniqueRatio      float64 // unique values / total rows on the primary value column
	ValuesSum        float64 // sum over the primary value column
}

// ShapeFromJSON decodes data-shape hints from an insight's supporting
// data. A nil or malformed payload yields the zero shape, which means
// every hint is unknown and selection falls through to text matching.
func ShapeFromJSON(raw json.RawMessage) DataShape {
	var hints struct {
		CategoryColumn   string   `json:"category_column"`
		TimeColumn       string   `json:"time_column"`
		GeoColumns       []string `json:"geo_columns"`
		ValueColumns     []string `json:"value_columns"`
		CategoryValues   []string `json:"category_values"`
		CategoryCount    int      `json:"category_count"`
		CorrelatedSeries int      `json:"correlated_series"`
		UniqueRatio      float64  `json:"unique_ratio"`
		ValuesSum        float64  `json:"values_sum"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &hints) != nil {
		return DataShape{}
	}
	if hints.CategoryCount == 0 {
		hints.CategoryCount = len(hints.CategoryValues)
	}
	return DataShape{
		CategoryColumn:   hints.CategoryColumn,
		TimeColumn:       hints.TimeColumn,
		GeoColumns:       hints.GeoColumns,
		ValueColumns:     hints.ValueColumns,
		CategoryValues:   hints.CategoryValues,
		CategoryCount:    hints.CategoryCount,
		CorrelatedSeries: hints.CorrelatedSeries,
		UniqueRatio:      hints.UniqueRatio,
		ValuesSum:        hints.ValuesSum,
	}
}

// Params carries the structural hints a renderer needs alongside the
// chart type.
type Params struct {
	XAxis     string `json:"x_axis"`
	YAxis     string `json:"y_axis"`
	SeriesBy  string `json:"series_by,omitempty"`
	Aggregate string `json:"aggregate"`
}

// Select chooses a chart type for the insight. Checks run in fixed
// precedence: geography, correlation, distribution, flow, hierarchy,
// parts-of-whole, time, comparison, then a bar default.
func Select(in model.Insight, shape DataShape) (model.ChartType, Params) {
	p := baseParams(in, shape)

	if len(shape.GeoColumns) > 0 {
		p.XAxis = shape.GeoColumns[0]
		return model.ChartChoropleth, p
	}

	if shape.CorrelatedSeries >= 3 {
		p.Aggregate = "none"
		return model.ChartHeatmap, p
	}
	if shape.CorrelatedSeries == 2 {
		p.Aggregate = "none"
		p.XAxis = firstValueColumn(shape)
		if len(shape.ValueColumns) > 1 {
			p.YAxis = shape.ValueColumns[1]
		}
		return model.ChartScatter, p
	}

	if len(shape.ValueColumns) == 1 && shape.UniqueRatio > 0.5 {
		p.XAxis = firstValueColumn(shape)
		p.YAxis = ""
		p.Aggregate = "count"
		return model.ChartHistogram, p
	}

	if flowVocab.Matches(in.Text) {
		return model.ChartSankey, p
	}

	if hierarchicalCategories(shape.CategoryValues) {
		return model.ChartTreemap, p
	}

	if partsVocab.Matches(in.Text) || sumsToWhole(shape.ValuesSum) {
		if shape.CategoryCount >= 6 {
			return model.ChartDonut, p
		}
		return model.ChartPie, p
	}

	if shape.TimeColumn != "" {
		p.XAxis = shape.TimeColumn
		if len(shape.ValueColumns) > 3 {
			p.SeriesBy = shape.CategoryColumn
			return model.ChartStackedArea, p
		}
		return model.ChartLine, p
	}

	if comparisonVocab.Matches(in.Text) {
		if len(shape.ValueColumns) > 1 {
			p.SeriesBy = shape.ValueColumns[1]
			return model.ChartGroupedBar, p
		}
		if shape.CategoryCount > 8 {
			return model.ChartHorizontalBar, p
		}
		return model.ChartBar, p
	}

	return model.ChartBar, p
}

func baseParams(in model.Insight, shape DataShape) Params {
	p := Params{
		XAxis:     shape.CategoryColumn,
		YAxis:     firstValueColumn(shape),
		Aggregate: "sum",
	}
	if p.XAxis == "" {
		p.XAxis = "category"
	}
	if averageVocab.Matches(in.Text) {
		p.Aggregate = "mean"
	}
	return p
}

func firstValueColumn(shape DataShape) string {
	if len(shape.ValueColumns) > 0 {
		return shape.ValueColumns[0]
	}
	return "value"
}

// hierarchicalCategories reports whether category values carry a
// nesting delimiter such as "Electronics > Phones".
func hierarchicalCategories(values []string) bool {
	for _, v := range values {
		if strings.Contains(v, " > ") || strings.Contains(v, "/") {
			return true
		}
	}
	return false
}

// sumsToWhole reports whether the primary series totals roughly 100,
// the signature of pre-computed percentage breakdowns.
func sumsToWhole(sum float64) bool {
	return sum >= 98 && sum <= 102
}
