package chart

import (
	"testing"

	"github.com/storymint/storymint/internal/model"
)

func TestSelectPrecedence(t *testing.T) {
	cases := []struct {
		name    string
		insight model.Insight
		shape   DataShape
		want    model.ChartType
	}{
		{
			name:    "geography wins over everything",
			insight: model.Insight{Text: "Share of revenue by region shows a funnel pattern"},
			shape:   DataShape{GeoColumns: []string{"region"}, CorrelatedSeries: 3},
			want:    model.ChartChoropleth,
		},
		{
			name:    "three correlated series become a heatmap",
			insight: model.Insight{Text: "Spend, visits, and basket size move together"},
			shape:   DataShape{CorrelatedSeries: 3, ValueColumns: []string{"spend", "visits", "basket"}},
			want:    model.ChartHeatmap,
		},
		{
			name:    "two correlated series become a scatter",
			insight: model.Insight{Text: "Spend rises with visit frequency"},
			shape:   DataShape{CorrelatedSeries: 2, ValueColumns: []string{"spend", "visits"}},
			want:    model.ChartScatter,
		},
		{
			name:    "spread-out single series becomes a histogram",
			insight: model.Insight{Text: "Order values vary widely"},
			shape:   DataShape{ValueColumns: []string{"order_value"}, UniqueRatio: 0.8},
			want:    model.ChartHistogram,
		},
		{
			name:    "flow vocabulary becomes a sankey",
			insight: model.Insight{Text: "The signup funnel loses half its volume at step two"},
			shape:   DataShape{ValueColumns: []string{"count"}},
			want:    model.ChartSankey,
		},
		{
			name:    "hierarchical categories become a treemap",
			insight: model.Insight{Text: "Category performance varies"},
			shape:   DataShape{CategoryValues: []string{"Electronics > Phones", "Electronics > Laptops"}},
			want:    model.ChartTreemap,
		},
		{
			name:    "parts of whole with few categories becomes a pie",
			insight: model.Insight{Text: "Market share split across three brands"},
			shape:   DataShape{CategoryCount: 3},
			want:    model.ChartPie,
		},
		{
			name:    "parts of whole with many categories becomes a donut",
			insight: model.Insight{Text: "Revenue breakdown across product lines"},
			shape:   DataShape{CategoryCount: 7},
			want:    model.ChartDonut,
		},
		{
			name:    "values summing to one hundred become a pie",
			insight: model.Insight{Text: "Regional allocation of the budget"},
			shape:   DataShape{CategoryCount: 4, ValuesSum: 100.0},
			want:    model.ChartPie,
		},
		{
			name:    "time axis with few series becomes a line",
			insight: model.Insight{Text: "Sales climbed steadily"},
			shape:   DataShape{TimeColumn: "quarter", ValueColumns: []string{"sales"}},
			want:    model.ChartLine,
		},
		{
			name:    "time axis with many series becomes a stacked area",
			insight: model.Insight{Text: "Sales climbed steadily"},
			shape:   DataShape{TimeColumn: "quarter", ValueColumns: []string{"a", "b", "c", "d"}},
			want:    model.ChartStackedArea,
		},
		{
			name:    "comparison with one series becomes a bar",
			insight: model.Insight{Text: "North outperforms every other territory"},
			shape:   DataShape{CategoryCount: 4, ValueColumns: []string{"sales"}},
			want:    model.ChartBar,
		},
		{
			name:    "comparison with many categories goes horizontal",
			insight: model.Insight{Text: "Ranking of the twelve store formats"},
			shape:   DataShape{CategoryCount: 12, ValueColumns: []string{"sales"}},
			want:    model.ChartHorizontalBar,
		},
		{
			name:    "comparison with multiple series becomes grouped bars",
			insight: model.Insight{Text: "Online versus in-store performance by region"},
			shape:   DataShape{CategoryCount: 4, ValueColumns: []string{"online", "in_store"}},
			want:    model.ChartGroupedBar,
		},
		{
			name:    "no hints default to a bar",
			insight: model.Insight{Text: "Findings without obvious structure"},
			shape:   DataShape{},
			want:    model.ChartBar,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := Select(tc.insight, tc.shape)
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSelectParams(t *testing.T) {
	in := model.Insight{Text: "Average basket size compared across formats"}
	shape := DataShape{CategoryColumn: "format", ValueColumns: []string{"basket_size"}, CategoryCount: 4}

	ct, p := Select(in, shape)
	if ct != model.ChartBar {
		t.Errorf("expected bar, got %s", ct)
	}
	if p.XAxis != "format" || p.YAxis != "basket_size" {
		t.Errorf("unexpected axes: %+v", p)
	}
	if p.Aggregate != "mean" {
		t.Errorf("expected mean aggregate for average language, got %s", p.Aggregate)
	}
}

func TestSelectHistogramCountsValues(t *testing.T) {
	in := model.Insight{Text: "Order values vary widely"}
	shape := DataShape{ValueColumns: []string{"order_value"}, UniqueRatio: 0.9}

	ct, p := Select(in, shape)
	if ct != model.ChartHistogram {
		t.Fatalf("expected histogram, got %s", ct)
	}
	if p.XAxis != "order_value" || p.Aggregate != "count" {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestShapeFromJSON(t *testing.T) {
	raw := []byte(`{
		"category_column": "region",
		"time_column": "quarter",
		"value_columns": ["sales", "visits"],
		"category_values": ["North", "South", "East"],
		"correlated_series": 2,
		"unique_ratio": 0.4,
		"values_sum": 100
	}`)

	shape := ShapeFromJSON(raw)
	if shape.CategoryColumn != "region" || shape.TimeColumn != "quarter" {
		t.Errorf("unexpected columns: %+v", shape)
	}
	if len(shape.ValueColumns) != 2 || shape.CorrelatedSeries != 2 {
		t.Errorf("unexpected series hints: %+v", shape)
	}
	// Count falls back to the number of category values.
	if shape.CategoryCount != 3 {
		t.Errorf("expected category count 3, got %d", shape.CategoryCount)
	}
}

func TestShapeFromJSONMalformed(t *testing.T) {
	shape := ShapeFromJSON(nil)
	if shape.CategoryColumn != "" || shape.CategoryCount != 0 || shape.ValueColumns != nil {
		t.Errorf("expected zero shape for nil payload, got %+v", shape)
	}
	shape = ShapeFromJSON([]byte(`{"rows": [1, 2, 3`))
	if shape.CategoryColumn != "" || shape.CategoryCount != 0 || shape.ValueColumns != nil {
		t.Errorf("expected zero shape for malformed payload, got %+v", shape)
	}
}
