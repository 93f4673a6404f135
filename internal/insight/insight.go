// Package insight loads and normalizes insight documents before they
// enter the story pipeline.
package insight

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/storymint/storymint/internal/model"
)

// Document is the on-disk shape of an insight bundle. A bare JSON array
// of insights is also accepted and treated as a document with no
// project metadata.
type Document struct {
	Project   string            `json:"project,omitempty"`
	Objective string            `json:"objective,omitempty"`
	Context   string            `json:"context,omitempty"`
	ChartRefs map[string]string `json:"chart_refs,omitempty"`
	Insights  []model.Insight   `json:"insights"`
}

// LoadFile reads and parses an insight document from path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading insights: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes an insight document. It accepts either a document
// object or a bare array of insights.
func Parse(data []byte) (*Document, error) {
	trimmed := strings.TrimLeftFunc(string(data), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if strings.HasPrefix(trimmed, "[") {
		var insights []model.Insight
		if err := json.Unmarshal(data, &insights); err != nil {
			return nil, err
		}
		return &Document{Insights: insights}, nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Normalize fills in missing IDs, clamps scores into [0,1], and rejects
// duplicate IDs. Insights with empty text are dropped. It returns the
// cleaned slice, leaving the input untouched.
func Normalize(insights []model.Insight) ([]model.Insight, error) {
	out := make([]model.Insight, 0, len(insights))
	seen := make(map[string]bool, len(insights))

	for i, in := range insights {
		if strings.TrimSpace(in.Text) == "" {
			continue
		}
		if in.ID == "" {
			in.ID = fmt.Sprintf("insight_%d", i+1)
		}
		if seen[in.ID] {
			return nil, fmt.Errorf("duplicate insight id %q", in.ID)
		}
		seen[in.ID] = true

		in.Confidence = clamp01(in.Confidence)
		in.BusinessValue = clamp01(in.BusinessValue)
		in.Actionability = clamp01(in.Actionability)
		out = append(out, in)
	}
	return out, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
