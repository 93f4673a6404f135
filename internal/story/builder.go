// Package story orchestrates the synthesis pipeline: a flat list of
// insights goes in, an audience-adapted story manifest comes out. The
// stages run in fixed order (thesis, top KPIs, sections, per-section
// KPIs and narratives, summary, key findings) and the only hard
// failure is an empty insight list.
package story

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storymint/storymint/internal/kpi"
	"github.com/storymint/storymint/internal/model"
	"github.com/storymint/storymint/internal/narrative"
	"github.com/storymint/storymint/internal/section"
)

// DefaultMaxKeyFindings caps the key-findings list.
const DefaultMaxKeyFindings = 5

// Options tunes a Builder. Zero values select the documented defaults.
type Options struct {
	MaxKPIs        int
	SectionMaxKPIs int
	MinSectionSize int
	MaxKeyFindings int
}

// Request describes one story build.
type Request struct {
	ProjectName string
	Objective   string
	Context     string            // provenance annotation carried onto KPIs
	ChartRefs   map[string]string // insight ID -> chart handle
	Mode        model.NarrativeMode
}

// Builder assembles manifests using a fixed strategy. It holds no
// per-run state; the same builder can serve any number of builds.
type Builder struct {
	strategy Strategy
	opts     Options
}

// NewBuilder creates a builder around the given strategy.
func NewBuilder(strategy Strategy, opts Options) *Builder {
	if opts.MaxKPIs <= 0 {
		opts.MaxKPIs = kpi.DefaultMaxKPIs
	}
	if opts.SectionMaxKPIs <= 0 {
		opts.SectionMaxKPIs = kpi.DefaultSectionMaxKPIs
	}
	if opts.MinSectionSize <= 0 {
		opts.MinSectionSize = section.DefaultMinSectionSize
	}
	if opts.MaxKeyFindings <= 0 {
		opts.MaxKeyFindings = DefaultMaxKeyFindings
	}
	return &Builder{strategy: strategy, opts: opts}
}

// Build synthesizes a manifest from the given insights. It returns
// model.ErrNoInsights for an empty list; every other degenerate input
// produces a valid, possibly sparse manifest.
func (b *Builder) Build(ctx context.Context, insights []model.Insight, req Request) (*model.Manifest, error) {
	if len(insights) == 0 {
		return nil, model.ErrNoInsights
	}
	mode := req.Mode
	if mode == "" {
		mode = model.ModeExecutive
	}

	th := b.strategy.Thesis(ctx, insights, req.ProjectName, req.Objective)
	topKPIs := kpi.Extract(insights, b.opts.MaxKPIs, req.Context)
	res := b.strategy.Sections(ctx, insights, req.ChartRefs, b.opts.MinSectionSize)

	byID := indexByID(insights)
	for i := range res.Sections {
		sec := &res.Sections[i]
		members := membersOf(*sec, byID)
		sec.KPIs = kpi.Extract(members, b.opts.SectionMaxKPIs, req.Context)
		sec.NarrativeText = b.strategy.SectionText(ctx, mode, *sec, members)
	}

	summary := b.strategy.Summary(ctx, mode, narrative.Input{
		ProjectName: req.ProjectName,
		Objective:   req.Objective,
		Context:     req.Context,
		Thesis:      th,
		TopKPIs:     topKPIs,
		Sections:    res.Sections,
		Insights:    insights,
	})

	return &model.Manifest{
		StoryID:          newStoryID(req.ProjectName),
		ProjectName:      req.ProjectName,
		Thesis:           th,
		TopKPIs:          topKPIs,
		Sections:         res.Sections,
		NarrativeMode:    mode,
		ExecutiveSummary: summary,
		KeyFindings:      keyFindings(insights, b.opts.MaxKeyFindings),
		Metadata:         b.metadata(req, len(insights), res.Dropped),
	}, nil
}

// Rebuild produces a new manifest from a stored one with the narrative
// surfaces regenerated for a different audience mode. Structure
// (thesis, KPIs, sections, ordering) carries over unchanged.
func (b *Builder) Rebuild(ctx context.Context, m *model.Manifest, insights []model.Insight, mode model.NarrativeMode) (*model.Manifest, error) {
	if len(insights) == 0 {
		return nil, model.ErrNoInsights
	}
	if mode == "" {
		mode = model.ModeExecutive
	}

	out := *m
	out.Sections = make([]model.Section, len(m.Sections))
	copy(out.Sections, m.Sections)

	byID := indexByID(insights)
	for i := range out.Sections {
		sec := &out.Sections[i]
		sec.NarrativeText = b.strategy.SectionText(ctx, mode, *sec, membersOf(*sec, byID))
	}

	out.NarrativeMode = mode
	out.ExecutiveSummary = b.strategy.Summary(ctx, mode, narrative.Input{
		ProjectName: out.ProjectName,
		Objective:   m.Metadata["objective"],
		Context:     m.Metadata["context"],
		Thesis:      out.Thesis,
		TopKPIs:     out.TopKPIs,
		Sections:    out.Sections,
		Insights:    insights,
	})

	out.StoryID = newStoryID(out.ProjectName)
	out.Metadata = make(map[string]string, len(m.Metadata)+1)
	for k, v := range m.Metadata {
		out.Metadata[k] = v
	}
	out.Metadata["generated_at"] = time.Now().UTC().Format(time.RFC3339)
	out.Metadata["run_id"] = newRunID()
	out.Metadata["strategy"] = b.strategy.Name()
	out.Metadata["rebuilt_from"] = m.StoryID
	return &out, nil
}

// keyFindings returns the top-n insights by business value, each
// annotated with its business-value percentage.
func keyFindings(insights []model.Insight, n int) []string {
	sorted := make([]model.Insight, len(insights))
	copy(sorted, insights)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BusinessValue > sorted[j].BusinessValue
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	findings := make([]string, len(sorted))
	for i, in := range sorted {
		findings[i] = fmt.Sprintf("%s (business value %.0f%%)", strings.TrimSpace(in.Text), in.BusinessValue*100)
	}
	return findings
}

func (b *Builder) metadata(req Request, insightCount, dropped int) map[string]string {
	md := map[string]string{
		"generated_at":     time.Now().UTC().Format(time.RFC3339),
		"run_id":           newRunID(),
		"strategy":         b.strategy.Name(),
		"insight_count":    strconv.Itoa(insightCount),
		"dropped_insights": strconv.Itoa(dropped),
	}
	if req.Objective != "" {
		md["objective"] = req.Objective
	}
	if req.Context != "" {
		md["context"] = req.Context
	}
	return md
}

func indexByID(insights []model.Insight) map[string]model.Insight {
	byID := make(map[string]model.Insight, len(insights))
	for _, in := range insights {
		byID[in.ID] = in
	}
	return byID
}

// membersOf resolves a section's insight IDs in section order.
func membersOf(sec model.Section, byID map[string]model.Insight) []model.Insight {
	members := make([]model.Insight, 0, len(sec.InsightIDs))
	for _, id := range sec.InsightIDs {
		if in, ok := byID[id]; ok {
			members = append(members, in)
		}
	}
	return members
}

// newStoryID joins the project slug, a UTC timestamp, and a short
// random suffix so a rebuild saved in the same second stays distinct.
func newStoryID(project string) string {
	slug := slugify(project)
	if slug == "" {
		slug = "story"
	}
	return fmt.Sprintf("%s-%s-%s", slug, time.Now().UTC().Format("20060102150405"), uuid.New().String()[:8])
}

func newRunID() string {
	return fmt.Sprintf("run_%s", uuid.New().String()[:8])
}

func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
