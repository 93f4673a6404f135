package story

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/storymint/storymint/internal/llm"
	"github.com/storymint/storymint/internal/model"
	"github.com/storymint/storymint/internal/narrative"
	"github.com/storymint/storymint/internal/ontology"
	"github.com/storymint/storymint/internal/section"
	"github.com/storymint/storymint/internal/thesis"
)

// Strategy produces the interpretive parts of a story. Structural
// guarantees (section membership, ordering, KPI ranks) are identical
// across implementations; strategies differ only in how the text
// surfaces are written.
type Strategy interface {
	Thesis(ctx context.Context, insights []model.Insight, project, objective string) model.Thesis
	Sections(ctx context.Context, insights []model.Insight, chartRefs map[string]string, minSectionSize int) section.Result
	SectionText(ctx context.Context, mode model.NarrativeMode, sec model.Section, members []model.Insight) string
	Summary(ctx context.Context, mode model.NarrativeMode, in narrative.Input) string
	Name() string
}

// HeuristicStrategy builds every surface from deterministic rules.
// Same inputs, same story, every time.
type HeuristicStrategy struct {
	extractor *thesis.Extractor
	grouper   section.Grouper
}

// NewHeuristicStrategy builds a strategy over the given vocabulary.
// A nil grouper selects keyword grouping.
func NewHeuristicStrategy(vocab ontology.Ontology, grouper section.Grouper) *HeuristicStrategy {
	if grouper == nil {
		grouper = section.NewKeywordGrouper(vocab)
	}
	return &HeuristicStrategy{
		extractor: thesis.NewExtractor(vocab.Themes),
		grouper:   grouper,
	}
}

// Name identifies the strategy in manifest metadata.
func (s *HeuristicStrategy) Name() string { return "heuristic" }

func (s *HeuristicStrategy) Thesis(_ context.Context, insights []model.Insight, project, objective string) model.Thesis {
	return s.extractor.Extract(insights, project, objective)
}

func (s *HeuristicStrategy) Sections(_ context.Context, insights []model.Insight, chartRefs map[string]string, minSectionSize int) section.Result {
	return s.grouper.Group(insights, chartRefs, minSectionSize)
}

func (s *HeuristicStrategy) SectionText(_ context.Context, mode model.NarrativeMode, sec model.Section, members []model.Insight) string {
	return narrative.SectionText(mode, sec, members)
}

func (s *HeuristicStrategy) Summary(_ context.Context, mode model.NarrativeMode, in narrative.Input) string {
	return narrative.ExecutiveSummary(mode, in)
}

const thesisPrompt = `You are a data storyteller. Given a project and its analytical findings, write the central thesis of the story.

Project: %s
Objective: %s

Findings:
%s

Respond with ONLY this JSON:
{
    "title": "A short, compelling story title",
    "hook": "One sentence that earns the reader's attention",
    "summary": "One or two sentences stating the central claim",
    "implication": "One sentence on what the business should do about it"
}`

const sectionLabelPrompt = `You are naming one section of a data story. Given the findings it covers, write a title and subtitle.

Findings:
%s

Respond with ONLY this JSON:
{
    "title": "A 2-4 word section title",
    "subtitle": "A one-line subtitle"
}`

const sectionNarrativePrompt = `You are writing one section of a data story for %s readers. %s

Section: %s
Section thesis: %s

Findings in this section:
%s

Write 2-4 sentences. Use markdown for emphasis. Respond with ONLY this JSON:
{
    "narrative": "The section narrative"
}`

const summaryPrompt = `You are writing the executive summary of a data story for %s readers. %s

Project: %s
Story thesis: %s
Headline KPIs:
%s

Sections: %s

Write 3-5 sentences. Respond with ONLY this JSON:
{
    "summary": "The executive summary"
}`

// ModelAssistedStrategy asks an LLM to write the text surfaces and
// falls back to the heuristic strategy whenever the provider is
// missing, errors, or returns something unparseable. With no provider
// its output is identical to HeuristicStrategy.
type ModelAssistedStrategy struct {
	provider llm.Provider
	fallback *HeuristicStrategy
}

// NewModelAssistedStrategy wraps a provider around the heuristic core.
// The provider may be nil.
func NewModelAssistedStrategy(provider llm.Provider, vocab ontology.Ontology, grouper section.Grouper) *ModelAssistedStrategy {
	return &ModelAssistedStrategy{
		provider: provider,
		fallback: NewHeuristicStrategy(vocab, grouper),
	}
}

// Name identifies the strategy in manifest metadata.
func (s *ModelAssistedStrategy) Name() string { return "model_assisted" }

func (s *ModelAssistedStrategy) available() bool {
	return s.provider != nil && s.provider.IsConfigured()
}

// Thesis overlays model-written text onto the heuristic thesis.
// Confidence and supporting IDs always come from the heuristic pass.
func (s *ModelAssistedStrategy) Thesis(ctx context.Context, insights []model.Insight, project, objective string) model.Thesis {
	base := s.fallback.Thesis(ctx, insights, project, objective)
	if !s.available() {
		return base
	}

	prompt := fmt.Sprintf(thesisPrompt, project, objective, formatInsights(insights))
	responseText, err := s.provider.Generate(ctx, prompt, 500)
	if err != nil {
		log.Printf("Thesis generation failed, keeping heuristic thesis: %v", err)
		return base
	}
	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		log.Println("Unparseable thesis response, keeping heuristic thesis")
		return base
	}

	base.Title = getStr(parsed, "title", base.Title)
	base.Hook = getStr(parsed, "hook", base.Hook)
	base.Summary = getStr(parsed, "summary", base.Summary)
	base.Implication = getStr(parsed, "implication", base.Implication)
	return base
}

// Sections keeps the heuristic partition and ordering, and lets the
// model rewrite titles and subtitles. The catch-all section keeps its
// fixed name so readers always recognize the misc bucket.
func (s *ModelAssistedStrategy) Sections(ctx context.Context, insights []model.Insight, chartRefs map[string]string, minSectionSize int) section.Result {
	res := s.fallback.Sections(ctx, insights, chartRefs, minSectionSize)
	if !s.available() {
		return res
	}

	byID := indexByID(insights)
	for i := range res.Sections {
		sec := &res.Sections[i]
		if sec.Title == section.CatchAllTitle {
			continue
		}

		prompt := fmt.Sprintf(sectionLabelPrompt, formatInsights(membersOf(*sec, byID)))
		responseText, err := s.provider.Generate(ctx, prompt, 200)
		if err != nil {
			log.Printf("Label generation for %s failed, keeping heuristic label: %v", sec.ID, err)
			continue
		}
		parsed := llm.ParseJSONResponse(responseText)
		if parsed == nil {
			continue
		}
		sec.Title = getStr(parsed, "title", sec.Title)
		sec.Subtitle = getStr(parsed, "subtitle", sec.Subtitle)
	}
	return res
}

func (s *ModelAssistedStrategy) SectionText(ctx context.Context, mode model.NarrativeMode, sec model.Section, members []model.Insight) string {
	base := s.fallback.SectionText(ctx, mode, sec, members)
	if !s.available() {
		return base
	}

	audience, hint := audienceHint(mode)
	prompt := fmt.Sprintf(sectionNarrativePrompt, audience, hint, sec.Title, sec.Thesis, formatInsights(members))
	responseText, err := s.provider.Generate(ctx, prompt, 600)
	if err != nil {
		log.Printf("Narrative generation for %s failed, keeping heuristic text: %v", sec.ID, err)
		return base
	}
	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return base
	}
	return getStr(parsed, "narrative", base)
}

func (s *ModelAssistedStrategy) Summary(ctx context.Context, mode model.NarrativeMode, in narrative.Input) string {
	base := s.fallback.Summary(ctx, mode, in)
	if !s.available() {
		return base
	}

	audience, hint := audienceHint(mode)
	prompt := fmt.Sprintf(summaryPrompt, audience, hint,
		in.ProjectName, in.Thesis.Summary, formatKPIs(in.TopKPIs), formatSectionTitles(in.Sections))
	responseText, err := s.provider.Generate(ctx, prompt, 800)
	if err != nil {
		log.Printf("Summary generation failed, keeping heuristic summary: %v", err)
		return base
	}
	parsed := llm.ParseJSONResponse(responseText)
	if parsed == nil {
		return base
	}
	return getStr(parsed, "summary", base)
}

func audienceHint(mode model.NarrativeMode) (string, string) {
	switch mode {
	case model.ModeAnalyst:
		return "analyst", "Reference patterns across findings and cite confidence levels."
	case model.ModeTechnical:
		return "technical", "Report sample sizes, confidence statistics, and data provenance."
	}
	return "executive", "Use plain business language and lead with what matters."
}

func formatInsights(insights []model.Insight) string {
	var parts []string
	for i, in := range insights {
		parts = append(parts, fmt.Sprintf("[%d] %s\n  Confidence: %.2f, business value: %.2f",
			i+1, in.Text, in.Confidence, in.BusinessValue))
	}
	return strings.Join(parts, "\n\n")
}

func formatKPIs(kpis []model.KPI) string {
	var parts []string
	for _, k := range kpis {
		parts = append(parts, fmt.Sprintf("[%d] %s (%s)", k.Rank, k.Value, k.Label))
	}
	return strings.Join(parts, "\n")
}

func formatSectionTitles(sections []model.Section) string {
	titles := make([]string, len(sections))
	for i, sec := range sections {
		titles[i] = sec.Title
	}
	return strings.Join(titles, ", ")
}

func getStr(m map[string]any, key, fallback string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}
