// Package section partitions insights into the thematic blocks of a
// story and orders them by importance.
package section

import (
	"sort"
	"strings"

	"github.com/storymint/storymint/internal/model"
	"github.com/storymint/storymint/internal/ontology"
)

// CatchAllTitle names the section that absorbs insights no theme
// claimed.
const CatchAllTitle = "Key Findings"

// DefaultMinSectionSize is the smallest group worth presenting as its
// own section.
const DefaultMinSectionSize = 2

// Result is the outcome of one grouping run. Dropped counts insights
// that matched no group and fell below the catch-all threshold; they
// appear in no section.
type Result struct {
	Sections []model.Section
	Dropped  int
}

// Grouper turns a flat insight list into ordered sections. An insight
// is assigned to at most one section per run.
type Grouper interface {
	Group(insights []model.Insight, chartRefs map[string]string, minSectionSize int) Result
}

type rankedSection struct {
	section model.Section
	score   float64
}

// KeywordGrouper clusters insights against the theme vocabulary, then
// retries leftovers against the coarser metric vocabulary.
type KeywordGrouper struct {
	vocab ontology.Ontology
}

// NewKeywordGrouper creates a grouper over the given vocabulary.
func NewKeywordGrouper(vocab ontology.Ontology) *KeywordGrouper {
	return &KeywordGrouper{vocab: vocab}
}

// Group assigns each insight to the first theme it matches, disbands
// groups with fewer than two members, retries the pool against the
// metric table, and finally collects what remains into a catch-all
// section when the remainder is at least minSectionSize.
func (g *KeywordGrouper) Group(insights []model.Insight, chartRefs map[string]string, minSectionSize int) Result {
	if minSectionSize <= 0 {
		minSectionSize = DefaultMinSectionSize
	}

	themeGroups, pool := assignGroups(insights, g.vocab.Themes)
	metricGroups, pool := assignGroups(pool, g.vocab.Metrics)

	var ranked []rankedSection
	for _, gr := range themeGroups {
		sec, score := buildSection(gr.name, gr.members, chartRefs)
		ranked = append(ranked, rankedSection{sec, score})
	}
	for _, gr := range metricGroups {
		sec, score := buildSection(gr.name, gr.members, chartRefs)
		ranked = append(ranked, rankedSection{sec, score})
	}

	dropped := 0
	var catchAll *model.Section
	if len(pool) >= minSectionSize {
		sec, _ := buildSection("key findings", pool, chartRefs)
		sec.Title = CatchAllTitle
		sec.Subtitle = "Findings outside the main themes"
		catchAll = &sec
	} else {
		dropped = len(pool)
	}

	return Result{Sections: finalize(ranked, catchAll), Dropped: dropped}
}

type group struct {
	name    string
	members []model.Insight
}

// assignGroups matches each insight to the first table entry whose
// keywords appear in its text. Groups below two members disband and
// their insights rejoin the leftover pool in input order.
func assignGroups(insights []model.Insight, table []ontology.Group) ([]group, []model.Insight) {
	byName := make(map[string][]model.Insight)
	nameOf := make(map[string]string, len(insights))

	for _, in := range insights {
		for _, t := range table {
			if t.Matches(in.Text) {
				byName[t.Name] = append(byName[t.Name], in)
				nameOf[in.ID] = t.Name
				break
			}
		}
	}

	var groups []group
	kept := make(map[string]bool)
	for _, t := range table {
		if len(byName[t.Name]) >= 2 {
			kept[t.Name] = true
			groups = append(groups, group{name: t.Name, members: byName[t.Name]})
		}
	}

	var leftover []model.Insight
	for _, in := range insights {
		if !kept[nameOf[in.ID]] {
			leftover = append(leftover, in)
		}
	}
	return groups, leftover
}

// ConceptGrouper clusters insights around the most frequent substantive
// words in the corpus. It is the fallback when no theme vocabulary fits
// the domain.
type ConceptGrouper struct{}

// NewConceptGrouper creates a frequency-based grouper.
func NewConceptGrouper() *ConceptGrouper {
	return &ConceptGrouper{}
}

const maxConcepts = 10

// Group derives up to ten concepts from corpus word frequency and
// assigns each insight to the concept it mentions most, falling back to
// the insight's own category label. Groups need two members to become
// sections, relaxed to one for small insight sets. There is no
// catch-all; unassignable insights are counted as dropped.
func (g *ConceptGrouper) Group(insights []model.Insight, chartRefs map[string]string, minSectionSize int) Result {
	concepts := topConcepts(insights, maxConcepts)

	threshold := 2
	if len(insights) < 5 {
		threshold = 1
	}

	members := make(map[string][]model.Insight)
	var order []string
	addTo := func(name string, in model.Insight) {
		if _, ok := members[name]; !ok {
			order = append(order, name)
		}
		members[name] = append(members[name], in)
	}

	dropped := 0
	for _, in := range insights {
		best := ""
		bestCount := 0
		lower := strings.ToLower(in.Text)
		for _, c := range concepts {
			if n := strings.Count(lower, c); n > bestCount {
				best, bestCount = c, n
			}
		}
		switch {
		case bestCount > 0:
			addTo(best, in)
		case in.Category != "":
			addTo(strings.ToLower(in.Category), in)
		default:
			dropped++
		}
	}

	var ranked []rankedSection
	for _, name := range order {
		ms := members[name]
		if len(ms) < threshold {
			dropped += len(ms)
			continue
		}
		sec, score := buildSection(name, ms, chartRefs)
		ranked = append(ranked, rankedSection{sec, score})
	}

	return Result{Sections: finalize(ranked, nil), Dropped: dropped}
}

// conceptStopWords filters function words that survive the length
// cutoff but carry no topical signal.
var conceptStopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "against": true,
	"because": true, "before": true, "being": true, "below": true, "between": true,
	"could": true, "during": true, "every": true, "other": true,
	"should": true, "since": true, "still": true, "their": true, "there": true,
	"these": true, "those": true, "through": true, "under": true, "where": true,
	"which": true, "while": true, "would": true,
}

// topConcepts returns the n most frequent substantive words across all
// insight text. Ties break toward the word seen first.
func topConcepts(insights []model.Insight, n int) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	seq := 0

	for _, in := range insights {
		for _, w := range strings.Fields(strings.ToLower(in.Text)) {
			w = strings.Trim(w, ".,!?:;\"'()-[]")
			if len(w) <= 4 || conceptStopWords[w] {
				continue
			}
			if _, ok := counts[w]; !ok {
				firstSeen[w] = seq
				seq++
			}
			counts[w]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// buildSection assembles a section from its members and returns it with
// its importance score: mean business value plus a small size bonus.
func buildSection(name string, members []model.Insight, chartRefs map[string]string) (model.Section, float64) {
	ids := make([]string, len(members))
	var refs []string
	seenRef := make(map[string]bool)
	var bvSum float64

	lead := members[0]
	for i, in := range members {
		ids[i] = in.ID
		bvSum += in.BusinessValue
		if in.BusinessValue > lead.BusinessValue {
			lead = in
		}
		if ref := chartRefs[in.ID]; ref != "" && !seenRef[ref] {
			seenRef[ref] = true
			refs = append(refs, ref)
		}
	}

	sec := model.Section{
		ID:         "sec-" + slugify(name),
		Title:      titleCase(name),
		Thesis:     clause(lead.Text) + ".",
		ChartRefs:  refs,
		InsightIDs: ids,
	}
	score := bvSum/float64(len(members)) + 0.05*float64(len(members))
	return sec, score
}

// finalize sorts sections by importance, pins the catch-all last, and
// assigns the 0-based order.
func finalize(ranked []rankedSection, catchAll *model.Section) []model.Section {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	sections := make([]model.Section, 0, len(ranked)+1)
	for _, r := range ranked {
		sections = append(sections, r.section)
	}
	if catchAll != nil {
		sections = append(sections, *catchAll)
	}
	for i := range sections {
		sections[i].Order = i
	}
	return sections
}

func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if isAlnum {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
		} else {
			pendingDash = true
		}
	}
	return b.String()
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

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
