// Package ontology holds the domain vocabulary used to group insights
// into themes and to recognize metric language. The tables are plain
// data so callers can swap in a domain-specific vocabulary.
package ontology

import "strings"

// Group is a named vocabulary bucket.
type Group struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Matches reports whether any keyword of the group appears in text.
// Matching is case-insensitive substring containment.
func (g Group) Matches(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range g.Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Ontology bundles the theme and metric vocabularies.
type Ontology struct {
	Themes  []Group `yaml:"themes" json:"themes"`
	Metrics []Group `yaml:"metrics" json:"metrics"`
}

// Theme returns the named theme group, if present.
func (o Ontology) Theme(name string) (Group, bool) {
	for _, g := range o.Themes {
		if g.Name == name {
			return g, true
		}
	}
	return Group{}, false
}

// Default returns the built-in general-purpose vocabulary. The order of
// themes is the priority order used when an insight matches several.
func Default() Ontology {
	return Ontology{
		Themes: []Group{
			{Name: "satisfaction", Keywords: []string{"satisfaction", "satisfied", "nps", "happy", "delighted", "csat", "sentiment", "rating"}},
			{Name: "price", Keywords: []string{"price", "pricing", "cost", "expensive", "cheap", "afford", "discount", "premium", "willingness to pay"}},
			{Name: "trust", Keywords: []string{"trust", "credibility", "reliable", "confidence in", "reputation", "privacy", "security"}},
			{Name: "loyalty", Keywords: []string{"loyalty", "loyal", "retention", "churn", "repeat", "renewal", "lifetime value", "advocacy"}},
			{Name: "quality", Keywords: []string{"quality", "defect", "durability", "reliability", "performance", "craftsmanship"}},
			{Name: "service", Keywords: []string{"service", "support", "response time", "helpdesk", "agent", "complaint", "resolution"}},
			{Name: "product", Keywords: []string{"product", "feature", "usability", "design", "functionality", "packaging"}},
			{Name: "demographics", Keywords: []string{"age", "gender", "income", "demographic", "millennial", "gen z", "boomer", "household"}},
			{Name: "geography", Keywords: []string{"region", "regional", "country", "urban", "rural", "city", "state", "province", "territory"}},
			{Name: "time", Keywords: []string{"trend", "quarter", "month", "year-over-year", "seasonal", "growth", "decline", "over time"}},
		},
		Metrics: []Group{
			{Name: "revenue", Keywords: []string{"revenue", "sales", "turnover", "income"}},
			{Name: "cost", Keywords: []string{"cost", "spend", "expense", "budget"}},
			{Name: "margin", Keywords: []string{"margin", "profit", "profitability", "ebitda"}},
			{Name: "count", Keywords: []string{"respondents", "customers", "users", "participants", "sample"}},
			{Name: "rate", Keywords: []string{"rate", "ratio", "percentage", "share", "proportion"}},
		},
	}
}
