package extract

import "strings"

// DefaultCategory is used when no keyword matches.
const DefaultCategory = "General"

// CategoryRule maps any of its keywords to a label.
type CategoryRule struct {
	Label    string
	Keywords []string
}

// DefaultCategories is checked in order; the first rule with a matching keyword wins.
// Some keywords carry a space to avoid matching inside longer words.
var DefaultCategories = []CategoryRule{
	{Label: "Web Development", Keywords: []string{"javascript", "js ", " js", "node", "react", "angular"}},
	{Label: "Programming Languages", Keywords: []string{"python", "java ", "c++", "c#"}},
	{Label: "Algorithms & Data Structures", Keywords: []string{"algorithm", "data structure", "complexity", "big o"}},
	{Label: "Databases", Keywords: []string{"sql", "database", "mongodb", "nosql"}},
	{Label: "System Design", Keywords: []string{"system design", "architecture", "scale", "distributed"}},
	{Label: "Management & Leadership", Keywords: []string{"manager", "leadership", "team", "project"}},
	{Label: "Behavioral", Keywords: []string{"behavior", "tell me about", "yourself", "challenge"}},
}

// Categorizer labels question text by substring lookup.
type Categorizer struct {
	rules []CategoryRule
}

// NewCategorizer uses rules, or DefaultCategories when rules is empty.
func NewCategorizer(rules []CategoryRule) *Categorizer {
	if len(rules) == 0 {
		rules = DefaultCategories
	}
	return &Categorizer{rules: rules}
}

// Categorize returns the label of the first matching rule.
func (c *Categorizer) Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, k := range rule.Keywords {
			if strings.Contains(lower, k) {
				return rule.Label
			}
		}
	}
	return DefaultCategory
}
