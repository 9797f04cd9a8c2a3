// Package classifier decides whether a rendered page looks like interview Q&A content.
package classifier

import (
	"regexp"
	"strings"
)

// DefaultKeywords are the phrases that mark a page as interview material.
var DefaultKeywords = []string{
	"interview questions",
	"coding interview",
	"technical interview",
	"job interview",
	"interview preparation",
	"common interview questions",
	"frequently asked questions",
	"interview tips",
}

// Rule identifies which heuristic matched.
type Rule string

const (
	RuleNone               Rule = ""
	RuleTitleKeyword       Rule = "title_keyword"
	RuleQAMarkers          Rule = "qa_markers"
	RuleQuestionParagraphs Rule = "question_paragraphs"
	RuleBodyKeywords       Rule = "body_keywords"
)

const (
	minQuestionParagraphs = 3
	minBodyKeywords       = 2
)

var paragraphBreak = regexp.MustCompile(`\r?\n[ \t]*\r?\n`)

// Classifier is a cheap relevance filter. It favours recall: the extractor
// drops pages that turn out to hold no questions.
type Classifier struct {
	keywords []string
}

// New returns a classifier over keywords, or DefaultKeywords when none are given.
func New(keywords ...string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		lowered = append(lowered, k)
	}
	return &Classifier{keywords: lowered}
}

// Classify reports whether the page is relevant.
func (c *Classifier) Classify(title, body string) bool {
	ok, _ := c.Evaluate(title, body)
	return ok
}

// Evaluate applies the rules in order and returns the first that matched.
// An empty title or body is never relevant.
func (c *Classifier) Evaluate(title, body string) (bool, Rule) {
	if title == "" || body == "" {
		return false, RuleNone
	}
	lowerTitle := strings.ToLower(title)
	lowerBody := strings.ToLower(body)

	for _, k := range c.keywords {
		if strings.Contains(lowerTitle, k) {
			return true, RuleTitleKeyword
		}
	}

	hasQuestionMarker := strings.Contains(lowerBody, "q:") || strings.Contains(lowerBody, "question:")
	hasAnswerMarker := strings.Contains(lowerBody, "a:") || strings.Contains(lowerBody, "answer:")
	if hasQuestionMarker && hasAnswerMarker {
		return true, RuleQAMarkers
	}

	questions := 0
	for _, p := range paragraphBreak.Split(body, -1) {
		if strings.Contains(p, "?") {
			questions++
			if questions >= minQuestionParagraphs {
				return true, RuleQuestionParagraphs
			}
		}
	}

	matched := 0
	for _, k := range c.keywords {
		if strings.Contains(lowerBody, k) {
			matched++
			if matched >= minBodyKeywords {
				return true, RuleBodyKeywords
			}
		}
	}
	return false, RuleNone
}
