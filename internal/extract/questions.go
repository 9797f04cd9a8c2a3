// Package extract turns parsed documents into question records and outbound links.
package extract

import (
	"regexp"
	"strings"
	"time"

	"interview-harvester/internal/document"
	"interview-harvester/internal/models"
)

// AnswerLookahead is how many following siblings are searched for an answer.
const AnswerLookahead = 3

var (
	questionMarker = regexp.MustCompile(`(?i)^Q[:.]`)
	candidateTags  = []string{"h1", "h2", "h3", "h4", "h5", "h6", "p", "li"}
)

// QuestionExtractor pulls question/answer records out of a document.
type QuestionExtractor struct {
	categorizer *Categorizer
	now         func() time.Time
}

// Option configures a QuestionExtractor.
type Option func(*QuestionExtractor)

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *QuestionExtractor) { e.now = now }
}

// WithCategorizer overrides the category table.
func WithCategorizer(c *Categorizer) Option {
	return func(e *QuestionExtractor) { e.categorizer = c }
}

// NewQuestionExtractor builds an extractor with the default category table.
func NewQuestionExtractor(opts ...Option) *QuestionExtractor {
	e := &QuestionExtractor{
		categorizer: NewCategorizer(nil),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract runs two passes and concatenates their output. Records are not
// deduplicated within a page.
//
// The first pass walks headings, paragraphs and list items. Candidate text
// ends with '?', starts with a Q: or Q. marker, or mentions "question"; the
// answer is the first of the next few siblings that is not itself question-like.
// The second pass emits every list item ending in '?' with no answer.
func (e *QuestionExtractor) Extract(doc document.Document, sourceURL string) models.ExtractedPage {
	page := models.ExtractedPage{
		Title: doc.Title(),
		URL:   sourceURL,
	}
	scrapedAt := e.now().UTC()

	for _, el := range doc.Select(candidateTags...) {
		text := el.Text()
		if text == "" || !isCandidate(text) {
			continue
		}
		page.Questions = append(page.Questions, e.record(text, findAnswer(el), sourceURL, scrapedAt))
	}

	for _, el := range doc.Select("li") {
		text := el.Text()
		if text != "" && strings.HasSuffix(text, "?") {
			page.Questions = append(page.Questions, e.record(text, models.NoAnswerFound, sourceURL, scrapedAt))
		}
	}
	return page
}

func (e *QuestionExtractor) record(question, answer, source string, at time.Time) models.QuestionRecord {
	return models.QuestionRecord{
		Question:  question,
		Answer:    answer,
		Source:    source,
		Category:  e.categorizer.Categorize(question),
		ScrapedAt: at,
	}
}

func isCandidate(text string) bool {
	return strings.HasSuffix(text, "?") ||
		questionMarker.MatchString(text) ||
		strings.Contains(strings.ToLower(text), "question")
}

func findAnswer(el document.Element) string {
	next, ok := el.Next()
	for i := 0; i < AnswerLookahead && ok; i++ {
		text := next.Text()
		if text != "" && !strings.HasSuffix(text, "?") && !questionMarker.MatchString(text) {
			return text
		}
		next, ok = next.Next()
	}
	return models.NoAnswerFound
}
