package models

import (
	"strings"
	"time"
)

// NoAnswerFound is stored when no answer element follows a question.
const NoAnswerFound = "No explicit answer found"

// QuestionRecord is a single question/answer pair extracted from a page.
// Field names match the JSON layout of the persisted question file.
type QuestionRecord struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Source    string    `json:"source"`
	Category  string    `json:"category,omitempty"`
	ScrapedAt time.Time `json:"scrapedAt"`
}

// Key is the natural dedup key: the question text, case-folded.
func (q QuestionRecord) Key() string {
	return QuestionKey(q.Question)
}

// QuestionKey case-folds question text for exact-match comparison.
func QuestionKey(question string) string {
	return strings.ToLower(question)
}

// ExtractedPage is the extractor output for one rendered page.
type ExtractedPage struct {
	Title     string           `json:"title"`
	URL       string           `json:"url"`
	Questions []QuestionRecord `json:"questions"`
}
