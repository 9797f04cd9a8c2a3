package models

import (
	"time"

	"github.com/google/uuid"
)

// CrawlJob is the unit of extracted output submitted to the processing queue.
type CrawlJob struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	URL       string           `json:"url"`
	Questions []QuestionRecord `json:"questions"`
	ScrapedAt time.Time        `json:"scrapedAt"`
}

// NewCrawlJob wraps an extracted page in a job with a fresh id.
func NewCrawlJob(page ExtractedPage, now time.Time) CrawlJob {
	questions := make([]QuestionRecord, len(page.Questions))
	copy(questions, page.Questions)
	return CrawlJob{
		ID:        uuid.NewString(),
		Title:     page.Title,
		URL:       page.URL,
		Questions: questions,
		ScrapedAt: now.UTC(),
	}
}
