package models

import "time"

// Run status values.
const (
	RunStatusRunning     = "running"
	RunStatusFinished    = "finished"
	RunStatusInterrupted = "interrupted"
)

// RunStatus tracks the progress of one crawl invocation.
type RunStatus struct {
	RunID               string    `json:"run_id"`
	Seeds               []string  `json:"seeds"`
	Status              string    `json:"status"`
	PagesProcessed      int       `json:"pages_processed"`
	PagesSkipped        int       `json:"pages_skipped"`
	RenderFailures      int       `json:"render_failures"`
	QuestionsFound      int       `json:"questions_found"`
	QuestionsDispatched int       `json:"questions_dispatched"`
	StartedAt           time.Time `json:"started_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}
