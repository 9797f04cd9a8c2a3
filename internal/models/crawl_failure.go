package models

import "time"

// JobFailure captures a queued job that exhausted its delivery attempts.
type JobFailure struct {
	JobID    string    `json:"job_id"`
	URL      string    `json:"url,omitempty"`
	Attempts int       `json:"attempts"`
	Error    string    `json:"error"`
	Payload  string    `json:"payload,omitempty"`
	FailedAt time.Time `json:"failed_at"`
}
