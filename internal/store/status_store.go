package store

import (
	"context"

	"interview-harvester/internal/models"
)

// StatusStore persists crawl run status.
type StatusStore interface {
	SetStatus(ctx context.Context, status models.RunStatus) error
	GetStatus(ctx context.Context, runID string) (models.RunStatus, bool, error)
}
