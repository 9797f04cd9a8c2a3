// Package sink delivers extracted questions downstream.
package sink

import (
	"context"
	"fmt"

	"interview-harvester/internal/models"
)

// Strategy names accepted by configuration.
const (
	StrategyQueue = "queue"
	StrategyFile  = "file"
)

// Dispatcher hands an extracted page to its destination and reports how
// many records were accepted.
type Dispatcher interface {
	Dispatch(ctx context.Context, page models.ExtractedPage) (int, error)
	Close() error
}

// DispatchError reports a destination that could not accept a page.
type DispatchError struct {
	Strategy string
	Target   string
	Err      error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s sink dispatch %s: %v", e.Strategy, e.Target, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
