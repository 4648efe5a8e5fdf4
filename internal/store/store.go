package store

import (
	"context"
	"time"

	"github.com/nhle/mailq/internal/model"
)

// RunFilter controls filtering and pagination for history queries.
type RunFilter struct {
	Account *string
	Folder  *string
	Failed  *bool
	Limit   int
	Offset  int
}

// Store defines the persistence interface for the query history.
type Store interface {
	// RecordRun saves r, assigning an ID if it has none, and returns the ID.
	RecordRun(ctx context.Context, r model.Run) (string, error)

	// ListRuns returns runs matching opts, newest first.
	ListRuns(ctx context.Context, opts RunFilter) ([]model.Run, error)

	GetRun(ctx context.Context, id string) (*model.Run, error)

	// PruneRuns deletes runs started before cutoff and reports how many
	// were removed.
	PruneRuns(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
