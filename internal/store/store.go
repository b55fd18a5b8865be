// Package store persists qualified items and pipeline runs, keyed by
// normalized URL with unique-constraint semantics.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutline/curator/internal/model"
)

// ErrConflict is returned by InsertItem when the normalized URL already
// exists. Callers treat it as "already exists", never as run-fatal.
var ErrConflict = eris.New("store: item already exists")

// StoredItem is a persisted qualified candidate.
type StoredItem struct {
	ID            string                    `json:"id"`
	NormalizedURL string                    `json:"normalized_url"`
	Candidate     model.NormalizedCandidate `json:"candidate"`
	Score         int                       `json:"score"`
	SeenAt        time.Time                 `json:"seen_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Items
	InsertItem(ctx context.Context, item *StoredItem) (string, error)
	GetItemByURL(ctx context.Context, normalizedURL string) (*StoredItem, error)
	RecentItems(ctx context.Context, days int) ([]StoredItem, error)
	CountItems(ctx context.Context) (int64, error)
	CountItemsByCategory(ctx context.Context) (map[model.Category]int64, error)

	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.PipelineRunResult) error
	FailRun(ctx context.Context, runID string, runErr string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
