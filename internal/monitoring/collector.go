// Package monitoring reports point-in-time health of the ingestion system.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/scoutline/curator/internal/model"
	"github.com/scoutline/curator/internal/resilience"
	"github.com/scoutline/curator/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system health.
type MetricsSnapshot struct {
	// Run metrics (within lookback window).
	RunsTotal    int     `json:"runs_total"`
	RunsComplete int     `json:"runs_complete"`
	RunsFailed   int     `json:"runs_failed"`
	RunsPartial  int     `json:"runs_partial"`
	RunFailRate  float64 `json:"run_fail_rate"`

	// Aggregate pipeline counts over the window.
	Fetched   int `json:"fetched"`
	Unique    int `json:"unique"`
	Qualified int `json:"qualified"`
	Inserted  int `json:"inserted"`

	// Corpus size.
	ItemsTotal      int64                    `json:"items_total"`
	ItemsByCategory map[model.Category]int64 `json:"items_by_category,omitempty"`

	// Circuit breaker state per origin.
	Origins map[string]string `json:"origins,omitempty"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// BreakerStates abstracts the fetch layer's breaker snapshot.
type BreakerStates interface {
	BreakerStates() map[string]resilience.CircuitState
}

// Collector gathers metrics from the store and fetch layer.
type Collector struct {
	store    store.Store
	breakers BreakerStates
}

// NewCollector creates a metrics collector. breakers may be nil when no
// fetch client is active (e.g. offline status queries).
func NewCollector(st store.Store, breakers BreakerStates) *Collector {
	return &Collector{store: st, breakers: breakers}
}

// Collect gathers a snapshot of system metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	runs, err := c.store.ListRuns(ctx, store.RunFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	for _, r := range runs {
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		snap.RunsTotal++
		switch r.Status {
		case model.RunStatusComplete:
			snap.RunsComplete++
		case model.RunStatusFailed:
			snap.RunsFailed++
		}
		if r.Result != nil {
			if r.Result.Partial {
				snap.RunsPartial++
			}
			snap.Fetched += r.Result.Fetched
			snap.Unique += r.Result.Unique
			snap.Qualified += r.Result.Qualified
			snap.Inserted += r.Result.Inserted
		}
	}

	finished := snap.RunsComplete + snap.RunsFailed
	if finished > 0 {
		snap.RunFailRate = float64(snap.RunsFailed) / float64(finished)
	}

	snap.ItemsTotal, err = c.store.CountItems(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count items")
	}
	snap.ItemsByCategory, err = c.store.CountItemsByCategory(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count items by category")
	}

	if c.breakers != nil {
		states := c.breakers.BreakerStates()
		if len(states) > 0 {
			snap.Origins = make(map[string]string, len(states))
			for origin, state := range states {
				snap.Origins[origin] = state.String()
			}
		}
	}

	return snap, nil
}
