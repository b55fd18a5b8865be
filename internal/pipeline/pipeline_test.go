package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/model"
	"github.com/scoutline/curator/internal/store"
)

func testPipelineConfig() *config.Config {
	return &config.Config{
		Fetch: config.FetchConfig{MaxConcurrent: 4},
		Dedupe: config.DedupeConfig{
			SimilarityThreshold: 0.7,
			WindowDays:          30,
		},
		Scorer: config.ScorerConfig{
			MinScore:     1,
			ScoreWorkers: 1,
			Project: config.ProjectRules{
				MaxTeamSize:      10,
				MaxFundingRaised: 500000,
				MinLaunchYear:    2020,
			},
			Funding:  config.FundingRules{MinDeadlineDays: 7},
			Resource: config.ResourceRules{MaxPrice: 50},
		},
		Pipeline: config.PipelineConfig{RunDeadlineMs: 30000},
	}
}

func newPipelineStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fakeAdapter feeds canned raw candidates into a run.
type fakeAdapter struct {
	name string
	raws []model.RawCandidate
	err  error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Fetch(_ context.Context) ([]model.RawCandidate, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.raws, nil
}

func rawProject(url, title string) model.RawCandidate {
	payload, _ := json.Marshal(rawPayload{
		URL:         url,
		Title:       title,
		Description: "An early-stage project",
		Category:    "project",
		PublishedAt: time.Now().UTC().AddDate(0, 0, -1),
	})
	return model.RawCandidate{
		Origin:    "test-origin",
		Payload:   payload,
		FetchedAt: time.Now().UTC(),
	}
}

func rawWithURL(url string) model.RawCandidate {
	payload, _ := json.Marshal(rawPayload{URL: url, Title: "T", Category: "project"})
	return model.RawCandidate{Origin: "test-origin", Payload: payload, FetchedAt: time.Now().UTC()}
}

func TestRun_FullPipeline(t *testing.T) {
	st := newPipelineStore(t)
	p := New(testPipelineConfig(), st)

	adapter := &fakeAdapter{name: "feed", raws: []model.RawCandidate{
		rawProject("https://alpha.io/launch", "Alpha"),
		rawProject("https://www.alpha.io/launch/", "Alpha"), // dup of the first
		rawProject("https://beta.io/launch", "Beta"),
	}}

	result, err := p.Run(context.Background(), []Adapter{adapter})

	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Normalized)
	assert.Equal(t, 2, result.Unique)
	assert.Equal(t, 2, result.Qualified)
	assert.Equal(t, 2, result.Inserted)
	assert.Empty(t, result.Errors)
	assert.False(t, result.Partial)

	// The run record reflects completion with the result attached.
	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.Equal(t, 2, runs[0].Result.Inserted)
	assert.GreaterOrEqual(t, runs[0].Result.DurationMs, int64(0))
	assert.Less(t, runs[0].Result.DurationMs, int64(60000), "duration is recorded in milliseconds")

	// Items are persisted under their normalized URLs.
	item, err := st.GetItemByURL(context.Background(), "https://alpha.io/launch")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Alpha", item.Candidate.Title)
}

func TestRun_AdapterFailureIsIsolated(t *testing.T) {
	st := newPipelineStore(t)
	p := New(testPipelineConfig(), st)

	adapters := []Adapter{
		&fakeAdapter{name: "down", err: eris.New("origin unreachable")},
		&fakeAdapter{name: "up", raws: []model.RawCandidate{rawProject("https://beta.io/x", "Beta")}},
	}

	result, err := p.Run(context.Background(), adapters)

	require.NoError(t, err, "one failed source must not fail the run")
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "fetch down:")
}

func TestRun_NormalizeDropsInvalidItems(t *testing.T) {
	st := newPipelineStore(t)
	p := New(testPipelineConfig(), st)

	adapter := &fakeAdapter{name: "feed", raws: []model.RawCandidate{
		rawWithURL("not-a-url"),
		rawProject("https://beta.io/x", "Beta"),
	}}

	result, err := p.Run(context.Background(), []Adapter{adapter})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 1, result.Normalized)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "normalize [test-origin]:")
}

func TestRun_KnownItemsAreDuplicates(t *testing.T) {
	st := newPipelineStore(t)
	p := New(testPipelineConfig(), st)

	// First run persists the item; the second run sees it in the corpus.
	adapter := &fakeAdapter{name: "feed", raws: []model.RawCandidate{
		rawProject("https://alpha.io/launch", "Alpha"),
	}}

	first, err := p.Run(context.Background(), []Adapter{adapter})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := p.Run(context.Background(), []Adapter{adapter})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Unique, "previously ingested item is a corpus duplicate")
	assert.Equal(t, 0, second.Inserted)
	assert.Empty(t, second.Errors)
}

// conflictStore hides the corpus so a known item reaches the persist stage
// and conflicts there instead of being caught by dedup.
type conflictStore struct {
	store.Store
}

func (s *conflictStore) GetItemByURL(context.Context, string) (*store.StoredItem, error) {
	return nil, nil
}

func (s *conflictStore) RecentItems(context.Context, int) ([]store.StoredItem, error) {
	return nil, nil
}

func TestRun_InsertConflictIsNoOp(t *testing.T) {
	sqlite := newPipelineStore(t)
	_, err := sqlite.InsertItem(context.Background(), &store.StoredItem{
		NormalizedURL: "https://alpha.io/launch",
		Candidate: model.NormalizedCandidate{
			URL:           "https://alpha.io/launch",
			NormalizedURL: "https://alpha.io/launch",
			Title:         "Alpha",
			Category:      model.CategoryProject,
		},
	})
	require.NoError(t, err)

	p := New(testPipelineConfig(), &conflictStore{Store: sqlite})
	adapter := &fakeAdapter{name: "feed", raws: []model.RawCandidate{
		rawProject("https://alpha.io/launch", "Alpha"),
		rawProject("https://beta.io/launch", "Beta"),
	}}

	result, err := p.Run(context.Background(), []Adapter{adapter})

	require.NoError(t, err, "a conflict is already-exists, never run-fatal")
	assert.Equal(t, 2, result.Qualified)
	assert.Equal(t, 1, result.Inserted, "conflicting item does not count as inserted")
	assert.Empty(t, result.Errors)
}

// brokenSink fails every insert with a non-conflict error.
type brokenSink struct {
	store.Store
}

func (s *brokenSink) InsertItem(context.Context, *store.StoredItem) (string, error) {
	return "", eris.New("connection refused")
}

func TestRun_UnreachableSinkFailsRun(t *testing.T) {
	sqlite := newPipelineStore(t)
	p := New(testPipelineConfig(), &brokenSink{Store: sqlite})

	adapter := &fakeAdapter{name: "feed", raws: []model.RawCandidate{
		rawProject("https://alpha.io/launch", "Alpha"),
	}}

	result, err := p.Run(context.Background(), []Adapter{adapter})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist stage")

	// The result still carries every prior-stage statistic.
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Qualified)
	assert.Equal(t, 0, result.Inserted)
	require.NotEmpty(t, result.Errors)

	runs, listErr := sqlite.ListRuns(context.Background(), store.RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, listErr)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "connection refused")
}

// slowAdapter blocks until its context expires.
type slowAdapter struct{}

func (slowAdapter) Name() string { return "slow" }

func (slowAdapter) Fetch(ctx context.Context) ([]model.RawCandidate, error) {
	<-ctx.Done()
	return nil, fmt.Errorf("slow source: %w", ctx.Err())
}

func TestRun_DeadlineMarksPartial(t *testing.T) {
	st := newPipelineStore(t)
	cfg := testPipelineConfig()
	cfg.Pipeline.RunDeadlineMs = 20
	p := New(cfg, st)

	result, err := p.Run(context.Background(), []Adapter{slowAdapter{}})

	require.NoError(t, err, "deadline expiry is a partial outcome, not a failure")
	assert.True(t, result.Partial)
	assert.Equal(t, 0, result.Fetched)
	assert.Equal(t, 0, result.Inserted)

	// The final record write outlives the expired deadline: the run row is
	// complete and carries the partial result, not stuck at a stage status.
	runs, err := st.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
	require.NotNil(t, runs[0].Result)
	assert.True(t, runs[0].Result.Partial)
}

func TestRun_MinScoreFiltersEverything(t *testing.T) {
	st := newPipelineStore(t)
	cfg := testPipelineConfig()
	cfg.Scorer.MinScore = 100
	p := New(cfg, st)

	adapter := &fakeAdapter{name: "feed", raws: []model.RawCandidate{
		rawProject("https://alpha.io/launch", "Alpha"),
	}}

	result, err := p.Run(context.Background(), []Adapter{adapter})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Unique)
	assert.Equal(t, 0, result.Qualified)
	assert.Equal(t, 0, result.Inserted)
}
