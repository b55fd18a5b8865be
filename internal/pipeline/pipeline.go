package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/dedupe"
	"github.com/scoutline/curator/internal/model"
	"github.com/scoutline/curator/internal/scorer"
	"github.com/scoutline/curator/internal/store"
)

// Pipeline sequences fetch, normalize, deduplicate, score, and persist over
// a single batch. Per-item failures are recorded and the item dropped; only
// a fully unreachable sink halts a run early.
type Pipeline struct {
	cfg    *config.Config
	store  store.Store
	engine *dedupe.Engine
	scorer *scorer.Scorer
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store) *Pipeline {
	engine := dedupe.NewEngine(dedupe.Config{
		SimilarityThreshold: cfg.Dedupe.SimilarityThreshold,
		WindowDays:          cfg.Dedupe.WindowDays,
	}, store.NewCorpusAdapter(st))

	return &Pipeline{
		cfg:    cfg,
		store:  st,
		engine: engine,
		scorer: scorer.New(cfg.Scorer),
	}
}

// Run executes one ingestion run over the given adapters. A run with zero
// fetched items, or where every item fails a stage, is not an error; only a
// sink unreachable for the whole batch surfaces as one, and even then the
// returned result carries all prior-stage statistics.
func (p *Pipeline) Run(ctx context.Context, adapters []Adapter) (*model.PipelineRunResult, error) {
	log := zap.L()
	start := time.Now().UTC()

	result := &model.PipelineRunResult{StartedAt: start}

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log = log.With(zap.String("run_id", run.ID))
	log.Info("pipeline: starting run", zap.Int("sources", len(adapters)))

	deadline := time.Duration(p.cfg.Pipeline.RunDeadlineMs) * time.Millisecond
	if deadline <= 0 {
		deadline = 300 * time.Second
	}
	// The final run-record writes must survive deadline expiry, or an
	// expired run would be left at its last stage status with no result.
	recordCtx := context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// ===== Fetch =====
	setStatus(model.RunStatusFetching)
	raws := p.fetchStage(ctx, adapters, result)
	result.Fetched = len(raws)

	// ===== Normalize =====
	setStatus(model.RunStatusNormalizing)
	batch := p.normalizeStage(raws, result)
	result.Normalized = len(batch)

	// ===== Deduplicate =====
	var qualified []scorer.Result
	if p.expired(ctx, result) {
		log.Warn("pipeline: run deadline expired before dedup")
	} else {
		setStatus(model.RunStatusDeduplicating)
		outcome := p.engine.Dedupe(ctx, batch)
		result.Unique = len(outcome.Unique)
		for _, dup := range outcome.Duplicates {
			log.Debug("pipeline: duplicate dropped",
				zap.String("url", dup.Candidate.NormalizedURL),
				zap.String("reason", dup.Reason),
				zap.String("match", dup.MatchURL),
			)
		}

		// ===== Score =====
		if p.expired(ctx, result) {
			log.Warn("pipeline: run deadline expired before scoring")
		} else {
			setStatus(model.RunStatusScoring)
			ranked := p.scorer.ScoreAndRank(outcome.Unique)
			qualified = scorer.FilterQualified(ranked, p.cfg.Scorer.MinScore)
			result.Qualified = len(qualified)
		}
	}

	// ===== Persist =====
	var fatal error
	if len(qualified) > 0 {
		if p.expired(ctx, result) {
			// Unpersisted results are discarded whole, never partially written.
			log.Warn("pipeline: run deadline expired before persist, discarding scored batch",
				zap.Int("discarded", len(qualified)),
			)
		} else {
			setStatus(model.RunStatusPersisting)
			fatal = p.persistStage(ctx, qualified, result)
		}
	}

	elapsed := time.Since(start)
	result.DurationMs = elapsed.Milliseconds()

	if fatal != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("persist: %v", fatal))
		if failErr := p.store.FailRun(recordCtx, run.ID, fatal.Error()); failErr != nil {
			log.Warn("pipeline: failed to record run failure", zap.Error(failErr))
		}
		log.Error("pipeline: run failed", zap.Error(fatal))
		return result, eris.Wrap(fatal, "pipeline: persist stage")
	}

	if err := p.store.UpdateRunResult(recordCtx, run.ID, result); err != nil {
		log.Warn("pipeline: failed to record run result", zap.Error(err))
	}

	log.Info("pipeline: run complete",
		zap.Int("fetched", result.Fetched),
		zap.Int("normalized", result.Normalized),
		zap.Int("unique", result.Unique),
		zap.Int("qualified", result.Qualified),
		zap.Int("inserted", result.Inserted),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("partial", result.Partial),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

// fetchStage invokes all adapters concurrently. One adapter's failure never
// aborts the batch; it is recorded as a per-item error.
func (p *Pipeline) fetchStage(ctx context.Context, adapters []Adapter, result *model.PipelineRunResult) []model.RawCandidate {
	var mu sync.Mutex
	var raws []model.RawCandidate

	limit := p.cfg.Fetch.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, adapter := range adapters {
		adapter := adapter
		g.Go(func() error {
			items, err := adapter.Fetch(gCtx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("fetch %s: %v", adapter.Name(), err))
				return nil
			}
			raws = append(raws, items...)
			return nil
		})
	}
	_ = g.Wait()

	return raws
}

// normalizeStage converts raw candidates, dropping any that fail validation.
func (p *Pipeline) normalizeStage(raws []model.RawCandidate, result *model.PipelineRunResult) []model.NormalizedCandidate {
	var batch []model.NormalizedCandidate
	for _, raw := range raws {
		c, err := Normalize(raw)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("normalize [%s]: %v", raw.Origin, err))
			continue
		}
		batch = append(batch, c)
	}
	return batch
}

// persistStage inserts qualified candidates. Conflicts are success-no-ops;
// any other store error is treated as the sink being unreachable and stops
// the stage for the rest of the batch.
func (p *Pipeline) persistStage(ctx context.Context, qualified []scorer.Result, result *model.PipelineRunResult) error {
	for _, r := range qualified {
		if ctx.Err() != nil {
			result.Partial = true
			return nil
		}

		_, err := p.store.InsertItem(ctx, &store.StoredItem{
			NormalizedURL: r.Candidate.NormalizedURL,
			Candidate:     r.Candidate,
			Score:         r.Score,
		})
		if err != nil {
			if eris.Is(err, store.ErrConflict) {
				zap.L().Debug("pipeline: item already exists",
					zap.String("url", r.Candidate.NormalizedURL),
				)
				continue
			}
			return err
		}
		result.Inserted++
	}
	return nil
}

// expired reports whether the run deadline has passed, marking the result
// partial. No new stage work is scheduled after expiry.
func (p *Pipeline) expired(ctx context.Context, result *model.PipelineRunResult) bool {
	if ctx.Err() != nil {
		result.Partial = true
		return true
	}
	return false
}
