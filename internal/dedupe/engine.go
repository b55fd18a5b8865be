package dedupe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scoutline/curator/internal/model"
)

// Duplicate reasons recorded for observability. Duplicates are never
// discarded without one.
const (
	ReasonExactURL    = "exact-url"
	ReasonWithinBatch = "within-batch"
)

// CorpusRecord is a previously seen item loaded for duplicate comparison.
type CorpusRecord struct {
	NormalizedURL string
	Title         string
	Description   string
	SeenAt        time.Time
}

// CorpusLookup provides read access to the existing corpus.
type CorpusLookup interface {
	// ExactMatch returns the record with the given normalized URL, or nil.
	ExactMatch(ctx context.Context, normalizedURL string) (*CorpusRecord, error)
	// RecentWindow returns records seen within the last `days` days.
	RecentWindow(ctx context.Context, days int) ([]CorpusRecord, error)
}

// Config controls fuzzy matching behavior.
type Config struct {
	// SimilarityThreshold above which a candidate counts as a fuzzy
	// duplicate of a corpus record. Default: 0.7.
	SimilarityThreshold float64
	// WindowDays bounds the corpus window scanned for fuzzy comparison.
	// Default: 30.
	WindowDays int
}

// DefaultConfig returns the default dedup configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.7,
		WindowDays:          30,
	}
}

// Duplicate is a candidate rejected by the engine, with the record it
// matched and why.
type Duplicate struct {
	Candidate model.NormalizedCandidate `json:"candidate"`
	Reason    string                    `json:"reason"`
	MatchURL  string                    `json:"match_url,omitempty"`
	Score     float64                   `json:"score"`
}

// Outcome is a partition of the input batch; every input candidate appears
// in exactly one of the two slices.
type Outcome struct {
	Unique     []model.NormalizedCandidate
	Duplicates []Duplicate
}

// Engine detects exact and fuzzy duplicates within a batch and against the
// corpus.
type Engine struct {
	cfg    Config
	corpus CorpusLookup
}

// NewEngine creates a deduplication engine backed by the given corpus.
func NewEngine(cfg Config, corpus CorpusLookup) *Engine {
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = 0.7
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	return &Engine{cfg: cfg, corpus: corpus}
}

// Dedupe partitions the batch into unique candidates and duplicates.
//
// Phase 1 walks the batch in input order keeping a seen-set of content
// hashes and normalized URLs; the first occurrence wins. Phase 2 checks
// each survivor against the corpus: an exact normalized-URL hit is always a
// duplicate (similarity 1.0, no comparison needed); otherwise the recent
// corpus window is scanned and the first record over the similarity
// threshold wins. Corpus lookup failures degrade to "not duplicate" —
// over-admission into qualification is safer than silently dropping
// content.
func (e *Engine) Dedupe(ctx context.Context, batch []model.NormalizedCandidate) Outcome {
	out := Outcome{}

	// Phase 1: intra-batch.
	seenHash := make(map[string]string, len(batch))
	seenURL := make(map[string]bool, len(batch))
	var survivors []model.NormalizedCandidate
	for _, c := range batch {
		hash := ContentHash(c.NormalizedURL, c.Title, c.Description)
		if seenURL[c.NormalizedURL] || seenHash[hash] != "" {
			matchURL := seenHash[hash]
			if matchURL == "" {
				matchURL = c.NormalizedURL
			}
			out.Duplicates = append(out.Duplicates, Duplicate{
				Candidate: c,
				Reason:    ReasonWithinBatch,
				MatchURL:  matchURL,
				Score:     1.0,
			})
			continue
		}
		seenHash[hash] = c.NormalizedURL
		seenURL[c.NormalizedURL] = true
		survivors = append(survivors, c)
	}

	if len(survivors) == 0 {
		return out
	}

	// Load the corpus window once so every candidate in the batch compares
	// against the same stable snapshot.
	window, err := e.corpus.RecentWindow(ctx, e.cfg.WindowDays)
	if err != nil {
		zap.L().Warn("dedupe: corpus window unavailable, skipping fuzzy pass",
			zap.Int("window_days", e.cfg.WindowDays),
			zap.Error(err),
		)
		window = nil
	}

	// Phase 2: corpus.
	for _, c := range survivors {
		if dup, ok := e.corpusMatch(ctx, c, window); ok {
			out.Duplicates = append(out.Duplicates, dup)
			continue
		}
		out.Unique = append(out.Unique, c)
	}

	return out
}

// corpusMatch checks one candidate against the corpus. Exact URL match
// short-circuits; otherwise first-match-wins over the window.
func (e *Engine) corpusMatch(ctx context.Context, c model.NormalizedCandidate, window []CorpusRecord) (Duplicate, bool) {
	existing, err := e.corpus.ExactMatch(ctx, c.NormalizedURL)
	if err != nil {
		zap.L().Warn("dedupe: exact match lookup failed, treating as unique",
			zap.String("url", c.NormalizedURL),
			zap.Error(err),
		)
	} else if existing != nil {
		return Duplicate{
			Candidate: c,
			Reason:    ReasonExactURL,
			MatchURL:  existing.NormalizedURL,
			Score:     1.0,
		}, true
	}

	for _, rec := range window {
		score := Similarity(
			c.NormalizedURL, c.Title, c.Description,
			rec.NormalizedURL, rec.Title, rec.Description,
		)
		if score > e.cfg.SimilarityThreshold {
			return Duplicate{
				Candidate: c,
				Reason:    fmt.Sprintf("similarity:%.2f", score),
				MatchURL:  rec.NormalizedURL,
				Score:     score,
			}, true
		}
	}

	return Duplicate{}, false
}
