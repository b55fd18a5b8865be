package scorer

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/scoutline/curator/internal/model"
)

// ScoreAndRank scores the whole batch and returns results sorted by score
// descending. Scoring is pure per candidate, so batches run across a worker
// pool. Ties break by most-recent publish date, then lexicographically by
// title, so ranking is deterministic.
func (s *Scorer) ScoreAndRank(batch []model.NormalizedCandidate) []Result {
	results := make([]Result, len(batch))

	workers := s.cfg.ScoreWorkers
	if workers <= 0 {
		workers = 4
	}

	if workers > 1 && len(batch) > 1 {
		pool, err := ants.NewPool(workers)
		if err != nil {
			zap.L().Warn("scorer: worker pool unavailable, scoring serially", zap.Error(err))
			s.scoreSerial(batch, results)
		} else {
			defer pool.Release()
			var wg sync.WaitGroup
			for i := range batch {
				wg.Add(1)
				idx := i
				if err := pool.Submit(func() {
					defer wg.Done()
					results[idx] = s.Score(batch[idx])
				}); err != nil {
					results[idx] = s.Score(batch[idx])
					wg.Done()
				}
			}
			wg.Wait()
		}
	} else {
		s.scoreSerial(batch, results)
	}

	sortResults(results)
	return results
}

func (s *Scorer) scoreSerial(batch []model.NormalizedCandidate, results []Result) {
	for i := range batch {
		results[i] = s.Score(batch[i])
	}
}

// FilterQualified drops disqualified results and anything under the minimum
// score. This is the only place disqualification turns into rejection.
func FilterQualified(results []Result, minScore int) []Result {
	var qualified []Result
	for _, r := range results {
		if r.Disqualified || r.Score < minScore {
			continue
		}
		qualified = append(qualified, r)
	}
	return qualified
}

// sortResults sorts descending by score with deterministic tie-breaking.
// Insertion sort is fine for typical batch sizes (<1000).
func sortResults(results []Result) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && ranksHigher(results[j], results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func ranksHigher(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Candidate.PublishedAt.Equal(b.Candidate.PublishedAt) {
		return a.Candidate.PublishedAt.After(b.Candidate.PublishedAt)
	}
	return a.Candidate.Title < b.Candidate.Title
}
