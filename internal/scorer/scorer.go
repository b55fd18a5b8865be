// Package scorer assigns qualification scores to normalized candidates
// using category-specific rules, hard disqualifiers, and shared universal
// boosts.
package scorer

import (
	"fmt"
	"time"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/model"
)

// baseScore is the starting point for every candidate that survives the
// disqualifier pass. Category rules and universal boosts add on top.
const baseScore = 30

// Result holds the scoring outcome for a single candidate.
type Result struct {
	Candidate    model.NormalizedCandidate `json:"candidate"`
	Score        int                       `json:"score"`
	Reasons      []string                  `json:"reasons"`
	Disqualified bool                      `json:"disqualified"`
	Components   map[string]int            `json:"component_scores,omitempty"`
}

// Scorer scores candidates against the configured rule set.
type Scorer struct {
	cfg config.ScorerConfig

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// New creates a Scorer with the given config.
func New(cfg config.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg, nowFunc: time.Now}
}

// Score evaluates a single candidate. Disqualified candidates always score
// exactly 0; everything else lands in [1,100].
func (s *Scorer) Score(c model.NormalizedCandidate) Result {
	now := s.nowFunc()

	var components map[string]int
	var disqReason string

	switch c.Category {
	case model.CategoryProject:
		components, disqReason = scoreProject(c, s.cfg.Project)
	case model.CategoryFunding:
		components, disqReason = scoreFunding(c, s.cfg.Funding, now)
	case model.CategoryResource:
		components, disqReason = scoreResource(c, s.cfg.Resource)
	default:
		disqReason = fmt.Sprintf("unknown category %q", c.Category)
	}

	if disqReason != "" {
		return Result{
			Candidate:    c,
			Score:        0,
			Reasons:      []string{"disqualified: " + disqReason},
			Disqualified: true,
		}
	}

	components["base"] = baseScore
	components["recency"] = scoreRecency(c.PublishedAt, now)
	components["engagement"] = scoreEngagement(c.Engagement)
	components["completeness"] = scoreCompleteness(c)

	total := 0
	reasons := make([]string, 0, len(components))
	for name, pts := range components {
		total += pts
		if pts != 0 && name != "base" {
			reasons = append(reasons, fmt.Sprintf("%s +%d", name, pts))
		}
	}

	if total > 100 {
		total = 100
	}
	if total < 1 {
		total = 1
	}

	return Result{
		Candidate:  c,
		Score:      total,
		Reasons:    reasons,
		Components: components,
	}
}

// scoreRecency rewards recently published content. A missing publish date
// gets a neutral middle value instead of a penalty.
func scoreRecency(publishedAt time.Time, now time.Time) int {
	if publishedAt.IsZero() {
		return 5
	}
	age := now.Sub(publishedAt)
	switch {
	case age <= 7*24*time.Hour:
		return 10
	case age <= 30*24*time.Hour:
		return 6
	case age <= 90*24*time.Hour:
		return 3
	default:
		return 0
	}
}

// scoreEngagement rewards candidates with an external engagement signal
// (upvotes, stars, reactions). Zero engagement is common and neutral.
func scoreEngagement(engagement int) int {
	switch {
	case engagement >= 100:
		return 10
	case engagement >= 25:
		return 6
	case engagement > 0:
		return 3
	default:
		return 0
	}
}

// scoreCompleteness returns 0-10 points proportional to the fraction of
// category-relevant fields present, so sparsely populated sources are not
// unduly punished by any single missing field.
func scoreCompleteness(c model.NormalizedCandidate) int {
	present, required := 0, 3
	if c.Title != "" {
		present++
	}
	if c.Description != "" {
		present++
	}
	if len(c.Tags) > 0 {
		present++
	}

	switch attrs := c.Attrs.(type) {
	case model.ProjectAttributes:
		required += 3
		if attrs.TeamSize > 0 {
			present++
		}
		if attrs.Stage != "" {
			present++
		}
		if !attrs.LaunchedAt.IsZero() {
			present++
		}
	case model.FundingAttributes:
		required += 3
		if attrs.Amount > 0 {
			present++
		}
		if !attrs.Deadline.IsZero() {
			present++
		}
		if attrs.Mechanism != "" {
			present++
		}
	case model.ResourceAttributes:
		required += 2
		if attrs.PriceType != "" {
			present++
		}
		if attrs.Format != "" {
			present++
		}
	}

	return present * 10 / required
}
