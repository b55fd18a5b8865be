package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutline/curator/internal/config"
	"github.com/scoutline/curator/internal/model"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.ScorerConfig {
	return config.ScorerConfig{
		MinScore:     40,
		ScoreWorkers: 1,
		Project: config.ProjectRules{
			MaxTeamSize:      10,
			MaxFundingRaised: 500000,
			MinLaunchYear:    2020,
		},
		Funding: config.FundingRules{
			MinDeadlineDays: 7,
		},
		Resource: config.ResourceRules{
			MaxPrice: 50,
		},
	}
}

func testScorer() *Scorer {
	s := New(testConfig())
	s.nowFunc = func() time.Time { return testNow }
	return s
}

func projectCandidate(attrs model.ProjectAttributes) model.NormalizedCandidate {
	return model.NormalizedCandidate{
		URL:           "https://example.io/p",
		NormalizedURL: "https://example.io/p",
		Title:         "Example Project",
		Description:   "An early-stage project",
		Category:      model.CategoryProject,
		Tags:          []string{"saas"},
		PublishedAt:   testNow.AddDate(0, 0, -2),
		Attrs:         attrs,
	}
}

func TestScore_ProjectTeamSizeDisqualifier(t *testing.T) {
	s := testScorer()

	got := s.Score(projectCandidate(model.ProjectAttributes{TeamSize: 50}))

	assert.True(t, got.Disqualified)
	assert.Equal(t, 0, got.Score)
	require.Len(t, got.Reasons, 1)
	assert.Contains(t, got.Reasons[0], "disqualified: team size 50")
}

func TestScore_ProjectFundingRaisedDisqualifier(t *testing.T) {
	s := testScorer()

	got := s.Score(projectCandidate(model.ProjectAttributes{FundingRaised: 2000000}))

	assert.True(t, got.Disqualified)
	assert.Equal(t, 0, got.Score)
}

func TestScore_ProjectLaunchYearDisqualifier(t *testing.T) {
	s := testScorer()

	old := s.Score(projectCandidate(model.ProjectAttributes{
		LaunchedAt: time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC),
	}))
	assert.True(t, old.Disqualified)

	// Unknown launch date never trips the cutoff.
	unknown := s.Score(projectCandidate(model.ProjectAttributes{}))
	assert.False(t, unknown.Disqualified)
}

func TestScore_FundingDeadlineDisqualifier(t *testing.T) {
	s := testScorer()

	c := model.NormalizedCandidate{
		URL:           "https://grants.example.org/x",
		NormalizedURL: "https://grants.example.org/x",
		Title:         "Builder Grant",
		Category:      model.CategoryFunding,
		Attrs:         model.FundingAttributes{Deadline: testNow.AddDate(0, 0, 3)},
	}
	got := s.Score(c)
	assert.True(t, got.Disqualified)
	assert.Contains(t, got.Reasons[0], "deadline in 3 days")

	// Rolling applications (no deadline) stay in.
	c.Attrs = model.FundingAttributes{}
	assert.False(t, s.Score(c).Disqualified)
}

func TestScore_ResourcePriceDisqualifier(t *testing.T) {
	s := testScorer()

	c := model.NormalizedCandidate{
		URL:           "https://example.io/course",
		NormalizedURL: "https://example.io/course",
		Title:         "Expensive Course",
		Category:      model.CategoryResource,
		Attrs:         model.ResourceAttributes{Price: 80, PriceType: "paid", Format: "course"},
	}
	got := s.Score(c)

	assert.True(t, got.Disqualified)
	assert.Contains(t, got.Reasons[0], "price 80.00 exceeds max 50.00")
}

func TestScore_UnknownCategoryDisqualified(t *testing.T) {
	s := testScorer()

	got := s.Score(model.NormalizedCandidate{
		URL:           "https://example.io/x",
		NormalizedURL: "https://example.io/x",
		Category:      model.Category("newsletter"),
	})

	assert.True(t, got.Disqualified)
	assert.Equal(t, 0, got.Score)
}

func TestScore_QualifiedStaysInRange(t *testing.T) {
	s := testScorer()

	// A candidate strong on every axis hits the 100 ceiling, never above.
	full := projectCandidate(model.ProjectAttributes{
		TeamSize:          3,
		Stage:             "launched",
		LaunchedAt:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		NeedsFunding:      true,
		NeedsUsers:        true,
		AcceleratorBacked: true,
	})
	full.Engagement = 500

	got := s.Score(full)
	require.False(t, got.Disqualified)
	assert.Equal(t, 100, got.Score)

	// A bare candidate still scores at least 1.
	bare := model.NormalizedCandidate{
		URL:           "https://example.io/bare",
		NormalizedURL: "https://example.io/bare",
		Category:      model.CategoryProject,
	}
	bareGot := s.Score(bare)
	require.False(t, bareGot.Disqualified)
	assert.GreaterOrEqual(t, bareGot.Score, 1)
	assert.LessOrEqual(t, bareGot.Score, 100)
}

func TestScore_MissingAttributesAreNeutral(t *testing.T) {
	s := testScorer()

	got := s.Score(projectCandidate(model.ProjectAttributes{}))

	require.False(t, got.Disqualified)
	assert.Equal(t, 6, got.Components["stage"])
	assert.Equal(t, 5, got.Components["team_size"])
	assert.Equal(t, 0, got.Components["traction"])
	assert.NotContains(t, got.Components, "accelerator")
}

func TestScore_RecencyBuckets(t *testing.T) {
	s := testScorer()

	cases := []struct {
		name string
		age  time.Duration
		want int
	}{
		{"this week", 2 * 24 * time.Hour, 10},
		{"this month", 20 * 24 * time.Hour, 6},
		{"this quarter", 60 * 24 * time.Hour, 3},
		{"stale", 200 * 24 * time.Hour, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := projectCandidate(model.ProjectAttributes{})
			c.PublishedAt = testNow.Add(-tc.age)
			got := s.Score(c)
			assert.Equal(t, tc.want, got.Components["recency"])
		})
	}

	// Unknown publish date is neutral, not penalized.
	c := projectCandidate(model.ProjectAttributes{})
	c.PublishedAt = time.Time{}
	assert.Equal(t, 5, s.Score(c).Components["recency"])
}

func TestScore_EngagementBuckets(t *testing.T) {
	s := testScorer()

	cases := []struct {
		engagement int
		want       int
	}{
		{500, 10},
		{100, 10},
		{30, 6},
		{5, 3},
		{0, 0},
	}
	for _, tc := range cases {
		c := projectCandidate(model.ProjectAttributes{})
		c.Engagement = tc.engagement
		got := s.Score(c)
		assert.Equal(t, tc.want, got.Components["engagement"], "engagement %d", tc.engagement)
	}
}

func TestScore_CompletenessProportional(t *testing.T) {
	s := testScorer()

	full := projectCandidate(model.ProjectAttributes{
		TeamSize:   4,
		Stage:      "beta",
		LaunchedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	sparse := model.NormalizedCandidate{
		URL:           "https://example.io/sparse",
		NormalizedURL: "https://example.io/sparse",
		Title:         "Sparse",
		Category:      model.CategoryProject,
		Attrs:         model.ProjectAttributes{},
	}

	assert.Equal(t, 10, s.Score(full).Components["completeness"])
	assert.Less(t, s.Score(sparse).Components["completeness"], 10)
}

func TestScore_FundingMechanismWeights(t *testing.T) {
	s := testScorer()

	base := model.NormalizedCandidate{
		URL:           "https://grants.example.org/x",
		NormalizedURL: "https://grants.example.org/x",
		Title:         "Grant",
		Category:      model.CategoryFunding,
	}

	grant := base
	grant.Attrs = model.FundingAttributes{Mechanism: "grant"}
	prize := base
	prize.Attrs = model.FundingAttributes{Mechanism: "prize"}

	assert.Equal(t, 8, s.Score(grant).Components["mechanism"])
	assert.Equal(t, 5, s.Score(prize).Components["mechanism"])
	assert.Greater(t, s.Score(grant).Score, s.Score(prize).Score)
}

func TestScore_FundingNoEquityAndEligibility(t *testing.T) {
	s := testScorer()

	c := model.NormalizedCandidate{
		URL:           "https://grants.example.org/open",
		NormalizedURL: "https://grants.example.org/open",
		Title:         "Open Grant",
		Category:      model.CategoryFunding,
		Attrs: model.FundingAttributes{
			Amount:          150000,
			NoEquity:        true,
			OpenEligibility: true,
		},
	}
	got := s.Score(c)

	require.False(t, got.Disqualified)
	assert.Equal(t, 15, got.Components["no_equity"])
	assert.Equal(t, 10, got.Components["open_eligibility"])
	assert.Equal(t, 12, got.Components["amount"])
}

func TestScore_ResourceFreeBeatsPaid(t *testing.T) {
	s := testScorer()

	base := model.NormalizedCandidate{
		URL:           "https://example.io/tool",
		NormalizedURL: "https://example.io/tool",
		Title:         "Tool",
		Category:      model.CategoryResource,
	}

	free := base
	free.Attrs = model.ResourceAttributes{PriceType: "free", Format: "tool"}
	freemium := base
	freemium.Attrs = model.ResourceAttributes{Price: 10, PriceType: "freemium", Format: "tool"}
	paid := base
	paid.Attrs = model.ResourceAttributes{Price: 45, PriceType: "paid", Format: "tool"}

	freeScore := s.Score(free).Score
	freemiumScore := s.Score(freemium).Score
	paidScore := s.Score(paid).Score

	assert.Greater(t, freeScore, freemiumScore)
	assert.Greater(t, freemiumScore, paidScore)
}

func TestScore_ReasonsExplainComponents(t *testing.T) {
	s := testScorer()

	got := s.Score(projectCandidate(model.ProjectAttributes{
		Stage:    "beta",
		TeamSize: 2,
	}))

	require.False(t, got.Disqualified)
	assert.Contains(t, got.Reasons, "stage +12")
	assert.Contains(t, got.Reasons, "team_size +10")
}
