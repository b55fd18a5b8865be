package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, s := range []string{"project", "funding", "resource"} {
		got, err := ParseCategory(s)
		require.NoError(t, err)
		assert.Equal(t, Category(s), got)
	}

	_, err := ParseCategory("newsletter")
	require.Error(t, err)
	_, err = ParseCategory("")
	require.Error(t, err)
}

func TestNormalizedCandidate_AttrsRoundTrip(t *testing.T) {
	original := NormalizedCandidate{
		URL:           "https://example.io/p",
		NormalizedURL: "https://example.io/p",
		Title:         "Example",
		Category:      CategoryProject,
		FetchedAt:     time.Now().UTC().Truncate(time.Second),
		Attrs: ProjectAttributes{
			TeamSize:     4,
			Stage:        "beta",
			NeedsFunding: true,
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded NormalizedCandidate
	require.NoError(t, json.Unmarshal(data, &decoded))

	attrs, ok := decoded.Attrs.(ProjectAttributes)
	require.True(t, ok, "attributes decode to the category's concrete type")
	assert.Equal(t, 4, attrs.TeamSize)
	assert.Equal(t, "beta", attrs.Stage)
	assert.True(t, attrs.NeedsFunding)
}

func TestNormalizedCandidate_AttrsByCategory(t *testing.T) {
	deadline := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	funding := NormalizedCandidate{
		URL:           "https://grants.example.org/x",
		NormalizedURL: "https://grants.example.org/x",
		Category:      CategoryFunding,
		Attrs:         FundingAttributes{Amount: 50000, Deadline: deadline, Mechanism: "grant"},
	}

	data, err := json.Marshal(funding)
	require.NoError(t, err)

	var decoded NormalizedCandidate
	require.NoError(t, json.Unmarshal(data, &decoded))

	attrs, ok := decoded.Attrs.(FundingAttributes)
	require.True(t, ok)
	assert.Equal(t, int64(50000), attrs.Amount)
	assert.True(t, deadline.Equal(attrs.Deadline))
	assert.Equal(t, "grant", attrs.Mechanism)
}

func TestNormalizedCandidate_NoAttrs(t *testing.T) {
	var decoded NormalizedCandidate
	require.NoError(t, json.Unmarshal([]byte(`{"url":"https://x.io","normalized_url":"https://x.io","category":"resource"}`), &decoded))
	assert.Nil(t, decoded.Attrs)
}

func TestValidate(t *testing.T) {
	valid := NormalizedCandidate{
		URL:           "https://x.io/a",
		NormalizedURL: "https://x.io/a",
		Category:      CategoryProject,
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.NormalizedURL = ""
	require.Error(t, missing.Validate())

	badCategory := valid
	badCategory.Category = "gossip"
	require.Error(t, badCategory.Validate())
}
