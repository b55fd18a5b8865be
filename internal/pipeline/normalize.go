package pipeline

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/scoutline/curator/internal/dedupe"
	"github.com/scoutline/curator/internal/model"
)

// Normalize derives a NormalizedCandidate from a raw payload. Candidates
// without a parseable URL or a known category are rejected here, before any
// dedup or scoring work happens.
func Normalize(raw model.RawCandidate) (model.NormalizedCandidate, error) {
	var zero model.NormalizedCandidate

	var payload rawPayload
	if err := json.Unmarshal(raw.Payload, &payload); err != nil {
		return zero, eris.Wrapf(err, "pipeline: malformed payload from %s", raw.Origin)
	}

	normalizedURL, err := dedupe.NormalizeURL(payload.URL)
	if err != nil {
		return zero, err
	}

	category, err := model.ParseCategory(payload.Category)
	if err != nil {
		return zero, err
	}

	c := model.NormalizedCandidate{
		URL:           payload.URL,
		NormalizedURL: normalizedURL,
		Title:         strings.TrimSpace(payload.Title),
		Description:   strings.TrimSpace(payload.Description),
		Category:      category,
		Tags:          dedupeTags(payload.Tags),
		Origin:        raw.Origin,
		FetchedAt:     raw.FetchedAt,
		PublishedAt:   payload.PublishedAt,
		Engagement:    payload.Engagement,
	}

	if len(payload.Attributes) > 0 {
		attrs, err := parseAttributes(category, payload.Attributes)
		if err != nil {
			return zero, err
		}
		c.Attrs = attrs
	}

	if err := c.Validate(); err != nil {
		return zero, err
	}
	return c, nil
}

// parseAttributes decodes the category-specific attribute schema.
func parseAttributes(category model.Category, data json.RawMessage) (model.Attributes, error) {
	switch category {
	case model.CategoryProject:
		var a model.ProjectAttributes
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, eris.Wrap(err, "pipeline: parse project attributes")
		}
		return a, nil
	case model.CategoryFunding:
		var a model.FundingAttributes
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, eris.Wrap(err, "pipeline: parse funding attributes")
		}
		return a, nil
	case model.CategoryResource:
		var a model.ResourceAttributes
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, eris.Wrap(err, "pipeline: parse resource attributes")
		}
		return a, nil
	default:
		return nil, eris.Errorf("pipeline: no attribute schema for category %q", category)
	}
}

// dedupeTags lowercases, trims, and deduplicates tags preserving order.
func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
