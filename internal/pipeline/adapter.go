// Package pipeline orchestrates the ingestion stages: fetch, normalize,
// deduplicate, score, and persist.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/scoutline/curator/internal/fetch"
	"github.com/scoutline/curator/internal/model"
	"github.com/scoutline/curator/internal/registry"
)

// Adapter produces raw candidates from one external source. The pipeline
// places no constraint on the adapter's protocol beyond receiving a uniform
// batch of opaque payloads plus an origin tag.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]model.RawCandidate, error)
}

// rawPayload is the common wire shape every adapter reduces its items to
// before normalization.
type rawPayload struct {
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	PublishedAt time.Time       `json:"published_at,omitempty"`
	Engagement  int             `json:"engagement,omitempty"`
	Attributes  json.RawMessage `json:"attributes,omitempty"`
}

// NewAdapter builds the adapter for a registry source.
func NewAdapter(src registry.Source, client *fetch.Client) (Adapter, error) {
	switch src.Kind {
	case registry.KindRSS:
		return &RSSAdapter{src: src, client: client}, nil
	case registry.KindJSON:
		return &JSONAdapter{src: src, client: client}, nil
	default:
		return nil, eris.Errorf("pipeline: no adapter for source kind %q", src.Kind)
	}
}

// RSSAdapter ingests an RSS or Atom feed. Every item inherits the source's
// configured category.
type RSSAdapter struct {
	src    registry.Source
	client *fetch.Client
}

func (a *RSSAdapter) Name() string { return a.src.Name }

func (a *RSSAdapter) Fetch(ctx context.Context) ([]model.RawCandidate, error) {
	resp, err := a.client.Fetch(ctx, fetch.Request{URL: a.src.URL, Origin: a.src.Origin})
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse feed %s", a.src.Name)
	}

	now := time.Now().UTC()
	var raws []model.RawCandidate
	for _, item := range feed.Items {
		payload := rawPayload{
			URL:         item.Link,
			Title:       item.Title,
			Description: item.Description,
			Category:    a.src.Category,
			Tags:        item.Categories,
		}
		if item.PublishedParsed != nil {
			payload.PublishedAt = item.PublishedParsed.UTC()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: marshal feed item from %s", a.src.Name)
		}
		raws = append(raws, model.RawCandidate{
			Origin:    a.src.Origin,
			Payload:   data,
			FetchedAt: now,
		})
	}

	return raws, nil
}

// JSONAdapter ingests an endpoint serving a JSON array of candidate objects
// already in the common wire shape.
type JSONAdapter struct {
	src    registry.Source
	client *fetch.Client
}

func (a *JSONAdapter) Name() string { return a.src.Name }

func (a *JSONAdapter) Fetch(ctx context.Context) ([]model.RawCandidate, error) {
	resp, err := a.client.Fetch(ctx, fetch.Request{URL: a.src.URL, Origin: a.src.Origin})
	if err != nil {
		return nil, err
	}

	var payloads []rawPayload
	if err := json.Unmarshal(resp.Body, &payloads); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse json feed %s", a.src.Name)
	}

	now := time.Now().UTC()
	var raws []model.RawCandidate
	for _, payload := range payloads {
		if payload.Category == "" {
			payload.Category = a.src.Category
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: marshal json item from %s", a.src.Name)
		}
		raws = append(raws, model.RawCandidate{
			Origin:    a.src.Origin,
			Payload:   data,
			FetchedAt: now,
		})
	}

	return raws, nil
}
