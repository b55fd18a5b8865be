// Package model defines the data types shared across the ingestion pipeline.
package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// Category classifies a candidate into one of the supported content types.
type Category string

const (
	CategoryProject  Category = "project"
	CategoryFunding  Category = "funding"
	CategoryResource Category = "resource"
)

// ParseCategory validates and converts a raw category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryProject, CategoryFunding, CategoryResource:
		return Category(s), nil
	default:
		return "", eris.Errorf("model: unknown category %q", s)
	}
}

// RawCandidate is an opaque payload produced by a source adapter.
// Immutable once created.
type RawCandidate struct {
	Origin    string          `json:"origin"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Attributes holds category-specific facts used only by the scorer.
// Exactly one concrete type exists per category so scoring rules are
// exhaustive rather than probing optional fields at runtime.
type Attributes interface {
	Kind() Category
}

// ProjectAttributes describes an early-stage project candidate.
type ProjectAttributes struct {
	TeamSize          int       `json:"team_size,omitempty"`
	Stage             string    `json:"stage,omitempty"` // idea, prototype, beta, launched
	LaunchedAt        time.Time `json:"launched_at,omitempty"`
	FundingRaised     int64     `json:"funding_raised,omitempty"` // USD
	AcceleratorBacked bool      `json:"accelerator_backed,omitempty"`
	NeedsFunding      bool      `json:"needs_funding,omitempty"`
	NeedsUsers        bool      `json:"needs_users,omitempty"`
}

func (ProjectAttributes) Kind() Category { return CategoryProject }

// FundingAttributes describes a funding-opportunity candidate
// (grants, prizes, open investment rounds).
type FundingAttributes struct {
	Amount          int64     `json:"amount,omitempty"` // USD
	Deadline        time.Time `json:"deadline,omitempty"`
	NoEquity        bool      `json:"no_equity,omitempty"`
	OpenEligibility bool      `json:"open_eligibility,omitempty"`
	Mechanism       string    `json:"mechanism,omitempty"` // grant, prize, investment
}

func (FundingAttributes) Kind() Category { return CategoryFunding }

// ResourceAttributes describes a tool or learning-resource candidate.
type ResourceAttributes struct {
	Price     float64 `json:"price,omitempty"` // USD, 0 for free
	PriceType string  `json:"price_type,omitempty"` // free, freemium, paid
	Format    string  `json:"format,omitempty"`     // tool, course, article, dataset
}

func (ResourceAttributes) Kind() Category { return CategoryResource }

// NormalizedCandidate is the common shape every candidate is reduced to
// before deduplication and scoring. Derived once from a RawCandidate and
// never mutated afterwards.
type NormalizedCandidate struct {
	URL           string     `json:"url"`
	NormalizedURL string     `json:"normalized_url"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      Category   `json:"category"`
	Tags          []string   `json:"tags,omitempty"`
	Origin        string     `json:"origin"`
	FetchedAt     time.Time  `json:"fetched_at"`
	PublishedAt   time.Time  `json:"published_at,omitempty"`
	Engagement    int        `json:"engagement,omitempty"`
	Attrs         Attributes `json:"attributes,omitempty"`
}

// UnmarshalJSON decodes the category-specific attributes into the matching
// concrete type, since an interface field cannot be unmarshaled directly.
func (c *NormalizedCandidate) UnmarshalJSON(data []byte) error {
	type alias NormalizedCandidate
	aux := struct {
		*alias
		Attrs json.RawMessage `json:"attributes,omitempty"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return eris.Wrap(err, "model: unmarshal candidate")
	}
	if len(aux.Attrs) == 0 || string(aux.Attrs) == "null" {
		return nil
	}

	switch c.Category {
	case CategoryProject:
		var a ProjectAttributes
		if err := json.Unmarshal(aux.Attrs, &a); err != nil {
			return eris.Wrap(err, "model: unmarshal project attributes")
		}
		c.Attrs = a
	case CategoryFunding:
		var a FundingAttributes
		if err := json.Unmarshal(aux.Attrs, &a); err != nil {
			return eris.Wrap(err, "model: unmarshal funding attributes")
		}
		c.Attrs = a
	case CategoryResource:
		var a ResourceAttributes
		if err := json.Unmarshal(aux.Attrs, &a); err != nil {
			return eris.Wrap(err, "model: unmarshal resource attributes")
		}
		c.Attrs = a
	}
	return nil
}

// Validate enforces the non-empty URL invariant. Candidates failing this
// must be rejected before scoring.
func (c *NormalizedCandidate) Validate() error {
	if c.URL == "" || c.NormalizedURL == "" {
		return eris.New("model: candidate is missing a url")
	}
	if _, err := ParseCategory(string(c.Category)); err != nil {
		return err
	}
	return nil
}
