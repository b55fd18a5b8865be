package store

import (
	"context"

	"github.com/scoutline/curator/internal/dedupe"
)

// CorpusAdapter exposes the item store as the deduplication engine's corpus.
type CorpusAdapter struct {
	store Store
}

// NewCorpusAdapter wraps a Store for corpus lookups.
func NewCorpusAdapter(s Store) *CorpusAdapter {
	return &CorpusAdapter{store: s}
}

// ExactMatch returns the corpus record with the given normalized URL, or nil.
func (a *CorpusAdapter) ExactMatch(ctx context.Context, normalizedURL string) (*dedupe.CorpusRecord, error) {
	item, err := a.store.GetItemByURL(ctx, normalizedURL)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	rec := toCorpusRecord(item)
	return &rec, nil
}

// RecentWindow returns corpus records seen within the last `days` days.
func (a *CorpusAdapter) RecentWindow(ctx context.Context, days int) ([]dedupe.CorpusRecord, error) {
	items, err := a.store.RecentItems(ctx, days)
	if err != nil {
		return nil, err
	}
	records := make([]dedupe.CorpusRecord, len(items))
	for i := range items {
		records[i] = toCorpusRecord(&items[i])
	}
	return records, nil
}

func toCorpusRecord(item *StoredItem) dedupe.CorpusRecord {
	return dedupe.CorpusRecord{
		NormalizedURL: item.NormalizedURL,
		Title:         item.Candidate.Title,
		Description:   item.Candidate.Description,
		SeenAt:        item.SeenAt,
	}
}
