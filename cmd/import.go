package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scoutline/curator/internal/db"
	"github.com/scoutline/curator/internal/dedupe"
	"github.com/scoutline/curator/internal/model"
	"github.com/scoutline/curator/internal/store"
)

var importInput string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import existing records into the corpus",
	Long:  "Loads a JSON array of normalized candidates into the item store so deduplication has a corpus to compare against. Existing URLs are updated, not duplicated.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(importInput)
		if err != nil {
			return eris.Wrapf(err, "read %s", importInput)
		}

		var batch []model.NormalizedCandidate
		if err := json.Unmarshal(data, &batch); err != nil {
			return eris.Wrapf(err, "parse %s", importInput)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		// Postgres gets the COPY-based bulk path; everything else inserts
		// one by one, skipping conflicts.
		if pg, ok := st.(*store.PostgresStore); ok {
			n, err := bulkImport(cmd, pg, batch)
			if err != nil {
				return err
			}
			zap.L().Info("import complete", zap.Int64("upserted", n))
			return nil
		}

		inserted, skipped := 0, 0
		for i := range batch {
			if err := prepare(&batch[i]); err != nil {
				zap.L().Warn("import: skipping record", zap.String("url", batch[i].URL), zap.Error(err))
				skipped++
				continue
			}
			_, err := st.InsertItem(ctx, &store.StoredItem{
				NormalizedURL: batch[i].NormalizedURL,
				Candidate:     batch[i],
			})
			if err != nil {
				if eris.Is(err, store.ErrConflict) {
					skipped++
					continue
				}
				return err
			}
			inserted++
		}
		zap.L().Info("import complete", zap.Int("inserted", inserted), zap.Int("skipped", skipped))
		return nil
	},
}

func bulkImport(cmd *cobra.Command, pg *store.PostgresStore, batch []model.NormalizedCandidate) (int64, error) {
	now := time.Now().UTC()
	var rows [][]any
	for i := range batch {
		if err := prepare(&batch[i]); err != nil {
			zap.L().Warn("import: skipping record", zap.String("url", batch[i].URL), zap.Error(err))
			continue
		}
		candidateJSON, err := json.Marshal(batch[i])
		if err != nil {
			return 0, eris.Wrap(err, "marshal candidate")
		}
		seenAt := batch[i].PublishedAt
		if seenAt.IsZero() {
			seenAt = now
		}
		rows = append(rows, []any{
			uuid.New().String(),
			batch[i].NormalizedURL,
			string(batch[i].Category),
			candidateJSON,
			0,
			seenAt,
		})
	}

	return db.BulkUpsert(cmd.Context(), pg.Pool(), db.UpsertConfig{
		Table:        "items",
		Columns:      []string{"id", "normalized_url", "category", "candidate", "score", "seen_at"},
		ConflictKeys: []string{"normalized_url"},
		UpdateCols:   []string{"category", "candidate", "seen_at"},
	}, rows)
}

// prepare fills in the normalized URL when the input only carries the raw
// one, and validates the record.
func prepare(c *model.NormalizedCandidate) error {
	if c.NormalizedURL == "" {
		normalized, err := dedupe.NormalizeURL(c.URL)
		if err != nil {
			return err
		}
		c.NormalizedURL = normalized
	}
	return c.Validate()
}

func init() {
	importCmd.Flags().StringVar(&importInput, "input", "", "JSON file of normalized candidates (required)")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}
