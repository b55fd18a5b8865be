package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/scoutline/curator/internal/model"
	"github.com/scoutline/curator/internal/scorer"
)

var (
	scoreInput    string
	scoreMinScore int
	scoreAll      bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a batch of candidates offline",
	Long:  "Reads a JSON array of normalized candidates from a file, scores and ranks them with the configured rules, and prints the results without touching the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(scoreInput)
		if err != nil {
			return eris.Wrapf(err, "read %s", scoreInput)
		}

		var batch []model.NormalizedCandidate
		if err := json.Unmarshal(data, &batch); err != nil {
			return eris.Wrapf(err, "parse %s", scoreInput)
		}

		minScore := scoreMinScore
		if minScore < 0 {
			minScore = cfg.Scorer.MinScore
		}

		results := scorer.New(cfg.Scorer).ScoreAndRank(batch)
		if !scoreAll {
			results = scorer.FilterQualified(results, minScore)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "JSON file of normalized candidates (required)")
	scoreCmd.Flags().IntVar(&scoreMinScore, "min-score", -1, "qualification threshold (default from config)")
	scoreCmd.Flags().BoolVar(&scoreAll, "all", false, "include disqualified and below-threshold results")
	_ = scoreCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scoreCmd)
}
