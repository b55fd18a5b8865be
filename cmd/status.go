package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/scoutline/curator/internal/monitoring"
)

var statusHours int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a health snapshot of the ingestion system",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snap, err := monitoring.NewCollector(st, nil).Collect(ctx, statusHours)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusHours, "hours", 24, "lookback window in hours")
	rootCmd.AddCommand(statusCmd)
}
