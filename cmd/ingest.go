package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestSources string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pass over the configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx, ingestSources)
		if err != nil {
			return err
		}
		defer e.Close()

		if len(e.Adapters) == 0 {
			return eris.New("no usable sources configured")
		}

		result, err := e.Pipeline.Run(ctx, e.Adapters)
		if result != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			_ = enc.Encode(result)
		}
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		zap.L().Info("ingest complete",
			zap.Int("fetched", result.Fetched),
			zap.Int("inserted", result.Inserted),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSources, "sources", "", "source registry file (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
