package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"callpipe/internal/ingest"
	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/telephony"
)

func newIngestCommand(cmdCtx *commandContext) *cobra.Command {
	var hoursBack int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run one fetch cycle against the telephony provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}
			store, err := recording.Open(cfg)
			if err != nil {
				return fmt.Errorf("open recording store: %w", err)
			}
			defer store.Close()

			fetcher := ingest.New(cfg, store, telephony.NewHTTPClient(cfg, nil), logger)
			summary, err := fetcher.Run(cmd.Context(), ingest.Options{
				HoursBack: hoursBack,
				DryRun:    dryRun,
			})
			if err != nil {
				return err
			}

			verb := "created"
			if dryRun {
				verb = "would create"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d, %s %d, duplicates %d, no audio %d\n",
				summary.Fetched, verb, summary.Created, summary.Duplicates, summary.NoAudio)
			return nil
		},
	}

	cmd.Flags().IntVar(&hoursBack, "hours-back", 0, "Override the configured lookback window in hours")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report decisions without creating recordings")
	return cmd
}
