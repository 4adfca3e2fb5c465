package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"callpipe/internal/recording"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	var showFailed bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recording counts per lifecycle state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := recording.Open(cfg)
			if err != nil {
				return fmt.Errorf("open recording store: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			stats, err := store.Stats(ctx)
			if err != nil {
				return fmt.Errorf("load stats: %w", err)
			}

			rows := [][]string{
				{string(recording.StatusDownloaded), strconv.Itoa(stats.Downloaded)},
				{string(recording.StatusTranscribing), strconv.Itoa(stats.Transcribing)},
				{string(recording.StatusCompleted), strconv.Itoa(stats.Completed)},
				{string(recording.StatusFailed), strconv.Itoa(stats.Failed)},
				{"total", strconv.Itoa(stats.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Count"}, rows))

			if !showFailed || stats.Failed == 0 {
				return nil
			}

			failed, err := store.ListByStatus(ctx, recording.StatusFailed)
			if err != nil {
				return fmt.Errorf("list failed recordings: %w", err)
			}
			failedRows := make([][]string, 0, len(failed))
			for _, rec := range failed {
				failedRows = append(failedRows, []string{
					strconv.FormatInt(rec.ID, 10),
					rec.ProviderID,
					rec.StartTime.UTC().Format(time.RFC3339),
					strconv.Itoa(rec.Attempts),
					rec.LastError,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Provider ID", "Started", "Attempts", "Last Error"},
				failedRows,
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showFailed, "failed", true, "Include details for failed recordings")
	return cmd
}
