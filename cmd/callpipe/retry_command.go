package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"callpipe/internal/recording"
)

func newRetryCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed recordings for reprocessing",
		Long:  "Moves FAILED recordings back to DOWNLOADED. With no arguments every failed recording is reset; otherwise only the given ids.",
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

			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid recording id %q", arg)
				}
				ids = append(ids, id)
			}

			reset, err := store.RetryFailed(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d recording(s) for retry\n", reset)
			return nil
		},
	}
}
