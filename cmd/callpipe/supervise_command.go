package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/watchdog"
)

// reportOnlyController satisfies watchdog.WorkerController without owning any
// workers. A one-shot pass exits as soon as it returns, so a pool started
// here would lose its goroutines at process exit with its claims stuck in
// TRANSCRIBING until stale reclaim. Start requests are therefore surfaced to
// the operator instead of acted on; only the daemon starts workers.
type reportOnlyController struct{}

func (reportOnlyController) Start(context.Context) error   { return nil }
func (reportOnlyController) Stop()                         {}
func (reportOnlyController) Restart(context.Context) error { return nil }
func (reportOnlyController) Running() bool                 { return false }

func newSuperviseCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "supervise",
		Short: "Run a single report-only watchdog pass",
		Long:  "Executes one supervisor pass and exits, for use from cron or a systemd timer. The pass reports backlog and worker liveness but never starts workers itself; pending work is drained by the daemon ('callpipe run'). Passes are mutually exclusive with any running daemon via the watchdog lock file.",
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

			supervisor := watchdog.New(cfg, store, reportOnlyController{}, logger)

			report, err := supervisor.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			if report.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "skipped: another supervisor holds the lock")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backlog %d, inflight %d, workers %d, stalled %d\n",
				report.Backlog, report.Inflight, report.Workers, len(report.Stalled))
			if report.Started {
				fmt.Fprintln(cmd.OutOrStdout(), "pending work with no live worker pool; start the daemon with 'callpipe run'")
			}
			return nil
		},
	}
}
