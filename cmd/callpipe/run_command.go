package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"callpipe/internal/coordinator"
	"callpipe/internal/fanout"
	"callpipe/internal/ingest"
	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/telephony"
	"callpipe/internal/transcriber"
	"callpipe/internal/watchdog"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var workers int
	var claimLimit int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline daemon (ingest, transcribe, fan out, supervise)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Coordinator.Workers = workers
			}
			if claimLimit > 0 {
				cfg.Coordinator.ClaimLimit = claimLimit
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

			pool := coordinator.New(cfg, store, transcriber.NewHTTPClient(cfg, nil), fanout.New(cfg, logger), logger)
			fetcher := ingest.New(cfg, store, telephony.NewHTTPClient(cfg, nil), logger)
			supervisor := watchdog.New(cfg, store, pool, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := pool.Start(ctx); err != nil {
				return fmt.Errorf("start worker pool: %w", err)
			}
			defer pool.Stop()

			logger.Info("daemon started",
				logging.Int("workers", cfg.Coordinator.Workers),
				logging.Int("ingest_interval", cfg.Ingest.Interval),
				logging.Int("watchdog_interval", cfg.Watchdog.Interval))

			// First fetch runs immediately so a fresh daemon does not idle
			// for a full interval before picking up work.
			if _, err := fetcher.Run(ctx, ingest.Options{}); err != nil && ctx.Err() == nil {
				logger.Error("ingest cycle", logging.Error(err))
			}

			ingestTicker := time.NewTicker(time.Duration(cfg.Ingest.Interval) * time.Second)
			defer ingestTicker.Stop()
			superviseTicker := time.NewTicker(time.Duration(cfg.Watchdog.Interval) * time.Second)
			defer superviseTicker.Stop()

			for {
				select {
				case <-ctx.Done():
					logger.Info("shutdown signal received")
					return nil
				case <-ingestTicker.C:
					if _, err := fetcher.Run(ctx, ingest.Options{}); err != nil && ctx.Err() == nil {
						logger.Error("ingest cycle", logging.Error(err))
					}
				case <-superviseTicker.C:
					if _, err := supervisor.RunOnce(ctx); err != nil && ctx.Err() == nil {
						logger.Error("supervisor pass", logging.Error(err))
					}
				}
			}
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Override the configured worker count")
	cmd.Flags().IntVar(&claimLimit, "claim-limit", 0, "Override the configured per-claim batch size")
	return cmd
}
