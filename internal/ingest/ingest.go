package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"callpipe/internal/config"
	"callpipe/internal/dedup"
	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/telephony"
)

// Fetcher pulls recorded calls from the provider and creates recording rows
// for the ones the pipeline has not seen before.
type Fetcher struct {
	store        *recording.Store
	client       telephony.Client
	deduplicator *dedup.Deduplicator
	logger       *slog.Logger
	lookback     time.Duration
}

// Options adjusts a single fetch cycle.
type Options struct {
	// HoursBack overrides the configured lookback window when positive.
	HoursBack int
	// DryRun reports decisions without creating rows.
	DryRun bool
}

// Summary reports what one fetch cycle did.
type Summary struct {
	Fetched    int
	Created    int
	Duplicates int
	NoAudio    int
}

// New builds a Fetcher wired to the store, the provider client, and the
// standard deduplication chain.
func New(cfg *config.Config, store *recording.Store, client telephony.Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	window := time.Duration(cfg.Ingest.FuzzyWindowSecs * float64(time.Second))
	return &Fetcher{
		store:        store,
		client:       client,
		deduplicator: dedup.New(store, window, logger),
		logger:       logger.With(logging.String(logging.FieldComponent, "ingest")),
		lookback:     time.Duration(cfg.Ingest.LookbackHours) * time.Hour,
	}
}

// Run executes one fetch cycle over the lookback window. Records without
// audio are skipped, known records are counted as duplicates, and the rest
// are created at DOWNLOADED. A duplicate-key rejection from the store is a
// lost race with another cycle, not a failure.
func (f *Fetcher) Run(ctx context.Context, opts Options) (Summary, error) {
	lookback := f.lookback
	if opts.HoursBack > 0 {
		lookback = time.Duration(opts.HoursBack) * time.Hour
	}
	now := time.Now().UTC()
	from := now.Add(-lookback)

	records, err := f.client.ListCallRecordings(ctx, from, now)
	if err != nil {
		return Summary{}, fmt.Errorf("list call recordings: %w", err)
	}

	summary := Summary{Fetched: len(records)}
	f.logger.Info("fetch cycle started",
		logging.Time("window_from", from),
		logging.Int("records", len(records)),
		logging.Bool("dry_run", opts.DryRun))

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if !record.HasRecording() {
			summary.NoAudio++
			continue
		}

		match, err := f.deduplicator.FindDuplicate(ctx, dedup.Candidate{
			ProviderID:         record.ProviderID,
			SessionID:          record.SessionID,
			TelephonySessionID: record.TelephonySessionID,
			StartTime:          record.StartTime,
			DurationSecs:       record.DurationSecs,
			FromNumber:         record.FromNumber,
			ToNumber:           record.ToNumber,
		})
		if err != nil {
			return summary, fmt.Errorf("deduplicate %s: %w", record.ProviderID, err)
		}
		if match != nil {
			summary.Duplicates++
			f.logger.Debug("skipping known recording",
				logging.String(logging.FieldProviderID, record.ProviderID),
				logging.String("strategy", match.Strategy))
			continue
		}

		if opts.DryRun {
			summary.Created++
			f.logger.Info("would create recording",
				logging.String(logging.FieldProviderID, record.ProviderID))
			continue
		}

		created, err := f.store.Create(ctx, &recording.Recording{
			ProviderID:         record.ProviderID,
			SessionID:          record.SessionID,
			TelephonySessionID: record.TelephonySessionID,
			StartTime:          record.StartTime,
			DurationSecs:       record.DurationSecs,
			Direction:          record.Direction,
			FromNumber:         record.FromNumber,
			ToNumber:           record.ToNumber,
			AudioDownloaded:    true,
			AudioSource:        record.RecordingURL,
			RawMetadataJSON:    record.RawJSON,
		})
		if recording.IsDuplicateKey(err) {
			summary.Duplicates++
			f.logger.Info("recording already exists",
				logging.String(logging.FieldProviderID, record.ProviderID))
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("create recording %s: %w", record.ProviderID, err)
		}

		summary.Created++
		f.logger.Info("recording ingested",
			logging.Int64(logging.FieldRecordingID, created.ID),
			logging.String(logging.FieldProviderID, created.ProviderID),
			logging.Int("duration_seconds", created.DurationSecs))
	}

	f.logger.Info("fetch cycle finished",
		logging.Int("fetched", summary.Fetched),
		logging.Int("created", summary.Created),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("no_audio", summary.NoAudio))
	return summary, nil
}
