package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"callpipe/internal/config"
	"callpipe/internal/logging"
	"callpipe/internal/recording"
)

// WorkerController is the pool surface the supervisor drives.
// coordinator.Pool implements it.
type WorkerController interface {
	Start(ctx context.Context) error
	Stop()
	Restart(ctx context.Context) error
	Running() bool
}

// Report describes what one supervisor pass observed and did.
type Report struct {
	// Skipped is set when another supervisor held the lock.
	Skipped   bool
	Backlog   int
	Inflight  int
	Workers   int
	Stalled   []string
	Started   bool
	Stopped   bool
	Restarted bool
}

// Supervisor watches backlog depth and worker liveness and keeps the pool
// in the right state. Passes are mutually exclusive across processes via a
// flock file lock; the kernel drops the lock when its holder dies, so a
// crashed supervisor never wedges the next one.
type Supervisor struct {
	cfg    *config.Config
	store  *recording.Store
	pool   WorkerController
	logger *slog.Logger
	lock   *flock.Flock

	mu sync.Mutex
	// lastRestart remembers each stalled worker's heartbeat at the moment of
	// the last restart; a worker is not restarted again until its heartbeat
	// moves past that point.
	lastRestart map[string]time.Time
	now         func() time.Time
}

// New constructs a Supervisor over the shared store and the given pool.
func New(cfg *config.Config, store *recording.Store, pool WorkerController, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Supervisor{
		cfg:         cfg,
		store:       store,
		pool:        pool,
		logger:      logger.With(logging.String(logging.FieldComponent, "watchdog")),
		lock:        flock.New(cfg.LockFilePath()),
		lastRestart: make(map[string]time.Time),
		now:         time.Now,
	}
}

// RunOnce executes one supervisor pass. Safe to invoke repeatedly and from
// concurrent schedulers; overlapping passes are skipped, not queued.
func (s *Supervisor) RunOnce(ctx context.Context) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lockPath := s.cfg.LockFilePath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return Report{}, fmt.Errorf("create lock directory: %w", err)
	}
	locked, err := s.lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire supervisor lock: %w", err)
	}
	if !locked {
		s.logger.Debug("supervisor pass skipped, lock held elsewhere")
		return Report{Skipped: true}, nil
	}
	defer s.lock.Unlock()
	s.writePidNote(lockPath)

	report, err := s.pass(ctx)
	if err != nil {
		return report, err
	}

	s.logger.Info("supervisor pass finished",
		logging.Int("backlog", report.Backlog),
		logging.Int("inflight", report.Inflight),
		logging.Int("workers", report.Workers),
		logging.Int("stalled", len(report.Stalled)),
		logging.Bool("started", report.Started),
		logging.Bool("stopped", report.Stopped),
		logging.Bool("restarted", report.Restarted))
	return report, nil
}

func (s *Supervisor) pass(ctx context.Context) (Report, error) {
	var report Report

	backlog, err := s.store.CountByStatus(ctx, recording.StatusDownloaded)
	if err != nil {
		return report, fmt.Errorf("count backlog: %w", err)
	}
	inflight, err := s.store.CountByStatus(ctx, recording.StatusTranscribing)
	if err != nil {
		return report, fmt.Errorf("count inflight: %w", err)
	}
	beats, err := s.store.ListWorkerHeartbeats(ctx)
	if err != nil {
		return report, fmt.Errorf("list worker heartbeats: %w", err)
	}
	report.Backlog = backlog
	report.Inflight = inflight
	report.Workers = len(beats)

	stallAfter := time.Duration(s.cfg.Watchdog.StallTimeout) * time.Second
	now := s.now()

	if backlog+inflight == 0 {
		if s.pool.Running() {
			s.logger.Info("queue drained, stopping workers")
			s.pool.Stop()
			report.Stopped = true
		}
		if _, err := s.store.PruneWorkerHeartbeats(ctx, now.Add(-stallAfter)); err != nil {
			s.logger.Warn("prune worker heartbeats", logging.Error(err))
		}
		return report, nil
	}

	if !s.pool.Running() {
		s.logger.Info("pending work with no workers, starting pool",
			logging.Int("backlog", backlog),
			logging.Int("inflight", inflight))
		if err := s.pool.Start(ctx); err != nil {
			return report, fmt.Errorf("start worker pool: %w", err)
		}
		report.Started = true
		return report, nil
	}

	for _, beat := range beats {
		if now.Sub(beat.LastActive) <= stallAfter {
			delete(s.lastRestart, beat.WorkerID)
			continue
		}
		report.Stalled = append(report.Stalled, beat.WorkerID)
	}
	if len(report.Stalled) == 0 {
		return report, nil
	}

	if !s.shouldRestart(report.Stalled, beats) {
		s.logger.Debug("stall already handled, waiting for heartbeats to advance")
		return report, nil
	}

	s.logger.Warn("stalled workers detected, restarting pool",
		logging.Any("workers", report.Stalled))
	if err := s.pool.Restart(ctx); err != nil {
		return report, fmt.Errorf("restart worker pool: %w", err)
	}
	report.Restarted = true

	for _, beat := range beats {
		for _, stalledID := range report.Stalled {
			if beat.WorkerID == stalledID {
				s.lastRestart[stalledID] = beat.LastActive
			}
		}
	}
	return report, nil
}

// shouldRestart reports whether any stalled worker's heartbeat has moved
// since the restart that was issued for it.
func (s *Supervisor) shouldRestart(stalled []string, beats []recording.WorkerHeartbeat) bool {
	for _, beat := range beats {
		for _, stalledID := range stalled {
			if beat.WorkerID != stalledID {
				continue
			}
			previous, handled := s.lastRestart[stalledID]
			if !handled || beat.LastActive.After(previous) {
				return true
			}
		}
	}
	return false
}

func (s *Supervisor) writePidNote(lockPath string) {
	note := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(lockPath, note, 0o644); err != nil {
		s.logger.Warn("write pid note", logging.Error(err))
	}
}
