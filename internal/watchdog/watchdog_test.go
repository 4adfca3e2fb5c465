package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"callpipe/internal/testsupport"
)

type fakeController struct {
	running  bool
	starts   int
	stops    int
	restarts int
}

func (f *fakeController) Start(ctx context.Context) error {
	f.starts++
	f.running = true
	return nil
}

func (f *fakeController) Stop() {
	f.stops++
	f.running = false
}

func (f *fakeController) Restart(ctx context.Context) error {
	f.restarts++
	f.running = true
	return nil
}

func (f *fakeController) Running() bool { return f.running }

func TestRunOnceStartsPoolForBacklog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewRecording(t, store, "R1")

	pool := &fakeController{}
	supervisor := New(cfg, store, pool, nil)

	report, err := supervisor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if report.Skipped {
		t.Fatal("pass must not be skipped")
	}
	if report.Backlog != 1 || !report.Started {
		t.Fatalf("expected pool start for backlog, got %+v", report)
	}
	if pool.starts != 1 {
		t.Fatalf("expected 1 start, got %d", pool.starts)
	}
}

func TestRunOnceStopsIdlePool(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	pool := &fakeController{running: true}
	supervisor := New(cfg, store, pool, nil)

	report, err := supervisor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !report.Stopped {
		t.Fatalf("expected idle stop, got %+v", report)
	}
	if pool.stops != 1 || pool.running {
		t.Fatalf("expected pool stopped, got %+v", pool)
	}
}

func TestRunOnceIdlePrunesDeadHeartbeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if err := store.UpsertWorkerHeartbeat(ctx, "worker-dead"); err != nil {
		t.Fatalf("UpsertWorkerHeartbeat failed: %v", err)
	}

	pool := &fakeController{}
	supervisor := New(cfg, store, pool, nil)
	supervisor.now = func() time.Time {
		return time.Now().Add(time.Duration(cfg.Watchdog.StallTimeout+10) * time.Second)
	}

	if _, err := supervisor.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	beats, err := store.ListWorkerHeartbeats(ctx)
	if err != nil {
		t.Fatalf("ListWorkerHeartbeats failed: %v", err)
	}
	if len(beats) != 0 {
		t.Fatalf("expected dead heartbeats pruned, got %d", len(beats))
	}
}

func TestRunOnceRestartsStalledWorkerOncePerStall(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewRecording(t, store, "R1")

	ctx := context.Background()
	if err := store.UpsertWorkerHeartbeat(ctx, "worker-1"); err != nil {
		t.Fatalf("UpsertWorkerHeartbeat failed: %v", err)
	}

	pool := &fakeController{running: true}
	supervisor := New(cfg, store, pool, nil)
	supervisor.now = func() time.Time {
		return time.Now().Add(time.Duration(cfg.Watchdog.StallTimeout+10) * time.Second)
	}

	report, err := supervisor.RunOnce(ctx)
	if err != nil {
		t.Fatalf("first RunOnce failed: %v", err)
	}
	if !report.Restarted || len(report.Stalled) != 1 {
		t.Fatalf("expected restart for stalled worker, got %+v", report)
	}

	// Heartbeat has not advanced, so a second pass is suppressed.
	report, err = supervisor.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce failed: %v", err)
	}
	if report.Restarted {
		t.Fatal("restart must be suppressed until the heartbeat advances")
	}
	if pool.restarts != 1 {
		t.Fatalf("expected 1 restart, got %d", pool.restarts)
	}

	// The worker comes back, then stalls again: restart fires again.
	time.Sleep(1100 * time.Millisecond)
	if err := store.UpsertWorkerHeartbeat(ctx, "worker-1"); err != nil {
		t.Fatalf("UpsertWorkerHeartbeat failed: %v", err)
	}
	report, err = supervisor.RunOnce(ctx)
	if err != nil {
		t.Fatalf("third RunOnce failed: %v", err)
	}
	if !report.Restarted {
		t.Fatal("expected restart after heartbeat advanced into a new stall")
	}
	if pool.restarts != 2 {
		t.Fatalf("expected 2 restarts, got %d", pool.restarts)
	}
}

func TestRunOnceHealthyWorkersLeftAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewRecording(t, store, "R1")

	ctx := context.Background()
	if err := store.UpsertWorkerHeartbeat(ctx, "worker-1"); err != nil {
		t.Fatalf("UpsertWorkerHeartbeat failed: %v", err)
	}

	pool := &fakeController{running: true}
	supervisor := New(cfg, store, pool, nil)

	report, err := supervisor.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if report.Started || report.Stopped || report.Restarted || len(report.Stalled) != 0 {
		t.Fatalf("expected no action for healthy pool, got %+v", report)
	}
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	holder := flock.New(cfg.LockFilePath())
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take holder lock: %v", err)
	}
	defer holder.Unlock()

	pool := &fakeController{}
	supervisor := New(cfg, store, pool, nil)

	report, err := supervisor.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !report.Skipped {
		t.Fatal("expected pass skipped while lock held elsewhere")
	}
	if pool.starts+pool.stops+pool.restarts != 0 {
		t.Fatal("skipped pass must not touch the pool")
	}
}

func TestReportCountsInflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewRecording(t, store, "R1")
	testsupport.NewRecording(t, store, "R2")
	if _, err := store.ClaimNextForTranscription(ctx, "worker-1", 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	pool := &fakeController{running: true}
	supervisor := New(cfg, store, pool, nil)

	report, err := supervisor.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if report.Backlog != 1 || report.Inflight != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
}
