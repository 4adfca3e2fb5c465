package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"callpipe/internal/config"
	"callpipe/internal/fanout"
	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/transcriber"
)

// ResultSink receives completed transcripts. fanout.Writer is the production
// implementation.
type ResultSink interface {
	Persist(ctx context.Context, rec *recording.Recording, result transcriber.Result) (fanout.Artifacts, error)
}

// Pool drives recordings through transcription with a fixed set of workers.
// All workers share one rate limiter, so submission pressure on the
// speech-to-text service is bounded per process, not per worker.
type Pool struct {
	cfg     *config.Config
	store   *recording.Store
	client  transcriber.Client
	sink    ResultSink
	limiter *rate.Limiter
	logger  *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	running bool
}

// New constructs a worker pool. The limiter interval comes straight from the
// configured submissions-per-minute rate.
func New(cfg *config.Config, store *recording.Store, client transcriber.Client, sink ResultSink, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	perSecond := rate.Limit(cfg.Coordinator.RatePerMinute / 60.0)
	burst := cfg.Coordinator.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Pool{
		cfg:     cfg,
		store:   store,
		client:  client,
		sink:    sink,
		limiter: rate.NewLimiter(perSecond, burst),
		logger:  logger.With(logging.String(logging.FieldComponent, "coordinator")),
	}
}

// Start launches the configured number of workers. Workers are detached from
// the caller's cancellation so a short-lived supervisor pass can start a
// long-lived pool; Stop is the only way to take them down.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	if p.cfg.Coordinator.Workers <= 0 {
		return fmt.Errorf("coordinator: worker count must be positive")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	wg := &sync.WaitGroup{}
	for i := 0; i < p.cfg.Coordinator.Workers; i++ {
		workerID := "worker-" + uuid.NewString()[:8]
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(runCtx, workerID)
		}()
	}

	p.cancel = cancel
	p.wg = wg
	p.running = true
	p.logger.Info("worker pool started", logging.Int("workers", p.cfg.Coordinator.Workers))
	return nil
}

// Stop cancels all workers and waits for them to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	wg := p.wg
	p.cancel = nil
	p.wg = nil
	p.running = false
	p.mu.Unlock()

	cancel()
	wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Restart stops the pool and starts a fresh set of workers.
func (p *Pool) Restart(ctx context.Context) error {
	p.Stop()
	return p.Start(ctx)
}

// Running reports whether the pool currently has workers.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runWorker is one worker's claim loop: report liveness, pick up abandoned
// work, claim fresh work, process, repeat.
func (p *Pool) runWorker(ctx context.Context, workerID string) {
	logger := p.logger.With(logging.String(logging.FieldWorkerID, workerID))
	logger.Info("worker started")
	defer func() {
		if err := p.store.RemoveWorkerHeartbeat(context.WithoutCancel(ctx), workerID); err != nil {
			logger.Warn("deregister worker", logging.Error(err))
		}
		logger.Info("worker stopped")
	}()

	idleWait := time.Duration(p.cfg.Coordinator.IdleWait) * time.Second
	errorRetry := time.Duration(p.cfg.Coordinator.ErrorRetryInterval) * time.Second
	staleAfter := time.Duration(p.cfg.Coordinator.StaleClaimTimeout) * time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.store.UpsertWorkerHeartbeat(ctx, workerID); err != nil {
			logger.Error("worker heartbeat", logging.Error(err))
			if sleepCtx(ctx, errorRetry) != nil {
				return
			}
			continue
		}

		batch, err := p.gatherWork(ctx, logger, workerID, staleAfter)
		if err != nil {
			logger.Error("gather work", logging.Error(err))
			if sleepCtx(ctx, errorRetry) != nil {
				return
			}
			continue
		}
		if len(batch) == 0 {
			if sleepCtx(ctx, idleWait) != nil {
				return
			}
			continue
		}

		for _, rec := range batch {
			if ctx.Err() != nil {
				return
			}
			p.process(ctx, logger, rec)
			if err := p.store.UpsertWorkerHeartbeat(ctx, workerID); err != nil {
				logger.Warn("worker heartbeat", logging.Error(err))
			}
		}
	}
}

// gatherWork reclaims stale in-flight rows first, then claims fresh ones up
// to the configured batch size.
func (p *Pool) gatherWork(ctx context.Context, logger *slog.Logger, workerID string, staleAfter time.Duration) ([]*recording.Recording, error) {
	limit := p.cfg.Coordinator.ClaimLimit
	cutoff := time.Now().Add(-staleAfter)

	reclaimed, err := p.store.ReclaimStaleTranscribing(ctx, workerID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale: %w", err)
	}
	if len(reclaimed) > 0 {
		logger.Info("reclaimed abandoned recordings", logging.Int("count", len(reclaimed)))
	}

	remaining := limit - len(reclaimed)
	claimed, err := p.store.ClaimNextForTranscription(ctx, workerID, remaining)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	return append(reclaimed, claimed...), nil
}

// sleepCtx waits for the duration or the context, whichever ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
