package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/transcriber"
)

// process runs one claimed recording to a terminal state, or leaves it
// TRANSCRIBING for a later reclaim when shutdown or fan-out interrupts.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, rec *recording.Recording) {
	logger = logger.With(
		logging.Int64(logging.FieldRecordingID, rec.ID),
		logging.String(logging.FieldProviderID, rec.ProviderID))

	jobID := rec.TranscriptJobID
	if jobID == "" {
		job, err := p.submit(ctx, logger, rec)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.fail(ctx, logger, rec.ID, err)
			return
		}
		jobID = job.ID
		if err := p.store.SetTranscriptJob(ctx, rec.ID, jobID); err != nil {
			logger.Error("record transcript job", logging.Error(err))
			return
		}
		logger.Info("transcription submitted", logging.String(logging.FieldJobID, jobID))
	} else {
		logger.Info("resuming transcript job", logging.String(logging.FieldJobID, jobID))
	}

	result, err := p.awaitResult(ctx, logger, rec.ID, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.fail(ctx, logger, rec.ID, err)
		return
	}

	artifacts, err := p.sink.Persist(ctx, rec, result)
	if err != nil {
		// Leave the row TRANSCRIBING; stale reclaim retries the fan-out and
		// the result stays fetchable by job id.
		logger.Error("fan-out failed, recording stays claimed", logging.Error(err))
		return
	}

	if _, err := p.store.Transition(ctx, rec.ID, recording.StatusCompleted, recording.TransitionFields{
		StorageRef: artifacts.StructuredPath,
	}); err != nil {
		logger.Error("complete recording", logging.Error(err))
		return
	}
	logger.Info("recording completed",
		logging.String(logging.FieldJobID, jobID),
		logging.String("storage_ref", artifacts.StructuredPath))
}

// submit pushes one recording to the transcription service through the
// shared rate limiter. Rate-limit pushback retries with exponential backoff,
// each retry counted against the attempt cap; outright rejection is final.
func (p *Pool) submit(ctx context.Context, logger *slog.Logger, rec *recording.Recording) (transcriber.Job, error) {
	req := transcriber.SubmitRequest{
		AudioURL:  rec.AudioSource,
		Reference: rec.ProviderID,
	}
	policy := p.newBackoff()
	transientFailures := 0

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return transcriber.Job{}, err
		}
		job, err := p.client.Submit(ctx, req)
		switch {
		case err == nil:
			return job, nil
		case errors.Is(err, transcriber.ErrSubmissionRejected):
			return transcriber.Job{}, err
		case errors.Is(err, transcriber.ErrRateLimited):
			attempts, attemptErr := p.store.IncrementAttempts(ctx, rec.ID)
			if attemptErr != nil {
				return transcriber.Job{}, attemptErr
			}
			if attempts >= p.cfg.Coordinator.MaxAttempts {
				return transcriber.Job{}, fmt.Errorf("attempt limit %d reached: %w", p.cfg.Coordinator.MaxAttempts, err)
			}
			wait := policy.NextBackOff()
			logger.Warn("submission rate limited",
				logging.Int(logging.FieldAttempt, attempts),
				logging.Duration("backoff", wait))
			if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
				return transcriber.Job{}, sleepErr
			}
		case errors.Is(err, transcriber.ErrTransient):
			transientFailures++
			if transientFailures > p.cfg.Coordinator.PollFailureLimit {
				return transcriber.Job{}, err
			}
			wait := policy.NextBackOff()
			logger.Warn("submission failed, retrying",
				logging.Error(err),
				logging.Duration("backoff", wait))
			if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
				return transcriber.Job{}, sleepErr
			}
		default:
			return transcriber.Job{}, err
		}
	}
}

// awaitResult polls the job until completion, rejection, or the max-wait
// deadline. The per-row heartbeat advances on every poll so the watchdog and
// stale reclaim can tell a slow job from a dead worker.
func (p *Pool) awaitResult(ctx context.Context, logger *slog.Logger, recordingID int64, jobID string) (transcriber.Result, error) {
	maxWait := time.Duration(p.cfg.Coordinator.MaxWait) * time.Second
	pollCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	interval := time.Duration(p.cfg.Coordinator.PollInterval) * time.Second
	failures := 0

	for {
		status, err := p.client.Poll(pollCtx, jobID)
		switch {
		case err != nil && pollCtx.Err() != nil && ctx.Err() == nil:
			return transcriber.Result{}, p.timeoutError(jobID, maxWait)
		case err != nil && (errors.Is(err, transcriber.ErrTransient) || errors.Is(err, transcriber.ErrRateLimited)):
			failures++
			if failures > p.cfg.Coordinator.PollFailureLimit {
				return transcriber.Result{}, fmt.Errorf("poll failures exceeded %d: %w", p.cfg.Coordinator.PollFailureLimit, err)
			}
			logger.Warn("poll failed, retrying", logging.Error(err))
		case err != nil:
			return transcriber.Result{}, err
		default:
			failures = 0
			switch status.State {
			case transcriber.StateDone:
				result, err := p.fetchResult(pollCtx, jobID)
				if err != nil && pollCtx.Err() != nil && ctx.Err() == nil {
					return transcriber.Result{}, p.timeoutError(jobID, maxWait)
				}
				return result, err
			case transcriber.StateRejected:
				return transcriber.Result{}, fmt.Errorf("%w: %s", transcriber.ErrSubmissionRejected, status.Detail)
			}
		}

		if err := p.store.UpdateHeartbeat(ctx, recordingID); err != nil {
			logger.Warn("heartbeat update", logging.Error(err))
		}
		if err := sleepCtx(pollCtx, interval); err != nil {
			if ctx.Err() != nil {
				return transcriber.Result{}, ctx.Err()
			}
			return transcriber.Result{}, p.timeoutError(jobID, maxWait)
		}
	}
}

// fetchResult retrieves the completed transcript, riding out a bounded
// number of transient failures.
func (p *Pool) fetchResult(ctx context.Context, jobID string) (transcriber.Result, error) {
	var result transcriber.Result
	operation := func() error {
		fetched, err := p.client.Result(ctx, jobID)
		if err == nil {
			result = fetched
			return nil
		}
		if errors.Is(err, transcriber.ErrTransient) || errors.Is(err, transcriber.ErrRateLimited) {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(p.newBackoff(), uint64(p.cfg.Coordinator.PollFailureLimit)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return transcriber.Result{}, fmt.Errorf("fetch result for job %s: %w", jobID, err)
	}
	return result, nil
}

func (p *Pool) fail(ctx context.Context, logger *slog.Logger, recordingID int64, cause error) {
	if _, err := p.store.Transition(ctx, recordingID, recording.StatusFailed, recording.TransitionFields{
		LastError: cause.Error(),
	}); err != nil {
		logger.Error("mark recording failed", logging.Error(err))
		return
	}
	logger.Warn("recording failed", logging.Error(cause))
}

func (p *Pool) timeoutError(jobID string, maxWait time.Duration) error {
	return fmt.Errorf("%w: job %s exceeded max wait %s", transcriber.ErrTimeout, jobID, maxWait)
}

func (p *Pool) newBackoff() *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(p.cfg.Coordinator.BackoffInitial) * time.Second
	policy.MaxInterval = time.Duration(p.cfg.Coordinator.BackoffMax) * time.Second
	policy.MaxElapsedTime = 0
	return policy
}
