package recording

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transition applies a status change, enforcing the lifecycle graph. The
// UPDATE is guarded on the set of legal source statuses; zero affected rows
// means the row was missing (ErrNotFound) or its current status has no edge
// to the target (ErrIllegalTransition, carrying the observed status).
func (s *Store) Transition(ctx context.Context, id int64, to Status, fields TransitionFields) (*Recording, error) {
	froms := legalSources(to)
	if len(froms) == 0 {
		return nil, fmt.Errorf("%w: no edges lead to %s", ErrIllegalTransition, to)
	}

	now := time.Now().UTC()
	set := "status = ?, updated_at = ?"
	args := []any{to, now.Format(time.RFC3339Nano)}

	switch to {
	case StatusCompleted:
		transcribedAt := fields.TranscribedAt
		if transcribedAt == nil {
			transcribedAt = &now
		}
		set += ", transcribed = 1, transcribed_unix = ?, storage_ref = ?, last_error = NULL, worker_id = NULL, heartbeat_unix = NULL"
		args = append(args, transcribedAt.UTC().Unix(), nullableString(fields.StorageRef))
	case StatusFailed:
		set += ", last_error = ?, worker_id = NULL, heartbeat_unix = NULL"
		args = append(args, nullableString(fields.LastError))
	case StatusDownloaded:
		// Explicit retry: reset attempt bookkeeping, preserve call facts.
		set += ", attempts = 0, last_error = NULL, transcript_job_id = NULL, worker_id = NULL, heartbeat_unix = NULL"
	case StatusTranscribing:
		// Claim-style edge; normally reached through ClaimNextForTranscription.
	}

	placeholders := makePlaceholders(len(froms))
	args = append(args, id)
	for _, from := range froms {
		args = append(args, from)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET `+set+` WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("transition recording: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("transition recording %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("recording %d: %w: %s -> %s", id, ErrIllegalTransition, current.Status, to)
	}
	return s.GetByID(ctx, id)
}

// SetTranscriptJob records the external job handle on a claimed row. A row
// should never sit in TRANSCRIBING without one beyond the submission window.
func (s *Store) SetTranscriptJob(ctx context.Context, id int64, jobID string) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET transcript_job_id = ?, updated_at = ? WHERE id = ?`,
		nullableString(jobID),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("set transcript job: %w", err)
	}
	return nil
}

// IncrementAttempts bumps the attempt count (rate-limit retries within a
// single claim) and returns the new value.
func (s *Store) IncrementAttempts(ctx context.Context, id int64) (int, error) {
	ctx = ensureContext(ctx)
	var attempts int
	err := s.db.QueryRowContext(
		ctx,
		`UPDATE recordings SET attempts = attempts + 1, updated_at = ? WHERE id = ? RETURNING attempts`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	).Scan(&attempts)
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// RetryFailed moves FAILED recordings (optionally a subset) back to
// DOWNLOADED for reprocessing. Retry is always explicit, never automatic.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	resetClause := `SET status = ?, attempts = 0, last_error = NULL, transcript_job_id = NULL,
            worker_id = NULL, heartbeat_unix = NULL, updated_at = ?`

	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE recordings `+resetClause+` WHERE status = ?`,
			StatusDownloaded,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed recordings: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := []any{StatusDownloaded, timestamp, StatusFailed}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE recordings `+resetClause+` WHERE status = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("retry selected recordings: %w", err)
	}
	return res.RowsAffected()
}

// IsDuplicateKey reports whether an error chain contains ErrDuplicateKey.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
