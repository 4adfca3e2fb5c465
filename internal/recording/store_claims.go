package recording

import (
	"context"
	"fmt"
	"time"
)

// ClaimNextForTranscription atomically selects up to limit DOWNLOADED rows,
// flips them to TRANSCRIBING, increments their attempt count, and stamps the
// claiming worker and heartbeat. The single guarded UPDATE guarantees no two
// concurrent callers receive the same row.
func (s *Store) ClaimNextForTranscription(ctx context.Context, workerID string, limit int) ([]*Recording, error) {
	if limit <= 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()

	rows, err := s.db.QueryContext(
		ctx,
		`UPDATE recordings
         SET status = ?, attempts = attempts + 1, worker_id = ?, heartbeat_unix = ?, updated_at = ?
         WHERE id IN (
             SELECT id FROM recordings WHERE status = ? ORDER BY id LIMIT ?
         ) AND status = ?
         RETURNING `+recordingColumns,
		StatusTranscribing,
		workerID,
		now.Unix(),
		now.Format(time.RFC3339Nano),
		StatusDownloaded,
		limit,
		StatusDownloaded,
	)
	if err != nil {
		return nil, fmt.Errorf("claim recordings: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// ReclaimStaleTranscribing re-claims TRANSCRIBING rows whose heartbeat
// predates the cutoff. Rows stay TRANSCRIBING (there is no legal edge back to
// DOWNLOADED); ownership moves to the caller and the attempt count advances.
// This is how rows abandoned by a crashed worker, or left behind by a failed
// fan-out, get picked up again.
func (s *Store) ReclaimStaleTranscribing(ctx context.Context, workerID string, cutoff time.Time, limit int) ([]*Recording, error) {
	if limit <= 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	cutoffUnix := cutoff.UTC().Unix()

	rows, err := s.db.QueryContext(
		ctx,
		`UPDATE recordings
         SET attempts = attempts + 1, worker_id = ?, heartbeat_unix = ?, updated_at = ?
         WHERE id IN (
             SELECT id FROM recordings
             WHERE status = ? AND (heartbeat_unix IS NULL OR heartbeat_unix < ?)
             ORDER BY id LIMIT ?
         ) AND status = ? AND (heartbeat_unix IS NULL OR heartbeat_unix < ?)
         RETURNING `+recordingColumns,
		workerID,
		now.Unix(),
		now.Format(time.RFC3339Nano),
		StatusTranscribing,
		cutoffUnix,
		limit,
		StatusTranscribing,
		cutoffUnix,
	)
	if err != nil {
		return nil, fmt.Errorf("reclaim stale recordings: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// UpdateHeartbeat refreshes the per-row heartbeat for a claimed recording.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE recordings SET heartbeat_unix = ?, updated_at = ? WHERE id = ?`,
		now.Unix(),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// UpsertWorkerHeartbeat records worker liveness in the shared registry the
// watchdog reads instead of inspecting OS process tables.
func (s *Store) UpsertWorkerHeartbeat(ctx context.Context, workerID string) error {
	now := time.Now().UTC().Unix()
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO worker_heartbeats (worker_id, started_unix, last_active_unix)
         VALUES (?, ?, ?)
         ON CONFLICT(worker_id) DO UPDATE SET last_active_unix = excluded.last_active_unix`,
		workerID,
		now,
		now,
	); err != nil {
		return fmt.Errorf("upsert worker heartbeat: %w", err)
	}
	return nil
}

// ListWorkerHeartbeats returns every registered worker heartbeat.
func (s *Store) ListWorkerHeartbeats(ctx context.Context) ([]WorkerHeartbeat, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT worker_id, started_unix, last_active_unix FROM worker_heartbeats ORDER BY worker_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list worker heartbeats: %w", err)
	}
	defer rows.Close()

	var beats []WorkerHeartbeat
	for rows.Next() {
		var (
			workerID   string
			startUnix  int64
			activeUnix int64
		)
		if err := rows.Scan(&workerID, &startUnix, &activeUnix); err != nil {
			return nil, err
		}
		beats = append(beats, WorkerHeartbeat{
			WorkerID:   workerID,
			StartedAt:  time.Unix(startUnix, 0).UTC(),
			LastActive: time.Unix(activeUnix, 0).UTC(),
		})
	}
	return beats, rows.Err()
}

// RemoveWorkerHeartbeat deletes one worker's registry row.
func (s *Store) RemoveWorkerHeartbeat(ctx context.Context, workerID string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM worker_heartbeats WHERE worker_id = ?`, workerID); err != nil {
		return fmt.Errorf("remove worker heartbeat: %w", err)
	}
	return nil
}

// PruneWorkerHeartbeats removes registry rows inactive since the cutoff.
func (s *Store) PruneWorkerHeartbeats(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM worker_heartbeats WHERE last_active_unix < ?`,
		cutoff.UTC().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune worker heartbeats: %w", err)
	}
	return res.RowsAffected()
}
