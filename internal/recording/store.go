package recording

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"callpipe/internal/config"
)

// Store manages recording persistence backed by SQLite. It is the single
// source of truth for lifecycle status; all mutation goes through its atomic
// operations.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the recording database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "recordings.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new recording at DOWNLOADED. The provider id is globally
// unique; a collision returns ErrDuplicateKey so racing ingest cycles can
// treat the loss as "already exists".
func (s *Store) Create(ctx context.Context, rec *Recording) (*Recording, error) {
	if rec == nil {
		return nil, errors.New("recording is nil")
	}
	providerID := strings.TrimSpace(rec.ProviderID)
	if providerID == "" {
		return nil, errors.New("provider id is required")
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	status := rec.Status
	if status == "" {
		status = StatusDownloaded
	}
	audioDownloadedAt := rec.AudioDownloadedAt
	if rec.AudioDownloaded && audioDownloadedAt == nil {
		audioDownloadedAt = &now
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO recordings (
            provider_id, session_id, telephony_session_id,
            start_unix, duration_seconds, direction, from_number, to_number,
            status, audio_downloaded, audio_downloaded_unix, audio_source,
            attempts, raw_metadata_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		providerID,
		nullableString(rec.SessionID),
		nullableString(rec.TelephonySessionID),
		rec.StartTime.UTC().Unix(),
		rec.DurationSecs,
		nullableString(rec.Direction),
		nullableString(rec.FromNumber),
		nullableString(rec.ToNumber),
		status,
		boolToInt(rec.AudioDownloaded),
		nullableUnix(audioDownloadedAt),
		nullableString(rec.AudioSource),
		rec.Attempts,
		nullableString(rec.RawMetadataJSON),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create recording %s: %w", providerID, ErrDuplicateKey)
		}
		return nil, fmt.Errorf("insert recording: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a recording by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE id = ?`, id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recording: %w", err)
	}
	return rec, nil
}

// FindByProviderID returns the recording matching a provider id, or nil.
func (s *Store) FindByProviderID(ctx context.Context, providerID string) (*Recording, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings WHERE provider_id = ? LIMIT 1`,
		providerID,
	)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by provider id: %w", err)
	}
	return rec, nil
}

// FindBySessionID returns the first recording whose session or telephony
// session id matches, or nil.
func (s *Store) FindBySessionID(ctx context.Context, sessionID string) (*Recording, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings
         WHERE session_id = ? OR telephony_session_id = ?
         ORDER BY id LIMIT 1`,
		sessionID,
		sessionID,
	)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by session id: %w", err)
	}
	return rec, nil
}

// FindNear returns the first recording whose start time and duration fall
// within the given windows and whose endpoints match exactly, or nil.
func (s *Store) FindNear(ctx context.Context, start time.Time, durationSecs int, window time.Duration, fromNumber, toNumber string) (*Recording, error) {
	windowSecs := int64(window / time.Second)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordingColumns+` FROM recordings
         WHERE ABS(start_unix - ?) <= ?
           AND ABS(duration_seconds - ?) <= ?
           AND from_number = ? AND to_number = ?
         ORDER BY id LIMIT 1`,
		start.UTC().Unix(),
		windowSecs,
		durationSecs,
		windowSecs,
		fromNumber,
		toNumber,
	)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find near: %w", err)
	}
	return rec, nil
}

// ListByStatus returns recordings matching a status ordered by creation.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordingColumns+` FROM recordings WHERE status = ? ORDER BY id`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()
	return collectRecordings(rows)
}

// CountByStatus returns the backlog depth for a lifecycle state.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM recordings WHERE status = ?`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

// Stats returns a count of recordings grouped by status.
func (s *Store) Stats(ctx context.Context) (StatsSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM recordings GROUP BY status`)
	if err != nil {
		return StatsSummary{}, fmt.Errorf("recording stats: %w", err)
	}
	defer rows.Close()

	summary := StatsSummary{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatsSummary{}, err
		}
		summary.Total += count
		switch status {
		case StatusDownloaded:
			summary.Downloaded += count
		case StatusTranscribing:
			summary.Transcribing += count
		case StatusCompleted:
			summary.Completed += count
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

const recordingColumns = "id, provider_id, session_id, telephony_session_id, start_unix, duration_seconds, direction, from_number, to_number, status, audio_downloaded, audio_downloaded_unix, audio_source, transcribed, transcribed_unix, attempts, last_error, storage_ref, transcript_job_id, raw_metadata_json, worker_id, heartbeat_unix, created_at, updated_at"

func scanRecording(scanner interface{ Scan(dest ...any) error }) (*Recording, error) {
	var (
		id              int64
		providerID      string
		sessionID       sql.NullString
		telephonyID     sql.NullString
		startUnix       int64
		durationSecs    int
		direction       sql.NullString
		fromNumber      sql.NullString
		toNumber        sql.NullString
		statusStr       string
		audioDownloaded sql.NullInt64
		audioUnix       sql.NullInt64
		audioSource     sql.NullString
		transcribed     sql.NullInt64
		transcribedUnix sql.NullInt64
		attempts        int
		lastError       sql.NullString
		storageRef      sql.NullString
		jobID           sql.NullString
		rawMetadata     sql.NullString
		workerID        sql.NullString
		heartbeatUnix   sql.NullInt64
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&providerID,
		&sessionID,
		&telephonyID,
		&startUnix,
		&durationSecs,
		&direction,
		&fromNumber,
		&toNumber,
		&statusStr,
		&audioDownloaded,
		&audioUnix,
		&audioSource,
		&transcribed,
		&transcribedUnix,
		&attempts,
		&lastError,
		&storageRef,
		&jobID,
		&rawMetadata,
		&workerID,
		&heartbeatUnix,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec := &Recording{
		ID:                 id,
		ProviderID:         providerID,
		SessionID:          sessionID.String,
		TelephonySessionID: telephonyID.String,
		StartTime:          time.Unix(startUnix, 0).UTC(),
		DurationSecs:       durationSecs,
		Direction:          direction.String,
		FromNumber:         fromNumber.String,
		ToNumber:           toNumber.String,
		Status:             Status(statusStr),
		AudioDownloaded:    audioDownloaded.Int64 != 0,
		AudioSource:        audioSource.String,
		Transcribed:        transcribed.Int64 != 0,
		Attempts:           attempts,
		LastError:          lastError.String,
		StorageRef:         storageRef.String,
		TranscriptJobID:    jobID.String,
		RawMetadataJSON:    rawMetadata.String,
		WorkerID:           workerID.String,
	}
	if audioUnix.Valid {
		ts := time.Unix(audioUnix.Int64, 0).UTC()
		rec.AudioDownloadedAt = &ts
	}
	if transcribedUnix.Valid {
		ts := time.Unix(transcribedUnix.Int64, 0).UTC()
		rec.TranscribedAt = &ts
	}
	if heartbeatUnix.Valid {
		ts := time.Unix(heartbeatUnix.Int64, 0).UTC()
		rec.LastHeartbeat = &ts
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func collectRecordings(rows *sql.Rows) ([]*Recording, error) {
	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableUnix(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Unix()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
