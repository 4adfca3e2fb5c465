package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"callpipe/internal/config"
	"callpipe/internal/fileutil"
	"callpipe/internal/logging"
	"callpipe/internal/recording"
	"callpipe/internal/transcriber"
)

// ErrPersist wraps every fan-out failure. Callers leave the recording
// TRANSCRIBING when they see it; a later reclaim retries the whole fan-out,
// which is safe because every write is replace-on-rename.
var ErrPersist = errors.New("fanout: persist failed")

// Artifacts names the files one completed recording produced.
type Artifacts struct {
	StructuredPath string
	ReadablePath   string
	QueuePath      string
}

// Writer persists completed transcripts to the storage sinks and the
// downstream file-drop queue.
type Writer struct {
	transcriptDir string
	queueDir      string
	triggers      []string
	logger        *slog.Logger
}

// New builds a Writer from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		transcriptDir: cfg.Paths.TranscriptDir,
		queueDir:      cfg.Paths.QueueDir,
		triggers:      cfg.Fanout.Triggers,
		logger:        logger.With(logging.String(logging.FieldComponent, "fanout")),
	}
}

// transcriptDocument is the structured sink schema consumed by downstream
// analysis stages.
type transcriptDocument struct {
	RecordingID   int64                 `json:"recording_id"`
	ProviderID    string                `json:"provider_id"`
	SessionID     string                `json:"session_id,omitempty"`
	StartTime     time.Time             `json:"start_time"`
	DurationSecs  int                   `json:"duration_seconds"`
	Direction     string                `json:"direction"`
	FromNumber    string                `json:"from_number"`
	ToNumber      string                `json:"to_number"`
	Language      string                `json:"language,omitempty"`
	Text          string                `json:"text"`
	Segments      []transcriber.Segment `json:"segments,omitempty"`
	TranscribedAt time.Time             `json:"transcribed_at"`
}

// queueEntry is the downstream file-drop contract: one JSON file per
// completed recording, pointing at the transcript artifacts and naming the
// processing stages that should pick it up.
type queueEntry struct {
	RecordingID    int64     `json:"recording_id"`
	ProviderID     string    `json:"provider_id"`
	Timestamp      time.Time `json:"timestamp"`
	TranscriptJSON string    `json:"transcript_json"`
	TranscriptText string    `json:"transcript_text"`
	Triggers       []string  `json:"triggers"`
}

// Persist writes the structured document, the readable document, and the
// queue entry for a completed recording. Re-invocation for the same
// recording overwrites the previous artifacts.
func (w *Writer) Persist(ctx context.Context, rec *recording.Recording, result transcriber.Result) (Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return Artifacts{}, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	artifacts := Artifacts{
		StructuredPath: filepath.Join(w.transcriptDir, rec.ProviderID+".json"),
		ReadablePath:   filepath.Join(w.transcriptDir, rec.ProviderID+".txt"),
		QueuePath:      filepath.Join(w.queueDir, rec.ProviderID+".json"),
	}
	now := time.Now().UTC()

	doc := transcriptDocument{
		RecordingID:   rec.ID,
		ProviderID:    rec.ProviderID,
		SessionID:     rec.SessionID,
		StartTime:     rec.StartTime.UTC(),
		DurationSecs:  rec.DurationSecs,
		Direction:     rec.Direction,
		FromNumber:    rec.FromNumber,
		ToNumber:      rec.ToNumber,
		Language:      result.Language,
		Text:          result.Text,
		Segments:      result.Segments,
		TranscribedAt: now,
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Artifacts{}, fmt.Errorf("%w: encode structured document: %v", ErrPersist, err)
	}
	if err := fileutil.WriteFileAtomic(artifacts.StructuredPath, encoded, 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("%w: structured document: %v", ErrPersist, err)
	}

	readable := renderReadable(rec, result)
	if err := fileutil.WriteFileAtomic(artifacts.ReadablePath, []byte(readable), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("%w: readable document: %v", ErrPersist, err)
	}

	entry := queueEntry{
		RecordingID:    rec.ID,
		ProviderID:     rec.ProviderID,
		Timestamp:      now,
		TranscriptJSON: artifacts.StructuredPath,
		TranscriptText: artifacts.ReadablePath,
		Triggers:       w.triggers,
	}
	encodedEntry, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return Artifacts{}, fmt.Errorf("%w: encode queue entry: %v", ErrPersist, err)
	}
	if err := fileutil.WriteFileAtomic(artifacts.QueuePath, encodedEntry, 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("%w: queue entry: %v", ErrPersist, err)
	}

	w.logger.Info("transcript persisted",
		logging.Int64(logging.FieldRecordingID, rec.ID),
		logging.String(logging.FieldProviderID, rec.ProviderID),
		logging.String("queue_entry", artifacts.QueuePath))
	return artifacts, nil
}
