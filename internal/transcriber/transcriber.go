package transcriber

import (
	"context"
	"time"
)

// SubmitRequest describes one transcription submission.
type SubmitRequest struct {
	// AudioURL points the service at the recorded audio. The service pulls
	// the file itself; the pipeline never proxies audio bytes.
	AudioURL string
	// Language hints the recognition model, e.g. "en".
	Language string
	// Reference is the caller's correlation key, echoed back by the service.
	Reference string
}

// Job is the service's handle for an accepted submission.
type Job struct {
	ID          string
	SubmittedAt time.Time
}

// JobState is the remote processing state of a submitted job.
type JobState string

const (
	StateQueued     JobState = "queued"
	StateProcessing JobState = "processing"
	StateDone       JobState = "done"
	StateRejected   JobState = "rejected"
)

// JobStatus is one poll observation.
type JobStatus struct {
	State JobState
	// Detail carries the service's failure reason when State is rejected.
	Detail string
}

// Segment is one speaker turn in a transcript.
type Segment struct {
	Speaker string  `json:"speaker"`
	StartMS int     `json:"start_ms"`
	EndMS   int     `json:"end_ms"`
	Text    string  `json:"text"`
	Score   float64 `json:"score,omitempty"`
}

// Result is the completed transcript for a job. Results stay fetchable by
// job id after completion, which is what makes crash recovery possible.
type Result struct {
	JobID    string    `json:"job_id"`
	Language string    `json:"language"`
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}

// Client is the narrow surface the coordinator needs from the speech-to-text
// service.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (Job, error)
	Poll(ctx context.Context, jobID string) (JobStatus, error)
	Result(ctx context.Context, jobID string) (Result, error)
}
