package recording

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a recording.
type Status string

const (
	StatusDownloaded   Status = "downloaded"
	StatusTranscribing Status = "transcribing"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

var allStatuses = []Status{
	StatusDownloaded,
	StatusTranscribing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// legalEdges is the authoritative transition graph. Status only advances
// along these edges; FAILED -> DOWNLOADED is the explicit retry reset.
var legalEdges = map[Status][]Status{
	StatusDownloaded:   {StatusTranscribing},
	StatusTranscribing: {StatusCompleted, StatusFailed},
	StatusFailed:       {StatusDownloaded},
}

// CanTransition reports whether from -> to is a legal status edge.
func CanTransition(from, to Status) bool {
	for _, next := range legalEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// legalSources returns the statuses from which `to` may be reached.
func legalSources(to Status) []Status {
	var froms []Status
	for from, tos := range legalEdges {
		for _, next := range tos {
			if next == to {
				froms = append(froms, from)
			}
		}
	}
	return froms
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the pipeline. FAILED is terminal
// until an explicit retry resets it.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Recording represents one call event persisted in SQLite.
//
// Call facts (start time, duration, direction, endpoints) are immutable once
// set. Processing metadata is mutated only by the coordinator and fan-out
// through the store's atomic operations.
type Recording struct {
	ID                 int64
	ProviderID         string
	SessionID          string
	TelephonySessionID string
	StartTime          time.Time
	DurationSecs       int
	Direction          string
	FromNumber         string
	ToNumber           string
	Status             Status
	AudioDownloaded    bool
	AudioDownloadedAt  *time.Time
	AudioSource        string
	Transcribed        bool
	TranscribedAt      *time.Time
	Attempts           int
	LastError          string
	StorageRef         string
	TranscriptJobID    string
	RawMetadataJSON    string
	WorkerID           string
	LastHeartbeat      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TransitionFields carries the column updates applied alongside a status change.
type TransitionFields struct {
	// LastError is recorded when transitioning to FAILED.
	LastError string
	// StorageRef is recorded when transitioning to COMPLETED.
	StorageRef string
	// TranscribedAt stamps completion time; defaults to now on COMPLETED.
	TranscribedAt *time.Time
}

// WorkerHeartbeat is one worker's liveness report in the shared registry.
type WorkerHeartbeat struct {
	WorkerID   string
	StartedAt  time.Time
	LastActive time.Time
}

// StatsSummary aggregates recording counts per lifecycle state.
type StatsSummary struct {
	Total        int
	Downloaded   int
	Transcribing int
	Completed    int
	Failed       int
}
