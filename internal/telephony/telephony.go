package telephony

import (
	"context"
	"time"
)

// CallRecording is one call event as reported by the provider. RawJSON holds
// the provider's full payload for audit; the core never interprets it.
type CallRecording struct {
	ProviderID         string
	SessionID          string
	TelephonySessionID string
	StartTime          time.Time
	DurationSecs       int
	Direction          string
	FromNumber         string
	ToNumber           string
	RecordingURL       string
	RawJSON            string
}

// HasRecording reports whether the provider attached recorded audio to the
// call. Calls without audio are ignored by ingestion.
func (c CallRecording) HasRecording() bool {
	return c.RecordingURL != ""
}

// Client is the narrow surface the pipeline needs from the telephony
// provider. Everything else the provider API offers stays out of scope.
type Client interface {
	ListCallRecordings(ctx context.Context, from, to time.Time) ([]CallRecording, error)
}
