package testsupport

import (
	"context"
	"testing"
	"time"

	"callpipe/internal/config"
	"callpipe/internal/recording"
)

// MustOpenStore opens a recording.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *recording.Store {
	t.Helper()

	store, err := recording.Open(cfg)
	if err != nil {
		t.Fatalf("recording.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRecording creates a recording row for tests using the provided store.
func NewRecording(t testing.TB, store *recording.Store, providerID string) *recording.Recording {
	t.Helper()

	rec, err := store.Create(context.Background(), &recording.Recording{
		ProviderID:      providerID,
		SessionID:       "session-" + providerID,
		StartTime:       time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		DurationSecs:    240,
		Direction:       "inbound",
		FromNumber:      "+15550100",
		ToNumber:        "+15550199",
		AudioDownloaded: true,
		AudioSource:     "https://media.test.invalid/" + providerID,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return rec
}
