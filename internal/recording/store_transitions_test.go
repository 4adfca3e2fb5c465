package recording_test

import (
	"context"
	"errors"
	"testing"

	"callpipe/internal/recording"
	"callpipe/internal/testsupport"
)

func claimOne(t *testing.T, store *recording.Store, providerID string) *recording.Recording {
	t.Helper()
	testsupport.NewRecording(t, store, providerID)
	claimed, err := store.ClaimNextForTranscription(context.Background(), "worker-1", 1)
	if err != nil || len(claimed) != 1 {
		t.Fatalf("claim: %v (%d rows)", err, len(claimed))
	}
	return claimed[0]
}

func TestTransitionToCompleted(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := claimOne(t, store, "R1")

	done, err := store.Transition(ctx, rec.ID, recording.StatusCompleted, recording.TransitionFields{
		StorageRef: "transcripts/R1.json",
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if done.Status != recording.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if !done.Transcribed || done.TranscribedAt == nil {
		t.Fatal("expected transcription stamp on completion")
	}
	if done.StorageRef != "transcripts/R1.json" {
		t.Fatalf("unexpected storage ref %q", done.StorageRef)
	}
	if done.WorkerID != "" || done.LastHeartbeat != nil {
		t.Fatal("expected worker ownership cleared on completion")
	}
}

func TestTransitionToFailedRecordsError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := claimOne(t, store, "R1")

	failed, err := store.Transition(ctx, rec.ID, recording.StatusFailed, recording.TransitionFields{
		LastError: "submission rejected: invalid audio",
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if failed.Status != recording.StatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if failed.LastError != "submission rejected: invalid audio" {
		t.Fatalf("unexpected last error %q", failed.LastError)
	}
	if failed.WorkerID != "" {
		t.Fatal("expected worker ownership cleared on failure")
	}
}

func TestTransitionRejectsIllegalEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := testsupport.NewRecording(t, store, "R1")

	// DOWNLOADED has no edge to COMPLETED.
	if _, err := store.Transition(ctx, rec.ID, recording.StatusCompleted, recording.TransitionFields{}); !errors.Is(err, recording.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}

	done := claimOne(t, store, "R2")
	if _, err := store.Transition(ctx, done.ID, recording.StatusCompleted, recording.TransitionFields{}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	// COMPLETED is terminal.
	if _, err := store.Transition(ctx, done.ID, recording.StatusFailed, recording.TransitionFields{}); !errors.Is(err, recording.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition from completed, got %v", err)
	}
	if _, err := store.Transition(ctx, done.ID, recording.StatusDownloaded, recording.TransitionFields{}); !errors.Is(err, recording.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition from completed, got %v", err)
	}
}

func TestTransitionMissingRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Transition(context.Background(), 9999, recording.StatusFailed, recording.TransitionFields{})
	if !errors.Is(err, recording.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIncrementAttempts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := claimOne(t, store, "R1")
	if rec.Attempts != 1 {
		t.Fatalf("expected attempts=1 after claim, got %d", rec.Attempts)
	}

	// Two rate-limited submission retries.
	for want := 2; want <= 3; want++ {
		attempts, err := store.IncrementAttempts(ctx, rec.ID)
		if err != nil {
			t.Fatalf("IncrementAttempts failed: %v", err)
		}
		if attempts != want {
			t.Fatalf("expected attempts=%d, got %d", want, attempts)
		}
	}
}

func TestRetryFailedResetsBookkeeping(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := claimOne(t, store, "R1")
	if err := store.SetTranscriptJob(ctx, rec.ID, "job-42"); err != nil {
		t.Fatalf("SetTranscriptJob failed: %v", err)
	}
	if _, err := store.Transition(ctx, rec.ID, recording.StatusFailed, recording.TransitionFields{LastError: "timeout"}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	reset, err := store.RetryFailed(ctx, rec.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset row, got %d", reset)
	}

	got, err := store.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != recording.StatusDownloaded {
		t.Fatalf("expected downloaded after retry, got %s", got.Status)
	}
	if got.Attempts != 0 || got.LastError != "" || got.TranscriptJobID != "" {
		t.Fatalf("expected bookkeeping cleared, got %#v", got)
	}
}

func TestRetryFailedOnlyTouchesFailedRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	fresh := testsupport.NewRecording(t, store, "R1")

	reset, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if reset != 0 {
		t.Fatalf("expected 0 resets with no failed rows, got %d", reset)
	}

	got, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != recording.StatusDownloaded {
		t.Fatalf("downloaded row must be untouched, got %s", got.Status)
	}
}

func TestRetriedRecordingCanBeReclaimed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	rec := claimOne(t, store, "R1")
	if _, err := store.Transition(ctx, rec.ID, recording.StatusFailed, recording.TransitionFields{LastError: "transient"}); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}
	if _, err := store.RetryFailed(ctx, rec.ID); err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}

	claimed, err := store.ClaimNextForTranscription(ctx, "worker-2", 1)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if len(claimed) != 1 || claimed[0].ID != rec.ID {
		t.Fatalf("expected retried row reclaimed, got %#v", claimed)
	}
	if claimed[0].Attempts != 1 {
		t.Fatalf("expected fresh attempt count after retry, got %d", claimed[0].Attempts)
	}
}

func TestCanTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to recording.Status
		want     bool
	}{
		{recording.StatusDownloaded, recording.StatusTranscribing, true},
		{recording.StatusTranscribing, recording.StatusCompleted, true},
		{recording.StatusTranscribing, recording.StatusFailed, true},
		{recording.StatusFailed, recording.StatusDownloaded, true},
		{recording.StatusDownloaded, recording.StatusCompleted, false},
		{recording.StatusDownloaded, recording.StatusFailed, false},
		{recording.StatusTranscribing, recording.StatusDownloaded, false},
		{recording.StatusCompleted, recording.StatusDownloaded, false},
		{recording.StatusCompleted, recording.StatusFailed, false},
		{recording.StatusFailed, recording.StatusTranscribing, false},
	}
	for _, tc := range cases {
		if got := recording.CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := recording.ParseStatus(" Transcribing "); !ok || status != recording.StatusTranscribing {
		t.Fatalf("ParseStatus normalization failed: %q %v", status, ok)
	}
	if _, ok := recording.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if !recording.StatusCompleted.IsTerminal() || !recording.StatusFailed.IsTerminal() {
		t.Fatal("completed and failed must be terminal")
	}
	if recording.StatusDownloaded.IsTerminal() || recording.StatusTranscribing.IsTerminal() {
		t.Fatal("downloaded and transcribing must not be terminal")
	}
}
