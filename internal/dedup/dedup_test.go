package dedup_test

import (
	"context"
	"testing"
	"time"

	"callpipe/internal/dedup"
	"callpipe/internal/testsupport"
)

func newDeduplicator(t *testing.T) (*dedup.Deduplicator, *candidateSeed) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seeded := testsupport.NewRecording(t, store, "R1")
	return dedup.New(store, 5*time.Second, nil), &candidateSeed{
		recordingID: seeded.ID,
		startTime:   seeded.StartTime,
		duration:    seeded.DurationSecs,
		from:        seeded.FromNumber,
		to:          seeded.ToNumber,
	}
}

type candidateSeed struct {
	recordingID int64
	startTime   time.Time
	duration    int
	from        string
	to          string
}

func TestProviderIDMatchWinsFirst(t *testing.T) {
	d, seed := newDeduplicator(t)

	match, err := d.FindDuplicate(context.Background(), dedup.Candidate{
		ProviderID: "R1",
		SessionID:  "unrelated-session",
	})
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if match == nil || match.Strategy != "provider_id" {
		t.Fatalf("expected provider_id match, got %#v", match)
	}
	if match.Existing.ID != seed.recordingID {
		t.Fatalf("matched wrong recording %d", match.Existing.ID)
	}
}

func TestSessionIDMatch(t *testing.T) {
	d, seed := newDeduplicator(t)

	match, err := d.FindDuplicate(context.Background(), dedup.Candidate{
		ProviderID: "R-other",
		SessionID:  "session-R1",
	})
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if match == nil || match.Strategy != "session_id" {
		t.Fatalf("expected session_id match, got %#v", match)
	}
	if match.Existing.ID != seed.recordingID {
		t.Fatalf("matched wrong recording %d", match.Existing.ID)
	}
}

func TestFuzzyMatchWithinWindow(t *testing.T) {
	d, seed := newDeduplicator(t)

	match, err := d.FindDuplicate(context.Background(), dedup.Candidate{
		ProviderID:   "R-other",
		SessionID:    "session-other",
		StartTime:    seed.startTime.Add(3 * time.Second),
		DurationSecs: seed.duration,
		FromNumber:   seed.from,
		ToNumber:     seed.to,
	})
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if match == nil || match.Strategy != "fuzzy" {
		t.Fatalf("expected fuzzy match 3s apart, got %#v", match)
	}
}

func TestFuzzyRejectsOutsideWindow(t *testing.T) {
	d, seed := newDeduplicator(t)

	match, err := d.FindDuplicate(context.Background(), dedup.Candidate{
		ProviderID:   "R-other",
		SessionID:    "session-other",
		StartTime:    seed.startTime.Add(10 * time.Second),
		DurationSecs: seed.duration,
		FromNumber:   seed.from,
		ToNumber:     seed.to,
	})
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match 10s apart, got %#v", match)
	}
}

func TestFuzzyRejectsDifferentEndpoints(t *testing.T) {
	d, seed := newDeduplicator(t)

	match, err := d.FindDuplicate(context.Background(), dedup.Candidate{
		ProviderID:   "R-other",
		StartTime:    seed.startTime,
		DurationSecs: seed.duration,
		FromNumber:   seed.from,
		ToNumber:     "+15559999",
	})
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if match != nil {
		t.Fatalf("expected no match for different callee, got %#v", match)
	}
}

func TestNewCandidatePassesEveryStrategy(t *testing.T) {
	d, seed := newDeduplicator(t)

	match, err := d.FindDuplicate(context.Background(), dedup.Candidate{
		ProviderID:   "R-new",
		SessionID:    "session-new",
		StartTime:    seed.startTime.Add(time.Hour),
		DurationSecs: 30,
		FromNumber:   "+15550001",
		ToNumber:     "+15550002",
	})
	if err != nil {
		t.Fatalf("FindDuplicate failed: %v", err)
	}
	if match != nil {
		t.Fatalf("expected new candidate, got %#v", match)
	}
}
