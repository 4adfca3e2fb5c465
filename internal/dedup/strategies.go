package dedup

import (
	"context"
	"time"

	"callpipe/internal/recording"
)

type providerIDStrategy struct {
	store Lookup
}

func (s *providerIDStrategy) Name() string { return "provider_id" }

func (s *providerIDStrategy) Match(ctx context.Context, candidate Candidate) (*recording.Recording, error) {
	if candidate.ProviderID == "" {
		return nil, nil
	}
	return s.store.FindByProviderID(ctx, candidate.ProviderID)
}

type sessionIDStrategy struct {
	store Lookup
}

func (s *sessionIDStrategy) Name() string { return "session_id" }

func (s *sessionIDStrategy) Match(ctx context.Context, candidate Candidate) (*recording.Recording, error) {
	for _, sessionID := range []string{candidate.SessionID, candidate.TelephonySessionID} {
		if sessionID == "" {
			continue
		}
		existing, err := s.store.FindBySessionID(ctx, sessionID)
		if err != nil || existing != nil {
			return existing, err
		}
	}
	return nil, nil
}

// fuzzyStrategy correlates calls whose start time and duration land within
// the window and whose endpoints match exactly. It catches the same call
// reported twice with drifting identifiers, at the cost of a small risk of
// merging genuinely distinct back-to-back calls between the same numbers.
type fuzzyStrategy struct {
	store  Lookup
	window time.Duration
}

func (s *fuzzyStrategy) Name() string { return "fuzzy" }

func (s *fuzzyStrategy) Match(ctx context.Context, candidate Candidate) (*recording.Recording, error) {
	if candidate.StartTime.IsZero() || candidate.FromNumber == "" || candidate.ToNumber == "" {
		return nil, nil
	}
	return s.store.FindNear(ctx, candidate.StartTime, candidate.DurationSecs, s.window, candidate.FromNumber, candidate.ToNumber)
}
