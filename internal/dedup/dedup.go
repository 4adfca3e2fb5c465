package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"callpipe/internal/logging"
	"callpipe/internal/recording"
)

// Candidate carries the identifying signals of an incoming call recording.
type Candidate struct {
	ProviderID         string
	SessionID          string
	TelephonySessionID string
	StartTime          time.Time
	DurationSecs       int
	FromNumber         string
	ToNumber           string
}

// Lookup is the store surface deduplication reads from. Strategies never
// write; the store's unique provider_id constraint stays the final arbiter
// under concurrent ingestion.
type Lookup interface {
	FindByProviderID(ctx context.Context, providerID string) (*recording.Recording, error)
	FindBySessionID(ctx context.Context, sessionID string) (*recording.Recording, error)
	FindNear(ctx context.Context, start time.Time, durationSecs int, window time.Duration, fromNumber, toNumber string) (*recording.Recording, error)
}

// MatchStrategy identifies an existing recording for a candidate, or nil.
type MatchStrategy interface {
	Name() string
	Match(ctx context.Context, candidate Candidate) (*recording.Recording, error)
}

// Match names the strategy that matched and the recording it found.
type Match struct {
	Strategy string
	Existing *recording.Recording
}

// Deduplicator evaluates strategies in order and short-circuits on the
// first hit. Order matters: exact identifiers before fuzzy correlation.
type Deduplicator struct {
	strategies []MatchStrategy
	logger     *slog.Logger
}

// New builds the standard strategy chain: provider id, session id, then
// fuzzy start/duration correlation within the given window.
func New(store Lookup, window time.Duration, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deduplicator{
		strategies: []MatchStrategy{
			&providerIDStrategy{store: store},
			&sessionIDStrategy{store: store},
			&fuzzyStrategy{store: store, window: window},
		},
		logger: logger.With(logging.String(logging.FieldComponent, "dedup")),
	}
}

// NewWithStrategies builds a deduplicator over an explicit strategy chain.
func NewWithStrategies(logger *slog.Logger, strategies ...MatchStrategy) *Deduplicator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Deduplicator{
		strategies: strategies,
		logger:     logger.With(logging.String(logging.FieldComponent, "dedup")),
	}
}

// FindDuplicate returns the first match across the strategy chain, or nil
// when the candidate is new.
func (d *Deduplicator) FindDuplicate(ctx context.Context, candidate Candidate) (*Match, error) {
	for _, strategy := range d.strategies {
		existing, err := strategy.Match(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("dedup strategy %s: %w", strategy.Name(), err)
		}
		if existing != nil {
			d.logger.Debug("duplicate detected",
				logging.String("strategy", strategy.Name()),
				logging.String(logging.FieldProviderID, candidate.ProviderID),
				logging.Int64(logging.FieldRecordingID, existing.ID))
			return &Match{Strategy: strategy.Name(), Existing: existing}, nil
		}
	}
	return nil, nil
}
