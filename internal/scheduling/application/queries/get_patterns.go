package queries

import (
	"context"
	"log/slog"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/google/uuid"
)

const (
	// DefaultLookbackDays is the history analyzed for patterns.
	DefaultLookbackDays = 30
	// DefaultPatternTTL bounds how long analyzed patterns are reused.
	DefaultPatternTTL = time.Hour
)

// OccurrenceSource lists a user's expanded calendar over a window.
type OccurrenceSource interface {
	Occurrences(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]calendarDomain.Event, error)
}

// GetPatternsQuery asks for a user's scheduling patterns.
type GetPatternsQuery struct {
	UserID       uuid.UUID
	Now          time.Time
	LookbackDays int
	// Refresh skips the cache.
	Refresh bool
}

// GetPatternsHandler analyzes recent history, caching the result.
type GetPatternsHandler struct {
	source   OccurrenceSource
	cache    domain.PatternCache
	fallback domain.UserPatterns
	ttl      time.Duration
	logger   *slog.Logger
}

// NewGetPatternsHandler creates a new GetPatternsHandler. fallback is used
// for users without history; cache may be nil.
func NewGetPatternsHandler(source OccurrenceSource, cache domain.PatternCache, fallback domain.UserPatterns, logger *slog.Logger) *GetPatternsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GetPatternsHandler{
		source:   source,
		cache:    cache,
		fallback: fallback,
		ttl:      DefaultPatternTTL,
		logger:   logger,
	}
}

// Handle executes the GetPatternsQuery.
func (h *GetPatternsHandler) Handle(ctx context.Context, query GetPatternsQuery) (domain.UserPatterns, error) {
	if h.cache != nil && !query.Refresh {
		cached, err := h.cache.Get(ctx, query.UserID)
		if err != nil {
			h.logger.WarnContext(ctx, "pattern cache read failed", "error", err)
		} else if cached != nil {
			return *cached, nil
		}
	}

	now := query.Now
	if now.IsZero() {
		now = time.Now()
	}
	lookback := query.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	history, err := h.source.Occurrences(ctx, query.UserID, now.AddDate(0, 0, -lookback), now)
	if err != nil {
		return domain.UserPatterns{}, err
	}

	patterns := h.fallback
	if len(history) > 0 {
		patterns = domain.AnalyzePatterns(history)
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, query.UserID, patterns, h.ttl); err != nil {
			h.logger.WarnContext(ctx, "pattern cache write failed", "error", err)
		}
	}
	return patterns, nil
}
