package cache

import (
	"context"
	"sync"
	"time"

	calendarDomain "github.com/felixgeelhaar/cadence/internal/calendar/domain"
	"github.com/felixgeelhaar/cadence/internal/scheduling/domain"
	"github.com/google/uuid"
)

// MemoryCorrectionStore is the in-process correction store used when Redis
// is not configured.
type MemoryCorrectionStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]calendarDomain.Corrections
}

// NewMemoryCorrectionStore creates an empty store.
func NewMemoryCorrectionStore() *MemoryCorrectionStore {
	return &MemoryCorrectionStore{data: make(map[uuid.UUID]calendarDomain.Corrections)}
}

// Load returns a copy of the user's corrections.
func (s *MemoryCorrectionStore) Load(_ context.Context, userID uuid.UUID) (calendarDomain.Corrections, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(calendarDomain.Corrections, len(s.data[userID]))
	for k, v := range s.data[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryCorrectionStore) Save(_ context.Context, userID uuid.UUID, normalizedTitle, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[userID] == nil {
		s.data[userID] = make(calendarDomain.Corrections)
	}
	s.data[userID][normalizedTitle] = category
	return nil
}

// MemoryDismissalStore is the in-process dismissal store.
type MemoryDismissalStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID]map[string]bool
}

// NewMemoryDismissalStore creates an empty store.
func NewMemoryDismissalStore() *MemoryDismissalStore {
	return &MemoryDismissalStore{data: make(map[uuid.UUID]map[string]bool)}
}

func (s *MemoryDismissalStore) Dismiss(_ context.Context, userID uuid.UUID, suggestionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[userID] == nil {
		s.data[userID] = make(map[string]bool)
	}
	s.data[userID][suggestionID] = true
	return nil
}

func (s *MemoryDismissalStore) Dismissed(_ context.Context, userID uuid.UUID) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.data[userID]))
	for k := range s.data[userID] {
		out[k] = true
	}
	return out, nil
}

type cachedPatterns struct {
	patterns  domain.UserPatterns
	expiresAt time.Time
}

// MemoryPatternCache is an in-process pattern cache with expiry.
type MemoryPatternCache struct {
	mu   sync.Mutex
	data map[uuid.UUID]cachedPatterns
	now  func() time.Time
}

// NewMemoryPatternCache creates an empty cache.
func NewMemoryPatternCache() *MemoryPatternCache {
	return &MemoryPatternCache{data: make(map[uuid.UUID]cachedPatterns), now: time.Now}
}

func (c *MemoryPatternCache) Get(_ context.Context, userID uuid.UUID) (*domain.UserPatterns, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[userID]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.data, userID)
		return nil, nil
	}
	p := entry.patterns
	return &p, nil
}

func (c *MemoryPatternCache) Set(_ context.Context, userID uuid.UUID, patterns domain.UserPatterns, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cachedPatterns{patterns: patterns}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.data[userID] = entry
	return nil
}

func (c *MemoryPatternCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, userID)
	return nil
}

var (
	_ calendarDomain.CorrectionStore = (*MemoryCorrectionStore)(nil)
	_ calendarDomain.CorrectionStore = (*RedisCorrectionStore)(nil)
	_ domain.DismissalStore          = (*MemoryDismissalStore)(nil)
	_ domain.DismissalStore          = (*RedisDismissalStore)(nil)
	_ domain.PatternCache            = (*MemoryPatternCache)(nil)
	_ domain.PatternCache            = (*RedisPatternCache)(nil)
)
