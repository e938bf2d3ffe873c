package vapi

import (
	"context"
	"sync"
	"time"

	"github.com/xiaot623/assistdesk/internal/domain"
)

// DefaultCacheTTL is how long a cached assistant list stays fresh.
const DefaultCacheTTL = 5 * time.Minute

type assistantLister interface {
	ListAssistants(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error)
}

type cacheEntry struct {
	items     []domain.AssistantConfig
	fetchedAt time.Time
}

// CachedAssistants keeps assistant list results for a fixed TTL. Callers
// invalidate it after every assistant mutation.
type CachedAssistants struct {
	source assistantLister
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
	// gen changes on every Invalidate; fetches started under an older gen
	// are not stored.
	gen uint64
}

// NewCachedAssistants wraps source with a TTL cache. A non-positive ttl
// uses DefaultCacheTTL.
func NewCachedAssistants(source assistantLister, ttl time.Duration) *CachedAssistants {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedAssistants{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// List returns a cached result for filter when fresh, otherwise fetches it.
// Failed fetches are not cached.
func (c *CachedAssistants) List(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error) {
	key := filter.Values().Encode()

	c.mu.Lock()
	entry, ok := c.entries[key]
	gen := c.gen
	c.mu.Unlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return append([]domain.AssistantConfig(nil), entry.items...), nil
	}

	items, err := c.source.ListAssistants(ctx, filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.entries[key] = cacheEntry{items: items, fetchedAt: c.now()}
	}
	c.mu.Unlock()

	return append([]domain.AssistantConfig(nil), items...), nil
}

// Invalidate drops every cached result.
func (c *CachedAssistants) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.gen++
	c.mu.Unlock()
}
