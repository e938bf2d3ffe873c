package vapi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xiaot623/assistdesk/internal/domain"
)

type countingLister struct {
	calls int
	err   error
}

func (l *countingLister) ListAssistants(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return []domain.AssistantConfig{{ID: domain.Ptr("a1")}}, nil
}

func TestCachedAssistantsTTL(t *testing.T) {
	source := &countingLister{}
	cache := NewCachedAssistants(source, time.Minute)
	now := time.Unix(1000, 0)
	cache.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cache.List(ctx, ListFilter{}); err != nil {
			t.Fatalf("list failed: %v", err)
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", source.calls)
	}

	if _, err := cache.List(ctx, ListFilter{Limit: 5}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected distinct filter to fetch, got %d", source.calls)
	}

	now = now.Add(2 * time.Minute)
	cache.List(ctx, ListFilter{})
	if source.calls != 3 {
		t.Fatalf("expected expiry to refetch, got %d", source.calls)
	}
}

func TestCachedAssistantsInvalidate(t *testing.T) {
	source := &countingLister{}
	cache := NewCachedAssistants(source, time.Hour)
	ctx := context.Background()

	cache.List(ctx, ListFilter{})
	cache.Invalidate()
	cache.List(ctx, ListFilter{})
	if source.calls != 2 {
		t.Fatalf("expected invalidate to force refetch, got %d", source.calls)
	}
}

func TestCachedAssistantsDoesNotCacheErrors(t *testing.T) {
	source := &countingLister{err: errors.New("boom")}
	cache := NewCachedAssistants(source, time.Hour)
	ctx := context.Background()

	if _, err := cache.List(ctx, ListFilter{}); err == nil {
		t.Fatalf("expected error")
	}
	source.err = nil
	if _, err := cache.List(ctx, ListFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected 2 fetches, got %d", source.calls)
	}
}

// gatedLister snapshots the name on entry and blocks the first fetch until
// release is closed.
type gatedLister struct {
	mu      sync.Mutex
	name    string
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLister) ListAssistants(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error) {
	l.mu.Lock()
	l.calls++
	first := l.calls == 1
	name := l.name
	l.mu.Unlock()

	if first {
		close(l.entered)
		<-l.release
	}
	return []domain.AssistantConfig{{ID: domain.Ptr("a1"), Name: domain.Ptr(name)}}, nil
}

func (l *gatedLister) setName(name string) {
	l.mu.Lock()
	l.name = name
	l.mu.Unlock()
}

func TestCachedAssistantsInvalidateDuringFetch(t *testing.T) {
	source := &gatedLister{name: "old", entered: make(chan struct{}), release: make(chan struct{})}
	cache := NewCachedAssistants(source, time.Hour)
	ctx := context.Background()

	fetched := make(chan error, 1)
	go func() {
		_, err := cache.List(ctx, ListFilter{})
		fetched <- err
	}()

	<-source.entered
	source.setName("new")
	cache.Invalidate()
	close(source.release)
	if err := <-fetched; err != nil {
		t.Fatalf("list failed: %v", err)
	}

	items, err := cache.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 1 || domain.Value(items[0].Name) != "new" {
		t.Fatalf("expected list fetched after invalidate, got %+v", items)
	}
}
