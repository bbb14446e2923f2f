// Package results holds each owner's current analysis in memory. A new
// submission replaces the previous one wholesale; entries expire after a
// TTL so abandoned sessions do not pin memory.
package results

import (
	"sync"
	"time"

	"github.com/terravue/terravue/internal/analysis"
)

// Sentinel errors for result store operations
var (
	ErrNoResult      = storeError("no analysis result for this session")
	ErrResultExpired = storeError("analysis result expired")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}

// entry holds an owner's result with its view state and expiration time
type entry struct {
	result    *analysis.Result
	view      analysis.ViewState
	expiresAt time.Time
}

// Store implements per-owner result storage in memory with TTL. This is
// suitable for single-instance deployments. For distributed deployments,
// use Redis or another shared storage backend.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	ttl      time.Duration
	stopChan chan struct{}
}

// NewStore creates a new in-memory result store.
// ttl specifies how long results are kept before expiration.
// cleanupInterval specifies how often to run the cleanup routine.
func NewStore(ttl time.Duration, cleanupInterval time.Duration) *Store {
	store := &Store{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	// Start background cleanup goroutine
	go store.cleanupLoop(cleanupInterval)

	return store
}

// Put stores an owner's result, replacing any previous one and resetting
// the table view to its defaults.
func (s *Store) Put(owner string, result *analysis.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[owner] = &entry{
		result:    result,
		view:      analysis.ViewState{Page: 1},
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Current returns the owner's result and table view state.
func (s *Store) Current(owner string) (*analysis.Result, analysis.ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.live(owner)
	if err != nil {
		return nil, analysis.ViewState{}, err
	}
	return e.result, e.view, nil
}

// ByID returns the owner's result only when its ID matches. Any other ID,
// including one belonging to a different owner, reads as not found.
func (s *Store) ByID(owner, id string) (*analysis.Result, analysis.ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.live(owner)
	if err != nil {
		return nil, analysis.ViewState{}, err
	}
	if e.result.ID != id {
		return nil, analysis.ViewState{}, ErrNoResult
	}
	return e.result, e.view, nil
}

// ToggleSort applies a sort key to the owner's view: a new key sorts
// ascending, the current key flips direction. The page is kept.
func (s *Store) ToggleSort(owner, key string) (*analysis.Result, analysis.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(owner)
	if err != nil {
		return nil, analysis.ViewState{}, err
	}

	next := analysis.ToggleSort(e.view.Sort, key)
	e.view.Sort = &next
	return e.result, e.view, nil
}

// SetPage moves the owner's view to a page, clamped to the valid range.
func (s *Store) SetPage(owner string, page int) (*analysis.Result, analysis.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.live(owner)
	if err != nil {
		return nil, analysis.ViewState{}, err
	}

	total := analysis.TotalPages(len(e.result.Rows))
	e.view.Page = analysis.ClampPage(page, total)
	return e.result, e.view, nil
}

// Delete removes an owner's result.
func (s *Store) Delete(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, owner)
}

// Stop stops the background cleanup goroutine.
func (s *Store) Stop() {
	close(s.stopChan)
}

// live returns the owner's entry if present and unexpired. Callers hold at
// least a read lock.
func (s *Store) live(owner string) (*entry, error) {
	e, exists := s.entries[owner]
	if !exists {
		return nil, ErrNoResult
	}
	if time.Now().After(e.expiresAt) {
		return nil, ErrResultExpired
	}
	return e, nil
}

// cleanupLoop periodically removes expired entries.
func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

// cleanup removes all expired entries.
func (s *Store) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for owner, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, owner)
		}
	}
}

// Stats returns statistics about the result store.
func (s *Store) Stats() (count int, oldestAge time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count = len(s.entries)
	if count == 0 {
		return 0, 0
	}

	var oldest time.Time
	now := time.Now()
	for _, e := range s.entries {
		created := e.expiresAt.Add(-s.ttl)
		if oldest.IsZero() || created.Before(oldest) {
			oldest = created
		}
	}

	return count, now.Sub(oldest)
}
