package cache

import (
	"sync"
	"time"
)

// expiringSet is a mutex-guarded map of keys to values with deadlines.
// A background loop evicts expired keys until stop is called.
type expiringSet struct {
	mu      sync.Mutex
	entries map[string]expiringEntry
	now     func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type expiringEntry struct {
	value     string
	expiresAt time.Time
}

func newExpiringSet(sweep time.Duration) *expiringSet {
	s := &expiringSet{
		entries: make(map[string]expiringEntry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	if sweep > 0 {
		s.wg.Add(1)
		go s.sweepLoop(sweep)
	}
	return s
}

// putIfAbsent stores value under key unless a live entry exists
func (s *expiringSet) putIfAbsent(key, value string, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	s.entries[key] = expiringEntry{value: value, expiresAt: now.Add(ttl)}
	return true
}

// deleteIf removes key only when it still holds value
func (s *expiringSet) deleteIf(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.value != value {
		return false
	}
	delete(s.entries, key)
	return true
}

func (s *expiringSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *expiringSet) evict() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

func (s *expiringSet) sweepLoop(every time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evict()
		}
	}
}

func (s *expiringSet) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}
