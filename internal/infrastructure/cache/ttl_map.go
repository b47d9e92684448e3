package cache

import (
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// ttlMap is a mutex-guarded map whose values expire. A background loop
// evicts expired keys so long-running processes do not grow without bound.
type ttlMap struct {
	mu        sync.Mutex
	entries   map[string]ttlEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type ttlEntry struct {
	value     string
	expiresAt time.Time
}

func newTTLMap() *ttlMap {
	m := &ttlMap{
		entries:  make(map[string]ttlEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	m.wg.Add(1)
	go m.cleanupLoop()
	return m
}

// setIfAbsent stores value unless a live entry exists
func (m *ttlMap) setIfAbsent(key, value string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	m.entries[key] = ttlEntry{value: value, expiresAt: now.Add(ttl)}
	return true
}

func (m *ttlMap) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// deleteIf removes key only while it is live and holds value
func (m *ttlMap) deleteIf(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || e.value != value || !m.now().Before(e.expiresAt) {
		return false
	}
	delete(m.entries, key)
	return true
}

func (m *ttlMap) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *ttlMap) close() {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
}

func (m *ttlMap) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *ttlMap) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
