// internal/pkg/session/memory_store.go
package session

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*memoryRecord
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		records: make(map[string]*memoryRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, sid string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.live(sid)
	out := make(map[string]string)
	if rec == nil {
		return out, nil
	}
	for k, v := range rec.values {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, sid string, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.live(sid)
	if rec == nil {
		rec = &memoryRecord{values: make(map[string]string, len(values))}
		m.records[sid] = rec
	}
	for k, v := range values {
		rec.values[k] = v
	}
	rec.expiresAt = m.now().Add(m.ttl)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, sid string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.live(sid)
	if rec == nil {
		return nil
	}
	for _, k := range keys {
		delete(rec.values, k)
	}
	if len(rec.values) == 0 {
		delete(m.records, sid)
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, sid)
	return nil
}

// Len returns the number of live records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sid := range m.records {
		if m.live(sid) != nil {
			n++
		}
	}
	return n
}

// live returns the record for sid, dropping it first if it has expired.
// Caller holds m.mu.
func (m *MemoryStore) live(sid string) *memoryRecord {
	rec, ok := m.records[sid]
	if !ok {
		return nil
	}
	if !m.now().Before(rec.expiresAt) {
		delete(m.records, sid)
		return nil
	}
	return rec
}
