package fx

import (
	"iter"
	"sync"

	"github.com/etnz/stocktracker/date"
)

// MemoryStore is a Store kept in memory.
type MemoryStore struct {
	mu    sync.Mutex
	live  *Snapshot
	dated map[date.Date]*Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{dated: make(map[date.Date]*Snapshot)}
}

func (m *MemoryStore) LiveSnapshot() (*Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live, m.live != nil
}

func (m *MemoryStore) SaveLiveSnapshot(s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = s
	return nil
}

func (m *MemoryStore) Snapshot(on date.Date) (*Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.dated[on]
	return s, ok
}

func (m *MemoryStore) SaveSnapshot(on date.Date, s *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dated[on] = s
	return nil
}

// Snapshots iterates over a copy of the dated snapshots.
func (m *MemoryStore) Snapshots() iter.Seq2[date.Date, *Snapshot] {
	m.mu.Lock()
	copied := make(map[date.Date]*Snapshot, len(m.dated))
	for k, v := range m.dated {
		copied[k] = v
	}
	m.mu.Unlock()
	return func(yield func(date.Date, *Snapshot) bool) {
		for k, v := range copied {
			if !yield(k, v) {
				return
			}
		}
	}
}
