package attendance

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store used in tests.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records []Record
	index   map[string]int // participant|date -> position in records
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func memoryKey(participantID, date string) string {
	return participantID + "|" + date
}

func (m *MemoryStore) Insert(_ context.Context, rec Record) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memoryKey(rec.ParticipantID, rec.Date)
	if pos, ok := m.index[key]; ok {
		return m.records[pos], false, nil
	}
	m.nextID++
	rec.ID = m.nextID
	m.index[key] = len(m.records)
	m.records = append(m.records, rec)
	return rec, true, nil
}

func (m *MemoryStore) ListByDate(_ context.Context, date string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for _, r := range m.records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time > out[j].Time
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) ListAll(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...), nil
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *MemoryStore) DeleteByDate(_ context.Context, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0:0]
	var n int64
	for _, r := range m.records {
		if r.Date == date {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.reset(kept)
	return n, nil
}

func (m *MemoryStore) DeleteAll(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.records))
	m.reset(nil)
	return n, nil
}

// reset replaces the records and rebuilds the index. nextID is kept so ids
// are never reused.
func (m *MemoryStore) reset(records []Record) {
	m.records = records
	m.index = make(map[string]int, len(records))
	for i, r := range records {
		m.index[memoryKey(r.ParticipantID, r.Date)] = i
	}
}
