package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	rec = prepare(rec, m.now())
	rec.ID = uuid.NewString()

	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return clone(rec), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, len(m.records))
	for i, rec := range m.records {
		out[i] = clone(rec)
	}
	return out, nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func clone(rec Record) Record {
	rec.Tools = append([]string{}, rec.Tools...)
	return rec
}

var _ Store = (*MemoryStore)(nil)
