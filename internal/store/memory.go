package store

import (
	"context"
	"sort"
	"sync"

	"cvbuilder/internal/resume"
)

// MemoryStore 是进程内实现，用于测试与 memory 驱动；读写都复制文档。
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*resume.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*resume.Document)}
}

func (m *MemoryStore) Create(_ context.Context, doc *resume.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, ownerID uint, id string) (*resume.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok || d.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (m *MemoryStore) ListByOwner(_ context.Context, ownerID uint) ([]*resume.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*resume.Document, 0)
	for _, d := range m.docs {
		if d.OwnerID == ownerID {
			out = append(out, d.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *MemoryStore) Swap(_ context.Context, next *resume.Document, prevVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[next.ID]
	if !ok || cur.OwnerID != next.OwnerID {
		return ErrNotFound
	}
	if cur.Version != prevVersion {
		return ErrVersionMismatch
	}
	m.docs[next.ID] = next.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, ownerID uint, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.docs, id)
	return nil
}
