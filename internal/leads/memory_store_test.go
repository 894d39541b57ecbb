package leads

import (
	"context"
	"sync"
)

// memoryStore is an in-process Store for tests.
type memoryStore struct {
	mu    sync.Mutex
	leads []Lead
}

func newMemoryStore() *memoryStore { return &memoryStore{} }

func (m *memoryStore) Append(ctx context.Context, lead Lead) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.leads = append(m.leads, lead)
	m.mu.Unlock()
	return nil
}

// list returns stored leads in append order.
func (m *memoryStore) list() []Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Lead(nil), m.leads...)
}

func (m *memoryStore) find(id string) (Lead, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.LeadID == id {
			return lead, true
		}
	}
	return Lead{}, false
}
