package audit

import (
	"sync"

	models "spendsense/database/models_pkg"
)

// MemoryStore is an in-memory TraceStore for tests and embedders that run
// the engine without PostgreSQL. Same append-only contract as Repository.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[string][]models.AuditRecord
}

// NewMemoryStore creates an empty in-memory trace store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		records: make(map[string][]models.AuditRecord),
	}
}

// Append stores a copy of the record under its user ID.
func (m *MemoryStore) Append(record *models.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *record
	stored.ID = m.nextID
	m.nextID++
	m.records[stored.UserID] = append(m.records[stored.UserID], stored)
	record.ID = stored.ID
	return nil
}

// ReadAllForUser returns copies of the user's records in append order.
func (m *MemoryStore) ReadAllForUser(userID string) ([]models.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.records[userID]
	out := make([]models.AuditRecord, len(stored))
	copy(out, stored)
	return out, nil
}
