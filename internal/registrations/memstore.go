package registrations

import (
	"context"
	"sort"
	"sync"

	"github.com/aura-events/registration-service/internal/models"
)

// MemoryStore is an in-process Store. Rows are copied on the way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]models.Registration
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]models.Registration)}
}

func (m *MemoryStore) FindByID(_ context.Context, id int64) (*models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reg, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return cloneRegistration(reg), nil
}

func (m *MemoryStore) FindByEventAndUser(_ context.Context, eventID, userID int64) (*models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, reg := range m.sortedLocked() {
		if reg.EventID == eventID && reg.UserID != nil && *reg.UserID == userID {
			return cloneRegistration(reg), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindEarliestByStatus(_ context.Context, status models.Status, eventID *int64) (*models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, reg := range m.sortedLocked() {
		if reg.Status != status {
			continue
		}
		if eventID != nil && reg.EventID != *eventID {
			continue
		}
		return cloneRegistration(reg), nil
	}
	return nil, nil
}

func (m *MemoryStore) CountByUser(_ context.Context, userID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, reg := range m.rows {
		if reg.UserID != nil && *reg.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CountByEventAndStatuses(_ context.Context, eventID int64, statuses []models.Status) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in := statusSet(statuses)
	n := 0
	for _, reg := range m.rows {
		if _, ok := in[reg.Status]; ok && reg.EventID == eventID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListByEvent(_ context.Context, eventID int64, page Page) ([]models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []models.Registration
	for _, reg := range m.sortedLocked() {
		if reg.EventID == eventID {
			matched = append(matched, reg)
		}
	}
	start := page.Offset()
	if start < 0 || start >= len(matched) {
		return nil, nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}
	return cloneAll(matched[start:end]), nil
}

func (m *MemoryStore) ListByEventAndStatuses(_ context.Context, eventID int64, statuses []models.Status) ([]models.Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in := statusSet(statuses)
	var matched []models.Registration
	for _, reg := range m.sortedLocked() {
		if _, ok := in[reg.Status]; ok && reg.EventID == eventID {
			matched = append(matched, reg)
		}
	}
	return cloneAll(matched), nil
}

func (m *MemoryStore) CountGroupedByStatus(_ context.Context, eventID int64) (map[models.Status]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[models.Status]int64)
	for _, reg := range m.rows {
		if reg.EventID == eventID {
			out[reg.Status]++
		}
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, reg *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg.ID == 0 {
		m.nextID++
		reg.ID = m.nextID
	}
	m.rows[reg.ID] = *cloneRegistration(*reg)
	return nil
}

func (m *MemoryStore) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

// sortedLocked returns rows ordered by created_at, then id. Caller holds mu.
func (m *MemoryStore) sortedLocked() []models.Registration {
	out := make([]models.Registration, 0, len(m.rows))
	for _, reg := range m.rows {
		out = append(out, reg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func statusSet(statuses []models.Status) map[models.Status]struct{} {
	in := make(map[models.Status]struct{}, len(statuses))
	for _, st := range statuses {
		in[st] = struct{}{}
	}
	return in
}

func cloneRegistration(reg models.Registration) *models.Registration {
	if reg.UserID != nil {
		uid := *reg.UserID
		reg.UserID = &uid
	}
	return &reg
}

func cloneAll(regs []models.Registration) []models.Registration {
	out := make([]models.Registration, 0, len(regs))
	for _, reg := range regs {
		out = append(out, *cloneRegistration(reg))
	}
	return out
}
