package store

import (
	"context"
	"sync"
	"time"

	"github.com/telhawk-systems/mfa-sentinel/internal/models"
)

// MemoryStore is an in-memory Store for development mode and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	incidents map[string]*models.Incident
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		incidents: make(map[string]*models.Incident),
		now:       time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, inc *models.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *inc
	s.incidents[inc.IncidentID] = &copied
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inc, ok := s.incidents[id]
	if !ok || inc.Expired(s.now()) {
		return nil, ErrNotFound
	}
	copied := *inc
	return &copied, nil
}

func (s *MemoryStore) QueryOpen(ctx context.Context, scenario models.Scenario) ([]*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Incident
	for _, inc := range s.incidents {
		if inc.Scenario != scenario || inc.Status != models.StatusOpen || inc.Expired(s.now()) {
			continue
		}
		copied := *inc
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, id string, r *models.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inc, ok := s.incidents[id]
	if !ok || inc.Expired(s.now()) {
		return ErrNotFound
	}
	if inc.Status != models.StatusOpen {
		return ErrPreconditionFailed
	}
	inc.Resolve(r)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
