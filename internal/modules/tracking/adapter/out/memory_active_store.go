package out

import (
	"context"
	"sync"

	"lingobot/internal/modules/tracking/domain"
	trackingout "lingobot/internal/modules/tracking/port/out"
	apperrors "lingobot/internal/platform/errors"
)

// MemoryActiveStore keeps the open session per user in process memory. An
// interval that never reaches Close dies with the process; recovering it
// would need a write-ahead log, which tracking deliberately does not have.
type MemoryActiveStore struct {
	mu     sync.Mutex
	active map[string]domain.Active
}

func NewMemoryActiveStore() trackingout.ActiveStore {
	return &MemoryActiveStore{active: map[string]domain.Active{}}
}

func (s *MemoryActiveStore) Open(_ context.Context, active domain.Active) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[active.UserID]; ok {
		return apperrors.ErrActiveSessionExists
	}
	s.active[active.UserID] = active
	return nil
}

func (s *MemoryActiveStore) Get(_ context.Context, userID string) (domain.Active, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, ok := s.active[userID]
	if !ok {
		return domain.Active{}, apperrors.ErrNoActiveSession
	}
	return active, nil
}

func (s *MemoryActiveStore) Close(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.active[userID]; !ok {
		return apperrors.ErrNoActiveSession
	}
	delete(s.active, userID)
	return nil
}
