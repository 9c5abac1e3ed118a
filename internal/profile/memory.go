package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// Get returns a copy of the stored profile
func (s *MemoryStore) Get(_ context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.FTP != nil {
		ftp := *p.FTP
		p.FTP = &ftp
	}
	return &p, nil
}

func (s *MemoryStore) Save(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.UpdatedAt = time.Now().UTC()
	stored := *p
	if p.FTP != nil {
		ftp := *p.FTP
		stored.FTP = &ftp
	}
	s.profiles[p.UserID] = stored
	return nil
}

func (s *MemoryStore) UpdateTrainingProfile(_ context.Context, userID string, tp TrainingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.profiles[userID]
	p.UserID = userID
	p.TrainingProfile = tp
	p.UpdatedAt = time.Now().UTC()
	s.profiles[userID] = p
	return nil
}

func (s *MemoryStore) Close(context.Context) error { return nil }
