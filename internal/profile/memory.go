package profile

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-process Repository for tests and ephemeral runs.
type MemoryRepository struct {
	mu       sync.Mutex
	profiles map[string]UserProfile
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{profiles: make(map[string]UserProfile)}
}

func (r *MemoryRepository) LoadOrCreate(_ context.Context, externalID, firstName string) (*UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[externalID]; ok {
		cp := p
		cp.History = append([]Turn(nil), p.History...)
		return &cp, nil
	}
	p := New(externalID, firstName)
	r.profiles[externalID] = *p
	return p, nil
}

func (r *MemoryRepository) Save(_ context.Context, p *UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.UpdatedAt = time.Now()
	cp := *p
	cp.History = append([]Turn(nil), p.History...)
	r.profiles[p.ExternalID] = cp
	return nil
}

// Len reports the number of stored profiles.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.profiles)
}
