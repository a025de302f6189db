// Package memory provides a single-process mapping store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// MappingRepository keeps mappings in a map guarded by a mutex.
type MappingRepository struct {
	mu       sync.RWMutex
	mappings map[string]entity.Mapping
	now      func() time.Time
}

func NewMappingRepository() *MappingRepository {
	return &MappingRepository{
		mappings: make(map[string]entity.Mapping),
		now:      time.Now,
	}
}

func (r *MappingRepository) Get(_ context.Context, hash string) (*entity.Mapping, error) {
	const op = "adapter.repository.memory.MappingRepository.Get"

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[hash]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	return &m, nil
}

func (r *MappingRepository) PutIfAbsent(_ context.Context, m *entity.Mapping) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mappings[m.Hash]; ok {
		return false, nil
	}

	stored := *m
	stored.ClickCount = 0
	stored.LastAccessedAt = nil
	r.mappings[m.Hash] = stored

	return true, nil
}

func (r *MappingRepository) IncrementClickCount(_ context.Context, hash string) (int64, error) {
	const op = "adapter.repository.memory.MappingRepository.IncrementClickCount"

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[hash]
	if !ok {
		return 0, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	now := r.now().UTC()
	m.ClickCount++
	m.LastAccessedAt = &now
	r.mappings[hash] = m

	return m.ClickCount, nil
}
