// Package service implements the shortener and resolver operations.
// Both are stateless: the Store and Recorder passed to their constructors are the only shared state.
package service

import (
	"context"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// Store defines the persistence contract the services depend on.
type Store interface {
	// Get returns the mapping stored under hash.
	// Returns entity.ErrMappingNotFound if there is none.
	Get(ctx context.Context, hash string) (*entity.Mapping, error)

	// PutIfAbsent stores m unless a mapping with the same hash already exists.
	// Reports whether m was inserted. An existing mapping is never modified.
	PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error)

	// IncrementClickCount atomically adds one to the click count of hash and returns the new value.
	// Returns entity.ErrMappingNotFound if there is no mapping for hash.
	IncrementClickCount(ctx context.Context, hash string) (int64, error)
}

// Recorder receives service-level events for metrics.
type Recorder interface {
	RecordShorten(created bool)
	RecordResolve(outcome string)
	RecordHashCollision()
}
