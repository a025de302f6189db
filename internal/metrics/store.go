package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// Store mirrors service.Store so the decorator can wrap any backend.
type Store interface {
	Get(ctx context.Context, hash string) (*entity.Mapping, error)
	PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error)
	IncrementClickCount(ctx context.Context, hash string) (int64, error)
}

// InstrumentedStore records latency and failures of every call to the wrapped Store.
type InstrumentedStore struct {
	next Store
}

// NewInstrumentedStore wraps next.
func NewInstrumentedStore(next Store) *InstrumentedStore {
	return &InstrumentedStore{next: next}
}

func (s *InstrumentedStore) Get(ctx context.Context, hash string) (*entity.Mapping, error) {
	defer observe("get", time.Now())

	m, err := s.next.Get(ctx, hash)
	countError("get", err)

	return m, err
}

func (s *InstrumentedStore) PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error) {
	defer observe("put_if_absent", time.Now())

	inserted, err := s.next.PutIfAbsent(ctx, m)
	countError("put_if_absent", err)

	return inserted, err
}

func (s *InstrumentedStore) IncrementClickCount(ctx context.Context, hash string) (int64, error) {
	defer observe("increment_click_count", time.Now())

	count, err := s.next.IncrementClickCount(ctx, hash)
	countError("increment_click_count", err)

	return count, err
}

func observe(operation string, start time.Time) {
	StoreOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func countError(operation string, err error) {
	if err != nil && !errors.Is(err, entity.ErrMappingNotFound) {
		StoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}
