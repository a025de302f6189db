package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

type MockStore struct {
	mock.Mock
}

func (s *MockStore) Get(ctx context.Context, hash string) (*entity.Mapping, error) {
	args := s.Called(ctx, hash)
	m, _ := args.Get(0).(*entity.Mapping)
	return m, args.Error(1)
}

func (s *MockStore) PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error) {
	args := s.Called(ctx, m)
	return args.Bool(0), args.Error(1)
}

func (s *MockStore) IncrementClickCount(ctx context.Context, hash string) (int64, error) {
	args := s.Called(ctx, hash)
	return args.Get(0).(int64), args.Error(1)
}

func TestInstrumentedStore(t *testing.T) {
	t.Run("passes results through", func(t *testing.T) {
		next := new(MockStore)
		store := NewInstrumentedStore(next)

		want := &entity.Mapping{Hash: "deadbeef", OriginalURL: "https://example.com"}
		next.On("Get", mock.Anything, "deadbeef").Once().Return(want, nil)
		next.On("PutIfAbsent", mock.Anything, want).Once().Return(true, nil)
		next.On("IncrementClickCount", mock.Anything, "deadbeef").Once().Return(int64(3), nil)

		m, err := store.Get(context.Background(), "deadbeef")
		assert.NoError(t, err)
		assert.Equal(t, want, m)

		inserted, err := store.PutIfAbsent(context.Background(), want)
		assert.NoError(t, err)
		assert.True(t, inserted)

		count, err := store.IncrementClickCount(context.Background(), "deadbeef")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), count)

		next.AssertExpectations(t)
	})

	t.Run("not found is not a store error", func(t *testing.T) {
		next := new(MockStore)
		store := NewInstrumentedStore(next)

		before := testutil.ToFloat64(StoreErrorsTotal.WithLabelValues("get"))

		next.On("Get", mock.Anything, "deadbeef").Once().Return(nil, entity.ErrMappingNotFound)

		_, err := store.Get(context.Background(), "deadbeef")

		assert.ErrorIs(t, err, entity.ErrMappingNotFound)
		assert.Equal(t, before, testutil.ToFloat64(StoreErrorsTotal.WithLabelValues("get")))
	})

	t.Run("failures are counted", func(t *testing.T) {
		next := new(MockStore)
		store := NewInstrumentedStore(next)

		before := testutil.ToFloat64(StoreErrorsTotal.WithLabelValues("increment_click_count"))

		next.On("IncrementClickCount", mock.Anything, "deadbeef").Once().Return(int64(0), errors.New("connection refused"))

		_, err := store.IncrementClickCount(context.Background(), "deadbeef")

		assert.Error(t, err)
		assert.Equal(t, before+1, testutil.ToFloat64(StoreErrorsTotal.WithLabelValues("increment_click_count")))
	})
}
