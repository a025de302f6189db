//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlink/internal/entity"

	pgpkg "github.com/vadimbarashkov/shortlink/pkg/postgres"
)

const migrationsPath = "file://../../../../migrations"

func setupPostgres(t testing.TB) string {
	t.Helper()

	ctx := context.Background()

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "shortlink",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return fmt.Sprintf("postgres://test:test@%s:%d/shortlink?sslmode=disable", host, port.Int())
}

func setupMappingRepository(t testing.TB) (*postgres.MappingRepository, *sqlx.DB) {
	t.Helper()

	dsn := setupPostgres(t)

	if err := pgpkg.RunMigrations(migrationsPath, dsn); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		if err := pgpkg.RollbackMigrations(migrationsPath, dsn); err != nil {
			t.Errorf("Failed to rollback migrations: %v", err)
		}
	})

	db, err := pgpkg.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return postgres.NewMappingRepository(db), db
}

func TestMappingRepository_Integration(t *testing.T) {
	repo, db := setupMappingRepository(t)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		_, err := repo.Get(ctx, "00000000")
		assert.ErrorIs(t, err, entity.ErrMappingNotFound)

		_, err = repo.IncrementClickCount(ctx, "00000000")
		assert.ErrorIs(t, err, entity.ErrMappingNotFound)
	})

	t.Run("put if absent keeps first record", func(t *testing.T) {
		createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		inserted, err := repo.PutIfAbsent(ctx, &entity.Mapping{Hash: "aaaaaaaa", OriginalURL: "https://example.com/1", CreatedAt: createdAt})
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = repo.PutIfAbsent(ctx, &entity.Mapping{Hash: "aaaaaaaa", OriginalURL: "https://example.com/1", CreatedAt: createdAt.Add(time.Hour)})
		require.NoError(t, err)
		assert.False(t, inserted)

		m, err := repo.Get(ctx, "aaaaaaaa")
		require.NoError(t, err)
		assert.True(t, createdAt.Equal(m.CreatedAt))
		assert.Zero(t, m.ClickCount)
		assert.Nil(t, m.LastAccessedAt)
	})

	t.Run("empty url rejected", func(t *testing.T) {
		_, err := repo.PutIfAbsent(ctx, &entity.Mapping{Hash: "cccccccc", CreatedAt: time.Now()})
		assert.ErrorIs(t, err, entity.ErrInvalidURL)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		const n = 50

		_, err := repo.PutIfAbsent(ctx, &entity.Mapping{Hash: "bbbbbbbb", OriginalURL: "https://example.com/2", CreatedAt: time.Now()})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				_, err := repo.IncrementClickCount(ctx, "bbbbbbbb")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		var count int64
		require.NoError(t, db.GetContext(ctx, &count, `SELECT click_count FROM url_mappings WHERE hash = $1`, "bbbbbbbb"))
		assert.Equal(t, int64(n), count)

		m, err := repo.Get(ctx, "bbbbbbbb")
		require.NoError(t, err)
		assert.NotNil(t, m.LastAccessedAt)
	})
}

func TestMigrations_Integration(t *testing.T) {
	dsn := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, pgpkg.RunMigrations(migrationsPath, dsn))

	db, err := pgpkg.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	var exists bool
	require.NoError(t, db.GetContext(ctx, &exists, `SELECT to_regclass('public.url_mappings') IS NOT NULL`))
	assert.True(t, exists)

	require.NoError(t, pgpkg.RollbackMigrations(migrationsPath, dsn))

	require.NoError(t, db.GetContext(ctx, &exists, `SELECT to_regclass('public.url_mappings') IS NOT NULL`))
	assert.False(t, exists)

	require.NoError(t, pgpkg.RollbackMigrations(migrationsPath, dsn))
}
