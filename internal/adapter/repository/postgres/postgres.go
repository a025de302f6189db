package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const checkViolationErrCode = "23514"

func isCheckViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == checkViolationErrCode
}

type mappingDB struct {
	Hash           string       `db:"hash"`
	OriginalURL    string       `db:"original_url"`
	ClickCount     int64        `db:"click_count"`
	CreatedAt      time.Time    `db:"created_at"`
	LastAccessedAt sql.NullTime `db:"last_accessed_at"`
}

func (m *mappingDB) toEntity() *entity.Mapping {
	mapping := &entity.Mapping{
		Hash:        m.Hash,
		OriginalURL: m.OriginalURL,
		ClickCount:  m.ClickCount,
		CreatedAt:   m.CreatedAt,
	}

	if m.LastAccessedAt.Valid {
		t := m.LastAccessedAt.Time
		mapping.LastAccessedAt = &t
	}

	return mapping
}

type MappingRepository struct {
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) Get(ctx context.Context, hash string) (*entity.Mapping, error) {
	const op = "adapter.repository.postgres.MappingRepository.Get"
	const query = `SELECT hash, original_url, click_count, created_at, last_accessed_at
		FROM url_mappings WHERE hash = $1`

	var m mappingDB

	if err := r.db.GetContext(ctx, &m, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from url_mappings table: %w", op, err)
	}

	return m.toEntity(), nil
}

func (r *MappingRepository) PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error) {
	const op = "adapter.repository.postgres.MappingRepository.PutIfAbsent"
	const query = `INSERT INTO url_mappings(hash, original_url, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, m.Hash, m.OriginalURL, m.CreatedAt)
	if err != nil {
		if isCheckViolationError(err) {
			return false, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
		}

		return false, fmt.Errorf("%s: failed to insert into url_mappings table: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	return rowsAffected == 1, nil
}

func (r *MappingRepository) IncrementClickCount(ctx context.Context, hash string) (int64, error) {
	const op = "adapter.repository.postgres.MappingRepository.IncrementClickCount"
	const query = `UPDATE url_mappings SET click_count = click_count + 1, last_accessed_at = now()
		WHERE hash = $1 RETURNING click_count`

	var count int64

	if err := r.db.GetContext(ctx, &count, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
		}

		return 0, fmt.Errorf("%s: failed to update url_mappings table row: %w", op, err)
	}

	return count, nil
}
