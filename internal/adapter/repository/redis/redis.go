// Package redis stores mappings as Redis hashes under "url:<hash>".
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const (
	keyPrefix = "url:"

	fieldOriginalURL    = "original_url"
	fieldClickCount     = "click_count"
	fieldCreatedAt      = "created_at"
	fieldLastAccessedAt = "last_accessed_at"
)

// putIfAbsentScript creates the hash only when the key does not exist.
var putIfAbsentScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'original_url', ARGV[1], 'click_count', '0', 'created_at', ARGV[2])
return 1
`)

// incrementScript returns -1 when the key does not exist.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
redis.call('HSET', KEYS[1], 'last_accessed_at', ARGV[1])
return redis.call('HINCRBY', KEYS[1], 'click_count', 1)
`)

func key(hash string) string {
	return keyPrefix + hash
}

type MappingRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewMappingRepository(client *redis.Client) *MappingRepository {
	return &MappingRepository{
		client: client,
		now:    time.Now,
	}
}

func (r *MappingRepository) Get(ctx context.Context, hash string) (*entity.Mapping, error) {
	const op = "adapter.repository.redis.MappingRepository.Get"

	fields, err := r.client.HGetAll(ctx, key(hash)).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get hash: %w", op, err)
	}

	if len(fields) == 0 {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	m, err := toEntity(hash, fields)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to decode hash: %w", op, err)
	}

	return m, nil
}

func (r *MappingRepository) PutIfAbsent(ctx context.Context, m *entity.Mapping) (bool, error) {
	const op = "adapter.repository.redis.MappingRepository.PutIfAbsent"

	createdAt := m.CreatedAt.UTC().Format(time.RFC3339Nano)

	inserted, err := putIfAbsentScript.Run(ctx, r.client, []string{key(m.Hash)}, m.OriginalURL, createdAt).Int64()
	if err != nil {
		return false, fmt.Errorf("%s: failed to run script: %w", op, err)
	}

	return inserted == 1, nil
}

func (r *MappingRepository) IncrementClickCount(ctx context.Context, hash string) (int64, error) {
	const op = "adapter.repository.redis.MappingRepository.IncrementClickCount"

	now := r.now().UTC().Format(time.RFC3339Nano)

	count, err := incrementScript.Run(ctx, r.client, []string{key(hash)}, now).Int64()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to run script: %w", op, err)
	}

	if count < 0 {
		return 0, fmt.Errorf("%s: %w", op, entity.ErrMappingNotFound)
	}

	return count, nil
}

func toEntity(hash string, fields map[string]string) (*entity.Mapping, error) {
	m := &entity.Mapping{
		Hash:        hash,
		OriginalURL: fields[fieldOriginalURL],
	}

	if v, ok := fields[fieldClickCount]; ok {
		count, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldClickCount, err)
		}
		m.ClickCount = count
	}

	if v, ok := fields[fieldCreatedAt]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldCreatedAt, err)
		}
		m.CreatedAt = t
	}

	if v, ok := fields[fieldLastAccessedAt]; ok {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", fieldLastAccessedAt, err)
		}
		m.LastAccessedAt = &t
	}

	return m, nil
}
