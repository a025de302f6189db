package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/hash"
)

// ShortenResult is the record returned by Shorten.
type ShortenResult struct {
	Mapping  *entity.Mapping
	ShortURL string
	// AlreadyExists is true when the mapping was stored before this call.
	AlreadyExists bool
	// Collision is true when the stored mapping belongs to a different URL with the same hash.
	Collision bool
}

// Shortener maps URLs to hashes and persists the mappings.
type Shortener struct {
	store       Store
	recorder    Recorder
	shortDomain string
	now         func() time.Time
}

// NewShortener creates a Shortener. Short links are built as shortDomain + "/" + hash.
func NewShortener(store Store, shortDomain string, recorder Recorder) *Shortener {
	return &Shortener{
		store:       store,
		recorder:    recorder,
		shortDomain: strings.TrimRight(shortDomain, "/"),
		now:         time.Now,
	}
}

// Shorten returns the mapping for originalURL, creating it on first use.
// Shortening a known URL returns the stored record untouched.
func (s *Shortener) Shorten(ctx context.Context, originalURL string) (*ShortenResult, error) {
	const op = "service.Shortener.Shorten"

	if originalURL == "" {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrInvalidURL)
	}

	h := hash.Of(originalURL)

	m, err := s.store.Get(ctx, h)
	if err == nil {
		return s.existing(m, originalURL), nil
	}
	if !errors.Is(err, entity.ErrMappingNotFound) {
		return nil, fmt.Errorf("%s: failed to get mapping: %w", op, err)
	}

	m = &entity.Mapping{
		Hash:        h,
		OriginalURL: originalURL,
		CreatedAt:   s.now().UTC(),
	}

	inserted, err := s.store.PutIfAbsent(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to put mapping: %w", op, err)
	}

	if inserted {
		s.recorder.RecordShorten(true)

		return &ShortenResult{
			Mapping:  m,
			ShortURL: s.ShortURL(h),
		}, nil
	}

	// A concurrent shorten inserted first; report its record.
	m, err = s.store.Get(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get mapping after conflict: %w", op, err)
	}

	return s.existing(m, originalURL), nil
}

// ShortURL builds the public short link for hash.
func (s *Shortener) ShortURL(hash string) string {
	return s.shortDomain + "/" + hash
}

func (s *Shortener) existing(m *entity.Mapping, originalURL string) *ShortenResult {
	s.recorder.RecordShorten(false)

	collision := m.OriginalURL != originalURL
	if collision {
		s.recorder.RecordHashCollision()
	}

	return &ShortenResult{
		Mapping:       m,
		ShortURL:      s.ShortURL(m.Hash),
		AlreadyExists: true,
		Collision:     collision,
	}
}
