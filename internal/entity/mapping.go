// Package entity defines the entities and errors shared by the shortener and resolver.
// It includes the Mapping struct, which binds a short hash to the URL it was derived from,
// along with the sentinel errors returned by stores and services.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrMappingNotFound is returned when no mapping is stored under the requested hash.
	ErrMappingNotFound = errors.New("url not found")
	// ErrInvalidURL is returned when the URL to shorten is empty.
	ErrInvalidURL = errors.New("url is required")
	// ErrInvalidHash is returned when a hash is empty or is not 8 lowercase hexadecimal characters.
	ErrInvalidHash = errors.New("invalid hash format")
)

// Mapping is the persisted association of a hash with its original URL.
type Mapping struct {
	Hash           string     // Hash is the 8-character identifier derived from OriginalURL.
	OriginalURL    string     // OriginalURL is the URL the hash resolves to. Never changes once stored.
	ClickCount     int64      // ClickCount is the number of successful resolves.
	CreatedAt      time.Time  // CreatedAt is set once, on first insertion.
	LastAccessedAt *time.Time // LastAccessedAt is the time of the latest resolve, nil if never resolved.
}
