// Package hash derives short identifiers from URLs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Length is the number of hexadecimal characters kept from the digest.
const Length = 8

// Of returns the first Length lowercase hex characters of the SHA-256 digest of url.
//
// Distinct URLs may share a hash: 8 hex characters leave about 32 bits of space
// and no collision resolution is attempted.
func Of(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:Length]
}

// Valid reports whether s has the shape of a hash produced by Of.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}
