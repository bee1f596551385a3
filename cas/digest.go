// ABOUTME: Digest type and SHA-256 hashing for content-addressed artifact identity.
// ABOUTME: A digest is the lowercase hex SHA-256 of the raw payload bytes, no normalization.
package cas

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Digest identifies an artifact by the lowercase hex SHA-256 of its content.
// Identical bytes always produce the identical digest, regardless of when or
// by which run they were stored.
type Digest string

// HashBytes computes the digest of a payload.
func HashBytes(payload []byte) Digest {
	sum := sha256.Sum256(payload)
	return Digest(hex.EncodeToString(sum[:]))
}

// String returns the digest as a plain hex string.
func (d Digest) String() string {
	return string(d)
}

// Validate checks that the digest is a well-formed hex SHA-256 string.
func (d Digest) Validate() error {
	if len(d) != sha256.Size*2 {
		return fmt.Errorf("digest %q: expected %d hex characters, got %d", d, sha256.Size*2, len(d))
	}
	if _, err := hex.DecodeString(string(d)); err != nil {
		return fmt.Errorf("digest %q: not valid hex: %w", d, err)
	}
	return nil
}
