package store

import (
	"crypto/sha256"
	"fmt"
)

// ComputeMetadataHash returns the hex SHA-256 of an encoded metadata value.
// The encoding must be deterministic for equal metadata so an unchanged
// re-derivation hashes identically and can be skipped.
func ComputeMetadataHash(encoded []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(encoded))
}
