package keys

import (
	"crypto/sha256"
	"fmt"
)

// Physical assembles the stored cache key for a logical key.
// digest is the isolation digest; empty means the shared, non-isolated entry.
func Physical(prefix, key, digest string) string {
	if digest == "" {
		return prefix + key
	}
	return prefix + key + ":" + digest
}

// Digest returns a short stable digest of a caller identity.
func Digest(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return fmt.Sprintf("%x", sum)[:16] // first 16 hex chars
}

// Tag returns the per-key tag name under a tag group.
func Tag(group, key string) string {
	return group + ":" + key
}
