// Package hash provides content fingerprinting for fetched payloads.
package hash

import (
	"crypto/sha256"
	"encoding/base64"
)

// ContentBase64 returns the URL-safe base64 SHA-256 digest of data. Syncs
// compare it against the previously stored digest to detect servers that
// resend identical payloads without honoring conditional-fetch headers.
func ContentBase64(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.URLEncoding.EncodeToString(sum[:])
}
