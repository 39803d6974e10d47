// Package checksum fingerprints journal text for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Text returns the hex-encoded SHA-256 digest of s.
func Text(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fields digests several values at once. Each field is length-prefixed so
// ("ab", "c") and ("a", "bc") never collide.
func Fields(fields ...string) string {
	h := sha256.New()
	var n [4]byte
	for _, f := range fields {
		l := len(f)
		n[0], n[1], n[2], n[3] = byte(l>>24), byte(l>>16), byte(l>>8), byte(l)
		h.Write(n[:])
		h.Write([]byte(f))
	}
	return hex.EncodeToString(h.Sum(nil))
}
