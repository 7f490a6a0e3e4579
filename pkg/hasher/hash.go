package hasher

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLen = 12

// Hash returns the hex SHA-256 of s.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fingerprint is a short, log-safe identifier for a secret.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	return Hash(secret)[:fingerprintLen]
}
