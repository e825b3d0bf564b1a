package cache

import "strings"

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// ValidateKey checks if a key can name a cache entity. Keys are
// deterministic view names like "documents:accessible:p1:s20".
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
