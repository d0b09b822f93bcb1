package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// Random returns size random bytes encoded as lowercase hex.
func Random(size int) (string, error) {
	if size <= 0 {
		return "", ErrInvalidSize
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(errors.New("failed to read random bytes"), err)
	}
	return hex.EncodeToString(buf), nil
}

// Hash returns the SHA-256 digest of s as lowercase hex.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
