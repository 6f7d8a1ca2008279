package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

func HashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// Matches compares got against the expected token in constant time. An
// empty expected token never matches.
func Matches(got, want string) bool {
	if want == "" {
		return false
	}
	g, w := HashToken(got), HashToken(want)
	return subtle.ConstantTimeCompare([]byte(g), []byte(w)) == 1
}
