package wordkey

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Normalize returns the identity key of a vocabulary word.
// It trims surrounding whitespace and lowercases, so "  Journey " and "journey" collide.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Equal reports whether two words share the same identity key.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Hash returns a stable SHA-256 hex identifier for a word saved under a lesson.
// The lesson and the normalized word are joined with a newline so that
// "ab"+"c" and "a"+"bc" never collide.
func Hash(lessonID, word string) string {
	joined := strings.TrimSpace(lessonID) + "\n" + Normalize(word)
	sum := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", sum)
}
