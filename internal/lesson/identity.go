package lesson

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize trims the question body and collapses internal whitespace runs to
// single spaces, so identical questions hash identically regardless of how
// the markup happened to wrap them.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Key returns the content-addressed identity of a question: SHA-256 of the
// UTF-8 normalized text as lowercase hex. Deterministic for any input,
// including the empty string. Per-lecture scoping is the store's concern,
// not this function's.
func Key(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
