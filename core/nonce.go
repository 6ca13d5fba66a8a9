package core

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
)

// MinNonceLength is the minimum length of a nonce in characters.
const MinNonceLength = 8

// Nonce is a validated single-use challenge token.
type Nonce struct {
	value string
}

// NewNonce validates a nonce string and returns it as a value. The value
// must be at least MinNonceLength characters long, counted in runes.
func NewNonce(value string) (Nonce, error) {
	if n := utf8.RuneCountInString(value); n < MinNonceLength {
		return Nonce{}, fmt.Errorf("%w: must be at least %d characters, got %d", ErrInvalidNonce, MinNonceLength, n)
	}
	return Nonce{value: value}, nil
}

// GenerateNonce produces a fresh nonce from a cryptographically secure
// random source: 16 random bytes rendered as 32 hex characters.
func GenerateNonce() (Nonce, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return Nonce{}, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return Nonce{value: hex.EncodeToString(raw)}, nil
}

// String returns the nonce text.
func (n Nonce) String() string {
	return n.value
}

// IsZero reports whether the nonce is the zero value.
func (n Nonce) IsZero() bool {
	return n.value == ""
}
