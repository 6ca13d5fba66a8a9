package core

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureLength is the decoded length of a signature in bytes
// (an Ed25519 signature).
const SignatureLength = 64

// Signature is a validated base58-encoded signature value. Construction
// validates encoding and length only; cryptographic verification is a
// separate concern.
type Signature struct {
	text string
}

// NewSignature validates a base58-encoded signature and returns it as a
// value. The text must decode to exactly 64 bytes.
func NewSignature(text string) (Signature, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != SignatureLength {
		return Signature{}, fmt.Errorf("%w: decoded to %d bytes, expected %d", ErrInvalidSignature, len(raw), SignatureLength)
	}
	return Signature{text: text}, nil
}

// String returns the base58 text form of the signature.
func (s Signature) String() string {
	return s.text
}

// Bytes returns the decoded 64-byte form of the signature.
func (s Signature) Bytes() []byte {
	raw, _ := base58.Decode(s.text)
	return raw
}
