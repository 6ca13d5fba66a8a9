package core

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLength is the decoded length of a wallet address in bytes
// (an Ed25519 public key).
const AddressLength = 32

// Address is a validated base58-encoded wallet address. The zero value is
// not a valid address; construct one with NewAddress.
type Address struct {
	text string
}

// NewAddress validates a base58-encoded address and returns it as a value.
// The text must decode to exactly 32 bytes.
func NewAddress(text string) (Address, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("%w: decoded to %d bytes, expected %d", ErrInvalidAddress, len(raw), AddressLength)
	}
	return Address{text: text}, nil
}

// String returns the base58 text form of the address.
func (a Address) String() string {
	return a.text
}

// Bytes returns the decoded 32-byte form of the address. The decode is
// deterministic; the text was validated at construction.
func (a Address) Bytes() []byte {
	raw, _ := base58.Decode(a.text)
	return raw
}

// IsZero reports whether the address is the zero value, i.e. was never
// constructed through NewAddress.
func (a Address) IsZero() bool {
	return a.text == ""
}
