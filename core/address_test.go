package core

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomAddressText(t *testing.T) (string, []byte) {
	t.Helper()
	raw := make([]byte, AddressLength)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base58.Encode(raw), raw
}

func TestNewAddress(t *testing.T) {
	text, raw := randomAddressText(t)

	addr, err := NewAddress(text)
	require.NoError(t, err)
	assert.Equal(t, text, addr.String())
	assert.True(t, bytes.Equal(raw, addr.Bytes()))
	assert.False(t, addr.IsZero())
}

func TestNewAddressWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 31, 33, 64} {
		raw := make([]byte, n)
		_, err := NewAddress(base58.Encode(raw))
		assert.ErrorIs(t, err, ErrInvalidAddress, "decoded length %d must be rejected", n)
	}
}

func TestNewAddressBadEncoding(t *testing.T) {
	// 0, O, I and l are not part of the base58 alphabet.
	_, err := NewAddress("0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewAddress("")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressBytesRoundTrip(t *testing.T) {
	text, raw := randomAddressText(t)
	addr, err := NewAddress(text)
	require.NoError(t, err)

	// Bytes is pure: repeated calls decode to the same 32 bytes.
	first := addr.Bytes()
	second := addr.Bytes()
	assert.Equal(t, raw, first)
	assert.Equal(t, first, second)
	assert.Len(t, first, AddressLength)
}

func TestAddressStructuralEquality(t *testing.T) {
	text, _ := randomAddressText(t)
	a, err := NewAddress(text)
	require.NoError(t, err)
	b, err := NewAddress(text)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
