package core

import (
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignature(t *testing.T) {
	raw := make([]byte, SignatureLength)
	_, err := rand.Read(raw)
	require.NoError(t, err)

	sig, err := NewSignature(base58.Encode(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, sig.Bytes())
	assert.Len(t, sig.Bytes(), SignatureLength)
}

func TestNewSignatureWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 32, 63, 65, 128} {
		raw := make([]byte, n)
		_, err := NewSignature(base58.Encode(raw))
		assert.ErrorIs(t, err, ErrInvalidSignature, "decoded length %d must be rejected", n)
	}
}

func TestNewSignatureBadEncoding(t *testing.T) {
	_, err := NewSignature("not!base58")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
