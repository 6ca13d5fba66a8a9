package verifier

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEd25519VerifierVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("example.com wants you to sign in with your account:")
	signature := ed25519.Sign(priv, message)

	v := NewEd25519Verifier()
	assert.True(t, v.Verify(message, signature, pub))
}

func TestEd25519VerifierRejectsTamperedMessage(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signature := ed25519.Sign(priv, []byte("original message"))

	v := NewEd25519Verifier()
	assert.False(t, v.Verify([]byte("tampered message"), signature, pub))
}

func TestEd25519VerifierRejectsWrongKey(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("some message")
	signature := ed25519.Sign(priv, message)

	v := NewEd25519Verifier()
	assert.False(t, v.Verify(message, signature, otherPub))
}

func TestEd25519VerifierRejectsWrongLengths(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("some message")
	signature := ed25519.Sign(priv, message)

	v := NewEd25519Verifier()
	assert.False(t, v.Verify(message, signature[:32], pub))
	assert.False(t, v.Verify(message, signature, pub[:16]))
	assert.False(t, v.Verify(message, nil, pub))
	assert.False(t, v.Verify(message, signature, nil))
}
