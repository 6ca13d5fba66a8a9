package core

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddress(t *testing.T) Address {
	t.Helper()
	text, _ := randomAddressText(t)
	addr, err := NewAddress(text)
	require.NoError(t, err)
	return addr
}

func testNonce(t *testing.T) Nonce {
	t.Helper()
	nonce, err := GenerateNonce()
	require.NoError(t, err)
	return nonce
}

func TestNewMessageDateOrdering(t *testing.T) {
	addr := testAddress(t)
	nonce := testNonce(t)
	now := time.Now().UTC()

	_, err := NewMessage(addr, "example.com", "", "https://example.com", "1", "mainnet-beta", nonce, now, now)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = NewMessage(addr, "example.com", "", "https://example.com", "1", "mainnet-beta", nonce, now.Add(time.Minute), now)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = NewMessage(addr, "example.com", "", "https://example.com", "1", "mainnet-beta", nonce, now, now.Add(time.Minute))
	assert.NoError(t, err)
}

func TestNewMessageRequiresValidatedValues(t *testing.T) {
	nonce := testNonce(t)
	now := time.Now().UTC()

	_, err := NewMessage(Address{}, "example.com", "", "https://example.com", "1", "mainnet-beta", nonce, now, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = NewMessage(testAddress(t), "example.com", "", "https://example.com", "1", "mainnet-beta", Nonce{}, now, now.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestNewMessageRejectsMultilineStatement(t *testing.T) {
	_, err := NewMessage(testAddress(t), "example.com", "line one\nline two", "https://example.com", "1", "mainnet-beta",
		testNonce(t), time.Now(), time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidStatement)
}

func TestMessageRendering(t *testing.T) {
	addr := testAddress(t)
	nonce := testNonce(t)
	issuedAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	expiration := issuedAt.Add(10 * time.Minute)

	msg, err := NewMessage(addr, "example.com", "Sign in", "https://example.com", "1", "mainnet-beta", nonce, issuedAt, expiration)
	require.NoError(t, err)

	expected := fmt.Sprintf(
		"example.com wants you to sign in with your account:\n"+
			"%s\n"+
			"\n"+
			"Sign in\n"+
			"\n"+
			"URI: https://example.com\n"+
			"Version: 1\n"+
			"Chain ID: mainnet-beta\n"+
			"Nonce: %s\n"+
			"Issued At: 2026-08-26T12:00:00Z\n"+
			"Expiration Time: 2026-08-26T12:10:00Z",
		addr, nonce)
	assert.Equal(t, expected, msg.String())
	assert.Equal(t, []byte(expected), msg.Bytes())
}

func TestMessageRenderingWithoutStatement(t *testing.T) {
	addr := testAddress(t)
	nonce := testNonce(t)
	issuedAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	msg, err := NewMessage(addr, "example.com", "", "https://example.com", "1", "mainnet-beta", nonce, issuedAt, issuedAt.Add(10*time.Minute))
	require.NoError(t, err)

	rendered := msg.String()

	// The statement block is omitted entirely: the address line is followed
	// by exactly one blank line, then the URI field.
	assert.Contains(t, rendered, addr.String()+"\n\nURI: https://example.com\n")
	assert.NotContains(t, rendered, "\n\n\n")
}

func TestMessageRenderingTimestampsInUTC(t *testing.T) {
	addr := testAddress(t)
	nonce := testNonce(t)
	loc := time.FixedZone("UTC+3", 3*60*60)
	issuedAt := time.Date(2026, 8, 26, 15, 0, 0, 0, loc) // 12:00 UTC

	msg, err := NewMessage(addr, "example.com", "", "https://example.com", "1", "mainnet-beta", nonce, issuedAt, issuedAt.Add(time.Minute))
	require.NoError(t, err)

	lines := strings.Split(msg.String(), "\n")
	assert.Equal(t, "Issued At: 2026-08-26T12:00:00Z", lines[len(lines)-2])
}
