package core

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the canonical rendering of message timestamps.
// Timestamps are always rendered in UTC with second precision.
const TimestampLayout = "2006-01-02T15:04:05Z"

// Message is the canonical sign-in message presented to a wallet for
// signing. Its rendered form is a wire contract: the verifier reconstructs
// the exact same bytes, so any change to the format breaks verification.
type Message struct {
	address        Address
	domain         string
	statement      string
	uri            string
	version        string
	nonce          Nonce
	issuedAt       time.Time
	expirationTime time.Time
	chainID        string
}

// NewMessage builds a message from its fields. The address and nonce must be
// validated values, issuedAt must be strictly before expirationTime, and the
// statement must not contain line breaks.
func NewMessage(
	address Address,
	domain string,
	statement string,
	uri string,
	version string,
	chainID string,
	nonce Nonce,
	issuedAt time.Time,
	expirationTime time.Time,
) (Message, error) {
	if address.IsZero() {
		return Message{}, fmt.Errorf("%w: address must be a validated value", ErrInvalidAddress)
	}
	if nonce.IsZero() {
		return Message{}, fmt.Errorf("%w: nonce must be a validated value", ErrInvalidNonce)
	}
	if strings.ContainsAny(statement, "\r\n") {
		return Message{}, fmt.Errorf("%w: statement must not contain line breaks", ErrInvalidStatement)
	}
	if !issuedAt.Before(expirationTime) {
		return Message{}, fmt.Errorf("%w: issued at (%s) must be before expiration time (%s)",
			ErrInvalidDate, issuedAt.Format(TimestampLayout), expirationTime.Format(TimestampLayout))
	}
	return Message{
		address:        address,
		domain:         domain,
		statement:      statement,
		uri:            uri,
		version:        version,
		nonce:          nonce,
		issuedAt:       issuedAt,
		expirationTime: expirationTime,
		chainID:        chainID,
	}, nil
}

// Address returns the signing address.
func (m Message) Address() Address { return m.address }

// Nonce returns the challenge nonce bound to the message.
func (m Message) Nonce() Nonce { return m.nonce }

// String renders the canonical signable message. The statement block,
// including its surrounding blank line, is omitted entirely when the
// statement is empty so signers always see a byte-stable message.
func (m Message) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your account:\n", m.domain)
	b.WriteString(m.address.String())
	b.WriteString("\n\n")
	if m.statement != "" {
		b.WriteString(m.statement)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "URI: %s\n", m.uri)
	fmt.Fprintf(&b, "Version: %s\n", m.version)
	fmt.Fprintf(&b, "Chain ID: %s\n", m.chainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.nonce)
	fmt.Fprintf(&b, "Issued At: %s\n", m.issuedAt.UTC().Format(TimestampLayout))
	fmt.Fprintf(&b, "Expiration Time: %s", m.expirationTime.UTC().Format(TimestampLayout))
	return b.String()
}

// Bytes returns the rendered message as the byte slice that gets signed
// and verified.
func (m Message) Bytes() []byte {
	return []byte(m.String())
}
