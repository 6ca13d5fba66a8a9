package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NonceRecord is the authoritative, time-bounded, single-use challenge tied
// to one address. Records are immutable: transitions return new values, so
// a consumed record can never be observed partially updated.
type NonceRecord struct {
	id             uuid.UUID
	address        Address
	nonce          Nonce
	domain         string
	statement      string
	uri            string
	version        string
	expirationTime time.Time
	issuedAt       time.Time
	chainID        string
	usedAt         *time.Time
}

// NewNonceRecord creates a fresh challenge record issued now and expiring
// after ttl. The address and nonce must be validated values and ttl must be
// positive.
func NewNonceRecord(
	address Address,
	nonce Nonce,
	domain string,
	statement string,
	uri string,
	version string,
	chainID string,
	ttl time.Duration,
) (NonceRecord, error) {
	if address.IsZero() {
		return NonceRecord{}, fmt.Errorf("%w: address must be a validated value", ErrInvalidAddress)
	}
	if nonce.IsZero() {
		return NonceRecord{}, fmt.Errorf("%w: nonce must be a validated value", ErrInvalidNonce)
	}
	if strings.ContainsAny(statement, "\r\n") {
		return NonceRecord{}, fmt.Errorf("%w: statement must not contain line breaks", ErrInvalidStatement)
	}
	if ttl <= 0 {
		return NonceRecord{}, fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidDate, ttl)
	}

	issuedAt := time.Now().UTC()
	return NonceRecord{
		id:             uuid.New(),
		address:        address,
		nonce:          nonce,
		domain:         domain,
		statement:      statement,
		uri:            uri,
		version:        version,
		expirationTime: issuedAt.Add(ttl),
		issuedAt:       issuedAt,
		chainID:        chainID,
	}, nil
}

// RestoreNonceRecord rehydrates a record from storage, re-checking the same
// invariants NewNonceRecord enforces.
func RestoreNonceRecord(
	id uuid.UUID,
	address Address,
	nonce Nonce,
	domain string,
	statement string,
	uri string,
	version string,
	chainID string,
	issuedAt time.Time,
	expirationTime time.Time,
	usedAt *time.Time,
) (NonceRecord, error) {
	if address.IsZero() {
		return NonceRecord{}, fmt.Errorf("%w: address must be a validated value", ErrInvalidAddress)
	}
	if nonce.IsZero() {
		return NonceRecord{}, fmt.Errorf("%w: nonce must be a validated value", ErrInvalidNonce)
	}
	if strings.ContainsAny(statement, "\r\n") {
		return NonceRecord{}, fmt.Errorf("%w: statement must not contain line breaks", ErrInvalidStatement)
	}
	if !issuedAt.Before(expirationTime) {
		return NonceRecord{}, fmt.Errorf("%w: issued at (%s) must be before expiration time (%s)",
			ErrInvalidDate, issuedAt.Format(TimestampLayout), expirationTime.Format(TimestampLayout))
	}

	record := NonceRecord{
		id:             id,
		address:        address,
		nonce:          nonce,
		domain:         domain,
		statement:      statement,
		uri:            uri,
		version:        version,
		expirationTime: expirationTime,
		issuedAt:       issuedAt,
		chainID:        chainID,
	}
	if usedAt != nil {
		used := *usedAt
		record.usedAt = &used
	}
	return record, nil
}

// ID returns the record identifier.
func (r NonceRecord) ID() uuid.UUID { return r.id }

// Address returns the address the challenge was issued to.
func (r NonceRecord) Address() Address { return r.address }

// Nonce returns the challenge nonce.
func (r NonceRecord) Nonce() Nonce { return r.nonce }

// Domain returns the requesting domain.
func (r NonceRecord) Domain() string { return r.domain }

// Statement returns the human-readable statement, empty when absent.
func (r NonceRecord) Statement() string { return r.statement }

// URI returns the resource URI the signing refers to.
func (r NonceRecord) URI() string { return r.uri }

// Version returns the message version.
func (r NonceRecord) Version() string { return r.version }

// ChainID returns the chain the session is bound to.
func (r NonceRecord) ChainID() string { return r.chainID }

// IssuedAt returns when the challenge was issued.
func (r NonceRecord) IssuedAt() time.Time { return r.issuedAt }

// ExpirationTime returns when the challenge expires.
func (r NonceRecord) ExpirationTime() time.Time { return r.expirationTime }

// UsedAt returns the consumption timestamp, or nil when the nonce has not
// been consumed.
func (r NonceRecord) UsedAt() *time.Time {
	if r.usedAt == nil {
		return nil
	}
	used := *r.usedAt
	return &used
}

// IsExpired reports whether the current time has reached the expiration
// time. The result is computed from the wall clock, never cached, and is
// orthogonal to consumption: a nonce can be expired and never used.
func (r NonceRecord) IsExpired() bool {
	return !time.Now().UTC().Before(r.expirationTime)
}

// IsUsed reports whether the nonce has been consumed.
func (r NonceRecord) IsUsed() bool {
	return r.usedAt != nil
}

// MarkUsed returns a copy of the record consumed now. It fails when the
// record is already consumed. Expiration is not checked here; callers gate
// on IsExpired separately.
func (r NonceRecord) MarkUsed() (NonceRecord, error) {
	if r.IsUsed() {
		return NonceRecord{}, fmt.Errorf("%w: nonce %s consumed at %s", ErrNonceAlreadyUsed, r.id, r.usedAt.Format(TimestampLayout))
	}
	used := time.Now().UTC()
	record := r
	record.usedAt = &used
	return record, nil
}

// Message derives the canonical signable message from the record, copying
// every shared field verbatim.
func (r NonceRecord) Message() Message {
	return Message{
		address:        r.address,
		domain:         r.domain,
		statement:      r.statement,
		uri:            r.uri,
		version:        r.version,
		nonce:          r.nonce,
		issuedAt:       r.issuedAt,
		expirationTime: r.expirationTime,
		chainID:        r.chainID,
	}
}
