package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Wallet is the durable identity record for an address. Like NonceRecord it
// is immutable: Ping returns a new value instead of mutating in place.
type Wallet struct {
	id         uuid.UUID
	address    Address
	lastActive time.Time
	createdAt  time.Time
}

// NewWallet creates a wallet record for a validated address with creation
// and last-activity timestamps set to now.
func NewWallet(address Address) (Wallet, error) {
	if address.IsZero() {
		return Wallet{}, fmt.Errorf("%w: address must be a validated value", ErrInvalidAddress)
	}
	now := time.Now().UTC()
	return Wallet{
		id:         uuid.New(),
		address:    address,
		lastActive: now,
		createdAt:  now,
	}, nil
}

// RestoreWallet rehydrates a wallet record from storage. The creation
// timestamp must not be in the future.
func RestoreWallet(id uuid.UUID, address Address, lastActive, createdAt time.Time) (Wallet, error) {
	if address.IsZero() {
		return Wallet{}, fmt.Errorf("%w: address must be a validated value", ErrInvalidAddress)
	}
	if createdAt.After(time.Now().UTC()) {
		return Wallet{}, fmt.Errorf("%w: created at (%s) is in the future", ErrInvalidDate, createdAt.Format(TimestampLayout))
	}
	return Wallet{
		id:         id,
		address:    address,
		lastActive: lastActive,
		createdAt:  createdAt,
	}, nil
}

// ID returns the wallet identifier.
func (w Wallet) ID() uuid.UUID { return w.id }

// Address returns the wallet address.
func (w Wallet) Address() Address { return w.address }

// LastActive returns the last successful authentication time.
func (w Wallet) LastActive() time.Time { return w.lastActive }

// CreatedAt returns when the wallet record was first created.
func (w Wallet) CreatedAt() time.Time { return w.createdAt }

// Ping returns a copy of the wallet with last-activity set to now. Every
// other field, the creation timestamp included, is preserved exactly.
func (w Wallet) Ping() Wallet {
	pinged := w
	pinged.lastActive = time.Now().UTC()
	return pinged
}

// Bytes returns the decoded 32-byte form of the wallet address.
func (w Wallet) Bytes() []byte {
	return w.address.Bytes()
}
