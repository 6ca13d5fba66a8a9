package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/dvarapala/core"
)

// NonceStore persists challenge records. Implementations MUST make MarkUsed
// an atomic conditional update (set used-at only where it is still unset) so
// that two concurrent verification attempts against the same nonce cannot
// both succeed. The domain's own already-used check is necessary but not
// sufficient without that guarantee.
type NonceStore interface {
	// Insert stores a freshly issued record.
	Insert(ctx context.Context, record core.NonceRecord) error

	// FindByID returns the record with the given id, or core.ErrNonceNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (core.NonceRecord, error)

	// FindActiveByAddress returns the unconsumed, unexpired record for the
	// address. The boolean is false when no active record exists.
	FindActiveByAddress(ctx context.Context, address core.Address) (core.NonceRecord, bool, error)

	// MarkUsed consumes the record identified by id, setting its used-at
	// timestamp if and only if it is still unset. Returns
	// core.ErrNonceAlreadyUsed when another caller got there first and
	// core.ErrNonceNotFound when the record does not exist.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error
}

// WalletStore persists wallet identity records.
type WalletStore interface {
	// Upsert inserts the wallet or updates its activity timestamps.
	Upsert(ctx context.Context, wallet core.Wallet) error

	// FindByAddress returns the wallet for the address. The boolean is false
	// when the wallet does not exist.
	FindByAddress(ctx context.Context, address core.Address) (core.Wallet, bool, error)
}

// TokenStore tracks invalidated refresh tokens and the live sessions of
// each address.
type TokenStore interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)

	// RegisterSession records refreshID as a live session of the address
	// until expiry elapses.
	RegisterSession(ctx context.Context, address string, refreshID string, expiry time.Duration) error

	// SessionsForAddress returns the refresh ids of the address's live
	// sessions.
	SessionsForAddress(ctx context.Context, address string) ([]string, error)
}
