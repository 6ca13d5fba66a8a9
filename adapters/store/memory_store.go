package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/dvarapala/core"
)

// MemoryStore is an in-memory implementation of the nonce, wallet and token
// stores. It is primarily intended for testing; the mutex around MarkUsed
// gives the same exactly-once consumption guarantee the production stores
// provide with conditional writes.
type MemoryStore struct {
	mu          sync.RWMutex
	nonces      map[uuid.UUID]core.NonceRecord
	wallets     map[string]core.Wallet
	invalidated map[string]time.Time
	sessions    map[string]map[string]time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nonces:      make(map[uuid.UUID]core.NonceRecord),
		wallets:     make(map[string]core.Wallet),
		invalidated: make(map[string]time.Time),
		sessions:    make(map[string]map[string]time.Time),
	}
}

// Insert stores a nonce record by id.
func (s *MemoryStore) Insert(ctx context.Context, record core.NonceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nonces[record.ID()] = record
	return nil
}

// FindByID returns the nonce record with the given id.
func (s *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (core.NonceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.nonces[id]
	if !ok {
		return core.NonceRecord{}, core.ErrNonceNotFound
	}
	return record, nil
}

// FindActiveByAddress returns the unconsumed, unexpired record for the address.
func (s *MemoryStore) FindActiveByAddress(ctx context.Context, address core.Address) (core.NonceRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.nonces {
		if record.Address() == address && !record.IsUsed() && !record.IsExpired() {
			return record, true, nil
		}
	}
	return core.NonceRecord{}, false, nil
}

// MarkUsed consumes the record if and only if it is still unconsumed. The
// check and the write happen under one lock, so exactly one concurrent
// caller succeeds.
func (s *MemoryStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.nonces[id]
	if !ok {
		return core.ErrNonceNotFound
	}
	if record.IsUsed() {
		return core.ErrNonceAlreadyUsed
	}

	used, err := core.RestoreNonceRecord(
		record.ID(),
		record.Address(),
		record.Nonce(),
		record.Domain(),
		record.Statement(),
		record.URI(),
		record.Version(),
		record.ChainID(),
		record.IssuedAt(),
		record.ExpirationTime(),
		&usedAt,
	)
	if err != nil {
		return err
	}

	s.nonces[id] = used
	return nil
}

// Upsert stores a wallet record keyed by address.
func (s *MemoryStore) Upsert(ctx context.Context, wallet core.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.wallets[wallet.Address().String()] = wallet
	return nil
}

// FindByAddress returns the wallet for the address.
func (s *MemoryStore) FindByAddress(ctx context.Context, address core.Address) (core.Wallet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallet, ok := s.wallets[address.String()]
	return wallet, ok, nil
}

// InvalidateToken marks a token as invalidated until its expiry elapses.
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidated[tokenID] = time.Now().Add(expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated.
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiry, ok := s.invalidated[tokenID]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

// RegisterSession records a live session for the address.
func (s *MemoryStore) RegisterSession(ctx context.Context, address string, refreshID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions[address] == nil {
		s.sessions[address] = make(map[string]time.Time)
	}
	s.sessions[address][refreshID] = time.Now().Add(expiry)
	return nil
}

// SessionsForAddress returns the refresh ids of unexpired sessions.
func (s *MemoryStore) SessionsForAddress(ctx context.Context, address string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var ids []string
	for refreshID, expiry := range s.sessions[address] {
		if now.Before(expiry) {
			ids = append(ids, refreshID)
		}
	}
	return ids, nil
}
