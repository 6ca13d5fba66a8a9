package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/dvarapala/core"
	"github.com/redis/go-redis/v9"
)

// consumedRetention keeps consumed and expired records around so repeated
// submissions are answered with already-used instead of not-found.
const consumedRetention = 24 * time.Hour

// markUsedScript sets used_at if and only if it is still unset, and drops
// the address index for the consumed record. Runs atomically inside Redis:
// exactly one concurrent caller sees 1.
//
// Returns 1 on success, 0 when the key is missing, -1 when already used.
var markUsedScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
	return 0
end
local doc = cjson.decode(raw)
if doc.used_at ~= cjson.null and doc.used_at ~= nil then
	return -1
end
doc.used_at = ARGV[1]
redis.call('SET', KEYS[1], cjson.encode(doc), 'KEEPTTL')
redis.call('DEL', KEYS[2])
return 1
`)

type nonceDoc struct {
	ID             string     `json:"id"`
	Address        string     `json:"address"`
	Nonce          string     `json:"nonce"`
	Domain         string     `json:"domain"`
	Statement      string     `json:"statement,omitempty"`
	URI            string     `json:"uri"`
	Version        string     `json:"version,omitempty"`
	ChainID        string     `json:"chain_id"`
	IssuedAt       time.Time  `json:"issued_at"`
	ExpirationTime time.Time  `json:"expiration_time"`
	UsedAt         *time.Time `json:"used_at"`
}

type walletDoc struct {
	ID         string    `json:"id"`
	Address    string    `json:"address"`
	LastActive time.Time `json:"last_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// RedisStore is a Redis implementation of the nonce, wallet and token stores
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "dvarapala:",
	}
}

func (s *RedisStore) nonceKey(id uuid.UUID) string {
	return s.prefix + "nonce:" + id.String()
}

func (s *RedisStore) addressKey(address core.Address) string {
	return s.prefix + "nonce:addr:" + address.String()
}

func (s *RedisStore) walletKey(address core.Address) string {
	return s.prefix + "wallet:" + address.String()
}

// Insert stores a nonce record and indexes it by address. The record key
// outlives the challenge window by the consumed-record retention; the
// address index expires with the challenge itself.
func (s *RedisStore) Insert(ctx context.Context, record core.NonceRecord) error {
	payload, err := json.Marshal(recordToDoc(record))
	if err != nil {
		return fmt.Errorf("failed to marshal nonce record: %w", err)
	}

	ttl := time.Until(record.ExpirationTime())
	if err := s.client.Set(ctx, s.nonceKey(record.ID()), payload, ttl+consumedRetention).Err(); err != nil {
		return fmt.Errorf("failed to store nonce record: %w", err)
	}
	if err := s.client.Set(ctx, s.addressKey(record.Address()), record.ID().String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to index nonce record: %w", err)
	}
	return nil
}

// FindByID returns the nonce record with the given id.
func (s *RedisStore) FindByID(ctx context.Context, id uuid.UUID) (core.NonceRecord, error) {
	raw, err := s.client.Get(ctx, s.nonceKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.NonceRecord{}, core.ErrNonceNotFound
	}
	if err != nil {
		return core.NonceRecord{}, fmt.Errorf("failed to load nonce record: %w", err)
	}

	var doc nonceDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.NonceRecord{}, fmt.Errorf("failed to unmarshal nonce record: %w", err)
	}
	return docToRecord(doc)
}

// FindActiveByAddress resolves the address index and returns the record when
// it is still unconsumed and unexpired.
func (s *RedisStore) FindActiveByAddress(ctx context.Context, address core.Address) (core.NonceRecord, bool, error) {
	idText, err := s.client.Get(ctx, s.addressKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return core.NonceRecord{}, false, nil
	}
	if err != nil {
		return core.NonceRecord{}, false, fmt.Errorf("failed to resolve nonce index: %w", err)
	}

	id, err := uuid.Parse(idText)
	if err != nil {
		return core.NonceRecord{}, false, fmt.Errorf("corrupt nonce index for %s: %w", address, err)
	}

	record, err := s.FindByID(ctx, id)
	if errors.Is(err, core.ErrNonceNotFound) {
		return core.NonceRecord{}, false, nil
	}
	if err != nil {
		return core.NonceRecord{}, false, err
	}
	if record.IsUsed() || record.IsExpired() {
		return core.NonceRecord{}, false, nil
	}
	return record, true, nil
}

// MarkUsed consumes the record through a Lua script so the check and the
// write are a single atomic Redis operation.
func (s *RedisStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	record, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	res, err := markUsedScript.Run(ctx, s.client,
		[]string{s.nonceKey(id), s.addressKey(record.Address())},
		usedAt.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}

	switch res {
	case 1:
		return nil
	case -1:
		return core.ErrNonceAlreadyUsed
	default:
		return core.ErrNonceNotFound
	}
}

// Upsert stores a wallet record keyed by address.
func (s *RedisStore) Upsert(ctx context.Context, wallet core.Wallet) error {
	payload, err := json.Marshal(walletDoc{
		ID:         wallet.ID().String(),
		Address:    wallet.Address().String(),
		LastActive: wallet.LastActive(),
		CreatedAt:  wallet.CreatedAt(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	if err := s.client.Set(ctx, s.walletKey(wallet.Address()), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to store wallet: %w", err)
	}
	return nil
}

// FindByAddress returns the wallet for the address.
func (s *RedisStore) FindByAddress(ctx context.Context, address core.Address) (core.Wallet, bool, error) {
	raw, err := s.client.Get(ctx, s.walletKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Wallet{}, false, nil
	}
	if err != nil {
		return core.Wallet{}, false, fmt.Errorf("failed to load wallet: %w", err)
	}

	var doc walletDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return core.Wallet{}, false, fmt.Errorf("failed to unmarshal wallet: %w", err)
	}

	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return core.Wallet{}, false, fmt.Errorf("corrupt wallet record for %s: %w", address, err)
	}
	addr, err := core.NewAddress(doc.Address)
	if err != nil {
		return core.Wallet{}, false, err
	}
	wallet, err := core.RestoreWallet(id, addr, doc.LastActive, doc.CreatedAt)
	if err != nil {
		return core.Wallet{}, false, err
	}
	return wallet, true, nil
}

func (s *RedisStore) sessionsKey(address string) string {
	return s.prefix + "sessions:" + address
}

// RegisterSession records a live session for the address. The set's TTL is
// refreshed to the newest session's expiry, which covers every older member
// since their tokens expire sooner.
func (s *RedisStore) RegisterSession(ctx context.Context, address string, refreshID string, expiry time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.sessionsKey(address), refreshID)
	pipe.Expire(ctx, s.sessionsKey(address), expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to register session: %w", err)
	}
	return nil
}

// SessionsForAddress returns the refresh ids of the address's live sessions.
func (s *RedisStore) SessionsForAddress(ctx context.Context, address string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.sessionsKey(address)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + "invalidated:" + tokenID
	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + "invalidated:" + tokenID
	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return val > 0, nil
}

func recordToDoc(record core.NonceRecord) nonceDoc {
	return nonceDoc{
		ID:             record.ID().String(),
		Address:        record.Address().String(),
		Nonce:          record.Nonce().String(),
		Domain:         record.Domain(),
		Statement:      record.Statement(),
		URI:            record.URI(),
		Version:        record.Version(),
		ChainID:        record.ChainID(),
		IssuedAt:       record.IssuedAt(),
		ExpirationTime: record.ExpirationTime(),
		UsedAt:         record.UsedAt(),
	}
}

func docToRecord(doc nonceDoc) (core.NonceRecord, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return core.NonceRecord{}, fmt.Errorf("corrupt nonce record %q: %w", doc.ID, err)
	}
	address, err := core.NewAddress(doc.Address)
	if err != nil {
		return core.NonceRecord{}, err
	}
	nonce, err := core.NewNonce(doc.Nonce)
	if err != nil {
		return core.NonceRecord{}, err
	}
	return core.RestoreNonceRecord(
		id,
		address,
		nonce,
		doc.Domain,
		doc.Statement,
		doc.URI,
		doc.Version,
		doc.ChainID,
		doc.IssuedAt,
		doc.ExpirationTime,
		doc.UsedAt,
	)
}
