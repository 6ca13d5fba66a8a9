package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/dvarapala/core"
	_ "github.com/lib/pq"
)

// PostgresStore implements the nonce and wallet stores on PostgreSQL. The
// replay gate is the conditional UPDATE in MarkUsed: the database guarantees
// at most one transaction flips used_at from NULL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a connection pool against the given URL.
func OpenPostgres(url string, maxOpen, maxIdle int, connMaxLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

// Migrate creates the nonce and wallet tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS nonces (
			id              UUID PRIMARY KEY,
			address         TEXT NOT NULL,
			nonce           TEXT NOT NULL,
			domain          TEXT NOT NULL,
			statement       TEXT,
			uri             TEXT NOT NULL,
			version         TEXT,
			chain_id        TEXT NOT NULL,
			issued_at       TIMESTAMPTZ NOT NULL,
			expiration_time TIMESTAMPTZ NOT NULL,
			used_at         TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS nonces_address_idx ON nonces (address);
		CREATE INDEX IF NOT EXISTS nonces_expiration_idx ON nonces (expiration_time);

		CREATE TABLE IF NOT EXISTS wallets (
			id          UUID PRIMARY KEY,
			address     TEXT NOT NULL UNIQUE,
			last_active TIMESTAMPTZ NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		);`)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Insert stores a freshly issued nonce record.
func (s *PostgresStore) Insert(ctx context.Context, record core.NonceRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nonces (id, address, nonce, domain, statement, uri, version, chain_id, issued_at, expiration_time, used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID(), record.Address().String(), record.Nonce().String(), record.Domain(),
		nullable(record.Statement()), record.URI(), nullable(record.Version()), record.ChainID(),
		record.IssuedAt(), record.ExpirationTime(), record.UsedAt())
	if err != nil {
		return fmt.Errorf("failed to insert nonce: %w", err)
	}
	return nil
}

// FindByID returns the nonce record with the given id.
func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (core.NonceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address, nonce, domain, statement, uri, version, chain_id, issued_at, expiration_time, used_at
		 FROM nonces WHERE id = $1`, id)
	return scanNonce(row)
}

// FindActiveByAddress returns the newest unconsumed, unexpired record for
// the address.
func (s *PostgresStore) FindActiveByAddress(ctx context.Context, address core.Address) (core.NonceRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address, nonce, domain, statement, uri, version, chain_id, issued_at, expiration_time, used_at
		 FROM nonces
		 WHERE address = $1 AND used_at IS NULL AND expiration_time > NOW()
		 ORDER BY issued_at DESC
		 LIMIT 1`, address.String())
	record, err := scanNonce(row)
	if errors.Is(err, core.ErrNonceNotFound) {
		return core.NonceRecord{}, false, nil
	}
	if err != nil {
		return core.NonceRecord{}, false, err
	}
	return record, true, nil
}

// MarkUsed flips used_at from NULL in a single conditional UPDATE. Under
// concurrent callers the database serializes the row update, so exactly one
// caller observes an affected row.
func (s *PostgresStore) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nonces SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		id, usedAt)
	if err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing updated: either the record is gone or someone else consumed it.
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM nonces WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check nonce existence: %w", err)
	}
	if exists {
		return core.ErrNonceAlreadyUsed
	}
	return core.ErrNonceNotFound
}

// Upsert inserts the wallet or refreshes its last-activity timestamp.
func (s *PostgresStore) Upsert(ctx context.Context, wallet core.Wallet) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (id, address, last_active, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (address) DO UPDATE SET last_active = EXCLUDED.last_active`,
		wallet.ID(), wallet.Address().String(), wallet.LastActive(), wallet.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to upsert wallet: %w", err)
	}
	return nil
}

// FindByAddress returns the wallet for the address.
func (s *PostgresStore) FindByAddress(ctx context.Context, address core.Address) (core.Wallet, bool, error) {
	var (
		id                    uuid.UUID
		addressText           string
		lastActive, createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, address, last_active, created_at FROM wallets WHERE address = $1`,
		address.String()).Scan(&id, &addressText, &lastActive, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Wallet{}, false, nil
	}
	if err != nil {
		return core.Wallet{}, false, fmt.Errorf("failed to load wallet: %w", err)
	}

	addr, err := core.NewAddress(addressText)
	if err != nil {
		return core.Wallet{}, false, err
	}
	wallet, err := core.RestoreWallet(id, addr, lastActive, createdAt)
	if err != nil {
		return core.Wallet{}, false, err
	}
	return wallet, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNonce(row rowScanner) (core.NonceRecord, error) {
	var (
		id                       uuid.UUID
		addressText, nonceText   string
		domain, uri, chainID     string
		statement, version       sql.NullString
		issuedAt, expirationTime time.Time
		usedAt                   sql.NullTime
	)
	err := row.Scan(&id, &addressText, &nonceText, &domain, &statement, &uri, &version, &chainID, &issuedAt, &expirationTime, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NonceRecord{}, core.ErrNonceNotFound
	}
	if err != nil {
		return core.NonceRecord{}, fmt.Errorf("failed to scan nonce: %w", err)
	}

	address, err := core.NewAddress(addressText)
	if err != nil {
		return core.NonceRecord{}, err
	}
	nonce, err := core.NewNonce(nonceText)
	if err != nil {
		return core.NonceRecord{}, err
	}

	var used *time.Time
	if usedAt.Valid {
		used = &usedAt.Time
	}

	return core.RestoreNonceRecord(
		id,
		address,
		nonce,
		domain,
		statement.String,
		uri,
		version.String,
		chainID,
		issuedAt,
		expirationTime,
		used,
	)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
