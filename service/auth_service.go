package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/dvarapala/core"
	"github.com/layer-3/dvarapala/internal/metrics"
	"github.com/layer-3/dvarapala/ports"
)

// Config carries the message defaults and token lifetimes for the service.
type Config struct {
	Domain       string
	URI          string
	Statement    string
	Version      string
	ChainID      string
	ChallengeTTL time.Duration
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

// Challenge is what a caller receives after requesting sign-in: the record
// id to submit back and the exact message to sign.
type Challenge struct {
	NonceID uuid.UUID
	Message string
}

// TokenPair carries the session tokens minted after a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService handles the challenge-response authentication flow
type AuthService struct {
	nonces    ports.NonceStore
	wallets   ports.WalletStore
	tokens    ports.TokenStore
	verifier  ports.SignatureVerifier
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	log       *slog.Logger

	cfg Config
}

// NewAuthService creates a new authentication service
func NewAuthService(
	nonces ports.NonceStore,
	wallets ports.WalletStore,
	tokens ports.TokenStore,
	verifier ports.SignatureVerifier,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	log *slog.Logger,
	cfg Config,
) *AuthService {
	if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = 10 * time.Minute
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 5 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 120 * time.Hour // 5 days
	}
	if cfg.Version == "" {
		cfg.Version = "1"
	}
	if cfg.ChainID == "" {
		cfg.ChainID = "mainnet-beta"
	}
	if cfg.URI == "" {
		cfg.URI = "https://" + cfg.Domain
	}
	return &AuthService{
		nonces:    nonces,
		wallets:   wallets,
		tokens:    tokens,
		verifier:  verifier,
		tokenizer: tokenizer,
		eventPub:  eventPub,
		log:       log,
		cfg:       cfg,
	}
}

// Challenge issues a sign-in challenge for the claimed address. An active
// (unconsumed, unexpired) challenge for the same address is reused so a
// wallet retrying the flow signs the same message.
func (s *AuthService) Challenge(ctx context.Context, addressText string) (*Challenge, error) {
	address, err := core.NewAddress(addressText)
	if err != nil {
		return nil, err
	}

	existing, ok, err := s.nonces.FindActiveByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active nonce: %w", err)
	}
	if ok {
		s.log.Info("reusing active challenge", "address", address.String(), "nonce_id", existing.ID())
		return &Challenge{NonceID: existing.ID(), Message: existing.Message().String()}, nil
	}

	if err := s.ensureWallet(ctx, address); err != nil {
		return nil, err
	}

	nonce, err := core.GenerateNonce()
	if err != nil {
		return nil, err
	}

	record, err := core.NewNonceRecord(
		address,
		nonce,
		s.cfg.Domain,
		s.cfg.Statement,
		s.cfg.URI,
		s.cfg.Version,
		s.cfg.ChainID,
		s.cfg.ChallengeTTL,
	)
	if err != nil {
		return nil, err
	}

	if err := s.nonces.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}

	metrics.ChallengesIssued.Inc()
	s.log.Info("challenge issued", "address", address.String(), "nonce_id", record.ID())

	return &Challenge{NonceID: record.ID(), Message: record.Message().String()}, nil
}

// Verify checks a submitted signature against the challenge identified by
// nonceID. On success the nonce is consumed through the store's atomic
// conditional update and the wallet record is pinged and returned.
func (s *AuthService) Verify(ctx context.Context, nonceID uuid.UUID, signatureText string) (core.Wallet, error) {
	record, err := s.nonces.FindByID(ctx, nonceID)
	if err != nil {
		return core.Wallet{}, err
	}

	// Consumption and expiration gate the cryptographic check.
	if record.IsUsed() {
		metrics.LoginAttempts.WithLabelValues("replayed").Inc()
		return core.Wallet{}, core.ErrNonceAlreadyUsed
	}
	if record.IsExpired() {
		metrics.LoginAttempts.WithLabelValues("expired").Inc()
		return core.Wallet{}, core.ErrNonceExpired
	}

	signature, err := core.NewSignature(signatureText)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("malformed").Inc()
		return core.Wallet{}, err
	}

	message := record.Message()
	if !s.verifier.Verify(message.Bytes(), signature.Bytes(), record.Address().Bytes()) {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		s.log.Warn("signature rejected", "address", record.Address().String(), "nonce_id", nonceID)
		return core.Wallet{}, core.ErrSignatureVerification
	}

	// The store's conditional update is the authoritative replay gate under
	// concurrency; exactly one caller observes success.
	if err := s.nonces.MarkUsed(ctx, nonceID, time.Now().UTC()); err != nil {
		return core.Wallet{}, err
	}

	wallet, err := s.pingWallet(ctx, record.Address())
	if err != nil {
		return core.Wallet{}, err
	}

	metrics.LoginAttempts.WithLabelValues("verified").Inc()
	s.log.Info("signature verified", "address", record.Address().String(), "nonce_id", nonceID)

	if err := s.eventPub.PublishLogin(ctx, record.Address().String(), nonceID); err != nil {
		// The nonce is already consumed, which is the critical part.
		s.log.Warn("failed to publish login event", "error", err)
	}

	return wallet, nil
}

// Login verifies the signature for the challenge and mints a session token
// pair for the authenticated wallet.
func (s *AuthService) Login(ctx context.Context, nonceID uuid.UUID, signatureText string) (*TokenPair, core.Wallet, error) {
	wallet, err := s.Verify(ctx, nonceID, signatureText)
	if err != nil {
		return nil, core.Wallet{}, err
	}

	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		Address:       wallet.Address().String(),
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.cfg.RefreshTTL),
		AccessExpiry:  now.Add(s.cfg.AccessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, core.Wallet{}, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, core.Wallet{}, fmt.Errorf("failed to create refresh token: %w", err)
	}

	if err := s.tokens.RegisterSession(ctx, session.Address, session.RefreshID, s.cfg.RefreshTTL); err != nil {
		return nil, core.Wallet{}, fmt.Errorf("failed to register session: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, wallet, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (*TokenPair, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	if time.Now().After(session.RefreshExpiry) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.tokens.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	// Invalidate the old refresh token for the remainder of its lifetime.
	if err := s.tokens.InvalidateToken(ctx, session.RefreshID, time.Until(session.RefreshExpiry)); err != nil {
		return nil, fmt.Errorf("failed to invalidate old token: %w", err)
	}

	now := time.Now()
	newSession := &core.Session{
		ID:            uuid.New().String(),
		Address:       session.Address,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.cfg.RefreshTTL),
		AccessExpiry:  now.Add(s.cfg.AccessTTL),
		RefreshID:     uuid.New().String(),
	}

	accessToken, err := s.tokenizer.SessionToAccessToken(newSession)
	if err != nil {
		return nil, fmt.Errorf("failed to create new access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(newSession)
	if err != nil {
		return nil, fmt.Errorf("failed to create new refresh token: %w", err)
	}

	if err := s.tokens.RegisterSession(ctx, newSession.Address, newSession.RefreshID, s.cfg.RefreshTTL); err != nil {
		return nil, fmt.Errorf("failed to register session: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Logout invalidates a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	// Even an expired token gets an invalidation record, so it can't be
	// replayed if clocks are slightly out of sync.
	remaining := time.Until(session.RefreshExpiry)
	if remaining <= 0 {
		remaining = time.Hour
	}

	if err := s.tokens.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		// The token is already invalidated in the store, which is the
		// critical part.
		s.log.Warn("failed to publish logout event", "error", err)
	}

	return nil
}

// TerminateSessions revokes every live session of the address. Access tokens
// carry the refresh id of their session, so invalidating the refresh ids
// cuts off both token kinds at once.
func (s *AuthService) TerminateSessions(ctx context.Context, addressText string) error {
	address, err := core.NewAddress(addressText)
	if err != nil {
		return err
	}

	ids, err := s.tokens.SessionsForAddress(ctx, address.String())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	for _, refreshID := range ids {
		if err := s.tokens.InvalidateToken(ctx, refreshID, s.cfg.RefreshTTL); err != nil {
			return fmt.Errorf("failed to invalidate session: %w", err)
		}
		if err := s.eventPub.PublishLogout(ctx, address.String(), refreshID); err != nil {
			s.log.Warn("failed to publish logout event", "error", err)
		}
	}

	s.log.Info("sessions terminated", "address", address.String(), "count", len(ids))
	return nil
}

// ValidateAccessToken parses an access token and checks it has neither
// expired nor been invalidated alongside its refresh token.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if time.Now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	if session.RefreshID != "" {
		invalidated, err := s.tokens.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}
		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

func (s *AuthService) ensureWallet(ctx context.Context, address core.Address) error {
	_, ok, err := s.wallets.FindByAddress(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to look up wallet: %w", err)
	}
	if ok {
		return nil
	}

	wallet, err := core.NewWallet(address)
	if err != nil {
		return err
	}
	if err := s.wallets.Upsert(ctx, wallet); err != nil {
		return fmt.Errorf("failed to store wallet: %w", err)
	}
	s.log.Info("wallet created", "address", address.String(), "wallet_id", wallet.ID())
	return nil
}

func (s *AuthService) pingWallet(ctx context.Context, address core.Address) (core.Wallet, error) {
	wallet, ok, err := s.wallets.FindByAddress(ctx, address)
	if err != nil {
		return core.Wallet{}, fmt.Errorf("failed to look up wallet: %w", err)
	}
	if !ok {
		// First successful authentication without a prior challenge-created
		// record, e.g. when challenge issuance skipped wallet creation.
		wallet, err = core.NewWallet(address)
		if err != nil {
			return core.Wallet{}, err
		}
	}

	pinged := wallet.Ping()
	if err := s.wallets.Upsert(ctx, pinged); err != nil {
		return core.Wallet{}, fmt.Errorf("failed to update wallet activity: %w", err)
	}
	return pinged, nil
}
