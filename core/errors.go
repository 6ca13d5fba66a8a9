package core

import "errors"

var (
	// ErrInvalidAddress is returned when an address is not valid base58 or
	// does not decode to 32 bytes
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrInvalidSignature is returned when a signature value is not valid
	// base58 or does not decode to 64 bytes
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrSignatureVerification is returned when a well-formed signature does
	// not verify against the message and address
	ErrSignatureVerification = errors.New("signature verification failed")

	// ErrInvalidNonce is returned when a nonce is empty or shorter than the minimum length
	ErrInvalidNonce = errors.New("invalid nonce")

	// ErrNonceAlreadyUsed is returned when a nonce has already been consumed
	ErrNonceAlreadyUsed = errors.New("nonce already used")

	// ErrNonceExpired is returned when a nonce is past its expiration time
	ErrNonceExpired = errors.New("nonce expired")

	// ErrNonceNotFound is returned when the referenced nonce does not exist
	ErrNonceNotFound = errors.New("nonce not found")

	// ErrInvalidDate is returned when a timestamp ordering invariant is
	// violated (issued-at not before expiration time, created-at in the future)
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidStatement is returned when a statement contains line breaks
	ErrInvalidStatement = errors.New("invalid statement")

	// ErrTokenExpired is returned when a session token has expired
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalidated is returned when a session token has been invalidated
	ErrTokenInvalidated = errors.New("token has been invalidated")

	// ErrInvalidToken is returned when a session token is malformed
	ErrInvalidToken = errors.New("invalid token")
)
