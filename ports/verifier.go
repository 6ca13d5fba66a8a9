package ports

// SignatureVerifier is the raw cryptographic verification primitive. The
// domain supplies canonical message bytes, the decoded signature, and the
// decoded public key; the verifier only answers whether they match.
type SignatureVerifier interface {
	Verify(message, signature, publicKey []byte) bool
}
