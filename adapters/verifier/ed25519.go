package verifier

import "crypto/ed25519"

// Ed25519Verifier verifies detached Ed25519 signatures over raw message
// bytes. Addresses decode to 32-byte public keys, signatures to 64 bytes.
type Ed25519Verifier struct{}

// NewEd25519Verifier creates a new Ed25519 verifier
func NewEd25519Verifier() *Ed25519Verifier {
	return &Ed25519Verifier{}
}

// Verify reports whether the signature over the message was produced by the
// holder of the public key. Wrong-length inputs verify as false rather than
// panicking.
func (*Ed25519Verifier) Verify(message, signature, publicKey []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), message, signature)
}
