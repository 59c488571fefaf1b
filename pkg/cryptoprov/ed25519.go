package cryptoprov

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
)

// Ed25519Signer signs with a 32-byte Ed25519 private seed. Signatures are
// deterministic per RFC 8032.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
	kid  []byte
}

// NewEd25519Signer builds a signer from a 32-byte private seed. If kid is
// nil, DefaultKeyID derives one from the corresponding public key.
func NewEd25519Signer(seed []byte, kid []byte) (*Ed25519Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("cryptoprov: ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	if kid == nil {
		pub := priv.Public().(ed25519.PublicKey)
		kid = DefaultKeyID(pub)
	}
	return &Ed25519Signer{priv: priv, kid: kid}, nil
}

func (s *Ed25519Signer) Algorithm() Alg { return AlgEdDSA }
func (s *Ed25519Signer) KeyID() []byte  { return s.kid }

func (s *Ed25519Signer) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, data), nil
}

// PublicKey returns the 32-byte Ed25519 public key corresponding to the
// signer's private seed, for distributing to verifiers.
func (s *Ed25519Signer) PublicKey() []byte {
	return []byte(s.priv.Public().(ed25519.PublicKey))
}

// Ed25519Verifier verifies against a 32-byte Ed25519 public key.
type Ed25519Verifier struct {
	pub ed25519.PublicKey
}

// NewEd25519Verifier builds a verifier from a 32-byte raw public key.
func NewEd25519Verifier(pub []byte) (*Ed25519Verifier, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("cryptoprov: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	cp := make([]byte, ed25519.PublicKeySize)
	copy(cp, pub)
	return &Ed25519Verifier{pub: cp}, nil
}

func (v *Ed25519Verifier) Verify(alg Alg, kid, data, signature []byte) error {
	if alg != AlgEdDSA {
		return &SignatureError{Reason: fmt.Sprintf("ed25519 verifier cannot check alg %s", alg)}
	}
	if len(signature) != ed25519.SignatureSize {
		return &SignatureError{Reason: fmt.Sprintf("signature must be %d bytes, got %d", ed25519.SignatureSize, len(signature))}
	}
	if !ed25519.Verify(v.pub, data, signature) {
		return &SignatureError{Reason: "ed25519 signature verification failed"}
	}
	return nil
}

// DefaultKeyID derives an 8-byte key identifier from a public key by
// taking the leading bytes of its SHA-256 digest, mirroring the
// Subject Key Identifier convention (RFC 5280 §4.2.1.2, method (1))
// applied directly to a raw public key rather than a certificate.
func DefaultKeyID(pub []byte) []byte {
	sum := sha256.Sum256(pub)
	kid := make([]byte, 8)
	copy(kid, sum[:8])
	return kid
}
