package cryptoprov

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/pem"
	"fmt"
	"math/big"
)

const (
	p256ScalarSize      = 32
	p256UncompressedLen = 65
	p256CompressedLen   = 33
)

// ES256Signer signs with a 32-byte P-256 private scalar. Signatures are
// the fixed-width r||s form (64 bytes) COSE expects (RFC 9053 §2.1),
// never ASN.1/DER.
type ES256Signer struct {
	priv *ecdsa.PrivateKey
	kid  []byte
}

// NewES256Signer builds a signer from a 32-byte big-endian private
// scalar. If kid is nil, DefaultKeyID derives one from the public key in
// SEC1 uncompressed form.
func NewES256Signer(scalar []byte, kid []byte) (*ES256Signer, error) {
	if len(scalar) != p256ScalarSize {
		return nil, fmt.Errorf("cryptoprov: ES256 private scalar must be %d bytes, got %d", p256ScalarSize, len(scalar))
	}

	curve := elliptic.P256()
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = curve
	priv.D = new(big.Int).SetBytes(scalar)
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(scalar)

	if kid == nil {
		kid = DefaultKeyID(elliptic.Marshal(curve, priv.PublicKey.X, priv.PublicKey.Y))
	}

	return &ES256Signer{priv: priv, kid: kid}, nil
}

func (s *ES256Signer) Algorithm() Alg { return AlgES256 }
func (s *ES256Signer) KeyID() []byte  { return s.kid }

// PublicKeyUncompressed returns the SEC1 uncompressed (0x04||X||Y, 65
// byte) form of the signer's public key, for distributing to verifiers.
func (s *ES256Signer) PublicKeyUncompressed() []byte {
	return elliptic.Marshal(s.priv.Curve, s.priv.PublicKey.X, s.priv.PublicKey.Y)
}

// PublicKeyCompressed returns the SEC1 compressed (33 byte) form of the
// signer's public key.
func (s *ES256Signer) PublicKeyCompressed() []byte {
	return elliptic.MarshalCompressed(s.priv.Curve, s.priv.PublicKey.X, s.priv.PublicKey.Y)
}

func (s *ES256Signer) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)

	r, sVal, err := ecdsa.Sign(rand.Reader, s.priv, digest[:])
	if err != nil {
		return nil, fmt.Errorf("cryptoprov: ES256 sign failed: %w", err)
	}

	sig := make([]byte, 2*p256ScalarSize)
	r.FillBytes(sig[:p256ScalarSize])
	sVal.FillBytes(sig[p256ScalarSize:])
	return sig, nil
}

// ES256Verifier verifies against a P-256 public key in SEC1 form, either
// compressed (33 bytes) or uncompressed (65 bytes).
type ES256Verifier struct {
	pub *ecdsa.PublicKey
}

// NewES256Verifier builds a verifier from a SEC1-encoded public key.
func NewES256Verifier(sec1 []byte) (*ES256Verifier, error) {
	curve := elliptic.P256()

	var x, y *big.Int
	switch len(sec1) {
	case p256UncompressedLen:
		x, y = elliptic.Unmarshal(curve, sec1)
	case p256CompressedLen:
		x, y = elliptic.UnmarshalCompressed(curve, sec1)
	default:
		return nil, fmt.Errorf("cryptoprov: ES256 public key must be %d (compressed) or %d (uncompressed) bytes, got %d",
			p256CompressedLen, p256UncompressedLen, len(sec1))
	}
	if x == nil {
		return nil, fmt.Errorf("cryptoprov: invalid P-256 public key encoding")
	}

	return &ES256Verifier{pub: &ecdsa.PublicKey{Curve: curve, X: x, Y: y}}, nil
}

// NewES256VerifierFromPEM loads a PEM-encoded public key of either SEC1
// or PKIX form and builds a verifier from it. This is a convenience
// loader over the same ES256 verifier, not a distinct algorithm.
func NewES256VerifierFromPEM(pemData []byte) (*ES256Verifier, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("cryptoprov: no PEM block found")
	}
	return parseES256PublicKeyDER(block.Bytes)
}

func (v *ES256Verifier) Verify(alg Alg, kid, data, signature []byte) error {
	if alg != AlgES256 {
		return &SignatureError{Reason: fmt.Sprintf("ES256 verifier cannot check alg %s", alg)}
	}
	if len(signature) != 2*p256ScalarSize {
		return &SignatureError{Reason: fmt.Sprintf("signature must be %d bytes (r||s), got %d", 2*p256ScalarSize, len(signature))}
	}

	r := new(big.Int).SetBytes(signature[:p256ScalarSize])
	s := new(big.Int).SetBytes(signature[p256ScalarSize:])

	digest := sha256.Sum256(data)
	if !ecdsa.Verify(v.pub, digest[:], r, s) {
		return &SignatureError{Reason: "ES256 signature verification failed"}
	}
	return nil
}
