package cryptoprov

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// NewEd25519VerifierFromPEM loads a PKIX-encoded Ed25519 public key from a
// PEM block. This is a convenience loader, not a new algorithm.
func NewEd25519VerifierFromPEM(pemData []byte) (*Ed25519Verifier, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("cryptoprov: no PEM block found")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("cryptoprov: parsing PKIX public key: %w", err)
	}

	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("cryptoprov: PEM block does not contain an Ed25519 public key")
	}

	return NewEd25519Verifier(edPub)
}

// parseES256PublicKeyDER accepts either a PKIX-wrapped public key or a
// bare SEC1 point, since some issuers ship the raw point inside a PEM
// "PUBLIC KEY" block without the PKIX AlgorithmIdentifier wrapper.
func parseES256PublicKeyDER(der []byte) (*ES256Verifier, error) {
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		ecPub, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("cryptoprov: PEM block does not contain an ECDSA public key")
		}
		if ecPub.Curve != elliptic.P256() {
			return nil, fmt.Errorf("cryptoprov: PEM block contains a non-P-256 curve")
		}
		return &ES256Verifier{pub: ecPub}, nil
	}

	return NewES256Verifier(der)
}
