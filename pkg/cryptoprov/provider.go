// Package cryptoprov defines the small capability surface the COSE layer
// signs, verifies, encrypts, and decrypts through, plus built-in providers
// for four COSE algorithms (RFC 9053): EdDSA/Ed25519, ES256/P-256,
// AES-256-GCM, and AES-128-GCM.
//
// A provider never hands key material across its interface boundary — it
// receives data to operate on and returns a result, a shape that lets an
// HSM- or KMS-backed implementation satisfy these interfaces without this
// module ever seeing a private key.
package cryptoprov

import "fmt"

// Alg is a COSE algorithm identifier (RFC 9053 registry values used by
// this module).
type Alg int64

const (
	AlgEdDSA   Alg = -8
	AlgES256   Alg = -7
	AlgA128GCM Alg = 1
	AlgA256GCM Alg = 3
)

func (a Alg) String() string {
	switch a {
	case AlgEdDSA:
		return "EdDSA"
	case AlgES256:
		return "ES256"
	case AlgA128GCM:
		return "A128GCM"
	case AlgA256GCM:
		return "A256GCM"
	default:
		return fmt.Sprintf("Alg(%d)", int64(a))
	}
}

// Signer produces a signature over the exact bytes the COSE layer hands
// it (the RFC 9052 Sig_structure encoding) — it never sees the
// credential's plaintext payload directly, only the canonical structure
// that wraps it.
type Signer interface {
	Algorithm() Alg
	// KeyID returns the key identifier to place in the COSE unprotected
	// header, or nil if the signer does not use one.
	KeyID() []byte
	Sign(data []byte) ([]byte, error)
}

// Verifier checks a signature produced by the matching Signer.
type Verifier interface {
	// Verify reports whether signature is a valid signature over data
	// under alg and (optionally) the given key identifier. A mismatched
	// signature, an unsupported alg, or any provider-internal failure is
	// reported as a non-nil error; this package's built-ins return
	// *SignatureError in that case.
	Verify(alg Alg, kid []byte, data []byte, signature []byte) error
}

// Encryptor authenticates and encrypts a plaintext under AEAD, given an
// explicit IV supplied by the caller. The caller generates the IV, not
// the provider, so a single provider instance can never be tricked into
// reusing a nonce across two encryptions.
type Encryptor interface {
	Algorithm() Alg
	KeyID() []byte
	Encrypt(iv, aad, plaintext []byte) (ciphertextWithTag []byte, err error)
}

// Decryptor reverses Encryptor.
type Decryptor interface {
	Decrypt(alg Alg, kid, iv, aad, ciphertextWithTag []byte) (plaintext []byte, err error)
}

// SignatureError reports signature verification failure, an unsupported
// algorithm, or any other verifier-side rejection.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string { return fmt.Sprintf("cryptoprov: signature error: %s", e.Reason) }

// DecryptionError reports AEAD authentication failure, a wrong key, or
// malformed ciphertext.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string { return fmt.Sprintf("cryptoprov: decryption error: %s", e.Reason) }

// EncryptionError reports an encryptor provider failure or a
// wrong-sized result.
type EncryptionError struct {
	Reason string
}

func (e *EncryptionError) Error() string { return fmt.Sprintf("cryptoprov: encryption error: %s", e.Reason) }
