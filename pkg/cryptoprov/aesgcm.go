package cryptoprov

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// ivSize is the fixed Encrypt0 IV length: 12 bytes, the standard
// AES-GCM nonce size.
const ivSize = 12

// AESGCMProvider is both the Encryptor and Decryptor for AES-256-GCM
// (32-byte key) and AES-128-GCM (16-byte key); the algorithm is fixed by
// the key length at construction time.
type AESGCMProvider struct {
	aead cipher.AEAD
	alg  Alg
	kid  []byte
}

// NewAESGCMProvider builds a provider from a 32-byte (AES-256-GCM) or
// 16-byte (AES-128-GCM) key.
func NewAESGCMProvider(key []byte, kid []byte) (*AESGCMProvider, error) {
	var alg Alg
	switch len(key) {
	case 32:
		alg = AlgA256GCM
	case 16:
		alg = AlgA128GCM
	default:
		return nil, fmt.Errorf("cryptoprov: AES-GCM key must be 16 or 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoprov: building AES cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("cryptoprov: building GCM mode: %w", err)
	}

	return &AESGCMProvider{aead: aead, alg: alg, kid: kid}, nil
}

func (p *AESGCMProvider) Algorithm() Alg { return p.alg }
func (p *AESGCMProvider) KeyID() []byte  { return p.kid }

// Encrypt authenticates and encrypts plaintext under aad, returning
// ciphertext with the GCM tag appended. The provider never generates
// its own IV; it only consumes the one the caller supplies, since
// reusing a nonce under the same key would break GCM's security bound.
func (p *AESGCMProvider) Encrypt(iv, aad, plaintext []byte) ([]byte, error) {
	if len(iv) != ivSize {
		return nil, &EncryptionError{Reason: fmt.Sprintf("IV must be %d bytes, got %d", ivSize, len(iv))}
	}
	return p.aead.Seal(nil, iv, plaintext, aad), nil
}

// Decrypt authenticates and decrypts ciphertextWithTag under aad. A
// mismatched tag, wrong key, or malformed ciphertext surfaces as
// *DecryptionError.
func (p *AESGCMProvider) Decrypt(alg Alg, kid, iv, aad, ciphertextWithTag []byte) ([]byte, error) {
	if alg != p.alg {
		return nil, &DecryptionError{Reason: fmt.Sprintf("provider configured for %s, envelope declares %s", p.alg, alg)}
	}
	if len(iv) != ivSize {
		return nil, &DecryptionError{Reason: fmt.Sprintf("IV must be %d bytes, got %d", ivSize, len(iv))}
	}

	plaintext, err := p.aead.Open(nil, iv, ciphertextWithTag, aad)
	if err != nil {
		return nil, &DecryptionError{Reason: "AEAD authentication failed"}
	}
	return plaintext, nil
}

// GenerateNonce returns 12 fresh random bytes suitable as an Encrypt0 IV.
// Callers must draw a fresh nonce for every encryption under a given
// key; providers never invent their own.
func GenerateNonce() ([ivSize]byte, error) {
	var iv [ivSize]byte
	if _, err := rand.Read(iv[:]); err != nil {
		return iv, fmt.Errorf("cryptoprov: generating nonce: %w", err)
	}
	return iv, nil
}
