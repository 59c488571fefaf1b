package cose

import (
	"fmt"

	"github.com/veritaslabs/claim169/pkg/cbor"
	"github.com/veritaslabs/claim169/pkg/cryptoprov"
)

const enc0Context = "Encrypt0"

// Encrypt0 is a parsed COSE_Encrypt0 structure (RFC 9052 §5.2): a
// 3-element array with no detached tag field — the AEAD authentication
// tag travels concatenated onto the ciphertext, as AES-GCM produces it.
type Encrypt0 struct {
	ProtectedBytes []byte
	Alg            int64
	Kid            []byte
	IV             []byte
	Ciphertext     []byte
}

// encStructureBytes builds the canonical ["Encrypt0", protected, ""]
// CBOR array (RFC 9052 §5.3) used as AEAD associated data.
func encStructureBytes(protected []byte) []byte {
	return cbor.Marshal(cbor.Array([]cbor.Value{
		cbor.Text(enc0Context),
		cbor.Bytes(protected),
		cbor.Bytes(nil),
	}))
}

// BuildEncrypt0 constructs and serializes a tagged COSE_Encrypt0
// structure over plaintext, using the given IV. The caller generates the
// IV; an AEAD provider must never invent its own nonce, since nonce
// reuse under the same key breaks AES-GCM's confidentiality guarantee.
func BuildEncrypt0(encryptor cryptoprov.Encryptor, iv [12]byte, plaintext []byte) ([]byte, error) {
	protected := encodeProtectedAlg(int64(encryptor.Algorithm()))
	aad := encStructureBytes(protected)

	ciphertext, err := encryptor.Encrypt(iv[:], aad, plaintext)
	if err != nil {
		return nil, fmt.Errorf("cose: encrypting: %w", err)
	}

	unprotected := []cbor.MapEntry{
		cbor.UintEntry(HeaderIV, cbor.Bytes(iv[:])),
	}
	if kid := encryptor.KeyID(); len(kid) > 0 {
		unprotected = append(unprotected, cbor.UintEntry(HeaderKid, cbor.Bytes(kid)))
	}

	arr := cbor.Array([]cbor.Value{
		cbor.Bytes(protected),
		cbor.Map(unprotected),
		cbor.Bytes(ciphertext),
	})

	return cbor.Marshal(cbor.Tagged(TagEncrypt0, arr)), nil
}

// ParseEncrypt0 decodes a (normally tagged) COSE_Encrypt0 structure.
func ParseEncrypt0(data []byte, maxInput int, allowUntagged bool) (*Encrypt0, error) {
	d := cbor.NewDecoder(maxInput)
	v, n, err := d.Unmarshal(data)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("decoding CBOR: %v", err)}
	}
	if n != len(data) {
		return nil, &ParseError{Reason: "trailing bytes after COSE_Encrypt0"}
	}

	arr := v
	if v.Kind == cbor.KindTag {
		if v.Tag != TagEncrypt0 {
			return nil, &ParseError{Reason: fmt.Sprintf("expected tag %d, got %d", TagEncrypt0, v.Tag)}
		}
		arr = *v.Tagged
	} else if !allowUntagged {
		return nil, &ParseError{Reason: "COSE_Encrypt0 must be tagged (16); pass allowUntagged to accept untagged input"}
	}

	if arr.Kind != cbor.KindArray || len(arr.Array) != 3 {
		return nil, &ParseError{Reason: "COSE_Encrypt0 must be a 3-element array"}
	}

	protectedVal, unprotectedVal, ciphertextVal := arr.Array[0], arr.Array[1], arr.Array[2]
	if protectedVal.Kind != cbor.KindBytes || ciphertextVal.Kind != cbor.KindBytes {
		return nil, &ParseError{Reason: "COSE_Encrypt0 protected/ciphertext must be byte strings"}
	}
	if unprotectedVal.Kind != cbor.KindMap {
		return nil, &ParseError{Reason: "COSE_Encrypt0 unprotected header must be a map"}
	}

	alg, _, err := decodeProtectedHeader(protectedVal.Bytes, maxInput)
	if err != nil {
		return nil, err
	}
	if a := cryptoprov.Alg(alg); a != cryptoprov.AlgA128GCM && a != cryptoprov.AlgA256GCM {
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported COSE_Encrypt0 algorithm %s", a)}
	}

	iv := unprotectedBytes(unprotectedVal.Map, HeaderIV)
	if len(iv) == 0 {
		return nil, &ParseError{Reason: "COSE_Encrypt0 unprotected header is missing IV (label 5)"}
	}
	kid := unprotectedBytes(unprotectedVal.Map, HeaderKid)

	return &Encrypt0{
		ProtectedBytes: protectedVal.Bytes,
		Alg:            alg,
		Kid:            kid,
		IV:             iv,
		Ciphertext:     ciphertextVal.Bytes,
	}, nil
}

// Decrypt rebuilds the Enc_structure from e's verbatim protected bytes
// and authenticates/decrypts the ciphertext against decryptor. AEAD
// failure surfaces as *cryptoprov.DecryptionError.
func (e *Encrypt0) Decrypt(decryptor cryptoprov.Decryptor) ([]byte, error) {
	aad := encStructureBytes(e.ProtectedBytes)
	return decryptor.Decrypt(cryptoprov.Alg(e.Alg), e.Kid, e.IV, aad, e.Ciphertext)
}
