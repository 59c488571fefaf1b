// Package cose constructs and parses the COSE (RFC 9052) envelopes this
// module uses: Sign1 (tag 18) and Encrypt0 (tag 16). It builds the
// canonical Sig_structure and Enc_structure byte strings the crypto
// provider layer (pkg/cryptoprov) signs, verifies, encrypts, or decrypts.
package cose

import (
	"fmt"

	"github.com/veritaslabs/claim169/pkg/cbor"
)

// Header labels, per the COSE Common Header Parameters registry.
const (
	HeaderAlg = 1
	HeaderKid = 4
	HeaderIV  = 5
)

// Tags, per RFC 9052 §2.
const (
	TagSign1    = 18
	TagEncrypt0 = 16
)

// ParseError reports malformed CBOR, a wrong tag, a wrong array shape, or
// an unsupported algorithm encountered while parsing a COSE structure.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("cose: %s", e.Reason) }

// encodeProtectedAlg builds the CBOR-encoded protected header map carrying
// {1: alg}. Protected headers are covered by the signature/AEAD tag, so
// alg belongs here rather than in the unprotected header.
func encodeProtectedAlg(alg int64) []byte {
	return cbor.Marshal(cbor.Map([]cbor.MapEntry{
		cbor.UintEntry(HeaderAlg, cbor.Int(alg)),
	}))
}

// decodeProtectedHeader parses a protected header byte string into its
// alg (0 if absent) and kid (nil if absent) fields.
func decodeProtectedHeader(protected []byte, maxInput int) (alg int64, kid []byte, err error) {
	if len(protected) == 0 {
		return 0, nil, nil
	}

	d := cbor.NewDecoder(maxInput)
	v, n, err := d.Unmarshal(protected)
	if err != nil {
		return 0, nil, &ParseError{Reason: fmt.Sprintf("decoding protected header: %v", err)}
	}
	if n != len(protected) {
		return 0, nil, &ParseError{Reason: "trailing bytes after protected header"}
	}
	if v.Kind != cbor.KindMap {
		return 0, nil, &ParseError{Reason: "protected header is not a map"}
	}

	for _, e := range v.Map {
		if e.Key.Kind != cbor.KindUint && e.Key.Kind != cbor.KindNegInt {
			continue
		}
		switch e.Key.Int() {
		case HeaderAlg:
			alg = e.Value.Int()
		case HeaderKid:
			if e.Value.Kind == cbor.KindBytes {
				kid = e.Value.Bytes
			}
		}
	}
	return alg, kid, nil
}

// unprotectedBytes extracts the byte-string value stored under label (kid
// is 4, IV is 5) from a decoded unprotected header map, or nil if absent.
func unprotectedBytes(m []cbor.MapEntry, label int64) []byte {
	for _, e := range m {
		if (e.Key.Kind == cbor.KindUint || e.Key.Kind == cbor.KindNegInt) && e.Key.Int() == label && e.Value.Kind == cbor.KindBytes {
			return e.Value.Bytes
		}
	}
	return nil
}
