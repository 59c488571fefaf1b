package cose

import (
	"fmt"

	"github.com/veritaslabs/claim169/pkg/cbor"
	"github.com/veritaslabs/claim169/pkg/cryptoprov"
)

const sig1Context = "Signature1"

// Sign1 is a parsed COSE_Sign1 structure (RFC 9052 §4.2): the decoded
// protected header bytes (kept verbatim, never re-canonicalized, so a
// later Sig_structure rebuild matches byte-for-byte what was signed),
// its alg/kid, the payload, and the signature.
type Sign1 struct {
	ProtectedBytes []byte
	Alg            int64
	Kid            []byte
	Payload        []byte
	Signature      []byte
}

// sigStructureBytes builds the canonical ["Signature1", protected, "",
// payload] CBOR array (RFC 9052 §4.4) a signer signs or a verifier
// checks. external_aad is always empty in this module.
func sigStructureBytes(protected, payload []byte) []byte {
	return cbor.Marshal(cbor.Array([]cbor.Value{
		cbor.Text(sig1Context),
		cbor.Bytes(protected),
		cbor.Bytes(nil),
		cbor.Bytes(payload),
	}))
}

// BuildSign1 constructs and serializes a tagged COSE_Sign1 structure over
// payload, signed with signer. The protected header carries {1: alg}; the
// unprotected header carries {4: kid} when the signer provides one.
func BuildSign1(signer cryptoprov.Signer, payload []byte) ([]byte, error) {
	protected := encodeProtectedAlg(int64(signer.Algorithm()))

	toBeSigned := sigStructureBytes(protected, payload)
	signature, err := signer.Sign(toBeSigned)
	if err != nil {
		return nil, fmt.Errorf("cose: signing Sig_structure: %w", err)
	}

	var unprotected []cbor.MapEntry
	if kid := signer.KeyID(); len(kid) > 0 {
		unprotected = append(unprotected, cbor.UintEntry(HeaderKid, cbor.Bytes(kid)))
	}

	arr := cbor.Array([]cbor.Value{
		cbor.Bytes(protected),
		cbor.Map(unprotected),
		cbor.Bytes(payload),
		cbor.Bytes(signature),
	})

	return cbor.Marshal(cbor.Tagged(TagSign1, arr)), nil
}

// ParseSign1 decodes a (normally tagged) COSE_Sign1 structure. When
// allowUntagged is false (the default posture), an untagged 4-element
// array is rejected — RFC 9052 §2 reserves CBOR tag 18 for COSE_Sign1,
// and accepting an untagged array by default would let a CWT claims
// array or any other 4-element array be mistaken for one.
func ParseSign1(data []byte, maxInput int, allowUntagged bool) (*Sign1, error) {
	d := cbor.NewDecoder(maxInput)
	v, n, err := d.Unmarshal(data)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("decoding CBOR: %v", err)}
	}
	if n != len(data) {
		return nil, &ParseError{Reason: "trailing bytes after COSE_Sign1"}
	}

	arr := v
	if v.Kind == cbor.KindTag {
		if v.Tag != TagSign1 {
			return nil, &ParseError{Reason: fmt.Sprintf("expected tag %d, got %d", TagSign1, v.Tag)}
		}
		arr = *v.Tagged
	} else if !allowUntagged {
		return nil, &ParseError{Reason: "COSE_Sign1 must be tagged (18); pass allowUntagged to accept untagged input"}
	}

	if arr.Kind != cbor.KindArray || len(arr.Array) != 4 {
		return nil, &ParseError{Reason: "COSE_Sign1 must be a 4-element array"}
	}

	protectedVal, unprotectedVal, payloadVal, sigVal := arr.Array[0], arr.Array[1], arr.Array[2], arr.Array[3]
	if protectedVal.Kind != cbor.KindBytes || payloadVal.Kind != cbor.KindBytes || sigVal.Kind != cbor.KindBytes {
		return nil, &ParseError{Reason: "COSE_Sign1 protected/payload/signature must be byte strings"}
	}
	if unprotectedVal.Kind != cbor.KindMap {
		return nil, &ParseError{Reason: "COSE_Sign1 unprotected header must be a map"}
	}

	alg, protectedKid, err := decodeProtectedHeader(protectedVal.Bytes, maxInput)
	if err != nil {
		return nil, err
	}
	if a := cryptoprov.Alg(alg); a != cryptoprov.AlgEdDSA && a != cryptoprov.AlgES256 {
		return nil, &ParseError{Reason: fmt.Sprintf("unsupported COSE_Sign1 algorithm %s", a)}
	}

	kid := protectedKid
	if kid == nil {
		kid = unprotectedBytes(unprotectedVal.Map, HeaderKid)
	}

	return &Sign1{
		ProtectedBytes: protectedVal.Bytes,
		Alg:            alg,
		Kid:            kid,
		Payload:        payloadVal.Bytes,
		Signature:      sigVal.Bytes,
	}, nil
}

// Verify rebuilds the Sig_structure from s's verbatim protected bytes and
// payload and checks it against verifier. Any mismatch, unsupported alg,
// or provider error is reported as *cryptoprov.SignatureError.
func (s *Sign1) Verify(verifier cryptoprov.Verifier) error {
	toBeSigned := sigStructureBytes(s.ProtectedBytes, s.Payload)
	return verifier.Verify(cryptoprov.Alg(s.Alg), s.Kid, toBeSigned, s.Signature)
}
