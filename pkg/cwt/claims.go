// Package cwt reads and writes the CBOR Web Token (RFC 8392) claims map
// this module nests inside a COSE envelope: the five standard claims
// iss/sub/exp/nbf/iat plus private claim 169, which wraps the inner
// identity map as an opaque CBOR byte string.
package cwt

import (
	"fmt"

	"github.com/veritaslabs/claim169/pkg/cbor"
)

// Claim keys, per RFC 8392 §3.1 for the registered claims. 169 is a
// private-use claim key carrying the identity map.
const (
	KeyIss      = 1
	KeySub      = 2
	KeyExp      = 4
	KeyNbf      = 5
	KeyIat      = 6
	KeyClaim169 = 169
)

// ParseError reports a malformed claims map or a structural timestamp
// inversion (exp before nbf or iat) detected while decoding.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("cwt: %s", e.Reason) }

// ExpiredError reports that, at validation time, now exceeds exp plus
// the configured clock skew tolerance.
type ExpiredError struct {
	Now, ExpiresAt uint64
	SkewSeconds    int64
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("cwt: expired: now=%d exp=%d skew=%d", e.Now, e.ExpiresAt, e.SkewSeconds)
}

// NotYetValidError reports that, at validation time, now precedes nbf
// minus the configured clock skew tolerance.
type NotYetValidError struct {
	Now, NotBefore uint64
	SkewSeconds    int64
}

func (e *NotYetValidError) Error() string {
	return fmt.Sprintf("cwt: not yet valid: now=%d nbf=%d skew=%d", e.Now, e.NotBefore, e.SkewSeconds)
}

// Claims is the decoded CWT claims map. Optional standard claims are nil
// pointers when absent; Claim169 carries the inner identity map's raw
// CBOR bytes verbatim rather than a re-decoded structure — nesting the
// encoding this way means a future identity-map schema change does not
// require touching the signature-covered claims map at all. Unknown
// holds any claim-map entry whose key is not one of the six recognized
// integer keys, preserved opaquely so a decode-then-re-encode round
// trip reproduces the original claim set.
type Claims struct {
	Issuer     *string
	Subject    *string
	ExpiresAt  *uint64
	NotBefore  *uint64
	IssuedAt   *uint64
	Claim169   []byte
	Unknown    []cbor.MapEntry
}

// Marshal encodes c as a canonical CBOR integer-keyed map.
func (c *Claims) Marshal() []byte {
	var entries []cbor.MapEntry
	if c.Issuer != nil {
		entries = append(entries, cbor.UintEntry(KeyIss, cbor.Text(*c.Issuer)))
	}
	if c.Subject != nil {
		entries = append(entries, cbor.UintEntry(KeySub, cbor.Text(*c.Subject)))
	}
	if c.ExpiresAt != nil {
		entries = append(entries, cbor.UintEntry(KeyExp, cbor.Uint(*c.ExpiresAt)))
	}
	if c.NotBefore != nil {
		entries = append(entries, cbor.UintEntry(KeyNbf, cbor.Uint(*c.NotBefore)))
	}
	if c.IssuedAt != nil {
		entries = append(entries, cbor.UintEntry(KeyIat, cbor.Uint(*c.IssuedAt)))
	}
	if c.Claim169 != nil {
		entries = append(entries, cbor.UintEntry(KeyClaim169, cbor.Bytes(c.Claim169)))
	}
	entries = append(entries, c.Unknown...)
	return cbor.Marshal(cbor.Map(entries))
}

// Unmarshal decodes a CWT claims map from data, rejecting a malformed
// shape or a structural exp/nbf/iat inversion: exp must be >= nbf and
// >= iat whenever both are present, since an expiry before validity
// begins can never be satisfied.
func Unmarshal(data []byte, maxInput int) (*Claims, error) {
	d := cbor.NewDecoder(maxInput)
	v, n, err := d.Unmarshal(data)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("decoding CBOR: %v", err)}
	}
	if n != len(data) {
		return nil, &ParseError{Reason: "trailing bytes after CWT claims map"}
	}
	if v.Kind != cbor.KindMap {
		return nil, &ParseError{Reason: "CWT claims must be a map"}
	}

	claims := &Claims{}
	for _, e := range v.Map {
		if e.Key.Kind != cbor.KindUint && e.Key.Kind != cbor.KindNegInt {
			claims.Unknown = append(claims.Unknown, e)
			continue
		}
		switch e.Key.Int() {
		case KeyIss:
			if e.Value.Kind != cbor.KindText {
				return nil, &ParseError{Reason: "iss (1) must be a text string"}
			}
			s := e.Value.Text()
			claims.Issuer = &s
		case KeySub:
			if e.Value.Kind != cbor.KindText {
				return nil, &ParseError{Reason: "sub (2) must be a text string"}
			}
			s := e.Value.Text()
			claims.Subject = &s
		case KeyExp:
			if e.Value.Kind != cbor.KindUint {
				return nil, &ParseError{Reason: "exp (4) must be an unsigned integer"}
			}
			u := e.Value.Uint
			claims.ExpiresAt = &u
		case KeyNbf:
			if e.Value.Kind != cbor.KindUint {
				return nil, &ParseError{Reason: "nbf (5) must be an unsigned integer"}
			}
			u := e.Value.Uint
			claims.NotBefore = &u
		case KeyIat:
			if e.Value.Kind != cbor.KindUint {
				return nil, &ParseError{Reason: "iat (6) must be an unsigned integer"}
			}
			u := e.Value.Uint
			claims.IssuedAt = &u
		case KeyClaim169:
			if e.Value.Kind != cbor.KindBytes {
				return nil, &ParseError{Reason: "claim-169 (169) must be a byte string"}
			}
			claims.Claim169 = e.Value.Bytes
		default:
			claims.Unknown = append(claims.Unknown, e)
		}
	}

	if claims.ExpiresAt != nil && claims.NotBefore != nil && *claims.ExpiresAt < *claims.NotBefore {
		return nil, &ParseError{Reason: "exp precedes nbf"}
	}
	if claims.ExpiresAt != nil && claims.IssuedAt != nil && *claims.ExpiresAt < *claims.IssuedAt {
		return nil, &ParseError{Reason: "exp precedes iat"}
	}

	return claims, nil
}

// CheckTimestamps applies the decode-time clock policy: exp present and
// now > exp+skew fails with *ExpiredError; nbf present
// and now < nbf-skew fails with *NotYetValidError. A missing exp is
// allowed — callers surface that through their own verification status,
// not as an error here.
func CheckTimestamps(c *Claims, now uint64, skewSeconds int64) error {
	if c.ExpiresAt != nil {
		limit := int64(*c.ExpiresAt) + skewSeconds
		if int64(now) > limit {
			return &ExpiredError{Now: now, ExpiresAt: *c.ExpiresAt, SkewSeconds: skewSeconds}
		}
	}
	if c.NotBefore != nil {
		limit := int64(*c.NotBefore) - skewSeconds
		if int64(now) < limit {
			return &NotYetValidError{Now: now, NotBefore: *c.NotBefore, SkewSeconds: skewSeconds}
		}
	}
	return nil
}
