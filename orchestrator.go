package claim169

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/veritaslabs/claim169/internal/wipe"
	"github.com/veritaslabs/claim169/pkg/base45"
	"github.com/veritaslabs/claim169/pkg/cbor"
	"github.com/veritaslabs/claim169/pkg/cose"
	"github.com/veritaslabs/claim169/pkg/cryptoprov"
	"github.com/veritaslabs/claim169/pkg/cwt"
	"github.com/veritaslabs/claim169/pkg/identity"
	"github.com/veritaslabs/claim169/pkg/zlibframe"
)

// dateLayouts are the two textual shapes date_of_birth may take. A
// credential round trip must reproduce whichever of the two the caller
// supplied, so the value is never reformatted, only validated.
var dateLayouts = []string{"2006-01-02", "20060102"}

func newCWTClaims(meta Meta, claim169Bytes []byte) *cwt.Claims {
	claims := &cwt.Claims{Claim169: claim169Bytes}
	if meta.Issuer != "" {
		iss := meta.Issuer
		claims.Issuer = &iss
	}
	if meta.Subject != "" {
		sub := meta.Subject
		claims.Subject = &sub
	}
	claims.ExpiresAt = meta.ExpiresAt
	claims.NotBefore = meta.NotBefore
	claims.IssuedAt = meta.IssuedAt
	return claims
}

func encodePayload(record *identity.Record, meta Meta, cfg EncodeConfig) ([]byte, error) {
	inner, err := identity.Marshal(record, cfg.SkipBiometrics)
	if err != nil {
		return nil, &CwtParseError{Err: err}
	}
	return newCWTClaims(meta, inner).Marshal(), nil
}

func finalizeCredential(payload []byte) string {
	compressed := zlibframe.Compress(payload)
	return base45.Encode(compressed)
}

// EncodeUnsigned produces a credential with no COSE envelope at all —
// the compressed bytes wrap the CWT claims map directly. Decoding it
// always yields verification_status "skipped", since there is no
// signature to check.
func EncodeUnsigned(record *identity.Record, meta Meta, cfg EncodeConfig) (string, error) {
	timer := prometheus.NewTimer(EncodeDuration)
	defer timer.ObserveDuration()
	corrID := uuid.NewString()

	log.WithField("correlation_id", corrID).Debug("encode_unsigned: start")
	payload, err := encodePayload(record, meta, cfg)
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_unsigned: %v", err)
		return "", err
	}
	cred := finalizeCredential(payload)
	log.WithField("correlation_id", corrID).Debugf("encode_unsigned: produced %d byte credential", len(cred))
	return cred, nil
}

// EncodeSigned wraps the CWT claims map in a COSE_Sign1 envelope.
func EncodeSigned(record *identity.Record, meta Meta, cfg EncodeConfig, signer cryptoprov.Signer) (string, error) {
	timer := prometheus.NewTimer(EncodeDuration)
	defer timer.ObserveDuration()
	corrID := uuid.NewString()

	log.WithField("correlation_id", corrID).Debug("encode_signed: start")
	payload, err := encodePayload(record, meta, cfg)
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_signed: %v", err)
		return "", err
	}
	sign1Bytes, err := cose.BuildSign1(signer, payload)
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_signed: %v", err)
		return "", &SignatureError{Err: err}
	}
	cred := finalizeCredential(sign1Bytes)
	log.WithField("correlation_id", corrID).Debugf("encode_signed: produced %d byte credential", len(cred))
	return cred, nil
}

// EncodeSignedEncrypted wraps a COSE_Sign1 structure inside a
// COSE_Encrypt0 envelope — sign-then-encrypt, so the Encrypt0 plaintext
// is itself a complete, independently verifiable Sign1 structure.
func EncodeSignedEncrypted(record *identity.Record, meta Meta, cfg EncodeConfig, signer cryptoprov.Signer, encryptor cryptoprov.Encryptor) (string, error) {
	timer := prometheus.NewTimer(EncodeDuration)
	defer timer.ObserveDuration()
	corrID := uuid.NewString()

	log.WithField("correlation_id", corrID).Debug("encode_signed_encrypted: start")
	payload, err := encodePayload(record, meta, cfg)
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_signed_encrypted: %v", err)
		return "", err
	}
	sign1Bytes, err := cose.BuildSign1(signer, payload)
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_signed_encrypted: %v", err)
		return "", &SignatureError{Err: err}
	}

	iv, err := cryptoprov.GenerateNonce()
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_signed_encrypted: %v", err)
		return "", &EncryptionError{Err: err}
	}
	encrypt0Bytes, err := cose.BuildEncrypt0(encryptor, iv, sign1Bytes)
	// sign1Bytes held the plaintext COSE_Sign1 structure that is now
	// wrapped inside the ciphertext; it's short-lived and never
	// retained, but wiped here on general principle.
	wipe.Bytes(sign1Bytes)
	if err != nil {
		log.WithField("correlation_id", corrID).Errorf("encode_signed_encrypted: %v", err)
		return "", &EncryptionError{Err: err}
	}

	cred := finalizeCredential(encrypt0Bytes)
	log.WithField("correlation_id", corrID).Debugf("encode_signed_encrypted: produced %d byte credential", len(cred))
	return cred, nil
}

func decompressCredential(qr string, cfg DecodeConfig) ([]byte, error) {
	compressed, err := base45.Decode(qr)
	if err != nil {
		return nil, &Base45DecodeError{Err: err}
	}

	maxDecompressed := cfg.MaxDecompressedBytes
	if maxDecompressed <= 0 {
		maxDecompressed = zlibframe.DefaultMaxDecompressedBytes
	}
	decompressed, err := zlibframe.Decompress(compressed, maxDecompressed)
	if err != nil {
		return nil, &DecompressError{Err: err}
	}
	return decompressed, nil
}

// envelopeKind classifies the top-level CBOR item produced after
// decompression: a bare CWT claims map (the unsigned shape), a tagged
// COSE_Sign1, or a tagged COSE_Encrypt0.
func envelopeKind(data []byte) (string, error) {
	d := cbor.NewDecoder(len(data))
	v, n, err := d.Unmarshal(data)
	if err != nil {
		return "", &CoseParseError{Err: err}
	}
	if n != len(data) {
		return "", &CoseParseError{Err: fmt.Errorf("trailing bytes after envelope")}
	}

	switch v.Kind {
	case cbor.KindTag:
		switch v.Tag {
		case cose.TagSign1:
			return "sign1", nil
		case cose.TagEncrypt0:
			return "encrypt0", nil
		default:
			return "", &CoseParseError{Err: fmt.Errorf("unsupported COSE tag %d", v.Tag)}
		}
	case cbor.KindMap:
		return "bare", nil
	default:
		return "", &CoseParseError{Err: fmt.Errorf("unrecognized envelope shape (CBOR kind %d)", v.Kind)}
	}
}

func claimsFromBytes(cwtBytes []byte) (*cwt.Claims, error) {
	claims, err := cwt.Unmarshal(cwtBytes, len(cwtBytes))
	if err != nil {
		return nil, &CwtParseError{Err: err}
	}
	if claims.Claim169 == nil {
		return nil, &Claim169NotFoundError{}
	}
	return claims, nil
}

// validateDateOfBirth rejects a calendar date that does not exist
// (e.g. 1990-02-30) without ever rewriting the caller's string. This
// lives here rather than in the identity schema layer because it needs
// a fully parsed date, which only exists once the record is assembled.
func validateDateOfBirth(s string) error {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Format(layout) == s {
			return nil
		}
	}
	return &Claim169Exception{Reason: fmt.Sprintf("date_of_birth %q is not a valid calendar date", s)}
}

func classifyTimestampError(err error) error {
	switch err.(type) {
	case *cwt.ExpiredError:
		return &Claim169Exception{Reason: "expired", Err: err}
	case *cwt.NotYetValidError:
		return &Claim169Exception{Reason: "not yet valid", Err: err}
	default:
		return &Claim169Exception{Reason: "timestamp validation failed", Err: err}
	}
}

func buildResult(claims *cwt.Claims, status VerificationStatus, cfg DecodeConfig) (DecodeResult, error) {
	record, err := identity.Unmarshal(claims.Claim169, len(claims.Claim169), cfg.SkipBiometrics)
	if err != nil {
		return DecodeResult{}, &CwtParseError{Err: err}
	}
	if record.DateOfBirth != "" {
		if err := validateDateOfBirth(record.DateOfBirth); err != nil {
			return DecodeResult{}, err
		}
	}
	if cfg.ValidateTimestamps {
		now := uint64(time.Now().Unix())
		if err := cwt.CheckTimestamps(claims, now, cfg.ClockSkewToleranceSeconds); err != nil {
			return DecodeResult{}, classifyTimestampError(err)
		}
	}
	if claims.ExpiresAt == nil {
		log.Warn("decode: credential carries no exp claim")
	}

	return DecodeResult{
		Claim169: record,
		CWTMeta: CWTMeta{
			Issuer:    claims.Issuer,
			Subject:   claims.Subject,
			ExpiresAt: claims.ExpiresAt,
			NotBefore: claims.NotBefore,
			IssuedAt:  claims.IssuedAt,
		},
		VerificationStatus: status,
	}, nil
}

// DecodeUnverified parses a credential without checking any signature.
// It accepts the unsigned (bare CWT map) shape as well as a signed
// COSE_Sign1 shape whose signature it deliberately does not check;
// verification_status is always "skipped". An encrypted credential is
// rejected — use DecodeEncrypted, since an Encrypt0 envelope cannot be
// read at all without the decryption key.
func DecodeUnverified(qr string, cfg DecodeConfig) (DecodeResult, error) {
	timer := prometheus.NewTimer(DecodeDuration)
	defer timer.ObserveDuration()

	data, err := decompressCredential(qr, cfg)
	if err != nil {
		return DecodeResult{}, err
	}
	kind, err := envelopeKind(data)
	if err != nil {
		return DecodeResult{}, err
	}

	var cwtBytes []byte
	switch kind {
	case "bare":
		cwtBytes = data
	case "sign1":
		sign1, err := cose.ParseSign1(data, len(data), false)
		if err != nil {
			return DecodeResult{}, &CoseParseError{Err: err}
		}
		cwtBytes = sign1.Payload
	case "encrypt0":
		return DecodeResult{}, &Claim169Exception{Reason: "credential is encrypted; use DecodeEncrypted"}
	}

	claims, err := claimsFromBytes(cwtBytes)
	if err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, err
	}
	result, err := buildResult(claims, VerificationSkipped, cfg)
	if err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, err
	}
	VerificationTotal.WithLabelValues("skipped").Inc()
	return result, nil
}

// DecodeWithVerifier requires a COSE_Sign1 envelope and checks its
// signature against verifier.
func DecodeWithVerifier(qr string, verifier cryptoprov.Verifier, cfg DecodeConfig) (DecodeResult, error) {
	timer := prometheus.NewTimer(DecodeDuration)
	defer timer.ObserveDuration()

	data, err := decompressCredential(qr, cfg)
	if err != nil {
		return DecodeResult{}, err
	}
	kind, err := envelopeKind(data)
	if err != nil {
		return DecodeResult{}, err
	}
	if kind != "sign1" {
		return DecodeResult{}, &CoseParseError{Err: fmt.Errorf("expected COSE_Sign1, got %s envelope", kind)}
	}

	sign1, err := cose.ParseSign1(data, len(data), false)
	if err != nil {
		return DecodeResult{}, &CoseParseError{Err: err}
	}
	if err := sign1.Verify(verifier); err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, &SignatureError{Err: err}
	}

	claims, err := claimsFromBytes(sign1.Payload)
	if err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, err
	}
	result, err := buildResult(claims, VerificationVerified, cfg)
	if err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, err
	}
	VerificationTotal.WithLabelValues("verified").Inc()
	return result, nil
}

// DecodeEncrypted requires a COSE_Encrypt0 envelope, decrypts it with
// decryptor, then verifies the inner COSE_Sign1 it must contain against
// verifier — mirroring EncodeSignedEncrypted's sign-then-encrypt shape.
func DecodeEncrypted(qr string, decryptor cryptoprov.Decryptor, verifier cryptoprov.Verifier, cfg DecodeConfig) (DecodeResult, error) {
	timer := prometheus.NewTimer(DecodeDuration)
	defer timer.ObserveDuration()

	data, err := decompressCredential(qr, cfg)
	if err != nil {
		return DecodeResult{}, err
	}
	kind, err := envelopeKind(data)
	if err != nil {
		return DecodeResult{}, err
	}
	if kind != "encrypt0" {
		return DecodeResult{}, &CoseParseError{Err: fmt.Errorf("expected COSE_Encrypt0, got %s envelope", kind)}
	}

	enc0, err := cose.ParseEncrypt0(data, len(data), false)
	if err != nil {
		return DecodeResult{}, &CoseParseError{Err: err}
	}
	plaintext, err := enc0.Decrypt(decryptor)
	if err != nil {
		DecryptionFailureTotal.Inc()
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, &DecryptionError{Err: err}
	}
	secret := wipe.NewSecret(plaintext)
	defer secret.Release()

	sign1, err := cose.ParseSign1(secret.Bytes(), len(plaintext), false)
	if err != nil {
		return DecodeResult{}, &CoseParseError{Err: err}
	}
	if err := sign1.Verify(verifier); err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, &SignatureError{Err: err}
	}

	claims, err := claimsFromBytes(sign1.Payload)
	if err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, err
	}
	result, err := buildResult(claims, VerificationVerified, cfg)
	if err != nil {
		VerificationTotal.WithLabelValues("failed").Inc()
		return DecodeResult{}, err
	}
	VerificationTotal.WithLabelValues("verified").Inc()
	return result, nil
}

// Inspect parses an envelope's headers without verifying a signature or
// decrypting. For an Encrypt0 credential only the header fields are
// populated, since the claims are unreadable without the key; for an
// unsigned (bare) credential there is no envelope to report and Inspect
// returns an error.
func Inspect(qr string, cfg DecodeConfig) (InspectResult, error) {
	data, err := decompressCredential(qr, cfg)
	if err != nil {
		return InspectResult{}, err
	}
	kind, err := envelopeKind(data)
	if err != nil {
		return InspectResult{}, err
	}

	switch kind {
	case "sign1":
		sign1, err := cose.ParseSign1(data, len(data), false)
		if err != nil {
			return InspectResult{}, &CoseParseError{Err: err}
		}
		result := InspectResult{
			COSEType:  COSETypeSign1,
			Algorithm: cryptoprov.Alg(sign1.Alg).String(),
			KeyID:     sign1.Kid,
		}
		if claims, cerr := cwt.Unmarshal(sign1.Payload, len(sign1.Payload)); cerr == nil {
			result.Issuer = claims.Issuer
			result.Subject = claims.Subject
			result.ExpiresAt = claims.ExpiresAt
		}
		return result, nil

	case "encrypt0":
		enc0, err := cose.ParseEncrypt0(data, len(data), false)
		if err != nil {
			return InspectResult{}, &CoseParseError{Err: err}
		}
		return InspectResult{
			COSEType:  COSETypeEncrypt0,
			Algorithm: cryptoprov.Alg(enc0.Alg).String(),
			KeyID:     enc0.Kid,
		}, nil

	default:
		return InspectResult{}, &Claim169Exception{Reason: "credential has no COSE envelope to inspect"}
	}
}
