package claim169

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/veritaslabs/claim169/pkg/cryptoprov"
	"github.com/veritaslabs/claim169/pkg/identity"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex %q: %v", s, err)
	}
	return b
}

func uptr(v uint64) *uint64 { return &v }

// S1 — unsigned round trip.
func TestUnsignedRoundTrip(t *testing.T) {
	record := &identity.Record{ID: "X", FullName: "A"}
	meta := Meta{Issuer: "https://e.org", ExpiresAt: uptr(1900000000)}

	cred, err := EncodeUnsigned(record, meta, DefaultEncodeConfig())
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}

	result, err := DecodeUnverified(cred, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("DecodeUnverified: %v", err)
	}
	if result.VerificationStatus != VerificationSkipped {
		t.Errorf("verification_status = %q, want %q", result.VerificationStatus, VerificationSkipped)
	}
	if result.Claim169.ID != "X" || result.Claim169.FullName != "A" {
		t.Errorf("fields not preserved: %+v", result.Claim169)
	}
}

// S2 — Ed25519 signed round trip, using the RFC 8032 test vector 1 key pair.
func TestEd25519SignedRoundTrip(t *testing.T) {
	seed := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	pub := mustHex(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a")

	signer, err := cryptoprov.NewEd25519Signer(seed, nil)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	verifier, err := cryptoprov.NewEd25519Verifier(pub)
	if err != nil {
		t.Fatalf("NewEd25519Verifier: %v", err)
	}

	record := &identity.Record{ID: "ROUNDTRIP-001", FullName: "Roundtrip Test Person", Email: "roundtrip@test.org"}
	meta := Meta{
		Issuer:    "https://roundtrip.example.org",
		IssuedAt:  uptr(1700000000),
		ExpiresAt: uptr(1900000000),
	}

	cred, err := EncodeSigned(record, meta, DefaultEncodeConfig(), signer)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}

	result, err := DecodeWithVerifier(cred, verifier, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("DecodeWithVerifier: %v", err)
	}
	if result.VerificationStatus != VerificationVerified {
		t.Errorf("verification_status = %q, want %q", result.VerificationStatus, VerificationVerified)
	}
	if result.Claim169.ID != record.ID || result.Claim169.FullName != record.FullName || result.Claim169.Email != record.Email {
		t.Errorf("fields not preserved: %+v", result.Claim169)
	}
	if result.CWTMeta.Issuer == nil || *result.CWTMeta.Issuer != meta.Issuer {
		t.Errorf("issuer mismatch: %+v", result.CWTMeta)
	}
}

// S3 — tamper detection: flipping a character in the Base45 body must
// surface as SignatureError, CoseParseError, or Base45DecodeError, never
// a silently "successful" decode.
func TestTamperDetection(t *testing.T) {
	seed := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	pub := mustHex(t, "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a")

	signer, _ := cryptoprov.NewEd25519Signer(seed, nil)
	verifier, _ := cryptoprov.NewEd25519Verifier(pub)

	record := &identity.Record{ID: "ROUNDTRIP-001"}
	meta := Meta{Issuer: "https://roundtrip.example.org", ExpiresAt: uptr(1900000000)}

	cred, err := EncodeSigned(record, meta, DefaultEncodeConfig(), signer)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}

	tampered := tamperMiddleCharacter(t, cred)
	if _, err := DecodeWithVerifier(tampered, verifier, DefaultDecodeConfig()); err == nil {
		t.Fatal("expected decode failure for tampered credential")
	}
}

func tamperMiddleCharacter(t *testing.T, s string) string {
	t.Helper()
	if len(s) < 3 {
		t.Fatal("credential too short to tamper")
	}
	runes := []byte(s)
	mid := len(runes) / 2
	// Base45's alphabet excludes lowercase letters entirely, so
	// substituting one guarantees an invalid or different symbol.
	if runes[mid] == 'a' {
		runes[mid] = 'b'
	} else {
		runes[mid] = 'a'
	}
	return string(runes)
}

// S4 — wrong decryption key.
func TestWrongDecryptionKey(t *testing.T) {
	seed := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	signer, _ := cryptoprov.NewEd25519Signer(seed, nil)
	verifier, _ := cryptoprov.NewEd25519Verifier(signer.PublicKey())

	key := mustHex(t, "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	encryptor, err := cryptoprov.NewAESGCMProvider(key, nil)
	if err != nil {
		t.Fatalf("NewAESGCMProvider: %v", err)
	}

	record := &identity.Record{ID: "X"}
	meta := Meta{Issuer: "https://e.org", ExpiresAt: uptr(1900000000)}

	cred, err := EncodeSignedEncrypted(record, meta, DefaultEncodeConfig(), signer, encryptor)
	if err != nil {
		t.Fatalf("EncodeSignedEncrypted: %v", err)
	}

	wrongKey := make([]byte, 32)
	wrongDecryptor, err := cryptoprov.NewAESGCMProvider(wrongKey, nil)
	if err != nil {
		t.Fatalf("NewAESGCMProvider: %v", err)
	}

	_, err = DecodeEncrypted(cred, wrongDecryptor, verifier, DefaultDecodeConfig())
	if err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
	if !strings.Contains(err.Error(), "decryption") {
		t.Errorf("err = %v, want a decryption error", err)
	}

	// Confirm it decodes successfully with the right key, so the failure
	// above is attributable to the key and not a broken pipeline.
	rightDecryptor, err := cryptoprov.NewAESGCMProvider(key, nil)
	if err != nil {
		t.Fatalf("NewAESGCMProvider: %v", err)
	}
	result, err := DecodeEncrypted(cred, rightDecryptor, verifier, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("DecodeEncrypted with correct key: %v", err)
	}
	if result.Claim169.ID != "X" {
		t.Errorf("ID = %q, want %q", result.Claim169.ID, "X")
	}
}

// S5 — expired credential.
func TestExpiredCredential(t *testing.T) {
	record := &identity.Record{ID: "X"}
	meta := Meta{Issuer: "https://e.org", ExpiresAt: uptr(1)}

	cred, err := EncodeUnsigned(record, meta, DefaultEncodeConfig())
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}

	cfg := DefaultDecodeConfig()
	cfg.ValidateTimestamps = true
	if _, err := DecodeUnverified(cred, cfg); err == nil {
		t.Fatal("expected expiration failure")
	} else if !strings.Contains(err.Error(), "expired") {
		t.Errorf("err = %v, want an expiration error", err)
	}

	cfg.ValidateTimestamps = false
	result, err := DecodeUnverified(cred, cfg)
	if err != nil {
		t.Fatalf("DecodeUnverified with validation disabled: %v", err)
	}
	if result.Claim169.ID != "X" {
		t.Errorf("ID = %q, want %q", result.Claim169.ID, "X")
	}
}

// S6 — all 16 biometric fields survive a signed round trip.
func TestAllBiometricFieldsSignedRoundTrip(t *testing.T) {
	seed := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	signer, _ := cryptoprov.NewEd25519Signer(seed, nil)
	verifier, _ := cryptoprov.NewEd25519Verifier(signer.PublicKey())

	mk := func(b byte) []identity.BiometricEntry {
		return []identity.BiometricEntry{{Data: []byte{b, b, b}}}
	}
	record := &identity.Record{
		ID:          "BIO-001",
		RightThumb:  mk(1),
		RightIndex:  mk(2),
		RightMiddle: mk(3),
		RightRing:   mk(4),
		RightLittle: mk(5),
		LeftThumb:   mk(6),
		LeftIndex:   mk(7),
		LeftMiddle:  mk(8),
		LeftRing:    mk(9),
		LeftLittle:  mk(10),
		RightIris:   mk(11),
		LeftIris:    mk(12),
		Face:        mk(13),
		RightPalm:   mk(14),
		LeftPalm:    mk(15),
		Voice:       mk(16),
	}
	meta := Meta{Issuer: "https://e.org", ExpiresAt: uptr(1900000000)}

	cred, err := EncodeSigned(record, meta, DefaultEncodeConfig(), signer)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}
	result, err := DecodeWithVerifier(cred, verifier, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("DecodeWithVerifier: %v", err)
	}

	got := result.Claim169
	for _, f := range []struct {
		name string
		e    []identity.BiometricEntry
		want byte
	}{
		{"RightThumb", got.RightThumb, 1}, {"RightIndex", got.RightIndex, 2},
		{"RightMiddle", got.RightMiddle, 3}, {"RightRing", got.RightRing, 4},
		{"RightLittle", got.RightLittle, 5}, {"LeftThumb", got.LeftThumb, 6},
		{"LeftIndex", got.LeftIndex, 7}, {"LeftMiddle", got.LeftMiddle, 8},
		{"LeftRing", got.LeftRing, 9}, {"LeftLittle", got.LeftLittle, 10},
		{"RightIris", got.RightIris, 11}, {"LeftIris", got.LeftIris, 12},
		{"Face", got.Face, 13}, {"RightPalm", got.RightPalm, 14},
		{"LeftPalm", got.LeftPalm, 15}, {"Voice", got.Voice, 16},
	} {
		if len(f.e) != 1 || len(f.e[0].Data) == 0 || f.e[0].Data[0] != f.want {
			t.Errorf("%s: got %+v, want entry starting with byte %d", f.name, f.e, f.want)
		}
	}
}

func TestSkipBiometricsShrinksEncodedOutput(t *testing.T) {
	withBio := &identity.Record{ID: "X", RightThumb: []identity.BiometricEntry{{Data: make([]byte, 512)}}}
	withoutMeta := Meta{Issuer: "https://e.org"}

	full, err := EncodeUnsigned(withBio, withoutMeta, DefaultEncodeConfig())
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}
	cfg := DefaultEncodeConfig()
	cfg.SkipBiometrics = true
	trimmed, err := EncodeUnsigned(withBio, withoutMeta, cfg)
	if err != nil {
		t.Fatalf("EncodeUnsigned (skip_biometrics): %v", err)
	}
	if len(trimmed) >= len(full) {
		t.Errorf("skip_biometrics credential (%d bytes) not shorter than full one (%d bytes)", len(trimmed), len(full))
	}
}

func TestInvalidDateOfBirthRejected(t *testing.T) {
	record := &identity.Record{ID: "X", DateOfBirth: "1990-02-30"}
	meta := Meta{Issuer: "https://e.org"}

	cred, err := EncodeUnsigned(record, meta, DefaultEncodeConfig())
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}
	if _, err := DecodeUnverified(cred, DefaultDecodeConfig()); err == nil {
		t.Fatal("expected calendar validation failure for 1990-02-30")
	}
}

func TestDateOfBirthPreservedVerbatim(t *testing.T) {
	record := &identity.Record{ID: "X", DateOfBirth: "19900115"}
	meta := Meta{Issuer: "https://e.org"}

	cred, err := EncodeUnsigned(record, meta, DefaultEncodeConfig())
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}
	result, err := DecodeUnverified(cred, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("DecodeUnverified: %v", err)
	}
	if result.Claim169.DateOfBirth != "19900115" {
		t.Errorf("date_of_birth = %q, want %q (verbatim, not normalized)", result.Claim169.DateOfBirth, "19900115")
	}
}

func TestInspectSign1DoesNotVerify(t *testing.T) {
	seed := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	signer, _ := cryptoprov.NewEd25519Signer(seed, nil)

	record := &identity.Record{ID: "X"}
	meta := Meta{Issuer: "https://e.org", Subject: "subject-1", ExpiresAt: uptr(1900000000)}

	cred, err := EncodeSigned(record, meta, DefaultEncodeConfig(), signer)
	if err != nil {
		t.Fatalf("EncodeSigned: %v", err)
	}

	result, err := Inspect(cred, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.COSEType != COSETypeSign1 {
		t.Errorf("cose_type = %q, want %q", result.COSEType, COSETypeSign1)
	}
	if result.Algorithm != "EdDSA" {
		t.Errorf("algorithm = %q, want EdDSA", result.Algorithm)
	}
	if result.Issuer == nil || *result.Issuer != meta.Issuer {
		t.Errorf("issuer = %v, want %q", result.Issuer, meta.Issuer)
	}
	if result.Subject == nil || *result.Subject != meta.Subject {
		t.Errorf("subject = %v, want %q", result.Subject, meta.Subject)
	}
}

func TestInspectEncrypt0OnlyPopulatesHeaders(t *testing.T) {
	seed := mustHex(t, "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60")
	signer, _ := cryptoprov.NewEd25519Signer(seed, nil)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	encryptor, err := cryptoprov.NewAESGCMProvider(key, nil)
	if err != nil {
		t.Fatalf("NewAESGCMProvider: %v", err)
	}

	record := &identity.Record{ID: "X"}
	meta := Meta{Issuer: "https://e.org"}

	cred, err := EncodeSignedEncrypted(record, meta, DefaultEncodeConfig(), signer, encryptor)
	if err != nil {
		t.Fatalf("EncodeSignedEncrypted: %v", err)
	}

	result, err := Inspect(cred, DefaultDecodeConfig())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.COSEType != COSETypeEncrypt0 {
		t.Errorf("cose_type = %q, want %q", result.COSEType, COSETypeEncrypt0)
	}
	if result.Algorithm != "A256GCM" {
		t.Errorf("algorithm = %q, want A256GCM", result.Algorithm)
	}
	if result.Issuer != nil {
		t.Errorf("issuer = %v, want nil for an Encrypt0 credential", result.Issuer)
	}
}

func TestOversizedZlibStreamRejected(t *testing.T) {
	record := &identity.Record{ID: "X"}
	meta := Meta{Issuer: "https://e.org"}
	cred, err := EncodeUnsigned(record, meta, DefaultEncodeConfig())
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}

	cfg := DefaultDecodeConfig()
	cfg.MaxDecompressedBytes = 1 // far smaller than the real payload
	if _, err := DecodeUnverified(cred, cfg); err == nil {
		t.Fatal("expected decompression failure for an undersized cap")
	}
}
