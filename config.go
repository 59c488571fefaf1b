package claim169

import "github.com/veritaslabs/claim169/pkg/zlibframe"

// EncodeConfig controls the behavior of the encode entry points.
type EncodeConfig struct {
	// SkipBiometrics omits the biometric fields (keys 50-65) from the
	// inner identity map entirely, shrinking the credential.
	SkipBiometrics bool
}

// DefaultEncodeConfig returns the zero-value encode configuration:
// biometrics included.
func DefaultEncodeConfig() EncodeConfig {
	return EncodeConfig{}
}

// DecodeConfig controls the behavior of the decode entry points.
type DecodeConfig struct {
	// SkipBiometrics skips the biometric sub-parses (keys 50-65), so the
	// decoded record carries no biometric fields. Signature verification
	// still covers the whole payload, biometrics included.
	SkipBiometrics bool

	// MaxDecompressedBytes bounds the zlib decompression stage against
	// zip-bomb inputs.
	MaxDecompressedBytes int

	// ValidateTimestamps enables the exp/nbf clock check against the
	// current time.
	ValidateTimestamps bool

	// ClockSkewToleranceSeconds widens the exp/nbf window symmetrically.
	ClockSkewToleranceSeconds int64
}

// DefaultDecodeConfig returns the conservative defaults: biometrics
// included, a bounded decompression cap against zip bombs, timestamp
// validation on, and zero clock-skew tolerance.
func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		SkipBiometrics:            false,
		MaxDecompressedBytes:      zlibframe.DefaultMaxDecompressedBytes,
		ValidateTimestamps:        true,
		ClockSkewToleranceSeconds: 0,
	}
}

// Meta carries the RFC 8392 CWT envelope claims (iss/sub/exp/nbf/iat) a
// caller attaches to an encode call.
type Meta struct {
	Issuer    string
	Subject   string
	ExpiresAt *uint64
	NotBefore *uint64
	IssuedAt  *uint64
}

// CWTMeta reports the CWT envelope claims observed on decode.
type CWTMeta struct {
	Issuer     *string
	Subject    *string
	ExpiresAt  *uint64
	NotBefore  *uint64
	IssuedAt   *uint64
}

// VerificationStatus classifies how a decode result's authenticity was
// established.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationSkipped  VerificationStatus = "skipped"
	VerificationFailed   VerificationStatus = "failed"
)

// COSEType names the envelope shape an inspect call observed.
type COSEType string

const (
	COSETypeSign1    COSEType = "Sign1"
	COSETypeEncrypt0 COSEType = "Encrypt0"
)

// InspectResult reports an envelope's headers without verifying a
// signature or decrypting. For Encrypt0, only the header fields
// (COSEType, Algorithm, KeyID) are populated.
type InspectResult struct {
	COSEType  COSEType
	Algorithm string
	KeyID     []byte
	Issuer    *string
	Subject   *string
	ExpiresAt *uint64
}
