// Package claim169 is the core encode/decode engine for Claim 169
// credentials: a compact, printable identity record carried through a
// five-layer pipeline — Base45 text encoding, zlib compression, a COSE
// (RFC 9052) envelope (Sign1 and/or Encrypt0), a CWT (RFC 8392) claims
// map, and the Claim 169 integer-keyed identity schema.
//
// The package exposes three encode shapes (EncodeUnsigned, EncodeSigned,
// EncodeSignedEncrypted) and their decode mirrors (DecodeUnverified,
// DecodeWithVerifier, DecodeEncrypted), plus Inspect for parsing an
// envelope's headers without verifying or decrypting. Cryptographic
// operations go through the small capability interfaces in pkg/cryptoprov
// so a caller's HSM- or KMS-backed signer can satisfy them without this
// package ever seeing private key material.
package claim169
