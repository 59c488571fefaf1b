// Package zlibframe wraps the standard zlib stream (RFC 1950) used between
// the Base45 text layer and the CBOR envelope of a Claim 169 credential.
package zlibframe

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// DefaultMaxDecompressedBytes is the cap applied when a caller does not
// specify one explicitly, large enough for a fully populated credential
// while refusing an unbounded inflate.
const DefaultMaxDecompressedBytes = 65536

// DecompressError reports a malformed zlib stream or one whose decompressed
// size would exceed the configured cap.
type DecompressError struct {
	Reason string
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("zlibframe: %s", e.Reason)
}

// Compress zlib-compresses data at the default compression level.
func Compress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	// A bytes.Buffer writer never returns an error.
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

// Decompress inflates a zlib stream, refusing to produce more than
// maxDecompressedBytes of output. The cap is enforced incrementally — it
// fails before the output buffer grows past the limit, not after a full
// decompression — so a zip-bomb-style stream cannot force an unbounded
// allocation.
func Decompress(compressed []byte, maxDecompressedBytes int) ([]byte, error) {
	if maxDecompressedBytes <= 0 {
		maxDecompressedBytes = DefaultMaxDecompressedBytes
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &DecompressError{Reason: fmt.Sprintf("invalid zlib stream: %v", err)}
	}
	defer zr.Close()

	limited := io.LimitReader(zr, int64(maxDecompressedBytes)+1)

	var buf bytes.Buffer
	n, err := io.Copy(&buf, limited)
	if err != nil {
		return nil, &DecompressError{Reason: fmt.Sprintf("decompression failed: %v", err)}
	}
	if n > int64(maxDecompressedBytes) {
		return nil, &DecompressError{Reason: fmt.Sprintf("decompressed size exceeds cap of %d bytes", maxDecompressedBytes)}
	}

	if err := zr.Close(); err != nil {
		return nil, &DecompressError{Reason: fmt.Sprintf("invalid zlib stream trailer: %v", err)}
	}

	return buf.Bytes(), nil
}
