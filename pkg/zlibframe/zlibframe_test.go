package zlibframe

import (
	"bytes"
	"compress/zlib"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("claim169 credential payload "), 100)

	compressed := Compress(data)
	decompressed, err := Decompress(compressed, 0)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(decompressed, data) {
		t.Error("round trip mismatch")
	}
}

func TestDecompressRejectsOversizedOutput(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, 1<<20)
	compressed := Compress(data)

	_, err := Decompress(compressed, 1024)
	if err == nil {
		t.Fatal("expected error for output exceeding cap")
	}
}

func TestDecompressRejectsMalformedStream(t *testing.T) {
	_, err := Decompress([]byte{0x00, 0x01, 0x02, 0x03}, 0)
	if err == nil {
		t.Fatal("expected error for malformed zlib stream")
	}
}

func TestDecompressAtExactCap(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 512)
	compressed := Compress(data)

	decompressed, err := Decompress(compressed, 512)
	if err != nil {
		t.Fatalf("Decompress at exact cap failed: %v", err)
	}
	if len(decompressed) != 512 {
		t.Errorf("got %d bytes, want 512", len(decompressed))
	}
}

func TestDecompressOneByteOverCap(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 513)
	compressed := Compress(data)

	_, err := Decompress(compressed, 512)
	if err == nil {
		t.Fatal("expected error for output 1 byte over cap")
	}
}

// sanity check that Compress produces a stream decodable by the standard
// library directly, i.e. it really is RFC 1950 zlib and nothing bespoke.
func TestCompressIsStandardZlib(t *testing.T) {
	data := []byte("hello, zlib")
	compressed := Compress(data)

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("stdlib zlib.NewReader failed: %v", err)
	}
	defer zr.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(zr); err != nil {
		t.Fatalf("stdlib read failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Error("stdlib-decoded content mismatch")
	}
}
