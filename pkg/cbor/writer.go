package cbor

import (
	"bytes"
	"sort"
)

// Marshal produces the deterministic CBOR encoding of v: shortest-form
// heads, no indefinite-length items, and map keys sorted by the
// bytewise-lexicographic order of their own encoded bytes (RFC 8949
// §4.2.1).
func Marshal(v Value) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindUint:
		writeHead(buf, MajorUint, v.Uint)
	case KindNegInt:
		writeHead(buf, MajorNegInt, v.Uint)
	case KindBytes:
		writeHead(buf, MajorBytes, uint64(len(v.Bytes)))
		buf.Write(v.Bytes)
	case KindText:
		writeHead(buf, MajorText, uint64(len(v.Bytes)))
		buf.Write(v.Bytes)
	case KindArray:
		writeHead(buf, MajorArray, uint64(len(v.Array)))
		for _, item := range v.Array {
			writeValue(buf, item)
		}
	case KindMap:
		writeMap(buf, v.Map)
	case KindTag:
		writeHead(buf, MajorTag, v.Tag)
		writeValue(buf, *v.Tagged)
	case KindBool:
		b := byte(SimpleFalse)
		if v.Bool {
			b = SimpleTrue
		}
		buf.WriteByte(byte(MajorSimple)<<5 | b)
	case KindNull:
		buf.WriteByte(byte(MajorSimple)<<5 | SimpleNull)
	}
}

// writeMap sorts entries by the bytewise order of their encoded key bytes
// before writing, so the same logical map always produces identical bytes
// regardless of construction order, per RFC 8949's deterministic
// encoding rules — required so a protected header byte string encodes
// the same way on every run and a signature over it stays reproducible.
func writeMap(buf *bytes.Buffer, entries []MapEntry) {
	type encodedEntry struct {
		keyBytes   []byte
		valueBytes []byte
	}

	enc := make([]encodedEntry, len(entries))
	for i, e := range entries {
		var kb, vb bytes.Buffer
		writeValue(&kb, e.Key)
		writeValue(&vb, e.Value)
		enc[i] = encodedEntry{keyBytes: kb.Bytes(), valueBytes: vb.Bytes()}
	}

	sort.Slice(enc, func(i, j int) bool {
		return bytes.Compare(enc[i].keyBytes, enc[j].keyBytes) < 0
	})

	writeHead(buf, MajorMap, uint64(len(enc)))
	for _, e := range enc {
		buf.Write(e.keyBytes)
		buf.Write(e.valueBytes)
	}
}

// writeHead writes a major-type/argument head using the shortest encoding
// CBOR allows: the argument is packed into the low 5 bits of the initial
// byte when it fits under 24, otherwise the smallest following width
// (1/2/4/8 bytes) that holds it exactly, with no leading zero bytes.
func writeHead(buf *bytes.Buffer, major byte, arg uint64) {
	switch {
	case arg < 24:
		buf.WriteByte(major<<5 | byte(arg))
	case arg <= 0xff:
		buf.WriteByte(major<<5 | 24)
		buf.WriteByte(byte(arg))
	case arg <= 0xffff:
		buf.WriteByte(major<<5 | 25)
		buf.WriteByte(byte(arg >> 8))
		buf.WriteByte(byte(arg))
	case arg <= 0xffffffff:
		buf.WriteByte(major<<5 | 26)
		buf.WriteByte(byte(arg >> 24))
		buf.WriteByte(byte(arg >> 16))
		buf.WriteByte(byte(arg >> 8))
		buf.WriteByte(byte(arg))
	default:
		buf.WriteByte(major<<5 | 27)
		for shift := 56; shift >= 0; shift -= 8 {
			buf.WriteByte(byte(arg >> shift))
		}
	}
}
