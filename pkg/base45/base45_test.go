package base45

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xff},
		{0x01, 0x02},
		{0x01, 0x02, 0x03},
		[]byte("the quick brown fox jumps over the lazy dog"),
		bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 64),
	}

	for _, in := range cases {
		encoded := Encode(in)
		decoded, err := Decode(encoded)
		if err != nil {
			t.Fatalf("Decode(%x) failed: %v", in, err)
		}
		if !bytes.Equal(decoded, in) {
			t.Errorf("round trip mismatch: in=%x out=%x", in, decoded)
		}
	}
}

func TestKnownVectors(t *testing.T) {
	// RFC 9285 examples.
	cases := []struct {
		in  []byte
		out string
	}{
		{[]byte("AB"), "BB8"},
		{[]byte("Hello!!"), "%69 VD92EX0"},
		{[]byte("base-45"), "UJCLQE7W581"},
		{[]byte{0, 0}, "000"},
	}

	for _, c := range cases {
		got := Encode(c.in)
		if got != c.out {
			t.Errorf("Encode(%q) = %q, want %q", c.in, got, c.out)
		}
		back, err := Decode(c.out)
		if err != nil {
			t.Fatalf("Decode(%q) failed: %v", c.out, err)
		}
		if !bytes.Equal(back, c.in) {
			t.Errorf("Decode(%q) = %x, want %x", c.out, back, c.in)
		}
	}
}

func TestDecodeInvalidLength(t *testing.T) {
	_, err := Decode("A")
	if err == nil {
		t.Fatal("expected error for length-1-mod-3 input")
	}
}

func TestDecodeInvalidCharacter(t *testing.T) {
	_, err := Decode("A!B")
	if err == nil {
		t.Fatal("expected error for character outside alphabet")
	}
}

func TestDecodeOverflowingGroup(t *testing.T) {
	// "GGW" decodes to 65536 — one past the highest valid triple, "FGW" (65535).
	_, err := Decode("GGW")
	if err == nil {
		t.Fatal("expected error for group value exceeding 65535")
	}
}

func TestEncodeDeterministic(t *testing.T) {
	in := []byte("deterministic encode")
	if Encode(in) != Encode(in) {
		t.Error("Encode is not deterministic")
	}
}
