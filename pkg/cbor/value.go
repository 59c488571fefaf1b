// Package cbor implements the narrow, deterministic subset of CBOR (RFC
// 8949) this module needs: unsigned/negative integers, byte strings, text
// strings, arrays, maps, tags, and the three simple values false/true/null.
// Floats and indefinite-length items are not supported — nothing in the
// Claim 169 wire format uses them.
package cbor

import "fmt"

// Major types, per RFC 8949 §3.1.
const (
	MajorUint     = 0
	MajorNegInt   = 1
	MajorBytes    = 2
	MajorText     = 3
	MajorArray    = 4
	MajorMap      = 5
	MajorTag      = 6
	MajorSimple   = 7
)

// Simple values carried in major type 7.
const (
	SimpleFalse = 20
	SimpleTrue  = 21
	SimpleNull  = 22
)

// Kind identifies the decoded shape of a Value.
type Kind int

const (
	KindUint Kind = iota
	KindNegInt
	KindBytes
	KindText
	KindArray
	KindMap
	KindTag
	KindBool
	KindNull
)

// MapEntry is one key/value pair of a decoded map, preserved in the order
// the encoder wrote it (canonical, bytewise-sorted key order for anything
// this module produces; a decoded input may carry a different order, which
// round-trips back out canonically).
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is a decoded CBOR item. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind Kind

	Uint   uint64 // KindUint, KindNegInt (negint stores the encoded magnitude: real value is -1-Uint)
	Bytes  []byte // KindBytes, KindText (text stored as raw UTF-8 bytes)
	Array  []Value
	Map    []MapEntry
	Tag    uint64
	Tagged *Value // KindTag
	Bool   bool   // KindBool
}

// Int returns the signed integer value of a KindUint or KindNegInt value.
func (v Value) Int() int64 {
	switch v.Kind {
	case KindUint:
		return int64(v.Uint)
	case KindNegInt:
		return -1 - int64(v.Uint)
	default:
		panic(fmt.Sprintf("cbor: Int() called on non-integer Value (kind %d)", v.Kind))
	}
}

// Text returns the string value of a KindText value.
func (v Value) Text() string {
	if v.Kind != KindText {
		panic(fmt.Sprintf("cbor: Text() called on non-text Value (kind %d)", v.Kind))
	}
	return string(v.Bytes)
}

// Uint constructors.

func Uint(v uint64) Value { return Value{Kind: KindUint, Uint: v} }

// Int builds the correct Value for a signed integer, choosing KindUint or
// KindNegInt as CBOR requires.
func Int(v int64) Value {
	if v >= 0 {
		return Value{Kind: KindUint, Uint: uint64(v)}
	}
	return Value{Kind: KindNegInt, Uint: uint64(-1 - v)}
}

func Bytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

func Text(s string) Value { return Value{Kind: KindText, Bytes: []byte(s)} }

func Array(items []Value) Value { return Value{Kind: KindArray, Array: items} }

func Map(entries []MapEntry) Value { return Value{Kind: KindMap, Map: entries} }

func Tagged(tag uint64, v Value) Value { return Value{Kind: KindTag, Tag: tag, Tagged: &v} }

func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func Null() Value { return Value{Kind: KindNull} }

// UintEntry is a convenience constructor for a MapEntry keyed by a small
// non-negative integer, the overwhelmingly common case for every integer-keyed
// map this module produces (CWT claims, Claim 169 fields, biometric entries).
func UintEntry(key uint64, v Value) MapEntry {
	return MapEntry{Key: Uint(key), Value: v}
}
