package cbor

import "fmt"

// DefaultMaxDepth bounds nesting of arrays/maps/tags a Decoder will
// descend into. 32 gives headroom for a nested
// Encrypt0(Sign1(CWT(claim map))) structure without inviting
// pathological stack depth from crafted input.
const DefaultMaxDepth = 32

// ParseError reports malformed or oversized CBOR input.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cbor: %s", e.Reason)
}

// Decoder decodes a single CBOR item from a byte slice, enforcing a
// maximum nesting depth and a maximum total input size.
type Decoder struct {
	MaxDepth   int
	MaxInput   int
}

// NewDecoder returns a Decoder with the given input size cap and the
// default max nesting depth.
func NewDecoder(maxInput int) *Decoder {
	return &Decoder{MaxDepth: DefaultMaxDepth, MaxInput: maxInput}
}

// Unmarshal decodes exactly one CBOR item from data and returns it along
// with the number of bytes consumed. Trailing bytes are not an error —
// callers that require the whole buffer to be one item should check the
// returned length themselves.
func (d *Decoder) Unmarshal(data []byte) (Value, int, error) {
	if d.MaxInput > 0 && len(data) > d.MaxInput {
		return Value{}, 0, &ParseError{Reason: fmt.Sprintf("input size %d exceeds max %d", len(data), d.MaxInput)}
	}
	return d.decodeValue(data, 0)
}

func (d *Decoder) decodeValue(data []byte, depth int) (Value, int, error) {
	if depth > d.MaxDepth {
		return Value{}, 0, &ParseError{Reason: fmt.Sprintf("nesting depth exceeds max %d", d.MaxDepth)}
	}
	if len(data) == 0 {
		return Value{}, 0, &ParseError{Reason: "unexpected end of input"}
	}

	major := data[0] >> 5
	low := data[0] & 0x1f

	arg, headLen, err := decodeHead(data, low)
	if err != nil {
		return Value{}, 0, err
	}

	switch major {
	case MajorUint:
		return Value{Kind: KindUint, Uint: arg}, headLen, nil

	case MajorNegInt:
		return Value{Kind: KindNegInt, Uint: arg}, headLen, nil

	case MajorBytes:
		end, err := sliceEnd(data, headLen, arg)
		if err != nil {
			return Value{}, 0, err
		}
		buf := make([]byte, arg)
		copy(buf, data[headLen:end])
		return Value{Kind: KindBytes, Bytes: buf}, end, nil

	case MajorText:
		end, err := sliceEnd(data, headLen, arg)
		if err != nil {
			return Value{}, 0, err
		}
		buf := make([]byte, arg)
		copy(buf, data[headLen:end])
		return Value{Kind: KindText, Bytes: buf}, end, nil

	case MajorArray:
		items := make([]Value, 0, arg)
		off := headLen
		for i := uint64(0); i < arg; i++ {
			item, n, err := d.decodeValue(data[off:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			items = append(items, item)
			off += n
		}
		return Value{Kind: KindArray, Array: items}, off, nil

	case MajorMap:
		entries := make([]MapEntry, 0, arg)
		off := headLen
		for i := uint64(0); i < arg; i++ {
			key, n, err := d.decodeValue(data[off:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			off += n
			val, n, err := d.decodeValue(data[off:], depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			off += n
			entries = append(entries, MapEntry{Key: key, Value: val})
		}
		return Value{Kind: KindMap, Map: entries}, off, nil

	case MajorTag:
		inner, n, err := d.decodeValue(data[headLen:], depth+1)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindTag, Tag: arg, Tagged: &inner}, headLen + n, nil

	case MajorSimple:
		switch low {
		case SimpleFalse:
			return Value{Kind: KindBool, Bool: false}, headLen, nil
		case SimpleTrue:
			return Value{Kind: KindBool, Bool: true}, headLen, nil
		case SimpleNull:
			return Value{Kind: KindNull}, headLen, nil
		default:
			return Value{}, 0, &ParseError{Reason: fmt.Sprintf("unsupported simple value %d", low)}
		}

	default:
		return Value{}, 0, &ParseError{Reason: fmt.Sprintf("unsupported major type %d", major)}
	}
}

// decodeHead parses the argument following an initial byte whose low 5
// bits are low, returning the argument value and the total head length
// (including the initial byte).
func decodeHead(data []byte, low byte) (uint64, int, error) {
	switch {
	case low < 24:
		return uint64(low), 1, nil
	case low == 24:
		if len(data) < 2 {
			return 0, 0, &ParseError{Reason: "truncated 1-byte head argument"}
		}
		return uint64(data[1]), 2, nil
	case low == 25:
		if len(data) < 3 {
			return 0, 0, &ParseError{Reason: "truncated 2-byte head argument"}
		}
		return uint64(data[1])<<8 | uint64(data[2]), 3, nil
	case low == 26:
		if len(data) < 5 {
			return 0, 0, &ParseError{Reason: "truncated 4-byte head argument"}
		}
		var v uint64
		for i := 1; i <= 4; i++ {
			v = v<<8 | uint64(data[i])
		}
		return v, 5, nil
	case low == 27:
		if len(data) < 9 {
			return 0, 0, &ParseError{Reason: "truncated 8-byte head argument"}
		}
		var v uint64
		for i := 1; i <= 8; i++ {
			v = v<<8 | uint64(data[i])
		}
		return v, 9, nil
	default:
		return 0, 0, &ParseError{Reason: fmt.Sprintf("indefinite-length or reserved head (%d) not supported", low)}
	}
}

func sliceEnd(data []byte, start int, length uint64) (int, error) {
	// length is attacker-controlled; bound it against the actual remaining
	// buffer before doing the addition, to avoid wrap-around on 32-bit
	// platforms and to reject oversized claims before allocating.
	remaining := uint64(len(data) - start)
	if length > remaining {
		return 0, &ParseError{Reason: fmt.Sprintf("declared length %d exceeds remaining input %d", length, remaining)}
	}
	return start + int(length), nil
}
