// Package wipe provides wipe-on-release containers for secret byte
// material — private keys, symmetric keys, and decrypted plaintext — so
// callers have a single place to zero buffers once they fall out of use
// rather than relying on the garbage collector to scrub them.
package wipe

// Bytes zeroes b in place. It is safe to call on a nil or empty slice.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Secret wraps a byte slice that must be zeroed when the holder is done
// with it. It carries no behavior beyond that — it is not a new copy
// mechanism, just a label plus a Release method so call sites read as
// "this buffer held something sensitive, and I cleaned up after myself".
type Secret struct {
	b []byte
}

// NewSecret wraps b. The caller must not retain other references to b that
// outlive Release.
func NewSecret(b []byte) *Secret {
	return &Secret{b: b}
}

// Bytes returns the wrapped slice.
func (s *Secret) Bytes() []byte {
	if s == nil {
		return nil
	}
	return s.b
}

// Release zeroes the wrapped slice. Idempotent.
func (s *Secret) Release() {
	if s == nil {
		return
	}
	Bytes(s.b)
}
