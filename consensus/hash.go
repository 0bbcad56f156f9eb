package consensus

import (
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Hasher is the BLAKE2b facade described in spec §4.1 (C2): construct with a
// target digest length, feed arbitrary byte runs, produce that many bytes.
type Hasher struct {
	h hash.Hash
}

// NewHasher constructs a BLAKE2b hasher producing exactly length bytes.
// length must be in [1, 64]; anything else is a LengthConfigError.
func NewHasher(length int) (*Hasher, error) {
	if length < 1 || length > 64 {
		return nil, newErr(ErrLengthConfig, "unsupported digest length")
	}
	h, err := blake2b.New(length, nil)
	if err != nil {
		return nil, newErr(ErrLengthConfig, err.Error())
	}
	return &Hasher{h: h}, nil
}

// Write feeds more bytes into the running digest.
func (h *Hasher) Write(b []byte) {
	_, _ = h.h.Write(b)
}

// Sum returns the configured-length digest. It does not reset the hasher.
func (h *Hasher) Sum() []byte {
	return h.h.Sum(nil)
}

// hashOnce is a convenience for the common one-shot case: feed every part in
// order, then take the length-byte digest.
func hashOnce(length int, parts ...[]byte) ([]byte, error) {
	h, err := NewHasher(length)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(), nil
}

// Hash32Of computes the 32-byte BLAKE2b digest of the concatenation of parts.
func Hash32Of(parts ...[]byte) Hash32 {
	digest, err := hashOnce(32, parts...)
	if err != nil {
		// length=32 is always valid; NewHasher cannot fail for it.
		panic(err)
	}
	var out Hash32
	copy(out[:], digest)
	return out
}

// workDigest computes the 8-byte BLAKE2b digest of nonce||root used by the
// proof-of-work predicate (spec §4.3).
func workDigest(nonceLE [8]byte, root Hash32) [8]byte {
	digest, err := hashOnce(8, nonceLE[:], root[:])
	if err != nil {
		panic(err)
	}
	var out [8]byte
	copy(out[:], digest)
	return out
}
