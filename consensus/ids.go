package consensus

import (
	"encoding/hex"
	"strings"
)

// Hash32, Key32 and Sig64 are opaque fixed-width identifiers (spec §3).
// Equality is byte-wise; ordering carries no meaning.
type (
	Hash32 [32]byte
	Key32  [32]byte
	Sig64  [64]byte
)

// Work is the 8-byte proof-of-work nonce (spec §3, §4.3).
type Work [8]byte

// Hex renders h upper-case, the convention this spec uses for hashes and keys.
func (h Hash32) Hex() string { return strings.ToUpper(hex.EncodeToString(h[:])) }

// Hex renders k upper-case.
func (k Key32) Hex() string { return strings.ToUpper(hex.EncodeToString(k[:])) }

// Hex renders s upper-case.
func (s Sig64) Hex() string { return strings.ToUpper(hex.EncodeToString(s[:])) }

// Hex renders w lower-case, the convention this spec uses for work values,
// most-significant byte first (w itself holds the little-endian bytes).
func (w Work) Hex() string {
	be := reverse8(w)
	return hex.EncodeToString(be[:])
}

// ParseHash32 decodes a 64-character hex string into a Hash32.
func ParseHash32(s string) (Hash32, error) {
	var out Hash32
	b, err := decodeFixedHex(s, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// ParseKey32 decodes a 64-character hex string into a Key32.
func ParseKey32(s string) (Key32, error) {
	var out Key32
	b, err := decodeFixedHex(s, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// ParseSig64 decodes a 128-character hex string into a Sig64.
func ParseSig64(s string) (Sig64, error) {
	var out Sig64
	b, err := decodeFixedHex(s, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// ParseWork decodes a 16-character hex string, written most-significant byte
// first, into a Work value holding the little-endian bytes.
func ParseWork(s string) (Work, error) {
	var out Work
	b, err := decodeFixedHex(s, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return Work(reverse8(out)), nil
}

func decodeFixedHex(s string, width int) ([]byte, error) {
	if len(s) != width*2 {
		return nil, newErr(ErrInvalidAddressLength, "hex string has wrong length")
	}
	for i, c := range s {
		if !isHexDigit(byte(c)) {
			return nil, &codedErrAt{code: ErrInvalidHexChar, pos: i}
		}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, newErr(ErrInvalidHexChar, err.Error())
	}
	return b, nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// codedErrAt carries the offending rune position for InvalidHexChar (spec §7: InvalidHexChar{pos}).
type codedErrAt struct {
	code ErrorCode
	pos  int
}

func (e *codedErrAt) Error() string {
	return string(e.code)
}
