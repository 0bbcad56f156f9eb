// Package account implements the base-32 account address codec (spec §4.7,
// C8): mapping a 32-byte public key to and from the human-readable
// "xrb_..." string. It has no teacher equivalent — the teacher's ledger
// uses a different address scheme entirely — so it is built in the
// teacher's general texture: small package, explicit error returns, one
// exported Encode/Decode pair.
package account

import (
	"strings"

	"github.com/nanomesh-go/node/consensus"
)

// alphabet is the 32-symbol account encoding alphabet (spec §4.7): digits
// and lower-case letters with 0, 2, l, v removed to avoid visual ambiguity.
const alphabet = "13456789abcdefghijkmnopqrstuwxyz"

const prefix = "xrb_"

// accountStringLen is the total length of an encoded account string:
// 4-byte prefix + 52 key characters + 8 checksum characters.
const accountStringLen = len(prefix) + 52 + 8

var alphabetIndex = func() map[byte]byte {
	m := make(map[byte]byte, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = byte(i)
	}
	return m
}()

// Encode renders key as an account string (spec §4.7).
func Encode(key consensus.Key32) string {
	var padded [35]byte // 3-byte left pad + 32-byte key, per spec §4.7
	copy(padded[3:], key[:])
	keyPart := base32Encode(padded[:])[4:] // drop the 4 leading all-zero characters

	checksum := addressChecksum(key)
	checksumPart := base32Encode(checksum[:])

	return prefix + keyPart + checksumPart
}

// Decode parses an account string back to a key, verifying the prefix,
// length, and checksum (spec §4.7).
func Decode(s string) (consensus.Key32, error) {
	var out consensus.Key32
	if !strings.HasPrefix(s, prefix) {
		return out, newErr(consensus.ErrInvalidAddress, "missing xrb_ prefix")
	}
	if len(s) != accountStringLen {
		return out, &consensus.CodedError{Code: consensus.ErrInvalidAddressLength}
	}
	body := s[len(prefix):]
	keyPart, checksumPart := body[:52], body[52:]

	padded, err := base32Decode("1111" + keyPart)
	if err != nil {
		return out, err
	}
	copy(out[:], padded[3:35])

	wantChecksum := addressChecksum(out)
	gotChecksum, err := base32Decode(checksumPart)
	if err != nil {
		return out, err
	}
	if string(gotChecksum) != string(wantChecksum[:]) {
		return out, newErr(consensus.ErrInvalidAddress, "checksum mismatch")
	}
	return out, nil
}

// addressChecksum is the 5-byte BLAKE2b digest of key, with the digest's
// bytes in reverse order (spec §4.7).
func addressChecksum(key consensus.Key32) [5]byte {
	h, err := consensus.NewHasher(5)
	if err != nil {
		// length=5 is always valid; NewHasher cannot fail for it.
		panic(err)
	}
	h.Write(key[:])
	sum := h.Sum()
	var out [5]byte
	for i := range out {
		out[i] = sum[len(out)-1-i]
	}
	return out
}

func newErr(code consensus.ErrorCode, msg string) error {
	return &consensus.CodedError{Code: code, Msg: msg}
}

// base32Encode renders data in the account alphabet, 5 bits per character,
// most-significant-bit first. Callers only ever pass inputs whose bit
// length is an exact multiple of 5 (35 and 5 bytes respectively), so there
// is no partial-group padding to reason about.
func base32Encode(data []byte) string {
	totalBits := len(data) * 8
	nChars := totalBits / 5
	out := make([]byte, nChars)
	for i := 0; i < nChars; i++ {
		var v byte
		for b := 0; b < 5; b++ {
			bitPos := i*5 + b
			bytePos := bitPos / 8
			bitInByte := 7 - bitPos%8
			var bit byte
			if bytePos < len(data) {
				bit = (data[bytePos] >> bitInByte) & 1
			}
			v = (v << 1) | bit
		}
		out[i] = alphabet[v]
	}
	return string(out)
}

// base32Decode is the inverse of base32Encode.
func base32Decode(s string) ([]byte, error) {
	bits := len(s) * 5
	out := make([]byte, (bits+7)/8)
	for i := 0; i < len(s); i++ {
		v, ok := alphabetIndex[s[i]]
		if !ok {
			return nil, newErr(consensus.ErrInvalidAddress, "invalid account character")
		}
		for b := 0; b < 5; b++ {
			bitPos := i*5 + b
			bytePos := bitPos / 8
			bitInByte := 7 - bitPos%8
			bit := (v >> (4 - b)) & 1
			out[bytePos] |= bit << bitInByte
		}
	}
	return out, nil
}
