package account

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/nanomesh-go/node/consensus"
)

// ADDR-RT (spec §8).
func TestDecodeKnownVector(t *testing.T) {
	key, err := Decode("xrb_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want, err := hex.DecodeString("E89208DD038FBB269987689621D52292AE9C35941A7484756ECCED92A65093BA"[:64])
	if err != nil {
		t.Fatalf("hex.DecodeString: %v", err)
	}
	if !strings.EqualFold(hex.EncodeToString(key[:]), hex.EncodeToString(want)) {
		t.Fatalf("got %X, want %X", key[:], want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var key consensus.Key32
	for i := range key {
		key[i] = byte(i * 7)
	}
	encoded := Encode(key)
	if len(encoded) != accountStringLen {
		t.Fatalf("len(Encode(key))=%d, want %d", len(encoded), accountStringLen)
	}
	if !strings.HasPrefix(encoded, prefix) {
		t.Fatalf("Encode(key)=%q, missing prefix %q", encoded, prefix)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded != key {
		t.Fatalf("round trip mismatch: got %x want %x", decoded, key)
	}
}

func TestDecodeRejectsMissingPrefix(t *testing.T) {
	if _, err := Decode("abc_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3"); err == nil {
		t.Fatalf("expected an error for a missing xrb_ prefix")
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	if _, err := Decode("xrb_tooshort"); err == nil {
		t.Fatalf("expected an error for an address of the wrong length")
	}
}

func TestDecodeRejectsCorruptedChecksum(t *testing.T) {
	valid := "xrb_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3"
	corrupted := valid[:len(valid)-1] + flipChar(valid[len(valid)-1])
	if _, err := Decode(corrupted); err == nil {
		t.Fatalf("expected a checksum mismatch error")
	}
}

func TestDecodeRejectsInvalidAlphabetCharacter(t *testing.T) {
	valid := "xrb_3t6k35gi95xu6tergt6p69ck76ogmitsa8mnijtpxm9fkcm736xtoncuohr3"
	corrupted := strings.Replace(valid, "t", "0", 1) // '0' is excluded from the account alphabet
	if _, err := Decode(corrupted); err == nil {
		t.Fatalf("expected an error for a character outside the account alphabet")
	}
}

func flipChar(c byte) string {
	for _, r := range alphabet {
		if byte(r) != c {
			return string(r)
		}
	}
	return "x"
}
