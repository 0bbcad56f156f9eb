package p2p

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/nanomesh-go/node/consensus"
)

// KA-RT (spec §8): a concrete KeepAlive datagram decodes to 8 copies of
// [::]:7075 and re-encodes byte-for-byte.
func TestKeepAliveKnownVectorRoundTrip(t *testing.T) {
	header := "5243050501020000"
	chunk := "00000000000000000000000000000000" + "a31b"
	raw, err := hex.DecodeString(header + strings.Repeat(chunk, 8))
	if err != nil {
		t.Fatalf("hex.DecodeString: %v", err)
	}

	msg, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Header.Magic != magicByte ||
		msg.Header.Network != NetworkMain ||
		msg.Header.VersionMax != 5 ||
		msg.Header.VersionUsing != 5 ||
		msg.Header.VersionMin != 1 ||
		msg.Header.Kind != MessageKindKeepAlive ||
		msg.Header.Extensions != 0 {
		t.Fatalf("header mismatch: %+v", msg.Header)
	}
	ka, ok := msg.Payload.(KeepAlivePayload)
	if !ok {
		t.Fatalf("payload type %T, want KeepAlivePayload", msg.Payload)
	}
	if len(ka.Peers) != 8 {
		t.Fatalf("len(Peers)=%d, want 8", len(ka.Peers))
	}
	for i, p := range ka.Peers {
		if p.String() != "[::]:7075" {
			t.Fatalf("peer %d = %s, want [::]:7075", i, p.String())
		}
	}

	reencoded, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	if !equalBytes(reencoded, raw) {
		t.Fatalf("re-encoded bytes differ:\n got  %x\n want %x", reencoded, raw)
	}
}

// INVALID-DATAGRAM (spec §8): a single byte decodes to kind=Invalid and
// never hard-fails in a way a receive loop would need to propagate.
func TestSingleByteDatagramDecodesToInvalid(t *testing.T) {
	msg, err := DecodeMessage([]byte{0x52})
	if err == nil {
		t.Fatalf("expected a diagnostic error for a short datagram")
	}
	if msg.Header.Kind != MessageKindInvalid {
		t.Fatalf("Kind=%s, want Invalid", msg.Header.Kind)
	}
	if _, ok := msg.Payload.(InvalidPayload); !ok {
		t.Fatalf("payload type %T, want InvalidPayload", msg.Payload)
	}
}

func TestDecodeMessageUnrecognizedEnumeratorDecodesToInvalid(t *testing.T) {
	raw := make([]byte, consensus.HeaderSize)
	raw[0] = magicByte
	raw[1] = byte(NetworkMain)
	raw[5] = 0xEE // unrecognized message kind
	msg, err := DecodeMessage(raw)
	if err == nil {
		t.Fatalf("expected an error for an unrecognized header enumerator")
	}
	if msg.Header.Kind != MessageKindInvalid {
		t.Fatalf("Kind=%s, want Invalid", msg.Header.Kind)
	}
}

func TestEncodeMessageRejectsUnrecognizedEnumerator(t *testing.T) {
	msg := Message{
		Header:  Header{Magic: magicByte, Network: NetworkKind(0xFF), Kind: MessageKindInvalid},
		Payload: InvalidPayload{},
	}
	if _, err := EncodeMessage(msg); err == nil {
		t.Fatalf("expected EncodeMessage to fail on an invalid network byte")
	}
}

func samplePublishMessage(t *testing.T) Message {
	t.Helper()
	var prev consensus.Hash32
	var dest consensus.Key32
	for i := range prev {
		prev[i] = byte(i)
	}
	for i := range dest {
		dest[i] = byte(255 - i)
	}
	blk := consensus.NewBlock(consensus.SendPayload{
		Previous:    prev,
		Destination: dest,
		Balance:     consensus.BalanceFromUint64(1),
	})
	var sig consensus.Sig64
	for i := range sig {
		sig[i] = byte(i * 3)
	}
	blk.Signature = &sig
	var work consensus.Work
	for i := range work {
		work[i] = byte(i + 1)
	}
	blk.WorkValue = &work

	hdr := NewHeader(MessageKindPublish)
	hdr.BlockKind = consensus.BlockKindSend
	return Message{Header: hdr, Payload: PublishPayload{Block: blk}}
}

func TestPublishMessageRoundTrip(t *testing.T) {
	msg := samplePublishMessage(t)
	raw, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	decoded, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	pub, ok := decoded.Payload.(PublishPayload)
	if !ok {
		t.Fatalf("payload type %T, want PublishPayload", decoded.Payload)
	}
	if pub.Block.Hash() != msg.Payload.(PublishPayload).Block.Hash() {
		t.Fatalf("decoded block hash mismatch")
	}
	if *pub.Block.Signature != *msg.Payload.(PublishPayload).Block.Signature {
		t.Fatalf("decoded signature mismatch")
	}
	if *pub.Block.WorkValue != *msg.Payload.(PublishPayload).Block.WorkValue {
		t.Fatalf("decoded work mismatch")
	}
}

func TestConfirmReqMessageRoundTrip(t *testing.T) {
	msg := samplePublishMessage(t)
	msg.Header.Kind = MessageKindConfirmReq
	msg.Payload = ConfirmReqPayload{Block: msg.Payload.(PublishPayload).Block}

	raw, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	decoded, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	req, ok := decoded.Payload.(ConfirmReqPayload)
	if !ok {
		t.Fatalf("payload type %T, want ConfirmReqPayload", decoded.Payload)
	}
	if req.Block.Hash() != msg.Payload.(ConfirmReqPayload).Block.Hash() {
		t.Fatalf("decoded block hash mismatch")
	}
}

func TestConfirmAckMessageRoundTrip(t *testing.T) {
	inner := samplePublishMessage(t)
	blk := inner.Payload.(PublishPayload).Block

	var voter consensus.Key32
	for i := range voter {
		voter[i] = byte(i + 10)
	}
	var ackSig consensus.Sig64
	for i := range ackSig {
		ackSig[i] = byte(i + 20)
	}
	hdr := NewHeader(MessageKindConfirmAck)
	hdr.BlockKind = consensus.BlockKindSend
	msg := Message{
		Header: hdr,
		Payload: ConfirmAckPayload{
			Voter:     voter,
			Signature: ackSig,
			Sequence:  42,
			Block:     blk,
		},
	}

	raw, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	decoded, err := DecodeMessage(raw)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	ack, ok := decoded.Payload.(ConfirmAckPayload)
	if !ok {
		t.Fatalf("payload type %T, want ConfirmAckPayload", decoded.Payload)
	}
	if ack.Voter != voter || ack.Signature != ackSig || ack.Sequence != 42 {
		t.Fatalf("confirm ack envelope mismatch: %+v", ack)
	}
	if ack.Block.Hash() != blk.Hash() {
		t.Fatalf("decoded block hash mismatch")
	}
}

func TestDecodeBlockMessageMissingSignature(t *testing.T) {
	msg := samplePublishMessage(t)
	blk := msg.Payload.(PublishPayload).Block
	payloadOnly := blk.Serialize()

	raw := make([]byte, 0, consensus.HeaderSize+len(payloadOnly))
	hdrBytes, err := encodeHeader(msg.Header)
	if err != nil {
		t.Fatalf("encodeHeader: %v", err)
	}
	raw = append(raw, hdrBytes[:]...)
	raw = append(raw, payloadOnly...)

	_, err = DecodeMessage(raw)
	if err == nil {
		t.Fatalf("expected an error decoding a block message with no signature/work")
	}
}

func TestKeepAliveEncodePadsToEightEntries(t *testing.T) {
	one := encodeKeepAlive(KeepAlivePayload{Peers: []PeerAddr{{Port: 7075}}})
	if len(one) != keepAliveEntries*addrChunkSize {
		t.Fatalf("len=%d, want %d", len(one), keepAliveEntries*addrChunkSize)
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
