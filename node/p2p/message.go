package p2p

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nanomesh-go/node/consensus"
)

// MessagePayload is implemented by every payload variant this codec knows,
// in scope or not (spec §3). Out-of-scope kinds (BulkPull, BulkPush,
// FrontierReq) always decode to InvalidPayload — this node never dispatches
// them (spec §4.6).
type MessagePayload interface {
	Kind() MessageKind
}

// InvalidPayload is substituted whenever decode fails at any stage (spec
// §4.4's decode policy): malformed input never produces a hard error.
type InvalidPayload struct{}

func (InvalidPayload) Kind() MessageKind { return MessageKindInvalid }

// KeepAlivePayload carries the peer-list gossip body. Peers is whatever the
// wire actually contained; Encode pads/truncates to exactly
// keepAliveEntries regardless of len(Peers) (spec §4.4, §8 property 4).
type KeepAlivePayload struct {
	Peers []PeerAddr
}

func (KeepAlivePayload) Kind() MessageKind { return MessageKindKeepAlive }

// PublishPayload announces a block (spec §3).
type PublishPayload struct {
	Block *consensus.Block
}

func (PublishPayload) Kind() MessageKind { return MessageKindPublish }

// ConfirmReqPayload requests a vote on a block (spec §3).
type ConfirmReqPayload struct {
	Block *consensus.Block
}

func (ConfirmReqPayload) Kind() MessageKind { return MessageKindConfirmReq }

// ConfirmAckPayload casts a vote for a block (spec §3).
type ConfirmAckPayload struct {
	Voter     consensus.Key32
	Signature consensus.Sig64
	Sequence  uint64
	Block     *consensus.Block
}

func (ConfirmAckPayload) Kind() MessageKind { return MessageKindConfirmAck }

// Message is a decoded header plus its payload.
type Message struct {
	Header  Header
	Payload MessagePayload
}

var errShortRead = errors.New("p2p: short read")

// DecodeMessage parses a full datagram. It never returns a Message with a
// nil Payload, and it never hard-fails in the sense of stopping the caller's
// receive loop: any error returned is purely diagnostic (for logging, per
// spec §7's propagation policy), and the returned Message already carries
// MessageKindInvalid / InvalidPayload{} in that case (spec §4.4).
func DecodeMessage(b []byte) (Message, error) {
	if len(b) < consensus.HeaderSize {
		return Message{Header: Header{Kind: MessageKindInvalid}, Payload: InvalidPayload{}},
			&consensus.HeaderLengthError{Len: len(b)}
	}
	var raw [consensus.HeaderSize]byte
	copy(raw[:], b[:consensus.HeaderSize])
	hdr, ok := decodeHeader(raw)
	rest := b[consensus.HeaderSize:]
	if !ok {
		return Message{Header: hdr, Payload: InvalidPayload{}},
			newErr(consensus.ErrInvalidMagicNumber, "unrecognized header enumerator")
	}

	payload, err := decodePayload(hdr, rest)
	if err != nil {
		hdr.Kind = MessageKindInvalid
		return Message{Header: hdr, Payload: InvalidPayload{}}, err
	}
	return Message{Header: hdr, Payload: payload}, nil
}

func decodePayload(hdr Header, rest []byte) (MessagePayload, error) {
	switch hdr.Kind {
	case MessageKindKeepAlive:
		return decodeKeepAlive(rest)
	case MessageKindPublish:
		blk, err := decodeBlockMessage(hdr.BlockKind, rest)
		if err != nil {
			return nil, err
		}
		return PublishPayload{Block: blk}, nil
	case MessageKindConfirmReq:
		blk, err := decodeBlockMessage(hdr.BlockKind, rest)
		if err != nil {
			return nil, err
		}
		return ConfirmReqPayload{Block: blk}, nil
	case MessageKindConfirmAck:
		return decodeConfirmAck(hdr.BlockKind, rest)
	default:
		return InvalidPayload{}, nil
	}
}

func decodeKeepAlive(b []byte) (MessagePayload, error) {
	n := len(b) / addrChunkSize
	if n == 0 {
		return nil, errShortRead
	}
	peers := make([]PeerAddr, 0, n)
	for i := 0; i < n; i++ {
		chunk := b[i*addrChunkSize : (i+1)*addrChunkSize]
		peers = append(peers, decodePeerAddr(chunk))
	}
	return KeepAlivePayload{Peers: peers}, nil
}

func decodeBlockMessage(blockKind consensus.BlockKind, b []byte) (*consensus.Block, error) {
	payload, n, err := consensus.DecodeBlockPayload(blockKind, b)
	if err != nil {
		return nil, err
	}
	rest := b[n:]
	if len(rest) < 64 {
		return nil, &consensus.CodedError{Code: consensus.ErrBlockParseNoSignature}
	}
	var sig consensus.Sig64
	copy(sig[:], rest[:64])
	rest = rest[64:]

	if len(rest) < 8 {
		return nil, &consensus.CodedError{Code: consensus.ErrBlockParseNoWork}
	}
	var wireWork [8]byte
	copy(wireWork[:], rest[:8])
	work := consensus.DecodeWorkOnWire(wireWork, blockKind)

	blk := consensus.NewBlock(payload)
	blk.Signature = &sig
	blk.WorkValue = &work
	return blk, nil
}

func decodeConfirmAck(blockKind consensus.BlockKind, b []byte) (MessagePayload, error) {
	if len(b) < 32 {
		return nil, errShortRead
	}
	var voter consensus.Key32
	copy(voter[:], b[:32])
	rest := b[32:]

	if len(rest) < 64 {
		return nil, &consensus.CodedError{Code: consensus.ErrSignatureLength}
	}
	var sig consensus.Sig64
	copy(sig[:], rest[:64])
	rest = rest[64:]

	if len(rest) < 8 {
		return nil, errShortRead
	}
	sequence := binary.LittleEndian.Uint64(rest[:8])
	rest = rest[8:]

	blk, err := decodeBlockMessage(blockKind, rest)
	if err != nil {
		return nil, err
	}
	return ConfirmAckPayload{Voter: voter, Signature: sig, Sequence: sequence, Block: blk}, nil
}

// EncodeMessage is the strict inverse of DecodeMessage: it fails on any
// unrecognized header enumerator or incompletely-assembled payload (spec
// §4.4's "MUST fail strict re-encoding").
func EncodeMessage(m Message) ([]byte, error) {
	hdrBytes, err := encodeHeader(m.Header)
	if err != nil {
		return nil, err
	}
	body, err := encodePayload(m.Header, m.Payload)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(hdrBytes)+len(body))
	out = append(out, hdrBytes[:]...)
	out = append(out, body...)
	return out, nil
}

func encodePayload(hdr Header, payload MessagePayload) ([]byte, error) {
	switch p := payload.(type) {
	case InvalidPayload:
		if hdr.Kind != MessageKindInvalid && hdr.Kind != MessageKindNotAMessage {
			return nil, fmt.Errorf("p2p: header kind %s has no payload to encode", hdr.Kind)
		}
		return nil, nil
	case KeepAlivePayload:
		return encodeKeepAlive(p), nil
	case PublishPayload:
		return encodeBlockMessage(p.Block, hdr.BlockKind)
	case ConfirmReqPayload:
		return encodeBlockMessage(p.Block, hdr.BlockKind)
	case ConfirmAckPayload:
		return encodeConfirmAck(p, hdr.BlockKind)
	default:
		return nil, fmt.Errorf("p2p: unknown payload type %T", payload)
	}
}

func encodeKeepAlive(p KeepAlivePayload) []byte {
	entries := make([]PeerAddr, keepAliveEntries)
	copy(entries, p.Peers)
	for i := len(p.Peers); i < keepAliveEntries; i++ {
		entries[i] = ZeroAddr
	}
	out := make([]byte, 0, keepAliveEntries*addrChunkSize)
	for _, e := range entries[:keepAliveEntries] {
		chunk := encodePeerAddr(e)
		out = append(out, chunk[:]...)
	}
	return out
}

func encodeBlockMessage(blk *consensus.Block, blockKind consensus.BlockKind) ([]byte, error) {
	if blk == nil {
		return nil, fmt.Errorf("p2p: nil block")
	}
	if blk.Signature == nil {
		return nil, &consensus.CodedError{Code: consensus.ErrBlockParseNoSignature, Msg: "block has no signature"}
	}
	if blk.WorkValue == nil {
		return nil, &consensus.CodedError{Code: consensus.ErrBlockParseNoWork, Msg: "block has no work"}
	}
	out := blk.Serialize()
	out = append(out, blk.Signature[:]...)
	wireWork := consensus.EncodeWorkOnWire(*blk.WorkValue, blockKind)
	out = append(out, wireWork[:]...)
	return out, nil
}

func encodeConfirmAck(p ConfirmAckPayload, blockKind consensus.BlockKind) ([]byte, error) {
	blockBytes, err := encodeBlockMessage(p.Block, blockKind)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 32+64+8+len(blockBytes))
	out = append(out, p.Voter[:]...)
	out = append(out, p.Signature[:]...)
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], p.Sequence)
	out = append(out, seq[:]...)
	out = append(out, blockBytes...)
	return out, nil
}

func newErr(code consensus.ErrorCode, msg string) error {
	return &consensus.CodedError{Code: code, Msg: msg}
}
