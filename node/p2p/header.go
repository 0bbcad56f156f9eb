// Package p2p implements the datagram wire codec (spec §4.4, C5): a fixed
// 8-byte header plus one of four in-scope payload variants.
package p2p

import (
	"fmt"

	"github.com/nanomesh-go/node/consensus"
)

// NetworkKind identifies which of the three gossip networks a message
// belongs to (spec §3).
type NetworkKind byte

const (
	NetworkTest NetworkKind = 0x41
	NetworkBeta NetworkKind = 0x42
	NetworkMain NetworkKind = 0x43
)

func (n NetworkKind) String() string {
	switch n {
	case NetworkTest:
		return "Test"
	case NetworkBeta:
		return "Beta"
	case NetworkMain:
		return "Main"
	default:
		return "Unknown"
	}
}

func (n NetworkKind) valid() bool {
	switch n {
	case NetworkTest, NetworkBeta, NetworkMain:
		return true
	default:
		return false
	}
}

// MessageKind is the header's message-type tag (spec §3). Only KeepAlive,
// Publish, ConfirmReq and ConfirmAck are handled by this node; the rest are
// recognized in a header, their payloads decode to InvalidPayload, and they
// are never dispatched (spec §4.6: "Others: no-op").
type MessageKind byte

const (
	MessageKindInvalid     MessageKind = 0x00
	MessageKindNotAMessage MessageKind = 0x01
	MessageKindKeepAlive   MessageKind = 0x02
	MessageKindPublish     MessageKind = 0x03
	MessageKindConfirmReq  MessageKind = 0x04
	MessageKindConfirmAck  MessageKind = 0x05
	MessageKindBulkPull    MessageKind = 0x06
	MessageKindBulkPush    MessageKind = 0x07
	MessageKindFrontierReq MessageKind = 0x08
)

func (k MessageKind) String() string {
	switch k {
	case MessageKindInvalid:
		return "Invalid"
	case MessageKindNotAMessage:
		return "NotAMessage"
	case MessageKindKeepAlive:
		return "KeepAlive"
	case MessageKindPublish:
		return "Publish"
	case MessageKindConfirmReq:
		return "ConfirmReq"
	case MessageKindConfirmAck:
		return "ConfirmAck"
	case MessageKindBulkPull:
		return "BulkPull"
	case MessageKindBulkPush:
		return "BulkPush"
	case MessageKindFrontierReq:
		return "FrontierReq"
	default:
		return "Unknown"
	}
}

func (k MessageKind) valid() bool {
	switch k {
	case MessageKindInvalid, MessageKindNotAMessage, MessageKindKeepAlive,
		MessageKindPublish, MessageKindConfirmReq, MessageKindConfirmAck,
		MessageKindBulkPull, MessageKindBulkPush, MessageKindFrontierReq:
		return true
	default:
		return false
	}
}

// Extension bits (spec §3).
const (
	ExtensionIPv4Only byte = 1 << 0
	ExtensionBootstrap byte = 1 << 1
)

// magicByte is the single legal value of the header's first byte. It is a
// protocol constant, not a per-message choice.
const magicByte = 0x52

// Header is the fixed 8-byte message prefix (spec §3).
type Header struct {
	Magic        byte
	Network      NetworkKind
	VersionMax   byte
	VersionUsing byte
	VersionMin   byte
	Kind         MessageKind
	BlockKind    consensus.BlockKind
	Extensions   byte
}

// NewHeader builds a Header with the spec's default field values (§9
// "Builder vs. defaults"): network=Main, versions=5/5/1, block_kind=Invalid,
// extensions=0, magic set correctly. Callers override Kind and, for
// Publish/ConfirmReq/ConfirmAck, BlockKind.
func NewHeader(kind MessageKind) Header {
	return Header{
		Magic:        magicByte,
		Network:      NetworkMain,
		VersionMax:   5,
		VersionUsing: 5,
		VersionMin:   1,
		Kind:         kind,
		BlockKind:    consensus.BlockKindInvalid,
		Extensions:   0,
	}
}

// decodeHeader reads the fixed header from b (which must be exactly
// HeaderSize bytes). Per spec §4.4 this never fails: any byte carrying an
// enumerator this implementation doesn't recognize decodes the whole header
// to Kind=Invalid rather than erroring, and ok reports whether every field
// came back well-formed (false means "the caller should treat this as
// Invalid and not look at the other fields").
func decodeHeader(b [consensus.HeaderSize]byte) (Header, bool) {
	h := Header{
		Magic:        b[0],
		Network:      NetworkKind(b[1]),
		VersionMax:   b[2],
		VersionUsing: b[3],
		VersionMin:   b[4],
		Kind:         MessageKind(b[5]),
		BlockKind:    consensus.BlockKind(b[6]),
		Extensions:   b[7],
	}
	ok := h.Magic == magicByte && h.Network.valid() && h.Kind.valid() &&
		h.BlockKind <= consensus.BlockKindState
	if !ok {
		h.Kind = MessageKindInvalid
	}
	return h, ok
}

// encodeHeader is the strict inverse of decodeHeader: it fails on any
// unrecognized enumerator (spec §4.4, "MUST fail strict re-encoding").
func encodeHeader(h Header) ([consensus.HeaderSize]byte, error) {
	var out [consensus.HeaderSize]byte
	if h.Magic != magicByte {
		return out, fmt.Errorf("p2p: invalid magic byte 0x%02x", h.Magic)
	}
	if !h.Network.valid() {
		return out, fmt.Errorf("p2p: invalid network byte 0x%02x", byte(h.Network))
	}
	if !h.Kind.valid() {
		return out, fmt.Errorf("p2p: invalid message kind 0x%02x", byte(h.Kind))
	}
	if h.BlockKind > consensus.BlockKindState {
		return out, fmt.Errorf("p2p: invalid block kind 0x%02x", byte(h.BlockKind))
	}
	out[0] = h.Magic
	out[1] = byte(h.Network)
	out[2] = h.VersionMax
	out[3] = h.VersionUsing
	out[4] = h.VersionMin
	out[5] = byte(h.Kind)
	out[6] = byte(h.BlockKind)
	out[7] = h.Extensions
	return out, nil
}
