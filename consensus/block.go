package consensus

// BlockKind is the 1-byte block-shape tag (spec §3).
type BlockKind byte

const (
	BlockKindInvalid   BlockKind = 0x00
	BlockKindNotABlock BlockKind = 0x01
	BlockKindSend      BlockKind = 0x02
	BlockKindReceive   BlockKind = 0x03
	BlockKindOpen      BlockKind = 0x04
	BlockKindChange    BlockKind = 0x05
	BlockKindState     BlockKind = 0x06
)

func (k BlockKind) String() string {
	switch k {
	case BlockKindInvalid:
		return "Invalid"
	case BlockKindNotABlock:
		return "NotABlock"
	case BlockKindSend:
		return "Send"
	case BlockKindReceive:
		return "Receive"
	case BlockKindOpen:
		return "Open"
	case BlockKindChange:
		return "Change"
	case BlockKindState:
		return "State"
	default:
		return "Unknown"
	}
}

// payloadSize returns the on-wire payload length for kind (spec §3's table).
//
// The Change entry is 64, not the 32 the spec's summary table lists: the
// BlockPayload definition it sits next to names two 32-byte fields
// (previous, representative), and fu5ha/nano-rs's BlockKind::size() — the
// source this spec distills — returns 32 for the same shape while never
// implementing a ChangeBlock struct to match, which is the kind of
// inherited-but-unexercised bug spec §9 already calls out twice elsewhere.
// We follow the field list, which is the only version of the contract that
// is internally consistent and round-trips.
func payloadSize(kind BlockKind) int {
	switch kind {
	case BlockKindSend:
		return 80
	case BlockKindReceive:
		return 64
	case BlockKindOpen:
		return 96
	case BlockKindChange:
		return 64
	case BlockKindState:
		return 144
	default:
		return 0
	}
}

// Balance128 is a 16-byte big-endian unsigned integer (spec §4.2).
type Balance128 [16]byte

// BalanceFromUint64 builds a Balance128 from a uint64 (zero-extended).
func BalanceFromUint64(v uint64) Balance128 {
	var out Balance128
	for i := 0; i < 8; i++ {
		out[15-i] = byte(v >> (8 * i))
	}
	return out
}

// BlockPayload is implemented by the five data shapes in scope (spec §3).
// Sentinel kinds (Invalid, NotABlock) never produce a BlockPayload value.
type BlockPayload interface {
	Kind() BlockKind
	serialize() []byte
	// root is the proof-of-work input: `previous` for chain-extending
	// shapes, `account` for Open (spec §4.2).
	root() Hash32
}

type SendPayload struct {
	Previous    Hash32
	Destination Key32
	Balance     Balance128
}

func (SendPayload) Kind() BlockKind { return BlockKindSend }
func (p SendPayload) root() Hash32  { return p.Previous }
func (p SendPayload) serialize() []byte {
	out := make([]byte, 0, payloadSize(BlockKindSend))
	out = append(out, p.Previous[:]...)
	out = append(out, p.Destination[:]...)
	out = append(out, p.Balance[:]...)
	return out
}

type ReceivePayload struct {
	Previous Hash32
	Source   Hash32
}

func (ReceivePayload) Kind() BlockKind { return BlockKindReceive }
func (p ReceivePayload) root() Hash32  { return p.Previous }
func (p ReceivePayload) serialize() []byte {
	out := make([]byte, 0, payloadSize(BlockKindReceive))
	out = append(out, p.Previous[:]...)
	out = append(out, p.Source[:]...)
	return out
}

type OpenPayload struct {
	Source         Hash32
	Representative Key32
	Account        Key32
}

func (OpenPayload) Kind() BlockKind { return BlockKindOpen }

// root is the account key: Open is the first block on a chain and has no
// predecessor (spec §4.2).
func (p OpenPayload) root() Hash32 { return Hash32(p.Account) }
func (p OpenPayload) serialize() []byte {
	out := make([]byte, 0, payloadSize(BlockKindOpen))
	out = append(out, p.Source[:]...)
	out = append(out, p.Representative[:]...)
	out = append(out, p.Account[:]...)
	return out
}

type ChangePayload struct {
	Previous       Hash32
	Representative Key32
}

func (ChangePayload) Kind() BlockKind { return BlockKindChange }
func (p ChangePayload) root() Hash32  { return p.Previous }
func (p ChangePayload) serialize() []byte {
	out := make([]byte, 0, payloadSize(BlockKindChange))
	out = append(out, p.Previous[:]...)
	out = append(out, p.Representative[:]...)
	return out
}

type StatePayload struct {
	Account        Key32
	Previous       Hash32
	Representative Key32
	Balance        Balance128
	Link           [32]byte
}

func (StatePayload) Kind() BlockKind { return BlockKindState }
func (p StatePayload) root() Hash32  { return p.Previous }
func (p StatePayload) serialize() []byte {
	out := make([]byte, 0, payloadSize(BlockKindState))
	out = append(out, p.Account[:]...)
	out = append(out, p.Previous[:]...)
	out = append(out, p.Representative[:]...)
	out = append(out, p.Balance[:]...)
	out = append(out, p.Link[:]...)
	return out
}

// stateDomainPrefix is 31 zero bytes followed by the State tag (spec §4.2).
// It prevents second-preimage collisions between State hashes and the
// pre-State shapes, none of which include a tag byte in their preimage.
var stateDomainPrefix = func() [32]byte {
	var p [32]byte
	p[31] = byte(BlockKindState)
	return p
}()

// Block is a payload plus an optional signature, optional work, and a cached
// hash (spec §3). The hash is a pure function of the payload; the cached
// value is only ever set by recomputing it over the payload.
type Block struct {
	Payload   BlockPayload
	Signature *Sig64
	WorkValue *Work

	hash    Hash32
	hashSet bool
}

// NewBlock constructs a Block around payload with no signature or work set.
func NewBlock(payload BlockPayload) *Block {
	return &Block{Payload: payload}
}

// Root returns the proof-of-work input for this block (spec §4.2 glossary).
func (b *Block) Root() Hash32 {
	return b.Payload.root()
}

// Hash returns the block's content-addressed digest, computing and caching
// it on first use (spec §3, §4.2).
func (b *Block) Hash() Hash32 {
	if b.hashSet {
		return b.hash
	}
	return b.RecomputeHash()
}

// RecomputeHash forces recomputation of the cached hash and returns it.
func (b *Block) RecomputeHash() Hash32 {
	preimage := b.Payload.serialize()
	if b.Payload.Kind() == BlockKindState {
		full := make([]byte, 0, 32+len(preimage))
		full = append(full, stateDomainPrefix[:]...)
		full = append(full, preimage...)
		preimage = full
	}
	b.hash = Hash32Of(preimage)
	b.hashSet = true
	return b.hash
}

// SetWork assigns w to the block, failing iff CheckWork(Root(), w) is false.
//
// This is the corrected polarity spec §9 Open Question 1 calls for: the
// distilled source's set_work rejects *valid* work because of a negated
// condition; here, failure happens exactly when the work does not satisfy
// the difficulty predicate.
func (b *Block) SetWork(w Work) error {
	if !CheckWork(b.Root(), w) {
		return newErr(ErrInvalidWork, "work does not satisfy threshold for block root")
	}
	b.WorkValue = &w
	return nil
}

// Serialize returns the raw payload bytes (no signature, no work), in the
// shape-specific field order from spec §4.2.
func (b *Block) Serialize() []byte {
	return b.Payload.serialize()
}
