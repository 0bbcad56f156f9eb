package consensus

// DecodeBlockPayload parses a BlockPayload of the given kind from the front
// of b, in the teacher's "one parse function per shape, explicit field-by-
// field reads" style (consensus/parse.go). It returns the payload and the
// number of bytes consumed.
//
// Sentinel kinds carry no payload: decoding Invalid or NotABlock yields
// InvalidBlockPayloadKindError (spec §4.2). Any other kind rejects with a
// PayloadLengthError if fewer than payloadSize(kind) bytes remain.
func DecodeBlockPayload(kind BlockKind, b []byte) (BlockPayload, int, error) {
	switch kind {
	case BlockKindInvalid, BlockKindNotABlock:
		return nil, 0, newErr(ErrInvalidBlockPayloadKind, kind.String())
	}

	want := payloadSize(kind)
	if len(b) < want {
		return nil, 0, &PayloadLengthError{Kind: kind, Len: len(b)}
	}
	cur := newCursor(b[:want])

	var payload BlockPayload
	var err error
	switch kind {
	case BlockKindSend:
		payload, err = decodeSend(cur)
	case BlockKindReceive:
		payload, err = decodeReceive(cur)
	case BlockKindOpen:
		payload, err = decodeOpen(cur)
	case BlockKindChange:
		payload, err = decodeChange(cur)
	case BlockKindState:
		payload, err = decodeState(cur)
	default:
		return nil, 0, newErr(ErrInvalidBlockPayloadKind, kind.String())
	}
	if err != nil {
		return nil, 0, err
	}
	return payload, want, nil
}

func decodeSend(cur *cursor) (SendPayload, error) {
	var p SendPayload
	previous, err := cur.readHash32()
	if err != nil {
		return p, err
	}
	destination, err := cur.readKey32()
	if err != nil {
		return p, err
	}
	balanceBytes, err := cur.readExact(16)
	if err != nil {
		return p, err
	}
	var balance Balance128
	copy(balance[:], balanceBytes)
	return SendPayload{Previous: previous, Destination: destination, Balance: balance}, nil
}

func decodeReceive(cur *cursor) (ReceivePayload, error) {
	var p ReceivePayload
	previous, err := cur.readHash32()
	if err != nil {
		return p, err
	}
	source, err := cur.readHash32()
	if err != nil {
		return p, err
	}
	return ReceivePayload{Previous: previous, Source: source}, nil
}

func decodeOpen(cur *cursor) (OpenPayload, error) {
	var p OpenPayload
	source, err := cur.readHash32()
	if err != nil {
		return p, err
	}
	representative, err := cur.readKey32()
	if err != nil {
		return p, err
	}
	account, err := cur.readKey32()
	if err != nil {
		return p, err
	}
	return OpenPayload{Source: source, Representative: representative, Account: account}, nil
}

func decodeChange(cur *cursor) (ChangePayload, error) {
	var p ChangePayload
	previous, err := cur.readHash32()
	if err != nil {
		return p, err
	}
	representative, err := cur.readKey32()
	if err != nil {
		return p, err
	}
	return ChangePayload{Previous: previous, Representative: representative}, nil
}

func decodeState(cur *cursor) (StatePayload, error) {
	var p StatePayload
	account, err := cur.readKey32()
	if err != nil {
		return p, err
	}
	previous, err := cur.readHash32()
	if err != nil {
		return p, err
	}
	representative, err := cur.readKey32()
	if err != nil {
		return p, err
	}
	balanceBytes, err := cur.readExact(16)
	if err != nil {
		return p, err
	}
	linkBytes, err := cur.readExact(32)
	if err != nil {
		return p, err
	}
	var balance Balance128
	copy(balance[:], balanceBytes)
	var link [32]byte
	copy(link[:], linkBytes)
	return StatePayload{
		Account:        account,
		Previous:       previous,
		Representative: representative,
		Balance:        balance,
		Link:           link,
	}, nil
}
