package consensus

import "fmt"

// cursor is a small offset-tracked byte reader, in the shape of the
// teacher's consensus/util.go + parse.go helpers (readExact/readU32LE/etc.),
// trimmed to the fixed-width primitives this wire format needs — there are
// no variable-length (CompactSize) fields anywhere in this protocol.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(b []byte) *cursor {
	return &cursor{buf: b}
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) readExact(n int) ([]byte, error) {
	if n < 0 || c.remaining() < n {
		return nil, fmt.Errorf("consensus: short read: want %d have %d", n, c.remaining())
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) readByte() (byte, error) {
	b, err := c.readExact(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) readHash32() (Hash32, error) {
	var out Hash32
	b, err := c.readExact(32)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

func (c *cursor) readKey32() (Key32, error) {
	var out Key32
	b, err := c.readExact(32)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}
