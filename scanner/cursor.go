package scanner

import "bytes"

// Cursor steps forward or backward over an immutable byte buffer.
// Forward and backward character reads normalize CR and CRLF to LF so that
// line-ending handling is uniform regardless of how the file was written.
// The buffer is never mutated; all returned slices alias it.
type Cursor struct {
	data []byte
	pos  int
}

func NewCursor(data []byte) *Cursor { return &Cursor{data: data} }

func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) SetPos(pos int) { c.pos = pos }
func (c *Cursor) Len() int       { return len(c.data) }

// Byte returns the raw byte at the current position without advancing.
func (c *Cursor) Byte() (byte, bool) {
	if c.pos < 0 || c.pos >= len(c.data) {
		return 0, false
	}
	return c.data[c.pos], true
}

// PeekPrev returns the raw byte immediately before the current position.
func (c *Cursor) PeekPrev() (byte, bool) {
	if c.pos <= 0 || c.pos > len(c.data) {
		return 0, false
	}
	return c.data[c.pos-1], true
}

// HasPrefix reports whether the unread remainder begins with p.
func (c *Cursor) HasPrefix(p []byte) bool {
	if c.pos < 0 || c.pos > len(c.data) {
		return false
	}
	return bytes.HasPrefix(c.data[c.pos:], p)
}

// ChopChar consumes and returns one character, folding CR and CRLF into LF.
// A CRLF pair is consumed as a whole and reported as a single LF.
func (c *Cursor) ChopChar() (byte, bool) {
	ch, ok := c.Byte()
	if !ok {
		return 0, false
	}
	c.pos++
	if ch == '\r' {
		if b, ok := c.Byte(); ok && b == '\n' {
			c.pos++
		}
		return '\n', true
	}
	return ch, true
}

// ChopCharBackwards is the mirror of ChopChar scanning toward the buffer
// start: it consumes the character ending immediately before the current
// position, folding LF, CR, and CRLF (scanned right to left) into LF.
func (c *Cursor) ChopCharBackwards() (byte, bool) {
	if c.pos <= 0 || c.pos > len(c.data) {
		return 0, false
	}
	c.pos--
	ch := c.data[c.pos]
	switch ch {
	case '\r':
		return '\n', true
	case '\n':
		if c.pos > 0 && c.data[c.pos-1] == '\r' {
			c.pos--
		}
		return '\n', true
	}
	return ch, true
}

// ChopWhile consumes a maximal run of bytes satisfying pred and returns the
// raw (unnormalized) slice that was consumed.
func (c *Cursor) ChopWhile(pred func(byte) bool) []byte {
	begin := c.pos
	for {
		b, ok := c.Byte()
		if !ok || !pred(b) {
			break
		}
		c.ChopChar()
	}
	return c.data[begin:c.pos]
}

// ChopWord consumes a maximal run of "normal" bytes (neither whitespace nor
// delimiter).
func (c *Cursor) ChopWord() []byte { return c.ChopWhile(IsNormal) }

// ChopInt consumes a run of ASCII digits and parses it as a non-negative
// integer. It reports false when no digits are present at the cursor or the
// run does not fit in an int64.
func (c *Cursor) ChopInt() (int64, bool) {
	begin := c.pos
	var n int64
	for {
		b, ok := c.Byte()
		if !ok || !isDigit(b) {
			break
		}
		d := int64(b - '0')
		if n > ((1<<63-1)-d)/10 {
			return 0, false
		}
		n = n*10 + d
		c.pos++
	}
	if c.pos == begin {
		return 0, false
	}
	return n, true
}

// Slurp consumes exactly n raw bytes with no normalization. It reports false
// without moving the cursor when fewer than n bytes remain.
func (c *Cursor) Slurp(n int) ([]byte, bool) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, false
	}
	out := c.data[c.pos : c.pos+n]
	c.pos += n
	return out, true
}

// FindBackwards steps backward until the buffer at the cursor starts with
// target, leaving the cursor on the first byte of the match. It reports
// false when the scan runs off the front of the buffer.
func (c *Cursor) FindBackwards(target []byte) bool {
	for !c.HasPrefix(target) {
		if _, ok := c.ChopCharBackwards(); !ok {
			return false
		}
	}
	return true
}

// Byte classification per PDF 7.2.2.
func IsWhitespace(b byte) bool {
	switch b {
	case 0x00, '\t', '\n', 0x0C, '\r', ' ':
		return true
	}
	return false
}

func IsDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func IsNormal(b byte) bool { return !IsWhitespace(b) && !IsDelimiter(b) }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
