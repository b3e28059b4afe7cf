// Package scanner lexes raw PDF syntax from an in-memory buffer. It exposes
// the byte cursor used for the non-linear scans the file format requires
// (header detection, tail-first trailer discovery) and a tokenizer with a
// small state machine for stream bodies.
package scanner

import (
	"errors"
	"strconv"

	"github.com/m-mizutani/goerr/v2"

	"pdfraw/limits"
)

// Lexing failure kinds. Call sites wrap these with the byte offset at which
// the malformed construct was detected.
var (
	ErrUnexpectedEOF       = errors.New("unexpected end of input")
	ErrIllegalNumber       = errors.New("illegal numeric literal")
	ErrIllegalEscape       = errors.New("illegal string escape")
	ErrIllegalHexDigit     = errors.New("illegal hex digit")
	ErrStrayDelimiter      = errors.New("stray delimiter")
	ErrUnknownKeyword      = errors.New("unrecognized keyword")
	ErrLimitExceeded       = errors.New("lexing limit exceeded")
	ErrStreamNewline       = errors.New("stream keyword must be followed by a newline")
	ErrStreamLengthUnknown = errors.New("stream body requested without a length")
	ErrSeekOutOfRange      = errors.New("seek out of range")
)

// state is the lexing mode. The scanner is in stateStream only between
// emitting the stream keyword and emitting the single raw body token.
type state int

const (
	stateLex state = iota
	stateStream
)

type Config struct {
	Limits limits.Limits
}

// Scanner turns the cursor position into a stream of tokens. Tokens record
// their starting offset; the cursor remains the source of truth for the
// current position. One Scanner serves exactly one parse and is not safe for
// concurrent use.
type Scanner struct {
	cur           *Cursor
	cfg           Config
	state         state
	nextStreamLen int64
}

// New returns a scanner over the whole file buffer.
func New(data []byte, cfg Config) *Scanner {
	cfg.Limits = cfg.Limits.OrDefault()
	return &Scanner{cur: NewCursor(data), cfg: cfg, nextStreamLen: -1}
}

// Cursor exposes the underlying cursor for non-token scans (backward
// searches over the file tail).
func (s *Scanner) Cursor() *Cursor { return s.cur }

func (s *Scanner) Pos() int { return s.cur.Pos() }

// SetPos moves the cursor without validation. Used for save/restore
// backtracking over positions previously obtained from Pos.
func (s *Scanner) SetPos(pos int) { s.cur.SetPos(pos) }

// Seek moves the cursor to an absolute offset and resets the lexing mode.
func (s *Scanner) Seek(pos int) error {
	if pos < 0 || pos > s.cur.Len() {
		return goerr.Wrap(ErrSeekOutOfRange, "cannot seek", goerr.V("offset", pos), goerr.V("size", s.cur.Len()))
	}
	s.cur.SetPos(pos)
	s.state = stateLex
	s.nextStreamLen = -1
	return nil
}

// SetNextStreamLength tells the scanner how many raw bytes the upcoming
// stream body token spans. The declared length is authoritative; the body is
// never searched for the endstream keyword.
func (s *Scanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

// Mark captures the cursor position and lexing mode so the caller can jump
// elsewhere in the buffer and come back, even from inside a stream parse.
type Mark struct {
	pos       int
	st        state
	streamLen int64
}

func (s *Scanner) Mark() Mark {
	return Mark{pos: s.cur.Pos(), st: s.state, streamLen: s.nextStreamLen}
}

func (s *Scanner) Reset(m Mark) {
	s.cur.SetPos(m.pos)
	s.state = m.st
	s.nextStreamLen = m.streamLen
}

// PeekToken lexes the next token and restores the prior cursor position and
// lexing mode, giving one-token lookahead without consumption.
func (s *Scanner) PeekToken() (Token, error) {
	m := s.Mark()
	tok, err := s.ChopToken()
	s.Reset(m)
	return tok, err
}

// ChopToken lexes and consumes the next token.
func (s *Scanner) ChopToken() (Token, error) {
	if s.state == stateStream {
		return s.chopStreamBody()
	}
	s.skipWhitespace()
	start := s.cur.Pos()
	b, ok := s.cur.Byte()
	if !ok {
		return Token{}, goerr.Wrap(ErrUnexpectedEOF, "no more tokens", goerr.V("offset", start))
	}
	switch {
	case b == '<':
		if s.cur.HasPrefix([]byte("<<")) {
			s.cur.ChopChar()
			s.cur.ChopChar()
			return Token{Type: TokenDictBegin, Pos: start}, nil
		}
		s.cur.ChopChar()
		return s.chopHexString(start)
	case b == '>':
		if s.cur.HasPrefix([]byte(">>")) {
			s.cur.ChopChar()
			s.cur.ChopChar()
			return Token{Type: TokenDictEnd, Pos: start}, nil
		}
		return Token{}, goerr.Wrap(ErrStrayDelimiter, "lone > outside hex string", goerr.V("offset", start))
	case b == '[':
		s.cur.ChopChar()
		return Token{Type: TokenArrayBegin, Pos: start}, nil
	case b == ']':
		s.cur.ChopChar()
		return Token{Type: TokenArrayEnd, Pos: start}, nil
	case b == '/':
		return s.chopName(start)
	case b == '(':
		return s.chopLiteralString(start)
	case b == '+' || b == '-' || b == '.' || isDigit(b):
		return s.chopNumber(start)
	case IsDelimiter(b):
		return Token{}, goerr.Wrap(ErrStrayDelimiter, "unexpected delimiter", goerr.V("byte", string(b)), goerr.V("offset", start))
	default:
		return s.chopKeyword(start)
	}
}

// skipWhitespace consumes whitespace and %-comments before a token.
func (s *Scanner) skipWhitespace() {
	for {
		b, ok := s.cur.Byte()
		if !ok {
			return
		}
		if IsWhitespace(b) {
			s.cur.ChopChar()
			continue
		}
		if b == '%' {
			for {
				ch, ok := s.cur.ChopChar()
				if !ok || ch == '\n' {
					break
				}
			}
			continue
		}
		return
	}
}

func (s *Scanner) chopName(start int) (Token, error) {
	s.cur.ChopChar() // '/'
	var out []byte
	for {
		b, ok := s.cur.Byte()
		if !ok || !IsNormal(b) {
			break
		}
		if b == '#' {
			s.cur.ChopChar()
			hi, err := s.chopHexDigit()
			if err != nil {
				return Token{}, err
			}
			lo, err := s.chopHexDigit()
			if err != nil {
				return Token{}, err
			}
			out = append(out, hi<<4|lo)
		} else {
			s.cur.ChopChar()
			out = append(out, b)
		}
		if len(out) > s.cfg.Limits.MaxNameLength {
			return Token{}, goerr.Wrap(ErrLimitExceeded, "name too long", goerr.V("offset", start))
		}
	}
	return Token{Type: TokenName, Str: string(out), Pos: start}, nil
}

func (s *Scanner) chopHexDigit() (byte, error) {
	b, ok := s.cur.Byte()
	if !ok {
		return 0, goerr.Wrap(ErrUnexpectedEOF, "hex escape cut short", goerr.V("offset", s.cur.Pos()))
	}
	v, ok := hexVal(b)
	if !ok {
		return 0, goerr.Wrap(ErrIllegalHexDigit, "in hex escape", goerr.V("byte", string(b)), goerr.V("offset", s.cur.Pos()))
	}
	s.cur.ChopChar()
	return v, nil
}

func (s *Scanner) chopLiteralString(start int) (Token, error) {
	s.cur.ChopChar() // '('
	var out []byte
	depth := 1
	for depth > 0 {
		b, ok := s.cur.Byte()
		if !ok {
			return Token{}, goerr.Wrap(ErrUnexpectedEOF, "unterminated literal string", goerr.V("offset", start))
		}
		switch b {
		case '(':
			depth++
			ch, _ := s.cur.ChopChar()
			out = append(out, ch)
		case ')':
			depth--
			s.cur.ChopChar()
			if depth > 0 {
				out = append(out, ')')
			}
		case '\\':
			s.cur.ChopChar()
			esc, err := s.chopEscape()
			if err != nil {
				return Token{}, err
			}
			out = append(out, esc...)
		default:
			ch, _ := s.cur.ChopChar()
			out = append(out, ch)
		}
		if int64(len(out)) > s.cfg.Limits.MaxStringLength {
			return Token{}, goerr.Wrap(ErrLimitExceeded, "literal string too long", goerr.V("offset", start))
		}
	}
	return Token{Type: TokenString, Bytes: out, Pos: start}, nil
}

// chopEscape decodes the character(s) following a backslash. A backslash
// immediately before a line break is a line continuation and yields no byte.
func (s *Scanner) chopEscape() ([]byte, error) {
	b, ok := s.cur.Byte()
	if !ok {
		return nil, goerr.Wrap(ErrUnexpectedEOF, "escape cut short", goerr.V("offset", s.cur.Pos()))
	}
	switch {
	case b == 'n':
		s.cur.ChopChar()
		return []byte{'\n'}, nil
	case b == 'r':
		s.cur.ChopChar()
		return []byte{'\r'}, nil
	case b == 't':
		s.cur.ChopChar()
		return []byte{'\t'}, nil
	case b == 'b':
		s.cur.ChopChar()
		return []byte{'\b'}, nil
	case b == 'f':
		s.cur.ChopChar()
		return []byte{'\f'}, nil
	case b == '(' || b == ')' || b == '\\':
		s.cur.ChopChar()
		return []byte{b}, nil
	case b == '\r' || b == '\n':
		s.cur.ChopChar() // consumes a full CRLF pair
		return nil, nil
	case b >= '0' && b <= '7':
		val := 0
		for i := 0; i < 3; i++ {
			d, ok := s.cur.Byte()
			if !ok || d < '0' || d > '7' {
				break
			}
			s.cur.ChopChar()
			val = val<<3 | int(d-'0')
		}
		return []byte{byte(val)}, nil
	default:
		return nil, goerr.Wrap(ErrIllegalEscape, "unknown escape character", goerr.V("byte", string(b)), goerr.V("offset", s.cur.Pos()))
	}
}

func (s *Scanner) chopHexString(start int) (Token, error) {
	var nibbles []byte
	for {
		b, ok := s.cur.Byte()
		if !ok {
			return Token{}, goerr.Wrap(ErrUnexpectedEOF, "unterminated hex string", goerr.V("offset", start))
		}
		if b == '>' {
			s.cur.ChopChar()
			break
		}
		if IsWhitespace(b) {
			s.cur.ChopChar()
			continue
		}
		v, ok := hexVal(b)
		if !ok {
			return Token{}, goerr.Wrap(ErrIllegalHexDigit, "in hex string", goerr.V("byte", string(b)), goerr.V("offset", s.cur.Pos()))
		}
		s.cur.ChopChar()
		nibbles = append(nibbles, v)
		if int64(len(nibbles)/2) > s.cfg.Limits.MaxStringLength {
			return Token{}, goerr.Wrap(ErrLimitExceeded, "hex string too long", goerr.V("offset", start))
		}
	}
	// Odd digit counts are zero-padded on the right before pairing.
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0)
	}
	out := make([]byte, 0, len(nibbles)/2)
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return Token{Type: TokenString, Bytes: out, Hex: true, Pos: start}, nil
}

func (s *Scanner) chopNumber(start int) (Token, error) {
	word := s.cur.ChopWhile(func(b byte) bool {
		return isDigit(b) || b == '.' || b == '+' || b == '-'
	})
	if i, err := strconv.ParseInt(string(word), 10, 64); err == nil {
		return Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start}, nil
	}
	if f, err := strconv.ParseFloat(string(word), 64); err == nil {
		return Token{Type: TokenNumber, Float: f, Pos: start}, nil
	}
	return Token{}, goerr.Wrap(ErrIllegalNumber, "neither integer nor real", goerr.V("literal", string(word)), goerr.V("offset", start))
}

func (s *Scanner) chopKeyword(start int) (Token, error) {
	word := s.cur.ChopWord()
	if len(word) == 0 {
		return Token{}, goerr.Wrap(ErrStrayDelimiter, "empty word", goerr.V("offset", start))
	}
	kw, ok := LookupKeyword(word)
	if !ok {
		return Token{}, goerr.Wrap(ErrUnknownKeyword, "not in the keyword table", goerr.V("word", string(word)), goerr.V("offset", start))
	}
	if kw == KeywordStream {
		s.state = stateStream
	}
	return Token{Type: TokenKeyword, Keyword: kw, Pos: start}, nil
}

// chopStreamBody emits the single raw-bytes token for a stream body. The
// caller must have set the body length beforehand; exactly that many bytes
// are sliced after the mandatory newline following the stream keyword.
func (s *Scanner) chopStreamBody() (Token, error) {
	start := s.cur.Pos()
	s.state = stateLex
	n := s.nextStreamLen
	s.nextStreamLen = -1
	if n < 0 {
		return Token{}, goerr.Wrap(ErrStreamLengthUnknown, "stream body", goerr.V("offset", start))
	}
	if n > s.cfg.Limits.MaxStreamLength {
		return Token{}, goerr.Wrap(ErrLimitExceeded, "stream too long", goerr.V("length", n), goerr.V("offset", start))
	}
	ch, ok := s.cur.ChopChar()
	if !ok || ch != '\n' {
		return Token{}, goerr.Wrap(ErrStreamNewline, "before stream data", goerr.V("offset", start))
	}
	body, ok := s.cur.Slurp(int(n))
	if !ok {
		return Token{}, goerr.Wrap(ErrUnexpectedEOF, "stream body shorter than declared length", goerr.V("length", n), goerr.V("offset", start))
	}
	return Token{Type: TokenString, Bytes: body, Pos: start}, nil
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	}
	return 0, false
}
