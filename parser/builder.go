// Package parser assembles tokens into raw objects. The builder handles one
// object at a time; the document parser at the top of the package drives the
// full header-to-trailer pass.
package parser

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"pdfraw/ir/raw"
	"pdfraw/limits"
	"pdfraw/scanner"
)

// Object-level failure kinds. Lexing failures from the scanner pass through
// wrapped, so callers can still match the scanner sentinels.
var (
	ErrUnexpectedToken    = errors.New("token cannot start an object")
	ErrNonNameKey         = errors.New("dictionary key is not a name")
	ErrUnterminatedObject = errors.New("indirect object not closed by endobj")
	ErrStreamDict         = errors.New("invalid stream dictionary")
	ErrMissingEndstream   = errors.New("missing endstream after stream body")
	ErrDepthExceeded      = errors.New("container nesting too deep")
)

// Resolver dereferences an indirect object by number. The builder needs it
// for stream dictionaries whose /Length is itself an indirect reference.
type Resolver interface {
	Resolve(num int) (raw.Object, error)
}

// Builder is a recursive-descent object parser over one scanner. It consumes
// exactly the tokens of the object it returns; on `7 0` sequences not
// followed by R or obj it rewinds so only the first integer is consumed.
type Builder struct {
	sc  *scanner.Scanner
	res Resolver
	lim limits.Limits
}

// NewBuilder returns a builder over sc. res may be nil when no indirect
// /Length values can occur, such as when parsing the trailer dictionary.
func NewBuilder(sc *scanner.Scanner, res Resolver, lim limits.Limits) *Builder {
	return &Builder{sc: sc, res: res, lim: lim.OrDefault()}
}

// ParseObject parses one complete object at the current scanner position.
// An indirect object definition yields its body; `num gen R` yields a RefObj.
func (b *Builder) ParseObject() (raw.Object, error) {
	return b.parseValue(0)
}

func (b *Builder) parseValue(depth int) (raw.Object, error) {
	tok, err := b.sc.ChopToken()
	if err != nil {
		return nil, err
	}
	return b.parseFrom(tok, depth)
}

func (b *Builder) parseFrom(tok scanner.Token, depth int) (raw.Object, error) {
	switch tok.Type {
	case scanner.TokenNumber:
		if !tok.IsInt {
			return raw.Float(tok.Float), nil
		}
		return b.parseIntOrIndirect(tok, depth)
	case scanner.TokenName:
		return raw.Name(tok.Str), nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenArrayBegin:
		return b.parseArray(tok, depth+1)
	case scanner.TokenDictBegin:
		return b.parseDict(tok, depth+1)
	case scanner.TokenKeyword:
		switch tok.Keyword {
		case scanner.KeywordTrue:
			return raw.Bool(true), nil
		case scanner.KeywordFalse:
			return raw.Bool(false), nil
		case scanner.KeywordNull:
			return raw.NullObj{}, nil
		}
		return nil, goerr.Wrap(ErrUnexpectedToken, "keyword is not an object", goerr.V("token", tok.String()), goerr.V("offset", tok.Pos))
	default:
		return nil, goerr.Wrap(ErrUnexpectedToken, "", goerr.V("token", tok.String()), goerr.V("offset", tok.Pos))
	}
}

// parseIntOrIndirect disambiguates a bare integer from `num gen R` and
// `num gen obj`. The lookahead peeks before consuming so a failed match
// leaves the scanner right after the first integer.
func (b *Builder) parseIntOrIndirect(first scanner.Token, depth int) (raw.Object, error) {
	saved := b.sc.Mark()
	second, err := b.sc.PeekToken()
	if err != nil || second.Type != scanner.TokenNumber || !second.IsInt {
		return raw.Int(first.Int), nil
	}
	b.sc.ChopToken()
	third, err := b.sc.PeekToken()
	if err != nil {
		b.sc.Reset(saved)
		return raw.Int(first.Int), nil
	}
	switch {
	case third.IsKeyword(scanner.KeywordR):
		b.sc.ChopToken()
		return raw.Ref(int(first.Int), int(second.Int)), nil
	case third.IsKeyword(scanner.KeywordObj):
		b.sc.ChopToken()
		return b.parseIndirectBody(first, depth)
	default:
		b.sc.Reset(saved)
		return raw.Int(first.Int), nil
	}
}

// parseIndirectBody parses the body of `num gen obj` through its endobj,
// including the stream form where the body dictionary is followed by the
// stream keyword.
func (b *Builder) parseIndirectBody(num scanner.Token, depth int) (raw.Object, error) {
	body, err := b.parseValue(depth)
	if err != nil {
		return nil, goerr.Wrap(err, "indirect object body", goerr.V("object", num.Int))
	}
	end, err := b.sc.ChopToken()
	if err != nil {
		return nil, goerr.Wrap(err, "after indirect object body", goerr.V("object", num.Int))
	}
	switch {
	case end.IsKeyword(scanner.KeywordEndObj):
		return body, nil
	case end.IsKeyword(scanner.KeywordStream):
		dict, ok := body.(*raw.DictObj)
		if !ok {
			return nil, goerr.Wrap(ErrStreamDict, "stream keyword after non-dictionary", goerr.V("object", num.Int), goerr.V("offset", end.Pos))
		}
		stream, err := b.parseStream(dict, end.Pos)
		if err != nil {
			return nil, goerr.Wrap(err, "stream body", goerr.V("object", num.Int))
		}
		closing, err := b.sc.ChopToken()
		if err != nil {
			return nil, goerr.Wrap(err, "after endstream", goerr.V("object", num.Int))
		}
		if !closing.IsKeyword(scanner.KeywordEndObj) {
			return nil, goerr.Wrap(ErrUnterminatedObject, "expected endobj after endstream", goerr.V("token", closing.String()), goerr.V("offset", closing.Pos), goerr.V("object", num.Int))
		}
		return stream, nil
	default:
		return nil, goerr.Wrap(ErrUnterminatedObject, "expected endobj", goerr.V("token", end.String()), goerr.V("offset", end.Pos), goerr.V("object", num.Int))
	}
}

func (b *Builder) parseArray(open scanner.Token, depth int) (raw.Object, error) {
	if depth > b.lim.MaxArrayDepth {
		return nil, goerr.Wrap(ErrDepthExceeded, "array", goerr.V("offset", open.Pos), goerr.V("depth", depth))
	}
	arr := raw.NewArray()
	for {
		tok, err := b.sc.ChopToken()
		if err != nil {
			return nil, goerr.Wrap(err, "inside array", goerr.V("offset", open.Pos))
		}
		if tok.Type == scanner.TokenArrayEnd {
			return arr, nil
		}
		item, err := b.parseFrom(tok, depth)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (b *Builder) parseDict(open scanner.Token, depth int) (raw.Object, error) {
	if depth > b.lim.MaxDictDepth {
		return nil, goerr.Wrap(ErrDepthExceeded, "dictionary", goerr.V("offset", open.Pos), goerr.V("depth", depth))
	}
	dict := raw.NewDict()
	for {
		tok, err := b.sc.ChopToken()
		if err != nil {
			return nil, goerr.Wrap(err, "inside dictionary", goerr.V("offset", open.Pos))
		}
		if tok.Type == scanner.TokenDictEnd {
			return dict, nil
		}
		if tok.Type != scanner.TokenName {
			return nil, goerr.Wrap(ErrNonNameKey, "", goerr.V("token", tok.String()), goerr.V("offset", tok.Pos))
		}
		val, err := b.parseValue(depth)
		if err != nil {
			return nil, goerr.Wrap(err, "dictionary value", goerr.V("key", tok.Str))
		}
		dict.Set(tok.Str, val)
	}
}

// parseStream reads the raw body after the stream keyword. The /Length value
// is the single source of truth for the body size; it is resolved before the
// body token is requested, since an indirect Length requires jumping away
// and back.
func (b *Builder) parseStream(dict *raw.DictObj, pos int) (*raw.StreamObj, error) {
	n, err := b.streamLength(dict, pos)
	if err != nil {
		return nil, err
	}
	b.sc.SetNextStreamLength(n)
	body, err := b.sc.ChopToken()
	if err != nil {
		return nil, err
	}
	end, err := b.sc.ChopToken()
	if err != nil {
		return nil, goerr.Wrap(err, "after stream body")
	}
	if !end.IsKeyword(scanner.KeywordEndStream) {
		return nil, goerr.Wrap(ErrMissingEndstream, "declared length does not reach endstream", goerr.V("length", n), goerr.V("offset", end.Pos))
	}
	return raw.NewStream(dict, body.Bytes), nil
}

func (b *Builder) streamLength(dict *raw.DictObj, pos int) (int64, error) {
	val, ok := dict.Get("Length")
	if !ok {
		return 0, goerr.Wrap(ErrStreamDict, "no Length entry", goerr.V("offset", pos))
	}
	switch v := val.(type) {
	case raw.NumberObj:
		if !v.IsInteger() || v.Int() < 0 {
			return 0, goerr.Wrap(ErrStreamDict, "Length is not a non-negative integer", goerr.V("offset", pos))
		}
		return v.Int(), nil
	case raw.RefObj:
		if b.res == nil {
			return 0, goerr.Wrap(ErrStreamDict, "indirect Length without a resolver", goerr.V("ref", v.Ref().String()), goerr.V("offset", pos))
		}
		obj, err := b.res.Resolve(v.Ref().Num)
		if err != nil {
			return 0, goerr.Wrap(err, "resolve stream Length", goerr.V("ref", v.Ref().String()))
		}
		n, ok := obj.(raw.NumberObj)
		if !ok || !n.IsInteger() || n.Int() < 0 {
			return 0, goerr.Wrap(ErrStreamDict, "indirect Length is not a non-negative integer", goerr.V("ref", v.Ref().String()))
		}
		return n.Int(), nil
	default:
		return 0, goerr.Wrap(ErrStreamDict, "Length has wrong type", goerr.V("type", val.Type()), goerr.V("offset", pos))
	}
}
