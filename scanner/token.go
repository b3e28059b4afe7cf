package scanner

import "fmt"

// Keyword is the closed set of bare words the lexer recognizes. Any other
// word is a lexing error.
type Keyword int

const (
	KeywordInvalid Keyword = iota
	KeywordR
	KeywordXref
	KeywordInUse // xref entry marker "n"
	KeywordFree  // xref entry marker "f"
	KeywordObj
	KeywordEndObj
	KeywordStream
	KeywordEndStream
	KeywordTrailer
	KeywordStartXref
	KeywordTrue
	KeywordFalse
	KeywordNull
)

var keywordNames = map[Keyword]string{
	KeywordR:         "R",
	KeywordXref:      "xref",
	KeywordInUse:     "n",
	KeywordFree:      "f",
	KeywordObj:       "obj",
	KeywordEndObj:    "endobj",
	KeywordStream:    "stream",
	KeywordEndStream: "endstream",
	KeywordTrailer:   "trailer",
	KeywordStartXref: "startxref",
	KeywordTrue:      "true",
	KeywordFalse:     "false",
	KeywordNull:      "null",
}

var keywordTable = func() map[string]Keyword {
	m := make(map[string]Keyword, len(keywordNames))
	for k, name := range keywordNames {
		m[name] = k
	}
	return m
}()

// LookupKeyword resolves a bare word against the keyword table.
func LookupKeyword(word []byte) (Keyword, bool) {
	k, ok := keywordTable[string(word)]
	return k, ok
}

func (k Keyword) String() string {
	if name, ok := keywordNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Keyword(%d)", int(k))
}

type TokenType int

const (
	TokenArrayBegin TokenType = iota // '['
	TokenArrayEnd                    // ']'
	TokenDictBegin                   // '<<'
	TokenDictEnd                     // '>>'
	TokenName                        // '/Name'
	TokenNumber                      // integer or real
	TokenString                      // literal string, hex string, or stream body
	TokenKeyword                     // entry in the keyword table
)

// Token is one lexical unit. Pos is the byte offset at which the token
// started, recorded for diagnostics.
type Token struct {
	Type    TokenType
	Int     int64
	Float   float64
	IsInt   bool
	Bytes   []byte // TokenString payload
	Hex     bool   // TokenString came from hex form
	Str     string // TokenName payload
	Keyword Keyword
	Pos     int
}

// IsKeyword reports whether the token is the given keyword.
func (t Token) IsKeyword(k Keyword) bool {
	return t.Type == TokenKeyword && t.Keyword == k
}

func (t Token) String() string {
	switch t.Type {
	case TokenArrayBegin:
		return "ArrayBegin"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictBegin:
		return "DictBegin"
	case TokenDictEnd:
		return "DictEnd"
	case TokenName:
		return fmt.Sprintf("Name(/%s)", t.Str)
	case TokenNumber:
		if t.IsInt {
			return fmt.Sprintf("Int(%d)", t.Int)
		}
		return fmt.Sprintf("Float(%g)", t.Float)
	case TokenString:
		return fmt.Sprintf("String(%q)", t.Bytes)
	case TokenKeyword:
		return fmt.Sprintf("Keyword(%s)", t.Keyword)
	}
	return fmt.Sprintf("Token(%d)", int(t.Type))
}
