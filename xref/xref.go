// Package xref locates the trailer and cross-reference table by scanning the
// file tail backward, then parses the xref section into a structural table
// of byte offsets. Object bodies are parsed later, on demand, so entry order
// inside the file never matters.
package xref

import (
	"errors"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"pdfraw/ir/raw"
	"pdfraw/limits"
	"pdfraw/scanner"
)

// Structural failure kinds for the file tail and xref section.
var (
	ErrMissingEOF        = errors.New("missing %%EOF marker")
	ErrMalformedFooter   = errors.New("missing newline before %%EOF marker")
	ErrMissingStartXref  = errors.New("missing xref offset before %%EOF marker")
	ErrMissingTrailer    = errors.New("missing trailer")
	ErrTrailerNotDict    = errors.New("trailer is not a dictionary")
	ErrOffsetOutOfRange  = errors.New("xref offset out of range")
	ErrMissingXref       = errors.New("missing xref keyword")
	ErrMalformedXref     = errors.New("malformed xref section")
	ErrIncrementalUpdate = errors.New("incrementally updated files are not supported")
)

var eofMarker = []byte("%%EOF")

// Entry is the structural location of one in-use object.
type Entry struct {
	Offset int
	Gen    int
}

// Table maps object numbers to their structural entries. Free entries are
// recorded as absent.
type Table struct {
	entries map[int]Entry
}

func (t *Table) Entry(num int) (Entry, bool) {
	e, ok := t.entries[num]
	return e, ok
}

func (t *Table) Len() int { return len(t.entries) }

// Objects returns all in-use object numbers in ascending order.
func (t *Table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for num := range t.entries {
		out = append(out, num)
	}
	sort.Ints(out)
	return out
}

// ObjectParser parses one object at the scanner's current position. The
// parser package supplies its recursive-descent builder here; the indirection
// keeps this package free of a dependency on object building.
type ObjectParser interface {
	ParseObject() (raw.Object, error)
}

type Config struct {
	Limits limits.Limits
}

// Result is everything the tail of the file declares.
type Result struct {
	Table     *Table
	Trailer   *raw.DictObj
	StartXref int
}

// Resolver drives the backward scans over the file tail.
type Resolver struct {
	cfg     Config
	trailer *raw.DictObj
}

func NewResolver(cfg Config) *Resolver {
	cfg.Limits = cfg.Limits.OrDefault()
	return &Resolver{cfg: cfg}
}

// Resolve locates %%EOF, the startxref offset, and the trailer dictionary,
// then parses the xref section at that offset into a structural table.
func (r *Resolver) Resolve(sc *scanner.Scanner, ob ObjectParser) (*Result, error) {
	c := sc.Cursor()

	// 1. %%EOF, scanned backward from the end of the buffer. The marker
	// must sit on its own line.
	c.SetPos(c.Len())
	if !c.FindBackwards(eofMarker) {
		return nil, goerr.Wrap(ErrMissingEOF, "scanned to start of buffer")
	}
	eofPos := c.Pos()
	if ch, ok := c.ChopCharBackwards(); !ok || ch != '\n' {
		return nil, goerr.Wrap(ErrMalformedFooter, "before %%EOF", goerr.V("offset", eofPos))
	}

	// 2. The decimal startxref offset immediately precedes that newline.
	for {
		b, ok := c.PeekPrev()
		if !ok || b < '0' || b > '9' {
			break
		}
		c.ChopCharBackwards()
	}
	offPos := c.Pos()
	startXref, ok := c.ChopInt()
	if !ok {
		return nil, goerr.Wrap(ErrMissingStartXref, "no digits before %%EOF line", goerr.V("offset", offPos))
	}

	// 3. Trailer dictionary, located backward and parsed forward.
	if !c.FindBackwards([]byte("trailer")) {
		return nil, goerr.Wrap(ErrMissingTrailer, "scanned to start of buffer")
	}
	trailerPos := c.Pos()
	tok, err := sc.ChopToken()
	if err != nil {
		return nil, goerr.Wrap(err, "at trailer keyword")
	}
	if !tok.IsKeyword(scanner.KeywordTrailer) {
		return nil, goerr.Wrap(ErrMissingTrailer, "keyword mismatch", goerr.V("offset", trailerPos))
	}
	obj, err := ob.ParseObject()
	if err != nil {
		return nil, goerr.Wrap(err, "parse trailer dictionary")
	}
	dict, isDict := obj.(*raw.DictObj)
	if !isDict {
		return nil, goerr.Wrap(ErrTrailerNotDict, "", goerr.V("offset", trailerPos), goerr.V("type", obj.Type()))
	}
	if _, hasPrev := dict.Get("Prev"); hasPrev {
		return nil, goerr.Wrap(ErrIncrementalUpdate, "trailer carries a Prev offset", goerr.V("offset", trailerPos))
	}
	r.trailer = dict

	table, err := r.fillTable(sc, int(startXref))
	if err != nil {
		return nil, err
	}
	return &Result{Table: table, Trailer: dict, StartXref: int(startXref)}, nil
}

// fillTable parses `xref` followed by one or more `<start> <count>`
// subsections. In-use entries require generation 0 and free entries
// generation 65535; anything else signals an incrementally updated file.
func (r *Resolver) fillTable(sc *scanner.Scanner, offset int) (*Table, error) {
	if r.trailer == nil {
		return nil, goerr.Wrap(ErrMissingTrailer, "xref section parsed before trailer")
	}
	if err := sc.Seek(offset); err != nil {
		return nil, goerr.Wrap(ErrOffsetOutOfRange, "startxref", goerr.V("offset", offset))
	}
	tok, err := sc.ChopToken()
	if err != nil {
		return nil, goerr.Wrap(err, "at xref offset", goerr.V("offset", offset))
	}
	if !tok.IsKeyword(scanner.KeywordXref) {
		return nil, goerr.Wrap(ErrMissingXref, "at startxref offset", goerr.V("offset", offset))
	}

	entries := make(map[int]Entry)
	total := 0
	for {
		peek, err := sc.PeekToken()
		if err != nil {
			return nil, goerr.Wrap(err, "after xref subsection")
		}
		if peek.IsKeyword(scanner.KeywordTrailer) {
			break
		}
		if peek.Type != scanner.TokenNumber || !peek.IsInt {
			return nil, goerr.Wrap(ErrMalformedXref, "expected subsection start", goerr.V("offset", peek.Pos))
		}
		sc.ChopToken()
		start := int(peek.Int)

		countTok, err := sc.ChopToken()
		if err != nil {
			return nil, goerr.Wrap(err, "reading subsection count")
		}
		if countTok.Type != scanner.TokenNumber || !countTok.IsInt {
			return nil, goerr.Wrap(ErrMalformedXref, "expected entry count after subsection start", goerr.V("offset", countTok.Pos))
		}
		count := int(countTok.Int)
		if start < 0 || count < 0 {
			return nil, goerr.Wrap(ErrMalformedXref, "negative subsection header", goerr.V("offset", countTok.Pos))
		}
		total += count
		if total > r.cfg.Limits.MaxObjects {
			return nil, goerr.Wrap(ErrMalformedXref, "entry count above limit", goerr.V("entries", total))
		}

		for i := 0; i < count; i++ {
			entry, err := r.chopEntry(sc)
			if err != nil {
				return nil, goerr.Wrap(err, "xref entry", goerr.V("object", start+i))
			}
			if entry != nil {
				entries[start+i] = *entry
			}
		}
	}
	return &Table{entries: entries}, nil
}

// chopEntry parses `<offset> <generation> <n|f>`. It returns nil for a free
// entry; no free list is kept.
func (r *Resolver) chopEntry(sc *scanner.Scanner) (*Entry, error) {
	offTok, err := sc.ChopToken()
	if err != nil {
		return nil, err
	}
	if offTok.Type != scanner.TokenNumber || !offTok.IsInt {
		return nil, goerr.Wrap(ErrMalformedXref, "expected entry offset", goerr.V("offset", offTok.Pos))
	}
	genTok, err := sc.ChopToken()
	if err != nil {
		return nil, err
	}
	if genTok.Type != scanner.TokenNumber || !genTok.IsInt {
		return nil, goerr.Wrap(ErrMalformedXref, "expected generation number", goerr.V("offset", genTok.Pos))
	}
	kwTok, err := sc.ChopToken()
	if err != nil {
		return nil, err
	}
	switch {
	case kwTok.IsKeyword(scanner.KeywordInUse):
		if genTok.Int != 0 {
			return nil, goerr.Wrap(ErrIncrementalUpdate, "in-use entry with nonzero generation", goerr.V("generation", genTok.Int), goerr.V("offset", genTok.Pos))
		}
		return &Entry{Offset: int(offTok.Int), Gen: int(genTok.Int)}, nil
	case kwTok.IsKeyword(scanner.KeywordFree):
		if genTok.Int != 65535 {
			return nil, goerr.Wrap(ErrIncrementalUpdate, "free entry with unexpected generation", goerr.V("generation", genTok.Int), goerr.V("offset", genTok.Pos))
		}
		return nil, nil
	default:
		return nil, goerr.Wrap(ErrMalformedXref, "expected n or f entry marker", goerr.V("offset", kwTok.Pos))
	}
}
