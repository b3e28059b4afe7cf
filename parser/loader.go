package parser

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"pdfraw/ir/raw"
	"pdfraw/limits"
	"pdfraw/scanner"
	"pdfraw/xref"
)

var (
	ErrObjectNotFound       = errors.New("object not in cross-reference table")
	ErrObjectHeaderMismatch = errors.New("object header does not match xref entry")
	ErrReferenceCycle       = errors.New("reference cycle while resolving object")
)

// objectLoader loads indirect objects lazily through the xref table,
// memoizing each result. Resolution can recurse (a stream /Length pointing
// at another object); the loading set turns a cycle into an error instead of
// unbounded recursion.
type objectLoader struct {
	sc      *scanner.Scanner
	table   *xref.Table
	lim     limits.Limits
	memo    map[int]raw.Object
	loading map[int]bool
}

func newObjectLoader(sc *scanner.Scanner, table *xref.Table, lim limits.Limits) *objectLoader {
	return &objectLoader{
		sc:      sc,
		table:   table,
		lim:     lim.OrDefault(),
		memo:    make(map[int]raw.Object),
		loading: make(map[int]bool),
	}
}

// Resolve parses the object at the xref offset recorded for num. The scanner
// position and lexing mode are restored afterwards, so resolution is safe to
// trigger from the middle of another parse.
func (l *objectLoader) Resolve(num int) (raw.Object, error) {
	if obj, ok := l.memo[num]; ok {
		return obj, nil
	}
	if l.loading[num] {
		return nil, goerr.Wrap(ErrReferenceCycle, "", goerr.V("object", num))
	}
	entry, ok := l.table.Entry(num)
	if !ok {
		return nil, goerr.Wrap(ErrObjectNotFound, "", goerr.V("object", num))
	}
	l.loading[num] = true
	defer delete(l.loading, num)

	m := l.sc.Mark()
	defer l.sc.Reset(m)
	if err := l.sc.Seek(entry.Offset); err != nil {
		return nil, goerr.Wrap(err, "object offset out of range", goerr.V("object", num))
	}
	head, err := l.sc.PeekToken()
	if err != nil {
		return nil, goerr.Wrap(err, "at object header", goerr.V("object", num), goerr.V("offset", entry.Offset))
	}
	if head.Type != scanner.TokenNumber || !head.IsInt || head.Int != int64(num) {
		return nil, goerr.Wrap(ErrObjectHeaderMismatch, "", goerr.V("object", num), goerr.V("offset", entry.Offset), goerr.V("found", head.String()))
	}
	obj, err := NewBuilder(l.sc, l, l.lim).ParseObject()
	if err != nil {
		return nil, goerr.Wrap(err, "parse indirect object", goerr.V("object", num))
	}
	l.memo[num] = obj
	return obj, nil
}
