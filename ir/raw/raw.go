// Package raw holds the structural PDF object model: exactly what the bytes
// of the file describe, with no filter decoding and no semantic
// interpretation of the object graph.
package raw

import (
	"fmt"

	"pdfraw/version"
)

// ObjectRef identifies an indirect object by number and generation.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
}

// Document is the parsing core's output surface: the trailer dictionary and
// the cross-reference table with every in-use entry resolved to its Object.
type Document struct {
	// Objects maps object number to the fully parsed object. Free xref
	// entries are absent.
	Objects map[int]Object

	// Trailer is the dictionary following the trailer keyword. Well-known
	// keys (Root, Size, Info) are passed through uninterpreted.
	Trailer *DictObj

	Version version.Version
}
