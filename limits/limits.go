// Package limits defines resource ceilings applied while parsing untrusted
// PDF input. The ceilings bound allocation-heavy constructs (strings, names,
// stream bodies) and recursion depth so a hostile file cannot exhaust memory
// or the stack.
package limits

// Limits defines parsing resource boundaries.
type Limits struct {
	// Maximum decoded literal/hex string length in bytes. Default: 10 MB.
	MaxStringLength int64

	// Maximum decoded name length in bytes. Default: 4 KB.
	MaxNameLength int

	// Maximum array nesting depth. Default: 100.
	MaxArrayDepth int

	// Maximum dictionary nesting depth. Default: 100.
	MaxDictDepth int

	// Maximum raw stream body length in bytes. Default: 50 MB.
	MaxStreamLength int64

	// Maximum number of xref entries across all subsections. Default: 1,000,000.
	MaxObjects int
}

// Default returns safe default ceilings.
func Default() Limits {
	return Limits{
		MaxStringLength: 10 * 1024 * 1024,
		MaxNameLength:   4 * 1024,
		MaxArrayDepth:   100,
		MaxDictDepth:    100,
		MaxStreamLength: 50 * 1024 * 1024,
		MaxObjects:      1_000_000,
	}
}

// OrDefault fills zero-valued fields from Default.
func (l Limits) OrDefault() Limits {
	d := Default()
	if l.MaxStringLength == 0 {
		l.MaxStringLength = d.MaxStringLength
	}
	if l.MaxNameLength == 0 {
		l.MaxNameLength = d.MaxNameLength
	}
	if l.MaxArrayDepth == 0 {
		l.MaxArrayDepth = d.MaxArrayDepth
	}
	if l.MaxDictDepth == 0 {
		l.MaxDictDepth = d.MaxDictDepth
	}
	if l.MaxStreamLength == 0 {
		l.MaxStreamLength = d.MaxStreamLength
	}
	if l.MaxObjects == 0 {
		l.MaxObjects = d.MaxObjects
	}
	return l
}
