// Package version parses and validates the %PDF-M.m header.
package version

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrMalformedHeader    = errors.New("malformed PDF header")
	ErrUnsupportedVersion = errors.New("unsupported PDF version")
)

// Max is the newest version this parser accepts. Later versions introduce
// cross-reference streams and other constructs the core does not understand.
var Max = Version{Major: 1, Minor: 4}

var headerMagic = []byte("%PDF-")

// Version is an ordered (major, minor) pair.
type Version struct {
	Major uint8
	Minor uint8
}

func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// Compare orders versions lexicographically by major, then minor.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		if v.Major > o.Major {
			return 1
		}
		return -1
	}
	if v.Minor != o.Minor {
		if v.Minor > o.Minor {
			return 1
		}
		return -1
	}
	return 0
}

func (v Version) After(o Version) bool { return v.Compare(o) > 0 }

// Detect locates the first %PDF- occurrence in the buffer and parses the
// M.m version that follows it. The header need not start at offset zero;
// some producers prepend junk bytes.
func Detect(data []byte) (Version, error) {
	idx := bytes.Index(data, headerMagic)
	if idx < 0 {
		return Version{}, goerr.Wrap(ErrMalformedHeader, "%PDF- marker not found")
	}
	pos := idx + len(headerMagic)
	major, pos, err := chopUint8(data, pos)
	if err != nil {
		return Version{}, err
	}
	if pos >= len(data) || data[pos] != '.' {
		return Version{}, goerr.Wrap(ErrMalformedHeader, "expected . between version numbers", goerr.V("offset", pos))
	}
	pos++
	minor, _, err := chopUint8(data, pos)
	if err != nil {
		return Version{}, err
	}
	return Version{Major: major, Minor: minor}, nil
}

// Guard rejects versions newer than Max.
func Guard(v Version) error {
	if v.After(Max) {
		return goerr.Wrap(ErrUnsupportedVersion, "version above ceiling", goerr.V("version", v.String()), goerr.V("max", Max.String()))
	}
	return nil
}

func chopUint8(data []byte, pos int) (uint8, int, error) {
	start := pos
	n := 0
	for pos < len(data) && data[pos] >= '0' && data[pos] <= '9' {
		n = n*10 + int(data[pos]-'0')
		if n > 255 {
			return 0, pos, goerr.Wrap(ErrMalformedHeader, "version number out of range", goerr.V("offset", start))
		}
		pos++
	}
	if pos == start {
		return 0, pos, goerr.Wrap(ErrMalformedHeader, "%PDF- must be followed by a version number", goerr.V("offset", start))
	}
	return uint8(n), pos, nil
}
