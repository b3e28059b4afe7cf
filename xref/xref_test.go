package xref_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"pdfraw/limits"
	"pdfraw/parser"
	"pdfraw/scanner"
	"pdfraw/xref"
)

// buildPDF assembles a minimal file with objects numbered 1..len(bodies),
// a single xref subsection, and a trailer. Object 0 is the usual free head.
func buildPDF(t *testing.T, bodies ...string) ([]byte, map[int]int) {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make(map[int]int)
	for i, body := range bodies {
		num := i + 1
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}
	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(bodies)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := range bodies {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i+1])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(bodies)+1, xrefPos)
	return buf.Bytes(), offsets
}

func resolve(t *testing.T, data []byte) (*xref.Result, error) {
	t.Helper()
	sc := scanner.New(data, scanner.Config{})
	ob := parser.NewBuilder(sc, nil, limits.Limits{})
	return xref.NewResolver(xref.Config{}).Resolve(sc, ob)
}

func TestResolve(t *testing.T) {
	data, offsets := buildPDF(t, "<< /Type /Catalog >>", "42", "(hello)")
	res, err := resolve(t, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.Len() != 3 {
		t.Fatalf("expected 3 in-use entries, got %d", res.Table.Len())
	}
	for num, want := range offsets {
		entry, ok := res.Table.Entry(num)
		if !ok {
			t.Fatalf("missing entry for object %d", num)
		}
		if entry.Offset != want || entry.Gen != 0 {
			t.Fatalf("object %d: expected offset %d gen 0, got %+v", num, want, entry)
		}
	}
	if _, ok := res.Table.Entry(0); ok {
		t.Fatalf("free entry must not be in the table")
	}
	if got := res.Table.Objects(); len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected object numbers: %v", got)
	}
	if size, ok := res.Trailer.Get("Size"); !ok {
		t.Fatalf("trailer lost its Size key: %+v", size)
	}
	if res.StartXref <= 0 || res.StartXref >= len(data) {
		t.Fatalf("implausible startxref: %d", res.StartXref)
	}
}

func TestResolveMultipleSubsections(t *testing.T) {
	pdf := "%PDF-1.4\n" +
		"1 0 obj\n10\nendobj\n" +
		"xref\n" +
		"0 2\n" +
		"0000000000 65535 f \n" +
		"0000000009 00000 n \n" +
		"5 1\n" +
		"0000000009 00000 n \n" +
		"trailer\n<< /Size 6 >>\nstartxref\n28\n%%EOF"
	data := []byte(pdf)
	xrefPos := bytes.Index(data, []byte("xref"))
	data = bytes.Replace(data, []byte("startxref\n28\n"), []byte(fmt.Sprintf("startxref\n%d\n", xrefPos)), 1)

	res, err := resolve(t, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Table.Len() != 2 {
		t.Fatalf("expected entries from both subsections, got %d", res.Table.Len())
	}
	if _, ok := res.Table.Entry(5); !ok {
		t.Fatalf("second subsection entry missing")
	}
}

func TestResolveMissingEOF(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\nno footer at all"))
	if !errors.Is(err, xref.ErrMissingEOF) {
		t.Fatalf("expected ErrMissingEOF, got %v", err)
	}
}

func TestResolveEOFNotOnOwnLine(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\ntrailer\n<< >>\nstartxref\n9 %%EOF"))
	if !errors.Is(err, xref.ErrMalformedFooter) {
		t.Fatalf("expected ErrMalformedFooter, got %v", err)
	}
}

func TestResolveMissingStartXrefOffset(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\ntrailer\n<< >>\nstartxref\n\n%%EOF"))
	if !errors.Is(err, xref.ErrMissingStartXref) {
		t.Fatalf("expected ErrMissingStartXref, got %v", err)
	}
}

func TestResolveMissingTrailer(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\nxref\n0 0\nstartxref\n9\n%%EOF"))
	if !errors.Is(err, xref.ErrMissingTrailer) {
		t.Fatalf("expected ErrMissingTrailer, got %v", err)
	}
}

func TestResolveTrailerNotDict(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\nxref\n0 0\ntrailer\n42\nstartxref\n9\n%%EOF"))
	if !errors.Is(err, xref.ErrTrailerNotDict) {
		t.Fatalf("expected ErrTrailerNotDict, got %v", err)
	}
}

func TestResolveRejectsPrevKey(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\nxref\n0 0\ntrailer\n<< /Size 1 /Prev 100 >>\nstartxref\n9\n%%EOF"))
	if !errors.Is(err, xref.ErrIncrementalUpdate) {
		t.Fatalf("expected ErrIncrementalUpdate, got %v", err)
	}
}

func TestResolveStartXrefOutOfRange(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\ntrailer\n<< /Size 1 >>\nstartxref\n99999\n%%EOF"))
	if !errors.Is(err, xref.ErrOffsetOutOfRange) {
		t.Fatalf("expected ErrOffsetOutOfRange, got %v", err)
	}
}

func TestResolveStartXrefNotAtXref(t *testing.T) {
	_, err := resolve(t, []byte("%PDF-1.4\ntrailer\n<< /Size 1 >>\nstartxref\n0\n%%EOF"))
	if !errors.Is(err, xref.ErrMissingXref) {
		t.Fatalf("expected ErrMissingXref, got %v", err)
	}
}

func TestResolveRejectsNonzeroGeneration(t *testing.T) {
	pdf := "%PDF-1.4\nxref\n0 2\n0000000000 65535 f \n0000000009 00001 n \ntrailer\n<< /Size 2 >>\nstartxref\n9\n%%EOF"
	_, err := resolve(t, []byte(pdf))
	if !errors.Is(err, xref.ErrIncrementalUpdate) {
		t.Fatalf("expected ErrIncrementalUpdate, got %v", err)
	}
}

func TestResolveRejectsFreeEntryWithLowGeneration(t *testing.T) {
	pdf := "%PDF-1.4\nxref\n0 1\n0000000000 00000 f \ntrailer\n<< /Size 1 >>\nstartxref\n9\n%%EOF"
	_, err := resolve(t, []byte(pdf))
	if !errors.Is(err, xref.ErrIncrementalUpdate) {
		t.Fatalf("expected ErrIncrementalUpdate, got %v", err)
	}
}

func TestResolveMalformedEntryMarker(t *testing.T) {
	pdf := "%PDF-1.4\nxref\n0 1\n0000000000 65535 R \ntrailer\n<< /Size 1 >>\nstartxref\n9\n%%EOF"
	_, err := resolve(t, []byte(pdf))
	if !errors.Is(err, xref.ErrMalformedXref) {
		t.Fatalf("expected ErrMalformedXref, got %v", err)
	}
}

func TestResolveEntryCountAboveLimit(t *testing.T) {
	pdf := "%PDF-1.4\nxref\n0 50\ntrailer\n<< /Size 50 >>\nstartxref\n9\n%%EOF"
	sc := scanner.New([]byte(pdf), scanner.Config{})
	ob := parser.NewBuilder(sc, nil, limits.Limits{})
	_, err := xref.NewResolver(xref.Config{Limits: limits.Limits{MaxObjects: 10}}).Resolve(sc, ob)
	if !errors.Is(err, xref.ErrMalformedXref) {
		t.Fatalf("expected ErrMalformedXref, got %v", err)
	}
}
