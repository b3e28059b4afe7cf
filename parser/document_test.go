package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/m-mizutani/gt"

	"pdfraw/ir/raw"
	"pdfraw/version"
)

// buildDoc assembles a complete file: objects numbered 1..len(bodies), one
// xref subsection, a trailer, startxref, and %%EOF.
func buildDoc(t *testing.T, bodies ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(bodies))
	for i, body := range bodies {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(bodies)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF", len(bodies)+1, xrefPos)
	return buf.Bytes()
}

func parseDoc(t *testing.T, data []byte) (*raw.Document, error) {
	t.Helper()
	return NewDocumentParser(Config{}).Parse(context.Background(), data)
}

func TestParseDocument(t *testing.T) {
	data := buildDoc(t,
		"<< /Type /Catalog /Pages 2 0 R >>",
		"[1 2 3]",
		"(hello)",
	)
	doc, err := parseDoc(t, data)
	gt.NoError(t, err)
	gt.NotNil(t, doc)

	gt.Equal(t, doc.Version, version.Version{Major: 1, Minor: 4})
	gt.Equal(t, len(doc.Objects), 3)

	size, ok := doc.Trailer.Get("Size")
	gt.True(t, ok)
	gt.Equal(t, size, raw.Object(raw.Int(4)))

	catalog := gt.Cast[*raw.DictObj](t, doc.Objects[1])
	pages, ok := catalog.Get("Pages")
	gt.True(t, ok)
	gt.Equal(t, pages, raw.Object(raw.Ref(2, 0)))

	arr := gt.Cast[*raw.ArrayObj](t, doc.Objects[2])
	gt.Equal(t, arr.Len(), 3)

	str := gt.Cast[raw.StringObj](t, doc.Objects[3])
	gt.Equal(t, string(str.Value()), "hello")
}

func TestParseDocumentStream(t *testing.T) {
	data := buildDoc(t, "<< /Length 9 >>\nstream\nraw bytes\nendstream")
	doc, err := parseDoc(t, data)
	gt.NoError(t, err)

	stream := gt.Cast[*raw.StreamObj](t, doc.Objects[1])
	gt.Equal(t, string(stream.RawData()), "raw bytes")
}

func TestParseDocumentIndirectStreamLength(t *testing.T) {
	// The length object comes after the stream in the file, so it can only
	// be found through the xref table.
	data := buildDoc(t,
		"<< /Length 2 0 R >>\nstream\nINDIRECT\nendstream",
		"8",
	)
	doc, err := parseDoc(t, data)
	gt.NoError(t, err)

	stream := gt.Cast[*raw.StreamObj](t, doc.Objects[1])
	gt.Equal(t, string(stream.RawData()), "INDIRECT")
	gt.Equal(t, doc.Objects[2], raw.Object(raw.Int(8)))
}

func TestParseDocumentLengthCycle(t *testing.T) {
	data := buildDoc(t, "<< /Length 1 0 R >>\nstream\nAB\nendstream")
	_, err := parseDoc(t, data)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ErrReferenceCycle))
}

func TestParseDocumentUnsupportedVersion(t *testing.T) {
	data := bytes.Replace(buildDoc(t, "42"), []byte("%PDF-1.4"), []byte("%PDF-1.7"), 1)
	_, err := parseDoc(t, data)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, version.ErrUnsupportedVersion))
}

func TestParseDocumentMissingHeader(t *testing.T) {
	_, err := parseDoc(t, []byte("not a pdf at all"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, version.ErrMalformedHeader))
}

func TestParseDocumentHeaderMismatch(t *testing.T) {
	// The xref entry for object 1 points at an object declaring itself 9.
	data := bytes.Replace(buildDoc(t, "42"), []byte("1 0 obj"), []byte("9 0 obj"), 1)
	_, err := parseDoc(t, data)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, ErrObjectHeaderMismatch))
}

func TestParseDocumentDanglingEntryOffset(t *testing.T) {
	data := bytes.Replace(buildDoc(t, "42"), []byte("0000000009"), []byte("0000099999"), 1)
	_, err := parseDoc(t, data)
	gt.Error(t, err)
}

func TestParseDocumentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDocumentParser(Config{}).Parse(ctx, buildDoc(t, "42"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, context.Canceled))
}
