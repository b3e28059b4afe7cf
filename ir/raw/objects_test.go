package raw

import (
	"bytes"
	"testing"
)

func TestDictObj(t *testing.T) {
	d := NewDict()
	d.Set("Size", Int(8))
	d.Set("Root", Ref(1, 0))
	d.Set("Author", Str([]byte("me")))

	if d.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", d.Len())
	}
	v, ok := d.Get("Size")
	if !ok {
		t.Fatalf("missing Size")
	}
	if n := v.(NumberObj); !n.IsInteger() || n.Int() != 8 {
		t.Fatalf("unexpected Size: %+v", n)
	}
	if _, ok := d.Get("Missing"); ok {
		t.Fatalf("unexpected key hit")
	}

	keys := d.Keys()
	want := []string{"Author", "Root", "Size"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
}

func TestArrayObj(t *testing.T) {
	a := NewArray(Int(1), Name("Two"))
	a.Append(Bool(true))
	if a.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", a.Len())
	}
	if _, ok := a.Get(3); ok {
		t.Fatalf("out-of-range index must miss")
	}
	if v, _ := a.Get(2); !v.(BoolObj).Value() {
		t.Fatalf("unexpected third item: %+v", v)
	}
}

func TestNumberObj(t *testing.T) {
	i := Int(-3)
	if !i.IsInteger() || i.Int() != -3 || i.Float() != -3.0 {
		t.Fatalf("unexpected integer: %+v", i)
	}
	f := Float(2.5)
	if f.IsInteger() || f.Float() != 2.5 {
		t.Fatalf("unexpected real: %+v", f)
	}
}

func TestStringObj(t *testing.T) {
	s := Str([]byte("plain"))
	if s.IsHex() || !bytes.Equal(s.Value(), []byte("plain")) {
		t.Fatalf("unexpected string: %+v", s)
	}
	h := StringObj{Bytes: []byte{0xAB}, Hex: true}
	if !h.IsHex() {
		t.Fatalf("hex flag lost")
	}
}

func TestRefObj(t *testing.T) {
	r := Ref(7, 0)
	if r.Ref().Num != 7 || r.Ref().Gen != 0 {
		t.Fatalf("unexpected ref: %+v", r)
	}
	if got := r.Ref().String(); got != "7 0 R" {
		t.Fatalf("unexpected ref string: %q", got)
	}
}

func TestStreamObj(t *testing.T) {
	d := NewDict()
	d.Set("Length", Int(4))
	s := NewStream(d, []byte("DATA"))
	if s.Length() != 4 || !bytes.Equal(s.RawData(), []byte("DATA")) {
		t.Fatalf("unexpected stream: %+v", s)
	}
	if s.Dictionary() != d {
		t.Fatalf("stream must keep its dictionary")
	}
}

func TestTypeNames(t *testing.T) {
	cases := map[string]Object{
		"name":    Name("A"),
		"number":  Int(1),
		"boolean": Bool(false),
		"null":    NullObj{},
		"string":  Str(nil),
		"array":   NewArray(),
		"dict":    NewDict(),
		"stream":  NewStream(NewDict(), nil),
		"ref":     Ref(1, 0),
	}
	for want, obj := range cases {
		if obj.Type() != want {
			t.Fatalf("expected type %q, got %q", want, obj.Type())
		}
	}
}
