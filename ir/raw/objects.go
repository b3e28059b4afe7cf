package raw

import "sort"

// NameObj is a name object such as /Length.
type NameObj struct{ Val string }

func (n NameObj) Type() string  { return "name" }
func (n NameObj) Value() string { return n.Val }

// NumberObj holds either an integer or a real.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Int() int64   { return n.I }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}
func (n NumberObj) IsInteger() bool { return n.IsInt }

// BoolObj is the true/false object.
type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }
func (b BoolObj) Value() bool  { return b.V }

// NullObj is the null object.
type NullObj struct{}

func (NullObj) Type() string { return "null" }

// StringObj is a literal or hex string. Bytes holds the decoded payload;
// Hex records which written form produced it.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string  { return "string" }
func (s StringObj) Value() []byte { return s.Bytes }
func (s StringObj) IsHex() bool   { return s.Hex }

// ArrayObj is an ordered sequence of objects.
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string { return "array" }
func (a *ArrayObj) Len() int     { return len(a.Items) }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// DictObj maps unique name keys to objects. Insertion order is not
// significant.
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }
func (d *DictObj) Len() int     { return len(d.KV) }
func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}
func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}

// Keys returns the dictionary keys in sorted order for deterministic output.
func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StreamObj pairs a stream dictionary with its raw, still-encoded body. The
// body length always equals the resolved /Length value.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string      { return "stream" }
func (s *StreamObj) Dictionary() *DictObj { return s.Dict }
func (s *StreamObj) RawData() []byte   { return s.Data }
func (s *StreamObj) Length() int64     { return int64(len(s.Data)) }

// RefObj is an unresolved pointer into the cross-reference table, distinct
// from the object it names until explicitly dereferenced.
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string   { return "ref" }
func (r RefObj) Ref() ObjectRef { return r.R }

// Constructors.
func Name(v string) NameObj                        { return NameObj{Val: v} }
func Int(i int64) NumberObj                        { return NumberObj{I: i, IsInt: true} }
func Float(f float64) NumberObj                    { return NumberObj{F: f} }
func Bool(v bool) BoolObj                          { return BoolObj{V: v} }
func Str(b []byte) StringObj                       { return StringObj{Bytes: b} }
func NewArray(items ...Object) *ArrayObj           { return &ArrayObj{Items: items} }
func NewDict() *DictObj                            { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj { return &StreamObj{Dict: dict, Data: data} }
func Ref(num, gen int) RefObj                      { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }
