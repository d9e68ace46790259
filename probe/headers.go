package probe

import (
	"net/http"
	"sort"
	"strings"
)

// Field is one header field.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Headers is an immutable, name-ordered view of header fields.
// Names are canonicalised and when a field is repeated the last value wins.
type Headers struct {
	fields []Field
}

// NewHeaders builds Headers from an http.Header.
func NewHeaders(h http.Header) Headers {
	fields := make([]Field, 0, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		fields = append(fields, Field{Name: http.CanonicalHeaderKey(name), Value: values[len(values)-1]})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	// two spellings of one name collapse into the later one
	out := fields[:0]
	for _, f := range fields {
		if n := len(out); n > 0 && out[n-1].Name == f.Name {
			out[n-1] = f
			continue
		}
		out = append(out, f)
	}
	return Headers{fields: out}
}

// Get returns the value of the named field, matched case-insensitively.
func (h Headers) Get(name string) (string, bool) {
	canonical := http.CanonicalHeaderKey(name)
	i := sort.Search(len(h.fields), func(i int) bool { return h.fields[i].Name >= canonical })
	if i < len(h.fields) && strings.EqualFold(h.fields[i].Name, canonical) {
		return h.fields[i].Value, true
	}
	return "", false
}

// Value is Get without the presence flag.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

func (h Headers) Len() int {
	return len(h.fields)
}

// Fields returns a copy of the fields in name order.
func (h Headers) Fields() []Field {
	return append([]Field(nil), h.fields...)
}

// HTTP returns the fields as a fresh http.Header.
func (h Headers) HTTP() http.Header {
	out := make(http.Header, len(h.fields))
	for _, f := range h.fields {
		out[f.Name] = []string{f.Value}
	}
	return out
}
