package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Record is one review keyed by field name. Field order follows the
// registry the record was built from and survives JSON round trips.
type Record struct {
	names  []string
	values map[string]Value
}

func NewRecord() Record {
	return Record{values: make(map[string]Value)}
}

// BuildRecord applies every FieldSpec of the registry to a single review
// node. Every registry key is present in the result, null or not.
func BuildRecord(node *goquery.Selection, registry *Registry) Record {
	rec := Record{
		names:  make([]string, 0, registry.Len()),
		values: make(map[string]Value, registry.Len()),
	}
	for _, spec := range registry.Specs() {
		rec.Set(spec.Name, Extract(node, spec))
	}
	return rec
}

// Set adds or replaces a field, appending new names at the end.
func (r *Record) Set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = v
}

// Get returns Null for unknown fields.
func (r Record) Get(name string) Value {
	return r.values[name]
}

func (r Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

func (r Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r Record) Len() int { return len(r.names) }

func (r Record) Equal(o Record) bool {
	if len(r.names) != len(o.names) {
		return false
	}
	for i, name := range r.names {
		if o.names[i] != name || !r.values[name].Equal(o.values[name]) {
			return false
		}
	}
	return true
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := r.values[name].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	out := NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		out.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}
