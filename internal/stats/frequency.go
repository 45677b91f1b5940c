package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Bucket is one entry of a frequency table. A nil Key stands for "no value"
// and is written as the JSON key "null".
type Bucket struct {
	Key   *string
	Count int
}

func (b Bucket) Label() string {
	if b.Key == nil {
		return "null"
	}
	return *b.Key
}

// Frequency is an ordered frequency table, serialised as a JSON object
// whose key order is preserved.
type Frequency []Bucket

// Count tallies values by descending count; ties keep first-seen order.
func Count(values []string) Frequency {
	index := make(map[string]int)
	var out Frequency
	for _, v := range values {
		if i, ok := index[v]; ok {
			out[i].Count++
			continue
		}
		key := v
		index[v] = len(out)
		out = append(out, Bucket{Key: &key, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if out == nil {
		out = Frequency{}
	}
	return out
}

// Get returns the count for key, zero when absent.
func (f Frequency) Get(key string) int {
	for _, b := range f {
		if b.Key != nil && *b.Key == key {
			return b.Count
		}
	}
	return 0
}

// Null returns the count stored under the null key.
func (f Frequency) Null() int {
	for _, b := range f {
		if b.Key == nil {
			return b.Count
		}
	}
	return 0
}

func (f Frequency) Total() int {
	n := 0
	for _, b := range f {
		n += b.Count
	}
	return n
}

// Map flattens the table; the null bucket is keyed "null".
func (f Frequency) Map() map[string]int {
	m := make(map[string]int, len(f))
	for _, b := range f {
		m[b.Label()] = b.Count
	}
	return m
}

func (f Frequency) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalKey(b.Label())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		fmt.Fprintf(&buf, ":%d", b.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Frequency) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("frequency table must be a JSON object")
	}
	out := Frequency{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", tok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("count for %q: %w", label, err)
		}
		b := Bucket{Count: count}
		if label != "null" {
			key := label
			b.Key = &key
		}
		out = append(out, b)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

// marshalKey quotes a label without escaping HTML characters, so keys
// read the same as the review text they came from.
func marshalKey(label string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(label); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
