package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindText
	kindList
)

// Value is what a FieldSpec yields for one node: a text, a list of texts,
// or null when the node lacks the element.
type Value struct {
	kind  valueKind
	text  string
	items []string
}

// Null is the absent value.
var Null = Value{}

func Text(s string) Value {
	return Value{kind: kindText, text: s}
}

// List never produces a null value; a nil slice becomes an empty list.
func List(items []string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{kind: kindList, items: items}
}

func (v Value) IsNull() bool { return v.kind == kindNull }
func (v Value) IsList() bool { return v.kind == kindList }

// String returns the text and whether the value is a text at all.
func (v Value) String() (string, bool) {
	if v.kind != kindText {
		return "", false
	}
	return v.text, true
}

// Items returns a copy of the list, or nil for non-list values.
func (v Value) Items() []string {
	if v.kind != kindList {
		return nil
	}
	out := make([]string, len(v.items))
	copy(out, v.items)
	return out
}

// Empty reports values that count as "not set" for statistics: null, an
// empty text or an empty list.
func (v Value) Empty() bool {
	switch v.kind {
	case kindText:
		return v.text == ""
	case kindList:
		return len(v.items) == 0
	default:
		return true
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.text != o.text || len(v.items) != len(o.items) {
		return false
	}
	for i := range v.items {
		if v.items[i] != o.items[i] {
			return false
		}
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindText:
		return marshalNoEscape(v.text)
	case kindList:
		return marshalNoEscape(v.items)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = Null
	case len(data) > 0 && data[0] == '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode list value: %w", err)
		}
		*v = List(items)
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode text value: %w", err)
		}
		*v = Text(s)
	}
	return nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
