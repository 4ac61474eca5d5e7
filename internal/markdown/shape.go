package markdown

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Shape classifies the payload layouts the service has been seen to return.
type Shape int

const (
	// ShapeUnknown means the body is not a JSON object or array of objects.
	ShapeUnknown Shape = iota
	// ShapeArray is a top-level array of result objects; the first object wins.
	ShapeArray
	// ShapeFlat is a single object carrying the text field itself.
	ShapeFlat
	// ShapeNestedData is an object whose "data" member (object, or array of
	// objects) carries the text field.
	ShapeNestedData
)

func (s Shape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeFlat:
		return "flat"
	case ShapeNestedData:
		return "nested-data"
	default:
		return "unknown"
	}
}

// textFields are tried in order; the first non-empty string wins.
var textFields = []string{"markdown", "content", "text"}

type record map[string]json.RawMessage

// DetectShape classifies raw and returns the record holding page fields.
// A ShapeUnknown result carries a nil record.
func DetectShape(raw []byte) (Shape, record) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ShapeUnknown, nil
	}
	switch raw[0] {
	case '[':
		if rec := firstObject(raw); rec != nil {
			return ShapeArray, rec
		}
		return ShapeUnknown, nil
	case '{':
		var top record
		if err := json.Unmarshal(raw, &top); err != nil {
			return ShapeUnknown, nil
		}
		if _, ok := top.text(); !ok {
			if data, ok := top["data"]; ok {
				if nested := asObject(data); nested != nil {
					return ShapeNestedData, nested
				}
				if nested := firstObject(data); nested != nil {
					return ShapeNestedData, nested
				}
			}
		}
		return ShapeFlat, top
	default:
		return ShapeUnknown, nil
	}
}

func firstObject(raw []byte) record {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	for _, it := range items {
		if rec := asObject(it); rec != nil {
			return rec
		}
	}
	return nil
}

func asObject(raw json.RawMessage) record {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return rec
}

func (r record) str(key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func (r record) text() (string, bool) {
	for _, f := range textFields {
		if s := r.str(f); s != "" {
			return s, true
		}
	}
	return "", false
}

func (r record) list(key string) []string {
	v, ok := r[key]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(v, &out); err == nil {
		return out
	}
	// some payloads list images as objects with a url/src member
	var objs []map[string]any
	if err := json.Unmarshal(v, &objs); err != nil {
		return nil
	}
	for _, o := range objs {
		for _, k := range []string{"url", "src"} {
			if s, ok := o[k].(string); ok && s != "" {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
