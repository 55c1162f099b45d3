package statedb

import (
	"encoding/json"
	"strings"
)

// Value is the decoded form of an ItemTable value: either a structured JSON
// object or the raw text it was stored as. Values are frequently JSON but a
// plain string is legitimate too, so decoding is best effort and the result
// is kept as a tagged union rather than swallowing decode errors.
type Value struct {
	obj map[string]any
	raw string
}

// StructuredValue wraps an already-decoded JSON object.
func StructuredValue(obj map[string]any) Value {
	return Value{obj: obj}
}

// RawValue wraps text that did not decode as a JSON object.
func RawValue(text string) Value {
	return Value{raw: text}
}

// Object returns the decoded JSON object, or false for raw values.
func (v Value) Object() (map[string]any, bool) {
	if v.obj == nil {
		return nil, false
	}
	return v.obj, true
}

// Raw returns the original stored text for raw values.
func (v Value) Raw() string {
	return v.raw
}

// IsStructured reports whether the value decoded as a JSON object.
func (v Value) IsStructured() bool {
	return v.obj != nil
}

// Decode parses stored text into a Value. Numbers are preserved as
// json.Number so millisecond epoch timestamps survive the round trip intact.
func Decode(text string) Value {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return RawValue(text)
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return RawValue(text)
	}
	return StructuredValue(obj)
}
