package json

import (
	"bytes"
	"encoding/json"
)

// Marshal marshals v without escaping &, <, and > to their \u00xx forms.
// Filter expressions carry comparison operators, so HTML escaping would
// mangle round-tripped subscription documents.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	// Encode appends a newline, strip it
	b := buf.Bytes()
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	return b, nil
}

// Unmarshal json data to struct
func Unmarshal(b []byte, m interface{}) error {
	return json.Unmarshal(b, m)
}
