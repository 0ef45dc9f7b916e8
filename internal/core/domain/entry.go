// Package domain defines the core domain models for PepTrackr.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// MaxKeyLength is the maximum key size in bytes.
const MaxKeyLength = 1024

// Value is a JSON document stored under a key: null, boolean, number, string,
// array or object, nested arbitrarily.
//
// A Value is kept in compact serialized form and is never decoded by the
// service layer. A nil Value is not a document; use NullValue for JSON null.
type Value []byte

// NullValue is the JSON null document.
var NullValue = Value("null")

// NewValue validates raw as a single JSON document and returns its compact form.
func NewValue(raw []byte) (Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrInvalidValue.WithDetails("empty document")
	}
	if !json.Valid(trimmed) {
		return nil, ErrInvalidValue.WithDetails("malformed JSON")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, ErrInvalidValue.WithCause(err)
	}
	return Value(buf.Bytes()), nil
}

// ValueOf encodes a Go value as a Value.
func ValueOf(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, ErrInvalidValue.WithCause(err)
	}
	return Value(data), nil
}

// MustValue is like NewValue but panics on malformed input.
// Intended for literals in tests and defaults.
func MustValue(raw string) Value {
	v, err := NewValue([]byte(raw))
	if err != nil {
		panic(fmt.Sprintf("domain: invalid value literal %q: %v", raw, err))
	}
	return v
}

// MarshalJSON emits the document verbatim.
func (v Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return v, nil
}

// UnmarshalJSON stores a compact copy of the document.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := NewValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Decode unmarshals the document into target.
func (v Value) Decode(target any) error {
	return json.Unmarshal(v, target)
}

// Equal reports whether both documents have the same compact encoding.
func (v Value) Equal(other Value) bool {
	return bytes.Equal(v, other)
}

// IsNull reports whether the document is JSON null.
func (v Value) IsNull() bool {
	return bytes.Equal(v, NullValue)
}

// Clone returns an independent copy.
func (v Value) Clone() Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	copy(out, v)
	return out
}

func (v Value) String() string {
	return string(v)
}

// Entry is a single key/value pair of the store.
type Entry struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// NewEntry validates key and value and builds an Entry.
func NewEntry(key string, value Value) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if value == nil {
		return nil, ErrInvalidValue.WithDetails("missing document")
	}
	return &Entry{Key: key, Value: value}, nil
}

// ValidateKey checks that key is non-empty UTF-8 of at most MaxKeyLength bytes.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey.WithDetails("key is empty")
	}
	if len(key) > MaxKeyLength {
		return ErrInvalidKey.WithDetails(fmt.Sprintf("key is %d bytes (max %d)", len(key), MaxKeyLength))
	}
	if !utf8.ValidString(key) {
		return ErrInvalidKey.WithDetails("key is not valid UTF-8")
	}
	return nil
}
