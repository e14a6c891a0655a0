package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional is an explicit present/absent value. It exists so that "field was
// never provided" is visible in the type instead of hiding behind a nil
// pointer: absent values marshal as an explicit JSON null and never get
// omitted from fixed-shape payloads.
type Optional[T any] struct {
	value   T
	present bool
}

// Some creates a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None creates an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is set.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrZero returns the value, or the zero value when absent.
func (o Optional[T]) OrZero() T {
	return o.value
}

var nullLiteral = []byte("null")

// MarshalJSON emits the value, or null when absent.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return nullLiteral, nil
	}
	data, err := json.Marshal(o.value)
	if err != nil {
		return nil, fmt.Errorf("marshal optional: %w", err)
	}
	return data, nil
}

// UnmarshalJSON treats JSON null as absent. A field missing from the input
// entirely is absent as well, since the zero Optional is None.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), nullLiteral) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal optional: %w", err)
	}
	*o = Optional[T]{value: v, present: true}
	return nil
}
