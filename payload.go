package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Mapper is implemented by entity-like values that convert themselves to
// a mapping.
type Mapper interface {
	ToMap() (map[string]any, error)
}

// Lister is implemented by collection-like values that convert themselves
// to a sequence.
type Lister interface {
	ToList() ([]any, error)
}

func emptyList() json.RawMessage { return json.RawMessage("[]") }

// normalizePayload converts p to its JSON form and checks that it is an
// object or an array. Struct field order is preserved. p is only read.
func normalizePayload(p any) (json.RawMessage, error) {
	if isNil(p) {
		return emptyList(), nil
	}

	switch v := p.(type) {
	case Mapper:
		m, err := v.ToMap()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnconvertiblePayload, err)
		}
		p = m
	case Lister:
		l, err := v.ToList()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnconvertiblePayload, err)
		}
		p = l
	}

	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnconvertiblePayload, err)
	}

	switch {
	case bytes.Equal(b, []byte("null")):
		return emptyList(), nil
	case b[0] == '{', b[0] == '[':
		return b, nil
	}
	return nil, fmt.Errorf("%w: got %T", ErrUnconvertiblePayload, p)
}

// isNil reports whether p is nil or a nil pointer, map, slice, or
// interface. Typed nils never reach a Mapper or Lister.
func isNil(p any) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	//exhaustive:ignore
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}
