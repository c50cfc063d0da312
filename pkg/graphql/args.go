package graphql

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/example/shipmesh/pkg/apperr"
)

// Args holds coerced field arguments or an input object.
type Args map[string]any

// AsArgs converts a decoded JSON object into Args; anything else yields an
// empty map.
func AsArgs(v any) Args {
	switch m := v.(type) {
	case Args:
		return m
	case map[string]any:
		return Args(m)
	}
	return Args{}
}

// Has reports whether the key was supplied, even as null.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

func (a Args) String(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	return ToString(v)
}

// StringPtr returns nil when the key is absent or null.
func (a Args) StringPtr(key string) *string {
	v, ok := a[key]
	if !ok || v == nil {
		return nil
	}
	s := ToString(v)
	return &s
}

func (a Args) Int(key string) int64 {
	n, _ := ToInt64(a[key])
	return n
}

func (a Args) IntPtr(key string) *int64 {
	v, ok := a[key]
	if !ok || v == nil {
		return nil
	}
	n, err := ToInt64(v)
	if err != nil {
		return nil
	}
	return &n
}

func (a Args) Float(key string) float64 {
	f, _ := ToFloat(a[key])
	return f
}

func (a Args) FloatPtr(key string) *float64 {
	v, ok := a[key]
	if !ok || v == nil {
		return nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return nil
	}
	return &f
}

// ID parses an ID argument as a numeric primary key.
func (a Args) ID(key string) (int64, error) {
	return ParseID(a[key])
}

func (a Args) Object(key string) Args {
	return AsArgs(a[key])
}

func (a Args) List(key string) []any {
	l, _ := a[key].([]any)
	return l
}

// ParseID accepts the string or numeric forms an ID arrives in.
func ParseID(v any) (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: missing id", apperr.ErrInvalidInput)
	}
	n, err := ToInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id %v", apperr.ErrInvalidInput, v)
	}
	return n, nil
}

func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return FormatFloat(t)
	case float32:
		return FormatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}

func ToInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float64:
		if t != float64(int64(t)) {
			return 0, fmt.Errorf("non-integer %v", t)
		}
		return int64(t), nil
	case json.Number:
		return t.Int64()
	case string:
		return strconv.ParseInt(t, 10, 64)
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

func ToFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(t, 64)
	case interface{ Float64() (float64, bool) }:
		f, _ := t.Float64()
		return f, nil
	}
	return 0, fmt.Errorf("unsupported type %T", v)
}

// ID decodes a GraphQL ID from a sibling response. Servers must send IDs as
// strings but some send numbers, so both are accepted.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid ID %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }
