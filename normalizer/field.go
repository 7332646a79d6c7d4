// Package normalizer canonicalizes raw catalog input before it is written: trimmed
// strings or null, derived lowercase search keys, finite numbers, digit-only phone
// numbers and cleaned money text.
package normalizer

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field is one optional input value. Set distinguishes an absent key from an explicit
// null; Value holds whatever JSON decoded to (string, float64, bool, map, slice or nil).
type Field struct {
	Set   bool
	Value any
}

// Of returns a present field.
func Of(v any) Field {
	return Field{Set: true, Value: v}
}

// UnmarshalJSON is only invoked for keys present in the payload, including null.
func (f *Field) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Value = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	f.Value = v
	return nil
}

// MarshalJSON writes the held value; an unset field writes null.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

var moneySentinels = map[string]struct{}{
	"nan":       {},
	"":          {},
	"null":      {},
	"undefined": {},
}

// Text trims a scalar into a string; empty or non-scalar values become nil.
func Text(v any) *string {
	s, ok := scalarString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Lower derives the lowercase search key of a value.
func Lower(v any) *string {
	s := Text(v)
	if s == nil {
		return nil
	}
	lower := strings.ToLower(*s)
	return &lower
}

// Number parses numbers and numeric strings. NaN, infinities and anything else give nil.
func Number(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Digits keeps only 0-9; a value without digits gives nil.
func Digits(v any) *string {
	s, ok := scalarString(v)
	if !ok {
		return nil
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	out := b.String()
	return &out
}

// Money keeps free-form fee text unless it is an empty-like sentinel.
func Money(v any) *string {
	s := Text(v)
	if s == nil {
		return nil
	}
	if _, sentinel := moneySentinels[strings.ToLower(*s)]; sentinel {
		return nil
	}
	return s
}

// JSON re-encodes a free-form value; nil stays nil.
func JSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil
		}
		return raw
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
