// Package forms normalizes loosely-shaped request input. Product fields arrive
// either as multipart/urlencoded form values (always string lists) or as JSON
// (string, number, bool, null or array), so every field is folded into a Value
// once at the boundary instead of re-checking shapes at each use site.
package forms

import (
	"fmt"
	"strconv"
	"strings"
)

type kind int

const (
	absent kind = iota
	single
	many
)

type Value struct {
	kind kind
	one  string
	many []string
}

func Absent() Value { return Value{} }

func Single(s string) Value { return Value{kind: single, one: s} }

func Many(ss []string) Value { return Value{kind: many, many: ss} }

// FromList folds a form value list: nothing, one value, or repeated values.
func FromList(ss []string) Value {
	switch len(ss) {
	case 0:
		return Absent()
	case 1:
		return Single(ss[0])
	default:
		return Many(ss)
	}
}

// FromAny folds a decoded JSON value. Null maps to Absent, scalars are
// stringified, arrays keep their elements stringified.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Absent()
	case string:
		return Single(t)
	case bool:
		return Single(strconv.FormatBool(t))
	case float64:
		return Single(formatNumber(t))
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			out[i] = stringify(e)
		}
		return Many(out)
	default:
		return Single(fmt.Sprint(t))
	}
}

func (v Value) IsAbsent() bool { return v.kind == absent }

// IsMany reports whether the value arrived as a list.
func (v Value) IsMany() bool { return v.kind == many }

// First returns the first value, or "" when absent or the list is empty.
func (v Value) First() (string, bool) {
	switch v.kind {
	case single:
		return v.one, true
	case many:
		if len(v.many) == 0 {
			return "", false
		}
		return v.many[0], true
	default:
		return "", false
	}
}

// Strings returns the value as a list: nil when absent, a one-element list for
// a single value.
func (v Value) Strings() []string {
	switch v.kind {
	case single:
		return []string{v.one}
	case many:
		return v.many
	default:
		return nil
	}
}

// Nullable maps absent, "" and the literal "null" to nil.
func Nullable(v Value) *string {
	s, ok := v.First()
	if !ok || s == "" || s == "null" {
		return nil
	}
	return &s
}

// Price coerces to a number; absent or malformed input degrades to 0.
func Price(v Value) float64 {
	s, ok := v.First()
	if !ok || s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// Bool is true for boolean true or the string "true" only.
func Bool(v Value) bool {
	s, _ := v.First()
	return s == "true"
}

// Status picks the stored status: absent falls back to def, a list keeps its
// first element only.
func Status(v Value, def string) string {
	s, ok := v.First()
	if !ok || s == "" {
		return def
	}
	return s
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
