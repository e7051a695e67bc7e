// Package metadata models document metadata values: scalars (string,
// number) and string sets (e.g. a destination belonging to several
// seasons), plus the filter shape used to narrow candidate sets.
package metadata

import (
	"strconv"
	"strings"
)

// Kind is the metadata value type.
type Kind string

// Metadata value kinds.
const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindStringSet Kind = "string_set"
)

// Value is a single metadata field value (immutable value object).
type Value struct {
	kind Kind
	str  string
	num  float64
	set  []string
}

// String creates a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// StringSet creates a string set value (a defensive copy is taken).
func StringSet(members ...string) Value {
	set := make([]string, len(members))
	copy(set, members)
	return Value{kind: KindStringSet, set: set}
}

// Kind returns the value kind.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string scalar (empty for other kinds).
func (v Value) Str() string { return v.str }

// Num returns the numeric scalar (0 for other kinds).
func (v Value) Num() float64 { return v.num }

// Set returns the string set members (nil for other kinds).
func (v Value) Set() []string { return v.set }

// Terms returns the index terms for this value: the string itself, the
// formatted number, or each set member. Numbers use the shortest exact
// decimal form so "42" filters match a Number(42) field.
func (v Value) Terms() []string {
	switch v.kind {
	case KindString:
		return []string{v.str}
	case KindNumber:
		return []string{strconv.FormatFloat(v.num, 'f', -1, 64)}
	case KindStringSet:
		return v.set
	default:
		return nil
	}
}

// ContainsFold reports whether any term of the value contains sub as a
// case-insensitive substring. Used by the hybrid lexical boost.
func (v Value) ContainsFold(sub string) bool {
	if sub == "" {
		return false
	}
	lower := strings.ToLower(sub)
	for _, term := range v.Terms() {
		if strings.Contains(strings.ToLower(term), lower) {
			return true
		}
	}
	return false
}

// Map is an open mapping from field name to value.
type Map map[string]Value

// Clone returns a shallow copy of the map (values are immutable).
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	c := make(Map, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// Filters maps a field name to its list of acceptable terms.
// Semantics: AND across fields, OR within a field's list. A document
// missing a constrained field does not match.
type Filters map[string][]string

// IsEmpty reports whether the filter set imposes no constraint.
func (f Filters) IsEmpty() bool { return len(f) == 0 }
