package querygraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type valueKind uint8

const (
	valueNull valueKind = iota
	valueScalar
	valueList
)

// Value is a condition operand: null, a scalar, or a list.
// Scalars are kept as text; the SQL renderer quotes them uniformly.
type Value struct {
	kind   valueKind
	scalar string
	list   []string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Scalar returns a single value.
func Scalar(s string) Value { return Value{kind: valueScalar, scalar: s} }

// List returns a set-membership value.
func List(items ...string) Value {
	return Value{kind: valueList, list: append([]string{}, items...)}
}

func (v Value) IsNull() bool   { return v.kind == valueNull }
func (v Value) IsList() bool   { return v.kind == valueList }
func (v Value) Scalar() string { return v.scalar }

// Items returns the list elements, or the scalar as a one-element list.
func (v Value) Items() []string {
	switch v.kind {
	case valueList:
		return append([]string(nil), v.list...)
	case valueScalar:
		return []string{v.scalar}
	}
	return nil
}

// IsEmpty reports whether the value is null, an empty string or an empty list.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case valueScalar:
		return strings.TrimSpace(v.scalar) == ""
	case valueList:
		return len(v.list) == 0
	}
	return true
}

func (v Value) clone() Value {
	if v.list != nil {
		v.list = append([]string{}, v.list...)
	}
	return v
}

func (v Value) String() string {
	switch v.kind {
	case valueScalar:
		return v.scalar
	case valueList:
		return "[" + strings.Join(v.list, ", ") + "]"
	}
	return "null"
}

// MarshalJSON encodes null, a string, or an array of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case valueScalar:
		return json.Marshal(v.scalar)
	case valueList:
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts null, strings, numbers, booleans and arrays of those.
func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*v = Null()
		return nil
	}
	if b[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, r := range raw {
			s, err := scalarText(r)
			if err != nil {
				return err
			}
			items = append(items, s)
		}
		*v = List(items...)
		return nil
	}
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	*v = Scalar(s)
	return nil
}

func scalarText(b []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return "", err
	}
	switch t := x.(type) {
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return fmt.Sprint(t), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("querygraph: unsupported condition value %s", b)
}
