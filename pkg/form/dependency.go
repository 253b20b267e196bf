package form

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/entrhq/toolbox/pkg/config"
)

// Operator compares a dependency's current value with its expected value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
)

// Dependency hides a field unless another field's value satisfies the
// comparison.
type Dependency struct {
	Field    string
	Operator Operator // empty means OpEquals
	Value    any
}

// Holds reports whether current satisfies the dependency.
func (d Dependency) Holds(current any) bool {
	switch d.Operator {
	case OpEquals, "":
		return config.ValuesEqual(current, d.Value)
	case OpNotEquals:
		return !config.ValuesEqual(current, d.Value)
	case OpContains:
		return contains(current, d.Value)
	case OpGreaterThan:
		return compare(current, d.Value) > 0
	case OpLessThan:
		return compare(current, d.Value) < 0
	}
	return false
}

func contains(haystack, needle any) bool {
	rv := reflect.ValueOf(haystack)
	if rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
		for i := 0; i < rv.Len(); i++ {
			if config.ValuesEqual(rv.Index(i).Interface(), needle) {
				return true
			}
		}
		return false
	}
	return strings.Contains(stringify(haystack), stringify(needle))
}

// compare orders numerically when both sides are numbers, else as strings.
func compare(a, b any) int {
	fa, aok := config.ToFloat(a)
	fb, bok := config.ToFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(stringify(a), stringify(b))
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
