// Package schema provides concrete pumped.Schema implementations for the
// value shapes executors, tags, and flow boundaries most commonly
// validate: strings, numbers, booleans, slices, and maps/structs.
package schema

import (
	"fmt"
	"reflect"

	"github.com/pumped-fn/pumped-runtime"
)

// reflectSchema adapts a reflection-based validator function to the
// generic pumped.Schema[T] contract, so String/Number/Boolean/Array/Object
// can share one validation and path-prefixing implementation regardless of
// T.
type reflectSchema[T any] struct {
	validate func(value any) (any, []pumped.Issue)
}

func (s reflectSchema[T]) Validate(value T) (T, []pumped.Issue) {
	result, issues := s.validate(value)
	if len(issues) > 0 {
		var zero T
		return zero, issues
	}
	typed, ok := result.(T)
	if !ok {
		var zero T
		return zero, []pumped.Issue{{Message: fmt.Sprintf("internal: validated value is not %T", zero)}}
	}
	return typed, nil
}

func issue(msg string) []pumped.Issue { return []pumped.Issue{{Message: msg}} }

// StringOption configures a String schema.
type StringOption func(*stringRules)

type stringRules struct {
	minLength, maxLength int
}

func MinLength(n int) StringOption { return func(r *stringRules) { r.minLength = n } }
func MaxLength(n int) StringOption { return func(r *stringRules) { r.maxLength = n } }

// String validates string values against length bounds.
func String(opts ...StringOption) pumped.Schema[string] {
	r := &stringRules{}
	for _, o := range opts {
		o(r)
	}
	return reflectSchema[string]{validate: func(value any) (any, []pumped.Issue) {
		str, ok := value.(string)
		if !ok {
			return nil, issue("value is not a string")
		}
		if r.minLength > 0 && len(str) < r.minLength {
			return nil, issue(fmt.Sprintf("string length %d is less than minimum %d", len(str), r.minLength))
		}
		if r.maxLength > 0 && len(str) > r.maxLength {
			return nil, issue(fmt.Sprintf("string length %d is greater than maximum %d", len(str), r.maxLength))
		}
		return str, nil
	}}
}

// NumberOption configures a Number schema.
type NumberOption func(*numberRules)

type numberRules struct {
	min, max         float64
	hasMin, hasMax   bool
	positive, negative, integer bool
}

func Min(v float64) NumberOption { return func(r *numberRules) { r.min = v; r.hasMin = true } }
func Max(v float64) NumberOption { return func(r *numberRules) { r.max = v; r.hasMax = true } }
func Positive() NumberOption     { return func(r *numberRules) { r.positive = true } }
func Negative() NumberOption     { return func(r *numberRules) { r.negative = true } }
func Integer() NumberOption      { return func(r *numberRules) { r.integer = true } }

// Number validates numeric values (delivered as float64) against range
// and sign/integer constraints.
func Number(opts ...NumberOption) pumped.Schema[float64] {
	r := &numberRules{}
	for _, o := range opts {
		o(r)
	}
	return reflectSchema[float64]{validate: func(value any) (any, []pumped.Issue) {
		num, ok := value.(float64)
		if !ok {
			return nil, issue("value is not a number")
		}
		if r.hasMin && num < r.min {
			return nil, issue(fmt.Sprintf("number %g is less than minimum %g", num, r.min))
		}
		if r.hasMax && num > r.max {
			return nil, issue(fmt.Sprintf("number %g is greater than maximum %g", num, r.max))
		}
		if r.positive && num <= 0 {
			return nil, issue("number must be positive")
		}
		if r.negative && num >= 0 {
			return nil, issue("number must be negative")
		}
		if r.integer && float64(int64(num)) != num {
			return nil, issue("number must be an integer")
		}
		return num, nil
	}}
}

// Boolean validates boolean values.
func Boolean() pumped.Schema[bool] {
	return reflectSchema[bool]{validate: func(value any) (any, []pumped.Issue) {
		b, ok := value.(bool)
		if !ok {
			return nil, issue("value is not a boolean")
		}
		return b, nil
	}}
}

// ArrayOption configures an Array schema.
type ArrayOption func(*arrayRules)

type arrayRules struct {
	minItems, maxItems int
}

func MinItems(n int) ArrayOption { return func(r *arrayRules) { r.minItems = n } }
func MaxItems(n int) ArrayOption { return func(r *arrayRules) { r.maxItems = n } }

// Array validates a slice of T, each element checked against itemSchema.
func Array[T any](itemSchema pumped.Schema[T], opts ...ArrayOption) pumped.Schema[[]T] {
	r := &arrayRules{}
	for _, o := range opts {
		o(r)
	}
	return reflectSchema[[]T]{validate: func(value any) (any, []pumped.Issue) {
		items, ok := value.([]T)
		if !ok {
			return nil, issue("value is not an array of the expected element type")
		}
		if r.minItems > 0 && len(items) < r.minItems {
			return nil, issue(fmt.Sprintf("array length %d is less than minimum %d", len(items), r.minItems))
		}
		if r.maxItems > 0 && len(items) > r.maxItems {
			return nil, issue(fmt.Sprintf("array length %d is greater than maximum %d", len(items), r.maxItems))
		}
		out := make([]T, len(items))
		for i, elem := range items {
			validated, issues := itemSchema.Validate(elem)
			if len(issues) > 0 {
				return nil, prefixIssues(issues, fmt.Sprintf("[%d]", i))
			}
			out[i] = validated
		}
		return out, nil
	}}
}

func prefixIssues(issues []pumped.Issue, prefix string) []pumped.Issue {
	out := make([]pumped.Issue, len(issues))
	for i, is := range issues {
		out[i] = pumped.Issue{Message: is.Message, Path: append([]string{prefix}, is.Path...)}
	}
	return out
}

// ObjectField is one named field of an Object schema: the map key or struct
// field name, the schema its value is validated against (nil skips
// validation), and whether the field must be present.
type ObjectField struct {
	Name     string
	Schema   pumped.AnySchema
	Required bool
}

func Field[T any](name string, s pumped.Schema[T], required bool) ObjectField {
	return ObjectField{Name: name, Schema: pumped.EraseSchema(s), Required: required}
}

// Object validates a struct or map[string]any value against a set of
// named fields.
func Object[T any](fields ...ObjectField) pumped.Schema[T] {
	return reflectSchema[T]{validate: func(value any) (any, []pumped.Issue) {
		val := reflect.ValueOf(value)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}
		get := func(name string) (any, bool) {
			switch val.Kind() {
			case reflect.Map:
				v := val.MapIndex(reflect.ValueOf(name))
				if !v.IsValid() {
					return nil, false
				}
				return v.Interface(), true
			case reflect.Struct:
				v := val.FieldByName(name)
				if !v.IsValid() {
					return nil, false
				}
				return v.Interface(), true
			default:
				return nil, false
			}
		}
		for _, f := range fields {
			raw, present := get(f.Name)
			if !present {
				if f.Required {
					return nil, issue(fmt.Sprintf("required property %s is missing", f.Name))
				}
				continue
			}
			if f.Schema != nil {
				if _, issues := f.Schema.ValidateAny(raw); len(issues) > 0 {
					return nil, prefixIssues(issues, f.Name)
				}
			}
		}
		return value, nil
	}}
}

// Custom wraps an arbitrary validation function as a pumped.Schema[T],
// for value shapes none of the above constructors cover.
func Custom[T any](fn func(T) []pumped.Issue) pumped.Schema[T] {
	return reflectSchema[T]{validate: func(value any) (any, []pumped.Issue) {
		typed, ok := value.(T)
		if !ok {
			var zero T
			return nil, issue(fmt.Sprintf("value is not %T", zero))
		}
		if issues := fn(typed); len(issues) > 0 {
			return nil, issues
		}
		return typed, nil
	}}
}
