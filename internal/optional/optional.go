// Package optional contains a generic optional value, used at API boundaries
// where a value may legitimately be absent (e.g., the host PID).
package optional

import (
	"fmt"
	"reflect"

	"github.com/ooni/minipt/internal/runtimex"
)

// Value is an optional value. The zero value of this structure
// is equivalent to the one you get when calling [None].
type Value[T any] struct {
	indirect *T
}

// None constructs an empty value.
func None[T any]() Value[T] {
	return Value[T]{nil}
}

// Some constructs a some value unless T is a pointer and points to
// nil, in which case [Some] is equivalent to [None].
func Some[T any](value T) Value[T] {
	rv := reflect.ValueOf(value)
	if rv.IsValid() && rv.Kind() == reflect.Pointer && rv.IsNil() {
		return None[T]()
	}
	return Value[T]{&value}
}

// IsNone returns whether this [Value] is empty.
func (v Value[T]) IsNone() bool {
	return v.indirect == nil
}

// Unwrap returns the underlying value or panics.
func (v Value[T]) Unwrap() T {
	runtimex.Assert(!v.IsNone(), "optional: unwrap of empty value")
	return *v.indirect
}

// UnwrapOr returns the fallback if the [Value] is empty.
func (v Value[T]) UnwrapOr(fallback T) T {
	if v.IsNone() {
		return fallback
	}
	return *v.indirect
}

// String implements fmt.Stringer.
func (v Value[T]) String() string {
	if v.IsNone() {
		return "none"
	}
	return fmt.Sprintf("%v", *v.indirect)
}
