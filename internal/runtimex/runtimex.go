// Package runtimex contains [runtime] extensions.
//
// We use these helpers to turn programmer errors (e.g., a nil collaborator
// handed to a constructor) into panics. Runtime failures, such as a helper
// binary that cannot be spawned, are always returned as errors instead.
package runtimex

// PanicIfFalse calls panic with the given message if the given statement is false.
func PanicIfFalse(stmt bool, message interface{}) {
	if !stmt {
		panic(message)
	}
}

// PanicIfTrue calls panic with the given message if the given statement is true.
func PanicIfTrue(stmt bool, message interface{}) {
	if stmt {
		panic(message)
	}
}

// PanicIfNil calls panic with the given message if value is nil.
func PanicIfNil(value any, message interface{}) {
	PanicIfTrue(value == nil, message)
}

// Assert calls panic with the given message if the given statement is false.
var Assert = PanicIfFalse
