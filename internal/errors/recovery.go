// Package errors provides panic recovery helpers used to isolate one
// schedule's pipeline failure from its siblings in a batch.
package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError represents an error recovered from a panic
type PanicError struct {
	Value      interface{} // The panic value
	Stacktrace string      // Full stack trace
}

// Error implements the error interface
func (p *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", p.Value)
}

// FromPanic wraps a recovered panic value as an error, capturing the
// current stack. Call it from inside the deferred function that ran
// recover():
//
//	defer func() {
//		if r := recover(); r != nil {
//			err = errors.FromPanic(r)
//		}
//	}()
func FromPanic(value interface{}) *PanicError {
	return &PanicError{
		Value:      value,
		Stacktrace: string(debug.Stack()),
	}
}
