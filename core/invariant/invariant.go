// Package invariant provides contract assertions for the command-tree normalizer.
//
// Assertions mark programming errors inside the normalizer, never bad user
// input: a malformed command is reported through pkgs/errors, while a broken
// internal contract panics here. The orchestrator recovers these panics at its
// boundary and turns them into a tagged failure for the offending command.
package invariant

import (
	"fmt"
	"reflect"
	"runtime"
)

// Violation is the panic value raised by every failed assertion.
type Violation struct {
	Kind    string // PRECONDITION, POSTCONDITION or INVARIANT
	Message string
	File    string
	Line    int
}

func (v *Violation) Error() string {
	if v.File == "" {
		return fmt.Sprintf("%s VIOLATION: %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("%s VIOLATION: %s\n  at %s:%d", v.Kind, v.Message, v.File, v.Line)
}

// Precondition checks an input contract at function entry.
//
// Example:
//
//	func Attach(parent, child *Node) error {
//	    invariant.Precondition(parent != child, "node cannot own itself")
//	    // ...
//	}
func Precondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during a computation, such as the
// attach cursor always pointing into the tree under construction.
func Invariant(condition bool, format string, args ...interface{}) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*Node)(nil).
func NotNil(value interface{}, name string) {
	if isNilValue(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilValue(value interface{}) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return v.IsNil()
	default:
		return false
	}
}

// fail panics with a *Violation carrying the caller's location.
func fail(kind, format string, args ...interface{}) {
	v := &Violation{Kind: kind, Message: fmt.Sprintf(format, args...)}

	// skip runtime.Callers, fail and the exported wrapper
	pc := make([]uintptr, 1)
	if runtime.Callers(3, pc) > 0 {
		frame, _ := runtime.CallersFrames(pc).Next()
		v.File, v.Line = frame.File, frame.Line
	}

	panic(v)
}
