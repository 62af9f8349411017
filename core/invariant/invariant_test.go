package invariant_test

import (
	"strings"
	"testing"

	"github.com/aledsdavies/cmdtree/core/invariant"
)

func recoverViolation(t *testing.T, fn func()) *invariant.Violation {
	t.Helper()
	var got *invariant.Violation
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			v, ok := r.(*invariant.Violation)
			if !ok {
				t.Fatalf("expected *invariant.Violation, got %T: %v", r, r)
			}
			got = v
		}()
		fn()
	}()
	return got
}

// TestPreconditionPass verifies Precondition does not panic when condition is true
func TestPreconditionPass(t *testing.T) {
	if v := recoverViolation(t, func() { invariant.Precondition(true, "fine") }); v != nil {
		t.Fatalf("unexpected violation: %v", v)
	}
}

// TestPreconditionFail verifies Precondition panics with a located Violation
func TestPreconditionFail(t *testing.T) {
	v := recoverViolation(t, func() { invariant.Precondition(false, "kind %s not allowed", "root") })
	if v == nil {
		t.Fatal("expected panic for false precondition")
	}
	if v.Kind != "PRECONDITION" {
		t.Errorf("expected PRECONDITION, got %s", v.Kind)
	}
	if v.Message != "kind root not allowed" {
		t.Errorf("unexpected message: %q", v.Message)
	}
	if !strings.HasSuffix(v.File, "invariant_test.go") {
		t.Errorf("expected caller location in test file, got %s:%d", v.File, v.Line)
	}
	if !strings.Contains(v.Error(), "PRECONDITION VIOLATION: kind root not allowed") {
		t.Errorf("unexpected error text: %s", v.Error())
	}
}

func TestPostconditionAndInvariantKinds(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		kind string
	}{
		{"postcondition", func() { invariant.Postcondition(false, "x") }, "POSTCONDITION"},
		{"invariant", func() { invariant.Invariant(false, "cursor escaped tree") }, "INVARIANT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := recoverViolation(t, tt.fn)
			if v == nil {
				t.Fatal("expected panic")
			}
			if v.Kind != tt.kind {
				t.Errorf("expected %s, got %s", tt.kind, v.Kind)
			}
		})
	}
}

// TestNotNilTypedNil catches (*T)(nil) passed through an interface
func TestNotNilTypedNil(t *testing.T) {
	type node struct{}
	var n *node

	if v := recoverViolation(t, func() { invariant.NotNil(n, "node") }); v == nil {
		t.Fatal("expected panic for typed nil")
	} else if v.Message != "node must not be nil" {
		t.Errorf("unexpected message: %q", v.Message)
	}

	if v := recoverViolation(t, func() { invariant.NotNil(&node{}, "node") }); v != nil {
		t.Fatalf("unexpected violation: %v", v)
	}
}
