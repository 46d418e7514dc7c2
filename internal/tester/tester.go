package tester

import (
	"reflect"
	"testing"
)

// Eq asserts that got == want using reflect.DeepEqual for non-comparable types.
func Eq[T any](t *testing.T, got, want T, msgAndArgs ...any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got=%v want=%v", msgAndArgs[0], got, want)
		}
		t.Fatalf("got=%v want=%v", got, want)
	}
}

// True asserts that cond is true.
func True(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if !cond {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v", msgAndArgs[0])
		}
		t.Fatalf("expected condition to be true")
	}
}

// False asserts that cond is false.
func False(t *testing.T, cond bool, msgAndArgs ...any) {
	t.Helper()
	if cond {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v", msgAndArgs[0])
		}
		t.Fatalf("expected condition to be false")
	}
}

// NoErr asserts that err is nil.
func NoErr(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		}
		t.Fatalf("unexpected error: %v", err)
	}
}

// ErrKind asserts that err is non-nil and kindOf(err) == want.
func ErrKind[K comparable](t *testing.T, err error, kindOf func(error) K, want K) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %v, got nil", want)
	}
	if got := kindOf(err); got != want {
		t.Fatalf("error kind: got=%v want=%v (%v)", got, want, err)
	}
}

// SameSet asserts that got and want hold the same elements regardless of order.
func SameSet[T comparable](t *testing.T, got, want []T, msgAndArgs ...any) {
	t.Helper()
	counts := make(map[T]int, len(want))
	for _, w := range want {
		counts[w]++
	}
	for _, g := range got {
		counts[g]--
	}
	for k, n := range counts {
		if n != 0 {
			if len(msgAndArgs) > 0 {
				t.Fatalf("%v: element %v count mismatch (got=%v want=%v)", msgAndArgs[0], k, got, want)
			}
			t.Fatalf("element %v count mismatch (got=%v want=%v)", k, got, want)
		}
	}
}
