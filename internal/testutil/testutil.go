package testutil

import (
	"reflect"
	"testing"
)

func Assert(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()

	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("%s: expected %v got %v", msg, expected, actual)
	}
}

func IsNil(t *testing.T, v interface{}, msg string) {
	t.Helper()

	if !isNil(v) {
		t.Fatalf("%s: expected nil got %v", msg, v)
	}
}

func IsNotNil(t *testing.T, v interface{}, msg string) {
	t.Helper()

	if isNil(v) {
		t.Fatalf("%s: expected a value got nil", msg)
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	default:
		return false
	}
}
