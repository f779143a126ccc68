package core

import (
	"fmt"
	"reflect"
)

// DepsEqual reports whether two dependency lists are element-wise equal.
// Comparable values compare with ==; maps, slices and channels compare by
// identity. Functions never compare equal, so a function dependency
// always forces recomputation.
func DepsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameValue(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	switch ta.Kind() {
	case reflect.Func:
		return false
	case reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !ta.Comparable() {
		return false
	}
	return comparableEqual(a, b)
}

// comparableEqual compares values whose static type is comparable. A
// struct holding an interface with an uncomparable dynamic value still
// panics on ==, which is treated as not equal.
func comparableEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}
