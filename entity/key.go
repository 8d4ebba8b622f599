package entity

import (
	"fmt"
	"reflect"
)

// KeyEqual reports whether two key values identify the same row.
// Integer and unsigned values are compared numerically regardless of their
// Go type, since drivers scan INTEGER columns as int64 while callers usually
// write plain ints.
func KeyEqual(a, b any) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	na, aok := AsInt64(a)
	nb, bok := AsInt64(b)
	if aok && bok {
		return na == nb
	}
	if aok != bok {
		return false
	}
	if ba, ok := a.([]byte); ok {
		a = string(ba)
	}
	if bb, ok := b.([]byte); ok {
		b = string(bb)
	}
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// KeyString returns a stable map key for a key value. Values that are
// KeyEqual produce the same string.
func KeyString(v any) string {
	if n, ok := AsInt64(v); ok {
		return fmt.Sprintf("i:%d", n)
	}
	if b, ok := v.([]byte); ok {
		return "s:" + string(b)
	}
	if s, ok := v.(string); ok {
		return "s:" + s
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// AsInt64 returns v as an int64 if it holds any integer kind.
func AsInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}
