package datastore

import (
	"reflect"
	"unicode/utf8"
)

// MinStringLength is the shortest string worth extracting. Anything shorter
// costs more as a hash reference than it saves.
const MinStringLength = 100

// Eligible reports whether v may become a shared artifact. Short strings,
// booleans, numbers and nil never are. Neither are empty slices or pointers to
// zero-size values: the runtime may back all of them with one address, so
// their pointers say nothing about identity.
func Eligible(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.String:
		return utf8.RuneCountInString(rv.String()) >= MinStringLength
	case reflect.Slice:
		return !rv.IsNil() && rv.Len() > 0 && rv.Type().Elem().Size() > 0
	case reflect.Pointer:
		return !rv.IsNil() && rv.Type().Elem().Size() > 0
	case reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return !rv.IsNil()
	}
	return true
}

type refKey struct {
	typ reflect.Type
	ptr uintptr
	len int
}

type stringKey struct {
	s string
}

type valueKey struct {
	v any
}

// identity returns the key a value is tracked under and false when the value
// has no identity. Maps, slices and pointers are the same value only when they
// share storage, so two maps with equal contents stay distinct. Strings and
// comparable structs or arrays are plain values and compare by content.
func identity(v any) (any, bool) {
	if !Eligible(v) {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return refKey{typ: rv.Type(), ptr: rv.Pointer()}, true
	case reflect.Slice:
		return refKey{typ: rv.Type(), ptr: rv.Pointer(), len: rv.Len()}, true
	case reflect.String:
		return stringKey{s: rv.String()}, true
	case reflect.Struct, reflect.Array:
		if !rv.Comparable() {
			return nil, false
		}
		return valueKey{v: v}, true
	}
	return nil, false
}
