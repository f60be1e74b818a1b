package interop

import (
	"fmt"
	"reflect"

	"github.com/jsbridge-dev/jsbridge"
)

// Jsify deep-converts a Go map, slice, or array into a tree of host objects
// and arrays. Leaves convert through ToHost; nested maps and slices recurse.
// Shared containers convert once and cycles are preserved, so a self-
// referential map becomes a self-referential host object.
//
// []byte is not a container here; it converts to an ArrayBuffer and is
// rejected at the top level.
func (b *Bridge) Jsify(v any) (jsbridge.Value, error) {
	b.reg.drain()
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Array:
	case reflect.Slice:
		if _, isBytes := v.([]byte); isBytes {
			return jsbridge.Value{}, errf(KindInvalidArgument, "Jsify",
				"[]byte converts to an ArrayBuffer, use ToHost")
		}
	default:
		return jsbridge.Value{}, errf(KindInvalidArgument, "Jsify",
			"top-level value must be a map, slice, or array, got %T", v)
	}
	return b.jsify(rv, make(map[uintptr]jsbridge.Value))
}

func (b *Bridge) jsify(rv reflect.Value, seen map[uintptr]jsbridge.Value) (jsbridge.Value, error) {
	switch rv.Kind() {
	case reflect.Map:
		if h, ok := seen[rv.Pointer()]; ok {
			return h, nil
		}
		obj := b.ctx.Object()
		seen[rv.Pointer()] = obj
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			hv, err := b.jsifyElem(iter.Value(), seen)
			if err != nil {
				return jsbridge.Value{}, err
			}
			if err := obj.Set(key, hv); err != nil {
				return jsbridge.Value{}, err
			}
		}
		return obj, nil

	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return b.toHost(rv.Bytes())
		}
		if h, ok := seen[rv.Pointer()]; ok {
			return h, nil
		}
		arr := b.ctx.Array()
		seen[rv.Pointer()] = arr
		return b.jsifyElems(rv, arr, seen)

	case reflect.Array:
		// Array values copy on every access, so there is no stable identity
		// to record in seen.
		return b.jsifyElems(rv, b.ctx.Array(), seen)

	default:
		if !rv.IsValid() {
			return b.ctx.Null(), nil
		}
		return b.toHost(rv.Interface())
	}
}

func (b *Bridge) jsifyElems(rv reflect.Value, arr jsbridge.Value, seen map[uintptr]jsbridge.Value) (jsbridge.Value, error) {
	for i := 0; i < rv.Len(); i++ {
		hv, err := b.jsifyElem(rv.Index(i), seen)
		if err != nil {
			return jsbridge.Value{}, err
		}
		if err := arr.SetIdx(i, hv); err != nil {
			return jsbridge.Value{}, err
		}
	}
	return arr, nil
}

// jsifyElem recurses into containers and sends everything else through the
// leaf conversion, unwrapping interface values first.
func (b *Bridge) jsifyElem(rv reflect.Value, seen map[uintptr]jsbridge.Value) (jsbridge.Value, error) {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return b.jsify(rv, seen)
	default:
		if !rv.IsValid() || (rv.Kind() == reflect.Interface && rv.IsNil()) {
			return b.ctx.Null(), nil
		}
		return b.toHost(rv.Interface())
	}
}
