// Package merge implements the one-level merge rules used by the store when a
// caller hands it a partial or full update.
//
// Only the top level is merged. Nested maps, structs and slices found inside a
// record are replaced wholesale, never combined.
package merge

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNotStructured is returned when a patch is applied to a value that has no
// fields or keys to receive it.
var ErrNotStructured = errors.New("merge: value is not structured")

// ErrUnknownField is returned when a patch names a field the target struct does
// not declare.
var ErrUnknownField = errors.New("merge: unknown field")

// Structured reports whether value is record shaped: a map keyed by strings, a
// struct, or a non-nil pointer to a struct. Nil maps and nil pointers are not
// structured.
func Structured[T any](value T) bool {
	return structured(reflect.ValueOf(&value).Elem())
}

func structured(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Map:
		return !v.IsNil() && v.Type().Key().Kind() == reflect.String
	case reflect.Struct:
		return true
	case reflect.Pointer:
		return !v.IsNil() && v.Elem().Kind() == reflect.Struct
	case reflect.Interface:
		if v.IsNil() {
			return false
		}
		return structured(v.Elem())
	default:
		return false
	}
}

// Shallow combines current with candidate one level deep. Keys present in
// candidate override keys in current, other keys of current are preserved. The
// result never aliases candidate or current at the top level, so callers always
// receive a fresh value. A non-structured candidate is returned unchanged.
func Shallow[T any](current, candidate T) T {
	cand := reflect.ValueOf(&candidate).Elem()
	if !structured(cand) {
		return candidate
	}
	cur := reflect.ValueOf(&current).Elem()
	merged := shallowValue(unwrap(cur), unwrap(cand))

	out := reflect.New(cand.Type()).Elem()
	out.Set(merged)
	return out.Interface().(T)
}

func shallowValue(current, candidate reflect.Value) reflect.Value {
	switch candidate.Kind() {
	case reflect.Map:
		size := candidate.Len()
		sameType := current.IsValid() && current.Type() == candidate.Type() && !current.IsNil()
		if sameType {
			size += current.Len()
		}
		result := reflect.MakeMapWithSize(candidate.Type(), size)
		if sameType {
			iter := current.MapRange()
			for iter.Next() {
				result.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		iter := candidate.MapRange()
		for iter.Next() {
			result.SetMapIndex(iter.Key(), iter.Value())
		}
		return result
	case reflect.Struct:
		// every field of a struct candidate is present, so each one wins
		result := reflect.New(candidate.Type()).Elem()
		result.Set(candidate)
		return result
	case reflect.Pointer:
		result := reflect.New(candidate.Type().Elem())
		result.Elem().Set(candidate.Elem())
		return result
	default:
		return candidate
	}
}

// Apply writes fields onto a copy of current and returns the copy. Maps receive
// the fields as keys, structs and pointers to structs receive them as fields
// matched by json tag, then Go name, then case-insensitive Go name. When T is an
// interface type and current holds nothing, the result is a map[string]any copy
// of fields.
func Apply[T any](current T, fields map[string]any) (T, error) {
	var zero T
	target := reflect.ValueOf(&current).Elem()
	base := unwrap(target)

	result, err := applyFields(target.Type(), base, fields)
	if err != nil {
		return zero, err
	}
	out := reflect.New(target.Type()).Elem()
	out.Set(result)
	return out.Interface().(T), nil
}

// Materialize builds a value of T from fields alone, as if they were applied to
// the zero value. Pointer-to-struct types receive a freshly allocated struct.
func Materialize[T any](fields map[string]any) (T, error) {
	var zero T
	typ := reflect.TypeOf(&zero).Elem()

	var base reflect.Value
	switch typ.Kind() {
	case reflect.Map:
		if typ.Key().Kind() == reflect.String {
			base = reflect.MakeMap(typ)
		}
	case reflect.Struct:
		base = reflect.New(typ).Elem()
	case reflect.Pointer:
		if typ.Elem().Kind() == reflect.Struct {
			base = reflect.New(typ.Elem())
		}
	}

	result, err := applyFields(typ, base, fields)
	if err != nil {
		return zero, err
	}
	out := reflect.New(typ).Elem()
	out.Set(result)
	return out.Interface().(T), nil
}

func applyFields(static reflect.Type, base reflect.Value, fields map[string]any) (reflect.Value, error) {
	if !base.IsValid() || (base.Kind() == reflect.Map && base.IsNil()) {
		switch {
		case static.Kind() == reflect.Interface:
			plain := reflect.TypeOf(map[string]any{})
			if !plain.AssignableTo(static) {
				return reflect.Value{}, ErrNotStructured
			}
			return applyMap(reflect.MakeMap(plain), fields)
		case static.Kind() == reflect.Map && static.Key().Kind() == reflect.String:
			return applyMap(reflect.MakeMap(static), fields)
		default:
			return reflect.Value{}, ErrNotStructured
		}
	}

	switch base.Kind() {
	case reflect.Map:
		if base.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, ErrNotStructured
		}
		return applyMap(base, fields)
	case reflect.Struct:
		result := reflect.New(base.Type()).Elem()
		result.Set(base)
		if err := applyStruct(result, fields); err != nil {
			return reflect.Value{}, err
		}
		return result, nil
	case reflect.Pointer:
		if base.Type().Elem().Kind() != reflect.Struct {
			return reflect.Value{}, ErrNotStructured
		}
		result := reflect.New(base.Type().Elem())
		if !base.IsNil() {
			result.Elem().Set(base.Elem())
		}
		if err := applyStruct(result.Elem(), fields); err != nil {
			return reflect.Value{}, err
		}
		return result, nil
	default:
		return reflect.Value{}, ErrNotStructured
	}
}

func applyMap(base reflect.Value, fields map[string]any) (reflect.Value, error) {
	typ := base.Type()
	result := reflect.MakeMapWithSize(typ, base.Len()+len(fields))
	iter := base.MapRange()
	for iter.Next() {
		result.SetMapIndex(iter.Key(), iter.Value())
	}
	for name, value := range fields {
		converted, err := convert(value, typ.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("merge: key %q: %w", name, err)
		}
		result.SetMapIndex(reflect.ValueOf(name).Convert(typ.Key()), converted)
	}
	return result, nil
}

func applyStruct(target reflect.Value, fields map[string]any) error {
	for name, value := range fields {
		field, ok := fieldByName(target, name)
		if !ok {
			return fmt.Errorf("%w %q on %s", ErrUnknownField, name, target.Type())
		}
		converted, err := convert(value, field.Type())
		if err != nil {
			return fmt.Errorf("merge: field %q: %w", name, err)
		}
		field.Set(converted)
	}
	return nil
}

func fieldByName(target reflect.Value, name string) (reflect.Value, bool) {
	typ := target.Type()
	fallback := -1
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag != "" && tag != "-" && tag == name {
			return target.Field(i), true
		}
		if sf.Name == name {
			return target.Field(i), true
		}
		if fallback < 0 && strings.EqualFold(sf.Name, name) {
			fallback = i
		}
	}
	if fallback >= 0 {
		return target.Field(fallback), true
	}
	return reflect.Value{}, false
}

func convert(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(target) {
		return v, nil
	}
	if numeric(v.Kind()) && numeric(target.Kind()) {
		return v.Convert(target), nil
	}
	if v.Kind() == reflect.String && target.Kind() == reflect.String {
		return v.Convert(target), nil
	}

	// fall back to a JSON round trip for nested records and slices
	raw, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(target)
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

func numeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
