package store

// Fields is a partial value: top-level keys or fields to overwrite.
type Fields map[string]any

type updateKind uint8

const (
	updateValue updateKind = iota
	updatePatch
	updateFunc
	updatePatchFunc
)

// Update describes how to derive the next value. Build one with Value, Patch,
// Func or PatchFunc. An Update is resolved exactly once per Set or Replace.
type Update[T any] struct {
	kind      updateKind
	value     T
	fields    Fields
	fn        func(T) T
	patchFunc func(T) Fields
}

// Value supplies a full next value.
func Value[T any](v T) Update[T] {
	return Update[T]{kind: updateValue, value: v}
}

// Patch supplies a partial next value.
func Patch[T any](fields Fields) Update[T] {
	return Update[T]{kind: updatePatch, fields: fields}
}

// Func derives a full next value from the current one.
func Func[T any](fn func(T) T) Update[T] {
	return Update[T]{kind: updateFunc, fn: fn}
}

// PatchFunc derives a partial next value from the current one.
func PatchFunc[T any](fn func(T) Fields) Update[T] {
	return Update[T]{kind: updatePatchFunc, patchFunc: fn}
}

// candidate is a resolved update: either a full value or a set of fields.
// derived marks a full value returned by a Func.
type candidate[T any] struct {
	full    T
	fields  Fields
	partial bool
	derived bool
}

func (u Update[T]) resolve(current T) candidate[T] {
	switch u.kind {
	case updatePatch:
		return candidate[T]{fields: u.fields, partial: true}
	case updateFunc:
		if u.fn == nil {
			return candidate[T]{full: current, derived: true}
		}
		return candidate[T]{full: u.fn(current), derived: true}
	case updatePatchFunc:
		if u.patchFunc == nil {
			return candidate[T]{fields: Fields{}, partial: true}
		}
		return candidate[T]{fields: u.patchFunc(current), partial: true}
	default:
		return candidate[T]{full: u.value}
	}
}
