// Package result provides an optional value that carries metadata, such as
// the faults collected while producing it.
package result

import (
	"fmt"
	"reflect"
)

// Result is an optional value of T with an ordered list of metadata M.
// Results are immutable: every operation returns a new value.
type Result[T, M any] struct {
	value   T
	present bool
	meta    []M
}

// Empty returns an absent result without metadata.
func Empty[T, M any]() Result[T, M] { return Result[T, M]{} }

// Of returns a present result holding v.
func Of[T, M any](v T) Result[T, M] { return Result[T, M]{value: v, present: true} }

// OfNullable returns an absent result when v is a nil pointer, interface,
// map, slice, channel or func, and a present one otherwise.
func OfNullable[T, M any](v T) Result[T, M] {
	if isNil(v) {
		return Empty[T, M]()
	}
	return Of[T, M](v)
}

// Failed returns an absent result carrying meta.
func Failed[T, M any](meta ...M) Result[T, M] {
	return Result[T, M]{meta: append([]M(nil), meta...)}
}

// WithMetadata returns a copy of r with meta appended.
func (r Result[T, M]) WithMetadata(meta ...M) Result[T, M] {
	if len(meta) == 0 {
		return r
	}
	out := r
	out.meta = make([]M, 0, len(r.meta)+len(meta))
	out.meta = append(append(out.meta, r.meta...), meta...)
	return out
}

// Get returns the value and whether it is present.
func (r Result[T, M]) Get() (T, bool) { return r.value, r.present }

// IsPresent reports whether r holds a value.
func (r Result[T, M]) IsPresent() bool { return r.present }

// Metadata returns a copy of the metadata in insertion order.
func (r Result[T, M]) Metadata() []M { return append([]M(nil), r.meta...) }

// OrElse returns the value when present and def otherwise.
func (r Result[T, M]) OrElse(def T) T {
	if r.present {
		return r.value
	}
	return def
}

// Equal reports structural equality of presence, value and metadata.
func (r Result[T, M]) Equal(o Result[T, M]) bool {
	if r.present != o.present || len(r.meta) != len(o.meta) {
		return false
	}
	if r.present && !reflect.DeepEqual(r.value, o.value) {
		return false
	}
	for i := range r.meta {
		if !reflect.DeepEqual(r.meta[i], o.meta[i]) {
			return false
		}
	}
	return true
}

func (r Result[T, M]) String() string {
	if !r.present {
		return fmt.Sprintf("Result[absent, meta=%v]", r.meta)
	}
	return fmt.Sprintf("Result[%v, meta=%v]", r.value, r.meta)
}

// Map applies f to a present value. An absent result stays absent and keeps
// its metadata. f returning a nil pointer or interface is a programming error
// and panics.
func Map[T, U, M any](r Result[T, M], f func(T) U) Result[U, M] {
	if !r.present {
		return Result[U, M]{meta: r.meta}
	}
	u := f(r.value)
	if isNil(u) {
		panic("result: Map function returned nil")
	}
	return Result[U, M]{value: u, present: true, meta: r.meta}
}

// FlatMap applies f to a present value and merges metadata, r's first. An
// absent result stays absent and keeps its metadata.
func FlatMap[T, U, M any](r Result[T, M], f func(T) Result[U, M]) Result[U, M] {
	if !r.present {
		return Result[U, M]{meta: r.meta}
	}
	inner := f(r.value)
	out := inner
	out.meta = make([]M, 0, len(r.meta)+len(inner.meta))
	out.meta = append(append(out.meta, r.meta...), inner.meta...)
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}
