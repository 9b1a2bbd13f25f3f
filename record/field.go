// Package record implements the generic record reader and writer shared by
// every backend. A backend describes its record type through Schema and
// Builder; Codec drives the decode state machine and the encoder.
package record

import (
	"reflect"

	"github.com/reoring/natcodec/codec"
	"github.com/reoring/natcodec/internal/naming"
)

// Field describes one field of a record type independently of the backend
// metadata it was derived from.
type Field struct {
	// Pos is the declaration position. Codec assigns it.
	Pos int
	// Name is the declared name; writers emit it.
	Name string
	// Aliases are alternative input names.
	Aliases []string
	// Codec reads and writes the field's native value.
	Codec codec.Codec[any]
	// Unboxed marks fields whose native slot cannot represent "unset"
	// (primitives stored by value).
	Unboxed bool
	// Required marks fields the schema declares as required.
	Required bool
	// ImplicitDefault marks fields whose unset native slot already reads as
	// the default. They are not back-filled on decode, and a set value equal
	// to the default is still written.
	ImplicitDefault bool
	// Zero returns the value written in lenient mode for an unset unboxed or
	// required field without a default. Nil leaves the native slot untouched.
	Zero func() any
	// Handle is backend data (descriptor, struct index, schema node).
	Handle any

	def    any
	hasDef bool
}

// SetDefault records the field default. v is copied; later changes to v do
// not affect the field.
func (f *Field) SetDefault(v any) {
	f.def = DeepCopy(v)
	f.hasDef = true
}

// Default returns a fresh deep copy of the default.
func (f *Field) Default() (any, bool) {
	if !f.hasDef {
		return nil, false
	}
	return DeepCopy(f.def), true
}

// HasDefault reports whether a default is declared.
func (f *Field) HasDefault() bool { return f.hasDef }

// IsDefault reports whether v equals the declared default.
func (f *Field) IsDefault(v any) bool {
	return f.hasDef && reflect.DeepEqual(f.def, v)
}

// Names returns every accepted input name: the declared name, the aliases,
// then the lowerCamel, lower_snake and UPPER_SNAKE spellings of each.
func (f *Field) Names() []string {
	primary := f.primaryNames()
	seen := make(map[string]struct{}, len(primary)*4)
	out := make([]string, 0, len(primary)*4)
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	for _, n := range primary {
		add(n)
	}
	for _, n := range primary {
		for _, v := range naming.Variants(n) {
			add(v)
		}
	}
	return out
}

func (f *Field) primaryNames() []string {
	return append([]string{f.Name}, f.Aliases...)
}
