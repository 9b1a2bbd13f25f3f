// Package thriftrec is the field-tag backend: records are Thrift-generated Go
// structs, described by their `thrift:"name,id[,required|optional]"` tags.
// Optional fields are pointers; enums and default constructors are
// registered through options. Binary streams use the compact protocol.
package thriftrec

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
	"github.com/reoring/natcodec/record"
)

// ErrUnsupportedType is returned for Go types without a natural encoding.
var ErrUnsupportedType = errors.New("natcodec: unsupported thrift field type")

// Codec decodes natural JSON into structs of type T and back.
type Codec[T any] struct {
	cfg *config
	rec *record.Codec[any]
}

type typeKey struct{ t reflect.Type }

type fieldInfo struct {
	index []int
	id    int16
}

// ID returns the Thrift field id of f, when f belongs to a thriftrec codec.
func ID(f *record.Field) (int16, bool) {
	fi, ok := f.Handle.(*fieldInfo)
	if !ok {
		return 0, false
	}
	return fi.id, true
}

// NewCodec builds a codec for struct type T. Nested struct codecs are shared
// through reg; a nil reg uses a private one.
func NewCodec[T any](reg *record.Registry, opts ...Option) (*Codec[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrUnsupportedType, t)
	}
	if reg == nil {
		reg = record.NewRegistry()
	}
	cfg := newConfig(opts)
	rc, err := (&builder{cfg: cfg, reg: reg}).record(t)
	if err != nil {
		return nil, err
	}
	return &Codec[T]{cfg: cfg, rec: rc}, nil
}

// Record returns the generic record codec. Its records are *T values.
func (c *Codec[T]) Record() *record.Codec[any] { return c.rec }

// New returns a fresh record, built by the registered constructor if any.
func (c *Codec[T]) New() *T {
	if ctor, ok := c.cfg.ctors[reflect.TypeFor[T]()]; ok {
		return ctor().Interface().(*T)
	}
	return new(T)
}

// Decode advances cur and reads one record in mode.
func (c *Codec[T]) Decode(cur *natcodec.Cursor, mode natcodec.Mode) (*T, bool, error) {
	return typed[T](c.rec.Decode(cur, mode))
}

func (c *Codec[T]) Read(cur *natcodec.Cursor) (*T, bool, error) {
	return typed[T](c.rec.Read(cur))
}

func (c *Codec[T]) ReadStrict(cur *natcodec.Cursor) (*T, bool, error) {
	return typed[T](c.rec.ReadStrict(cur))
}

// Write writes v as natural JSON; nil is written as null.
func (c *Codec[T]) Write(g natcodec.Generator, v *T) error {
	if v == nil {
		return g.WriteNull()
	}
	return c.rec.Write(g, v)
}

// Encode writes v as natural JSON.
func (c *Codec[T]) Encode(g natcodec.Generator, v *T) error { return c.Write(g, v) }

func typed[T any](v any, ok bool, err error) (*T, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	return v.(*T), true, nil
}

type builder struct {
	cfg *config
	reg *record.Registry
}

func (b *builder) record(t reflect.Type) (*record.Codec[any], error) {
	return record.Resolve[any](b.reg, typeKey{t}, func() (record.Schema[any], error) {
		var def reflect.Value
		if ctor, ok := b.cfg.ctors[t]; ok {
			def = ctor().Elem()
		}
		var fields []*record.Field
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			tag, ok := resolveTag(sf)
			if !ok {
				continue
			}
			fc, err := b.codecFor(sf.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
			}
			f := &record.Field{
				Name:     tag.name,
				Aliases:  tag.aliases,
				Codec:    fc,
				Required: tag.required,
				Unboxed:  !tag.optional && b.unboxed(sf.Type),
				Handle:   &fieldInfo{index: sf.Index, id: tag.id},
			}
			if def.IsValid() {
				if dv := def.Field(i); !dv.IsZero() {
					f.SetDefault(dv.Interface())
				}
			}
			fields = append(fields, f)
		}
		return &structSchema{t: t, fields: fields}, nil
	})
}

// unboxed reports whether the Go slot of t always holds a value.
func (b *builder) unboxed(t reflect.Type) bool {
	if _, ok := b.cfg.enums[t]; ok {
		return false
	}
	return isPrimitive(t.Kind())
}

func (b *builder) codecFor(t reflect.Type) (codec.Codec[any], error) {
	if e, ok := b.cfg.enums[t]; ok {
		return e.codec, nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			rc, err := b.record(t.Elem())
			if err != nil {
				return nil, err
			}
			return rc.Erase(), nil
		}
		inner, err := b.codecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &ptrCodec{t: t, inner: inner}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &convertCodec{t: t, base: reflect.TypeFor[[]byte](), inner: codec.Erase(codec.Bytes())}, nil
		}
		elem, err := b.codecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &sliceCodec{t: t, list: codec.List(elem)}, nil
	case reflect.Map:
		key, err := b.keyFor(t.Key())
		if err != nil {
			return nil, err
		}
		val, err := b.codecFor(t.Elem())
		if err != nil {
			return nil, err
		}
		return &mapCodec{t: t, m: codec.Map(val), key: key}, nil
	}
	leaf, base, ok := leafFor(t.Kind())
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, t)
	}
	if t == base {
		return leaf, nil
	}
	return &convertCodec{t: t, base: base, inner: leaf}, nil
}

type structSchema struct {
	t      reflect.Type
	fields []*record.Field
}

func (s *structSchema) Name() string { return s.t.Name() }

func (s *structSchema) Fields() []*record.Field { return s.fields }

func (s *structSchema) New() record.Builder[any] { return &structBuilder{v: reflect.New(s.t)} }

func (s *structSchema) Value(r any, f *record.Field) (any, bool) {
	rv := reflect.ValueOf(r)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	fv := rv.FieldByIndex(f.Handle.(*fieldInfo).index)
	switch fv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		if fv.IsNil() {
			return nil, false
		}
	}
	return fv.Interface(), true
}

type structBuilder struct{ v reflect.Value }

func (b *structBuilder) Put(f *record.Field, val any) error {
	fv := b.v.Elem().FieldByIndex(f.Handle.(*fieldInfo).index)
	if val == nil {
		fv.SetZero()
		return nil
	}
	rv := reflect.ValueOf(val)
	if !rv.Type().AssignableTo(fv.Type()) {
		return wrongType(val, fv.Type())
	}
	fv.Set(rv)
	return nil
}

func (b *structBuilder) Build() (any, error) { return b.v.Interface(), nil }
