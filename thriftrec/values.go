package thriftrec

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
)

// leafFor returns the codec of a primitive kind and the Go type it produces.
func leafFor(k reflect.Kind) (codec.Codec[any], reflect.Type, bool) {
	switch k {
	case reflect.Bool:
		return codec.Erase(codec.Bool()), reflect.TypeFor[bool](), true
	case reflect.Int8:
		return codec.Erase(codec.Int8()), reflect.TypeFor[int8](), true
	case reflect.Int16:
		return codec.Erase(codec.Int16()), reflect.TypeFor[int16](), true
	case reflect.Int32:
		return codec.Erase(codec.Int32()), reflect.TypeFor[int32](), true
	case reflect.Int64, reflect.Int:
		return codec.Erase(codec.Int64()), reflect.TypeFor[int64](), true
	case reflect.Uint32:
		return codec.Erase(codec.Uint32()), reflect.TypeFor[uint32](), true
	case reflect.Uint64:
		return codec.Erase(codec.Uint64()), reflect.TypeFor[uint64](), true
	case reflect.Float32:
		return codec.Erase(codec.Float32()), reflect.TypeFor[float32](), true
	case reflect.Float64:
		return codec.Erase(codec.Float64()), reflect.TypeFor[float64](), true
	case reflect.String:
		return codec.Erase(codec.String()), reflect.TypeFor[string](), true
	}
	return nil, nil, false
}

func isPrimitive(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint32, reflect.Uint64, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func wrongType(v any, t reflect.Type) error {
	return fmt.Errorf("%w: got %T, want %s", codec.ErrWrongType, v, t)
}

// convertCodec adapts a leaf to a named Go type with the same kind.
type convertCodec struct {
	t, base reflect.Type
	inner   codec.Codec[any]
}

func (c *convertCodec) Read(cur *natcodec.Cursor) (any, bool, error) {
	return c.to(c.inner.Read(cur))
}

func (c *convertCodec) ReadStrict(cur *natcodec.Cursor) (any, bool, error) {
	return c.to(c.inner.ReadStrict(cur))
}

func (c *convertCodec) to(v any, ok bool, err error) (any, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	return reflect.ValueOf(v).Convert(c.t).Interface(), true, nil
}

func (c *convertCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.t {
		return wrongType(v, c.t)
	}
	return c.inner.Write(g, rv.Convert(c.base).Interface())
}

// ptrCodec reads optional fields, which generated code holds as pointers.
type ptrCodec struct {
	t     reflect.Type
	inner codec.Codec[any]
}

func (c *ptrCodec) Read(cur *natcodec.Cursor) (any, bool, error) {
	return c.to(c.inner.Read(cur))
}

func (c *ptrCodec) ReadStrict(cur *natcodec.Cursor) (any, bool, error) {
	return c.to(c.inner.ReadStrict(cur))
}

func (c *ptrCodec) to(v any, ok bool, err error) (any, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	p := reflect.New(c.t.Elem())
	p.Elem().Set(reflect.ValueOf(v))
	return p.Interface(), true, nil
}

func (c *ptrCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.t {
		return wrongType(v, c.t)
	}
	if rv.IsNil() {
		return g.WriteNull()
	}
	return c.inner.Write(g, rv.Elem().Interface())
}

// sliceCodec reads lists and sets into typed slices.
type sliceCodec struct {
	t    reflect.Type
	list codec.Codec[[]any]
}

func (c *sliceCodec) Read(cur *natcodec.Cursor) (any, bool, error) {
	return c.to(c.list.Read(cur))
}

func (c *sliceCodec) ReadStrict(cur *natcodec.Cursor) (any, bool, error) {
	return c.to(c.list.ReadStrict(cur))
}

func (c *sliceCodec) to(vs []any, ok bool, err error) (any, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	out := reflect.MakeSlice(c.t, len(vs), len(vs))
	for i, e := range vs {
		out.Index(i).Set(reflect.ValueOf(e))
	}
	return out.Interface(), true, nil
}

func (c *sliceCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.t {
		return wrongType(v, c.t)
	}
	if rv.IsNil() {
		return g.WriteNull()
	}
	vs := make([]any, rv.Len())
	for i := range vs {
		vs[i] = rv.Index(i).Interface()
	}
	return c.list.Write(g, vs)
}

// keyCodec converts map keys between their JSON string form and the Go key
// type.
type keyCodec struct {
	parse  func(s string) (reflect.Value, error)
	format func(k reflect.Value) (string, error)
}

func (b *builder) keyFor(t reflect.Type) (keyCodec, error) {
	if e, ok := b.cfg.enums[t]; ok {
		return keyCodec{
			parse: func(s string) (reflect.Value, error) {
				if v, ok := e.parse(s); ok {
					return reflect.ValueOf(v), nil
				}
				return reflect.Value{}, fmt.Errorf("unknown symbol %q", s)
			},
			format: func(k reflect.Value) (string, error) {
				if l, ok := e.label(k.Interface()); ok {
					return l, nil
				}
				return "", fmt.Errorf("%w: %v", codec.ErrUnknownEnumValue, k.Interface())
			},
		}, nil
	}
	switch t.Kind() {
	case reflect.String:
		return keyCodec{
			parse:  func(s string) (reflect.Value, error) { return reflect.ValueOf(s).Convert(t), nil },
			format: func(k reflect.Value) (string, error) { return k.String(), nil },
		}, nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return keyCodec{
			parse: func(s string) (reflect.Value, error) {
				n, err := strconv.ParseInt(s, 10, t.Bits())
				if err != nil {
					return reflect.Value{}, err
				}
				return reflect.ValueOf(n).Convert(t), nil
			},
			format: func(k reflect.Value) (string, error) { return strconv.FormatInt(k.Int(), 10), nil },
		}, nil
	case reflect.Bool:
		return keyCodec{
			parse: func(s string) (reflect.Value, error) {
				v, err := strconv.ParseBool(s)
				if err != nil {
					return reflect.Value{}, err
				}
				return reflect.ValueOf(v).Convert(t), nil
			},
			format: func(k reflect.Value) (string, error) { return strconv.FormatBool(k.Bool()), nil },
		}, nil
	}
	return keyCodec{}, fmt.Errorf("%w: map key %s", ErrUnsupportedType, t)
}

// mapCodec reads JSON objects into typed maps. Keys that do not parse are
// an invalid_format error in strict mode and are dropped in lenient mode.
type mapCodec struct {
	t   reflect.Type
	m   codec.Codec[map[string]any]
	key keyCodec
}

func (c *mapCodec) Read(cur *natcodec.Cursor) (any, bool, error) {
	vs, ok, err := c.m.Read(cur)
	return c.to(vs, ok, err, natcodec.Lenient)
}

func (c *mapCodec) ReadStrict(cur *natcodec.Cursor) (any, bool, error) {
	vs, ok, err := c.m.ReadStrict(cur)
	return c.to(vs, ok, err, natcodec.Strict)
}

func (c *mapCodec) to(vs map[string]any, ok bool, err error, mode natcodec.Mode) (any, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	out := reflect.MakeMapWithSize(c.t, len(vs))
	for k, e := range vs {
		kv, err := c.key.parse(k)
		if err != nil {
			if mode == natcodec.Strict {
				tok := natcodec.Token{Kind: natcodec.TokenKey, String: k, Offset: -1}
				return nil, false, natcodec.UnderPath(
					natcodec.InvalidValue(natcodec.CodeInvalidFormat, "map key of type "+c.t.Key().String(), tok, err), k)
			}
			continue
		}
		out.SetMapIndex(kv, reflect.ValueOf(e))
	}
	return out.Interface(), true, nil
}

func (c *mapCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.t {
		return wrongType(v, c.t)
	}
	if rv.IsNil() {
		return g.WriteNull()
	}
	vs := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		k, err := c.key.format(it.Key())
		if err != nil {
			return err
		}
		vs[k] = it.Value().Interface()
	}
	return c.m.Write(g, vs)
}
