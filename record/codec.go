package record

import (
	"reflect"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
)

// Codec reads and writes records of type R described by a Schema.
//
// A Codec may be created before its schema is known (New) and defined later
// (Define), which lets recursive record types refer to themselves. The field
// name index and enum memo caches are not synchronized: use one Codec per
// goroutine.
type Codec[R any] struct {
	schema Schema[R]
	fields []*Field
	index  *Index
}

// New returns an undefined codec. Using it before Define fails with
// natcodec.ErrUndefinedCodec.
func New[R any]() *Codec[R] { return &Codec[R]{} }

// NewCodec returns a codec defined by s.
func NewCodec[R any](s Schema[R]) *Codec[R] { return New[R]().Define(s) }

// Define attaches the schema. Field positions are assigned here.
func (c *Codec[R]) Define(s Schema[R]) *Codec[R] {
	fields := s.Fields()
	for i, f := range fields {
		f.Pos = i
	}
	c.schema = s
	c.fields = fields
	c.index = NewIndex(fields)
	return c
}

// Defined reports whether Define has been called.
func (c *Codec[R]) Defined() bool { return c.schema != nil }

// Name returns the record type name.
func (c *Codec[R]) Name() string {
	if c.schema == nil {
		return ""
	}
	return c.schema.Name()
}

// Fields returns the fields in declaration order.
func (c *Codec[R]) Fields() []*Field { return append([]*Field(nil), c.fields...) }

// Index returns the field name index.
func (c *Codec[R]) Index() *Index { return c.index }

// Field returns the field accepting name.
func (c *Codec[R]) Field(name string) (*Field, bool) {
	if c.index == nil {
		return nil, false
	}
	return c.index.Lookup(name)
}

// Decode advances c to the next value and reads a record in mode.
func (c *Codec[R]) Decode(cur *natcodec.Cursor, mode natcodec.Mode) (R, bool, error) {
	return codec.Decode[R](cur, c, mode)
}

// Read decodes leniently.
func (c *Codec[R]) Read(cur *natcodec.Cursor) (R, bool, error) {
	return c.read(cur, natcodec.Lenient)
}

// ReadStrict decodes strictly.
func (c *Codec[R]) ReadStrict(cur *natcodec.Cursor) (R, bool, error) {
	return c.read(cur, natcodec.Strict)
}

func (c *Codec[R]) read(cur *natcodec.Cursor, mode natcodec.Mode) (R, bool, error) {
	var zero R
	if c.schema == nil {
		return zero, false, natcodec.ErrUndefinedCodec
	}
	tok := cur.Current()
	switch tok.Kind {
	case natcodec.TokenBeginObject:
	case natcodec.TokenNull:
		return zero, false, nil
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return zero, false, natcodec.Structural(natcodec.TokenBeginObject.String(), tok)
	default:
		if err := cur.Gobble(); err != nil {
			return zero, false, err
		}
		if mode == natcodec.Strict {
			return zero, false, natcodec.TypeMismatch(natcodec.TokenBeginObject.String(), tok)
		}
		return zero, false, nil
	}

	w := NewWrapper(c.schema.New(), c.fields)
	for {
		k, err := cur.Advance()
		if err != nil {
			return zero, false, err
		}
		if k == natcodec.TokenEndObject {
			break
		}
		if k != natcodec.TokenKey {
			return zero, false, natcodec.Structural(natcodec.TokenKey.String(), cur.Current())
		}
		f, known := c.index.Lookup(cur.Current().String)
		if _, err := cur.Advance(); err != nil {
			return zero, false, err
		}
		if !known {
			if err := cur.Gobble(); err != nil {
				return zero, false, err
			}
			continue
		}
		v, present, err := codec.ReadMode(f.Codec, cur, mode)
		if err != nil {
			return zero, false, natcodec.UnderField(err, f.Name)
		}
		if !present {
			continue
		}
		if err := w.Put(f, v); err != nil {
			return zero, false, natcodec.UnderField(err, f.Name)
		}
	}
	r, err := w.Finish(mode)
	if err != nil {
		return zero, false, err
	}
	return r, true, nil
}

// Write encodes r as an object in declaration order. Unset fields and fields
// equal to a back-filled default are skipped. A nil record is written as null.
func (c *Codec[R]) Write(g natcodec.Generator, r R) error {
	if c.schema == nil {
		return natcodec.ErrUndefinedCodec
	}
	if isNilValue(r) {
		return g.WriteNull()
	}
	if err := g.WriteStartObject(); err != nil {
		return err
	}
	for _, f := range c.fields {
		v, ok := c.schema.Value(r, f)
		if !ok || v == nil || (!f.ImplicitDefault && f.IsDefault(v)) {
			continue
		}
		if err := g.WriteFieldName(f.Name); err != nil {
			return err
		}
		if err := f.Codec.Write(g, v); err != nil {
			return natcodec.UnderField(err, f.Name)
		}
	}
	return g.WriteEndObject()
}

// Encode writes r to g.
func (c *Codec[R]) Encode(g natcodec.Generator, r R) error { return c.Write(g, r) }

// Erase exposes the codec as a codec.Codec[any] for use as a field codec.
func (c *Codec[R]) Erase() codec.Codec[any] { return codec.Erase[R](c) }

func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
