package avrorec

import (
	"errors"
	"fmt"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
	"github.com/reoring/natcodec/record"
)

// Record is an Avro record in goavro's native form: field name to value,
// with int as int32, long as int64, float as float32, bytes and fixed as
// []byte, enums as string, arrays as []any, maps as map[string]any, unions as
// nil or a single-entry map from branch name to value, and timestamp logical
// types as time.Time.
type Record = map[string]any

// Codec decodes natural JSON into Avro records and back, and moves records
// through Avro binary and object container files.
type Codec struct {
	schema *Schema
	rec    *record.Codec[Record]
	avro   *goavro.Codec
}

type recordKey struct{ name string }

// NewCodec parses schemaText and builds a codec for its top-level record.
// Nested record codecs are shared through reg; a nil reg uses a private one.
func NewCodec(schemaText string, reg *record.Registry) (*Codec, error) {
	s, err := ParseSchema(schemaText)
	if err != nil {
		return nil, err
	}
	return NewCodecFromSchema(s, reg)
}

// NewCodecFromSchema builds a codec for a parsed schema.
func NewCodecFromSchema(s *Schema, reg *record.Registry) (*Codec, error) {
	if s.Type != "record" {
		return nil, fmt.Errorf("%w: top-level type is %s, want record", ErrInvalidSchema, s.Type)
	}
	if s.text == "" {
		return nil, fmt.Errorf("%w: schema has no source text", ErrInvalidSchema)
	}
	ac, err := goavro.NewCodec(s.text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if reg == nil {
		reg = record.NewRegistry()
	}
	rc, err := (&builder{reg: reg}).record(s)
	if err != nil {
		return nil, err
	}
	return &Codec{schema: s, rec: rc, avro: ac}, nil
}

// Schema returns the parsed schema.
func (c *Codec) Schema() *Schema { return c.schema }

// Record returns the generic record codec.
func (c *Codec) Record() *record.Codec[Record] { return c.rec }

// Goavro returns the underlying goavro codec.
func (c *Codec) Goavro() *goavro.Codec { return c.avro }

// Decode advances cur and reads one record in mode.
func (c *Codec) Decode(cur *natcodec.Cursor, mode natcodec.Mode) (Record, bool, error) {
	return c.rec.Decode(cur, mode)
}

// Read and ReadStrict let a Codec serve as a codec.Reader.
func (c *Codec) Read(cur *natcodec.Cursor) (Record, bool, error) { return c.rec.Read(cur) }

func (c *Codec) ReadStrict(cur *natcodec.Cursor) (Record, bool, error) {
	return c.rec.ReadStrict(cur)
}

// Write writes r as natural JSON.
func (c *Codec) Write(g natcodec.Generator, r Record) error { return c.rec.Write(g, r) }

// Encode writes r as natural JSON.
func (c *Codec) Encode(g natcodec.Generator, r Record) error { return c.rec.Encode(g, r) }

// BinaryFromNative encodes r as an Avro binary body.
func (c *Codec) BinaryFromNative(r Record) ([]byte, error) {
	return c.avro.BinaryFromNative(nil, r)
}

// NativeFromBinary decodes one Avro binary body and returns the remaining
// bytes.
func (c *Codec) NativeFromBinary(b []byte) (Record, []byte, error) {
	v, rest, err := c.avro.NativeFromBinary(b)
	if err != nil {
		return nil, b, err
	}
	r, ok := v.(map[string]any)
	if !ok {
		return nil, rest, fmt.Errorf("%w: decoded %T", codec.ErrWrongType, v)
	}
	return r, rest, nil
}

type builder struct {
	reg *record.Registry
}

func (b *builder) record(s *Schema) (*record.Codec[Record], error) {
	return record.Resolve[Record](b.reg, recordKey{s.FullName()}, func() (record.Schema[Record], error) {
		fields := make([]*record.Field, 0, len(s.Fields))
		for _, sf := range s.Fields {
			fc, err := b.codec(sf.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", s.FullName(), sf.Name, err)
			}
			f := &record.Field{Name: sf.Name, Aliases: sf.Aliases, Codec: fc, Handle: sf}
			if sf.HasDefault {
				d, err := nativeDefault(sf.Type, sf.Default)
				if err != nil {
					return nil, fmt.Errorf("%w: default of %s.%s: %v", ErrInvalidSchema, s.FullName(), sf.Name, err)
				}
				f.SetDefault(d)
			}
			if !sf.Type.Nullable() {
				t := sf.Type
				f.Required = true
				f.Unboxed = isScalar(t)
				f.Zero = func() any { return zeroValue(t, nil) }
			}
			fields = append(fields, f)
		}
		return &rowSchema{name: s.FullName(), fields: fields}, nil
	})
}

func (b *builder) codec(s *Schema) (codec.Codec[any], error) {
	switch s.Type {
	case "null":
		return nullCodec{}, nil
	case "boolean":
		return codec.Erase(codec.Bool()), nil
	case "int":
		if isTimeLogical(s) {
			return codec.Erase(codec.Timestamp()), nil
		}
		return codec.Erase(codec.Int32()), nil
	case "long":
		if isTimeLogical(s) {
			return codec.Erase(codec.Timestamp()), nil
		}
		return codec.Erase(codec.Int64()), nil
	case "float":
		return codec.Erase(codec.Float32()), nil
	case "double":
		return codec.Erase(codec.Float64()), nil
	case "bytes":
		return codec.Erase(codec.Bytes()), nil
	case "fixed":
		return &fixedCodec{size: s.Size}, nil
	case "string":
		return codec.Erase(codec.String()), nil
	case "enum":
		syms := make([]codec.EnumSymbol[string], len(s.Symbols))
		for i, sym := range s.Symbols {
			syms[i] = codec.EnumSymbol[string]{Label: sym, Ordinal: int64(i), Value: sym}
		}
		var opts []codec.EnumOption[string]
		if s.EnumDefault != "" {
			opts = append(opts, codec.WithEnumDefault(s.EnumDefault))
		}
		return codec.Erase[string](codec.Enum(syms, opts...)), nil
	case "array":
		elem, err := b.codec(s.Items)
		if err != nil {
			return nil, err
		}
		return codec.Erase(codec.List(elem)), nil
	case "map":
		val, err := b.codec(s.Values)
		if err != nil {
			return nil, err
		}
		return codec.Erase(codec.Map(val)), nil
	case "record":
		rc, err := b.record(s)
		if err != nil {
			return nil, err
		}
		return rc.Erase(), nil
	case "union":
		return b.union(s)
	}
	return nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidSchema, s.Type)
}

type rowSchema struct {
	name   string
	fields []*record.Field
}

func (s *rowSchema) Name() string { return s.name }

func (s *rowSchema) Fields() []*record.Field { return s.fields }

func (s *rowSchema) New() record.Builder[Record] { return rowBuilder(make(Record, len(s.fields))) }

func (s *rowSchema) Value(r Record, f *record.Field) (any, bool) {
	v, ok := r[f.Name]
	return v, ok
}

type rowBuilder Record

func (b rowBuilder) Put(f *record.Field, v any) error {
	b[f.Name] = v
	return nil
}

func (b rowBuilder) Build() (Record, error) { return Record(b), nil }

func isScalar(s *Schema) bool {
	switch s.Type {
	case "boolean", "int", "long", "float", "double":
		return !isTimeLogical(s)
	}
	return false
}

// nullCodec reads the Avro null type: every value is absent.
type nullCodec struct{}

func (nullCodec) Read(c *natcodec.Cursor) (any, bool, error) {
	return nil, false, skipValue(c)
}

func (nullCodec) ReadStrict(c *natcodec.Cursor) (any, bool, error) {
	tok := c.Current()
	if tok.Kind == natcodec.TokenNull {
		return nil, false, nil
	}
	if err := skipValue(c); err != nil {
		return nil, false, err
	}
	return nil, false, natcodec.TypeMismatch("null", tok)
}

func (nullCodec) Write(g natcodec.Generator, _ any) error { return g.WriteNull() }

func skipValue(c *natcodec.Cursor) error {
	switch tok := c.Current(); tok.Kind {
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return natcodec.Structural("value", tok)
	case natcodec.TokenBeginObject, natcodec.TokenBeginArray:
		return c.Gobble()
	}
	return nil
}

// fixedCodec reads bytes of a declared length.
type fixedCodec struct{ size int }

var errFixedSize = errors.New("natcodec: fixed value has wrong length")

func (f *fixedCodec) Read(c *natcodec.Cursor) (any, bool, error) {
	b, ok, err := codec.Bytes().Read(c)
	if err != nil || !ok || len(b) != f.size {
		return nil, false, err
	}
	return b, true, nil
}

func (f *fixedCodec) ReadStrict(c *natcodec.Cursor) (any, bool, error) {
	b, ok, err := codec.Bytes().ReadStrict(c)
	if err != nil || !ok {
		return nil, false, err
	}
	if len(b) != f.size {
		return nil, false, natcodec.InvalidValue(natcodec.CodeInvalidFormat,
			fmt.Sprintf("%d bytes", f.size), c.Current(), errFixedSize)
	}
	return b, true, nil
}

func (f *fixedCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	b, ok := v.([]byte)
	if !ok {
		return fmt.Errorf("%w: got %T, want []byte", codec.ErrWrongType, v)
	}
	if len(b) != f.size {
		return fmt.Errorf("%w: %d bytes, want %d", errFixedSize, len(b), f.size)
	}
	return g.WriteBinary(b)
}

// nativeDefault converts a JSON default into the native form of s. Union
// defaults belong to the first branch.
func nativeDefault(s *Schema, raw any) (any, error) {
	switch s.Type {
	case "null":
		if raw != nil {
			return nil, fmt.Errorf("null default is %T", raw)
		}
		return nil, nil
	case "boolean":
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("boolean default is %T", raw)
		}
		return b, nil
	case "int", "long":
		n, err := toInt64(raw)
		if err != nil {
			return nil, err
		}
		switch {
		case s.LogicalType == "date" && s.Type == "int":
			return time.Unix(n*86400, 0).UTC(), nil
		case s.LogicalType == "timestamp-millis" && s.Type == "long":
			return time.UnixMilli(n).UTC(), nil
		case s.LogicalType == "timestamp-micros" && s.Type == "long":
			return time.UnixMicro(n).UTC(), nil
		case s.Type == "int":
			return int32(n), nil
		}
		return n, nil
	case "float":
		f, err := toFloat64(raw)
		return float32(f), err
	case "double":
		return toFloat64(raw)
	case "bytes", "fixed":
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s default is %T", s.Type, raw)
		}
		b := make([]byte, 0, len(str))
		for _, r := range str {
			if r > 0xff {
				return nil, fmt.Errorf("%s default has code point %U", s.Type, r)
			}
			b = append(b, byte(r))
		}
		return b, nil
	case "string":
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("string default is %T", raw)
		}
		return str, nil
	case "enum":
		str, _ := raw.(string)
		for _, sym := range s.Symbols {
			if sym == str {
				return str, nil
			}
		}
		return nil, fmt.Errorf("enum default %v is not a symbol of %s", raw, s.FullName())
	case "array":
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("array default is %T", raw)
		}
		out := make([]any, len(items))
		for i, e := range items {
			v, err := nativeDefault(s.Items, e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "map":
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("map default is %T", raw)
		}
		out := make(map[string]any, len(m))
		for k, e := range m {
			v, err := nativeDefault(s.Values, e)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case "record":
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record default is %T", raw)
		}
		out := make(map[string]any, len(s.Fields))
		for _, f := range s.Fields {
			e, ok := m[f.Name]
			if !ok {
				if !f.HasDefault {
					return nil, fmt.Errorf("record default misses field %s", f.Name)
				}
				e = f.Default
			}
			v, err := nativeDefault(f.Type, e)
			if err != nil {
				return nil, err
			}
			out[f.Name] = v
		}
		return out, nil
	case "union":
		if len(s.Branches) == 0 {
			return nil, errors.New("empty union")
		}
		first := s.Branches[0]
		v, err := nativeDefault(first, raw)
		if err != nil || first.Type == "null" {
			return nil, err
		}
		return goavro.Union(first.branchName(), v), nil
	}
	return nil, fmt.Errorf("unsupported type %q", s.Type)
}

// zeroValue returns the lenient zero of s. Recursive records yield nil.
func zeroValue(s *Schema, seen map[*Schema]bool) any {
	switch s.Type {
	case "boolean":
		return false
	case "int", "long":
		if isTimeLogical(s) {
			return time.Unix(0, 0).UTC()
		}
		if s.Type == "int" {
			return int32(0)
		}
		return int64(0)
	case "float":
		return float32(0)
	case "double":
		return float64(0)
	case "bytes":
		return []byte{}
	case "fixed":
		return make([]byte, s.Size)
	case "string":
		return ""
	case "enum":
		if s.EnumDefault != "" {
			return s.EnumDefault
		}
		return s.Symbols[0]
	case "array":
		return []any{}
	case "map":
		return map[string]any{}
	case "record":
		if seen[s] {
			return nil
		}
		if seen == nil {
			seen = map[*Schema]bool{}
		}
		seen[s] = true
		defer delete(seen, s)
		out := make(map[string]any, len(s.Fields))
		for _, f := range s.Fields {
			if f.HasDefault {
				if v, err := nativeDefault(f.Type, f.Default); err == nil {
					out[f.Name] = v
					continue
				}
			}
			out[f.Name] = zeroValue(f.Type, seen)
		}
		return out
	case "union":
		if len(s.Branches) == 0 || s.Branches[0].Type == "null" {
			return nil
		}
		return goavro.Union(s.Branches[0].branchName(), zeroValue(s.Branches[0], seen))
	}
	return nil
}
