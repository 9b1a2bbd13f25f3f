// Package protorec is the descriptor backend: records are protobuf messages,
// described by their protoreflect descriptors. Dynamic messages are built
// with dynamicpb; generated messages are used when a resolver knows them.
// Length-delimited binary streams use protodelim.
package protorec

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
	"github.com/reoring/natcodec/record"
)

// ErrUnsupportedField is returned for fields without a natural encoding.
var ErrUnsupportedField = errors.New("natcodec: unsupported protobuf field")

// Codec decodes natural JSON into protobuf messages and back.
type Codec struct {
	md  protoreflect.MessageDescriptor
	cfg *config
	rec *record.Codec[protoreflect.Message]
}

// Option configures a Codec.
type Option func(*config)

type config struct {
	resolver protoregistry.MessageTypeResolver
	aliases  map[protoreflect.FullName][]string
	maxSize  int64
}

// WithAlias adds input aliases to the field with the given full name, e.g.
// "ex.Person.name".
func WithAlias(field protoreflect.FullName, aliases ...string) Option {
	return func(cfg *config) { cfg.aliases[field] = append(cfg.aliases[field], aliases...) }
}

// WithResolver selects the message types used for records. Types the
// resolver does not know are built with dynamicpb.
func WithResolver(r protoregistry.MessageTypeResolver) Option {
	return func(cfg *config) { cfg.resolver = r }
}

// WithMaxMessageSize bounds the size of one message in delimited streams.
// Zero keeps the protodelim default of 4 MiB; -1 disables the limit.
func WithMaxMessageSize(n int64) Option {
	return func(cfg *config) { cfg.maxSize = n }
}

type messageKey struct {
	name    protoreflect.FullName
	dynamic bool
}

// NewCodec builds a codec for dynamic messages of md.
func NewCodec(md protoreflect.MessageDescriptor, reg *record.Registry, opts ...Option) (*Codec, error) {
	cfg := &config{aliases: map[protoreflect.FullName][]string{}}
	for _, o := range opts {
		o(cfg)
	}
	if reg == nil {
		reg = record.NewRegistry()
	}
	rc, err := (&builder{cfg: cfg, reg: reg, enums: map[protoreflect.FullName]codec.Codec[any]{}}).message(md)
	if err != nil {
		return nil, err
	}
	return &Codec{md: md, cfg: cfg, rec: rc}, nil
}

// NewCodecFor builds a codec for the generated message type of msg. Nested
// messages resolve through protoregistry.GlobalTypes unless WithResolver is
// given.
func NewCodecFor(msg proto.Message, reg *record.Registry, opts ...Option) (*Codec, error) {
	opts = append([]Option{WithResolver(protoregistry.GlobalTypes)}, opts...)
	return NewCodec(msg.ProtoReflect().Descriptor(), reg, opts...)
}

// Descriptor returns the message descriptor.
func (c *Codec) Descriptor() protoreflect.MessageDescriptor { return c.md }

// Record returns the generic record codec.
func (c *Codec) Record() *record.Codec[protoreflect.Message] { return c.rec }

// New returns an empty message of the codec's type.
func (c *Codec) New() proto.Message { return messageType(c.cfg, c.md).New().Interface() }

// Decode advances cur and reads one message in mode.
func (c *Codec) Decode(cur *natcodec.Cursor, mode natcodec.Mode) (proto.Message, bool, error) {
	return iface(c.rec.Decode(cur, mode))
}

func (c *Codec) Read(cur *natcodec.Cursor) (proto.Message, bool, error) {
	return iface(c.rec.Read(cur))
}

func (c *Codec) ReadStrict(cur *natcodec.Cursor) (proto.Message, bool, error) {
	return iface(c.rec.ReadStrict(cur))
}

// Write writes m as natural JSON; nil is written as null. Fields without
// presence are written only when non-zero.
func (c *Codec) Write(g natcodec.Generator, m proto.Message) error {
	if m == nil {
		return g.WriteNull()
	}
	return c.rec.Write(g, m.ProtoReflect())
}

// Encode writes m as natural JSON.
func (c *Codec) Encode(g natcodec.Generator, m proto.Message) error { return c.Write(g, m) }

func iface(m protoreflect.Message, ok bool, err error) (proto.Message, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	return m.Interface(), true, nil
}

func messageType(cfg *config, md protoreflect.MessageDescriptor) protoreflect.MessageType {
	if cfg.resolver != nil {
		if mt, err := cfg.resolver.FindMessageByName(md.FullName()); err == nil {
			return mt
		}
	}
	return dynamicpb.NewMessageType(md)
}

type builder struct {
	cfg   *config
	reg   *record.Registry
	enums map[protoreflect.FullName]codec.Codec[any]
}

func (b *builder) message(md protoreflect.MessageDescriptor) (*record.Codec[protoreflect.Message], error) {
	key := messageKey{name: md.FullName(), dynamic: b.cfg.resolver == nil}
	return record.Resolve[protoreflect.Message](b.reg, key, func() (record.Schema[protoreflect.Message], error) {
		fds := md.Fields()
		fields := make([]*record.Field, 0, fds.Len())
		for i := 0; i < fds.Len(); i++ {
			fd := fds.Get(i)
			fc, err := b.fieldCodec(fd)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", fd.FullName(), err)
			}
			f := &record.Field{
				Name:     string(fd.Name()),
				Aliases:  b.aliases(fd),
				Codec:    fc,
				Required: fd.Cardinality() == protoreflect.Required,
				Handle:   fd,
			}
			if fd.HasDefault() {
				f.SetDefault(nativeDefault(fd))
				f.ImplicitDefault = fd.HasPresence() && !f.Required
			}
			if f.Required && !fd.IsList() && !fd.IsMap() && fd.Message() == nil {
				f.Zero = func() any { return nativeDefault(fd) }
			}
			fields = append(fields, f)
		}
		return &messageSchema{md: md, mt: messageType(b.cfg, md), fields: fields}, nil
	})
}

func (b *builder) aliases(fd protoreflect.FieldDescriptor) []string {
	out := append([]string(nil), b.cfg.aliases[fd.FullName()]...)
	if jn := fd.JSONName(); jn != "" && jn != string(fd.Name()) {
		out = append(out, jn)
	}
	return out
}

func (b *builder) fieldCodec(fd protoreflect.FieldDescriptor) (codec.Codec[any], error) {
	if fd.IsMap() {
		val, err := b.singular(fd.MapValue())
		if err != nil {
			return nil, err
		}
		return &mapCodec{key: fd.MapKey(), inner: codec.Map(val)}, nil
	}
	c, err := b.singular(fd)
	if err != nil {
		return nil, err
	}
	if fd.IsList() {
		return codec.Erase(codec.List(c)), nil
	}
	return c, nil
}

func (b *builder) singular(fd protoreflect.FieldDescriptor) (codec.Codec[any], error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return codec.Erase(codec.Bool()), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return codec.Erase(codec.Int32()), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return codec.Erase(codec.Int64()), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return codec.Erase(codec.Uint32()), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return codec.Erase(codec.Uint64()), nil
	case protoreflect.FloatKind:
		return codec.Erase(codec.Float32()), nil
	case protoreflect.DoubleKind:
		return codec.Erase(codec.Float64()), nil
	case protoreflect.StringKind:
		return codec.Erase(codec.String()), nil
	case protoreflect.BytesKind:
		return codec.Erase(codec.Bytes()), nil
	case protoreflect.EnumKind:
		return b.enum(fd.Enum()), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		if isTimestamp(fd.Message()) {
			return codec.Erase(codec.Timestamp()), nil
		}
		rc, err := b.message(fd.Message())
		if err != nil {
			return nil, err
		}
		return rc.Erase(), nil
	}
	return nil, fmt.Errorf("%w: kind %s", ErrUnsupportedField, fd.Kind())
}

// enum reads enum values by name or number. Lenient reads of unknown values
// yield the first declared value.
func (b *builder) enum(ed protoreflect.EnumDescriptor) codec.Codec[any] {
	if c, ok := b.enums[ed.FullName()]; ok {
		return c
	}
	vals := ed.Values()
	syms := make([]codec.EnumSymbol[protoreflect.EnumNumber], vals.Len())
	for i := range syms {
		v := vals.Get(i)
		syms[i] = codec.EnumSymbol[protoreflect.EnumNumber]{Label: string(v.Name()), Ordinal: int64(v.Number()), Value: v.Number()}
	}
	var opts []codec.EnumOption[protoreflect.EnumNumber]
	if vals.Len() > 0 {
		opts = append(opts, codec.WithEnumDefault(vals.Get(0).Number()))
	}
	c := codec.Erase[protoreflect.EnumNumber](codec.Enum(syms, opts...))
	b.enums[ed.FullName()] = c
	return c
}

type messageSchema struct {
	md     protoreflect.MessageDescriptor
	mt     protoreflect.MessageType
	fields []*record.Field
}

func (s *messageSchema) Name() string { return string(s.md.FullName()) }

func (s *messageSchema) Fields() []*record.Field { return s.fields }

func (s *messageSchema) New() record.Builder[protoreflect.Message] {
	return &messageBuilder{m: s.mt.New()}
}

// Value reports fields that are populated: set with presence, non-zero
// without presence, non-empty for lists and maps.
func (s *messageSchema) Value(m protoreflect.Message, f *record.Field) (any, bool) {
	fd := f.Handle.(protoreflect.FieldDescriptor)
	if !m.Has(fd) {
		return nil, false
	}
	return fromValue(fd, m.Get(fd)), true
}

type messageBuilder struct{ m protoreflect.Message }

func (b *messageBuilder) Put(f *record.Field, v any) error {
	fd := f.Handle.(protoreflect.FieldDescriptor)
	if v == nil {
		b.m.Clear(fd)
		return nil
	}
	pv, err := toValue(b.m, fd, v)
	if err != nil {
		return err
	}
	b.m.Set(fd, pv)
	return nil
}

func (b *messageBuilder) Build() (protoreflect.Message, error) { return b.m, nil }
