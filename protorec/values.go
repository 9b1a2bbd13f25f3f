package protorec

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
)

const timestampName protoreflect.FullName = "google.protobuf.Timestamp"

func isTimestamp(md protoreflect.MessageDescriptor) bool {
	return md != nil && md.FullName() == timestampName
}

// Native forms: Go scalars for scalar kinds, protoreflect.EnumNumber for
// enums, protoreflect.Message for messages, time.Time for timestamps, []any
// for repeated fields and map[string]any for maps.

func nativeDefault(fd protoreflect.FieldDescriptor) any {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		if ev := fd.DefaultEnumValue(); ev != nil {
			return ev.Number()
		}
		return protoreflect.EnumNumber(0)
	case protoreflect.BytesKind:
		return append([]byte{}, fd.Default().Bytes()...)
	}
	return fd.Default().Interface()
}

func fromValue(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch {
	case fd.IsList():
		lst := v.List()
		out := make([]any, lst.Len())
		for i := range out {
			out[i] = singularNative(fd, lst.Get(i))
		}
		return out
	case fd.IsMap():
		mp := v.Map()
		out := make(map[string]any, mp.Len())
		mp.Range(func(k protoreflect.MapKey, e protoreflect.Value) bool {
			out[k.String()] = singularNative(fd.MapValue(), e)
			return true
		})
		return out
	}
	return singularNative(fd, v)
}

func singularNative(fd protoreflect.FieldDescriptor, v protoreflect.Value) any {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		return v.Enum()
	case protoreflect.MessageKind, protoreflect.GroupKind:
		if isTimestamp(fd.Message()) {
			return timeOf(v.Message())
		}
		return v.Message()
	}
	return v.Interface()
}

func toValue(m protoreflect.Message, fd protoreflect.FieldDescriptor, v any) (protoreflect.Value, error) {
	switch {
	case fd.IsList():
		items, ok := v.([]any)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("%w: got %T for repeated %s", codec.ErrWrongType, v, fd.Name())
		}
		lst := m.NewField(fd).List()
		for _, e := range items {
			ev, err := singularValue(fd, e, lst.NewElement)
			if err != nil {
				return protoreflect.Value{}, err
			}
			lst.Append(ev)
		}
		return protoreflect.ValueOfList(lst), nil
	case fd.IsMap():
		entries, ok := v.(map[string]any)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("%w: got %T for map %s", codec.ErrWrongType, v, fd.Name())
		}
		mp := m.NewField(fd).Map()
		for k, e := range entries {
			mk, err := parseMapKey(fd.MapKey(), k)
			if err != nil {
				return protoreflect.Value{}, err
			}
			ev, err := singularValue(fd.MapValue(), e, mp.NewValue)
			if err != nil {
				return protoreflect.Value{}, err
			}
			mp.Set(mk, ev)
		}
		return protoreflect.ValueOfMap(mp), nil
	}
	return singularValue(fd, v, func() protoreflect.Value { return m.NewField(fd) })
}

func singularValue(fd protoreflect.FieldDescriptor, v any, newValue func() protoreflect.Value) (protoreflect.Value, error) {
	switch fd.Kind() {
	case protoreflect.EnumKind:
		n, ok := v.(protoreflect.EnumNumber)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("%w: got %T for enum %s", codec.ErrWrongType, v, fd.Name())
		}
		return protoreflect.ValueOfEnum(n), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		if isTimestamp(fd.Message()) {
			t, ok := v.(time.Time)
			if !ok {
				return protoreflect.Value{}, fmt.Errorf("%w: got %T for timestamp %s", codec.ErrWrongType, v, fd.Name())
			}
			msg := newValue().Message()
			setTime(msg, t)
			return protoreflect.ValueOfMessage(msg), nil
		}
		msg, ok := v.(protoreflect.Message)
		if !ok {
			return protoreflect.Value{}, fmt.Errorf("%w: got %T for message %s", codec.ErrWrongType, v, fd.Name())
		}
		return protoreflect.ValueOfMessage(msg), nil
	}
	return protoreflect.ValueOf(v), nil
}

// timeOf reads a google.protobuf.Timestamp, generated or dynamic.
func timeOf(m protoreflect.Message) time.Time {
	if ts, ok := m.Interface().(*timestamppb.Timestamp); ok {
		return ts.AsTime()
	}
	fields := m.Descriptor().Fields()
	secs := m.Get(fields.ByName("seconds")).Int()
	nanos := m.Get(fields.ByName("nanos")).Int()
	return time.Unix(secs, nanos).UTC()
}

func setTime(m protoreflect.Message, t time.Time) {
	if ts, ok := m.Interface().(*timestamppb.Timestamp); ok {
		ts.Seconds, ts.Nanos = t.Unix(), int32(t.Nanosecond())
		return
	}
	fields := m.Descriptor().Fields()
	m.Set(fields.ByName("seconds"), protoreflect.ValueOfInt64(t.Unix()))
	m.Set(fields.ByName("nanos"), protoreflect.ValueOfInt32(int32(t.Nanosecond())))
}

func parseMapKey(fd protoreflect.FieldDescriptor, s string) (protoreflect.MapKey, error) {
	var v protoreflect.Value
	switch fd.Kind() {
	case protoreflect.StringKind:
		v = protoreflect.ValueOfString(s)
	case protoreflect.BoolKind:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		v = protoreflect.ValueOfBool(b)
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		v = protoreflect.ValueOfInt32(int32(n))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		v = protoreflect.ValueOfInt64(n)
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		v = protoreflect.ValueOfUint32(uint32(n))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return protoreflect.MapKey{}, err
		}
		v = protoreflect.ValueOfUint64(n)
	default:
		return protoreflect.MapKey{}, fmt.Errorf("%w: map key kind %s", ErrUnsupportedField, fd.Kind())
	}
	return v.MapKey(), nil
}

// mapCodec validates map keys against the key kind: an invalid key is an
// invalid_format error in strict mode and is dropped in lenient mode.
type mapCodec struct {
	key   protoreflect.FieldDescriptor
	inner codec.Codec[map[string]any]
}

func (c *mapCodec) Read(cur *natcodec.Cursor) (any, bool, error) {
	vs, ok, err := c.inner.Read(cur)
	return c.check(vs, ok, err, natcodec.Lenient)
}

func (c *mapCodec) ReadStrict(cur *natcodec.Cursor) (any, bool, error) {
	vs, ok, err := c.inner.ReadStrict(cur)
	return c.check(vs, ok, err, natcodec.Strict)
}

func (c *mapCodec) check(vs map[string]any, ok bool, err error, mode natcodec.Mode) (any, bool, error) {
	if err != nil || !ok {
		return nil, false, err
	}
	for k := range vs {
		if _, err := parseMapKey(c.key, k); err != nil {
			if mode == natcodec.Strict {
				tok := natcodec.Token{Kind: natcodec.TokenKey, String: k, Offset: -1}
				return nil, false, natcodec.UnderPath(
					natcodec.InvalidValue(natcodec.CodeInvalidFormat, c.key.Kind().String()+" map key", tok, err), k)
			}
			delete(vs, k)
		}
	}
	return vs, true, nil
}

func (c *mapCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	vs, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: got %T, want map[string]any", codec.ErrWrongType, v)
	}
	return c.inner.Write(g, vs)
}
