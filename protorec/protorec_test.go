package protorec_test

import (
	"bytes"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/protorec"
	"github.com/reoring/natcodec/record"
)

const (
	optional = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	required = descriptorpb.FieldDescriptorProto_LABEL_REQUIRED
)

func field(name string, num int32, label descriptorpb.FieldDescriptorProto_Label, typ descriptorpb.FieldDescriptorProto_Type, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  label.Enum(),
		Type:   typ.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func mapEntry(name string, key, value descriptorpb.FieldDescriptorProto_Type) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name: proto.String(name),
		Field: []*descriptorpb.FieldDescriptorProto{
			field("key", 1, optional, key, ""),
			field("value", 2, optional, value, ""),
		},
		Options: &descriptorpb.MessageOptions{MapEntry: proto.Bool(true)},
	}
}

func newFile(t *testing.T, fdp *descriptorpb.FileDescriptorProto) protoreflect.FileDescriptor {
	t.Helper()
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	require.NoError(t, err)
	return fd
}

func exampleFile(t *testing.T) protoreflect.FileDescriptor {
	const (
		i32  = descriptorpb.FieldDescriptorProto_TYPE_INT32
		i64  = descriptorpb.FieldDescriptorProto_TYPE_INT64
		str  = descriptorpb.FieldDescriptorProto_TYPE_STRING
		enum = descriptorpb.FieldDescriptorProto_TYPE_ENUM
		msg  = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
	)
	return newFile(t, &descriptorpb.FileDescriptorProto{
		Name:       proto.String("ex/example.proto"),
		Package:    proto.String("ex"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/timestamp.proto"},
		EnumType: []*descriptorpb.EnumDescriptorProto{{
			Name: proto.String("Kind"),
			Value: []*descriptorpb.EnumValueDescriptorProto{
				{Name: proto.String("KIND_UNSPECIFIED"), Number: proto.Int32(0)},
				{Name: proto.String("KIND_CLICK"), Number: proto.Int32(1)},
			},
		}},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Person"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, optional, i32, ""),
					field("name", 2, optional, str, ""),
				},
			},
			{
				Name: proto.String("Event"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, optional, i64, ""),
					field("kind", 2, optional, enum, ".ex.Kind"),
					field("tags", 3, repeated, str, ""),
					field("counts", 4, repeated, msg, ".ex.Event.CountsEntry"),
					field("at", 5, optional, msg, ".google.protobuf.Timestamp"),
					field("owner", 6, optional, msg, ".ex.Person"),
					field("parent", 7, optional, msg, ".ex.Event"),
					field("labels", 8, repeated, msg, ".ex.Event.LabelsEntry"),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					mapEntry("CountsEntry", str, i64),
					mapEntry("LabelsEntry", i32, str),
				},
			},
		},
	})
}

func orderFile(t *testing.T) protoreflect.FileDescriptor {
	note := field("note", 2, optional, descriptorpb.FieldDescriptorProto_TYPE_STRING, "")
	note.DefaultValue = proto.String("none")
	return newFile(t, &descriptorpb.FileDescriptorProto{
		Name:    proto.String("ex2/order.proto"),
		Package: proto.String("ex2"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Order"),
			Field: []*descriptorpb.FieldDescriptorProto{
				field("order_id", 1, required, descriptorpb.FieldDescriptorProto_TYPE_INT64, ""),
				note,
			},
		}},
	})
}

func decode(t *testing.T, c *protorec.Codec, in string, mode natcodec.Mode) (protoreflect.Message, error) {
	t.Helper()
	m, ok, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes([]byte(in))), mode)
	if err != nil || !ok {
		return nil, err
	}
	return m.ProtoReflect(), nil
}

func encode(t *testing.T, c *protorec.Codec, m proto.Message) string {
	t.Helper()
	var buf bytes.Buffer
	g := natcodec.NewJSONGenerator(&buf)
	require.NoError(t, c.Encode(g, m))
	require.NoError(t, g.Flush())
	return buf.String()
}

func get(m protoreflect.Message, name string) protoreflect.Value {
	return m.Get(m.Descriptor().Fields().ByName(protoreflect.Name(name)))
}

func personCodec(t *testing.T) *protorec.Codec {
	t.Helper()
	md := exampleFile(t).Messages().ByName("Person")
	c, err := protorec.NewCodec(md, nil, protorec.WithAlias("ex.Person.name", "full_name"))
	require.NoError(t, err)
	return c
}

func TestScenario_AliasAndUnknownField(t *testing.T) {
	c := personCodec(t)
	for _, mode := range []natcodec.Mode{natcodec.Lenient, natcodec.Strict} {
		m, err := decode(t, c, `{"full_name": "Ann", "id": 7, "extra": [1,2,3]}`, mode)
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(7), get(m, "id").Int())
		assert.Equal(t, "Ann", get(m, "name").String())
	}
}

func TestScenario_TypeMismatch(t *testing.T) {
	c := personCodec(t)
	m, err := decode(t, c, `{"id": "not-a-number"}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.Equal(t, int64(0), get(m, "id").Int())
	assert.Equal(t, "", get(m, "name").String())

	_, err = decode(t, c, `{"id": "not-a-number"}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeInvalidType, de.Code)
	assert.Equal(t, "id", de.Field)
}

func TestDecode_EventRoundTrip(t *testing.T) {
	c, err := protorec.NewCodec(exampleFile(t).Messages().ByName("Event"), nil)
	require.NoError(t, err)
	in := `{"id":5,"kind":"KIND_CLICK","tags":["a","b"],"counts":{"x":2},"at":"2025-01-02T03:04:05.5Z",` +
		`"owner":{"id":1,"name":"o"},"parent":{"id":4},"labels":{"3":"c"}}`
	m, err := decode(t, c, in, natcodec.Strict)
	require.NoError(t, err)

	assert.Equal(t, protoreflect.EnumNumber(1), get(m, "kind").Enum())
	assert.Equal(t, 2, get(m, "tags").List().Len())
	assert.Equal(t, int64(2), get(m, "counts").Map().Get(protoreflect.ValueOfString("x").MapKey()).Int())
	assert.Equal(t, "c", get(m, "labels").Map().Get(protoreflect.ValueOfInt32(3).MapKey()).String())
	assert.Equal(t, "o", get(get(m, "owner").Message(), "name").String())
	at := get(m, "at").Message()
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 5e8, time.UTC).Unix(), get(at, "seconds").Int())
	assert.Equal(t, int64(5e8), get(at, "nanos").Int())

	assert.Equal(t, in+"\n", encode(t, c, m.Interface()))
}

func TestDecode_EnumFallback(t *testing.T) {
	c, err := protorec.NewCodec(exampleFile(t).Messages().ByName("Event"), nil)
	require.NoError(t, err)

	m, err := decode(t, c, `{"kind":1}`, natcodec.Strict)
	require.NoError(t, err)
	assert.Equal(t, protoreflect.EnumNumber(1), get(m, "kind").Enum())

	m, err = decode(t, c, `{"kind":"kind_click"}`, natcodec.Strict)
	require.NoError(t, err)
	assert.Equal(t, protoreflect.EnumNumber(1), get(m, "kind").Enum())

	m, err = decode(t, c, `{"kind":"bogus"}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.Equal(t, protoreflect.EnumNumber(0), get(m, "kind").Enum())

	_, err = decode(t, c, `{"kind":"bogus"}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeInvalidEnum, de.Code)
	assert.Equal(t, "/kind", de.Path)
}

func TestDecode_MapKeyKind(t *testing.T) {
	c, err := protorec.NewCodec(exampleFile(t).Messages().ByName("Event"), nil)
	require.NoError(t, err)
	_, err = decode(t, c, `{"labels":{"x":"a"}}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeInvalidFormat, de.Code)
	assert.Equal(t, "/labels/x", de.Path)

	m, err := decode(t, c, `{"labels":{"x":"a","7":"b"}}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.Equal(t, 1, get(m, "labels").Map().Len())
}

func TestRequiredAndDefaults(t *testing.T) {
	c, err := protorec.NewCodec(orderFile(t).Messages().ByName("Order"), nil)
	require.NoError(t, err)

	_, err = decode(t, c, `{"note":"n"}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeRequired, de.Code)
	assert.Equal(t, "order_id", de.Field)

	m, err := decode(t, c, `{"note":"n"}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.True(t, m.Has(m.Descriptor().Fields().ByName("order_id")))

	m, err = decode(t, c, `{"orderId":1}`, natcodec.Strict)
	require.NoError(t, err)
	assert.Equal(t, "none", get(m, "note").String())
	assert.Equal(t, `{"order_id":1}`+"\n", encode(t, c, m.Interface()))
}

func TestRoundTrip_UnsetFieldWithDefault(t *testing.T) {
	c, err := protorec.NewCodec(orderFile(t).Messages().ByName("Order"), nil)
	require.NoError(t, err)
	note := c.Descriptor().Fields().ByName("note")

	orig := c.New().ProtoReflect()
	orig.Set(c.Descriptor().Fields().ByName("order_id"), protoreflect.ValueOfInt64(1))
	back, err := decode(t, c, encode(t, c, orig.Interface()), natcodec.Strict)
	require.NoError(t, err)
	assert.False(t, back.Has(note))
	assert.Equal(t, "none", back.Get(note).String())
	assert.True(t, proto.Equal(orig.Interface(), back.Interface()))

	// An explicit default keeps its presence.
	orig.Set(note, protoreflect.ValueOfString("none"))
	out := encode(t, c, orig.Interface())
	assert.Equal(t, `{"order_id":1,"note":"none"}`+"\n", out)
	back, err = decode(t, c, out, natcodec.Strict)
	require.NoError(t, err)
	assert.True(t, back.Has(note))
	assert.True(t, proto.Equal(orig.Interface(), back.Interface()))
}

func TestGeneratedMessages(t *testing.T) {
	c, err := protorec.NewCodecFor(&descriptorpb.FieldDescriptorProto{}, nil)
	require.NoError(t, err)
	m, ok, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes(
		[]byte(`{"name":"x","number":3,"label":"LABEL_REPEATED","options":{"packed":true}}`))), natcodec.Strict)
	require.NoError(t, err)
	require.True(t, ok)
	fdp, isFDP := m.(*descriptorpb.FieldDescriptorProto)
	require.True(t, isFDP, "got %T", m)
	assert.Equal(t, "x", fdp.GetName())
	assert.Equal(t, int32(3), fdp.GetNumber())
	assert.Equal(t, repeated, fdp.GetLabel())
	assert.True(t, fdp.GetOptions().GetPacked())

	tc, err := protorec.NewCodecFor(&timestamppb.Timestamp{}, nil)
	require.NoError(t, err)
	ts, _, err := tc.Decode(natcodec.NewCursor(natcodec.JSONBytes([]byte(`{"seconds":10,"nanos":5}`))), natcodec.Strict)
	require.NoError(t, err)
	assert.True(t, proto.Equal(&timestamppb.Timestamp{Seconds: 10, Nanos: 5}, ts))
}

func TestDelimitedStream(t *testing.T) {
	c, err := protorec.NewCodec(exampleFile(t).Messages().ByName("Event"), nil)
	require.NoError(t, err)
	var msgs []proto.Message
	for _, in := range []string{`{"id":1}`, `{"id":2,"tags":["t"]}`, `{"id":3,"owner":{"name":"z"}}`} {
		m, err := decode(t, c, in, natcodec.Strict)
		require.NoError(t, err)
		msgs = append(msgs, m.Interface())
	}

	var buf bytes.Buffer
	n, err := c.WriteDelimited(&buf, slices.Values(msgs))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	it := c.StreamDelimited(&buf)
	var got []proto.Message
	for m := range it.All() {
		got = append(got, m)
	}
	require.NoError(t, it.Err())
	require.Len(t, got, 3)
	for i := range msgs {
		assert.True(t, proto.Equal(msgs[i], got[i]), "message %d", i)
	}
}

func TestDelimitedStream_Truncated(t *testing.T) {
	c, err := protorec.NewCodec(exampleFile(t).Messages().ByName("Person"), nil)
	require.NoError(t, err)
	m, err := decode(t, c, `{"id":1,"name":"abcdef"}`, natcodec.Strict)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = c.WriteDelimited(&buf, slices.Values([]proto.Message{m.Interface(), m.Interface()}))
	require.NoError(t, err)

	it := c.StreamDelimited(bytes.NewReader(buf.Bytes()[:buf.Len()-2]))
	var got int
	for range it.All() {
		got++
	}
	assert.Equal(t, 1, got)
	assert.Error(t, it.Err())
}

func TestRegistryHoldsMessageCodecs(t *testing.T) {
	reg := record.NewRegistry()
	_, err := protorec.NewCodec(exampleFile(t).Messages().ByName("Event"), reg)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}
