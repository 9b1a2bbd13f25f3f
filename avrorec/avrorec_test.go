package avrorec_test

import (
	"bytes"
	"io"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/avrorec"
	"github.com/reoring/natcodec/fault"
	"github.com/reoring/natcodec/record"
	"github.com/reoring/natcodec/stream"
)

const personSchema = `{
  "type": "record", "name": "Person", "namespace": "ex",
  "fields": [
    {"name": "id", "type": "int"},
    {"name": "name", "type": "string", "aliases": ["full_name"]}
  ]
}`

const eventSchema = `{
  "type": "record", "name": "Event", "namespace": "ex",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "kind", "type": {"type": "enum", "name": "Kind", "symbols": ["CLICK", "VIEW"]}, "default": "VIEW"},
    {"name": "at", "type": {"type": "long", "logicalType": "timestamp-millis"}},
    {"name": "note", "type": ["null", "string"], "default": null},
    {"name": "score", "type": ["int", "double"], "default": 0},
    {"name": "tags", "type": {"type": "array", "items": "string"}, "default": []},
    {"name": "attrs", "type": {"type": "map", "values": "long"}, "default": {}},
    {"name": "child", "type": ["null", "Event"], "default": null}
  ]
}`

func decode(t *testing.T, c *avrorec.Codec, in string, mode natcodec.Mode) (avrorec.Record, error) {
	t.Helper()
	r, _, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes([]byte(in))), mode)
	return r, err
}

func encode(t *testing.T, c *avrorec.Codec, r avrorec.Record) string {
	t.Helper()
	var buf bytes.Buffer
	g := natcodec.NewJSONGenerator(&buf)
	require.NoError(t, c.Encode(g, r))
	require.NoError(t, g.Flush())
	return buf.String()
}

func TestScenario_AliasAndUnknownField(t *testing.T) {
	c, err := avrorec.NewCodec(personSchema, nil)
	require.NoError(t, err)
	for _, mode := range []natcodec.Mode{natcodec.Lenient, natcodec.Strict} {
		r, err := decode(t, c, `{"full_name": "Ann", "id": 7, "extra": [1,2,3]}`, mode)
		require.NoError(t, err, mode.String())
		assert.Equal(t, avrorec.Record{"id": int32(7), "name": "Ann"}, r, mode.String())
	}
}

func TestScenario_TypeMismatch(t *testing.T) {
	c, err := avrorec.NewCodec(personSchema, nil)
	require.NoError(t, err)

	r, err := decode(t, c, `{"id": "not-a-number"}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.Equal(t, avrorec.Record{"id": int32(0), "name": ""}, r)

	_, err = decode(t, c, `{"id": "not-a-number"}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeInvalidType, de.Code)
	assert.Equal(t, "id", de.Field)
}

func TestRequiredField(t *testing.T) {
	c, err := avrorec.NewCodec(personSchema, nil)
	require.NoError(t, err)
	_, err = decode(t, c, `{"id": 1}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeRequired, de.Code)
	assert.Equal(t, "name", de.Field)
}

func TestDecode_RichTypes(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	in := `{"id":1,"kind":"click","at":"2025-01-02T03:04:05Z","note":"hi","score":2.5,` +
		`"tags":["a"],"attrs":{"x":1},"child":{"id":2,"at":0}}`
	r, err := decode(t, c, in, natcodec.Strict)
	require.NoError(t, err)

	at, ok := r["at"].(time.Time)
	require.True(t, ok)
	assert.True(t, at.Equal(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, int64(1), r["id"])
	assert.Equal(t, "CLICK", r["kind"])
	assert.Equal(t, map[string]any{"string": "hi"}, r["note"])
	assert.Equal(t, map[string]any{"double": 2.5}, r["score"])
	assert.Equal(t, []any{"a"}, r["tags"])
	assert.Equal(t, map[string]any{"x": int64(1)}, r["attrs"])

	child, ok := r["child"].(map[string]any)["ex.Event"].(map[string]any)
	require.True(t, ok, "child is %#v", r["child"])
	assert.Equal(t, int64(2), child["id"])
	assert.Equal(t, "VIEW", child["kind"])
	assert.Nil(t, child["note"])
	assert.Equal(t, map[string]any{"int": int32(0)}, child["score"])
	assert.Equal(t, []any{}, child["tags"])

	assert.Equal(t,
		`{"id":1,"kind":"CLICK","at":"2025-01-02T03:04:05Z","note":"hi","score":2.5,"tags":["a"],"attrs":{"x":1},"child":{"id":2,"at":"1970-01-01T00:00:00Z"}}`+"\n",
		encode(t, c, r))
}

func TestDecode_UnionRejectsUnmatchedKind(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	_, err = decode(t, c, `{"id":1,"at":0,"score":true}`, natcodec.Strict)
	de, ok := natcodec.AsDecodeError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, natcodec.CodeInvalidType, de.Code)
	assert.Equal(t, "/score", de.Path)

	// Lenient numeric readers take booleans as 1 and 0.
	r, err := decode(t, c, `{"id":1,"at":0,"score":true}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"int": int32(1)}, r["score"])
}

func TestDecode_LenientUnionCoercion(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	r, err := decode(t, c, `{"id":"5","at":0,"score":"7"}`, natcodec.Lenient)
	require.NoError(t, err)
	assert.Equal(t, int64(5), r["id"])
	assert.Equal(t, map[string]any{"int": int32(7)}, r["score"])
}

func TestBinaryRoundTrip(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	r, err := decode(t, c, `{"id":1,"at":1700000000000,"note":null,"score":3,"tags":["a","b"],"attrs":{"k":5}}`, natcodec.Strict)
	require.NoError(t, err)

	bin, err := c.BinaryFromNative(r)
	require.NoError(t, err)
	back, rest, err := c.NativeFromBinary(bin)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, encode(t, c, r), encode(t, c, back))
}

func events(t *testing.T, c *avrorec.Codec, n int) []avrorec.Record {
	t.Helper()
	out := make([]avrorec.Record, 0, n)
	for i := range n {
		r, err := decode(t, c, `{"at":0,"id":`+strconv.Itoa(i)+`}`, natcodec.Lenient)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func ids(t *testing.T, it *stream.Iterator[avrorec.Record]) []int64 {
	t.Helper()
	var out []int64
	for r := range it.All() {
		out = append(out, r["id"].(int64))
	}
	require.NoError(t, it.Err())
	return out
}

func TestOCFRoundTrip(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	n, err := c.WriteOCF(&buf, slices.Values(events(t, c, 3)))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	it, err := avrorec.StreamOCF(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, ids(t, it))
}

func TestStreamBinary(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = c.WriteBinary(&buf, slices.Values(events(t, c, 4)))
	require.NoError(t, err)

	it := c.StreamBinary(&buf)
	assert.True(t, it.HasNext())
	assert.True(t, it.HasNext())
	assert.Equal(t, []int64{0, 1, 2, 3}, ids(t, it))
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestStreamBinary_ReadsIncrementally(t *testing.T) {
	c, err := avrorec.NewCodec(personSchema, nil)
	require.NoError(t, err)
	const total = 2000
	recs := make([]avrorec.Record, total)
	for i := range recs {
		recs[i] = avrorec.Record{"id": int32(i), "name": "person-" + strconv.Itoa(i)}
	}
	var buf bytes.Buffer
	_, err = c.WriteBinary(&buf, slices.Values(recs))
	require.NoError(t, err)
	size := buf.Len()

	cr := &countingReader{r: &buf}
	it := c.StreamBinary(cr)
	require.True(t, it.HasNext())
	assert.Less(t, cr.n, size)

	got := 0
	for r := range it.All() {
		assert.Equal(t, int32(got), r["id"])
		got++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, total, got)
	assert.Equal(t, size, cr.n)
}

func TestStreamBinary_TruncatedIsFatal(t *testing.T) {
	c, err := avrorec.NewCodec(eventSchema, nil)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = c.WriteBinary(&buf, slices.Values(events(t, c, 2)))
	require.NoError(t, err)
	data := buf.Bytes()[:buf.Len()-1]

	it := c.StreamBinary(bytes.NewReader(data))
	var got int
	for range it.All() {
		got++
	}
	assert.Equal(t, 1, got)
	assert.ErrorIs(t, it.Err(), io.ErrUnexpectedEOF)
}

func TestPipeline_FaultIsolation(t *testing.T) {
	c, err := avrorec.NewCodec(personSchema, nil)
	require.NoError(t, err)
	in := `[{"id":1,"name":"a"},{"id":"x","name":"b"},{"id":3,"name":"c"}]`
	p := stream.Decode[avrorec.Record, natcodec.Issue](
		natcodec.NewCursor(natcodec.JSONBytes([]byte(in))), c, natcodec.Strict, fault.Issues())

	var present []bool
	for r := range p.All() {
		present = append(present, r.IsPresent())
	}
	require.NoError(t, p.Err())
	assert.Equal(t, []bool{true, false, true}, present)
}

func TestParseSchemaYAML(t *testing.T) {
	s, err := avrorec.ParseSchemaYAML([]byte(`
type: record
name: Person
namespace: ex
fields:
  - name: id
    type: int
  - name: name
    type: string
    aliases: [full_name]
    default: anonymous
`))
	require.NoError(t, err)
	assert.Equal(t, "ex.Person", s.FullName())
	require.Len(t, s.Fields, 2)
	assert.Equal(t, []string{"full_name"}, s.Fields[1].Aliases)

	c, err := avrorec.NewCodecFromSchema(s, nil)
	require.NoError(t, err)
	r, err := decode(t, c, `{"id":4}`, natcodec.Strict)
	require.NoError(t, err)
	assert.Equal(t, avrorec.Record{"id": int32(4), "name": "anonymous"}, r)
}

func TestInvalidSchemas(t *testing.T) {
	for name, text := range map[string]string{
		"syntax":       `{"type":`,
		"unknown type": `{"type":"record","name":"R","fields":[{"name":"a","type":"Nope"}]}`,
		"not a record": `"string"`,
		"enum default": `{"type":"record","name":"R","fields":[{"name":"e","type":{"type":"enum","name":"E","symbols":["A"]},"default":"B"}]}`,
		"empty enum":   `{"type":"enum","name":"E","symbols":[]}`,
	} {
		_, err := avrorec.NewCodec(text, nil)
		assert.ErrorIs(t, err, avrorec.ErrInvalidSchema, name)
	}
}

func TestRegistryHoldsOneCodecPerRecordType(t *testing.T) {
	reg := record.NewRegistry()
	_, err := avrorec.NewCodec(eventSchema, reg)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	_, err = avrorec.NewCodec(personSchema, reg)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
}
