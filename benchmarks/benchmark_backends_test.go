package natcodec_test

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/avrorec"
	"github.com/reoring/natcodec/fault"
	"github.com/reoring/natcodec/protorec"
	_ "github.com/reoring/natcodec/source"
	"github.com/reoring/natcodec/stream"
	"github.com/reoring/natcodec/thriftrec"
)

const benchSchema = `{
  "type": "record", "name": "Item", "namespace": "bench",
  "fields": [
    {"name": "id", "type": "long"},
    {"name": "name", "type": "string", "aliases": ["full_name"]},
    {"name": "price", "type": "double"},
    {"name": "tags", "type": {"type": "array", "items": "string"}, "default": []}
  ]
}`

type benchItem struct {
	ID    int64    `thrift:"id,1,required"`
	Name  string   `thrift:"name,2" natcodec:"alias=full_name"`
	Price float64  `thrift:"price,3"`
	Tags  []string `thrift:"tags,4"`
}

var smallItem = []byte(`{"id":42,"full_name":"widget","price":9.5,"tags":["a","b"],"extra":{"x":[1,2,3]}}`)

func hugeItems(n int) []byte {
	var b strings.Builder
	b.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(`{"id":` + strconv.Itoa(i) + `,"name":"item-` + strconv.Itoa(i) + `","price":1.25,"tags":["x"]}`)
	}
	b.WriteByte(']')
	return []byte(b.String())
}

func Benchmark_Avro_Decode_Small(b *testing.B) {
	c, err := avrorec.NewCodec(benchSchema, nil)
	if err != nil {
		b.Fatalf("codec: %v", err)
	}
	for _, mode := range []natcodec.Mode{natcodec.Lenient, natcodec.Strict} {
		b.Run(mode.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(smallItem)))
			for b.Loop() {
				if _, _, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes(smallItem)), mode); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func Benchmark_Thrift_Decode_Small(b *testing.B) {
	c, err := thriftrec.NewCodec[benchItem](nil)
	if err != nil {
		b.Fatalf("codec: %v", err)
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(smallItem)))
	for b.Loop() {
		if _, _, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes(smallItem)), natcodec.Strict); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Proto_Decode_Small(b *testing.B) {
	c, err := protorec.NewCodecFor(&descriptorpb.FieldDescriptorProto{}, nil)
	if err != nil {
		b.Fatalf("codec: %v", err)
	}
	data := []byte(`{"name":"id","number":1,"label":"LABEL_OPTIONAL","type":"TYPE_INT64","jsonName":"id"}`)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for b.Loop() {
		if _, _, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes(data)), natcodec.Strict); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Avro_Encode_Small(b *testing.B) {
	c, err := avrorec.NewCodec(benchSchema, nil)
	if err != nil {
		b.Fatalf("codec: %v", err)
	}
	rec, _, err := c.Decode(natcodec.NewCursor(natcodec.JSONBytes(smallItem)), natcodec.Strict)
	if err != nil {
		b.Fatal(err)
	}
	var buf bytes.Buffer
	b.ReportAllocs()
	for b.Loop() {
		buf.Reset()
		g := natcodec.NewJSONGenerator(&buf)
		if err := c.Encode(g, rec); err != nil {
			b.Fatal(err)
		}
		if err := g.Flush(); err != nil {
			b.Fatal(err)
		}
	}
}

// Macro: huge array streamed record by record
func Benchmark_Avro_Stream_Huge(b *testing.B) {
	c, err := avrorec.NewCodec(benchSchema, nil)
	if err != nil {
		b.Fatalf("codec: %v", err)
	}
	const n = 10000
	data := hugeItems(n)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	for b.Loop() {
		p := stream.Decode(natcodec.NewCursor(natcodec.JSONReader(bytes.NewReader(data))), c, natcodec.Strict, fault.Issues())
		got := 0
		for r := range p.All() {
			if r.IsPresent() {
				got++
			}
		}
		if err := p.Err(); err != nil {
			b.Fatal(err)
		}
		if got != n {
			b.Fatalf("decoded %d records", got)
		}
	}
}
