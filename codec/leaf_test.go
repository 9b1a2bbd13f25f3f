package codec_test

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
)

type readCase[T any] struct {
	name    string
	in      string
	want    T
	present bool
	code    string // strict error code; "" means success
}

func runLenient[T any](t *testing.T, c codec.Codec[T], cases []readCase[T]) {
	t.Helper()
	for _, tc := range cases {
		v, ok, err := codec.Unmarshal([]byte(tc.in), c, natcodec.Lenient)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if ok != tc.present {
			t.Errorf("%s: present=%v, want %v", tc.name, ok, tc.present)
			continue
		}
		if tc.present && !reflect.DeepEqual(v, tc.want) {
			t.Errorf("%s: got %#v, want %#v", tc.name, v, tc.want)
		}
	}
}

func runStrict[T any](t *testing.T, c codec.Codec[T], cases []readCase[T]) {
	t.Helper()
	for _, tc := range cases {
		v, ok, err := codec.Unmarshal([]byte(tc.in), c, natcodec.Strict)
		if tc.code != "" {
			de, isDE := natcodec.AsDecodeError(err)
			if !isDE {
				t.Errorf("%s: expected DecodeError, got %v", tc.name, err)
				continue
			}
			if de.Code != tc.code {
				t.Errorf("%s: code=%s, want %s", tc.name, de.Code, tc.code)
			}
			if de.Fatal() {
				t.Errorf("%s: data error must not be fatal", tc.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if ok != tc.present {
			t.Errorf("%s: present=%v, want %v", tc.name, ok, tc.present)
			continue
		}
		if tc.present && !reflect.DeepEqual(v, tc.want) {
			t.Errorf("%s: got %#v, want %#v", tc.name, v, tc.want)
		}
	}
}

// marshal writes v and fails the test on error.
func marshal[T any](t *testing.T, w codec.Writer[T], v T) string {
	t.Helper()
	out, err := codec.Marshal(w, v)
	if err != nil {
		t.Fatalf("marshal %v: %v", v, err)
	}
	return string(out)
}

// unmarshal reads in strictly and fails the test unless a value is present.
func unmarshal[T any](t *testing.T, in string, r codec.Reader[T]) T {
	t.Helper()
	v, ok, err := codec.Unmarshal([]byte(in), r, natcodec.Strict)
	if err != nil || !ok {
		t.Fatalf("unmarshal %s: ok=%v err=%v", in, ok, err)
	}
	return v
}

func TestInt32_Lenient(t *testing.T) {
	runLenient(t, codec.Int32(), []readCase[int32]{
		{name: "number", in: `42`, want: 42, present: true},
		{name: "numeric string", in: `" 17 "`, want: 17, present: true},
		{name: "fraction truncates", in: `3.9`, want: 3, present: true},
		{name: "exponent", in: `1e3`, want: 1000, present: true},
		{name: "overflow becomes zero", in: `4294967296`, want: 0, present: true},
		{name: "bool", in: `true`, want: 1, present: true},
		{name: "garbage string", in: `"not-a-number"`, present: false},
		{name: "null", in: `null`, present: false},
		{name: "object gobbled", in: `{"a":[1,2]}`, present: false},
	})
}

func TestInt32_Strict(t *testing.T) {
	runStrict(t, codec.Int32(), []readCase[int32]{
		{name: "number", in: `-5`, want: -5, present: true},
		{name: "integral float", in: `7.0`, want: 7, present: true},
		{name: "null absent", in: `null`, present: false},
		{name: "string", in: `"7"`, code: natcodec.CodeInvalidType},
		{name: "fraction", in: `7.5`, code: natcodec.CodeInvalidType},
		{name: "overflow", in: `2147483648`, code: natcodec.CodeOverflow},
		{name: "array", in: `[1]`, code: natcodec.CodeInvalidType},
	})
}

func TestNarrowWidths_Bounds(t *testing.T) {
	runStrict(t, codec.Int8(), []readCase[int8]{
		{name: "max", in: `127`, want: 127, present: true},
		{name: "min", in: `-128`, want: -128, present: true},
		{name: "above", in: `128`, code: natcodec.CodeOverflow},
	})
	runLenient(t, codec.Int8(), []readCase[int8]{
		{name: "above", in: `128`, want: 0, present: true},
	})
	runStrict(t, codec.Int16(), []readCase[int16]{
		{name: "below", in: `-32769`, code: natcodec.CodeOverflow},
	})
	runStrict(t, codec.Int64(), []readCase[int64]{
		{name: "max", in: `9223372036854775807`, want: math.MaxInt64, present: true},
		{name: "above", in: `9223372036854775808`, code: natcodec.CodeOverflow},
		{name: "float above", in: `1e19`, code: natcodec.CodeOverflow},
	})
	runStrict(t, codec.Uint32(), []readCase[uint32]{
		{name: "max", in: `4294967295`, want: math.MaxUint32, present: true},
		{name: "negative", in: `-1`, code: natcodec.CodeOverflow},
	})
	runStrict(t, codec.Uint64(), []readCase[uint64]{
		{name: "max", in: `18446744073709551615`, want: math.MaxUint64, present: true},
	})
}

func TestFloat64_Modes(t *testing.T) {
	runLenient(t, codec.Float64(), []readCase[float64]{
		{name: "number", in: `1.25`, want: 1.25, present: true},
		{name: "string", in: `"2.5"`, want: 2.5, present: true},
		{name: "infinity", in: `"Infinity"`, want: math.Inf(1), present: true},
		{name: "garbage", in: `"x"`, present: false},
	})
	runStrict(t, codec.Float64(), []readCase[float64]{
		{name: "number", in: `1e-3`, want: 0.001, present: true},
		{name: "neg infinity", in: `"-Infinity"`, want: math.Inf(-1), present: true},
		{name: "numeric string", in: `"2.5"`, code: natcodec.CodeInvalidType},
		{name: "bool", in: `false`, code: natcodec.CodeInvalidType},
	})
	runStrict(t, codec.Float32(), []readCase[float32]{
		{name: "overflow", in: `1e39`, code: natcodec.CodeOverflow},
	})

	if v := unmarshal(t, `"NaN"`, codec.Float64()); !math.IsNaN(v) {
		t.Fatalf("got %v, want NaN", v)
	}
}

func TestBool_Modes(t *testing.T) {
	runLenient(t, codec.Bool(), []readCase[bool]{
		{name: "bool", in: `true`, want: true, present: true},
		{name: "string", in: `"false"`, want: false, present: true},
		{name: "one", in: `1`, want: true, present: true},
		{name: "zero", in: `0`, want: false, present: true},
		{name: "garbage", in: `"maybe"`, present: false},
	})
	runStrict(t, codec.Bool(), []readCase[bool]{
		{name: "bool", in: `false`, want: false, present: true},
		{name: "string", in: `"true"`, code: natcodec.CodeInvalidType},
	})
}

func TestString_Modes(t *testing.T) {
	runLenient(t, codec.String(), []readCase[string]{
		{name: "string", in: `"Ann"`, want: "Ann", present: true},
		{name: "number", in: `12.50`, want: "12.50", present: true},
		{name: "bool", in: `true`, want: "true", present: true},
		{name: "array", in: `["x"]`, present: false},
	})
	runStrict(t, codec.String(), []readCase[string]{
		{name: "number", in: `1`, code: natcodec.CodeInvalidType},
		{name: "object", in: `{"a":"b"}`, code: natcodec.CodeInvalidType},
	})
}

func TestBytes_Alphabets(t *testing.T) {
	want := []byte{0xfb, 0xff, 0x01}
	runLenient(t, codec.Bytes(), []readCase[[]byte]{
		{name: "std", in: `"+/8B"`, want: want, present: true},
		{name: "url", in: `"-_8B"`, want: want, present: true},
		{name: "raw", in: `"aGk"`, want: []byte("hi"), present: true},
		{name: "malformed", in: `"!!"`, present: false},
	})
	runStrict(t, codec.Bytes(), []readCase[[]byte]{
		{name: "malformed", in: `"!!"`, code: natcodec.CodeInvalidFormat},
		{name: "number", in: `5`, code: natcodec.CodeInvalidType},
	})

	if out := marshal(t, codec.Bytes(), want); out != `"+/8B"` {
		t.Fatalf("got %s", out)
	}
}

func TestBytes_BinaryToken(t *testing.T) {
	b := natcodec.NewTokenBuffer()
	if err := b.WriteBinary([]byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	v, ok, err := codec.Decode(natcodec.NewCursor(b.Source()), codec.Bytes(), natcodec.Strict)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(v, []byte{1, 2}) {
		t.Fatalf("got %v", v)
	}
}

func TestTimestamp_Modes(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	runLenient(t, codec.Timestamp(), []readCase[time.Time]{
		{name: "rfc3339", in: `"2025-01-01T00:00:00Z"`, want: ts, present: true},
		{name: "millis", in: `1735689600000`, want: ts, present: true},
		{name: "garbage", in: `"yesterday"`, present: false},
	})
	runStrict(t, codec.Timestamp(), []readCase[time.Time]{
		{name: "nanos", in: `"2025-01-01T00:00:00.5Z"`, want: ts.Add(500 * time.Millisecond), present: true},
		{name: "garbage", in: `"yesterday"`, code: natcodec.CodeInvalidFormat},
		{name: "bool", in: `true`, code: natcodec.CodeInvalidType},
	})

	if out := marshal(t, codec.Timestamp(), ts); out != `"2025-01-01T00:00:00Z"` {
		t.Fatalf("got %s", out)
	}
}

func TestLeaf_StructuralTokenIsFatal(t *testing.T) {
	c := natcodec.NewCursor(natcodec.JSONBytes([]byte(`{}`)))
	if _, err := c.Advance(); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Advance(); err != nil { // end_object
		t.Fatal(err)
	}
	if _, _, err := codec.String().Read(c); !natcodec.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
}

func TestLeaf_RoundTrip(t *testing.T) {
	for _, v := range []int64{0, -1, math.MinInt64, math.MaxInt64} {
		if got := unmarshal(t, marshal(t, codec.Int64(), v), codec.Int64()); got != v {
			t.Errorf("int64 %d: got %d", v, got)
		}
	}
	for _, v := range []float32{0.1, -3.5, float32(math.Inf(1))} {
		if got := unmarshal(t, marshal(t, codec.Float32(), v), codec.Float32()); got != v {
			t.Errorf("float32 %v: got %v", v, got)
		}
	}
	const s = "line\n\"quoted\""
	if got := unmarshal(t, marshal(t, codec.String(), s), codec.String()); got != s {
		t.Errorf("string: got %q", got)
	}
}
