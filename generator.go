package natcodec

import (
	"bufio"
	"encoding/base64"
	"errors"
	"io"
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// Generator receives the token stream of encoded values.
type Generator interface {
	WriteStartObject() error
	WriteEndObject() error
	WriteStartArray() error
	WriteEndArray() error
	WriteFieldName(name string) error
	WriteString(s string) error
	// WriteNumber writes a number given as JSON number text.
	WriteNumber(text string) error
	WriteInt(v int64) error
	WriteUint(v uint64) error
	// WriteFloat writes v with the shortest representation for bitSize (32 or
	// 64). NaN and infinities are written as the strings "NaN", "Infinity" and
	// "-Infinity".
	WriteFloat(v float64, bitSize int) error
	WriteBool(v bool) error
	WriteNull() error
	// WriteBinary embeds raw bytes. Text generators write base64.
	WriteBinary(b []byte) error
	Flush() error
}

// ErrGeneratorState is returned when tokens are written out of order, for
// example a field name outside an object.
var ErrGeneratorState = errors.New("natcodec: invalid generator state")

// FloatText returns the natural text form of a float and reports whether it
// must be written as a string.
func FloatText(v float64, bitSize int) (string, bool) {
	switch {
	case math.IsNaN(v):
		return "NaN", true
	case math.IsInf(v, 1):
		return "Infinity", true
	case math.IsInf(v, -1):
		return "-Infinity", true
	}
	return strconv.FormatFloat(v, 'g', -1, bitSize), false
}

type genFrame struct {
	object bool
	n      int  // values written
	key    bool // field name written, value pending
}

// JSONGenerator writes compact JSON. Each completed top-level value is
// followed by a newline, so a sequence of records forms NDJSON.
type JSONGenerator struct {
	w     *bufio.Writer
	stack []genFrame
	buf   []byte
}

// NewJSONGenerator returns a Generator writing to w. Call Flush when done.
func NewJSONGenerator(w io.Writer) *JSONGenerator {
	return &JSONGenerator{w: bufio.NewWriter(w)}
}

func (g *JSONGenerator) top() *genFrame {
	if n := len(g.stack); n > 0 {
		return &g.stack[n-1]
	}
	return nil
}

// beforeValue writes the separator expected before a value.
func (g *JSONGenerator) beforeValue() error {
	top := g.top()
	if top == nil {
		return nil
	}
	if top.object {
		if !top.key {
			return ErrGeneratorState
		}
		top.key = false
		return nil
	}
	if top.n > 0 {
		if err := g.w.WriteByte(','); err != nil {
			return err
		}
	}
	top.n++
	return nil
}

// afterValue terminates a top-level value.
func (g *JSONGenerator) afterValue() error {
	if len(g.stack) == 0 {
		return g.w.WriteByte('\n')
	}
	return nil
}

func (g *JSONGenerator) scalar(b []byte) error {
	if err := g.beforeValue(); err != nil {
		return err
	}
	if _, err := g.w.Write(b); err != nil {
		return err
	}
	return g.afterValue()
}

func (g *JSONGenerator) open(object bool, c byte) error {
	if err := g.beforeValue(); err != nil {
		return err
	}
	g.stack = append(g.stack, genFrame{object: object})
	return g.w.WriteByte(c)
}

func (g *JSONGenerator) close(object bool, c byte) error {
	top := g.top()
	if top == nil || top.object != object || top.key {
		return ErrGeneratorState
	}
	g.stack = g.stack[:len(g.stack)-1]
	if err := g.w.WriteByte(c); err != nil {
		return err
	}
	return g.afterValue()
}

func (g *JSONGenerator) WriteStartObject() error { return g.open(true, '{') }
func (g *JSONGenerator) WriteEndObject() error   { return g.close(true, '}') }
func (g *JSONGenerator) WriteStartArray() error  { return g.open(false, '[') }
func (g *JSONGenerator) WriteEndArray() error    { return g.close(false, ']') }

func (g *JSONGenerator) WriteFieldName(name string) error {
	top := g.top()
	if top == nil || !top.object || top.key {
		return ErrGeneratorState
	}
	if top.n > 0 {
		if err := g.w.WriteByte(','); err != nil {
			return err
		}
	}
	top.n++
	top.key = true
	q, err := json.MarshalNoEscape(name)
	if err != nil {
		return err
	}
	if _, err := g.w.Write(q); err != nil {
		return err
	}
	return g.w.WriteByte(':')
}

func (g *JSONGenerator) WriteString(s string) error {
	q, err := json.MarshalNoEscape(s)
	if err != nil {
		return err
	}
	return g.scalar(q)
}

func (g *JSONGenerator) WriteNumber(text string) error { return g.scalar([]byte(text)) }

func (g *JSONGenerator) WriteInt(v int64) error {
	g.buf = strconv.AppendInt(g.buf[:0], v, 10)
	return g.scalar(g.buf)
}

func (g *JSONGenerator) WriteUint(v uint64) error {
	g.buf = strconv.AppendUint(g.buf[:0], v, 10)
	return g.scalar(g.buf)
}

func (g *JSONGenerator) WriteFloat(v float64, bitSize int) error {
	text, quoted := FloatText(v, bitSize)
	if quoted {
		return g.WriteString(text)
	}
	return g.WriteNumber(text)
}

func (g *JSONGenerator) WriteBool(v bool) error {
	g.buf = strconv.AppendBool(g.buf[:0], v)
	return g.scalar(g.buf)
}

func (g *JSONGenerator) WriteNull() error { return g.scalar([]byte("null")) }

func (g *JSONGenerator) WriteBinary(b []byte) error {
	return g.WriteString(base64.StdEncoding.EncodeToString(b))
}

func (g *JSONGenerator) Flush() error { return g.w.Flush() }
