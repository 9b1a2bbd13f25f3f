// Package codec provides typed readers and writers between a natcodec.Cursor
// and native Go values: leaves for primitive and logical types, and
// composites for lists and string-keyed maps.
package codec

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/reoring/natcodec"
)

// Reader reads a value positioned at the cursor's current token and leaves
// the cursor on the value's last token. The boolean reports presence: a null
// token, or an unusable token in lenient mode, yields an absent value.
type Reader[T any] interface {
	// Read decodes leniently. It never fails on data; only structural token
	// errors are returned.
	Read(c *natcodec.Cursor) (T, bool, error)
	// ReadStrict validates token kinds and ranges and fails with a
	// *natcodec.DecodeError.
	ReadStrict(c *natcodec.Cursor) (T, bool, error)
}

// Writer writes a native value to a generator.
type Writer[T any] interface {
	Write(g natcodec.Generator, v T) error
}

// Codec reads and writes values of type T.
type Codec[T any] interface {
	Reader[T]
	Writer[T]
}

// ErrWrongType is returned by erased writers given a value of another type.
var ErrWrongType = errors.New("natcodec: value has wrong native type")

// ReadMode reads with r in the given mode.
func ReadMode[T any](r Reader[T], c *natcodec.Cursor, mode natcodec.Mode) (T, bool, error) {
	if mode == natcodec.Strict {
		return r.ReadStrict(c)
	}
	return r.Read(c)
}

// Decode advances c to the next value and reads it. A clean end of input is
// reported as io.EOF.
func Decode[T any](c *natcodec.Cursor, r Reader[T], mode natcodec.Mode) (T, bool, error) {
	if _, err := c.Advance(); err != nil {
		var zero T
		return zero, false, err
	}
	return ReadMode(r, c, mode)
}

// Unmarshal decodes the first JSON value in data.
func Unmarshal[T any](data []byte, r Reader[T], mode natcodec.Mode, opts ...natcodec.DecodeOpt) (T, bool, error) {
	return Decode(natcodec.NewCursor(natcodec.JSONBytes(data), opts...), r, mode)
}

// Marshal encodes v as compact JSON without a trailing newline.
func Marshal[T any](w Writer[T], v T) ([]byte, error) {
	var buf bytes.Buffer
	g := natcodec.NewJSONGenerator(&buf)
	if err := w.Write(g, v); err != nil {
		return nil, err
	}
	if err := g.Flush(); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Erase hides the static type of c. Writing nil emits null; writing a value
// of another type fails with ErrWrongType.
func Erase[T any](c Codec[T]) Codec[any] {
	if a, ok := any(c).(Codec[any]); ok {
		return a
	}
	return erased[T]{c}
}

type erased[T any] struct{ inner Codec[T] }

func (e erased[T]) Read(c *natcodec.Cursor) (any, bool, error) {
	v, ok, err := e.inner.Read(c)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, true, nil
}

func (e erased[T]) ReadStrict(c *natcodec.Cursor) (any, bool, error) {
	v, ok, err := e.inner.ReadStrict(c)
	if err != nil || !ok {
		return nil, false, err
	}
	return v, true, nil
}

func (e erased[T]) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return fmt.Errorf("%w: got %T, want %T", ErrWrongType, v, zero)
	}
	return e.inner.Write(g, t)
}
