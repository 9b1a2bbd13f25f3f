package codec

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/reoring/natcodec"
)

// leaf implements the token dispatch shared by every scalar reader. Null is
// absent in both modes. Containers are gobbled: absent in lenient mode, a
// type mismatch in strict mode.
type leaf[T any] struct {
	expected string
	lenient  func(tok natcodec.Token) (T, bool)
	strict   func(tok natcodec.Token) (T, bool, error)
	write    func(g natcodec.Generator, v T) error
}

func (l *leaf[T]) Read(c *natcodec.Cursor) (T, bool, error) {
	var zero T
	tok := c.Current()
	switch tok.Kind {
	case natcodec.TokenNull:
		return zero, false, nil
	case natcodec.TokenBeginObject, natcodec.TokenBeginArray:
		return zero, false, c.Gobble()
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return zero, false, natcodec.Structural("value", tok)
	}
	v, ok := l.lenient(tok)
	return v, ok, nil
}

func (l *leaf[T]) ReadStrict(c *natcodec.Cursor) (T, bool, error) {
	var zero T
	tok := c.Current()
	switch tok.Kind {
	case natcodec.TokenNull:
		return zero, false, nil
	case natcodec.TokenBeginObject, natcodec.TokenBeginArray:
		if err := c.Gobble(); err != nil {
			return zero, false, err
		}
		return zero, false, natcodec.TypeMismatch(l.expected, tok)
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return zero, false, natcodec.Structural("value", tok)
	}
	return l.strict(tok)
}

func (l *leaf[T]) Write(g natcodec.Generator, v T) error { return l.write(g, v) }

// Bool reads booleans. Lenient mode also accepts "true"/"false"/"1"/"0"
// strings and numbers (non-zero is true).
func Bool() Codec[bool] {
	return &leaf[bool]{
		expected: "bool",
		lenient: func(tok natcodec.Token) (bool, bool) {
			switch tok.Kind {
			case natcodec.TokenBool:
				return tok.Bool, true
			case natcodec.TokenString:
				b, err := strconv.ParseBool(strings.TrimSpace(tok.String))
				return b, err == nil
			case natcodec.TokenNumber:
				f, err := strconv.ParseFloat(tok.Number, 64)
				return f != 0, err == nil
			}
			return false, false
		},
		strict: func(tok natcodec.Token) (bool, bool, error) {
			if tok.Kind != natcodec.TokenBool {
				return false, false, natcodec.TypeMismatch("bool", tok)
			}
			return tok.Bool, true, nil
		},
		write: func(g natcodec.Generator, v bool) error { return g.WriteBool(v) },
	}
}

// String reads text. Lenient mode renders numbers, booleans and binary data
// (base64) as text.
func String() Codec[string] {
	return &leaf[string]{
		expected: "string",
		lenient: func(tok natcodec.Token) (string, bool) {
			switch tok.Kind {
			case natcodec.TokenString:
				return tok.String, true
			case natcodec.TokenNumber:
				return tok.Number, true
			case natcodec.TokenBool:
				return strconv.FormatBool(tok.Bool), true
			case natcodec.TokenBinary:
				return base64.StdEncoding.EncodeToString(tok.Bytes), true
			}
			return "", false
		},
		strict: func(tok natcodec.Token) (string, bool, error) {
			if tok.Kind != natcodec.TokenString {
				return "", false, natcodec.TypeMismatch("string", tok)
			}
			return tok.String, true, nil
		},
		write: func(g natcodec.Generator, v string) error { return g.WriteString(v) },
	}
}

var base64Encodings = [...]*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// DecodeBase64 accepts the standard and URL alphabets, padded or not.
func DecodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range base64Encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// Bytes reads binary data from a base64 string or an embedded binary token.
// Strict mode reports malformed base64 as invalid_format.
func Bytes() Codec[[]byte] {
	return &leaf[[]byte]{
		expected: "string",
		lenient: func(tok natcodec.Token) ([]byte, bool) {
			switch tok.Kind {
			case natcodec.TokenBinary:
				return append([]byte(nil), tok.Bytes...), true
			case natcodec.TokenString:
				b, err := DecodeBase64(tok.String)
				return b, err == nil
			}
			return nil, false
		},
		strict: func(tok natcodec.Token) ([]byte, bool, error) {
			switch tok.Kind {
			case natcodec.TokenBinary:
				return append([]byte(nil), tok.Bytes...), true, nil
			case natcodec.TokenString:
				b, err := DecodeBase64(tok.String)
				if err != nil {
					return nil, false, natcodec.InvalidValue(natcodec.CodeInvalidFormat, "base64", tok, err)
				}
				return b, true, nil
			}
			return nil, false, natcodec.TypeMismatch("string", tok)
		},
		write: func(g natcodec.Generator, v []byte) error { return g.WriteBinary(v) },
	}
}
