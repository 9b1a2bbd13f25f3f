package codec

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/reoring/natcodec"
)

type numStatus int

const (
	numOK numStatus = iota
	numFraction
	numRange
	numSyntax
)

// parseIntText parses number text into [lo, hi]. Integral floats such as
// "7.0" or "1e3" are accepted; fractions are truncated and reported.
func parseIntText(s string, lo, hi int64) (int64, numStatus) {
	v, err := strconv.ParseInt(s, 10, 64)
	switch {
	case err == nil:
		if v < lo || v > hi {
			return 0, numRange
		}
		return v, numOK
	case errors.Is(err, strconv.ErrRange):
		return 0, numRange
	}
	t, st := truncFloat(s)
	if st == numSyntax {
		return 0, st
	}
	if t < float64(lo) || t >= float64(hi)+1 {
		return 0, numRange
	}
	return int64(t), st
}

// parseUintText is parseIntText for unsigned widths.
func parseUintText(s string, hi uint64) (uint64, numStatus) {
	v, err := strconv.ParseUint(s, 10, 64)
	switch {
	case err == nil:
		if v > hi {
			return 0, numRange
		}
		return v, numOK
	case errors.Is(err, strconv.ErrRange):
		return 0, numRange
	}
	t, st := truncFloat(s)
	if st == numSyntax {
		return 0, st
	}
	if t < 0 || t >= float64(hi)+1 {
		return 0, numRange
	}
	return uint64(t), st
}

func truncFloat(s string) (float64, numStatus) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, numRange
		}
		return 0, numSyntax
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, numSyntax
	}
	t := math.Trunc(f)
	if t != f {
		return t, numFraction
	}
	return t, numOK
}

func overflow(width string, tok natcodec.Token) error {
	de := natcodec.InvalidValue(natcodec.CodeOverflow, width, tok, nil)
	de.Detail = tokenText(tok) + " out of range"
	return de
}

func tokenText(tok natcodec.Token) string {
	if tok.Kind == natcodec.TokenNumber {
		return tok.Number
	}
	return strconv.Quote(tok.String)
}

// lenientInt coerces numbers, numeric strings and booleans. Out-of-range
// values become zero.
func lenientInt(tok natcodec.Token, lo, hi int64) (int64, bool) {
	var text string
	switch tok.Kind {
	case natcodec.TokenNumber:
		text = tok.Number
	case natcodec.TokenString:
		text = strings.TrimSpace(tok.String)
	case natcodec.TokenBool:
		if tok.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	v, st := parseIntText(text, lo, hi)
	switch st {
	case numSyntax:
		return 0, false
	case numRange:
		return 0, true
	}
	return v, true
}

func strictInt(tok natcodec.Token, width string, lo, hi int64) (int64, bool, error) {
	if tok.Kind != natcodec.TokenNumber {
		return 0, false, natcodec.TypeMismatch("number", tok)
	}
	v, st := parseIntText(tok.Number, lo, hi)
	switch st {
	case numFraction, numSyntax:
		return 0, false, natcodec.TypeMismatch("integer", tok)
	case numRange:
		return 0, false, overflow(width, tok)
	}
	return v, true, nil
}

func signed[T int8 | int16 | int32 | int64](width string, lo, hi int64) Codec[T] {
	return &leaf[T]{
		expected: "number",
		lenient: func(tok natcodec.Token) (T, bool) {
			v, ok := lenientInt(tok, lo, hi)
			return T(v), ok
		},
		strict: func(tok natcodec.Token) (T, bool, error) {
			v, ok, err := strictInt(tok, width, lo, hi)
			return T(v), ok, err
		},
		write: func(g natcodec.Generator, v T) error { return g.WriteInt(int64(v)) },
	}
}

func unsigned[T uint32 | uint64](width string, hi uint64) Codec[T] {
	return &leaf[T]{
		expected: "number",
		lenient: func(tok natcodec.Token) (T, bool) {
			var text string
			switch tok.Kind {
			case natcodec.TokenNumber:
				text = tok.Number
			case natcodec.TokenString:
				text = strings.TrimSpace(tok.String)
			case natcodec.TokenBool:
				if tok.Bool {
					return 1, true
				}
				return 0, true
			default:
				return 0, false
			}
			v, st := parseUintText(text, hi)
			switch st {
			case numSyntax:
				return 0, false
			case numRange:
				return 0, true
			}
			return T(v), true
		},
		strict: func(tok natcodec.Token) (T, bool, error) {
			if tok.Kind != natcodec.TokenNumber {
				return 0, false, natcodec.TypeMismatch("number", tok)
			}
			v, st := parseUintText(tok.Number, hi)
			switch st {
			case numFraction, numSyntax:
				return 0, false, natcodec.TypeMismatch("integer", tok)
			case numRange:
				return 0, false, overflow(width, tok)
			}
			return T(v), true, nil
		},
		write: func(g natcodec.Generator, v T) error { return g.WriteUint(uint64(v)) },
	}
}

// Int8 reads byte-width integers.
func Int8() Codec[int8] { return signed[int8]("int8", math.MinInt8, math.MaxInt8) }

// Int16 reads short integers.
func Int16() Codec[int16] { return signed[int16]("int16", math.MinInt16, math.MaxInt16) }

// Int32 reads 32-bit integers.
func Int32() Codec[int32] { return signed[int32]("int32", math.MinInt32, math.MaxInt32) }

// Int64 reads 64-bit integers.
func Int64() Codec[int64] { return signed[int64]("int64", math.MinInt64, math.MaxInt64) }

// Uint32 reads unsigned 32-bit integers.
func Uint32() Codec[uint32] { return unsigned[uint32]("uint32", math.MaxUint32) }

// Uint64 reads unsigned 64-bit integers.
func Uint64() Codec[uint64] { return unsigned[uint64]("uint64", math.MaxUint64) }

// specialFloat maps the string forms of non-finite floats.
func specialFloat(s string) (float64, bool) {
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	return 0, false
}

func floating[T float32 | float64](width string, bitSize int) Codec[T] {
	return &leaf[T]{
		expected: "number",
		lenient: func(tok natcodec.Token) (T, bool) {
			var text string
			switch tok.Kind {
			case natcodec.TokenNumber:
				text = tok.Number
			case natcodec.TokenString:
				if f, ok := specialFloat(tok.String); ok {
					return T(f), true
				}
				text = strings.TrimSpace(tok.String)
			case natcodec.TokenBool:
				if tok.Bool {
					return 1, true
				}
				return 0, true
			default:
				return 0, false
			}
			f, err := strconv.ParseFloat(text, bitSize)
			if err != nil {
				if errors.Is(err, strconv.ErrRange) {
					return 0, true
				}
				return 0, false
			}
			return T(f), true
		},
		strict: func(tok natcodec.Token) (T, bool, error) {
			switch tok.Kind {
			case natcodec.TokenString:
				if f, ok := specialFloat(tok.String); ok {
					return T(f), true, nil
				}
			case natcodec.TokenNumber:
				f, err := strconv.ParseFloat(tok.Number, bitSize)
				if err != nil {
					if errors.Is(err, strconv.ErrRange) {
						return 0, false, overflow(width, tok)
					}
					return 0, false, natcodec.TypeMismatch("number", tok)
				}
				return T(f), true, nil
			}
			return 0, false, natcodec.TypeMismatch("number", tok)
		},
		write: func(g natcodec.Generator, v T) error { return g.WriteFloat(float64(v), bitSize) },
	}
}

// Float32 reads single-precision floats. The strings "NaN", "Infinity" and
// "-Infinity" are accepted in both modes.
func Float32() Codec[float32] { return floating[float32]("float32", 32) }

// Float64 reads double-precision floats. The strings "NaN", "Infinity" and
// "-Infinity" are accepted in both modes.
func Float64() Codec[float64] { return floating[float64]("float64", 64) }
