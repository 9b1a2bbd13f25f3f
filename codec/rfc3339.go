package codec

import (
	"strings"
	"time"

	"github.com/reoring/natcodec"
)

// Timestamp reads instants from RFC 3339 strings (fractional seconds
// optional) or integral epoch milliseconds, and writes canonical RFC 3339 in
// UTC. Strict mode reports malformed strings as invalid_format.
func Timestamp() Codec[time.Time] {
	return &leaf[time.Time]{
		expected: "string",
		lenient: func(tok natcodec.Token) (time.Time, bool) {
			switch tok.Kind {
			case natcodec.TokenString:
				t, err := parseRFC3339(strings.TrimSpace(tok.String))
				return t, err == nil
			case natcodec.TokenNumber:
				if ms, st := parseIntText(tok.Number, -1<<63, 1<<63-1); st != numSyntax && st != numRange {
					return time.UnixMilli(ms).UTC(), true
				}
			}
			return time.Time{}, false
		},
		strict: func(tok natcodec.Token) (time.Time, bool, error) {
			switch tok.Kind {
			case natcodec.TokenString:
				t, err := parseRFC3339(tok.String)
				if err != nil {
					return time.Time{}, false, natcodec.InvalidValue(natcodec.CodeInvalidFormat, "RFC3339 time", tok, err)
				}
				return t, true, nil
			case natcodec.TokenNumber:
				ms, st := parseIntText(tok.Number, -1<<63, 1<<63-1)
				switch st {
				case numOK:
					return time.UnixMilli(ms).UTC(), true, nil
				case numRange:
					return time.Time{}, false, overflow("epoch millis", tok)
				}
				return time.Time{}, false, natcodec.TypeMismatch("integer", tok)
			}
			return time.Time{}, false, natcodec.TypeMismatch("string", tok)
		},
		write: func(g natcodec.Generator, v time.Time) error { return g.WriteString(FormatRFC3339(v)) },
	}
}

func parseRFC3339(s string) (time.Time, error) {
	// Accept RFC3339Nano (trailing zeros optional)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

// FormatRFC3339 normalizes to UTC and formats using RFC3339Nano (Go trims
// trailing zeros).
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
