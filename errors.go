package natcodec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/natcodec/i18n"
	eng "github.com/reoring/natcodec/internal/engine"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeDuplicateKey  = "duplicate_key"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeParseError    = "parse_error"
	CodeOverflow      = "overflow"
	CodeTruncated     = "truncated"
	// CodeTransform marks a failure raised by a caller transformation in a
	// streaming pipeline.
	CodeTransform = "transform_error"
)

// ErrUndefinedCodec is returned when a record codec is used before its schema
// has been attached.
var ErrUndefinedCodec = errors.New("natcodec: record codec used before definition")

// Issue represents a single diagnostic entry.
type Issue struct {
	Path    string // JSON Pointer (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: expected/actual details.
	Cause   error  // Optional: underlying error.
	Offset  int64  // Byte offset in the input source (-1 when unknown).
	// InputFragment is an optional snippet of the offending input. Because it can
	// be expensive to produce, it is best-effort.
	InputFragment string
	// Params carries structured parameters for i18n and observability.
	Params map[string]any
}

// Issues is a collection of diagnostics that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, rootedPath(iss[i].Path))
	}
	if n := len(iss); n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally. A
// DecodeError is converted into a single-entry Issues.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	if de, ok := AsDecodeError(err); ok {
		return Issues{de.Issue()}, true
	}
	return nil, false
}

// DecodeError is the typed failure of a decode call. Strict-mode violations
// (type mismatch, overflow, unknown enum label, missing required field) and
// structural token errors are reported with it.
type DecodeError struct {
	Code     string
	Path     string // JSON Pointer of the offending value ("" means the root).
	Field    string // Offending field name, when the failure is bound to one.
	Expected string // Expected token kind or shape.
	Actual   TokenKind
	Offset   int64
	Cause    error
	// Detail is a free-form addition to the message.
	Detail string
	fatal  bool
	actual bool
}

func (e *DecodeError) Error() string {
	b := &strings.Builder{}
	b.WriteString("natcodec: ")
	b.WriteString(e.Code)
	b.WriteString(" at ")
	b.WriteString(rootedPath(e.Path))
	switch {
	case e.Code == CodeRequired:
		fmt.Fprintf(b, ": required field %q not set", e.Field)
	case e.Expected != "" && e.actual:
		fmt.Fprintf(b, ": expected %s, got %s", e.Expected, e.Actual)
	case e.Expected != "":
		fmt.Fprintf(b, ": expected %s", e.Expected)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Fatal reports whether the failure left the token stream in an unknown
// position. Fatal errors stop streaming pipelines.
func (e *DecodeError) Fatal() bool { return e.fatal }

// HasActual reports whether Actual carries the offending token kind.
func (e *DecodeError) HasActual() bool { return e.actual }

// Issue converts the error into the public Issue model.
func (e *DecodeError) Issue() Issue {
	it := Issue{
		Path:    rootedPath(e.Path),
		Code:    e.Code,
		Message: i18n.T(e.Code, nil),
		Cause:   e,
		Offset:  e.Offset,
	}
	params := map[string]any{}
	if e.Expected != "" {
		params["expected"] = e.Expected
		it.Hint = "expected " + e.Expected
	}
	if e.actual {
		params["actual"] = e.Actual.String()
	}
	if e.Field != "" {
		params["field"] = e.Field
	}
	if len(params) > 0 {
		it.Params = params
	}
	return it
}

// Under returns a copy of e whose path is prefixed with the given JSON
// Pointer segment (a field name, map key or list index).
func (e *DecodeError) Under(segment string) *DecodeError {
	cp := *e
	cp.Path = "/" + eng.EscapePointerToken(segment) + e.Path
	return &cp
}

// UnderPath re-roots err under a map key or list index. Errors other than
// *DecodeError are returned unchanged.
func UnderPath(err error, segment string) error {
	if de, ok := AsDecodeError(err); ok {
		return de.Under(segment)
	}
	return err
}

// UnderField re-roots err under a record field and records the field name
// when none is set yet. Errors other than *DecodeError are returned
// unchanged.
func UnderField(err error, field string) error {
	de, ok := AsDecodeError(err)
	if !ok {
		return err
	}
	de = de.Under(field)
	if de.Field == "" {
		de.Field = field
	}
	return de
}

// AsDecodeError extracts a *DecodeError from err.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// TypeMismatch reports a token kind that is valid JSON but incompatible with
// the declared type.
func TypeMismatch(expected string, tok Token) *DecodeError {
	return &DecodeError{Code: CodeInvalidType, Expected: expected, Actual: tok.Kind, Offset: tok.Offset, actual: true}
}

// InvalidValue reports a token of the right kind whose content cannot be used
// (out of range, unknown enum label, malformed base64 ...).
func InvalidValue(code, expected string, tok Token, cause error) *DecodeError {
	return &DecodeError{Code: code, Expected: expected, Actual: tok.Kind, Offset: tok.Offset, Cause: cause, actual: true}
}

// RequiredFieldMissing reports an unset required field without a default.
func RequiredFieldMissing(field string) *DecodeError {
	return &DecodeError{Code: CodeRequired, Field: field, Path: "/" + eng.EscapePointerToken(field), Offset: -1}
}

// Structural reports a token stream whose shape does not match what a reader
// expects. The cursor position is no longer trusted, so the error is fatal.
func Structural(expected string, tok Token) *DecodeError {
	return &DecodeError{Code: CodeParseError, Expected: expected, Actual: tok.Kind, Offset: tok.Offset, actual: true, fatal: true}
}

// fatalError marks errors that must stop a streaming pipeline.
type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }
func (f fatalError) Fatal() bool   { return true }

// Fatal marks err as fatal for streaming pipelines.
func Fatal(err error) error {
	if err == nil || IsFatal(err) {
		return err
	}
	return fatalError{err: err}
}

// IsFatal reports whether any error in err's chain declares itself fatal.
func IsFatal(err error) bool {
	for err != nil {
		if f, ok := err.(interface{ Fatal() bool }); ok && f.Fatal() {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

func rootedPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
