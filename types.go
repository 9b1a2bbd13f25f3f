package natcodec

import eng "github.com/reoring/natcodec/internal/engine"

// Mode selects the decoding policy.
type Mode int

const (
	// Lenient never fails on data: malformed or mismatched values degrade to
	// absent, zero or default.
	Lenient Mode = iota
	// Strict validates token kinds, ranges, enum labels and required fields.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn or Error (duplicate JSON keys).
}

// DecodeOpt bundles limits applied by the cursor while tokens are pulled.
// The zero value disables every limit.
type DecodeOpt struct {
	Strictness Strictness
	MaxDepth   int
	MaxBytes   int64
	// OnIssue receives non-fatal issues such as duplicate keys in warn mode.
	OnIssue func(Issue)
}

func (o DecodeOpt) engineOptions() eng.EnforceOptions {
	return eng.EnforceOptions{
		OnDuplicate: toEngineDup(o.Strictness.OnDuplicateKey),
		MaxDepth:    o.MaxDepth,
		MaxBytes:    o.MaxBytes,
	}
}
