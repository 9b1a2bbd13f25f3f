package record

import "github.com/reoring/natcodec"

// Schema describes a record type R for the generic codec.
type Schema[R any] interface {
	// Name identifies the record type in diagnostics.
	Name() string
	// Fields lists the fields in declaration order.
	Fields() []*Field
	// New starts building a record.
	New() Builder[R]
	// Value reads a field of r. It reports false when the field is unset.
	Value(r R, f *Field) (any, bool)
}

// Builder accumulates field values for one record.
type Builder[R any] interface {
	Put(f *Field, v any) error
	Build() (R, error)
}

// Wrapper tracks which fields a decode call has set and completes the record
// when the object ends.
type Wrapper[R any] struct {
	b      Builder[R]
	fields []*Field
	set    []bool
}

// NewWrapper wraps b for fields. Field positions must index fields.
func NewWrapper[R any](b Builder[R], fields []*Field) *Wrapper[R] {
	return &Wrapper[R]{b: b, fields: fields, set: make([]bool, len(fields))}
}

// Put stores v and marks f as set.
func (w *Wrapper[R]) Put(f *Field, v any) error {
	if err := w.b.Put(f, v); err != nil {
		return err
	}
	w.set[f.Pos] = true
	return nil
}

// IsSet reports whether f has been set.
func (w *Wrapper[R]) IsSet(f *Field) bool { return w.set[f.Pos] }

// Finish back-fills defaults of unset fields. An unset unboxed or required
// field without a default fails in strict mode; in lenient mode it receives
// its zero value when the field provides one.
func (w *Wrapper[R]) Finish(mode natcodec.Mode) (R, error) {
	for _, f := range w.fields {
		if w.set[f.Pos] {
			continue
		}
		if f.ImplicitDefault && f.HasDefault() {
			continue
		}
		if v, ok := f.Default(); ok {
			if err := w.Put(f, v); err != nil {
				var zero R
				return zero, natcodec.UnderField(err, f.Name)
			}
			continue
		}
		if !f.Unboxed && !f.Required {
			continue
		}
		if mode == natcodec.Strict {
			var zero R
			return zero, natcodec.RequiredFieldMissing(f.Name)
		}
		if f.Zero != nil {
			if err := w.Put(f, f.Zero()); err != nil {
				var zero R
				return zero, natcodec.UnderField(err, f.Name)
			}
		}
	}
	return w.b.Build()
}
