package stream

import (
	"errors"
	"io"
	"iter"
	"time"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
	"github.com/reoring/natcodec/fault"
	"github.com/reoring/natcodec/result"
)

// Pipeline pulls values and wraps each in a result. A non-fatal failure
// becomes an absent result tagged by the handler and the pipeline moves on;
// a fatal failure (see natcodec.IsFatal) stops it and is reported by Err; an
// absent value without error ends it.
type Pipeline[T, M any] struct {
	it      *Iterator[result.Result[T, M]]
	pull    func() (T, bool, error)
	handler fault.Handler[M]
	opt     options
	n       int64
}

// NewPipeline wraps pull. A nil handler discards failures.
func NewPipeline[T, M any](pull func() (T, bool, error), h fault.Handler[M], opts ...Option) *Pipeline[T, M] {
	if h == nil {
		h = fault.Discard[M]()
	}
	p := &Pipeline[T, M]{pull: pull, handler: h, opt: newOptions(opts)}
	p.it = NewIterator(nil, p.produce, p.opt.closer)
	return p
}

func (p *Pipeline[T, M]) produce(result.Result[T, M]) (result.Result[T, M], error) {
	if err := p.opt.ctx.Err(); err != nil {
		return p.stop(natcodec.Fatal(err))
	}
	start := time.Now()
	v, ok, err := p.pull()
	if m := p.opt.metrics; m != nil {
		m.pullDuration.Observe(time.Since(start).Seconds())
	}
	idx := p.n
	p.n++
	switch {
	case err != nil && natcodec.IsFatal(err):
		return p.stop(err)
	case err != nil:
		if m := p.opt.metrics; m != nil {
			m.faults.Inc()
		}
		if l := p.opt.logger; l != nil {
			l.DebugContext(p.opt.ctx, "record fault", "index", idx, "error", err)
		}
		return result.Failed[T](p.handler.Handle(err)...), nil
	case !ok:
		return result.Result[T, M]{}, ErrStop
	}
	if m := p.opt.metrics; m != nil {
		m.records.Inc()
	}
	return result.Of[T, M](v), nil
}

func (p *Pipeline[T, M]) stop(err error) (result.Result[T, M], error) {
	if l := p.opt.logger; l != nil {
		l.ErrorContext(p.opt.ctx, "stream stopped", "records", p.n, "error", err)
	}
	return result.Result[T, M]{}, err
}

// HasNext reports whether Next will return a result.
func (p *Pipeline[T, M]) HasNext() bool { return p.it.HasNext() }

// Next returns the next result.
func (p *Pipeline[T, M]) Next() (result.Result[T, M], bool) { return p.it.Next() }

// All adapts the pipeline to a range-over-func sequence.
func (p *Pipeline[T, M]) All() iter.Seq[result.Result[T, M]] { return p.it.All() }

// Err returns the fatal error that stopped the pipeline, if any.
func (p *Pipeline[T, M]) Err() error { return p.it.Err() }

// Close stops the pipeline and releases its resource.
func (p *Pipeline[T, M]) Close() error { return p.it.Close() }

// Decode streams records read by r from a token cursor. The input may be a
// top-level array of records or a sequence of concatenated values (NDJSON).
// An absent record (null, or an unusable value in lenient mode) ends the
// stream.
// After a non-fatal record failure the cursor is moved to the end of that
// record so that decoding resumes with the next one.
func Decode[T, M any](cur *natcodec.Cursor, r codec.Reader[T], mode natcodec.Mode, h fault.Handler[M], opts ...Option) *Pipeline[T, M] {
	pull := func() (T, bool, error) {
		var zero T
		for {
			base := cur.Depth()
			k, err := cur.Advance()
			if errors.Is(err, io.EOF) {
				return zero, false, nil
			}
			if err != nil {
				return zero, false, natcodec.Fatal(err)
			}
			if base == 0 && k == natcodec.TokenBeginArray {
				continue
			}
			if k == natcodec.TokenEndArray && cur.Depth() == 0 {
				continue
			}
			v, ok, err := codec.ReadMode(r, cur, mode)
			if err != nil {
				if natcodec.IsFatal(err) {
					return zero, false, err
				}
				if serr := cur.SkipTo(base); serr != nil {
					return zero, false, natcodec.Fatal(serr)
				}
				return zero, false, err
			}
			return v, ok, nil
		}
	}
	return NewPipeline(pull, h, opts...)
}

// Transform applies f to every present value of seq. A failure of f becomes
// an absent result carrying the upstream metadata followed by the handler's
// metadata for (err, value). Absent results pass through unchanged.
func Transform[T, U, M any](seq iter.Seq[result.Result[T, M]], f func(T) (U, error), h fault.Handler[M]) iter.Seq[result.Result[U, M]] {
	if h == nil {
		h = fault.Discard[M]()
	}
	return func(yield func(result.Result[U, M]) bool) {
		for r := range seq {
			meta := r.Metadata()
			v, ok := r.Get()
			var out result.Result[U, M]
			if !ok {
				out = result.Failed[U](meta...)
			} else if u, err := f(v); err != nil {
				out = result.Failed[U](append(meta, h.Handle1(err, v)...)...)
			} else {
				out = result.Of[U, M](u).WithMetadata(meta...)
			}
			if !yield(out) {
				return
			}
		}
	}
}
