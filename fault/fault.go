// Package fault turns failures into metadata so that a failing item can be
// tagged and skipped instead of aborting the whole computation.
package fault

import (
	"fmt"

	"github.com/segmentio/ksuid"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/result"
)

// Handler converts a failure, optionally together with the arguments of the
// failed operation, into metadata entries.
type Handler[M any] interface {
	Handle(err error) []M
	Handle1(err error, a any) []M
	Handle2(err error, a, b any) []M
}

// Func adapts f into a Handler. Arguments of the failed operation are passed
// through unchanged.
func Func[M any](f func(err error, args ...any) []M) Handler[M] { return funcHandler[M](f) }

type funcHandler[M any] func(err error, args ...any) []M

func (f funcHandler[M]) Handle(err error) []M           { return f(err) }
func (f funcHandler[M]) Handle1(err error, a any) []M    { return f(err, a) }
func (f funcHandler[M]) Handle2(err error, a, b any) []M { return f(err, a, b) }

// Discard drops every failure.
func Discard[M any]() Handler[M] {
	return Func(func(error, ...any) []M { return nil })
}

// PassThrough records the error itself.
func PassThrough() Handler[error] {
	return Func(func(err error, _ ...any) []error { return []error{err} })
}

// Map records f(err) and ignores the arguments.
func Map[M any](f func(error) M) Handler[M] {
	return Func(func(err error, _ ...any) []M { return []M{f(err)} })
}

// Issues converts failures into natcodec.Issue values. A *natcodec.DecodeError
// keeps its code and path; other errors are reported as transform errors.
// Arguments are rendered into InputFragment and Params["args"], and every
// issue is stamped with a sortable Params["fault_id"] for correlation with
// logs.
func Issues() Handler[natcodec.Issue] {
	return Func(func(err error, args ...any) []natcodec.Issue {
		var out natcodec.Issues
		if iss, ok := natcodec.AsIssues(err); ok {
			out = append(out, iss...)
		} else {
			out = append(out, natcodec.Issue{Path: "/", Code: natcodec.CodeTransform, Message: err.Error(), Cause: err, Offset: -1})
		}
		id := ksuid.New().String()
		for i := range out {
			params := make(map[string]any, len(out[i].Params)+2)
			for k, v := range out[i].Params {
				params[k] = v
			}
			params["fault_id"] = id
			if len(args) > 0 {
				params["args"] = args
				out[i].InputFragment = fmt.Sprint(args...)
			}
			out[i].Params = params
		}
		return out
	})
}

// Try runs f and converts its failure into a result tagged by h.
func Try[T, M any](h Handler[M], f func() (T, error)) result.Result[T, M] {
	v, err := f()
	if err != nil {
		return result.Failed[T](h.Handle(err)...)
	}
	return result.Of[T, M](v)
}

// Try1 runs f(a) and converts its failure into a result tagged by h.
func Try1[A, T, M any](h Handler[M], f func(A) (T, error), a A) result.Result[T, M] {
	v, err := f(a)
	if err != nil {
		return result.Failed[T](h.Handle1(err, a)...)
	}
	return result.Of[T, M](v)
}

// Try2 runs f(a, b) and converts its failure into a result tagged by h.
func Try2[A, B, T, M any](h Handler[M], f func(A, B) (T, error), a A, b B) result.Result[T, M] {
	v, err := f(a, b)
	if err != nil {
		return result.Failed[T](h.Handle2(err, a, b)...)
	}
	return result.Of[T, M](v)
}
