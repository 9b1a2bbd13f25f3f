// Package stream provides fault-tolerant record streaming: a lookahead
// iterator over any producer, and a pipeline that turns per-record failures
// into result metadata so that a long stream continues past bad records.
package stream

import (
	"errors"
	"io"
	"iter"

	"github.com/reoring/natcodec"
)

// ErrStop is returned by a producer to signal the end of input.
var ErrStop = errors.New("natcodec: end of stream")

// Iterator is a lookahead iterator over a producer.
//
// HasNext performs at most one lookahead and is idempotent until Next
// consumes the buffered value. End of input closes the underlying resource
// exactly once. Any other producer error stops iteration, closes the
// resource and is reported by Err. An Iterator is single-consumer.
type Iterator[T any] struct {
	noMore  func() bool
	produce func(prev T) (T, error)
	closer  io.Closer

	prev  T
	next  T
	has   bool
	stale bool
	done  bool

	err    error
	closed bool
}

// NewIterator returns an iterator. noMore may be nil; produce receives the
// previously returned value (the zero value on the first call) and returns
// ErrStop or io.EOF at end of input. closer may be nil.
func NewIterator[T any](noMore func() bool, produce func(prev T) (T, error), closer io.Closer) *Iterator[T] {
	return &Iterator[T]{noMore: noMore, produce: produce, closer: closer, stale: true}
}

// HasNext reports whether Next will return a value.
func (it *Iterator[T]) HasNext() bool {
	if !it.stale {
		return it.has
	}
	it.stale = false
	if it.done {
		return false
	}
	if it.noMore != nil && it.noMore() {
		it.finish(nil)
		return false
	}
	v, err := it.produce(it.prev)
	if err != nil {
		if errors.Is(err, ErrStop) || errors.Is(err, io.EOF) {
			err = nil
		}
		it.finish(err)
		return false
	}
	it.next = v
	it.has = true
	return true
}

// Next returns the buffered value and marks the buffer stale.
func (it *Iterator[T]) Next() (T, bool) {
	var zero T
	if !it.HasNext() {
		return zero, false
	}
	v := it.next
	it.prev = v
	it.next = zero
	it.has = false
	it.stale = true
	return v, true
}

// Err returns the error that stopped iteration, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Close stops iteration and releases the resource. It is safe to call more
// than once.
func (it *Iterator[T]) Close() error {
	it.stale = false
	it.has = false
	if it.done {
		return nil
	}
	it.done = true
	return it.release()
}

func (it *Iterator[T]) finish(err error) {
	it.done = true
	it.has = false
	it.err = err
	if cerr := it.release(); cerr != nil && it.err == nil {
		it.err = cerr
	}
}

func (it *Iterator[T]) release() error {
	if it.closed || it.closer == nil {
		it.closed = true
		return nil
	}
	it.closed = true
	return it.closer.Close()
}

// All adapts the iterator to a range-over-func sequence. Breaking out of the
// loop leaves the resource open; call Close.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for it.HasNext() {
			v, _ := it.Next()
			if !yield(v) {
				return
			}
		}
	}
}

// Pull adapts an iterator to a pipeline pull function. Iterator errors are
// fatal.
func Pull[T any](it *Iterator[T]) func() (T, bool, error) {
	return func() (T, bool, error) {
		if v, ok := it.Next(); ok {
			return v, true, nil
		}
		var zero T
		if err := it.Err(); err != nil {
			return zero, false, natcodec.Fatal(err)
		}
		return zero, false, nil
	}
}
