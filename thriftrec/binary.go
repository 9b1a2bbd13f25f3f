package thriftrec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/apache/thrift/lib/go/thrift"

	"github.com/reoring/natcodec/stream"
)

// ErrNotTStruct is returned when *T does not implement thrift.TStruct.
var ErrNotTStruct = errors.New("natcodec: record type is not a thrift.TStruct")

func (c *Codec[T]) tstruct(v *T) (thrift.TStruct, error) {
	ts, ok := any(v).(thrift.TStruct)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotTStruct, v)
	}
	return ts, nil
}

// StreamBinary iterates records written back to back with the compact
// protocol. A clean end of input between records ends the iteration; a
// truncated record is a fatal error. r is closed at the end when it is an
// io.Closer.
func (c *Codec[T]) StreamBinary(ctx context.Context, r io.Reader) (*stream.Iterator[*T], error) {
	if _, err := c.tstruct(new(T)); err != nil {
		return nil, err
	}
	br := bufio.NewReader(r)
	proto := thrift.NewTCompactProtocolConf(&thrift.StreamTransport{Reader: br}, c.cfg.tconf)
	noMore := func() bool {
		_, err := br.Peek(1)
		return errors.Is(err, io.EOF)
	}
	produce := func(*T) (*T, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := c.New()
		ts, _ := c.tstruct(v)
		if err := ts.Read(ctx, proto); err != nil {
			if errors.Is(err, io.EOF) {
				// A record had started; running out of input is truncation.
				return nil, fmt.Errorf("%w: %v", io.ErrUnexpectedEOF, err)
			}
			return nil, err
		}
		return v, nil
	}
	var closer io.Closer
	if cl, ok := r.(io.Closer); ok {
		closer = cl
	}
	return stream.NewIterator(noMore, produce, closer), nil
}

// WriteBinary writes recs back to back with the compact protocol and returns
// the number written.
func (c *Codec[T]) WriteBinary(ctx context.Context, w io.Writer, recs iter.Seq[*T]) (int, error) {
	if _, err := c.tstruct(new(T)); err != nil {
		return 0, err
	}
	proto := thrift.NewTCompactProtocolConf(thrift.NewStreamTransportW(w), c.cfg.tconf)
	n := 0
	for v := range recs {
		ts, _ := c.tstruct(v)
		if err := ts.Write(ctx, proto); err != nil {
			return n, err
		}
		n++
	}
	return n, proto.Flush(ctx)
}
