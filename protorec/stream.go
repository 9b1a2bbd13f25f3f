package protorec

import (
	"bufio"
	"io"
	"iter"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/proto"

	"github.com/reoring/natcodec/stream"
)

// StreamDelimited iterates varint length-delimited messages of the codec's
// type. r is closed at the end when it is an io.Closer.
func (c *Codec) StreamDelimited(r io.Reader) *stream.Iterator[proto.Message] {
	var br protodelim.Reader
	if rr, ok := r.(protodelim.Reader); ok {
		br = rr
	} else {
		br = bufio.NewReader(r)
	}
	opts := protodelim.UnmarshalOptions{MaxSize: c.cfg.maxSize}
	produce := func(proto.Message) (proto.Message, error) {
		m := c.New()
		if err := opts.UnmarshalFrom(br, m); err != nil {
			return nil, err
		}
		return m, nil
	}
	var closer io.Closer
	if cl, ok := r.(io.Closer); ok {
		closer = cl
	}
	return stream.NewIterator(nil, produce, closer)
}

// WriteDelimited writes msgs as varint length-delimited messages and
// returns the number written.
func (c *Codec) WriteDelimited(w io.Writer, msgs iter.Seq[proto.Message]) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for m := range msgs {
		if _, err := protodelim.MarshalTo(bw, m); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}
