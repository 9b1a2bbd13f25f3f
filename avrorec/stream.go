package avrorec

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/linkedin/goavro/v2"

	"github.com/reoring/natcodec/codec"
	"github.com/reoring/natcodec/stream"
)

const (
	ocfBatch    = 64
	binaryChunk = 4 << 10
)

// StreamOCF iterates the records of an Avro object container file. The file
// carries its own writer schema; records are returned in goavro's native
// form. r is closed at end of input when it is an io.Closer.
func StreamOCF(r io.Reader) (*stream.Iterator[Record], error) {
	ocf, err := goavro.NewOCFReader(r)
	if err != nil {
		return nil, err
	}
	produce := func(Record) (Record, error) {
		if !ocf.Scan() {
			if err := ocf.Err(); err != nil {
				return nil, err
			}
			return nil, stream.ErrStop
		}
		v, err := ocf.Read()
		if err != nil {
			return nil, err
		}
		rec, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: container holds %T", codec.ErrWrongType, v)
		}
		return rec, nil
	}
	return stream.NewIterator(nil, produce, asCloser(r)), nil
}

// WriteOCF writes recs to w as an object container file with c's schema.
// It returns the number of records written.
func (c *Codec) WriteOCF(w io.Writer, recs iter.Seq[Record]) (int, error) {
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Codec: c.avro})
	if err != nil {
		return 0, err
	}
	n := 0
	batch := make([]any, 0, ocfBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ocf.Append(batch); err != nil {
			return err
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}
	for r := range recs {
		batch = append(batch, r)
		if len(batch) == ocfBatch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	return n, flush()
}

// StreamBinary iterates concatenated Avro binary bodies written with c's
// schema. Input is read in chunks; only the bytes of the record being decoded
// are buffered.
func (c *Codec) StreamBinary(r io.Reader) *stream.Iterator[Record] {
	var (
		win   []byte
		buf   []byte
		eof   bool
		chunk = make([]byte, binaryChunk)
	)
	fill := func() error {
		n, err := r.Read(chunk)
		if n > 0 {
			win = append(win[:0], buf...)
			win = append(win, chunk[:n]...)
			buf = win
		}
		if errors.Is(err, io.EOF) {
			eof = true
			return nil
		}
		return err
	}
	produce := func(Record) (Record, error) {
		for {
			if len(buf) > 0 {
				rec, rest, err := c.NativeFromBinary(buf)
				if err == nil {
					buf = rest
					return rec, nil
				}
				if !shortBuffer(err) {
					return nil, err
				}
				if eof {
					return nil, fmt.Errorf("%w: %v", io.ErrUnexpectedEOF, err)
				}
			} else if eof {
				return nil, stream.ErrStop
			}
			if err := fill(); err != nil {
				return nil, err
			}
		}
	}
	return stream.NewIterator(nil, produce, asCloser(r))
}

// shortBuffer reports whether a decode failed because the body is incomplete.
func shortBuffer(err error) bool {
	if errors.Is(err, io.ErrShortBuffer) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return strings.Contains(err.Error(), io.ErrShortBuffer.Error())
}

// WriteBinary writes each record of recs as an Avro binary body.
func (c *Codec) WriteBinary(w io.Writer, recs iter.Seq[Record]) (int, error) {
	n := 0
	var buf []byte
	for r := range recs {
		var err error
		buf, err = c.avro.BinaryFromNative(buf[:0], r)
		if err != nil {
			return n, err
		}
		if _, err := w.Write(buf); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func asCloser(r io.Reader) io.Closer {
	if c, ok := r.(io.Closer); ok {
		return c
	}
	return nil
}
