package packjson

import (
	"bytes"
	"encoding"
	"io"
)

// ReadFromGeneric provides a non-streaming io.ReaderFrom for any
// encoding.BinaryUnmarshaler. It reads all of r into a pooled buffer before
// unmarshalling, so it is unsuitable for unbounded inputs.
func ReadFromGeneric[T encoding.BinaryUnmarshaler](v T, r io.Reader) (int64, error) {
	return readAll(r, 0, v.UnmarshalBinary)
}

// MarshalToGeneric encodes v into p through its WriterTo, failing with
// io.ErrShortWrite when p is too small.
func MarshalToGeneric[T io.WriterTo](v T, p []byte) (int, error) {
	w := NewBytesWriter(p)
	n, err := v.WriteTo(w)
	return int(n), err
}

// readAll buffers r, bounded by limit when positive, and hands the bytes to
// fn. The bytes are only valid during fn.
func readAll(r io.Reader, limit int64, fn func([]byte) error) (int64, error) {
	if r == nil {
		return 0, ErrNilIO
	}
	buf := inputPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer inputPool.Put(buf)

	if limit > 0 {
		r = LimitReader(r, limit)
	}
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, err
	}
	return n, fn(buf.Bytes())
}
