package packjson

import "io"

// BytesWriter is an io.Writer over a pre-allocated byte slice. It never
// grows the slice: a write that does not fit is cut short and reports
// io.ErrShortWrite.
type BytesWriter struct {
	B []byte // destination slice
	N int    // current write position
}

// NewBytesWriter creates a BytesWriter over the full capacity of p.
func NewBytesWriter(p []byte) *BytesWriter {
	return &BytesWriter{B: p[:cap(p)]}
}

func (w *BytesWriter) Write(p []byte) (int, error) {
	if w.N >= len(w.B) && len(p) > 0 {
		return 0, io.ErrShortWrite
	}
	n := copy(w.B[w.N:], p)
	w.N += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Bytes returns the written part of the slice.
func (w *BytesWriter) Bytes() []byte { return w.B[:w.N] }

// Available returns the number of bytes that can still be written.
func (w *BytesWriter) Available() int { return len(w.B) - w.N }
